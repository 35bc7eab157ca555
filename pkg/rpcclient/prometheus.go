package rpcclient

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics of calls made by clients.
var (
	rpcCounter = map[string]prometheus.Counter{}
	rpcTimes   = map[string]prometheus.Histogram{}
)

var rpcMethods = []string{
	"getHealth",
	"getVersion",
	"getLatestBlockhash",
	"getBlockHeight",
	"getSignatureStatuses",
	"getAccountInfo",
	"getBalance",
	"requestAirdrop",
	"sendTransaction",
	"signatureSubscribe",
	"signatureUnsubscribe",
}

func observe(method string, start time.Time) {
	if hist, ok := rpcTimes[method]; ok {
		hist.Observe(time.Since(start).Seconds())
	}
	if ctr, ok := rpcCounter[method]; ok {
		ctr.Inc()
	}
}

func regCounter(call string) {
	ctr := prometheus.NewCounter(
		prometheus.CounterOpts{
			Help:      fmt.Sprintf("Number of %s requests sent", call),
			Name:      fmt.Sprintf("%s_sent", call),
			Namespace: "anchorcomp",
			Subsystem: "rpc",
		},
	)
	prometheus.MustRegister(ctr)
	rpcCounter[call] = ctr
	rpcTimes[call] = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Help:      "RPC " + call + " request time",
			Name:      call + "_time",
			Namespace: "anchorcomp",
			Subsystem: "rpc",
		},
	)
	prometheus.MustRegister(rpcTimes[call])
}

func init() {
	for _, call := range rpcMethods {
		regCounter(call)
	}
}
