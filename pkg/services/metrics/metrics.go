package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const readHeaderTimeout = 5 * time.Second

// Service serves metrics.
type Service struct {
	http        []*http.Server
	config      config.BasicService
	log         *zap.Logger
	serviceType string

	lock  sync.Mutex
	addrs []string
}

// NewService creates a service serving handler on every configured address.
func NewService(name string, handler http.Handler, cfg config.BasicService, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	var srvs []*http.Server
	for _, addr := range cfg.GetAddresses() {
		srvs = append(srvs, &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}
	return &Service{
		http:        srvs,
		config:      cfg,
		serviceType: name,
		log:         log.With(zap.String("service", name)),
	}
}

// NewPrometheusService creates a service exposing metrics of the default
// prometheus registry (RPC client counters and histograms).
func NewPrometheusService(cfg config.BasicService, log *zap.Logger) *Service {
	return NewService("Prometheus", promhttp.Handler(), cfg, log)
}

// NewPprofService creates a service exposing runtime profiles.
func NewPprofService(cfg config.BasicService, log *zap.Logger) *Service {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return NewService("Pprof", mux, cfg, log)
}

// Name returns the service name.
func (ms *Service) Name() string {
	return ms.serviceType
}

// Start runs http services with the exposed endpoints on the configured
// ports. Listeners are bound synchronously, so an error is returned if any of
// the addresses can't be used.
func (ms *Service) Start() error {
	if !ms.config.Enabled {
		ms.log.Info("service hasn't started since it's disabled")
		return nil
	}
	listeners := make([]net.Listener, 0, len(ms.http))
	for _, srv := range ms.http {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, l := range listeners {
				_ = l.Close()
			}
			return err
		}
		listeners = append(listeners, ln)
	}
	ms.lock.Lock()
	ms.addrs = ms.addrs[:0]
	for i, srv := range ms.http {
		ln := listeners[i]
		ms.addrs = append(ms.addrs, ln.Addr().String())
		ms.log.Info("service is running", zap.String("endpoint", ln.Addr().String()))
		go func(srv *http.Server) {
			err := srv.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				ms.log.Error("failed to serve", zap.String("endpoint", srv.Addr), zap.Error(err))
			}
		}(srv)
	}
	ms.lock.Unlock()
	return nil
}

// Addresses returns the addresses services are listening on after Start.
func (ms *Service) Addresses() []string {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	return append([]string(nil), ms.addrs...)
}

// ShutDown stops the service.
func (ms *Service) ShutDown() error {
	if !ms.config.Enabled {
		return nil
	}
	var errs *multierror.Error
	for _, srv := range ms.http {
		ms.log.Info("shutting down service", zap.String("endpoint", srv.Addr))
		if err := srv.Shutdown(context.Background()); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}
