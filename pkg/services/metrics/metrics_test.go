package metrics

import (
	"io"
	"net/http"
	"testing"

	"github.com/UXDProtocol/anchor-comp/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPrometheusService(t *testing.T) {
	nop := NewPrometheusService(config.BasicService{}, nil)
	require.NoError(t, nop.Start())
	require.NoError(t, nop.ShutDown())

	srv := NewPrometheusService(config.BasicService{
		Enabled:   true,
		Addresses: []string{"127.0.0.1:0"},
	}, zaptest.NewLogger(t))
	require.Equal(t, "Prometheus", srv.Name())
	require.NoError(t, srv.Start())
	t.Cleanup(func() { require.NoError(t, srv.ShutDown()) })

	addrs := srv.Addresses()
	require.Len(t, addrs, 1)
	resp, err := http.Get("http://" + addrs[0] + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "go_goroutines")
}

func TestPprofService(t *testing.T) {
	srv := NewPprofService(config.BasicService{
		Enabled:   true,
		Addresses: []string{"127.0.0.1:0", "127.0.0.1:0"},
	}, zaptest.NewLogger(t))
	// Duplicates are served once.
	require.NoError(t, srv.Start())
	require.Len(t, srv.Addresses(), 1)
	require.NoError(t, srv.ShutDown())
}

func TestDisabledService(t *testing.T) {
	srv := NewPrometheusService(config.BasicService{Addresses: []string{"127.0.0.1:0"}}, zaptest.NewLogger(t))
	require.NoError(t, srv.Start())
	require.Empty(t, srv.Addresses())
	require.NoError(t, srv.ShutDown())
}

func TestStartFailure(t *testing.T) {
	srv := NewPrometheusService(config.BasicService{
		Enabled:   true,
		Addresses: []string{"256.0.0.1:0"},
	}, zaptest.NewLogger(t))
	require.Error(t, srv.Start())
}
