package pprofserver_test

import (
	"context"
	"github.com/myrjola/twentyq/internal/pprofserver"
	"github.com/myrjola/twentyq/internal/testhelpers"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"testing"
)

func TestLaunch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := pprofserver.Launch(ctx, ":0", testhelpers.NewLogger(io.Discard))
	if err != nil {
		t.Skipf("ipv6 loopback unavailable: %v", err)
	}

	resp, err := http.Get("http://" + addr + "/debug/pprof/cmdline")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, resp.Body.Close())
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
