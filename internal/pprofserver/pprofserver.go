package pprofserver

import (
	"context"
	"fmt"
	"github.com/myrjola/twentyq/internal/errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"time"
)

const shutdownTimeout = 5 * time.Second

func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

// Launch serves pprof at the ipv6 loopback address ::1 and given port, e.g. ":6060", until ctx is done.
// It returns the bound address so that port ":0" can be used.
func Launch(ctx context.Context, port string, logger *slog.Logger) (string, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("[::1]%s", port))
	if err != nil {
		return "", errors.Wrap(err, "listen pprof", slog.String("port", port))
	}
	mux := http.NewServeMux()
	Handle(mux)
	server := &http.Server{ //nolint:exhaustruct // defaults are fine on loopback
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}
	addr := listener.Addr().String()

	go func() {
		logger.LogAttrs(ctx, slog.LevelInfo, "starting pprof server", slog.String("addr", addr))
		if serveErr := server.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			logger.LogAttrs(ctx, slog.LevelError, "pprof server stopped", errors.SlogError(serveErr))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return addr, nil
}
