// Package api exposes the pack status and the cycle journal over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/sop/api/cycles"
	"github.com/kilianp07/sop/api/packs"
	"github.com/kilianp07/sop/core/journal"
	"github.com/kilianp07/sop/core/packstatus"
	"github.com/kilianp07/sop/infra/logger"
)

// Config defines the HTTP API settings. An empty Addr disables the server.
type Config struct {
	Addr string `json:"addr"`
	// Token protects the journal endpoint when set.
	Token string `json:"token"`
}

// NewMux routes the API endpoints.
func NewMux(status packstatus.Store, store journal.Store, token string) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/packs/status", packs.NewStatusHandler(status))
	mux.Handle("/api/packs/status/", packs.NewStatusHandler(status))
	mux.Handle("/api/cycles", cycles.NewHandler(store, token))
	return mux
}

// Serve runs the API server until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	log := logger.New("api")
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("api listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
