package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go-agentcommerce/logger"
)

const shutdownTimeout = 10 * time.Second

// Start serves handler on addr. The returned context is cancelled once the
// server stops; cancelling ctx shuts the server down gracefully.
func Start(ctx context.Context, addr string, handler http.Handler) context.Context {
	srvCtx, cancel := context.WithCancel(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer cancel()
		logger.Logger.Info().Str("addr", addr).Msg("Starting checkout service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Error().Err(err).Msg("Server stopped")
		}
	}()

	go func() {
		<-srvCtx.Done()
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Logger.Warn().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	return srvCtx
}
