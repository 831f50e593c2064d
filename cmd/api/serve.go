package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type backgroundWorker interface {
	Run(ctx context.Context) error
}

// serve runs the HTTP server and the background worker until ctx is done or
// either of them fails. onShutdown runs after the server has drained.
// The returned error is the first failure; a clean shutdown returns nil.
func serve(ctx context.Context, srv *http.Server, worker backgroundWorker, onShutdown func(context.Context), log zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		if onShutdown != nil {
			onShutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}
