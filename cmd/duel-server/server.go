package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/V3RSE-RKZA/biolast-sub000/internal/config"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/constants"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/logging"
	"github.com/V3RSE-RKZA/biolast-sub000/internal/service"
)

const shutdownTimeout = 15 * time.Second

// run serves HTTP and sweeps orphaned duels until ctx is done, then drains
// the server and the running sessions.
func run(ctx context.Context, cfg *config.Server, handler http.Handler, mgr *service.Manager) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("Server started", logging.Fields{constants.LogFieldAddr: cfg.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return mgr.RunSweeper(gctx, cfg.SweepInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// sessions are cancelled only after no new request can reach them
		mgr.Close()
		return err
	})
	return g.Wait()
}
