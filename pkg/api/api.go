package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/querylabs/querybench/pkg/config"
	"github.com/querylabs/querybench/pkg/history"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the run history over HTTP.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

// Compile-time interface check.
var _ Server = (*server)(nil)

type server struct {
	log        logrus.FieldLogger
	cfg        *config.APIConfig
	store      history.Store
	httpServer *http.Server
	group      *errgroup.Group
}

// NewServer creates a history API server over the given store.
func NewServer(
	log logrus.FieldLogger,
	cfg *config.APIConfig,
	store history.Store,
) Server {
	return &server{
		log:   log.WithField("component", "api"),
		cfg:   cfg,
		store: store,
	}
}

// Start begins serving requests in the background.
func (s *server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.group, _ = errgroup.WithContext(ctx)
	s.group.Go(func() error {
		s.log.WithField("listen", s.cfg.Listen).Info("History API listening")

		if err := s.httpServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving history api: %w", err)
		}

		return nil
	})

	return nil
}

// Stop shuts the HTTP server down gracefully, bounded by shutdownTimeout.
func (s *server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down history api: %w", err)
	}

	if err := s.group.Wait(); err != nil {
		return err
	}

	s.log.Debug("History API stopped")

	return nil
}
