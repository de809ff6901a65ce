package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/onnwee/fmmtree/backend/internal/api"
	"github.com/onnwee/fmmtree/backend/internal/logger"
	"github.com/onnwee/fmmtree/backend/internal/metrics"
)

// shutdownTimeout bounds how long in-flight builds get to finish.
const shutdownTimeout = 15 * time.Second

// Server runs the tree API and its background cache-stats collector.
type Server struct {
	http      *http.Server
	collector *metrics.Collector
	release   func()
}

// New wires the router for deps. The metrics collector only runs when
// deps has a cache.
func New(deps api.Deps) *Server {
	handler, release := api.NewRouter(deps)
	s := &Server{
		http: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		release: release,
	}
	if deps.Trees != nil {
		interval := time.Duration(0)
		if deps.Config != nil {
			interval = deps.Config.MetricsInterval
		}
		s.collector = metrics.NewCollector(deps.Trees, interval)
	}
	return s
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.release()
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := logger.WithComponent("server")
	defer s.release()

	g, ctx := errgroup.WithContext(ctx)
	if s.collector != nil {
		g.Go(func() error {
			s.collector.Start(ctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info("server listening", "addr", ln.Addr().String())
		if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		if s.collector != nil {
			s.collector.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down server")
		return s.http.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
