package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"todo-app-backend/internal/api/middleware"
	"todo-app-backend/internal/queue"
	authsvc "todo-app-backend/internal/service/auth"
	"todo-app-backend/internal/service/todolist"

	"github.com/prometheus/client_golang/prometheus"
)

const shutdownTimeout = 10 * time.Second

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

type Options struct {
	Auth  *authsvc.Service
	Lists *todolist.Service
	CORS  middleware.CORSConfig
	Log   *slog.Logger
	// Registry receives the HTTP metrics. Nil means the process default.
	Registry *prometheus.Registry
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	auth                *authsvc.Service
	lists               *todolist.Service
	cors                middleware.CORSConfig
	log                 *slog.Logger
	routeRegistrars     []RouteRegistrar
	metrics             *metrics

	handlerOnce sync.Once
	handler     http.Handler
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, opts Options, registrars ...RouteRegistrar) *APIServer {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}

	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		auth:                opts.Auth,
		lists:               opts.Lists,
		cors:                opts.CORS,
		log:                 log.With("component", "api"),
		routeRegistrars:     registrars,
		metrics:             newMetrics(opts.Registry, listenAddr, rqm),
	}
}

// Handler returns the instrumented mux with every registrar applied.
func (s *APIServer) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		mux := http.NewServeMux()
		for _, reg := range s.routeRegistrars {
			reg(mux, s)
		}
		mux.Handle("/metrics", s.metrics.metricsHandler())
		s.handler = s.metrics.instrument(mux)
	})
	return s.handler
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *APIServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", "addr", s.listenAddr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

func (s *APIServer) Auth() *authsvc.Service {
	return s.auth
}

func (s *APIServer) Lists() *todolist.Service {
	return s.lists
}

func (s *APIServer) Logger() *slog.Logger {
	return s.log
}

// Authenticated is the bearer-token middleware bound to the auth service.
func (s *APIServer) Authenticated() middleware.Middleware {
	return middleware.Authenticate(s.auth)
}
