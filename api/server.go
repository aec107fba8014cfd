package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/thisisjab/rulezilla/metrics"
	"github.com/thisisjab/rulezilla/rule"
	"github.com/thisisjab/rulezilla/storage"
)

// Services are the dependencies handlers use.
type Services struct {
	RuleStore storage.RuleStore
	// Metrics is optional. When set, /metrics is served.
	Metrics *metrics.Collector
}

type server struct {
	cfg      Config
	logger   *slog.Logger
	engine   *rule.Engine
	services Services
}

func NewServer(cfg Config, logger *slog.Logger, services Services) (*server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if services.RuleStore == nil {
		return nil, errors.New("rule store is required")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &server{
		cfg:      cfg,
		logger:   logger,
		engine:   rule.NewEngine(logger),
		services: services,
	}, nil
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/healthcheck", s.healthCheckHandler)

	mux.HandleFunc("POST /api/rules", s.createRuleHandler)
	mux.HandleFunc("GET /api/rules", s.listRulesHandler)
	mux.HandleFunc("GET /api/rules/{name}", s.getRuleHandler)
	mux.HandleFunc("DELETE /api/rules/{name}", s.deleteRuleHandler)
	mux.HandleFunc("POST /api/rules/combine", s.combineRulesHandler)
	mux.HandleFunc("POST /api/rules/combine/preview", s.previewCombineHandler)
	mux.HandleFunc("POST /api/evaluate", s.evaluateRuleHandler)

	if s.services.Metrics != nil {
		mux.Handle("GET /metrics", s.services.Metrics.Handler())
	}

	return s.recoverPanicMiddleware(s.requestLoggerMiddleware(s.metricsMiddleware(s.corsMiddleware(mux))))
}

func (s *server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server", "addr", s.cfg.Addr)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.shutdownTimeout())
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shutdown server", "addr", s.cfg.Addr, "error", err)
		}
	}()

	var serverErr error
	if s.cfg.CertFile != "" && s.cfg.KeyFile != "" {
		s.logger.Info("starting server with TLS", "addr", s.cfg.Addr)
		serverErr = srv.ListenAndServeTLS(s.cfg.CertFile, s.cfg.KeyFile)
	} else {
		s.logger.Info("starting server without TLS", "addr", s.cfg.Addr)
		serverErr = srv.ListenAndServe()
	}

	if serverErr != nil && !errors.Is(serverErr, http.ErrServerClosed) {
		return serverErr
	}

	return nil
}
