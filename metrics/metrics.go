// Package metrics exposes prometheus collectors for rule handling, the
// evaluation pipeline and the HTTP API.
//
// A nil *Collector is valid and records nothing, so components can take an
// optional collector without checks at every call site.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	// Addr is where the engine binary serves /metrics. The API server
	// serves it on its own address.
	Addr string `yaml:"addr"`
}

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"

	ResultMatched   = "matched"
	ResultUnmatched = "unmatched"
	ResultError     = "error"
)

// Collector owns the registry and every metric.
//
// Metrics:
//   - rules_parsed_total: rule texts parsed, by outcome
//   - rules_stored_total: rules written to the rule store, by kind (single, combined)
//   - rule_evaluations_total: evaluations by rule and result
//   - rule_evaluation_duration_seconds: evaluation latency by rule
//   - records_processed_total: decoded records by source and outcome
//   - verdict_flushes_total: verdict storage flushes by outcome
//   - http_request_duration_seconds: API latency by route, method and status
type Collector struct {
	registry *prometheus.Registry

	rulesParsed        *prometheus.CounterVec
	rulesStored        *prometheus.CounterVec
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	recordsProcessed   *prometheus.CounterVec
	verdictFlushes     *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewCollector creates and registers every metric. If registry is nil a new
// one is created with the go and process collectors.
func NewCollector(cfg Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "rulezilla"
	}

	c := &Collector{
		registry: registry,

		rulesParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rules_parsed_total",
				Help:      "Total number of rule texts parsed",
			},
			[]string{"outcome"},
		),

		rulesStored: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rules_stored_total",
				Help:      "Total number of rules written to the rule store",
			},
			[]string{"kind"},
		),

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_evaluations_total",
				Help:      "Total number of rule evaluations",
			},
			[]string{"rule", "result"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_evaluation_duration_seconds",
				Help:      "Duration of rule evaluation in seconds",
				// Tree walks over small records take microseconds.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"rule"},
		),

		recordsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "records_processed_total",
				Help:      "Total number of records decoded by the pipeline",
			},
			[]string{"source", "outcome"},
		),

		verdictFlushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "verdict_flushes_total",
				Help:      "Total number of verdict storage flushes",
			},
			[]string{"outcome"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
	}

	registry.MustRegister(
		c.rulesParsed,
		c.rulesStored,
		c.evaluationsTotal,
		c.evaluationDuration,
		c.recordsProcessed,
		c.verdictFlushes,
		c.httpDuration,
	)

	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Serve exposes /metrics on addr until ctx is done.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *Collector) RecordParse(err error) {
	if c == nil {
		return
	}
	c.rulesParsed.WithLabelValues(outcome(err)).Inc()
}

func (c *Collector) RecordStored(kind string) {
	if c == nil {
		return
	}
	c.rulesStored.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordEvaluation(rule string, matched bool, err error, duration time.Duration) {
	if c == nil {
		return
	}

	result := ResultUnmatched
	switch {
	case err != nil:
		result = ResultError
	case matched:
		result = ResultMatched
	}

	c.evaluationsTotal.WithLabelValues(rule, result).Inc()
	c.evaluationDuration.WithLabelValues(rule).Observe(duration.Seconds())
}

func (c *Collector) RecordProcessed(source string, err error) {
	if c == nil {
		return
	}
	c.recordsProcessed.WithLabelValues(source, outcome(err)).Inc()
}

func (c *Collector) RecordFlush(err error) {
	if c == nil {
		return
	}
	c.verdictFlushes.WithLabelValues(outcome(err)).Inc()
}

func (c *Collector) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
