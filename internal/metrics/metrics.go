package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics is safe to use through a nil pointer; every method is then a no-op.
type Metrics struct {
	EventsObserved *prometheus.CounterVec
	Transactions   *prometheus.CounterVec
	ConfirmSeconds prometheus.Histogram

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		EventsObserved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenfactory_events_observed_total",
			Help: "Contract events decoded by the listener",
		}, []string{"event"}),
		Transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tokenfactory_transactions_total",
			Help: "Transactions submitted, by method and outcome",
		}, []string{"method", "status"}),
		ConfirmSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokenfactory_transaction_confirm_seconds",
			Help:    "Time from submission to receipt",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.EventsObserved, m.Transactions, m.ConfirmSeconds)
	return m
}

func (m *Metrics) Event(name string) {
	if m == nil {
		return
	}
	m.EventsObserved.WithLabelValues(name).Inc()
}

func (m *Metrics) Transaction(method, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.Transactions.WithLabelValues(method, status).Inc()
	if status == "ok" {
		m.ConfirmSeconds.Observe(took.Seconds())
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *logrus.Entry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
