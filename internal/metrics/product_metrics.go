package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProductsCreated is a Prometheus counter for tracking the total number of products created.
	ProductsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_created_total",
		Help: "The total number of products created",
	})

	// ProductsUpdated is a Prometheus counter for tracking single-product updates.
	ProductsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_updated_total",
		Help: "The total number of products updated one at a time",
	})

	// ProductsDeleted is a Prometheus counter for tracking the total number of products deleted.
	ProductsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "The total number of products deleted",
	})

	// ProductsRepriced counts products updated by exchange rate sweeps.
	ProductsRepriced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_repriced_total",
		Help: "The total number of products repriced by exchange rate sweeps",
	})

	ExchangeRateSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exchange_rate_sweeps_total",
		Help: "The total number of completed exchange rate sweeps",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "exchange_rate_sweep_duration_seconds",
		Help:    "Duration of completed exchange rate sweeps",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	// CurrentExchangeRate is the rate applied to products created without an explicit rate.
	CurrentExchangeRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exchange_rate_current",
		Help: "The exchange rate applied to new products by default",
	})

	// CacheLookups counts barcode cache lookups by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "product_cache_lookups_total",
		Help: "Barcode cache lookups partitioned by result",
	}, []string{"result"})

	// OutboxEvents counts outbox events by final status.
	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by the worker partitioned by status",
	}, []string{"status"})
)
