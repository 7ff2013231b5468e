// Package metrics holds the Prometheus collectors shared by the pipeline,
// retrieval and HTTP layers.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

// Fallback reasons for EmbeddingFallbacks.
const (
	ReasonEmptyText         = "empty_text"
	ReasonEmbedderError     = "embedder_error"
	ReasonDimensionMismatch = "dimension_mismatch"
	ReasonCanceled          = "canceled"
	ReasonPoolError         = "pool_error"
)

// Ingestion results for IngestedDocuments.
const (
	ResultStored   = "stored"
	ResultFallback = "fallback"
	ResultFailed   = "failed"
)

var (
	EmbeddingFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrag_embedding_fallbacks_total",
			Help: "Embedding calls that fell back to the zero vector, by reason",
		},
		[]string{"reason"},
	)
	EmbeddingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatrag_embedding_duration_seconds",
			Help:    "Latency of single embedding calls in seconds, including retries",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		},
	)
	IngestedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrag_ingested_documents_total",
			Help: "Messages processed by ingestion, by result",
		},
		[]string{"result"},
	)
	IngestBatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatrag_ingest_batch_duration_seconds",
			Help:    "Time to normalize, embed and store one batch, excluding pacing",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
	Retrievals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrag_retrievals_total",
			Help: "Retrieval requests by bundle status",
		},
		[]string{"status"},
	)
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrag_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"route", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		EmbeddingFallbacks,
		EmbeddingLatency,
		IngestedDocuments,
		IngestBatchDuration,
		Retrievals,
		HTTPRequests,
	)
}
