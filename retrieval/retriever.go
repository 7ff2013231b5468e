package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/embedding"
	"github.com/poiesic/chatrag/metrics"
	"github.com/poiesic/chatrag/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLimit is the number of neighbors returned when the caller passes k <= 0.
const DefaultLimit = 5

var tracer = otel.Tracer("github.com/poiesic/chatrag/retrieval")

// Retriever answers nearest-neighbor questions over stored chat messages.
type Retriever struct {
	repo         storage.DocumentRepository
	gateway      *embedding.Gateway
	measure      core.DistanceMeasure
	defaultLimit int
	logger       *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithDistanceMeasure sets the measure used for Nearest. Default is core.Euclidean.
func WithDistanceMeasure(measure core.DistanceMeasure) Option {
	return func(r *Retriever) error {
		if _, err := core.ParseDistanceMeasure(measure.String()); err != nil {
			return err
		}
		r.measure = measure
		return nil
	}
}

// WithDefaultLimit sets the k used when Retrieve is called with k <= 0.
func WithDefaultLimit(k int) Option {
	return func(r *Retriever) error {
		if k < 1 {
			return ErrInvalidLimit
		}
		r.defaultLimit = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "retrieval")
		return nil
	}
}

// NewRetriever creates a new retriever. gateway must be the one used to
// ingest the documents in repo.
func NewRetriever(repo storage.DocumentRepository, gateway *embedding.Gateway, opts ...Option) (*Retriever, error) {
	if repo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	r := &Retriever{
		repo:         repo,
		gateway:      gateway,
		measure:      core.Euclidean,
		defaultLimit: DefaultLimit,
		logger:       slog.Default().With("component", "retrieval"),
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Retrieve returns up to k stored messages nearest to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) core.ContextBundle {
	return r.RetrieveWithMonitor(ctx, query, k, nil)
}

// RetrieveWithMonitor is Retrieve with callbacks at each stage.
func (r *Retriever) RetrieveWithMonitor(ctx context.Context, query string, k int, monitor Monitor) core.ContextBundle {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if k <= 0 {
		k = r.defaultLimit
	}

	ctx, span := tracer.Start(ctx, "retrieval.Retrieve",
		trace.WithAttributes(
			attribute.Int("chatrag.k", k),
			attribute.String("chatrag.distance_measure", r.measure.String()),
		))
	defer span.End()

	monitor.Start(query, k)
	bundle := r.retrieve(ctx, query, k, monitor)
	monitor.Finish(bundle)

	metrics.Retrievals.WithLabelValues(bundle.Status.String()).Inc()
	span.SetAttributes(
		attribute.String("chatrag.bundle.status", bundle.Status.String()),
		attribute.Int("chatrag.bundle.items", len(bundle.Items)),
	)
	if bundle.Status == core.BundleError {
		span.RecordError(bundle.Err)
		span.SetStatus(codes.Error, "retrieval failed")
	}
	return bundle
}

func (r *Retriever) retrieve(ctx context.Context, query string, k int, monitor Monitor) core.ContextBundle {
	empty, err := r.repo.IsEmpty(ctx)
	if err != nil {
		r.logger.Error("error checking for stored documents", "err", err)
		return core.ErrorBundle(fmt.Errorf("check store: %w", err))
	}
	if empty {
		r.logger.Debug("no documents stored")
		return core.ContextBundle{Status: core.BundleNoDocuments}
	}

	res := r.gateway.EmbedOne(ctx, query)
	monitor.AfterQueryEmbedding(len(res.Vector), res.Fallback)
	if res.Fallback {
		// A zero query vector would rank documents by norm alone
		r.logger.Error("error generating embedding for query", "err", res.Err)
		return core.ErrorBundle(fmt.Errorf("%w: %w", ErrQueryEmbedding, res.Err))
	}

	neighbors, err := r.repo.Nearest(ctx, res.Vector, k, r.measure)
	if err != nil {
		r.logger.Error("error querying for nearest documents", "err", err)
		return core.ErrorBundle(fmt.Errorf("nearest: %w", err))
	}
	monitor.AfterNearest(neighbors)

	if len(neighbors) == 0 {
		return core.ContextBundle{Status: core.BundleNoMatches}
	}

	r.logger.Debug("retrieved documents", "count", len(neighbors), "k", k)
	return core.NewContextBundle(neighbors)
}

// DistanceMeasure returns the configured measure.
func (r *Retriever) DistanceMeasure() core.DistanceMeasure {
	return r.measure
}
