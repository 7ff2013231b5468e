package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/chatrag/ai"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/metrics"
	"github.com/poiesic/chatrag/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// DefaultPoolSize matches the default ingestion batch size.
const DefaultPoolSize = 5

var tracer = otel.Tracer("github.com/poiesic/chatrag/embedding")

// Result is the outcome of embedding one text.
// Vector always has the gateway's dimensionality. When Fallback is set,
// Vector is the zero vector and Err says why.
type Result struct {
	Vector   []float32
	Fallback bool
	Err      error
}

// Gateway turns text into fixed-dimension vectors and never fails outright:
// any problem yields the zero vector with Fallback set.
// It is safe for concurrent use.
type Gateway struct {
	embedder  ai.Embedder
	dims      int
	pool      *ants.Pool
	limiter   *rate.Limiter
	attempts  int
	baseDelay time.Duration
	logger    *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway) error

// WithDimensions sets the expected vector length. Default is core.DefaultDimensions.
func WithDimensions(dims int) Option {
	return func(g *Gateway) error {
		if dims <= 0 {
			return core.ErrInvalidDimensions
		}
		g.dims = dims
		return nil
	}
}

// WithPoolSize sets how many embedding calls EmbedMany runs at once.
func WithPoolSize(size int) Option {
	return func(g *Gateway) error {
		if size < 1 {
			return ErrInvalidPoolSize
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if g.pool != nil {
			g.pool.Release()
		}
		g.pool = pool
		return nil
	}
}

// WithRateLimit caps embedder calls at rps per second with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) error {
		if rps <= 0 {
			g.limiter = nil
			return nil
		}
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithRetry retries failed embedder calls with exponential backoff before
// falling back. attempts includes the first call; 1 disables retries.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(g *Gateway) error {
		if attempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		g.attempts = attempts
		g.baseDelay = baseDelay
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		if logger == nil {
			logger = slog.Default()
		}
		g.logger = logger.With("component", "embedding")
		return nil
	}
}

// NewGateway creates a gateway over embedder.
func NewGateway(embedder ai.Embedder, opts ...Option) (*Gateway, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	g := &Gateway{
		embedder: embedder,
		dims:     core.DefaultDimensions,
		attempts: 1,
		logger:   slog.Default().With("component", "embedding"),
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			g.Release()
			return nil, err
		}
	}

	if g.pool == nil {
		pool, err := ants.NewPool(DefaultPoolSize)
		if err != nil {
			return nil, err
		}
		g.pool = pool
	}

	return g, nil
}

// Dimensions returns the length of every vector the gateway produces.
func (g *Gateway) Dimensions() int {
	return g.dims
}

// Release releases the worker pool. The gateway must not be used afterwards.
func (g *Gateway) Release() {
	if g.pool != nil {
		g.pool.Release()
	}
}

// EmbedOne embeds a single text.
func (g *Gateway) EmbedOne(ctx context.Context, text string) Result {
	ctx, span := tracer.Start(ctx, "embedding.EmbedOne",
		trace.WithAttributes(attribute.Int("chatrag.text.length", len(text))))
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return g.fallback(span, metrics.ReasonEmptyText, ErrEmptyText)
	}

	start := time.Now()
	var vector []float32
	err := retry.WithBackoff(ctx, func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
		}
		var err error
		vector, err = g.embedder.EmbedText(ctx, text)
		return err
	}, g.attempts, g.baseDelay)
	metrics.EmbeddingLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return g.fallback(span, metrics.ReasonCanceled, err)
		}
		return g.fallback(span, metrics.ReasonEmbedderError, err)
	}
	if err := core.ValidateDimensions(vector, g.dims); err != nil {
		return g.fallback(span, metrics.ReasonDimensionMismatch, err)
	}

	return Result{Vector: vector}
}

// EmbedMany embeds texts concurrently on the worker pool.
// Results are positionally aligned with texts; one failure never affects another.
func (g *Gateway) EmbedMany(ctx context.Context, texts []string) []Result {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}

	ctx, span := tracer.Start(ctx, "embedding.EmbedMany",
		trace.WithAttributes(attribute.Int("chatrag.batch.size", len(texts))))
	defer span.End()

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		err := g.pool.Submit(func() {
			defer wg.Done()
			results[i] = g.EmbedOne(ctx, text)
		})
		if err != nil {
			wg.Done()
			results[i] = g.fallback(span, metrics.ReasonPoolError, fmt.Errorf("submit embedding task: %w", err))
		}
	}
	wg.Wait()

	return results
}

func (g *Gateway) fallback(span trace.Span, reason string, err error) Result {
	metrics.EmbeddingFallbacks.WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)

	if errors.Is(err, ErrEmptyText) {
		g.logger.Debug("empty text, using zero vector")
	} else {
		g.logger.Warn("embedding failed, using zero vector", "reason", reason, "err", err)
	}

	return Result{
		Vector:   core.ZeroVector(g.dims),
		Fallback: true,
		Err:      err,
	}
}
