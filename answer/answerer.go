package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/chatrag/ai"
	"github.com/poiesic/chatrag/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/poiesic/chatrag/answer")

var (
	// ErrRetrieverRequired is returned when a retriever is not provided.
	ErrRetrieverRequired = errors.New("retriever required")

	// ErrCompletionModelRequired is returned when a completion model is not provided.
	ErrCompletionModelRequired = errors.New("completion model required")
)

// Status says how an Answer was produced.
type Status int

const (
	// StatusAnswered means the model answered from retrieved context.
	StatusAnswered Status = iota
	// StatusNoContext means nothing was retrieved and the model was not called.
	StatusNoContext
	// StatusRetrievalError means retrieval failed.
	StatusRetrievalError
	// StatusGenerationError means the model call failed.
	StatusGenerationError
)

func (s Status) String() string {
	switch s {
	case StatusAnswered:
		return "answered"
	case StatusNoContext:
		return "no_context"
	case StatusRetrievalError:
		return "retrieval_error"
	case StatusGenerationError:
		return "generation_error"
	default:
		return "unknown"
	}
}

// Answer is the reply to a question. Text is always set.
type Answer struct {
	Text   string
	Status Status
	Bundle core.ContextBundle
}

// Retriever supplies context for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) core.ContextBundle
}

// Answerer answers questions from retrieved chat messages.
type Answerer struct {
	retriever Retriever
	model     ai.CompletionModel
	template  Template
	limit     int
	logger    *slog.Logger
}

// Option configures an Answerer.
type Option func(*Answerer) error

// WithDomain sets the specialty named in the prompt.
func WithDomain(domain string) Option {
	return func(a *Answerer) error {
		a.template.Domain = domain
		return nil
	}
}

// WithLimit sets how many messages are retrieved per question.
// Zero uses the retriever's default.
func WithLimit(k int) Option {
	return func(a *Answerer) error {
		a.limit = k
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *Answerer) error {
		if logger == nil {
			logger = slog.Default()
		}
		a.logger = logger.With("component", "answer")
		return nil
	}
}

// NewAnswerer creates an Answerer.
func NewAnswerer(retriever Retriever, model ai.CompletionModel, opts ...Option) (*Answerer, error) {
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if model == nil {
		return nil, ErrCompletionModelRequired
	}

	a := &Answerer{
		retriever: retriever,
		model:     model,
		template:  DefaultTemplate,
		logger:    slog.Default().With("component", "answer"),
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Answer retrieves context for question and asks the model to answer from it.
// Failures are reported in the returned text and Status, never as an error.
func (a *Answerer) Answer(ctx context.Context, question string) Answer {
	ctx, span := tracer.Start(ctx, "answer.Answer")
	defer span.End()

	bundle := a.retriever.Retrieve(ctx, question, a.limit)
	span.SetAttributes(attribute.String("chatrag.bundle.status", bundle.Status.String()))

	switch bundle.Status {
	case core.BundleNoDocuments, core.BundleNoMatches:
		a.logger.Info("no context for question", "status", bundle.Status)
		return Answer{Text: CannotFind + ".", Status: StatusNoContext, Bundle: bundle}
	case core.BundleError:
		span.RecordError(bundle.Err)
		span.SetStatus(codes.Error, "retrieval failed")
		return Answer{
			Text:   fmt.Sprintf("Error performing vector search: %v", bundle.Err),
			Status: StatusRetrievalError,
			Bundle: bundle,
		}
	}

	prompt := a.template.Build(FormatContext(bundle), question)
	a.logger.Debug("generating answer", "context_items", len(bundle.Items), "prompt_length", len(prompt))

	text, err := a.model.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("error generating response", "err", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return Answer{
			Text:   fmt.Sprintf("Error generating response: %v", err),
			Status: StatusGenerationError,
			Bundle: bundle,
		}
	}

	span.AddEvent("answered", trace.WithAttributes(attribute.Int("chatrag.answer.length", len(text))))
	return Answer{Text: text, Status: StatusAnswered, Bundle: bundle}
}
