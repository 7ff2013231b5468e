// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chatrag wires storage, the AI provider and the embedding gateway
// into ingestion, retrieval, answering and re-embedding.
package chatrag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/chatrag/ai"
	"github.com/poiesic/chatrag/ai/openai"
	"github.com/poiesic/chatrag/answer"
	"github.com/poiesic/chatrag/config"
	"github.com/poiesic/chatrag/embedding"
	"github.com/poiesic/chatrag/ingestion"
	"github.com/poiesic/chatrag/reembed"
	"github.com/poiesic/chatrag/retrieval"
	"github.com/poiesic/chatrag/source"
	"github.com/poiesic/chatrag/storage"
	"github.com/poiesic/chatrag/storage/badger"
	"github.com/poiesic/chatrag/storage/firestore"
	"github.com/poiesic/chatrag/storage/postgres"
	"google.golang.org/api/option"
)

var (
	// ErrDocumentRepositoryRequired is returned when a document repository is not provided.
	ErrDocumentRepositoryRequired = errors.New("document repository required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrUnknownBackend is returned for an unrecognized storage backend.
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// System owns the document store, the AI provider and the single embedding
// gateway shared by ingestion and retrieval, so both sides always produce
// vectors of the same model and dimensionality.
type System struct {
	docs          storage.DocumentRepository
	checkpoints   storage.CheckpointRepository
	provider      ai.AIProvider
	gateway       *embedding.Gateway
	gatewayOpts   []embedding.Option
	ingestOpts    []ingestion.Option
	retrieveOpts  []retrieval.Option
	answerOpts    []answer.Option
	reembedConfig *reembed.Config
	closers       []func() error
	logger        *slog.Logger
}

// Option configures a System.
type Option func(*System) error

// WithCheckpointRepository enables ingestion checkpoints.
func WithCheckpointRepository(repo storage.CheckpointRepository) Option {
	return func(s *System) error {
		s.checkpoints = repo
		return nil
	}
}

// WithGatewayOptions configures the shared embedding gateway.
func WithGatewayOptions(opts ...embedding.Option) Option {
	return func(s *System) error {
		s.gatewayOpts = append(s.gatewayOpts, opts...)
		return nil
	}
}

// WithIngestionOptions sets defaults for every pipeline the System creates.
func WithIngestionOptions(opts ...ingestion.Option) Option {
	return func(s *System) error {
		s.ingestOpts = append(s.ingestOpts, opts...)
		return nil
	}
}

// WithRetrievalOptions sets defaults for every retriever the System creates.
func WithRetrievalOptions(opts ...retrieval.Option) Option {
	return func(s *System) error {
		s.retrieveOpts = append(s.retrieveOpts, opts...)
		return nil
	}
}

// WithAnswerOptions sets defaults for every answerer the System creates.
func WithAnswerOptions(opts ...answer.Option) Option {
	return func(s *System) error {
		s.answerOpts = append(s.answerOpts, opts...)
		return nil
	}
}

// WithReembedConfig sets the re-embedding configuration.
func WithReembedConfig(cfg *reembed.Config) Option {
	return func(s *System) error {
		s.reembedConfig = cfg
		return nil
	}
}

// WithCloser registers fn to run on Close after the repository is closed.
func WithCloser(fn func() error) Option {
	return func(s *System) error {
		if fn != nil {
			s.closers = append(s.closers, fn)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *System) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New assembles a System from an open repository and provider.
// The System takes ownership of both.
func New(docs storage.DocumentRepository, provider ai.AIProvider, opts ...Option) (*System, error) {
	if docs == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}

	s := &System{
		docs:     docs,
		provider: provider,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	gatewayOpts := append([]embedding.Option{embedding.WithLogger(s.logger)}, s.gatewayOpts...)
	gateway, err := embedding.NewGateway(provider.Embedder(), gatewayOpts...)
	if err != nil {
		return nil, fmt.Errorf("create embedding gateway: %w", err)
	}
	s.gateway = gateway

	return s, nil
}

// Open opens the configured backend and provider and assembles a System.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*System, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger := slog.Default()

	provider, err := openai.NewProvider(cfg.ProviderConfig())
	if err != nil {
		return nil, fmt.Errorf("create AI provider: %w", err)
	}

	docs, checkpoints, closer, err := openStorage(ctx, cfg, logger)
	if err != nil {
		provider.Close()
		return nil, err
	}

	base := []Option{
		WithCheckpointRepository(checkpoints),
		WithCloser(closer),
		WithGatewayOptions(
			embedding.WithDimensions(cfg.AI.Dimensions),
			embedding.WithPoolSize(cfg.Ingestion.PoolSize),
			embedding.WithRateLimit(cfg.AI.EmbedRateLimit, 1),
			embedding.WithRetry(cfg.AI.EmbedRetries, cfg.AI.EmbedRetryWait),
		),
		WithIngestionOptions(
			ingestion.WithBatchSize(cfg.Ingestion.BatchSize),
			ingestion.WithPacing(cfg.Ingestion.Pacing),
			ingestion.WithPoolSize(cfg.Ingestion.PoolSize),
			ingestion.WithUpsertRetry(cfg.Ingestion.UpsertRetries, cfg.Ingestion.UpsertRetryDelay),
		),
		WithRetrievalOptions(
			retrieval.WithDistanceMeasure(cfg.DistanceMeasure()),
			retrieval.WithDefaultLimit(cfg.Retrieval.Limit),
		),
		WithReembedConfig(&reembed.Config{
			BatchSize:      cfg.Reembed.BatchSize,
			ReportInterval: cfg.Reembed.BatchSize,
			MaxRetries:     cfg.Reembed.MaxRetries,
			RetryDelay:     cfg.Reembed.RetryDelay,
			Dimensions:     cfg.AI.Dimensions,
			Normalize:      cfg.Reembed.Normalize,
		}),
	}
	if cfg.Ingestion.Host != "" {
		base = append(base, WithIngestionOptions(ingestion.WithNormalizer(
			source.NewNormalizer(source.WithHost(cfg.Ingestion.Host), source.WithNormalizerLogger(logger)))))
	}
	if cfg.Retrieval.Domain != "" {
		base = append(base, WithAnswerOptions(answer.WithDomain(cfg.Retrieval.Domain)))
	}

	s, err := New(docs, provider, append(base, opts...)...)
	if err != nil {
		provider.Close()
		docs.Close()
		if closer != nil {
			closer()
		}
		return nil, err
	}

	s.logger.Info("opened store", "backend", cfg.Storage.Backend, "dimensions", cfg.AI.Dimensions)
	return s, nil
}

// openStorage returns the repositories for cfg.Storage.Backend and an extra
// closer for resources the document repository does not own.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.DocumentRepository, storage.CheckpointRepository, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		backend, err := badger.OpenBackend(cfg.Storage.Badger.Path, false)
		if err != nil {
			return nil, nil, nil, err
		}
		docs, err := badger.NewDocumentRepository(backend)
		if err != nil {
			backend.Close()
			return nil, nil, nil, err
		}
		return docs, badger.NewCheckpointRepository(backend), backend.Close, nil

	case config.BackendFirestore:
		fc := cfg.Storage.Firestore
		var clientOpts []option.ClientOption
		if fc.CredentialsFile != "" {
			clientOpts = append(clientOpts, option.WithCredentialsFile(fc.CredentialsFile))
		}
		client, err := firestore.Connect(ctx, fc.Project, fc.Database, clientOpts...)
		if err != nil {
			return nil, nil, nil, err
		}
		storeOpts := []firestore.Option{firestore.WithLogger(logger)}
		if fc.Collection != "" {
			storeOpts = append(storeOpts, firestore.WithCollection(fc.Collection))
		}
		if fc.CheckpointCollection != "" {
			storeOpts = append(storeOpts, firestore.WithCheckpointCollection(fc.CheckpointCollection))
		}
		docs, err := firestore.NewDocumentRepository(client, storeOpts...)
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		checkpoints, err := firestore.NewCheckpointRepository(client, storeOpts...)
		if err != nil {
			client.Close()
			return nil, nil, nil, err
		}
		return docs, checkpoints, nil, nil

	case config.BackendPostgres:
		pc := cfg.Storage.Postgres
		db, err := postgres.Connect(ctx, pc.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		storeOpts := []postgres.Option{postgres.WithLogger(logger)}
		if pc.DocumentsTable != "" {
			storeOpts = append(storeOpts, postgres.WithDocumentsTable(pc.DocumentsTable))
		}
		if pc.CheckpointsTable != "" {
			storeOpts = append(storeOpts, postgres.WithCheckpointsTable(pc.CheckpointsTable))
		}
		if err := postgres.EnsureSchema(ctx, db, storeOpts...); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		docs, err := postgres.NewDocumentRepository(db, storeOpts...)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		checkpoints, err := postgres.NewCheckpointRepository(db, storeOpts...)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		return docs, checkpoints, nil, nil

	default:
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Storage.Backend)
	}
}

// Close releases the gateway, the provider and the store.
func (s *System) Close() error {
	s.gateway.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	var errs []error
	if err := s.docs.Close(); err != nil {
		s.logger.Error("error closing document repository", "err", err)
		errs = append(errs, err)
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.Error("error closing backend storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DocumentRepository returns the document store.
func (s *System) DocumentRepository() storage.DocumentRepository {
	return s.docs
}

// CheckpointRepository returns the checkpoint store, or nil if none was configured.
func (s *System) CheckpointRepository() storage.CheckpointRepository {
	return s.checkpoints
}

// Gateway returns the shared embedding gateway.
func (s *System) Gateway() *embedding.Gateway {
	return s.gateway
}

// NewIngestionPipeline creates a pipeline over the shared gateway.
// The caller must Release it.
func (s *System) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	all := []ingestion.Option{ingestion.WithLogger(s.logger)}
	if s.checkpoints != nil {
		all = append(all, ingestion.WithCheckpoints(s.checkpoints))
	}
	all = append(all, s.ingestOpts...)
	return ingestion.NewPipeline(s.docs, s.gateway, append(all, opts...)...)
}

// NewRetriever creates a retriever over the shared gateway.
func (s *System) NewRetriever(opts ...retrieval.Option) (*retrieval.Retriever, error) {
	all := append([]retrieval.Option{retrieval.WithLogger(s.logger)}, s.retrieveOpts...)
	return retrieval.NewRetriever(s.docs, s.gateway, append(all, opts...)...)
}

// NewAnswerer creates an answerer backed by a new retriever and the
// provider's completion model.
func (s *System) NewAnswerer(opts ...answer.Option) (*answer.Answerer, error) {
	retriever, err := s.NewRetriever()
	if err != nil {
		return nil, err
	}
	all := append([]answer.Option{answer.WithLogger(s.logger)}, s.answerOpts...)
	return answer.NewAnswerer(retriever, s.provider.CompletionModel(), append(all, opts...)...)
}

// NewReembedder creates a reembedder that writes progress to w.
func (s *System) NewReembedder(w io.Writer) *reembed.Reembedder {
	cfg := s.reembedConfig
	if cfg == nil {
		cfg = reembed.DefaultConfig()
		cfg.Dimensions = s.gateway.Dimensions()
	}
	return reembed.NewReembedder(s.docs, s.provider.Embedder(), cfg, w)
}
