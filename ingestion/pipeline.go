package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/embedding"
	"github.com/poiesic/chatrag/progress"
	"github.com/poiesic/chatrag/source"
	"github.com/poiesic/chatrag/storage"
)

const (
	// DefaultBatchSize is the number of messages embedded and stored together.
	DefaultBatchSize = 5

	// DefaultPacing is the pause between batches.
	DefaultPacing = 2 * time.Second
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Pipeline ingests chat messages into a DocumentRepository.
// A Pipeline runs one ingestion at a time; the repository and gateway it
// uses may be shared.
type Pipeline struct {
	repo           storage.DocumentRepository
	gateway        *embedding.Gateway
	normalizer     *source.Normalizer
	checkpoints    storage.CheckpointRepository
	storePool      *ants.Pool
	batchSize      int
	pacing         time.Duration
	upsertAttempts int
	upsertDelay    time.Duration
	progress       io.Writer
	sleep          Sleeper
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets how many messages are processed per batch.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return ErrInvalidBatchSize
		}
		p.batchSize = size
		return nil
	}
}

// WithPacing sets the pause between batches. Default is DefaultPacing.
func WithPacing(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d < 0 {
			return ErrInvalidPacing
		}
		p.pacing = d
		return nil
	}
}

// WithNormalizer sets the message normalizer.
func WithNormalizer(n *source.Normalizer) Option {
	return func(p *Pipeline) error {
		if n != nil {
			p.normalizer = n
		}
		return nil
	}
}

// WithCheckpoints enables checkpointing and resume.
func WithCheckpoints(repo storage.CheckpointRepository) Option {
	return func(p *Pipeline) error {
		p.checkpoints = repo
		return nil
	}
}

// WithUpsertRetry retries failed writes. attempts includes the first try.
// Default is a single attempt.
func WithUpsertRetry(attempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if attempts < 1 {
			attempts = 1
		}
		p.upsertAttempts = attempts
		p.upsertDelay = baseDelay
		return nil
	}
}

// WithPoolSize sets the number of concurrent writers.
// Default is DefaultBatchSize.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.storePool != nil {
			p.storePool.Release()
		}
		p.storePool = pool
		return nil
	}
}

// WithProgress prints a progress line to w after every batch.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithSleeper replaces the function used to pause between batches.
func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) error {
		if s != nil {
			p.sleep = s
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "ingestion")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(repo storage.DocumentRepository, gateway *embedding.Gateway, opts ...Option) (*Pipeline, error) {
	if repo == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	p := &Pipeline{
		repo:           repo,
		gateway:        gateway,
		batchSize:      DefaultBatchSize,
		pacing:         DefaultPacing,
		upsertAttempts: 1,
		sleep:          sleepContext,
		logger:         slog.Default().With("component", "ingestion"),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	if p.normalizer == nil {
		p.normalizer = source.NewNormalizer(source.WithNormalizerLogger(p.logger))
	}
	if p.storePool == nil {
		pool, err := ants.NewPool(DefaultBatchSize)
		if err != nil {
			return nil, err
		}
		p.storePool = pool
	}

	return p, nil
}

// IngestOptions holds optional parameters for ingestion.
type IngestOptions struct {
	// SourceKey names the input for checkpointing, e.g. a file path or space name.
	// Checkpoints are only written when it is set.
	SourceKey string

	// Resume skips messages a previous run over SourceKey already completed.
	Resume bool
}

// Ingest normalizes, embeds and stores msgs in batches.
// The sequence number of each message is its index in msgs, so document IDs
// do not depend on batching or on resuming.
// On cancellation the partial report is returned with ctx.Err().
func (p *Pipeline) Ingest(ctx context.Context, msgs []source.RawMessage, opts *IngestOptions) (*Report, error) {
	if opts == nil {
		opts = &IngestOptions{}
	}

	start, err := p.resumePoint(ctx, opts, len(msgs))
	if err != nil {
		return nil, err
	}

	report := &Report{Messages: len(msgs), Skipped: start}
	began := time.Now()
	defer func() {
		report.Duration = time.Since(began)
	}()

	var tracker *progress.Tracker
	if p.progress != nil {
		tracker = progress.NewTracker(p.progress, len(msgs)-start, p.batchSize, "messages")
		tracker.Start()
	}

	if start > 0 {
		p.logger.Info("resuming ingestion", "source", opts.SourceKey, "from", start)
	}

	// The checkpoint never moves past the first message that could not be
	// written, so a resumed run retries it.
	firstFailed := -1
	for i := start; i < len(msgs); i += p.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		end := min(i+p.batchSize, len(msgs))
		if failed := p.processBatch(ctx, msgs[i:end], i, report); failed >= 0 && firstFailed < 0 {
			firstFailed = failed
		}
		report.Batches++

		next := end
		if firstFailed >= 0 {
			next = firstFailed
		}
		p.saveCheckpoint(context.WithoutCancel(ctx), opts.SourceKey, next)
		if err := ctx.Err(); err != nil {
			return report, err
		}

		p.logger.Info("processed messages", "from", i, "to", end, "total", len(msgs))
		if tracker != nil {
			tracker.Update(end - start)
		}

		if end < len(msgs) {
			if err := p.sleep(ctx, p.pacing); err != nil {
				return report, err
			}
			report.Pauses++
		}
	}

	if tracker != nil {
		tracker.Finish()
	}

	p.logger.Info("ingestion complete",
		"messages", report.Messages,
		"stored", report.Stored,
		"fallbacks", report.Fallbacks,
		"failed", report.Failed,
		"batches", report.Batches)
	return report, nil
}

// IngestFile loads a JSON export and ingests it. Load errors are returned
// before anything is written. The absolute path is the default source key.
func (p *Pipeline) IngestFile(ctx context.Context, path string, opts *IngestOptions) (*Report, error) {
	msgs, err := source.LoadFile(path)
	if err != nil {
		return nil, err
	}

	opts = withDefaultSourceKey(opts, func() string {
		if abs, err := filepath.Abs(path); err == nil {
			return "file:" + abs
		}
		return "file:" + path
	})
	return p.Ingest(ctx, msgs, opts)
}

// IngestSource lists every message of space from src and ingests them.
// The space name is the default source key.
func (p *Pipeline) IngestSource(ctx context.Context, src source.MessageSource, space string, opts *IngestOptions) (*Report, error) {
	if src == nil {
		return nil, ErrMessageSourceRequired
	}
	msgs, err := src.ListMessages(ctx, space)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	opts = withDefaultSourceKey(opts, func() string { return space })
	return p.Ingest(ctx, msgs, opts)
}

// Release releases the writer pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.storePool != nil {
		p.storePool.Release()
	}
}

// resumePoint returns the first sequence to process, within [0, total].
func (p *Pipeline) resumePoint(ctx context.Context, opts *IngestOptions, total int) (int, error) {
	if !opts.Resume {
		return 0, nil
	}
	if p.checkpoints == nil {
		return 0, ErrCheckpointRepositoryRequired
	}
	if opts.SourceKey == "" {
		return 0, ErrSourceKeyRequired
	}

	cp, err := p.checkpoints.LoadCheckpoint(ctx, opts.SourceKey)
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		return 0, nil
	}
	if cp.NextSequence > total {
		p.logger.Warn("checkpoint is past the end of the input", "source", opts.SourceKey, "next", cp.NextSequence, "total", total)
	}
	return min(max(cp.NextSequence, 0), total), nil
}

// saveCheckpoint records progress. A failed save is logged; it only costs
// redoing work on the next resume.
func (p *Pipeline) saveCheckpoint(ctx context.Context, sourceKey string, next int) {
	if p.checkpoints == nil || sourceKey == "" {
		return
	}
	err := p.checkpoints.SaveCheckpoint(ctx, &core.Checkpoint{
		SourceKey:    sourceKey,
		NextSequence: next,
	})
	if err != nil {
		p.logger.Warn("error saving checkpoint", "source", sourceKey, "next", next, "err", err)
	}
}

func withDefaultSourceKey(opts *IngestOptions, key func() string) *IngestOptions {
	if opts == nil {
		return &IngestOptions{SourceKey: key()}
	}
	if opts.SourceKey != "" {
		return opts
	}
	copied := *opts
	copied.SourceKey = key()
	return &copied
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
