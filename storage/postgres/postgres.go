package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	// DefaultDocumentsTable is the table holding stored documents.
	DefaultDocumentsTable = "chat_documents"
	// DefaultCheckpointsTable is the table holding ingestion checkpoints.
	DefaultCheckpointsTable = "chat_checkpoints"
)

var (
	// ErrDBRequired indicates a nil *sql.DB was supplied.
	ErrDBRequired = errors.New("database handle is required")
	// ErrInvalidTableName indicates a table name that is not a plain SQL identifier.
	ErrInvalidTableName = errors.New("invalid table name")
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Option configures the postgres repositories.
type Option func(*settings) error

type settings struct {
	documentsTable   string
	checkpointsTable string
	logger           *slog.Logger
}

func defaultSettings() *settings {
	return &settings{
		documentsTable:   DefaultDocumentsTable,
		checkpointsTable: DefaultCheckpointsTable,
		logger:           slog.Default().With("component", "postgres"),
	}
}

func applyOptions(opts []Option) (*settings, error) {
	s := defaultSettings()
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithDocumentsTable overrides the documents table name.
func WithDocumentsTable(name string) Option {
	return func(s *settings) error {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
		s.documentsTable = name
		return nil
	}
}

// WithCheckpointsTable overrides the checkpoints table name.
func WithCheckpointsTable(name string) Option {
	return func(s *settings) error {
		if !identifierPattern.MatchString(name) {
			return fmt.Errorf("%w: %q", ErrInvalidTableName, name)
		}
		s.checkpointsTable = name
		return nil
	}
}

// WithLogger sets a custom logger. If nil, uses slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "postgres")
		return nil
	}
}

// Connect opens a connection pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the pgvector extension and both tables if missing.
// The embedding column is dimensionless so documents of different
// dimensionality can coexist; queries filter on vector_dims.
func EnsureSchema(ctx context.Context, db *sql.DB, opts ...Option) error {
	if db == nil {
		return ErrDBRequired
	}
	s, err := applyOptions(opts)
	if err != nil {
		return err
	}

	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			uri TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			msg_timestamp TEXT NOT NULL DEFAULT '',
			sender TEXT NOT NULL DEFAULT '',
			space TEXT NOT NULL DEFAULT '',
			embedding vector NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`, s.documentsTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			source_key TEXT PRIMARY KEY,
			next_sequence INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`, s.checkpointsTable),
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	s.logger.Info("schema ready", "documents_table", s.documentsTable, "checkpoints_table", s.checkpointsTable)
	return nil
}
