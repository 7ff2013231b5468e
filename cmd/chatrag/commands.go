package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/chatrag"
	"github.com/poiesic/chatrag/config"
	"github.com/poiesic/chatrag/ingestion"
	"github.com/poiesic/chatrag/retrieval"
	"github.com/poiesic/chatrag/server"
	"github.com/poiesic/chatrag/source"
	"github.com/poiesic/chatrag/source/googlechat"
	"github.com/urfave/cli/v2"
	"google.golang.org/api/option"
)

// Shared flags.
var (
	spaceFlag = &cli.StringFlag{
		Name:    "space",
		Aliases: []string{"s"},
		Usage:   "Google Chat space resource name, e.g. spaces/AAAA1234 (default from config)",
	}
	sinceFlag = &cli.TimestampFlag{
		Name:   "since",
		Usage:  "Only fetch messages created after this RFC 3339 time",
		Layout: time.RFC3339,
	}
	resumeFlag = &cli.BoolFlag{
		Name:  "resume",
		Usage: "Skip messages a previous run over the same source already processed",
	}
	batchSizeFlag = &cli.IntFlag{
		Name:  "batch-size",
		Usage: "Messages embedded and stored per batch (default from config)",
	}
	pacingFlag = &cli.DurationFlag{
		Name:  "pacing",
		Usage: "Pause between batches (default from config)",
	}
	progressFlag = &cli.BoolFlag{
		Name:  "progress",
		Usage: "Print a progress line to stderr",
	}
)

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "Ingest a JSON message export",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			resumeFlag, batchSizeFlag, pacingFlag, progressFlag,
			&cli.StringFlag{
				Name:  "source-key",
				Usage: "Checkpoint key for this input (default file:<absolute path>)",
			},
		},
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return errors.New("an export file is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			applyIngestFlags(c, cfg)

			return withPipeline(c, cfg, func(p *ingestion.Pipeline) (*ingestion.Report, error) {
				return p.IngestFile(c.Context, path, &ingestion.IngestOptions{
					SourceKey: c.String("source-key"),
					Resume:    c.Bool("resume"),
				})
			})
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch messages from a Google Chat space and ingest them",
		Flags: []cli.Flag{spaceFlag, sinceFlag, resumeFlag, batchSizeFlag, pacingFlag, progressFlag},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			applyIngestFlags(c, cfg)

			space := spaceName(c, cfg)
			if space == "" {
				return googlechat.ErrSpaceRequired
			}
			client, err := newChatClient(c, cfg)
			if err != nil {
				return err
			}

			return withPipeline(c, cfg, func(p *ingestion.Pipeline) (*ingestion.Report, error) {
				return p.IngestSource(c.Context, client, space, &ingestion.IngestOptions{Resume: c.Bool("resume")})
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the messages of a Google Chat space to a JSON file that ingest accepts",
		Flags: []cli.Flag{
			spaceFlag, sinceFlag,
			&cli.StringFlag{
				Name:     "output",
				Aliases:  []string{"o"},
				Usage:    "Path of the JSON file to write",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			space := spaceName(c, cfg)
			if space == "" {
				return googlechat.ErrSpaceRequired
			}
			client, err := newChatClient(c, cfg)
			if err != nil {
				return err
			}

			msgs, err := client.ListMessages(c.Context, space)
			if err != nil {
				return err
			}
			if err := source.WriteFile(c.String("output"), msgs); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Wrote %d messages to %s\n", len(msgs), c.String("output"))
			return nil
		},
	}
}

func spacesCommand() *cli.Command {
	return &cli.Command{
		Name:  "spaces",
		Usage: "List the Google Chat spaces the token can read",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			client, err := newChatClient(c, cfg)
			if err != nil {
				return err
			}
			spaces, err := client.ListSpaces(c.Context)
			if err != nil {
				return err
			}
			for _, s := range spaces {
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", s.Name, s.DisplayName)
			}
			return nil
		},
	}
}

func retrieveCommand() *cli.Command {
	return &cli.Command{
		Name:      "retrieve",
		Usage:     "Show the stored messages nearest to a query",
		ArgsUsage: "QUERY...",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "k",
				Aliases: []string{"n"},
				Usage:   "Number of messages to return (default from config)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Print each retrieval stage to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			if query == "" {
				return errors.New("a query is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			return withSystem(c.Context, cfg, func(sys *chatrag.System) error {
				retriever, err := sys.NewRetriever()
				if err != nil {
					return err
				}

				var monitor retrieval.Monitor
				if c.Bool("verbose") {
					monitor = newVerboseMonitor(c.App.ErrWriter)
				}
				bundle := retriever.RetrieveWithMonitor(c.Context, query, c.Int("k"), monitor)
				if bundle.Err != nil {
					return bundle.Err
				}

				fmt.Fprintf(c.App.Writer, "Found %d messages (%s)\n", len(bundle.Items), bundle.Status)
				for i, item := range bundle.Items {
					fmt.Fprintf(c.App.Writer, "%d: [%0.4f] %s\n", i, item.Distance, item.Content)
					if item.URI != "" {
						fmt.Fprintf(c.App.Writer, "   %s\n", item.URI)
					}
				}
				return nil
			})
		},
	}
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question from the stored messages",
		ArgsUsage: "QUESTION...",
		Action: func(c *cli.Context) error {
			question := strings.Join(c.Args().Slice(), " ")
			if question == "" {
				return errors.New("a question is required")
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}

			return withSystem(c.Context, cfg, func(sys *chatrag.System) error {
				answerer, err := sys.NewAnswerer()
				if err != nil {
					return err
				}
				a := answerer.Answer(c.Context, question)
				slog.Debug("answered", "status", a.Status, "context_status", a.Bundle.Status)
				fmt.Fprintln(c.App.Writer, a.Text)
				return nil
			})
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve retrieval and answering over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default from config)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}

			return withSystem(c.Context, cfg, func(sys *chatrag.System) error {
				retriever, err := sys.NewRetriever()
				if err != nil {
					return err
				}
				answerer, err := sys.NewAnswerer()
				if err != nil {
					return err
				}
				srv, err := server.New(retriever, answerer,
					server.WithHealthCheck(sys.DocumentRepository()),
					server.WithRequestTimeout(cfg.Server.WriteTimeout),
					server.WithLogger(slog.Default()))
				if err != nil {
					return err
				}
				return srv.ListenAndServe(c.Context, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
			})
		},
	}
}

func reembedCommand() *cli.Command {
	return &cli.Command{
		Name:  "reembed",
		Usage: "Re-embed every stored message with the configured embedding model",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "batch-size",
				Usage: "Number of documents to process in each batch (default from config)",
			},
			&cli.IntFlag{
				Name:  "max-retries",
				Usage: "Maximum attempts for failed operations (default from config)",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "Base delay for exponential backoff (default from config)",
			},
			&cli.BoolFlag{
				Name:  "normalize",
				Usage: "Scale vectors to unit length",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if err := applyReembedFlags(c, cfg); err != nil {
				return err
			}

			return withSystem(c.Context, cfg, func(sys *chatrag.System) error {
				fmt.Fprintf(c.App.ErrWriter, "Storage backend: %s\n", cfg.Storage.Backend)
				fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.AI.EmbeddingHost)
				fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", cfg.AI.EmbeddingModel)
				fmt.Fprintln(c.App.ErrWriter)

				count, err := sys.NewReembedder(c.App.ErrWriter).Run(c.Context)
				if err != nil {
					return fmt.Errorf("reembedding failed after %d documents: %w", count, err)
				}
				return nil
			})
		},
	}
}

func applyIngestFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("batch-size") {
		cfg.Ingestion.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("pacing") {
		cfg.Ingestion.Pacing = c.Duration("pacing")
	}
}

func applyReembedFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("batch-size") {
		cfg.Reembed.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("max-retries") {
		cfg.Reembed.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		cfg.Reembed.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("normalize") {
		cfg.Reembed.Normalize = c.Bool("normalize")
	}
	return cfg.Validate()
}

func spaceName(c *cli.Context, cfg *config.Config) string {
	if s := c.String("space"); s != "" {
		return s
	}
	return cfg.GoogleChat.Space
}

func newChatClient(c *cli.Context, cfg *config.Config) (*googlechat.Client, error) {
	gc := cfg.GoogleChat
	ts, err := googlechat.TokenSourceFromFiles(c.Context, gc.CredentialsFile, gc.TokenFile)
	if err != nil {
		return nil, err
	}

	opts := []googlechat.Option{
		googlechat.WithClientOptions(option.WithTokenSource(ts)),
		googlechat.WithPageSize(gc.PageSize),
		googlechat.WithRateLimit(gc.RateLimit, 1),
		googlechat.WithLogger(slog.Default()),
	}
	if since := c.Timestamp("since"); since != nil {
		opts = append(opts, googlechat.WithSince(*since))
	}
	return googlechat.NewClient(c.Context, opts...)
}

func withSystem(ctx context.Context, cfg *config.Config, fn func(*chatrag.System) error) error {
	sys, err := chatrag.Open(ctx, cfg, chatrag.WithLogger(slog.Default()))
	if err != nil {
		return err
	}
	defer sys.Close()
	return fn(sys)
}

func withPipeline(c *cli.Context, cfg *config.Config, run func(*ingestion.Pipeline) (*ingestion.Report, error)) error {
	return withSystem(c.Context, cfg, func(sys *chatrag.System) error {
		var opts []ingestion.Option
		if c.Bool("progress") {
			opts = append(opts, ingestion.WithProgress(c.App.ErrWriter))
		}
		pipeline, err := sys.NewIngestionPipeline(opts...)
		if err != nil {
			return err
		}
		defer pipeline.Release()

		report, err := run(pipeline)
		if report != nil {
			printReport(c.App.Writer, report)
		}
		return err
	})
}

func printReport(w io.Writer, r *ingestion.Report) {
	fmt.Fprintf(w, "Messages: %d (skipped %d)\n", r.Messages, r.Skipped)
	fmt.Fprintf(w, "Batches: %d\n", r.Batches)
	fmt.Fprintf(w, "Stored: %d (embedded %d, zero-vector fallbacks %d)\n", r.Stored, r.Embedded, r.Fallbacks)
	fmt.Fprintf(w, "Failed: %d\n", r.Failed)
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  %s\n", f)
	}
	fmt.Fprintf(w, "Elapsed: %s\n", r.Duration.Round(time.Millisecond))
}
