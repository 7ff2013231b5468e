package googlechat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/chatrag/source"
	"golang.org/x/time/rate"
	"google.golang.org/api/chat/v1"
	"google.golang.org/api/option"
)

const (
	// DefaultPageSize is the largest page the Chat API returns.
	DefaultPageSize = 1000

	defaultRequestsPerSecond = 5.0
	defaultBurst             = 10
)

// Client lists Google Chat messages. It implements source.MessageSource.
type Client struct {
	svc           *chat.Service
	clientOptions []option.ClientOption
	limiter       *rate.Limiter
	pageSize      int64
	since         time.Time
	logger        *slog.Logger
}

var _ source.MessageSource = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithClientOptions passes options such as option.WithTokenSource to the API client.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) error {
		c.clientOptions = append(c.clientOptions, opts...)
		return nil
	}
}

// WithPageSize sets the page size, capped at DefaultPageSize.
func WithPageSize(size int) Option {
	return func(c *Client) error {
		if size < 1 || size > DefaultPageSize {
			return fmt.Errorf("page size must be between 1 and %d", DefaultPageSize)
		}
		c.pageSize = int64(size)
		return nil
	}
}

// WithSince only lists messages created after t.
func WithSince(t time.Time) Option {
	return func(c *Client) error {
		c.since = t
		return nil
	}
}

// WithRateLimit limits page requests to rps per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) error {
		if rps <= 0 || burst < 1 {
			return fmt.Errorf("invalid rate limit %v/%d", rps, burst)
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger.With("component", "googlechat")
		return nil
	}
}

// NewClient creates a Chat API client.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{
		limiter:  rate.NewLimiter(rate.Limit(defaultRequestsPerSecond), defaultBurst),
		pageSize: DefaultPageSize,
		logger:   slog.Default().With("component", "googlechat"),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	svc, err := chat.NewService(ctx, c.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}
	c.svc = svc
	return c, nil
}

// ListMessages returns every message in space, oldest first.
func (c *Client) ListMessages(ctx context.Context, space string) ([]source.RawMessage, error) {
	if space == "" {
		return nil, ErrSpaceRequired
	}

	call := c.svc.Spaces.Messages.List(space).PageSize(c.pageSize)
	if !c.since.IsZero() {
		call = call.Filter(fmt.Sprintf(`createTime > "%s"`, c.since.UTC().Format(time.RFC3339)))
	}

	var msgs []source.RawMessage
	pages := 0
	err := call.Pages(ctx, func(resp *chat.ListMessagesResponse) error {
		pages++
		for _, m := range resp.Messages {
			msgs = append(msgs, FromAPI(m))
		}
		c.logger.Debug("fetched page", "space", space, "page", pages, "messages", len(resp.Messages))
		if resp.NextPageToken != "" {
			return c.limiter.Wait(ctx)
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	c.logger.Info("listed messages", "space", space, "messages", len(msgs), "pages", pages)
	return msgs, nil
}

// ListSpaces returns the named spaces (not DMs or group chats) visible to the caller.
func (c *Client) ListSpaces(ctx context.Context) ([]source.Space, error) {
	var spaces []source.Space
	err := c.svc.Spaces.List().Filter(`spaceType = "SPACE"`).Pages(ctx, func(resp *chat.ListSpacesResponse) error {
		for _, s := range resp.Spaces {
			spaces = append(spaces, source.Space{Name: s.Name, DisplayName: s.DisplayName})
		}
		if resp.NextPageToken != "" {
			return c.limiter.Wait(ctx)
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return spaces, nil
}

// FromAPI converts an API message into the export format.
func FromAPI(m *chat.Message) source.RawMessage {
	raw := source.RawMessage{
		Name:          m.Name,
		Text:          m.Text,
		FormattedText: m.FormattedText,
		CreateTime:    m.CreateTime,
	}
	if m.Sender != nil {
		raw.Sender = &source.User{Name: m.Sender.Name, DisplayName: m.Sender.DisplayName, Type: m.Sender.Type}
	}
	if m.Space != nil {
		raw.Space = &source.Space{Name: m.Space.Name, DisplayName: m.Space.DisplayName}
	}
	if m.Thread != nil {
		raw.Thread = &source.Thread{Name: m.Thread.Name}
	}
	for _, a := range m.Attachment {
		if a == nil {
			continue
		}
		raw.Attachment = append(raw.Attachment, source.Attachment{
			Name:        a.Name,
			ContentName: a.ContentName,
			ContentType: a.ContentType,
		})
	}
	return raw
}
