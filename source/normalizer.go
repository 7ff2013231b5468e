package source

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/poiesic/chatrag/core"
)

// DefaultHost is the chat web host used for derived deep links.
const DefaultHost = "chat.google.com"

// resourceNamePattern matches spaces/{space}/messages/{thread}.{message}.
var resourceNamePattern = regexp.MustCompile(`^spaces/([^/]+)/messages/([^/.]+)\.([^/.]+)$`)

// Normalizer converts RawMessages into IngestRecords.
// It is stateless and safe for concurrent use.
type Normalizer struct {
	host   string
	logger *slog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithHost sets the host used in derived deep links.
func WithHost(host string) NormalizerOption {
	return func(n *Normalizer) {
		if host != "" {
			n.host = host
		}
	}
}

// WithNormalizerLogger sets a custom logger.
// Default is slog.Default().
func WithNormalizerLogger(logger *slog.Logger) NormalizerOption {
	return func(n *Normalizer) {
		if logger == nil {
			logger = slog.Default()
		}
		n.logger = logger.With("component", "normalizer")
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{
		host:   DefaultHost,
		logger: slog.Default().With("component", "normalizer"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize builds the canonical record for msg at absolute position seq.
// It never fails; an underivable URI is logged and left empty.
func (n *Normalizer) Normalize(msg RawMessage, seq int) core.IngestRecord {
	record := core.IngestRecord{
		URI:      msg.URI,
		Sequence: seq,
		Content:  Content(msg),
		Metadata: core.Metadata{
			Source:    core.SourceGoogleChat,
			Timestamp: msg.CreateTime,
		},
	}
	if msg.Sender != nil {
		record.Metadata.Sender = msg.Sender.Name
	}
	if msg.Space != nil {
		record.Metadata.Space = msg.Space.Name
	}

	if record.URI == "" {
		uri, err := n.DeepLink(msg.Name)
		if err != nil {
			n.logger.Warn("could not derive message uri", "sequence", seq, "err", err)
		}
		record.URI = uri
	}

	return record
}

// DeepLink converts a message resource name into a web URL.
func (n *Normalizer) DeepLink(name string) (string, error) {
	m := resourceNamePattern.FindStringSubmatch(name)
	if m == nil {
		return "", fmt.Errorf("unrecognized message resource name %q", name)
	}
	return fmt.Sprintf("https://%s/room/%s/%s/%s", n.host, m[1], m[2], m[3]), nil
}

// Content picks the text to embed: formatted text, then plain text, then the
// first attachment's display name.
func Content(msg RawMessage) string {
	switch {
	case msg.FormattedText != "":
		return msg.FormattedText
	case msg.Text != "":
		return msg.Text
	case len(msg.Attachment) > 0:
		return msg.Attachment[0].ContentName
	default:
		return ""
	}
}
