package core

// BundleStatus distinguishes the outcomes of a retrieval.
type BundleStatus int

const (
	// BundleOK means Items holds the nearest documents.
	BundleOK BundleStatus = iota
	// BundleNoDocuments means the store holds no documents at all.
	BundleNoDocuments
	// BundleNoMatches means the store is populated but nothing was returned.
	BundleNoMatches
	// BundleError means retrieval failed; Err carries the detail.
	BundleError
)

// String returns the status name used in logs and API responses.
func (s BundleStatus) String() string {
	switch s {
	case BundleOK:
		return "ok"
	case BundleNoDocuments:
		return "no_documents"
	case BundleNoMatches:
		return "no_matches"
	case BundleError:
		return "error"
	default:
		return "unknown"
	}
}

// ContextItem is one retrieved message.
type ContextItem struct {
	Content  string
	URI      string
	Distance float64
}

// ContextBundle is the result of a retrieval, ordered nearest first.
type ContextBundle struct {
	Status BundleStatus
	Items  []ContextItem
	Err    error
}

// NewContextBundle builds a successful bundle from neighbors, keeping their order.
func NewContextBundle(neighbors []*Neighbor) ContextBundle {
	items := make([]ContextItem, 0, len(neighbors))
	for _, n := range neighbors {
		if n == nil || n.Document == nil {
			continue
		}
		items = append(items, ContextItem{
			Content:  n.Document.Content,
			URI:      n.Document.URI,
			Distance: n.Distance,
		})
	}
	return ContextBundle{Status: BundleOK, Items: items}
}

// ErrorBundle wraps a retrieval failure.
func ErrorBundle(err error) ContextBundle {
	return ContextBundle{Status: BundleError, Err: err}
}

// Empty reports whether the bundle carries no usable context.
func (b ContextBundle) Empty() bool {
	return b.Status != BundleOK || len(b.Items) == 0
}
