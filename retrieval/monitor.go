package retrieval

import "github.com/poiesic/chatrag/core"

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to trace intermediate steps, e.g. in a verbose CLI.
type Monitor interface {
	Start(query string, k int)
	AfterQueryEmbedding(dimensions int, fallback bool)
	AfterNearest(neighbors []*core.Neighbor)
	Finish(bundle core.ContextBundle)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ int)             {}
func (n *noopMonitor) AfterQueryEmbedding(_ int, _ bool) {}
func (n *noopMonitor) AfterNearest(_ []*core.Neighbor)   {}
func (n *noopMonitor) Finish(_ core.ContextBundle)       {}
