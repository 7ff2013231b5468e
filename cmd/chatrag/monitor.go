package main

import (
	"fmt"
	"io"
	"time"

	"github.com/poiesic/chatrag/core"
)

// verboseMonitor prints retrieval stages with elapsed times.
type verboseMonitor struct {
	w     io.Writer
	start time.Time
}

func newVerboseMonitor(w io.Writer) *verboseMonitor {
	return &verboseMonitor{w: w}
}

func (m *verboseMonitor) Start(query string, k int) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "query: %q (k=%d)\n", query, k)
}

func (m *verboseMonitor) AfterQueryEmbedding(dimensions int, fallback bool) {
	if fallback {
		fmt.Fprintf(m.w, "[%s] query embedding failed\n", m.elapsed())
		return
	}
	fmt.Fprintf(m.w, "[%s] embedded query (%d dimensions)\n", m.elapsed(), dimensions)
}

func (m *verboseMonitor) AfterNearest(neighbors []*core.Neighbor) {
	fmt.Fprintf(m.w, "[%s] nearest search returned %d documents\n", m.elapsed(), len(neighbors))
	for _, n := range neighbors {
		if n == nil || n.Document == nil {
			continue
		}
		fmt.Fprintf(m.w, "    %s  %0.4f\n", n.Document.ID, n.Distance)
	}
}

func (m *verboseMonitor) Finish(bundle core.ContextBundle) {
	fmt.Fprintf(m.w, "[%s] done: %s\n", m.elapsed(), bundle.Status)
}

func (m *verboseMonitor) elapsed() time.Duration {
	return time.Since(m.start).Round(time.Microsecond)
}
