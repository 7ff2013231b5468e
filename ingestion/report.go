package ingestion

import (
	"fmt"
	"time"
)

// Stage names the step at which an item failed.
type Stage string

const (
	StageEmbed Stage = "embed"
	StageStore Stage = "store"
)

// ItemFailure describes one message that fell back or could not be written.
type ItemFailure struct {
	Sequence   int
	DocumentID string
	Stage      Stage
	Err        error
}

func (f ItemFailure) String() string {
	return fmt.Sprintf("message %d (%s) failed at %s: %v", f.Sequence, f.DocumentID, f.Stage, f.Err)
}

// Report summarizes an ingestion run. On cancellation it covers the batches
// processed before the run stopped.
type Report struct {
	Messages  int // Messages in the input
	Skipped   int // Messages skipped because a checkpoint showed them done
	Batches   int
	Pauses    int
	Embedded  int // Messages embedded without fallback
	Fallbacks int // Messages stored with the zero vector
	Stored    int
	Failed    int // Messages that could not be written
	Failures  []ItemFailure
	Duration  time.Duration
}

// Processed returns how many messages went through a batch.
func (r *Report) Processed() int {
	return r.Stored + r.Failed
}
