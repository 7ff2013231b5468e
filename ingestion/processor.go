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


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/poiesic/chatrag/core"
	"github.com/poiesic/chatrag/metrics"
	"github.com/poiesic/chatrag/retry"
	"github.com/poiesic/chatrag/source"
	"github.com/poiesic/chatrag/storage"
)

// processBatch normalizes, embeds and stores one batch. offset is the
// absolute input index of batch[0]. All writes are joined before it returns.
// It returns the lowest sequence that could not be written, or -1.
func (p *Pipeline) processBatch(ctx context.Context, batch []source.RawMessage, offset int, report *Report) int {
	start := time.Now()
	defer func() {
		metrics.IngestBatchDuration.Observe(time.Since(start).Seconds())
	}()

	texts := make([]string, len(batch))
	records := make([]core.EmbeddedRecord, len(batch))
	for i, msg := range batch {
		records[i].IngestRecord = p.normalizer.Normalize(msg, offset+i)
		texts[i] = records[i].Content
	}

	results := p.gateway.EmbedMany(ctx, texts)
	for i, res := range results {
		records[i].Embedding = res.Vector
		records[i].Fallback = res.Fallback
		if res.Fallback {
			report.Fallbacks++
			report.Failures = append(report.Failures, ItemFailure{
				Sequence:   records[i].Sequence,
				DocumentID: records[i].DocumentID(),
				Stage:      StageEmbed,
				Err:        res.Err,
			})
		} else {
			report.Embedded++
		}
	}

	errs := make([]error, len(records))
	var wg sync.WaitGroup
	for i := range records {
		wg.Add(1)
		err := p.storePool.Submit(func() {
			defer wg.Done()
			errs[i] = p.store(ctx, records[i].Document())
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit upsert: %w", err)
		}
	}
	wg.Wait()

	lowestFailed := -1
	for i, err := range errs {
		if err != nil {
			if lowestFailed < 0 {
				lowestFailed = records[i].Sequence
			}
			report.Failed++
			report.Failures = append(report.Failures, ItemFailure{
				Sequence:   records[i].Sequence,
				DocumentID: records[i].DocumentID(),
				Stage:      StageStore,
				Err:        err,
			})
			metrics.IngestedDocuments.WithLabelValues(metrics.ResultFailed).Inc()
			p.logger.Error("error storing document", "sequence", records[i].Sequence, "id", records[i].DocumentID(), "err", err)
			continue
		}
		report.Stored++
		if records[i].Fallback {
			metrics.IngestedDocuments.WithLabelValues(metrics.ResultFallback).Inc()
		} else {
			metrics.IngestedDocuments.WithLabelValues(metrics.ResultStored).Inc()
		}
	}
	return lowestFailed
}

// store validates and upserts doc, retrying transient failures.
func (p *Pipeline) store(ctx context.Context, doc *core.StoredDocument) error {
	if err := core.ValidateStoredDocument(doc, p.gateway.Dimensions()); err != nil {
		return err
	}
	return retry.WithBackoff(ctx, func() error {
		err := p.repo.Upsert(ctx, doc)
		if errors.Is(err, storage.ErrStorageClosed) || errors.Is(err, core.ErrInvalidDocument) {
			return retry.Permanent(err)
		}
		return err
	}, p.upsertAttempts, p.upsertDelay)
}
