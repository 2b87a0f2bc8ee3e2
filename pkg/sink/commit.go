package sink

import (
	"fmt"
	"path"
	"time"
)

// commitAll implements spec.md §4.5: promote every temp file with a
// recorded startOffset to its committed name, then advance offset once for
// the whole epoch. The appended set is reset here, at commit-start rather
// than epoch-start, per spec.md §9 open question (a) — a retried commit
// after partial progress cannot rely on appended to skip already-renamed
// entries; WAL idempotence (not this set) is what makes the retry safe.
func (w *PartitionWriter) commitAll() error {
	start := time.Now()
	w.appended = make(map[string]struct{})

	for _, encodedPartition := range w.sortedStartedPartitions() {
		if err := w.commitOne(encodedPartition); err != nil {
			return err
		}
	}

	w.offset += int64(w.recordCounter)
	w.metrics.committedOffset.Set(float64(w.offset))
	w.recordCounter = 0
	w.metrics.commitDuration.Observe(time.Since(start).Seconds())
	return nil
}

func (w *PartitionWriter) commitOne(encodedPartition string) error {
	temp, ok := w.registry.tempPath[encodedPartition]
	if !ok {
		return nil
	}

	startOffset := w.registry.startOffsets[encodedPartition]
	endOffset := w.registry.endOffsets[encodedPartition]
	directory := w.partitioner.GeneratePartitionedPath(w.topic, encodedPartition)
	committed := committedFilePath(w.cfg.TopicsDir, directory, w.topic, w.partition, startOffset, endOffset, w.cfg.OffsetZeroPadWidth, w.writerProvider.GetExtension())

	dir := path.Dir(committed)
	exists, err := w.storage.Exists(dir)
	if err != nil {
		return transient(w.state, fmt.Errorf("checking committed dir %s: %w", dir, err))
	}
	if !exists {
		if err := w.storage.Create(dir); err != nil {
			return transient(w.state, fmt.Errorf("creating committed dir %s: %w", dir, err))
		}
	}

	if err := w.storage.Commit(temp, committed); err != nil {
		return transient(w.state, fmt.Errorf("promoting %s to %s: %w", temp, committed, err))
	}

	delete(w.registry.tempPath, encodedPartition)
	delete(w.registry.startOffsets, encodedPartition)
	delete(w.registry.endOffsets, encodedPartition)
	return nil
}
