package sink

import (
	"fmt"
	"sort"
)

// appendWAL brackets this epoch's renames with begin/end markers, guarded
// by the appended set so a retried append after partial progress does not
// re-append entries already on disk (spec §4.4; see DESIGN.md for the open
// question about when `appended` resets).
func (w *PartitionWriter) appendWAL() error {
	if _, ok := w.appended[BeginMarker]; !ok {
		if err := w.wal.Append(BeginMarker, ""); err != nil {
			return transient(w.state, fmt.Errorf("appending WAL begin marker: %w", err))
		}
		w.appended[BeginMarker] = struct{}{}
	}

	for _, encodedPartition := range w.sortedStartedPartitions() {
		temp, ok := w.registry.tempPath[encodedPartition]
		if !ok {
			continue
		}
		if _, done := w.appended[temp]; done {
			continue
		}

		start := w.registry.startOffsets[encodedPartition]
		end := w.registry.endOffsets[encodedPartition]
		directory := w.partitioner.GeneratePartitionedPath(w.topic, encodedPartition)
		committed := committedFilePath(w.cfg.TopicsDir, directory, w.topic, w.partition, start, end, w.cfg.OffsetZeroPadWidth, w.writerProvider.GetExtension())

		if err := w.wal.Append(temp, committed); err != nil {
			return transient(w.state, fmt.Errorf("appending WAL entry for %s: %w", encodedPartition, err))
		}
		w.appended[temp] = struct{}{}
	}

	if _, ok := w.appended[EndMarker]; !ok {
		if err := w.wal.Append(EndMarker, ""); err != nil {
			return transient(w.state, fmt.Errorf("appending WAL end marker: %w", err))
		}
		w.appended[EndMarker] = struct{}{}
	}

	return nil
}

func (w *PartitionWriter) sortedStartedPartitions() []string {
	keys := make([]string, 0, len(w.registry.startOffsets))
	for k := range w.registry.startOffsets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
