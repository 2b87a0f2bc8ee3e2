package sink

import (
	"fmt"
	"path"
	"sort"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

// writerRegistry maps encodedPartition -> open writer, plus the
// associated bookkeeping that must survive writer close until the
// subsequent commit or delete (spec §3: "Writer registry", "TempFile
// table").
type writerRegistry struct {
	writers  map[string]ingest.RecordWriter
	tempPath map[string]string

	startOffsets map[string]int64
	endOffsets   map[string]int64

	hivePartitions map[string]struct{}
}

func newWriterRegistry() *writerRegistry {
	return &writerRegistry{
		writers:        make(map[string]ingest.RecordWriter),
		tempPath:       make(map[string]string),
		startOffsets:   make(map[string]int64),
		endOffsets:     make(map[string]int64),
		hivePartitions: make(map[string]struct{}),
	}
}

// getWriter returns the existing open writer for encodedPartition, or
// creates one: a deterministic temp path, a RecordWriter from the
// configured provider, and (if hive integration is enabled and this
// partition hasn't been announced yet) a catalog partition registration
// (spec §4.6).
func (w *PartitionWriter) getWriter(rec *ingest.Record, encodedPartition string) (ingest.RecordWriter, error) {
	if rw, ok := w.registry.writers[encodedPartition]; ok {
		return rw, nil
	}

	directory := w.partitioner.GeneratePartitionedPath(w.topic, encodedPartition)
	temp := tempFilePath(w.cfg.TopicsDir, directory, w.topic, w.partition, encodedPartition, w.writerProvider.GetExtension())

	dir := path.Dir(temp)
	if exists, err := w.storage.Exists(dir); err != nil {
		return nil, transient(w.state, fmt.Errorf("checking temp dir %s: %w", dir, err))
	} else if !exists {
		if err := w.storage.Create(dir); err != nil {
			return nil, transient(w.state, fmt.Errorf("creating temp dir %s: %w", dir, err))
		}
	}

	rw, err := w.writerProvider.GetRecordWriter(temp, rec)
	if err != nil {
		return nil, transient(w.state, fmt.Errorf("creating record writer for %s: %w", temp, err))
	}

	w.registry.writers[encodedPartition] = rw
	w.registry.tempPath[encodedPartition] = temp

	if w.cfg.HiveIntegration {
		if _, announced := w.registry.hivePartitions[encodedPartition]; !announced {
			if err := w.hive.AddHivePartition(rec, w.currentSchema); err != nil {
				return nil, err // fatal, per spec §7
			}
			w.registry.hivePartitions[encodedPartition] = struct{}{}
		}
	}

	return rw, nil
}

// recordWrite updates StartOffsets/EndOffsets for encodedPartition
// (spec §3: StartOffsets[p] set on first write in the epoch, EndOffsets[p]
// overwritten on every write).
func (w *PartitionWriter) recordWrite(encodedPartition string, offset int64) {
	if _, ok := w.registry.startOffsets[encodedPartition]; !ok {
		w.registry.startOffsets[encodedPartition] = offset
	}
	w.registry.endOffsets[encodedPartition] = offset
}

// closeAllTempFiles closes every open writer in the registry, in sorted
// order of encodedPartition for deterministic tests (spec §9 open
// question (c)). It does not clear the temp-file table; that survives
// until commit.
func (w *PartitionWriter) closeAllTempFiles() error {
	for _, encodedPartition := range w.sortedOpenPartitions() {
		rw := w.registry.writers[encodedPartition]
		if err := rw.Close(); err != nil {
			return transient(w.state, fmt.Errorf("closing temp file for partition %s: %w", encodedPartition, err))
		}
		delete(w.registry.writers, encodedPartition)
	}
	return nil
}

// discardOpenTempFiles is used by Close(): best-effort, errors logged and
// swallowed (spec §7 "Data errors on close").
func (w *PartitionWriter) discardOpenTempFiles() {
	for encodedPartition, rw := range w.registry.writers {
		if err := rw.Close(); err != nil {
			w.logCloseError(encodedPartition, err)
		}
		if temp, ok := w.registry.tempPath[encodedPartition]; ok {
			if err := w.storage.Delete(temp); err != nil {
				w.logCloseError(encodedPartition, err)
			}
		}
	}
	w.registry.writers = make(map[string]ingest.RecordWriter)
	w.registry.tempPath = make(map[string]string)
	w.registry.startOffsets = make(map[string]int64)
	w.registry.endOffsets = make(map[string]int64)
}

func (w *PartitionWriter) sortedOpenPartitions() []string {
	keys := make([]string, 0, len(w.registry.writers))
	for k := range w.registry.writers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
