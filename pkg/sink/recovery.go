package sink

import (
	"fmt"
	"path"

	"github.com/go-kit/log/level"
)

// recover drives the prefix of states before WRITE_STARTED, exactly once
// per writer lifetime (guarded by the recovered flag), per spec.md §4.1.
// Each state performs one recovery step and advances; a failure at any
// step is transient and leaves state unchanged so the next call to Write
// resumes at the same step.
func (w *PartitionWriter) recover() error {
	for !w.recovered {
		switch w.state {
		case RecoveryStarted:
			w.ctx.Pause(w.partition)
			w.state = RecoveryPartitionPaused

		case RecoveryPartitionPaused:
			if err := w.wal.Apply(); err != nil {
				return transient(w.state, fmt.Errorf("applying WAL: %w", err))
			}
			w.state = WALApplied

		case WALApplied:
			if err := w.wal.Truncate(); err != nil {
				return transient(w.state, fmt.Errorf("truncating WAL: %w", err))
			}
			w.state = WALTruncated

		case WALTruncated:
			max, found, err := w.scanMaxCommittedOffset()
			if err != nil {
				return transient(w.state, fmt.Errorf("scanning topic directory: %w", err))
			}
			if found {
				w.offset = max + 1
			}
			w.state = OffsetReset

		case OffsetReset:
			if w.offset > 0 {
				w.ctx.Seek(w.partition, w.offset)
			}
			w.ctx.Resume(w.partition)
			w.recovered = true
			w.state = WriteStarted

		default:
			return ErrIllegalState
		}
	}

	level.Info(w.logger).Log("msg", "recovery complete", "topic", w.topic, "partition", w.partition, "offset", w.offset)
	return nil
}

// scanMaxCommittedOffset walks every partition directory under topicsDir
// for this topic and returns the highest endOffset encoded in a committed
// filename, per the <topic>+<partition>+<start>+<end>.<ext> convention
// (spec.md §6).
func (w *PartitionWriter) scanMaxCommittedOffset() (int64, bool, error) {
	root := path.Join(w.cfg.TopicsDir, w.topic)

	found := false
	var max int64

	var walk func(dir string) error
	walk = func(dir string) error {
		entries, err := w.storage.List(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry == "+tmp" {
				continue
			}
			full := path.Join(dir, entry)
			if _, _, ok := parseCommittedOffsetRange(entry); ok {
				_, end, _ := parseCommittedOffsetRange(entry)
				if !found || end > max {
					max = end
					found = true
				}
				continue
			}
			// not a committed file; assume a partition sub-directory and recurse
			if err := walk(full); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root); err != nil {
		return 0, false, err
	}
	return max, found, nil
}
