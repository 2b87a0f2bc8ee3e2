// Package wal is the write-ahead log a PartitionWriter uses to bracket one
// rotation epoch's temp-to-committed renames, grounded on friggdb/wal's
// file-per-entity pattern and generalized to a single append-only log file
// per source partition (spec.md §4.4, §6).
package wal

import (
	"bufio"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Config carries the base directory the WAL lives under, tagged the way
// friggdb.Config / friggdb/wal.Config are (spec.md §10).
type Config struct {
	Filepath string `yaml:"path"`
}

// entry is one length-prefixed (key, value) pair appended to the log:
// a begin/end marker (value empty) or a temp->committed rename record.
type entry struct {
	Key   string
	Value string
}

// FileWAL is a single append-only log file per (topic, partition), holding
// length-prefixed entries. Apply replays a complete begin/end bracket by
// performing the recorded renames again (idempotent: Storage.Commit on an
// already-renamed path is a no-op not-found that Apply tolerates).
type FileWAL struct {
	cfg       *Config
	partition int32
	id        uuid.UUID

	logPath string
	f       *os.File
	w       *bufio.Writer

	commit func(src, dst string) error
}

// New opens (creating if absent) the log file for this source partition at
// <cfg.Filepath>/<partition>/log. cfg.Filepath is expected to already be
// topic-qualified by the caller, so the full path matches spec.md §6's
// <logsDir>/<topic>/<partition>/log. commit performs the rename side
// effect Apply needs; it is the owning Storage's Commit method, passed in
// rather than imported to avoid a storage<->wal import cycle.
func New(cfg *Config, partition int32, commit func(src, dst string) error) (*FileWAL, error) {
	if cfg.Filepath == "" {
		return nil, fmt.Errorf("wal: path is required")
	}

	dir := path.Join(cfg.Filepath, fmt.Sprintf("%d", partition))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating WAL directory %s", dir)
	}

	logPath := path.Join(dir, "log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening WAL log %s", logPath)
	}

	return &FileWAL{
		cfg:       cfg,
		partition: partition,
		id:        uuid.New(),
		logPath:   logPath,
		f:         f,
		w:         bufio.NewWriter(f),
		commit:    commit,
	}, nil
}

func (wal *FileWAL) GetLogFile() string {
	return wal.logPath
}

// Append writes one length-prefixed entry and flushes immediately: every
// entry must be durable before the rename it precedes is attempted
// (spec.md §4.4).
func (wal *FileWAL) Append(key, value string) error {
	if err := writeEntry(wal.w, entry{Key: key, Value: value}); err != nil {
		return errors.Wrapf(err, "appending WAL entry %s", key)
	}
	if err := wal.w.Flush(); err != nil {
		return errors.Wrap(err, "flushing WAL")
	}
	return wal.f.Sync()
}

// Apply replays the log: any complete begin...end bracket has its
// recorded (temp -> committed) renames re-performed. An incomplete
// bracket (no terminating end marker) is a no-op, per spec.md §4.4 — the
// interrupted rotation is retried from its still-open temp files instead.
func (wal *FileWAL) Apply() error {
	entries, err := readAllEntries(wal.logPath)
	if err != nil {
		return errors.Wrap(err, "reading WAL for apply")
	}

	var pending []entry
	inBracket := false

	for _, e := range entries {
		switch e.Key {
		case beginMarker:
			inBracket = true
			pending = pending[:0]
		case endMarker:
			if !inBracket {
				continue
			}
			for _, p := range pending {
				if err := wal.commit(p.Key, p.Value); err != nil && !stderrors.Is(err, os.ErrNotExist) {
					return errors.Wrapf(err, "replaying commit %s -> %s", p.Key, p.Value)
				}
			}
			inBracket = false
			pending = pending[:0]
		default:
			if inBracket {
				pending = append(pending, e)
			}
		}
	}

	return nil
}

// Truncate discards every entry written so far; called once Apply has
// completed (spec.md §4.1 recovery step 3).
func (wal *FileWAL) Truncate() error {
	if err := wal.f.Close(); err != nil {
		return errors.Wrap(err, "closing WAL before truncate")
	}

	f, err := os.OpenFile(wal.logPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return errors.Wrap(err, "truncating WAL")
	}

	wal.f = f
	wal.w = bufio.NewWriter(f)
	return nil
}

func (wal *FileWAL) Close() error {
	if err := wal.w.Flush(); err != nil {
		_ = wal.f.Close()
		return errors.Wrap(err, "flushing WAL on close")
	}
	return wal.f.Close()
}

const (
	beginMarker = "__begin__"
	endMarker   = "__end__"
)

func writeEntry(w io.Writer, e entry) error {
	if err := writeLengthPrefixed(w, e.Key); err != nil {
		return err
	}
	return writeLengthPrefixed(w, e.Value)
}

func writeLengthPrefixed(w io.Writer, s string) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readLengthPrefixed(r io.Reader) (string, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readAllEntries(logPath string) ([]entry, error) {
	f, err := os.Open(logPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var entries []entry
	for {
		key, err := readLengthPrefixed(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		value, err := readLengthPrefixed(r)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{Key: key, Value: value})
	}
	return entries, nil
}
