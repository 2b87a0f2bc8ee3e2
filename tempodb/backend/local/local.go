// Package local is a local-filesystem Storage backend, grounded on
// friggdb/backend/local's readerWriter but generalized from fixed
// block-shaped writes to the arbitrary create/exists/commit/delete/list
// primitives pkg/sink.Storage needs (spec.md §6).
package local

import (
	"fmt"
	"os"
	"path"

	"github.com/pkg/errors"

	"github.com/nimbusdata/hdfssink/pkg/sink"
	"github.com/nimbusdata/hdfssink/tempodb/wal"
)

// Config carries the backend's root directory, tagged like
// friggdb/backend/local.Config (spec.md §10).
type Config struct {
	Path string `yaml:"path"`
}

// Backend implements pkg/sink.Storage over the local filesystem: Commit is
// os.Rename, which is atomic within one filesystem (spec.md §6 "atomic
// rename/move").
type Backend struct {
	cfg *Config
	wal *wal.Config
}

var _ sink.Storage = (*Backend)(nil)

// New validates and prepares the backend's root directory. walCfg is the
// WAL's base directory, passed through to Backend.WAL.
func New(cfg *Config, walCfg *wal.Config) (*Backend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("local backend: path is required")
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating backend root %s", cfg.Path)
	}
	return &Backend{cfg: cfg, wal: walCfg}, nil
}

func (b *Backend) URL() string {
	return "file://" + b.cfg.Path
}

func (b *Backend) Exists(p string) (bool, error) {
	_, err := os.Stat(b.full(p))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.Wrapf(err, "stat %s", p)
}

func (b *Backend) Create(p string) error {
	if err := os.MkdirAll(b.full(p), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory %s", p)
	}
	return nil
}

// Commit renames src to dst atomically, creating dst's parent directory
// if it doesn't already exist (the writer registry's temp-file directory
// and the committed directory are usually, but not always, the same
// partitioned directory).
func (b *Backend) Commit(src, dst string) error {
	fullSrc, fullDst := b.full(src), b.full(dst)

	if err := os.MkdirAll(path.Dir(fullDst), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %s", dst)
	}

	if err := os.Rename(fullSrc, fullDst); err != nil {
		return errors.Wrapf(err, "renaming %s to %s", src, dst)
	}
	return nil
}

func (b *Backend) Delete(p string) error {
	if err := os.RemoveAll(b.full(p)); err != nil {
		return errors.Wrapf(err, "deleting %s", p)
	}
	return nil
}

// List returns the base names of entries directly under p. A missing
// directory is reported as an empty list, not an error, since recovery's
// directory scan (spec.md §4.1 step 4) walks paths that may not exist yet
// on a brand-new topic.
func (b *Backend) List(p string) ([]string, error) {
	entries, err := os.ReadDir(b.full(p))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "listing %s", p)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// WAL opens this source partition's log file under logsDir, rooted the
// same way as every other path this backend serves.
func (b *Backend) WAL(logsDir string, partition int32) (sink.WAL, error) {
	cfg := *b.wal
	cfg.Filepath = b.full(logsDir)
	return wal.New(&cfg, partition, func(src, dst string) error {
		return b.Commit(src, dst)
	})
}

func (b *Backend) full(p string) string {
	return path.Join(b.cfg.Path, p)
}
