package sink

import (
	"time"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

// Storage is the content-addressed object store's directory-level
// primitives, consumed synchronously by the commit engine and writer
// registry (spec §6).
type Storage interface {
	URL() string
	Exists(path string) (bool, error)
	Create(path string) error
	Commit(src, dst string) error
	Delete(path string) error
	// List returns the base names of entries directly under path (not
	// recursive), used by recovery to scan a topic directory for existing
	// committed files (spec.md §4.1 step 4). Returns an empty slice, not
	// an error, if path does not exist.
	List(path string) ([]string, error)
	WAL(logsDir string, partition int32) (WAL, error)
}

// WAL is the write-ahead log consumed by the WAL coordinator and replayed
// during recovery (spec §4.4, §6).
type WAL interface {
	Append(key, value string) error
	Apply() error
	Truncate() error
	Close() error
	GetLogFile() string
}

const (
	// BeginMarker and EndMarker bracket one rotation epoch's entries in
	// the WAL (spec §4.4).
	BeginMarker = "__begin__"
	EndMarker   = "__end__"
)

// SchemaCompatibility decides whether an incoming record forces a schema
// transition and, if not, projects the record onto the tracker's current
// schema. It backs the "is this a new schema?" / "project this record"
// operations spec §4.7 describes as a black box.
type SchemaCompatibility interface {
	ShouldChangeSchema(rec *ingest.Record, prior, current *ingest.Schema) bool
	Project(rec *ingest.Record, target *ingest.Schema) (*ingest.Record, error)
}

// HiveService is the optional schema-catalog side effect (spec §4.1,
// §4.6, §6). Callers that disable hive.integration use a Noop
// implementation rather than a nil check scattered through the core.
type HiveService interface {
	CreateHiveTable(schema *ingest.Schema) error
	AlterHiveSchema(schema *ingest.Schema) error
	AddHivePartition(rec *ingest.Record, schema *ingest.Schema) error
}

// SinkTaskContext is the host task's control surface: pause/resume of
// upstream consumption, seek, and scheduling a retry delay (spec §6).
type SinkTaskContext interface {
	Pause(partition int32)
	Resume(partition int32)
	Seek(partition int32, offset int64)
	Timeout(d time.Duration)
}
