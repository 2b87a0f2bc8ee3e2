package sink

import "github.com/nimbusdata/hdfssink/pkg/ingest"

// SchemaTracker is the thin adaptor spec §4.7 calls a black box: the core
// only ever asks it for the current schema under a name, or tells it a new
// one is now current. It never inspects a Schema's fields itself.
type SchemaTracker struct {
	current map[string]*ingest.Schema
}

func newSchemaTracker() *SchemaTracker {
	return &SchemaTracker{current: make(map[string]*ingest.Schema)}
}

// getOrLoadCurrentSchema returns the schema currently tracked under name,
// or nil if none has been observed yet. offset is accepted to match the
// source's getOrLoadCurrentSchema(name, offset) signature (a hook for a
// persistence-backed tracker to load schema-at-offset); this in-memory
// tracker ignores it.
func (t *SchemaTracker) getOrLoadCurrentSchema(name string, _ int64) *ingest.Schema {
	return t.current[name]
}

func (t *SchemaTracker) update(s *ingest.Schema) {
	if s == nil {
		return
	}
	t.current[s.Name] = s
}
