// Package schema holds the schema-compatibility policies a PartitionWriter
// consults through the sink.SchemaCompatibility interface: whether an
// incoming record forces a schema transition, and how to project a record
// onto the tracker's current schema.
package schema

import (
	"fmt"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

// BackwardCompatibility requires every field of the prior schema to still
// be present (by name and type) in a new one. Project accepts a record only
// if every field of its schema is declared, with the same type, by the
// target schema, and then relabels the record with the target schema; the
// value bytes are not rewritten, and a record carrying a field the target
// lacks is rejected rather than trimmed. This is the default
// ("schema.compatibility: backward").
type BackwardCompatibility struct{}

// ShouldChangeSchema is invoked with prior always nil (the caller only
// ever checks the incoming record's own schema against the tracker's
// current one, spec §4.1); prior is accepted to match the interface shape
// and ignored here. The caller (PartitionWriter.stepWritePartitionPaused)
// only reaches this policy once its own bootstrap check — "first write of
// the epoch, or multi-schema support" — has already failed, so current ==
// nil at this point means a schema name never seen before has shown up
// mid-batch without multi-schema support enabled: that is itself a schema
// change, regardless of compatibility, since there is no tracked schema to
// compare against. Otherwise a newer version than the tracked one forces a
// transition; an older or equal version is assumed already compatible.
func (BackwardCompatibility) ShouldChangeSchema(rec *ingest.Record, _, current *ingest.Schema) bool {
	if rec.ValueSchema == nil {
		return false
	}
	if current == nil {
		return true
	}
	return rec.ValueSchema.Version > current.Version
}

func (BackwardCompatibility) Project(rec *ingest.Record, target *ingest.Schema) (*ingest.Record, error) {
	if target == nil || rec.ValueSchema == nil {
		return rec, nil
	}
	if !isSuperset(target.Fields, rec.ValueSchema.Fields) {
		return nil, fmt.Errorf("schema %s@%d is not backward compatible with target %s@%d", rec.ValueSchema.Name, rec.ValueSchema.Version, target.Name, target.Version)
	}
	projected := *rec
	projected.ValueSchema = target
	return &projected, nil
}

func isSuperset(target, incoming []ingest.SchemaField) bool {
	have := make(map[string]string, len(target))
	for _, f := range target {
		have[f.Name] = f.Type
	}
	for _, f := range incoming {
		t, ok := have[f.Name]
		if !ok || t != f.Type {
			return false
		}
	}
	return true
}

// NoneCompatibility never projects and reports a schema change whenever
// the record's schema version differs from the current one tracked under
// the same name, or no current schema is tracked; field shape is not
// compared ("schema.compatibility: none").
type NoneCompatibility struct{}

// ShouldChangeSchema treats any version drift under the same schema name,
// or the appearance of a schema name the tracker has no record of yet
// (see BackwardCompatibility.ShouldChangeSchema), as a change, since this
// policy never projects records between versions.
func (NoneCompatibility) ShouldChangeSchema(rec *ingest.Record, _, current *ingest.Schema) bool {
	if rec.ValueSchema == nil {
		return false
	}
	if current == nil {
		return true
	}
	return rec.ValueSchema.Version != current.Version
}

func (NoneCompatibility) Project(rec *ingest.Record, _ *ingest.Schema) (*ingest.Record, error) {
	return rec, nil
}

// New resolves the sink.Config "schema.compatibility" string to a policy.
func New(name string) (interface {
	ShouldChangeSchema(rec *ingest.Record, prior, current *ingest.Schema) bool
	Project(rec *ingest.Record, target *ingest.Schema) (*ingest.Record, error)
}, error) {
	switch name {
	case "", "backward":
		return BackwardCompatibility{}, nil
	case "none":
		return NoneCompatibility{}, nil
	default:
		return nil, fmt.Errorf("unknown schema.compatibility policy %q", name)
	}
}
