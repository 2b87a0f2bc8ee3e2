package ingest

// SchemaAwarePartitioner wraps a Partitioner so that EncodePartition
// prepends the record's schema name to the wrapped key. This is how
// multi-schema support (spec §4.7/§9) causes different schemas to land in
// distinct directories: a decorator over the configured partitioner, not a
// subclass of it.
type SchemaAwarePartitioner struct {
	Partitioner
}

func WrapWithSchemaName(p Partitioner) *SchemaAwarePartitioner {
	return &SchemaAwarePartitioner{Partitioner: p}
}

func (s *SchemaAwarePartitioner) EncodePartition(r *Record) string {
	inner := s.Partitioner.EncodePartition(r)
	if r.ValueSchema == nil {
		return inner
	}
	return r.ValueSchema.Name + "/" + inner
}
