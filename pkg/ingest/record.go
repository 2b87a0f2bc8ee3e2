// Package ingest holds the Kafka-facing record shape and the small set of
// collaborators (timestamp extraction, partitioning, record-writer
// provisioning) that the sink core consumes but never constructs itself.
package ingest

import "time"

// RecordHeader is a single Kafka record header, mirroring
// twmb/franz-go's kgo.RecordHeader.
type RecordHeader struct {
	Key   string
	Value []byte
}

// Record is the unit the sink buffers, routes, and writes. Field names and
// shapes mirror twmb/franz-go's kgo.Record so that modules/sinktask can
// translate one to the other without any lossy mapping.
type Record struct {
	Key       []byte
	Value     []byte
	Headers   []RecordHeader
	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time

	// ValueSchema is populated by the caller when the value was decoded
	// against a schema (e.g. Avro/Protobuf via a schema registry). It is
	// nil for schemaless topics.
	ValueSchema *Schema
}

// SchemaField describes one field of a Schema. The sink core never
// inspects these beyond passing them to the configured compatibility
// policy.
type SchemaField struct {
	Name string
	Type string
}

// Schema is the opaque value the sink's schema tracker compares record to
// record. Only Name and Version are used by the core; Fields exists for
// compatibility policies to inspect.
type Schema struct {
	Name    string
	Version int
	Fields  []SchemaField
}
