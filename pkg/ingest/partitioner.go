package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PartitionField describes one component of a partition path, as exposed
// by Partitioner.PartitionFields() for catalog registration (the schema
// catalog needs field names to declare a Hive-style partitioned table).
type PartitionField struct {
	Name string
	Type string
}

// Partitioner maps a record to an encoded partition key and, from that
// key, to the directory path under a topic's output tree.
//
// SupportsTimestampExtractor is the capability-interface form of the
// source's runtime type introspection (spec §9): a partitioner that cares
// about wall-clock-vs-record-time rotation returns its extractor and
// true; one that doesn't returns (nil, false).
type Partitioner interface {
	EncodePartition(r *Record) string
	GeneratePartitionedPath(topic, encoded string) string
	PartitionFields() []PartitionField
	SupportsTimestampExtractor() (TimestampExtractor, bool)
}

// FieldPartitioner partitions records by the value of one or more named
// fields in the decoded JSON record value, Hive-style ("field=value/...").
// It is the default partitioner: simplest concrete implementation of
// "encode record -> partition key" that still exercises catalog
// registration via PartitionFields.
type FieldPartitioner struct {
	Fields    []string
	Extractor TimestampExtractor
}

func NewFieldPartitioner(fields []string, extractor TimestampExtractor) *FieldPartitioner {
	if extractor == nil {
		extractor = RecordTimestampExtractor{}
	}
	return &FieldPartitioner{Fields: fields, Extractor: extractor}
}

func (p *FieldPartitioner) EncodePartition(r *Record) string {
	if len(p.Fields) == 0 {
		return "default"
	}

	values := decodeValue(r.Value)
	parts := make([]string, 0, len(p.Fields))
	for _, field := range p.Fields {
		parts = append(parts, fmt.Sprintf("%s=%v", field, lookupField(values, field)))
	}
	return strings.Join(parts, "/")
}

func (p *FieldPartitioner) GeneratePartitionedPath(topic, encoded string) string {
	return fmt.Sprintf("%s/%s", topic, encoded)
}

func (p *FieldPartitioner) PartitionFields() []PartitionField {
	fields := make([]PartitionField, 0, len(p.Fields))
	for _, f := range p.Fields {
		fields = append(fields, PartitionField{Name: f, Type: "string"})
	}
	return fields
}

func (p *FieldPartitioner) SupportsTimestampExtractor() (TimestampExtractor, bool) {
	return p.Extractor, true
}

// WallClockPartitioner buckets records by processing time rather than any
// field in the value, using the shared WallClock extractor. It never
// supports a record-time extractor because it IS the wall-clock source.
type WallClockPartitioner struct{}

func (WallClockPartitioner) EncodePartition(*Record) string {
	return "default"
}

func (WallClockPartitioner) GeneratePartitionedPath(topic, encoded string) string {
	return fmt.Sprintf("%s/%s", topic, encoded)
}

func (WallClockPartitioner) PartitionFields() []PartitionField {
	return nil
}

func (WallClockPartitioner) SupportsTimestampExtractor() (TimestampExtractor, bool) {
	return WallClock, true
}

func decodeValue(value []byte) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal(value, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

func lookupField(values map[string]interface{}, dotted string) interface{} {
	cur := interface{}(values)
	for _, part := range strings.Split(dotted, ".") {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}
