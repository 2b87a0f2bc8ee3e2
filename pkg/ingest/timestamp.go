package ingest

import "time"

// TimestampExtractor derives the millisecond timestamp used by periodic
// rotation from a record.
type TimestampExtractor interface {
	Extract(r *Record) int64
}

// WallClock is the distinguished, process-wide timestamp extractor that
// the rotation evaluator detects in order to bypass record-based timing
// (spec §4.3, §9). It is a stateless singleton: safe to share across every
// PartitionWriter in the process.
var WallClock TimestampExtractor = wallClockExtractor{}

type wallClockExtractor struct{}

func (wallClockExtractor) Extract(*Record) int64 {
	return time.Now().UnixMilli()
}

// IsWallClock reports whether the given extractor is the shared WallClock
// instance. The rotation evaluator uses this instead of a type assertion
// so the wrapping stays an explicit capability check (spec §9).
func IsWallClock(e TimestampExtractor) bool {
	_, ok := e.(wallClockExtractor)
	return ok
}

// RecordTimestampExtractor reads the timestamp a producer (or an upstream
// decoder) attached to the record.
type RecordTimestampExtractor struct{}

func (RecordTimestampExtractor) Extract(r *Record) int64 {
	return r.Timestamp.UnixMilli()
}
