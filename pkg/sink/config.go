package sink

import (
	"fmt"
	"time"
)

// Config carries every option spec §6 lists as recognized configuration,
// captured immutably by the PartitionWriter at construction.
type Config struct {
	TopicsDir string `yaml:"topics.dir"`
	LogsDir   string `yaml:"logs.dir"`

	FlushSize                int           `yaml:"flush.size"`
	RotateIntervalMs         int64         `yaml:"rotate.interval.ms"`
	RotateScheduleIntervalMs int64         `yaml:"rotate.schedule.interval.ms"`
	PartitionerTimezone      string        `yaml:"partitioner.timezone"`
	RetryBackoff             time.Duration `yaml:"retry.backoff.ms"`
	OffsetZeroPadWidth       int           `yaml:"filename.offset.zero.pad.width"`
	HiveIntegration          bool          `yaml:"hive.integration"`
	SchemaCompatibility      string        `yaml:"schema.compatibility"`
	MultiSchemaSupport       bool          `yaml:"multi.schema.support"`
}

// DefaultConfig mirrors the teacher's pattern of a conservative, always-
// valid zero-value starting point (friggdb.Config / WAL.Config expect
// the caller to fill in paths; here we additionally default durations).
func DefaultConfig() Config {
	return Config{
		FlushSize:           1000,
		OffsetZeroPadWidth:  20,
		PartitionerTimezone: "UTC",
		RetryBackoff:        5 * time.Second,
		SchemaCompatibility: "backward",
	}
}

func (c *Config) Validate() error {
	if c.TopicsDir == "" {
		return fmt.Errorf("topics.dir is required")
	}
	if c.LogsDir == "" {
		return fmt.Errorf("logs.dir is required")
	}
	if c.FlushSize <= 0 {
		return fmt.Errorf("flush.size must be positive, got %d", c.FlushSize)
	}
	if c.OffsetZeroPadWidth <= 0 {
		return fmt.Errorf("filename.offset.zero.pad.width must be positive, got %d", c.OffsetZeroPadWidth)
	}
	if c.RotateIntervalMs < 0 {
		return fmt.Errorf("rotate.interval.ms must be >= 0")
	}
	if c.RotateScheduleIntervalMs < 0 {
		return fmt.Errorf("rotate.schedule.interval.ms must be >= 0")
	}
	if c.RetryBackoff <= 0 {
		return fmt.Errorf("retry.backoff.ms must be positive")
	}
	if c.PartitionerTimezone == "" {
		c.PartitionerTimezone = "UTC"
	}
	return nil
}
