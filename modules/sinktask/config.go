package sinktask

import (
	"fmt"
	"time"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
	"github.com/nimbusdata/hdfssink/pkg/sink"
)

// Config is the host task's own configuration: the Kafka client surface
// spec.md §1 calls out of scope for the core ("connector bootstrap...
// multi-partition coordination are not covered"), plus one embedded
// sink.Config shared by every partition this task owns.
type Config struct {
	Kafka       KafkaConfig   `yaml:"kafka"`
	Sink        sink.Config   `yaml:"sink"`
	Topic       string        `yaml:"topic"`
	Partitions  []int32       `yaml:"partitions"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	WriteEvery  time.Duration `yaml:"write_every"`

	// Partitioner selects the record-to-directory strategy: "field" (the
	// default, partitions by PartitionFields) or "wallclock" (partitions
	// by processing time, ignoring the record value entirely).
	Partitioner     string   `yaml:"partitioner"`
	PartitionFields []string `yaml:"partition_fields"`

	// HiveEndpoint is the schema catalog's gRPC address; required only
	// when Sink.HiveIntegration is set.
	HiveEndpoint string `yaml:"hive_endpoint"`
}

type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

func DefaultConfig() Config {
	return Config{
		Sink:        sink.DefaultConfig(),
		PollTimeout: 2 * time.Second,
		WriteEvery:  1 * time.Second,
		Partitioner: "field",
	}
}

func (c *Config) Validate() error {
	if c.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if len(c.Partitions) == 0 {
		return fmt.Errorf("at least one partition must be assigned")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		return fmt.Errorf("kafka.consumer_group is required")
	}
	if c.Sink.HiveIntegration && c.HiveEndpoint == "" {
		return fmt.Errorf("hive_endpoint is required when sink.hive.integration is enabled")
	}
	return c.Sink.Validate()
}

// NewPartitioner builds the record-to-directory strategy selected by
// Partitioner/PartitionFields.
func (c *Config) NewPartitioner() (ingest.Partitioner, error) {
	switch c.Partitioner {
	case "", "field":
		return ingest.NewFieldPartitioner(c.PartitionFields, nil), nil
	case "wallclock":
		return ingest.WallClockPartitioner{}, nil
	default:
		return nil, fmt.Errorf("unknown partitioner %q", c.Partitioner)
	}
}
