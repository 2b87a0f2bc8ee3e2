// Package sinktask is the host task context spec.md §1 places out of
// scope for the core: it owns the Kafka client, decodes kgo.Record into
// pkg/ingest.Record, and drives one pkg/sink.PartitionWriter per assigned
// partition, grounded on modules/blockbuilder's services.Service /
// kgo.Client / kadm.Client wiring.
package sinktask

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/multierr"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
	"github.com/nimbusdata/hdfssink/pkg/sink"
)

// Task owns every PartitionWriter for the partitions assigned to this
// process and the single Kafka client shared by all of them. Control flow
// is the single poll+write loop in running, so no PartitionWriter is ever
// touched by more than one goroutine (spec.md §5).
type Task struct {
	services.Service

	cfg    Config
	logger log.Logger
	reg    prometheus.Registerer

	storage        sink.Storage
	partitioner    ingest.Partitioner
	writerProvider ingest.RecordWriterProvider
	compat         sink.SchemaCompatibility
	hive           sink.HiveService

	client *kgo.Client
	kadm   *kadm.Client
	ctx    *taskContext

	writers map[int32]*sink.PartitionWriter
}

func New(
	cfg Config,
	storage sink.Storage,
	partitioner ingest.Partitioner,
	writerProvider ingest.RecordWriterProvider,
	compat sink.SchemaCompatibility,
	hive sink.HiveService,
	logger log.Logger,
	reg prometheus.Registerer,
) (*Task, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sinktask config: %w", err)
	}

	t := &Task{
		cfg:            cfg,
		logger:         logger,
		reg:            reg,
		storage:        storage,
		partitioner:    partitioner,
		writerProvider: writerProvider,
		compat:         compat,
		hive:           hive,
		writers:        make(map[int32]*sink.PartitionWriter),
	}
	t.ctx = &taskContext{t: t}
	t.Service = services.NewBasicService(t.starting, t.running, t.stopping)
	return t, nil
}

func (t *Task) starting(ctx context.Context) error {
	level.Info(t.logger).Log("msg", "sink task starting", "topic", t.cfg.Topic, "partitions", t.cfg.Partitions)

	metrics := kprom.NewMetrics("hdfssink_kafka", kprom.Registerer(t.reg))

	offsets := make(map[int32]kgo.Offset, len(t.cfg.Partitions))
	for _, p := range t.cfg.Partitions {
		offsets[p] = kgo.NewOffset().AtStart()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(t.cfg.Kafka.Brokers...),
		kgo.ConsumePartitions(map[string]map[int32]kgo.Offset{t.cfg.Topic: offsets}),
		kgo.WithHooks(metrics),
	)
	if err != nil {
		return fmt.Errorf("creating kafka client: %w", err)
	}
	t.client = client
	t.kadm = kadm.NewClient(client)

	for _, p := range t.cfg.Partitions {
		w, err := sink.New(t.cfg.Topic, p, t.cfg.Sink, t.storage, t.partitioner, t.writerProvider, t.compat, t.hive, t.ctx, log.With(t.logger, "partition", p), t.reg)
		if err != nil {
			return fmt.Errorf("constructing writer for partition %d: %w", p, err)
		}
		t.writers[p] = w
	}

	return nil
}

func (t *Task) running(ctx context.Context) error {
	ticker := time.NewTicker(t.cfg.WriteEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.poll(ctx)
			t.writeAll()
		}
	}
}

// poll pulls one round of fetches and distributes each record into its
// partition's buffer; it never touches a writer's Write, only Buffer
// (spec.md §4.2).
func (t *Task) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, t.cfg.PollTimeout)
	defer cancel()

	fetches := t.client.PollFetches(pollCtx)
	if err := fetches.Err(); err != nil {
		level.Warn(t.logger).Log("msg", "poll fetches returned an error", "err", err)
	}

	for iter := fetches.RecordIter(); !iter.Done(); {
		rec := iter.Next()
		w, ok := t.writers[rec.Partition]
		if !ok {
			continue
		}
		w.Buffer(toIngestRecord(rec))
	}
}

// writeAll drives every owned writer's Write once, in partition order for
// deterministic logging; errors are fatal and terminate the task (spec.md
// §7: "surfaced as an unchecked error terminating the task"), except
// sink.ErrBackoffActive, which marks a skipped call during backoff.
func (t *Task) writeAll() {
	for _, p := range t.sortedPartitions() {
		if err := t.writers[p].Write(); err != nil && !errors.Is(err, sink.ErrBackoffActive) {
			level.Error(t.logger).Log("msg", "fatal sink error, terminating task", "partition", p, "err", err)
			panic(fmt.Sprintf("sinktask: fatal error on partition %d: %v", p, err))
		}
	}
}

func (t *Task) sortedPartitions() []int32 {
	ps := make([]int32, 0, len(t.writers))
	for p := range t.writers {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i] < ps[j] })
	return ps
}

// stopping closes every partition writer, aggregating any WAL-close
// errors with multierr rather than stopping at the first one (spec.md §7
// "WAL close errors: collected and re-raised as an aggregate").
func (t *Task) stopping(err error) error {
	var closeErr error
	for _, p := range t.sortedPartitions() {
		if cerr := t.writers[p].Close(); cerr != nil {
			closeErr = multierr.Append(closeErr, fmt.Errorf("partition %d: %w", p, cerr))
		}
	}
	if t.client != nil {
		t.client.Close()
	}
	return multierr.Append(err, closeErr)
}

func toIngestRecord(rec *kgo.Record) *ingest.Record {
	headers := make([]ingest.RecordHeader, 0, len(rec.Headers))
	var schema *ingest.Schema
	for _, h := range rec.Headers {
		headers = append(headers, ingest.RecordHeader{Key: h.Key, Value: h.Value})
		if h.Key == "schema-name" {
			if schema == nil {
				schema = &ingest.Schema{}
			}
			schema.Name = string(h.Value)
		}
		if h.Key == "schema-version" {
			if schema == nil {
				schema = &ingest.Schema{}
			}
			fmt.Sscanf(string(h.Value), "%d", &schema.Version)
		}
	}

	return &ingest.Record{
		Key:         rec.Key,
		Value:       rec.Value,
		Headers:     headers,
		Topic:       rec.Topic,
		Partition:   rec.Partition,
		Offset:      rec.Offset,
		Timestamp:   rec.Timestamp,
		ValueSchema: schema,
	}
}
