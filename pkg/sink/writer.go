package sink

import (
	"fmt"
	"path"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

// PartitionWriter is the core described by spec.md §3: one instance per
// (topic, source-partition), owning recovery, buffering, schema tracking,
// rotation and WAL-backed commit. It is constructed at task assignment and
// destroyed at revocation or task shutdown; Close never commits partial
// work (spec.md §3 "Lifecycles").
type PartitionWriter struct {
	topic     string
	partition int32
	cfg       Config

	storage Storage
	wal     WAL
	hive    HiveService
	ctx     SinkTaskContext

	partitioner    ingest.Partitioner
	extractor      ingest.TimestampExtractor
	wallClock      bool
	writerProvider ingest.RecordWriterProvider
	compat         SchemaCompatibility

	buffer        *recordBuffer
	registry      *writerRegistry
	rotation      *rotationEvaluator
	schemaTracker *SchemaTracker

	state         State
	recovered     bool
	offset        int64
	recordCounter int
	appended      map[string]struct{}
	currentSchema *ingest.Schema
	lastRecordMs  int64

	failureTime *time.Time

	logger  log.Logger
	metrics *Metrics
}

// New constructs a PartitionWriter. The caller supplies every external
// collaborator from spec.md §6; multiSchemaSupport wraps partitioner in a
// SchemaAwarePartitioner decorator per spec.md §4.7/§9.
func New(
	topic string,
	partition int32,
	cfg Config,
	storage Storage,
	partitioner ingest.Partitioner,
	writerProvider ingest.RecordWriterProvider,
	compat SchemaCompatibility,
	hive HiveService,
	ctx SinkTaskContext,
	logger log.Logger,
	reg prometheus.Registerer,
) (*PartitionWriter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sink config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.PartitionerTimezone)
	if err != nil {
		return nil, fmt.Errorf("loading partitioner.timezone %q: %w", cfg.PartitionerTimezone, err)
	}

	wal, err := storage.WAL(path.Join(cfg.LogsDir, topic), partition)
	if err != nil {
		return nil, fmt.Errorf("opening WAL for %s/%d: %w", topic, partition, err)
	}

	if cfg.MultiSchemaSupport {
		partitioner = ingest.WrapWithSchemaName(partitioner)
	}

	extractor := ingest.TimestampExtractor(ingest.RecordTimestampExtractor{})
	if e, ok := partitioner.SupportsTimestampExtractor(); ok && e != nil {
		extractor = e
	}

	if logger == nil {
		logger = log.NewNopLogger()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	rotation := newRotationEvaluator(cfg, loc)
	rotation.ensureScheduled(time.Now())

	return &PartitionWriter{
		topic:          topic,
		partition:      partition,
		cfg:            cfg,
		storage:        storage,
		wal:            wal,
		hive:           hive,
		ctx:            ctx,
		partitioner:    partitioner,
		extractor:      extractor,
		wallClock:      ingest.IsWallClock(extractor),
		writerProvider: writerProvider,
		compat:         compat,
		buffer:         newRecordBuffer(),
		registry:       newWriterRegistry(),
		rotation:       rotation,
		schemaTracker:  newSchemaTracker(),
		state:          RecoveryStarted,
		offset:         -1,
		appended:       make(map[string]struct{}),
		logger:         logger,
		metrics:        NewMetrics(reg, topic, partition),
	}, nil
}

// Buffer enqueues a record for later processing by Write. Must be called
// from the same goroutine as Write (spec.md §5).
func (w *PartitionWriter) Buffer(r *ingest.Record) {
	w.buffer.push(r)
	w.metrics.recordsBuffered.Inc()
}

// Offset returns the last committed offset + 1, or -1 if nothing has been
// committed yet (spec.md §3).
func (w *PartitionWriter) Offset() int64 {
	return w.offset
}

// Write drains as much of the buffer as possible, returning promptly on a
// transient failure (backoff requested from the host) or propagating a
// fatal error. It is a no-op, returning ErrBackoffActive, if called again
// before the configured retry.backoff.ms has elapsed since the last
// failure (spec.md §5).
func (w *PartitionWriter) Write() error {
	if w.failureTime != nil && time.Since(*w.failureTime) < w.cfg.RetryBackoff {
		return ErrBackoffActive
	}

	if !w.recovered {
		if err := w.recover(); err != nil {
			return w.handleFailure(err, w.metrics.recoveryErrors)
		}
	}

	for !w.buffer.empty() {
		if err := w.step(); err != nil {
			return w.handleFailure(err, w.metrics.writeErrors)
		}
	}

	return w.onDrain()
}

// handleFailure classifies err: transient failures record failureTime and
// request a host backoff, returning nil (the caller treats this call to
// Write as complete, not erroring); anything else is fatal and propagates
// (spec.md §7).
func (w *PartitionWriter) handleFailure(err error, counter prometheus.Counter) error {
	if !IsTransient(err) {
		return err
	}
	counter.Inc()
	now := time.Now()
	w.failureTime = &now
	level.Warn(w.logger).Log("msg", "transient failure, backing off", "topic", w.topic, "partition", w.partition, "state", w.state, "err", err)
	w.ctx.Timeout(w.cfg.RetryBackoff)
	return nil
}

// onDrain implements the tail-flush special case (spec.md §4.1): when the
// buffer empties with buffered records still unrotated and a rotation
// condition now holds (typically time-based), commit them without passing
// through SHOULD_ROTATE. Either way, resume consumption and return to
// WRITE_STARTED (spec.md §4.2: "resume is asserted when the buffer
// drains").
func (w *PartitionWriter) onDrain() error {
	if w.recordCounter > 0 {
		now := time.Now()
		currentMs := w.currentMs(now)
		if due, reason := w.rotation.due(now, currentMs, w.recordCounter); due {
			level.Info(w.logger).Log("msg", "tail flush", "topic", w.topic, "partition", w.partition, "reason", reason)
			w.metrics.rotations.WithLabelValues(reason).Inc()
			if err := w.tailFlush(now, currentMs); err != nil {
				return w.handleFailure(err, w.metrics.writeErrors)
			}
		}
	}

	w.ctx.Resume(w.partition)
	w.state = WriteStarted
	return nil
}

func (w *PartitionWriter) tailFlush(now time.Time, currentMs int64) error {
	w.rotation.refresh(now, currentMs)
	if err := w.closeAllTempFiles(); err != nil {
		return err
	}
	if err := w.appendWAL(); err != nil {
		return err
	}
	return w.commitAll()
}

// currentMs is "now" for a wall-clock partitioner, or the last record
// observed otherwise (spec.md §4.3).
func (w *PartitionWriter) currentMs(now time.Time) int64 {
	if w.wallClock {
		return now.UnixMilli()
	}
	return w.lastRecordMs
}

// step dispatches one iteration of the write loop's explicit state switch
// (spec.md §9: "re-express as an explicit dispatch table or loop over enum
// states", no fall-through).
func (w *PartitionWriter) step() error {
	switch w.state {
	case WriteStarted:
		w.ctx.Pause(w.partition)
		w.state = WritePartitionPaused
		return nil

	case WritePartitionPaused:
		return w.stepWritePartitionPaused()

	case ShouldRotate:
		now := time.Now()
		w.rotation.refresh(now, w.currentMs(now))
		if err := w.closeAllTempFiles(); err != nil {
			return err
		}
		w.state = TempFileClosed
		return nil

	case TempFileClosed:
		if err := w.appendWAL(); err != nil {
			return err
		}
		w.state = WALAppended
		return nil

	case WALAppended:
		if err := w.commitAll(); err != nil {
			return err
		}
		w.state = FileCommitted
		return nil

	case FileCommitted:
		w.state = WritePartitionPaused
		return nil

	default:
		return ErrIllegalState
	}
}

// stepWritePartitionPaused implements spec.md §4.1's WRITE_PARTITION_PAUSED
// transition: schema-resolution, the new-schema predicate, and otherwise
// the rotation test followed by a write-and-pop.
func (w *PartitionWriter) stepWritePartitionPaused() error {
	rec := w.buffer.peek()

	valueSchema := rec.ValueSchema
	var currentSchema *ingest.Schema
	if valueSchema != nil {
		currentSchema = w.schemaTracker.getOrLoadCurrentSchema(valueSchema.Name, w.offset)
	}

	if valueSchema != nil {
		newSchema := (w.recordCounter <= 0 || w.cfg.MultiSchemaSupport) && currentSchema == nil
		if !newSchema {
			newSchema = w.compat.ShouldChangeSchema(rec, nil, currentSchema)
		}

		if newSchema {
			return w.transitionSchema(valueSchema)
		}
	}

	now := time.Now()
	ms := w.extractor.Extract(rec)
	if w.wallClock {
		ms = now.UnixMilli()
	}

	due, reason := w.rotation.due(now, ms, w.recordCounter)
	if due {
		w.metrics.rotations.WithLabelValues(reason).Inc()
		w.state = ShouldRotate
		return nil
	}

	target := currentSchema
	if target == nil {
		target = valueSchema
	}
	projected, err := w.compat.Project(rec, target)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaProjection, err)
	}

	if err := w.writeRecord(projected); err != nil {
		return err
	}

	w.lastRecordMs = w.extractor.Extract(projected)
	w.rotation.seed(now, w.wallClock, w.lastRecordMs)
	w.buffer.pop()
	return nil
}

// transitionSchema updates the tracker and, if hive.integration is
// enabled, registers the new schema with the catalog. If the writer
// already has open files (recordCounter > 0) those must be rotated before
// the new schema's records are written; otherwise the record stays at the
// buffer head and is re-evaluated on the next iteration, now seeing a
// resolved currentSchema (spec.md §4.1).
func (w *PartitionWriter) transitionSchema(valueSchema *ingest.Schema) error {
	w.schemaTracker.update(valueSchema)
	w.currentSchema = valueSchema

	if w.cfg.HiveIntegration {
		if err := w.hive.CreateHiveTable(valueSchema); err != nil {
			return fmt.Errorf("creating hive table for schema %s: %w", valueSchema.Name, err)
		}
		if err := w.hive.AlterHiveSchema(valueSchema); err != nil {
			return fmt.Errorf("altering hive schema for %s: %w", valueSchema.Name, err)
		}
	}

	if w.recordCounter > 0 {
		w.state = ShouldRotate
	}
	return nil
}

func (w *PartitionWriter) writeRecord(rec *ingest.Record) error {
	encodedPartition := w.partitioner.EncodePartition(rec)

	rw, err := w.getWriter(rec, encodedPartition)
	if err != nil {
		return err
	}
	if err := rw.Write(rec); err != nil {
		return transient(w.state, fmt.Errorf("writing record at offset %d: %w", rec.Offset, err))
	}

	// with nothing committed or recovered yet, the first written record
	// anchors the offset that commits advance from
	if w.offset < 0 {
		w.offset = rec.Offset
	}
	w.recordWrite(encodedPartition, rec.Offset)
	w.recordCounter++
	w.metrics.recordsWritten.Inc()
	return nil
}

// logCloseError logs a data error encountered discarding an open temp file
// during Close; these are swallowed per-partition, not propagated
// (spec.md §7).
func (w *PartitionWriter) logCloseError(encodedPartition string, err error) {
	level.Warn(w.logger).Log("msg", "error discarding temp file on close", "topic", w.topic, "partition", w.partition, "encodedPartition", encodedPartition, "err", err)
}

// Close discards any in-progress temp files and closes the WAL; it never
// commits partial work (spec.md §3, §5). Errors discarding temp files are
// logged and swallowed per partition; the WAL close is always attempted.
func (w *PartitionWriter) Close() error {
	w.discardOpenTempFiles()
	return w.wal.Close()
}
