package sink

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the per-writer instrumentation. Unlike the teacher's
// friggdb.go, which registers package-level promauto vars once for the
// whole process, each PartitionWriter here owns its own Metrics so that
// the topic/partition labels can be bound once at construction instead of
// passed on every call.
type Metrics struct {
	recordsBuffered prometheus.Counter
	recordsWritten  prometheus.Counter
	rotations       *prometheus.CounterVec
	commitDuration  prometheus.Histogram
	recoveryErrors  prometheus.Counter
	writeErrors     prometheus.Counter
	committedOffset prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer, topic string, partition int32) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"topic": topic, "partition": partitionLabel(partition)}

	return &Metrics{
		recordsBuffered: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "hdfssink",
			Name:        "records_buffered_total",
			Help:        "Total number of records accepted into the buffer.",
			ConstLabels: labels,
		}),
		recordsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "hdfssink",
			Name:        "records_written_total",
			Help:        "Total number of records written to temp files.",
			ConstLabels: labels,
		}),
		rotations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "hdfssink",
			Name:        "rotations_total",
			Help:        "Total number of rotations by trigger.",
			ConstLabels: labels,
		}, []string{"reason"}),
		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "hdfssink",
			Name:        "commit_duration_seconds",
			Help:        "Time spent promoting temp files to committed files.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}),
		recoveryErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "hdfssink",
			Name:        "recovery_errors_total",
			Help:        "Total number of transient errors encountered during recovery.",
			ConstLabels: labels,
		}),
		writeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   "hdfssink",
			Name:        "write_errors_total",
			Help:        "Total number of transient errors encountered during the write loop.",
			ConstLabels: labels,
		}),
		committedOffset: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   "hdfssink",
			Name:        "committed_offset",
			Help:        "Last committed offset + 1 for this partition.",
			ConstLabels: labels,
		}),
	}
}

func partitionLabel(p int32) string {
	return strconv.Itoa(int(p))
}
