package sinktask

import (
	"time"

	"github.com/go-kit/log/level"
	"github.com/twmb/franz-go/pkg/kgo"
)

// taskContext is the per-partition sink.SinkTaskContext backed by the
// task's shared kgo.Client (spec.md §6). Pause/Resume/Seek translate
// directly to the client's fetch-control calls; Timeout is informational
// only because the actual backoff gate lives in PartitionWriter.Write
// (failureTime + retry.backoff.ms), not in the host.
type taskContext struct {
	t *Task
}

func (c *taskContext) Pause(partition int32) {
	c.t.client.PauseFetchPartitions(map[string][]int32{c.t.cfg.Topic: {partition}})
}

func (c *taskContext) Resume(partition int32) {
	c.t.client.ResumeFetchPartitions(map[string][]int32{c.t.cfg.Topic: {partition}})
}

func (c *taskContext) Seek(partition int32, offset int64) {
	c.t.client.SetOffsets(map[string]map[int32]kgo.EpochOffset{
		c.t.cfg.Topic: {partition: kgo.EpochOffset{Epoch: -1, Offset: offset}},
	})
}

func (c *taskContext) Timeout(d time.Duration) {
	level.Debug(c.t.logger).Log("msg", "partition writer requested backoff", "topic", c.t.cfg.Topic, "duration", d)
}
