package sink

import (
	"container/list"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

// recordBuffer is the FIFO of arriving records (spec §3, §4.2). It is
// unbounded; backpressure is the host's pause/resume of upstream
// consumption, not a capacity limit here. No lock: Buffer and the write
// loop are invoked from the same host thread only (spec §5).
type recordBuffer struct {
	records *list.List
}

func newRecordBuffer() *recordBuffer {
	return &recordBuffer{records: list.New()}
}

func (b *recordBuffer) push(r *ingest.Record) {
	b.records.PushBack(r)
}

func (b *recordBuffer) peek() *ingest.Record {
	front := b.records.Front()
	if front == nil {
		return nil
	}
	return front.Value.(*ingest.Record)
}

func (b *recordBuffer) pop() {
	front := b.records.Front()
	if front != nil {
		b.records.Remove(front)
	}
}

func (b *recordBuffer) empty() bool {
	return b.records.Len() == 0
}

func (b *recordBuffer) len() int {
	return b.records.Len()
}
