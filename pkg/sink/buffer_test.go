package sink

import (
	"testing"

	"github.com/nimbusdata/hdfssink/pkg/ingest"
)

func TestRecordBuffer_EmptyInitially(t *testing.T) {
	b := newRecordBuffer()
	if !b.empty() {
		t.Fatalf("new buffer should be empty")
	}
	if b.peek() != nil {
		t.Fatalf("peek() on empty buffer should return nil")
	}
	if b.len() != 0 {
		t.Fatalf("len() on empty buffer should be 0")
	}
}

func TestRecordBuffer_FIFOOrder(t *testing.T) {
	b := newRecordBuffer()
	r1 := &ingest.Record{Offset: 1}
	r2 := &ingest.Record{Offset: 2}
	r3 := &ingest.Record{Offset: 3}

	b.push(r1)
	b.push(r2)
	b.push(r3)

	if b.len() != 3 {
		t.Fatalf("len() = %d, want 3", b.len())
	}

	for _, want := range []*ingest.Record{r1, r2, r3} {
		if got := b.peek(); got != want {
			t.Fatalf("peek() = %v, want %v", got, want)
		}
		b.pop()
	}

	if !b.empty() {
		t.Fatalf("buffer should be empty after popping every record")
	}
}

func TestRecordBuffer_PopOnEmptyIsNoop(t *testing.T) {
	b := newRecordBuffer()
	b.pop()
	if !b.empty() {
		t.Fatalf("pop() on an empty buffer should remain a no-op")
	}
}
