package bufferpool

import (
	"testing"
	"time"
)

func TestPoolConservation(t *testing.T) {
	const n = 8
	bq := NewBufferQueues(64, n)

	if got := bq.Empty.Len() + bq.Filled.Len(); got != n {
		t.Fatalf("empty+filled = %d, want %d", got, n)
	}

	// Move half the pool into flight, then into filled.
	var inFlight []*ReadoutBuffer
	for i := 0; i < n/2; i++ {
		buf, ok := bq.Empty.Dequeue(time.Second)
		if !ok {
			t.Fatalf("Dequeue timed out")
		}
		inFlight = append(inFlight, buf)
	}

	if got := bq.Empty.Len() + bq.Filled.Len() + len(inFlight); got != n {
		t.Fatalf("empty+filled+inFlight = %d, want %d", got, n)
	}

	for _, buf := range inFlight {
		bq.Filled.Enqueue(buf)
	}

	if got := bq.Empty.Len() + bq.Filled.Len(); got != n {
		t.Fatalf("after return: empty+filled = %d, want %d", got, n)
	}
}

func TestDequeueTimeout(t *testing.T) {
	bq := NewBufferQueues(64, 1)
	if _, ok := bq.Empty.Dequeue(time.Second); !ok {
		t.Fatalf("expected to dequeue the sole buffer")
	}
	start := time.Now()
	_, ok := bq.Empty.Dequeue(20 * time.Millisecond)
	if ok {
		t.Fatalf("expected timeout, got a buffer")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
}

func TestMonotonicBufferNumbers(t *testing.T) {
	bq := NewBufferQueues(64, 4)
	var last int64 = -1
	var seq int64
	for i := 0; i < 4; i++ {
		buf, ok := bq.Empty.Dequeue(time.Second)
		if !ok {
			t.Fatalf("Dequeue timed out")
		}
		buf.SetNumber(seq)
		seq++
		if buf.Number() <= last {
			t.Errorf("buffer number %d not strictly greater than previous %d", buf.Number(), last)
		}
		last = buf.Number()
	}
}
