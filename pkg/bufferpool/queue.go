package bufferpool

import "time"

// Queue is a bounded FIFO of *ReadoutBuffer references, safe for concurrent
// single-producer/single-consumer (or MPMC) use. Enqueue never blocks
// beyond the channel's buffering — callers size the Queue to the pool
// count so producers never stall waiting for room.
type Queue struct {
	ch chan *ReadoutBuffer
}

// NewQueue returns a Queue able to hold up to capacity buffers without
// blocking a sender.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan *ReadoutBuffer, capacity)}
}

// Enqueue pushes ref onto the queue.
func (q *Queue) Enqueue(ref *ReadoutBuffer) {
	q.ch <- ref
}

// Dequeue pops the oldest buffer, waiting up to timeout. ok is false if the
// timeout elapsed with nothing available — not an error.
func (q *Queue) Dequeue(timeout time.Duration) (ref *ReadoutBuffer, ok bool) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case ref := <-q.ch:
		return ref, true
	case <-t.C:
		return nil, false
	}
}

// Len reports the number of buffers currently queued (not counting any
// in-flight holder).
func (q *Queue) Len() int { return len(q.ch) }

// BufferQueues pairs the empty and filled sides of the pool. At
// construction every buffer starts on the empty side; the sum of
// empty.Len()+filled.Len()+in-flight always equals the pool size.
type BufferQueues struct {
	Empty  *Queue
	Filled *Queue

	buffers []*ReadoutBuffer
}

// NewBufferQueues allocates count buffers of the given byte capacity and
// enqueues them all to the empty side.
func NewBufferQueues(bufferCapacity, count int) *BufferQueues {
	bq := &BufferQueues{
		Empty:  NewQueue(count),
		Filled: NewQueue(count),
	}
	bq.buffers = make([]*ReadoutBuffer, count)
	for i := range bq.buffers {
		bq.buffers[i] = NewReadoutBuffer(bufferCapacity)
		bq.Empty.Enqueue(bq.buffers[i])
	}
	return bq
}

// PoolSize returns the fixed total number of buffers in the pool.
func (bq *BufferQueues) PoolSize() int { return len(bq.buffers) }
