// fifo_queue.go
package jobqueue

const (
	initialFifoCapacity = 64
)

// fifoQueue is the backlog: a growable first-in–first-out ring buffer.
//
// Entries come out strictly in the order they were pushed.
// No priorities, no aging, no reordering.
// It is not safe for concurrent use; the queue guards it with its mutex.
type fifoQueue[E any] struct {
	buf        []E // circular buffer
	head, tail int // read/write indices
	size       int // number of entries currently buffered
	capacity   int
}

// newFifoQueue creates a FIFO with the given initial capacity.
// The buffer doubles whenever a push finds it full.
func newFifoQueue[E any](cap int) *fifoQueue[E] {
	if cap <= 0 {
		cap = initialFifoCapacity
	}
	return &fifoQueue[E]{
		buf:      make([]E, cap),
		capacity: cap,
	}
}

// Len returns the number of entries currently buffered.
func (q *fifoQueue[E]) Len() int { return q.size }

// Push inserts e at the tail.
func (q *fifoQueue[E]) Push(e E) {
	if q.size == q.capacity {
		q.grow()
	}
	q.buf[q.tail] = e
	q.tail++
	if q.tail == q.capacity {
		q.tail = 0
	}
	q.size++
}

// Pop removes and returns the oldest entry.
//
// If the queue is empty, returns the zero value and false.
func (q *fifoQueue[E]) Pop() (E, bool) {
	var zero E
	if q.size == 0 {
		return zero, false
	}
	e := q.buf[q.head]
	q.buf[q.head] = zero // drop the reference for the GC
	q.head++
	if q.head == q.capacity {
		q.head = 0
	}
	q.size--
	return e, true
}

// Drain pops every entry in order and returns them.
func (q *fifoQueue[E]) Drain() []E {
	out := make([]E, 0, q.size)
	for {
		e, ok := q.Pop()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}

// grow doubles the buffer and unwraps the ring so head starts at 0.
func (q *fifoQueue[E]) grow() {
	newCap := q.capacity * 2
	buf := make([]E, newCap)
	n := copy(buf, q.buf[q.head:])
	copy(buf[n:], q.buf[:q.head])
	q.buf = buf
	q.head = 0
	q.tail = q.size
	q.capacity = newCap
}
