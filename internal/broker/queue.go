package broker

import "sync"

// frameQueue is the bounded outbound queue of one connection. When full,
// Push evicts the oldest entry so the newest state is always retained.
// One producer (the hub) and one consumer (the connection's writer) touch
// it, so the critical sections stay tiny.
type frameQueue struct {
	mu       sync.Mutex
	buf      [][]byte
	head     int
	size     int
	overflow uint64
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &frameQueue{buf: make([][]byte, capacity)}
}

// Push enqueues data. It never blocks; on a full queue the oldest frame is
// dropped and the overflow counter incremented.
func (q *frameQueue) Push(data []byte) (dropped bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == len(q.buf) {
		// evict oldest
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
		q.overflow++
		dropped = true
	}
	tail := (q.head + q.size) % len(q.buf)
	q.buf[tail] = data
	q.size++
	return dropped
}

// Peek returns the oldest frame without removing it. The writer peeks,
// writes, then Advances, so a failed write leaves the frame queued for
// resumption replay.
func (q *frameQueue) Peek() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil, false
	}
	return q.buf[q.head], true
}

func (q *frameQueue) Advance() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return
	}
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
}

func (q *frameQueue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.size == 0 {
		return nil, false
	}
	data := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return data, true
}

// Drain removes and returns everything queued, oldest first.
func (q *frameQueue) Drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([][]byte, 0, q.size)
	for q.size > 0 {
		out = append(out, q.buf[q.head])
		q.buf[q.head] = nil
		q.head = (q.head + 1) % len(q.buf)
		q.size--
	}
	return out
}

func (q *frameQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *frameQueue) Cap() int {
	return len(q.buf)
}

// Utilization is the fill ratio in [0,1], used for backpressure decisions.
func (q *frameQueue) Utilization() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float64(q.size) / float64(len(q.buf))
}

func (q *frameQueue) Overflow() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.overflow
}
