package channel

import "sync"

// queue is an unbounded FIFO of protocol lines with an explicit closed
// state. Any number of goroutines may push; one goroutine drains.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []string
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends line. It reports false, discarding line, once the queue is
// closed.
func (q *queue) push(line string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.items = append(q.items, line)
	q.cond.Signal()
	return true
}

// close stops further pushes. Items already queued can still be drained.
func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// drain blocks until at least one item is queued, then removes and returns
// everything queued. ok is false once the queue is closed and empty.
func (q *queue) drain() (items []string, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	items = q.items
	q.items = nil
	return items, true
}

// discard drops everything queued and closes the queue. It returns how many
// items were dropped.
func (q *queue) discard() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
	return n
}
