package crawler

import (
	"github.com/antigloss/go/concurrent/container/queue"
)

// entry is a URL waiting to be visited at a given depth.
type entry struct {
	url   string
	depth int
}

// frontier is the FIFO of entries still to visit in one crawl.
type frontier struct {
	q    *queue.LockfreeQueue
	size int
}

func newFrontier(first entry) *frontier {
	f := &frontier{q: queue.NewLockfreeQueue()}
	f.push(first)
	return f
}

func (f *frontier) push(e entry) {
	f.q.Push(e)
	f.size++
}

func (f *frontier) pop() (entry, bool) {
	if f.size == 0 {
		return entry{}, false
	}

	e, ok := f.q.Pop().(entry)
	if !ok {
		return entry{}, false
	}

	f.size--
	return e, true
}

func (f *frontier) len() int {
	return f.size
}
