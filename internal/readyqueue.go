// Ready-Queue Bank: N per-level FIFO queues, each with its own mutex and
// condition variable. A worker's dispatch pick (dequeue_any) scans levels
// 0..N-1 in strict priority order, acquiring and waiting on exactly one
// level's lock at a time -- two level mutexes are never held
// simultaneously, so the boost coordinator and the worker pool can never
// deadlock against each other.

package schedsim_internal

import "sync"

type ReadyQueueBank struct {
	mu   []sync.Mutex
	cond []*sync.Cond
	q    [][]*Task
}

func NewReadyQueueBank(numLevels int) *ReadyQueueBank {
	if numLevels < 1 {
		numLevels = 1
	}
	b := &ReadyQueueBank{
		mu:   make([]sync.Mutex, numLevels),
		cond: make([]*sync.Cond, numLevels),
		q:    make([][]*Task, numLevels),
	}
	for lvl := range b.cond {
		b.cond[lvl] = sync.NewCond(&b.mu[lvl])
	}
	return b
}

func (b *ReadyQueueBank) NumLevels() int { return len(b.q) }

// Enqueue appends t to the tail of level's queue and wakes one waiter
// parked on that level's condition variable.
func (b *ReadyQueueBank) Enqueue(level int, t *Task) {
	b.mu[level].Lock()
	b.q[level] = append(b.q[level], t)
	b.mu[level].Unlock()
	b.cond[level].Signal()
}

// Broadcast wakes every waiter parked on a single level's condition
// variable without altering that level's queue; used by the priority
// boost coordinator, which broadcasts exactly the non-empty levels above
// 0 rather than the whole bank.
func (b *ReadyQueueBank) Broadcast(level int) {
	b.mu[level].Lock()
	b.cond[level].Broadcast()
	b.mu[level].Unlock()
}

// BroadcastAll wakes every waiter at every level; used by Shutdown so
// that a worker parked at any level notices the STOP/HALT transition
// immediately.
func (b *ReadyQueueBank) BroadcastAll() {
	for lvl := range b.q {
		b.Broadcast(lvl)
	}
}

// Len reports the current depth of a level.
func (b *ReadyQueueBank) Len(level int) int {
	b.mu[level].Lock()
	defer b.mu[level].Unlock()
	return len(b.q[level])
}

// Empty reports whether every level is currently empty.
func (b *ReadyQueueBank) Empty() bool {
	for lvl := range b.q {
		if b.Len(lvl) > 0 {
			return false
		}
	}
	return true
}

// DrainLevel removes and returns every task currently queued at level,
// leaving the level empty. Used only by the HALT shutdown path to
// collect and terminate abandoned tasks -- never by the boost
// coordinator, which only signals workers and lets them pull their own
// candidate (see scheduler.go's workerLoop/runBoost split).
func (b *ReadyQueueBank) DrainLevel(level int) []*Task {
	b.mu[level].Lock()
	defer b.mu[level].Unlock()
	if len(b.q[level]) == 0 {
		return nil
	}
	drained := b.q[level]
	b.q[level] = nil
	return drained
}

// Dispatch is dequeue_any: it scans levels 0..N-1 in order, acquiring
// M[lvl] and waiting on C[lvl] until that level's queue is non-empty or
// a control flag (HALT, STOP, BOOST) is set. On wake, a non-empty queue
// is popped and returned immediately -- a worker that finds work at
// level i never inspects level i+1 on that dispatch cycle. An empty
// queue woken only by a flag falls through to the next level. If the
// whole bank turns out empty, the scan restarts from level 0 (so a
// stray BOOST wakeup that lost the race to another worker, or a STOP
// that still has lower-priority work left, is retried) until HALT is
// observed, or STOP is observed with every level checked empty.
func (b *ReadyQueueBank) Dispatch(flags *schedFlags) (task *Task, level int, halt bool) {
	for {
		for lvl := 0; lvl < len(b.q); lvl++ {
			b.mu[lvl].Lock()
			for len(b.q[lvl]) == 0 &&
				!flags.has(flagHalt) &&
				!flags.has(flagStop) &&
				!flags.has(flagBoost) {
				b.cond[lvl].Wait()
			}

			if flags.has(flagHalt) {
				b.mu[lvl].Unlock()
				return nil, 0, true
			}
			if len(b.q[lvl]) > 0 {
				t := b.q[lvl][0]
				b.q[lvl] = b.q[lvl][1:]
				b.mu[lvl].Unlock()
				return t, lvl, false
			}
			atBottom := lvl == len(b.q)-1
			b.mu[lvl].Unlock()

			if atBottom && flags.has(flagStop) {
				return nil, 0, false
			}
		}
	}
}
