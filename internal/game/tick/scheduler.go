// Package tick provides the single-threaded deferred task queue that drives every
// timed behaviour of the combat engine: status expiry, buff expiry, ability
// cooldowns and projection returns.
//
// A Scheduler is owned by exactly one goroutine (the game tick loop). It performs
// no locking; callers must serialise access.
package tick

import (
	"container/heap"
	"math"
)

// Tick is a game tick number. The first Advance moves the clock from 0 to 1.
type Tick int64

// Never is the latest representable tick. Delays that would pass it saturate here.
const Never = Tick(math.MaxInt64)

// Handle identifies a scheduled task. The zero Handle is never issued.
type Handle uint64

type task struct {
	handle Handle
	owner  string
	due    Tick
	seq    uint64
	fn     func()
	index  int
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}

// Scheduler runs callbacks on future ticks of the owning goroutine.
type Scheduler struct {
	now    Tick
	seq    uint64
	queue  taskQueue
	tasks  map[Handle]*task
	owners map[string]map[Handle]struct{}
}

// New returns an empty Scheduler positioned at tick 0.
func New() *Scheduler {
	return &Scheduler{
		tasks:  make(map[Handle]*task),
		owners: make(map[string]map[Handle]struct{}),
	}
}

// Now returns the current tick.
func (s *Scheduler) Now() Tick { return s.now }

// After schedules fn to run delay ticks from now on behalf of owner.
// A delay below 1 is treated as 1: nothing scheduled ever runs on the current tick.
// A delay reaching past Never is due at Never.
//
// Precondition: fn must not be nil.
// Postcondition: Returns a non-zero Handle; Pending(owner) is incremented.
func (s *Scheduler) After(owner string, delay int, fn func()) Handle {
	if delay < 1 {
		delay = 1
	}
	due := Never
	if Tick(delay) < Never-s.now {
		due = s.now + Tick(delay)
	}
	s.seq++
	t := &task{
		handle: Handle(s.seq),
		owner:  owner,
		due:    due,
		seq:    s.seq,
		fn:     fn,
	}
	heap.Push(&s.queue, t)
	s.tasks[t.handle] = t
	set, ok := s.owners[owner]
	if !ok {
		set = make(map[Handle]struct{})
		s.owners[owner] = set
	}
	set[t.handle] = struct{}{}
	return t.handle
}

// Cancel removes the task identified by h. It reports whether a pending task was removed.
func (s *Scheduler) Cancel(h Handle) bool {
	t, ok := s.tasks[h]
	if !ok {
		return false
	}
	if t.index >= 0 {
		heap.Remove(&s.queue, t.index)
	}
	s.forget(t)
	return true
}

// CancelOwner cancels every pending task registered for owner and returns how many
// were removed.
//
// Postcondition: Pending(owner) == 0.
func (s *Scheduler) CancelOwner(owner string) int {
	set, ok := s.owners[owner]
	if !ok {
		return 0
	}
	n := 0
	for h := range set {
		if s.Cancel(h) {
			n++
		}
	}
	delete(s.owners, owner)
	return n
}

// Pending returns the number of tasks still scheduled for owner.
func (s *Scheduler) Pending(owner string) int {
	return len(s.owners[owner])
}

// Len returns the total number of pending tasks.
func (s *Scheduler) Len() int { return len(s.tasks) }

// Due reports the tick at which h fires, or false if h is not pending.
func (s *Scheduler) Due(h Handle) (Tick, bool) {
	t, ok := s.tasks[h]
	if !ok {
		return 0, false
	}
	return t.due, true
}

// Advance moves the clock forward by one tick and runs every task that is due,
// ordered by due tick then by scheduling order. Tasks scheduled by a running
// callback are never due on the same tick.
//
// Postcondition: Returns the number of callbacks executed.
func (s *Scheduler) Advance() int {
	s.now++
	ran := 0
	for len(s.queue) > 0 && s.queue[0].due <= s.now {
		t := heap.Pop(&s.queue).(*task)
		s.forget(t)
		t.fn()
		ran++
	}
	return ran
}

// AdvanceBy calls Advance n times and returns the total number of callbacks executed.
func (s *Scheduler) AdvanceBy(n int) int {
	ran := 0
	for i := 0; i < n; i++ {
		ran += s.Advance()
	}
	return ran
}

func (s *Scheduler) forget(t *task) {
	delete(s.tasks, t.handle)
	if set, ok := s.owners[t.owner]; ok {
		delete(set, t.handle)
		if len(set) == 0 {
			delete(s.owners, t.owner)
		}
	}
}
