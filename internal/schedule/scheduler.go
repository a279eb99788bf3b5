// Package schedule is the simulation's single deferred-work queue. Every
// delayed callback (wait timers, confusion pauses, illicit-act expiry) is a
// task keyed by its owner so that destroying an entity can cancel everything
// it left behind.
package schedule

import "container/heap"

// TaskID identifies a scheduled task. The zero value is never issued.
type TaskID uint64

// Func runs when a task comes due. now is the tick being polled.
type Func func(now uint64)

type task struct {
	id    TaskID
	owner string
	label string
	due   uint64
	seq   uint64
	fn    Func
	index int
	dead  bool
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].due == q[j].due {
		return q[i].seq < q[j].seq
	}
	return q[i].due < q[j].due
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	item := x.(*task)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// Scheduler is a min-heap of tasks ordered by due tick then insertion order.
// It is not safe for concurrent use; the simulation polls it once per tick.
type Scheduler struct {
	queue   taskQueue
	byID    map[TaskID]*task
	byOwner map[string]map[TaskID]*task
	nextID  TaskID
	seq     uint64
	now     uint64
}

func New() *Scheduler {
	return &Scheduler{
		byID:    make(map[TaskID]*task),
		byOwner: make(map[string]map[TaskID]*task),
	}
}

// Now is the tick of the most recent Poll.
func (s *Scheduler) Now() uint64 {
	return s.now
}

// After schedules fn to run delay ticks after the current tick. A zero delay
// runs on the next Poll.
func (s *Scheduler) After(owner string, delay uint64, label string, fn Func) TaskID {
	return s.At(owner, s.now+delay, label, fn)
}

// At schedules fn for an absolute tick. Ticks already in the past run on the
// next Poll.
func (s *Scheduler) At(owner string, due uint64, label string, fn Func) TaskID {
	s.nextID++
	s.seq++
	t := &task{
		id:    s.nextID,
		owner: owner,
		label: label,
		due:   due,
		seq:   s.seq,
		fn:    fn,
	}
	heap.Push(&s.queue, t)
	s.byID[t.id] = t
	owned := s.byOwner[owner]
	if owned == nil {
		owned = make(map[TaskID]*task)
		s.byOwner[owner] = owned
	}
	owned[t.id] = t
	return t.id
}

// Cancel removes a pending task. It reports false when the task already ran
// or was cancelled.
func (s *Scheduler) Cancel(id TaskID) bool {
	t, ok := s.byID[id]
	if !ok {
		return false
	}
	s.drop(t)
	s.forget(t)
	return true
}

// CancelOwner cancels every pending task belonging to owner.
func (s *Scheduler) CancelOwner(owner string) int {
	owned := s.byOwner[owner]
	count := 0
	for _, t := range owned {
		s.drop(t)
		delete(s.byID, t.id)
		count++
	}
	delete(s.byOwner, owner)
	return count
}

// Pending counts owner's outstanding tasks.
func (s *Scheduler) Pending(owner string) int {
	return len(s.byOwner[owner])
}

// Len counts every outstanding task.
func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// Poll advances the clock to now and runs every task due at or before it in
// (due, insertion) order. Tasks scheduled by callbacks during the poll wait
// for the next one.
func (s *Scheduler) Poll(now uint64) int {
	if now > s.now {
		s.now = now
	}
	limit := s.seq
	ran := 0
	var deferred []*task
	for s.queue.Len() > 0 && s.queue[0].due <= now {
		next := heap.Pop(&s.queue).(*task)
		if next.seq > limit {
			deferred = append(deferred, next)
			continue
		}
		s.forget(next)
		if next.fn != nil {
			next.fn(now)
		}
		ran++
	}
	for _, t := range deferred {
		if !t.dead {
			heap.Push(&s.queue, t)
		}
	}
	return ran
}

// drop removes t from the heap, or marks it dead when Poll has already
// popped it.
func (s *Scheduler) drop(t *task) {
	if t.index >= 0 && t.index < s.queue.Len() && s.queue[t.index] == t {
		heap.Remove(&s.queue, t.index)
		return
	}
	t.dead = true
}

func (s *Scheduler) forget(t *task) {
	delete(s.byID, t.id)
	if owned := s.byOwner[t.owner]; owned != nil {
		delete(owned, t.id)
		if len(owned) == 0 {
			delete(s.byOwner, t.owner)
		}
	}
}
