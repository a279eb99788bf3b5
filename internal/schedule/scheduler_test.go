package schedule

import (
	"reflect"
	"testing"
)

func TestPollRunsInDueThenInsertionOrder(t *testing.T) {
	s := New()
	var order []string
	record := func(name string) Func {
		return func(uint64) { order = append(order, name) }
	}
	s.After("a", 3, "late", record("late"))
	s.After("b", 1, "first", record("first"))
	s.After("c", 1, "second", record("second"))

	if ran := s.Poll(0); ran != 0 {
		t.Fatalf("expected nothing due at tick 0, ran %d", ran)
	}
	if ran := s.Poll(2); ran != 2 {
		t.Fatalf("expected 2 tasks at tick 2, ran %d", ran)
	}
	if ran := s.Poll(3); ran != 1 {
		t.Fatalf("expected 1 task at tick 3, ran %d", ran)
	}
	want := []string{"first", "second", "late"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", s.Len())
	}
}

func TestCancelAndCancelOwner(t *testing.T) {
	s := New()
	fired := map[string]bool{}
	mark := func(name string) Func { return func(uint64) { fired[name] = true } }

	id := s.After("npc-1", 1, "wait", mark("wait"))
	s.After("npc-2", 1, "wait", mark("other"))
	s.After("npc-2", 2, "confused", mark("other-late"))

	if !s.Cancel(id) {
		t.Fatalf("expected cancel to succeed")
	}
	if s.Cancel(id) {
		t.Fatalf("expected second cancel to report false")
	}
	if n := s.CancelOwner("npc-2"); n != 2 {
		t.Fatalf("expected 2 owner tasks cancelled, got %d", n)
	}
	if s.Pending("npc-2") != 0 {
		t.Fatalf("expected no pending tasks for npc-2")
	}
	s.Poll(10)
	if len(fired) != 0 {
		t.Fatalf("expected no callbacks after cancellation, got %v", fired)
	}
}

func TestTasksScheduledDuringPollWait(t *testing.T) {
	s := New()
	runs := 0
	s.After("loop", 0, "chain", func(now uint64) {
		runs++
		s.After("loop", 0, "chain", func(uint64) { runs++ })
	})

	s.Poll(1)
	if runs != 1 {
		t.Fatalf("expected follow-up task to wait for next poll, runs=%d", runs)
	}
	s.Poll(1)
	if runs != 2 {
		t.Fatalf("expected follow-up task on next poll, runs=%d", runs)
	}
}

func TestCancelDuringPollSkipsDeferredTask(t *testing.T) {
	s := New()
	fired := false
	s.After("a", 0, "outer", func(uint64) {
		id := s.After("b", 0, "inner", func(uint64) { fired = true })
		s.Cancel(id)
	})
	s.Poll(1)
	s.Poll(2)
	if fired {
		t.Fatalf("expected cancelled task not to run")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", s.Len())
	}
}
