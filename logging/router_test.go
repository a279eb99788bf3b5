package logging

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (s *recordingSink) Write(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestRouterFiltersPerSink(t *testing.T) {
	all := &recordingSink{}
	incidents := &recordingSink{}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	cfg := DefaultConfig()
	cfg.MinimumSeverity = SeverityDebug
	cfg.Fields = map[string]any{"run": "test"}
	router, err := NewRouter(ClockFunc(func() time.Time { return fixed }), cfg, []NamedSink{
		{Name: "all", Sink: all},
		{Name: "incidents", Sink: incidents, Categories: []string{CategoryDispatch}, MinSeverity: SeverityInfo},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	router.Publish(ctx, Event{Type: "dispatch.disturbance_raised", Severity: SeverityInfo, Category: CategoryDispatch})
	router.Publish(ctx, Event{Type: "dispatch.debug", Severity: SeverityDebug, Category: CategoryDispatch})
	router.Publish(ctx, Event{Type: "lifecycle.agent_spawned", Severity: SeverityInfo, Category: CategoryLifecycle})
	router.Publish(ctx, Event{})

	if err := router.Close(ctx); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	if got := len(all.snapshot()); got != 3 {
		t.Fatalf("expected 3 events on unfiltered sink, got %d", got)
	}
	filtered := incidents.snapshot()
	if len(filtered) != 1 || filtered[0].Type != "dispatch.disturbance_raised" {
		t.Fatalf("expected only the dispatch info event, got %+v", filtered)
	}
	if !filtered[0].Time.Equal(fixed) {
		t.Fatalf("expected router clock timestamp, got %v", filtered[0].Time)
	}
	if filtered[0].Extra["run"] != "test" {
		t.Fatalf("expected router fields merged, got %v", filtered[0].Extra)
	}
	if !all.closed || !incidents.closed {
		t.Fatalf("expected sinks closed")
	}

	stats := router.Stats()
	if stats.EventsTotal != 3 || stats.Sinks["incidents"].Written != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Categories[CategoryDispatch] != 2 || stats.Categories[CategoryLifecycle] != 1 {
		t.Fatalf("unexpected category counts: %v", stats.Categories)
	}
}

type failingSink struct {
	recordingSink
	calls atomic.Int32
}

func (s *failingSink) Write(event Event) error {
	s.calls.Add(1)
	return errors.New("disk full")
}

func TestFailingSinkDoesNotStarveOthers(t *testing.T) {
	healthy := &recordingSink{}
	broken := &failingSink{}
	router, _ := NewRouter(nil, DefaultConfig(), []NamedSink{
		{Name: "broken", Sink: broken},
		{Name: "healthy", Sink: healthy},
	})
	router.Publish(context.Background(), Event{Type: "detection.player_identified", Severity: SeverityWarn, Category: CategoryDetection})

	deadline := time.Now().Add(time.Second)
	for len(healthy.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected healthy sink to receive the event")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if got := router.Stats().Sinks["broken"].Failed; got != 1 {
		t.Fatalf("expected 1 failure on broken sink, got %d", got)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	delay := time.Duration(0)
	for i := 0; i < 10; i++ {
		delay = nextBackoff(delay)
	}
	if delay != maxSinkBackoff {
		t.Fatalf("expected backoff capped at %s, got %s", maxSinkBackoff, delay)
	}
}

func TestRouterDropsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	router, _ := NewRouter(nil, DefaultConfig(), []NamedSink{{Name: "rec", Sink: sink}})
	if err := router.Close(context.Background()); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	router.Publish(context.Background(), Event{Type: "late", Severity: SeverityError})
	if got := len(sink.snapshot()); got != 0 {
		t.Fatalf("expected no events after close, got %d", got)
	}
}

func TestWithFieldsDoesNotOverwrite(t *testing.T) {
	var got Event
	pub := WithFields(PublisherFunc(func(_ context.Context, e Event) { got = e }), map[string]any{"a": 1, "b": 2})
	original := Event{Type: "x", Extra: map[string]any{"a": "kept"}}
	pub.Publish(context.Background(), original)

	if got.Extra["a"] != "kept" || got.Extra["b"] != 2 {
		t.Fatalf("unexpected extras: %v", got.Extra)
	}
	if _, leaked := original.Extra["b"]; leaked {
		t.Fatalf("expected original event untouched")
	}
}

func TestMultiPublishesToAll(t *testing.T) {
	count := 0
	inc := PublisherFunc(func(context.Context, Event) { count++ })
	Multi(inc, nil, inc).Publish(context.Background(), Event{Type: "x"})
	if count != 2 {
		t.Fatalf("expected 2 deliveries, got %d", count)
	}
}
