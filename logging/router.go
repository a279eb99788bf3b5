package logging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

// NamedSink registers a sink with an optional filter. An empty Categories
// list accepts every category.
type NamedSink struct {
	Name        string
	Sink        Sink
	Categories  []string
	MinSeverity Severity
}

func (n NamedSink) accepts(event Event) bool {
	if event.Severity < n.MinSeverity {
		return false
	}
	if len(n.Categories) == 0 {
		return true
	}
	for _, c := range n.Categories {
		if c == event.Category {
			return true
		}
	}
	return false
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithFallback routes the router's own diagnostics (drops, sink failures)
// to logger.
func WithFallback(logger logrus.FieldLogger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.fallback = logger
		}
	}
}

const (
	defaultQueueSize     = 512
	defaultDropWarnEvery = 5 * time.Second
	maxSinkBackoff       = 32 * time.Second
)

// Router fans published events out to sinks without blocking the
// publisher. A full queue drops the event; a failing sink backs off on its
// own goroutine and never stalls the others.
type Router struct {
	cfg      Config
	queue    chan Event
	workers  []*sinkWorker
	clock    Clock
	fallback logrus.FieldLogger
	fields   map[string]any

	stop    chan struct{}
	closed  atomic.Bool
	started sync.Once
	wg      sync.WaitGroup

	published atomic.Uint64
	dropped   atomic.Uint64
	nextWarn  atomic.Int64

	catMu      sync.Mutex
	categories map[string]uint64
}

type RouterStats struct {
	EventsTotal  uint64               `json:"eventsTotal"`
	DroppedTotal uint64               `json:"droppedTotal"`
	Categories   map[string]uint64    `json:"categories"`
	Sinks        map[string]SinkStats `json:"sinks"`
}

type SinkStats struct {
	Written uint64 `json:"written"`
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

func NewRouter(clock Clock, cfg Config, namedSinks []NamedSink, opts ...RouterOption) (*Router, error) {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultQueueSize
	}
	r := &Router{
		cfg:        cfg,
		queue:      make(chan Event, size),
		clock:      clock,
		fallback:   logrus.StandardLogger().WithField("component", "logging"),
		fields:     cfg.CloneFields(),
		stop:       make(chan struct{}),
		categories: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(r)
	}

	perSink := min(max(size, 32), 1024)
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.workers = append(r.workers, &sinkWorker{
			NamedSink: named,
			events:    make(chan Event, perSink),
			log:       r.fallback.WithField("sink", named.Name),
		})
	}

	r.started.Do(r.start)
	return r, nil
}

func (r *Router) start() {
	for _, w := range r.workers {
		r.wg.Add(1)
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			for _, w := range r.workers {
				close(w.events)
			}
		}()
		for {
			select {
			case event := <-r.queue:
				r.route(event)
			case <-r.stop:
				for {
					select {
					case event := <-r.queue:
						r.route(event)
					default:
						return
					}
				}
			}
		}
	}()
}

func (r *Router) route(event Event) {
	if event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	if len(r.fields) > 0 {
		event = mergeFields(event, r.fields)
	}
	r.published.Add(1)
	r.catMu.Lock()
	r.categories[event.Category]++
	r.catMu.Unlock()

	for _, w := range r.workers {
		if w.accepts(event) {
			w.offer(Clone(event))
		}
	}
}

// Publish never blocks; events are dropped while the queue is full.
func (r *Router) Publish(_ context.Context, event Event) {
	if event.Type == "" || r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.drop(event)
	}
}

func (r *Router) drop(event Event) {
	r.dropped.Add(1)
	every := r.cfg.DropWarnInterval
	if every <= 0 {
		every = defaultDropWarnEvery
	}
	now := time.Now().UnixNano()
	next := r.nextWarn.Load()
	if now < next || !r.nextWarn.CompareAndSwap(next, now+every.Nanoseconds()) {
		return
	}
	r.fallback.WithFields(logrus.Fields{
		"type":     event.Type,
		"tick":     event.Tick,
		"category": event.Category,
		"dropped":  r.dropped.Load(),
	}).Warn("event queue full, dropping")
}

// Close drains queued events into the sinks and closes them. A second call
// only waits for ctx.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		<-ctx.Done()
		return ctx.Err()
	}
	close(r.stop)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, w := range r.workers {
		if err := w.Sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	stats := RouterStats{
		EventsTotal:  r.published.Load(),
		DroppedTotal: r.dropped.Load(),
		Categories:   make(map[string]uint64),
		Sinks:        make(map[string]SinkStats, len(r.workers)),
	}
	r.catMu.Lock()
	for category, n := range r.categories {
		stats.Categories[category] = n
	}
	r.catMu.Unlock()
	for _, w := range r.workers {
		stats.Sinks[w.Name] = SinkStats{
			Written: w.written.Load(),
			Dropped: w.dropped.Load(),
			Failed:  w.failed.Load(),
		}
	}
	return stats
}

func (r *Router) Sink(name string) Sink {
	for _, w := range r.workers {
		if w.Name == name {
			return w.Sink
		}
	}
	return nil
}

type sinkWorker struct {
	NamedSink
	events chan Event
	log    logrus.FieldLogger

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.events <- event:
	default:
		w.dropped.Add(1)
		w.log.Debugf("backlog full, dropping %s", event.Type)
	}
}

func (w *sinkWorker) run() {
	var backoff time.Duration
	for event := range w.events {
		if backoff > 0 {
			time.Sleep(backoff)
		}
		if err := w.Sink.Write(event); err != nil {
			w.failed.Add(1)
			backoff = nextBackoff(backoff)
			w.log.WithError(err).Warnf("write failed, retry in %s", backoff)
			continue
		}
		w.written.Add(1)
		backoff = 0
	}
}

func nextBackoff(current time.Duration) time.Duration {
	if current <= 0 {
		return 2 * time.Second
	}
	return min(current*2, maxSinkBackoff)
}
