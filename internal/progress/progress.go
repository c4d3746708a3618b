package progress

import (
	"sort"
	"sync"

	evbus "github.com/asaskevich/EventBus"

	"github.com/ronled86/ClipPilot/internal/model"
)

// Topic is the bus topic carrying job events.
const Topic = "job:progress"

// Event is one job-progress notification.
// Progress is 0..100 within the current stage.
type Event struct {
	JobID    string          `json:"jobId"`
	Progress float64         `json:"progress"`
	Status   model.JobStatus `json:"status"`
	Message  string          `json:"message,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Terminal reports whether the event closes the job.
func (e Event) Terminal() bool { return e.Status.IsTerminal() }

// Reporter is implemented by anything that wants job events.
type Reporter interface {
	Report(e Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(e Event)

func (f ReporterFunc) Report(e Event) { f(e) }

// Bus fans job events out to any number of subscribers.
type Bus struct {
	bus evbus.Bus

	mu   sync.RWMutex
	subs map[int]func(Event)
	next int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	b := &Bus{bus: evbus.New(), subs: make(map[int]func(Event))}
	// EventBus matches handlers by code pointer, which cannot tell two
	// closures of the same literal apart, so a single dispatcher is
	// registered and subscribers are tracked here.
	_ = b.bus.Subscribe(Topic, b.dispatch)
	return b
}

// Report publishes e synchronously to every subscriber.
func (b *Bus) Report(e Event) {
	b.bus.Publish(Topic, e)
}

// dispatch calls subscribers in the order they subscribed.
func (b *Bus) dispatch(e Event) {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), len(ids))
	for i, id := range ids {
		fns[i] = b.subs[id]
	}
	b.mu.RUnlock()
	for _, fn := range fns {
		fn(e)
	}
}

// Subscribe registers fn and returns a function that removes it.
// fn runs on the publisher's goroutine and must not block for long.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Channel subscribes a buffered channel. Non-terminal events are dropped
// when the buffer is full; terminal events block until delivered or the
// returned cancel func is called.
func (b *Bus) Channel(size int) (<-chan Event, func()) {
	ch := make(chan Event, size)
	done := make(chan struct{})
	unsub := b.Subscribe(func(e Event) {
		if e.Terminal() {
			select {
			case ch <- e:
			case <-done:
			}
			return
		}
		select {
		case ch <- e:
		case <-done:
		default:
		}
	})
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			close(done)
			unsub()
		})
	}
}
