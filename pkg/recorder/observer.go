package recorder

import (
	"sync"

	"github.com/AstraSolis/quicklog/pkg/model"
)

// EventKind discriminates observer events.
type EventKind string

const (
	// EventLog fires for every dispatched entry.
	EventLog EventKind = "log"
	// EventError fires when the pipeline itself fails.
	EventError EventKind = "error"
)

// Event is delivered to observers. Entry is set for log events; Op
// names the failing operation and Err the cause for error events.
type Event struct {
	Kind  EventKind
	Entry *model.LogEntry
	Op    string
	Err   error
}

// Observer receives events. Observers run synchronously on the
// recording goroutine and should return quickly.
type Observer func(Event)

type observers struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Observer
}

func newObservers() *observers {
	return &observers{subs: make(map[int]Observer)}
}

func (o *observers) subscribe(fn Observer) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.nextID++
	o.subs[o.nextID] = fn
	return o.nextID
}

func (o *observers) unsubscribe(id int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.subs, id)
}

func (o *observers) clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = make(map[int]Observer)
}

// emit delivers ev to every subscriber. A panicking observer is
// recovered so it cannot break the recording call or starve the
// remaining observers.
func (o *observers) emit(ev Event) {
	o.mu.RLock()
	fns := make([]Observer, 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.RUnlock()

	for _, fn := range fns {
		func() {
			defer func() {
				_ = recover()
			}()
			fn(ev)
		}()
	}
}
