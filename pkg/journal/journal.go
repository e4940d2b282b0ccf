package journal

import (
	"sync"
	"time"
)

// Event is one completed or failed file movement.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Peer      string    `json:"peer"`
	Direction string    `json:"direction"` // push | pull | recv | serve
	Bytes     int64     `json:"bytes"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
}

// Journal keeps a bounded in-memory log of transfer outcomes and fans
// events out to live subscribers (the websocket feed). Slow subscribers
// lose events rather than block the recorder.
type Journal struct {
	mu     sync.RWMutex
	max    int
	events []Event
	subs   map[chan Event]struct{}
}

func New(max int) *Journal {
	if max <= 0 {
		max = 256
	}
	return &Journal{max: max, subs: map[chan Event]struct{}{}}
}

func (j *Journal) Record(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	j.mu.Lock()
	j.events = append(j.events, e)
	if len(j.events) > j.max {
		j.events = j.events[len(j.events)-j.max:]
	}
	for ch := range j.subs {
		select {
		case ch <- e:
		default:
		}
	}
	j.mu.Unlock()
}

// Recent returns the retained events, oldest first.
func (j *Journal) Recent() []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Event, len(j.events))
	copy(out, j.events)
	return out
}

func (j *Journal) Subscribe() chan Event {
	ch := make(chan Event, 16)
	j.mu.Lock()
	j.subs[ch] = struct{}{}
	j.mu.Unlock()
	return ch
}

func (j *Journal) Unsubscribe(ch chan Event) {
	j.mu.Lock()
	delete(j.subs, ch)
	j.mu.Unlock()
	close(ch)
}
