// Package fanout broadcasts seat-state events to everyone currently viewing
// a showtime's seat map.
package fanout

import (
	"sync"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

const subscriberBuffer = 16

// Fanout is a per-showtime publish/subscribe registry. Delivery is
// best-effort, at-most-once: a subscriber that falls behind has events
// dropped rather than blocking the publisher. A dropped event is self-healing
// because clients re-fetch the full seat map on reconnect.
type Fanout struct {
	mu        sync.Mutex
	showtimes map[int]map[chan domain.SeatEvent]struct{}
}

func New() *Fanout {
	return &Fanout{
		showtimes: make(map[int]map[chan domain.SeatEvent]struct{}),
	}
}

// Subscribe registers a new viewer of a showtime and returns its event
// channel.
func (f *Fanout) Subscribe(showtimeID int) chan domain.SeatEvent {
	ch := make(chan domain.SeatEvent, subscriberBuffer)

	f.mu.Lock()
	subs, ok := f.showtimes[showtimeID]
	if !ok {
		subs = make(map[chan domain.SeatEvent]struct{})
		f.showtimes[showtimeID] = subs
	}
	subs[ch] = struct{}{}
	f.mu.Unlock()

	return ch
}

// Unsubscribe removes a viewer and closes its channel. Safe to call more
// than once for the same channel.
func (f *Fanout) Unsubscribe(showtimeID int, ch chan domain.SeatEvent) {
	f.mu.Lock()
	if subs, ok := f.showtimes[showtimeID]; ok {
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
		if len(subs) == 0 {
			delete(f.showtimes, showtimeID)
		}
	}
	f.mu.Unlock()
}

// Publish delivers an event to every subscriber of the showtime. It never
// blocks: lagging subscribers have the event dropped.
func (f *Fanout) Publish(showtimeID int, event domain.SeatEvent) {
	f.mu.Lock()
	for ch := range f.showtimes[showtimeID] {
		select {
		case ch <- event:
		default:
		}
	}
	f.mu.Unlock()
}

// Subscribers reports how many viewers a showtime currently has.
func (f *Fanout) Subscribers(showtimeID int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.showtimes[showtimeID])
}
