package reservation

import (
	"context"
	"fmt"
	"sync"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

// SeatMap holds the authoritative seat state of every showtime served by this
// process. State for a showtime is hydrated on first use: the seat catalog
// comes from the seat repository and already-booked seats are marked from the
// booking repository. Held seats are never hydrated here; the hold manager
// re-applies them during startup recovery.
//
// All mutation for one showtime happens under that showtime's own lock, so
// requests against the same showtime are serialized while different showtimes
// never contend. There is no lock spanning showtimes.
type SeatMap struct {
	seatRepo    domain.SeatRepository
	bookingRepo domain.BookingRepository
	events      EventSink

	mu        sync.Mutex
	showtimes map[int]*showtimeState
}

type showtimeState struct {
	mu    sync.Mutex
	seats map[int]domain.SeatState
	seq   uint64
}

// EventSink receives seat-state events for broadcast to showtime viewers.
// Publish must not block.
type EventSink interface {
	Publish(showtimeID int, event domain.SeatEvent)
}

func NewSeatMap(seatRepo domain.SeatRepository, bookingRepo domain.BookingRepository, events EventSink) *SeatMap {
	return &SeatMap{
		seatRepo:    seatRepo,
		bookingRepo: bookingRepo,
		events:      events,
		showtimes:   make(map[int]*showtimeState),
	}
}

// Transition records one applied seat-state change. Seq is monotonic per
// showtime and identifies the order in which changes were applied.
type Transition struct {
	SeatID int
	From   domain.SeatState
	To     domain.SeatState
	Seq    uint64
}

// Tx gives compare-and-swap access to one showtime's seats while the
// showtime lock is held. It must not escape the Update callback.
type Tx struct {
	st      *showtimeState
	pending []domain.SeatEvent
}

// State returns the current state of a seat.
func (tx *Tx) State(seatID int) (domain.SeatState, error) {
	state, ok := tx.st.seats[seatID]
	if !ok {
		return "", domain.ErrSeatNotFound
	}
	return state, nil
}

// Apply transitions a seat from expected to next. It fails with
// ErrSeatConflict when the seat is not in the expected state; callers must
// treat that as a normal outcome, not a fault.
func (tx *Tx) Apply(seatID int, expected, next domain.SeatState) (Transition, error) {
	current, ok := tx.st.seats[seatID]
	if !ok {
		return Transition{}, domain.ErrSeatNotFound
	}
	if current != expected {
		return Transition{}, fmt.Errorf("seat %d is %s, not %s: %w", seatID, current, expected, domain.ErrSeatConflict)
	}

	tx.st.seats[seatID] = next
	tx.st.seq++

	return Transition{SeatID: seatID, From: expected, To: next, Seq: tx.st.seq}, nil
}

// Emit queues a seat event for delivery when the update commits. Queued
// events are dropped if fn returns an error.
func (tx *Tx) Emit(event domain.SeatEvent) {
	tx.pending = append(tx.pending, event)
}

// Update runs fn while holding the showtime's lock. Everything fn applies is
// linearized against all other updates of the same showtime. Events queued
// with Emit are published before the lock is released, so viewers see
// same-seat events in apply order.
func (m *SeatMap) Update(ctx context.Context, showtimeID int, fn func(tx *Tx) error) error {
	st, err := m.acquire(ctx, showtimeID)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()

	tx := &Tx{st: st}

	if err := fn(tx); err != nil {
		return err
	}

	if m.events != nil {
		for _, event := range tx.pending {
			m.events.Publish(showtimeID, event)
		}
	}

	return nil
}

// States returns a snapshot of every seat's state for a showtime.
func (m *SeatMap) States(ctx context.Context, showtimeID int) (map[int]domain.SeatState, error) {
	st, err := m.acquire(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	defer st.mu.Unlock()

	snapshot := make(map[int]domain.SeatState, len(st.seats))
	for id, state := range st.seats {
		snapshot[id] = state
	}

	return snapshot, nil
}

// State returns the current state of a single seat.
func (m *SeatMap) State(ctx context.Context, showtimeID, seatID int) (domain.SeatState, error) {
	st, err := m.acquire(ctx, showtimeID)
	if err != nil {
		return "", err
	}
	defer st.mu.Unlock()

	state, ok := st.seats[seatID]
	if !ok {
		return "", domain.ErrSeatNotFound
	}

	return state, nil
}

// acquire returns the showtime's state with its lock held, hydrating it on
// first use. The caller must unlock it.
func (m *SeatMap) acquire(ctx context.Context, showtimeID int) (*showtimeState, error) {
	m.mu.Lock()
	st, ok := m.showtimes[showtimeID]
	if !ok {
		st = &showtimeState{}
		m.showtimes[showtimeID] = st
	}
	m.mu.Unlock()

	st.mu.Lock()

	if st.seats == nil {
		if err := m.hydrate(ctx, showtimeID, st); err != nil {
			st.mu.Unlock()
			return nil, err
		}
	}

	return st, nil
}

func (m *SeatMap) hydrate(ctx context.Context, showtimeID int, st *showtimeState) error {
	showtimeSeats, err := m.seatRepo.GetSeatsByShowtime(ctx, showtimeID)
	if err != nil {
		return err
	}

	bookedSeatIDs, err := m.bookingRepo.GetBookedSeatIDs(ctx, showtimeID)
	if err != nil {
		return err
	}

	seats := make(map[int]domain.SeatState, len(showtimeSeats.Seats))
	for _, seat := range showtimeSeats.Seats {
		seats[seat.ID] = domain.SeatFree
	}
	for _, seatID := range bookedSeatIDs {
		seats[seatID] = domain.SeatBooked
	}

	st.seats = seats

	return nil
}
