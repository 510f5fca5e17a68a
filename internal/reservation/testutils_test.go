package reservation

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
	"github.com/cinemaxhq/reservation-service/internal/mocks"
)

var (
	testBasePrice     = decimal.RequireFromString("12.50")
	testShowtimeStart = time.Date(2030, time.March, 14, 19, 30, 0, 0, time.UTC)
)

// testSeatRepo serves a single showtime with four seats: two standard seats
// in row 1 and two VIP seats in row 2 carrying a 5.00 extra.
func testSeatRepo() *mocks.MockSeatRepo {
	catalog := []domain.Seat{
		{ID: 1, Row: 1, Col: 1, Type: "standard", ExtraPrice: decimal.Zero},
		{ID: 2, Row: 1, Col: 2, Type: "standard", ExtraPrice: decimal.Zero},
		{ID: 3, Row: 2, Col: 1, Type: "vip", ExtraPrice: decimal.RequireFromString("5.00")},
		{ID: 4, Row: 2, Col: 2, Type: "vip", ExtraPrice: decimal.RequireFromString("5.00")},
	}

	showtime := func(seats []domain.Seat) *domain.ShowtimeSeats {
		return &domain.ShowtimeSeats{
			ShowtimeID: 1,
			MovieTitle: "The Long Goodbye",
			StartTime:  testShowtimeStart,
			BasePrice:  testBasePrice,
			Seats:      seats,
		}
	}

	return &mocks.MockSeatRepo{
		GetSeatsByShowtimeFunc: func(ctx context.Context, showtimeID int) (*domain.ShowtimeSeats, error) {
			if showtimeID != 1 {
				return nil, domain.ErrRecordNotFound
			}
			return showtime(catalog), nil
		},
		GetSeatsByShowtimeAndSeatIdsFunc: func(ctx context.Context, showtimeID int, seatIDs []int) (*domain.ShowtimeSeats, error) {
			if showtimeID != 1 {
				return nil, domain.ErrRecordNotFound
			}

			var seats []domain.Seat
			for _, seat := range catalog {
				for _, id := range seatIDs {
					if seat.ID == id {
						seats = append(seats, seat)
					}
				}
			}
			return showtime(seats), nil
		},
	}
}

func emptyBookingRepo() *mocks.MockBookingRepo {
	return &mocks.MockBookingRepo{
		GetBookedSeatIDsFunc: func(ctx context.Context, showtimeID int) ([]int, error) {
			return nil, nil
		},
	}
}

// memHoldStore is an in-memory HoldStore with optional error injection.
type memHoldStore struct {
	mu    sync.Mutex
	holds map[string]domain.Hold

	saveErr error
}

func newMemHoldStore() *memHoldStore {
	return &memHoldStore{holds: make(map[string]domain.Hold)}
}

func (s *memHoldStore) Save(ctx context.Context, hold *domain.Hold) error {
	if s.saveErr != nil {
		return s.saveErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.holds[hold.ID] = *hold

	return nil
}

func (s *memHoldStore) Get(ctx context.Context, holdID string) (*domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hold, ok := s.holds[holdID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &hold, nil
}

func (s *memHoldStore) Delete(ctx context.Context, hold *domain.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holds, hold.ID)

	return nil
}

func (s *memHoldStore) ScanActive(ctx context.Context) ([]domain.Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	holds := make([]domain.Hold, 0, len(s.holds))
	for _, hold := range s.holds {
		holds = append(holds, hold)
	}

	return holds, nil
}

func (s *memHoldStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.holds)
}

// recorderSink collects published seat events.
type recorderSink struct {
	mu     sync.Mutex
	events []domain.SeatEvent
}

func (r *recorderSink) Publish(showtimeID int, event domain.SeatEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorderSink) all() []domain.SeatEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]domain.SeatEvent, len(r.events))
	copy(events, r.events)

	return events
}

func (r *recorderSink) ofType(eventType domain.SeatEventType) []domain.SeatEvent {
	var matched []domain.SeatEvent
	for _, event := range r.all() {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}

	return matched
}

type holdManagerFixture struct {
	seatMap *SeatMap
	holds   *HoldManager
	store   *memHoldStore
	sink    *recorderSink
}

func newHoldManagerFixture() *holdManagerFixture {
	seatRepo := testSeatRepo()
	sink := &recorderSink{}
	seatMap := NewSeatMap(seatRepo, emptyBookingRepo(), sink)
	store := newMemHoldStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &holdManagerFixture{
		seatMap: seatMap,
		holds:   NewHoldManager(seatMap, seatRepo, store, logger),
		store:   store,
		sink:    sink,
	}
}
