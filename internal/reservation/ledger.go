package reservation

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

const DefaultCancelCutoff = 2 * time.Hour

// BookingLedger records confirmed bookings. It is the only component that
// transitions seats held→booked, and booked→free on cancellation.
type BookingLedger struct {
	seatMap      *SeatMap
	holds        *HoldManager
	bookings     domain.BookingRepository
	publisher    domain.EventPublisher
	logger       *slog.Logger
	cancelCutoff time.Duration
	now          func() time.Time
}

func NewBookingLedger(
	seatMap *SeatMap,
	holds *HoldManager,
	bookings domain.BookingRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	cancelCutoff time.Duration) *BookingLedger {

	if cancelCutoff <= 0 {
		cancelCutoff = DefaultCancelCutoff
	}

	return &BookingLedger{
		seatMap:      seatMap,
		holds:        holds,
		bookings:     bookings,
		publisher:    publisher,
		logger:       logger,
		cancelCutoff: cancelCutoff,
		now:          time.Now,
	}
}

// Confirm converts a live hold into a booking after payment succeeded. The
// hold is consumed before any seat state moves, so an expiry firing
// afterwards finds nothing to release. If anything fails the flipped seats
// are unwound and the hold restored; no partial booking is ever created.
func (bl *BookingLedger) Confirm(
	ctx context.Context,
	holdID string,
	userID int,
	payment *domain.PaymentConfirmation) (*domain.Booking, error) {

	hold, ok := bl.holds.consume(holdID)
	if !ok {
		return nil, domain.ErrHoldExpired
	}

	if hold.UserID != userID {
		bl.holds.restore(hold)
		return nil, domain.ErrRecordNotFound
	}

	if hold.Expired(bl.now()) {
		// Deadline passed but the scheduler hadn't fired yet.
		if err := bl.holds.release(ctx, hold); err != nil {
			bl.logger.Error("failed to release expired hold on confirm", "hold_id", hold.ID, "error", err)
		}
		return nil, domain.ErrHoldExpired
	}

	book := func() error {
		return bl.seatMap.Update(ctx, hold.ShowtimeID, func(tx *Tx) error {
			var applied []Transition
			for _, seat := range hold.Seats {
				tr, applyErr := tx.Apply(seat.SeatID, domain.SeatHeld, domain.SeatBooked)
				if applyErr != nil {
					for _, done := range applied {
						tx.Apply(done.SeatID, domain.SeatBooked, domain.SeatHeld)
					}
					return fmt.Errorf("confirming hold %s seat %d: %w", hold.ID, seat.SeatID, applyErr)
				}
				applied = append(applied, tr)
			}

			for _, tr := range applied {
				tx.Emit(domain.SeatEvent{
					Type:       domain.SeatEventBooked,
					ShowtimeID: hold.ShowtimeID,
					SeatID:     tr.SeatID,
					Seq:        tr.Seq,
				})
			}
			return nil
		})
	}

	err := book()
	if errors.Is(err, domain.ErrSeatConflict) {
		err = book()
	}
	if err != nil {
		bl.holds.restore(hold)
		if errors.Is(err, domain.ErrSeatConflict) {
			// A hold's seats can only leave the held state through expiry;
			// report it as such rather than a bare conflict.
			bl.logger.Error("seat conflict while confirming hold", "hold_id", hold.ID, "error", err)
			return nil, domain.ErrHoldExpired
		}
		return nil, err
	}

	booking := &domain.Booking{
		Reference:     NewReference(),
		UserID:        userID,
		ShowtimeID:    hold.ShowtimeID,
		ShowtimeStart: hold.ShowtimeStart,
		Seats:         toBookingSeats(hold.Seats),
		TotalAmount:   hold.TotalPrice,
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusCompleted,
		PaymentRef:    payment.ProviderRef,
	}

	if err := bl.bookings.Create(ctx, booking); err != nil {
		bl.unbook(ctx, hold)
		bl.holds.restore(hold)
		return nil, err
	}

	bl.holds.forget(ctx, hold)

	bl.publishBookingEvent(domain.BookingEventConfirmed, booking)

	return booking, nil
}

// Cancel voids a confirmed booking and frees its seats, provided the
// showtime is still further away than the cancellation cutoff.
func (bl *BookingLedger) Cancel(ctx context.Context, reference string, userID int, now time.Time) (*domain.Booking, error) {
	booking, err := bl.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	if booking.UserID != userID {
		return nil, domain.ErrRecordNotFound
	}

	if booking.Status != domain.BookingStatusConfirmed {
		return nil, domain.ErrBookingNotCancellable
	}

	if booking.ShowtimeStart.Sub(now) < bl.cancelCutoff {
		return nil, domain.ErrCancellationWindowClosed
	}

	// The status guard makes concurrent cancels race on the row: exactly one
	// update moves confirmed→cancelled, the loser gets ErrBookingNotCancellable.
	err = bl.bookings.UpdateStatus(ctx, reference,
		domain.BookingStatusConfirmed, domain.BookingStatusCancelled, domain.PaymentStatusRefunded)
	if err != nil {
		return nil, err
	}

	err = bl.seatMap.Update(ctx, booking.ShowtimeID, func(tx *Tx) error {
		for _, seat := range booking.Seats {
			tr, applyErr := tx.Apply(seat.SeatID, domain.SeatBooked, domain.SeatFree)
			if applyErr != nil {
				continue
			}
			tx.Emit(domain.SeatEvent{
				Type:       domain.SeatEventReleased,
				ShowtimeID: booking.ShowtimeID,
				SeatID:     tr.SeatID,
				Seq:        tr.Seq,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatusCancelled
	booking.PaymentStatus = domain.PaymentStatusRefunded

	bl.publishBookingEvent(domain.BookingEventCancelled, booking)

	return booking, nil
}

// unbook rolls booked seats back to held after a failed booking insert.
// Viewers already saw the booked events, so each rollback emits a
// corrective held event.
func (bl *BookingLedger) unbook(ctx context.Context, hold *domain.Hold) {
	err := bl.seatMap.Update(ctx, hold.ShowtimeID, func(tx *Tx) error {
		for _, seat := range hold.Seats {
			tr, applyErr := tx.Apply(seat.SeatID, domain.SeatBooked, domain.SeatHeld)
			if applyErr != nil {
				continue
			}
			tx.Emit(domain.SeatEvent{
				Type:       domain.SeatEventHeld,
				ShowtimeID: hold.ShowtimeID,
				SeatID:     tr.SeatID,
				Seq:        tr.Seq,
				HolderID:   hold.UserID,
				ExpiresAt:  &hold.ExpiresAt,
			})
		}
		return nil
	})
	if err != nil {
		bl.logger.Error("failed to unbook seats", "hold_id", hold.ID, "error", err)
	}
}

// publishBookingEvent hands the event to the external publisher without
// blocking the booking path. Failures are logged and dropped.
func (bl *BookingLedger) publishBookingEvent(eventType domain.BookingEventType, booking *domain.Booking) {
	event := domain.BookingEvent{
		Type:        eventType,
		Reference:   booking.Reference,
		UserID:      booking.UserID,
		ShowtimeID:  booking.ShowtimeID,
		TotalAmount: booking.TotalAmount.StringFixed(2),
		OccurredAt:  bl.now(),
	}
	for _, seat := range booking.Seats {
		event.SeatIDs = append(event.SeatIDs, seat.SeatID)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := bl.publisher.Publish(ctx, event); err != nil {
			bl.logger.Error("failed to publish booking event",
				"type", eventType, "reference", booking.Reference, "error", err)
		}
	}()
}

func toBookingSeats(holdSeats []domain.HoldSeat) []domain.BookingSeat {
	seats := make([]domain.BookingSeat, len(holdSeats))
	for i, s := range holdSeats {
		seats[i] = domain.BookingSeat{
			SeatID: s.SeatID,
			Row:    s.Row,
			Col:    s.Col,
			Type:   s.Type,
			Price:  s.Price,
		}
	}
	return seats
}

const referenceAlphabet = "ABCDEFGHJKMNPQRSTVWXYZ23456789"

// NewReference generates a booking reference such as CMX-7KQ2M9TXWB. The
// alphabet drops easily-confused characters; uniqueness is enforced by the
// bookings table constraint.
func NewReference() string {
	b := make([]byte, 10)
	rand.Read(b)

	for i := range b {
		b[i] = referenceAlphabet[int(b[i])%len(referenceAlphabet)]
	}

	return "CMX-" + string(b)
}
