package domain

import (
	"context"
	"time"
)

type SeatEventType string

const (
	SeatEventHeld     SeatEventType = "seat-held"
	SeatEventReleased SeatEventType = "seat-released"
	SeatEventBooked   SeatEventType = "seat-booked"
)

// SeatEvent is broadcast to everyone watching a showtime whenever a seat
// changes state. Seq is the per-showtime sequence number assigned when the
// transition was applied to the seat map; events for the same seat are
// published in Seq order.
type SeatEvent struct {
	Type       SeatEventType `json:"type"`
	ShowtimeID int           `json:"showtimeId"`
	SeatID     int           `json:"seatId"`
	Seq        uint64        `json:"seq"`
	HolderID   int           `json:"holderId,omitempty"`
	ExpiresAt  *time.Time    `json:"expiresAt,omitempty"`
}

type BookingEventType string

const (
	BookingEventConfirmed BookingEventType = "booking.confirmed"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// BookingEvent is the payload handed to external consumers (mailers,
// analytics) when a booking is confirmed or cancelled. Delivery is
// fire-and-forget and must never block the booking path.
type BookingEvent struct {
	Type        BookingEventType `json:"type"`
	Reference   string           `json:"reference"`
	UserID      int              `json:"user_id"`
	ShowtimeID  int              `json:"showtime_id"`
	SeatIDs     []int            `json:"seat_ids"`
	TotalAmount string           `json:"total_amount"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event BookingEvent) error
}
