package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SeatState is the per-showtime availability state of a single seat. A seat
// is in exactly one state at any instant; transitions are applied through the
// seat map's compare-and-swap contract.
type SeatState string

const (
	SeatFree   SeatState = "free"
	SeatHeld   SeatState = "held"
	SeatBooked SeatState = "booked"
)

type Seat struct {
	ID         int
	Row        int
	Col        int
	Type       string
	ExtraPrice decimal.Decimal
}

// ShowtimeSeats is the seat catalog of one showtime together with the
// showtime attributes needed for pricing and display. Seats are ordered by
// row, then column.
type ShowtimeSeats struct {
	ShowtimeID  int
	MovieTitle  string
	TheaterID   int
	TheaterName string
	HallID      int
	HallName    string
	StartTime   time.Time
	BasePrice   decimal.Decimal
	Seats       []Seat
}

type SeatRepository interface {
	GetSeatsByShowtime(ctx context.Context, showtimeID int) (*ShowtimeSeats, error)
	GetSeatsByShowtimeAndSeatIds(ctx context.Context, showtimeID int, seatIDs []int) (*ShowtimeSeats, error)
}
