package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Booking is a confirmed, paid reservation. The seat list is immutable after
// creation; only the status fields and payment metadata may change.
type Booking struct {
	ID            int
	Reference     string
	UserID        int
	ShowtimeID    int
	ShowtimeStart time.Time
	Seats         []BookingSeat
	TotalAmount   decimal.Decimal
	Status        BookingStatus
	PaymentStatus PaymentStatus
	PaymentRef    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type BookingSeat struct {
	SeatID int
	Row    int
	Col    int
	Type   string
	Price  decimal.Decimal
}

type BookingSummary struct {
	Reference     string
	MovieTitle    string
	TheaterName   string
	HallName      string
	ShowtimeStart time.Time
	TotalAmount   decimal.Decimal
	Status        BookingStatus
	CreatedAt     time.Time
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByReference(ctx context.Context, reference string) (*Booking, error)
	UpdateStatus(ctx context.Context, reference string, from, to BookingStatus, paymentStatus PaymentStatus) error
	GetBookedSeatIDs(ctx context.Context, showtimeID int) ([]int, error)
	GetSummariesByUserID(ctx context.Context, userID int, pagination Pagination) ([]BookingSummary, *Metadata, error)
}
