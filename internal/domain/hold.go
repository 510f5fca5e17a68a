package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Hold is a time-boxed claim on a set of seats for one showtime by one user.
// A seat is referenced by at most one live hold at a time. Seat details and
// prices are frozen at creation so that a later confirmation books exactly
// what the user was quoted.
type Hold struct {
	ID            string
	UserID        int
	ShowtimeID    int
	ShowtimeStart time.Time
	Seats         []HoldSeat
	TotalPrice    decimal.Decimal
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

type HoldSeat struct {
	SeatID int
	Row    int
	Col    int
	Type   string
	Price  decimal.Decimal
}

func (h *Hold) SeatIDs() []int {
	ids := make([]int, len(h.Seats))
	for i, s := range h.Seats {
		ids[i] = s.SeatID
	}
	return ids
}

func (h *Hold) Expired(now time.Time) bool {
	return !now.Before(h.ExpiresAt)
}

// HoldStore persists holds so that seats do not stay locked forever after a
// crash: every stored hold carries its expiry, and live holds are re-scanned
// on startup.
type HoldStore interface {
	Save(ctx context.Context, hold *Hold) error
	Get(ctx context.Context, holdID string) (*Hold, error)
	Delete(ctx context.Context, hold *Hold) error
	ScanActive(ctx context.Context) ([]Hold, error)
}
