package mocks

import (
	"context"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

type MockBookingRepo struct {
	CreateFunc               func(ctx context.Context, booking *domain.Booking) error
	GetByReferenceFunc       func(ctx context.Context, reference string) (*domain.Booking, error)
	UpdateStatusFunc         func(ctx context.Context, reference string, from, to domain.BookingStatus, paymentStatus domain.PaymentStatus) error
	GetBookedSeatIDsFunc     func(ctx context.Context, showtimeID int) ([]int, error)
	GetSummariesByUserIDFunc func(ctx context.Context, userID int, pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error)
}

func (m *MockBookingRepo) Create(ctx context.Context, booking *domain.Booking) error {
	return m.CreateFunc(ctx, booking)
}

func (m *MockBookingRepo) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	return m.GetByReferenceFunc(ctx, reference)
}

func (m *MockBookingRepo) UpdateStatus(
	ctx context.Context,
	reference string,
	from, to domain.BookingStatus,
	paymentStatus domain.PaymentStatus) error {

	return m.UpdateStatusFunc(ctx, reference, from, to, paymentStatus)
}

func (m *MockBookingRepo) GetBookedSeatIDs(ctx context.Context, showtimeID int) ([]int, error) {
	return m.GetBookedSeatIDsFunc(ctx, showtimeID)
}

func (m *MockBookingRepo) GetSummariesByUserID(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	return m.GetSummariesByUserIDFunc(ctx, userID, pagination)
}
