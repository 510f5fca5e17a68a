package mocks

import (
	"context"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

type MockHoldStore struct {
	SaveFunc       func(ctx context.Context, hold *domain.Hold) error
	GetFunc        func(ctx context.Context, holdID string) (*domain.Hold, error)
	DeleteFunc     func(ctx context.Context, hold *domain.Hold) error
	ScanActiveFunc func(ctx context.Context) ([]domain.Hold, error)
}

func (m *MockHoldStore) Save(ctx context.Context, hold *domain.Hold) error {
	return m.SaveFunc(ctx, hold)
}

func (m *MockHoldStore) Get(ctx context.Context, holdID string) (*domain.Hold, error) {
	return m.GetFunc(ctx, holdID)
}

func (m *MockHoldStore) Delete(ctx context.Context, hold *domain.Hold) error {
	return m.DeleteFunc(ctx, hold)
}

func (m *MockHoldStore) ScanActive(ctx context.Context) ([]domain.Hold, error) {
	return m.ScanActiveFunc(ctx)
}
