package mocks

import (
	"context"
	"sync"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

// MockEventPublisher records published booking events for assertions.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []domain.BookingEvent

	PublishFunc func(ctx context.Context, event domain.BookingEvent) error
}

func (m *MockEventPublisher) Publish(ctx context.Context, event domain.BookingEvent) error {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, event)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)

	return nil
}

func (m *MockEventPublisher) Events() []domain.BookingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	events := make([]domain.BookingEvent, len(m.events))
	copy(events, m.events)

	return events
}
