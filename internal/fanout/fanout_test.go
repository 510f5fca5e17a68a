package fanout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

func TestSubscribeAndPublish(t *testing.T) {
	f := New()

	ch := f.Subscribe(1)
	assert.Equal(t, 1, f.Subscribers(1))

	event := domain.SeatEvent{Type: domain.SeatEventHeld, ShowtimeID: 1, SeatID: 3, Seq: 1}
	f.Publish(1, event)

	got := <-ch
	assert.Equal(t, event, got)
}

func TestPublishIsScopedToShowtime(t *testing.T) {
	f := New()

	chA := f.Subscribe(1)
	chB := f.Subscribe(2)

	f.Publish(1, domain.SeatEvent{Type: domain.SeatEventHeld, ShowtimeID: 1, SeatID: 3, Seq: 1})

	select {
	case <-chA:
	default:
		t.Fatal("subscriber of showtime 1 did not receive the event")
	}

	select {
	case event := <-chB:
		t.Fatalf("subscriber of showtime 2 received %v", event)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	f := New()

	ch := f.Subscribe(1)
	f.Unsubscribe(1, ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, f.Subscribers(1))

	// Publishing with no subscribers is a no-op.
	f.Publish(1, domain.SeatEvent{Type: domain.SeatEventHeld, ShowtimeID: 1, SeatID: 3, Seq: 1})
}

// A subscriber that stops draining has events dropped instead of blocking
// the publisher.
func TestSlowSubscriberDropsEvents(t *testing.T) {
	f := New()

	ch := f.Subscribe(1)

	for i := 0; i < subscriberBuffer+10; i++ {
		f.Publish(1, domain.SeatEvent{Type: domain.SeatEventHeld, ShowtimeID: 1, SeatID: 1, Seq: uint64(i + 1)})
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
			continue
		default:
		}
		break
	}

	assert.Equal(t, subscriberBuffer, received)
}

func TestFanOutToMultipleSubscribers(t *testing.T) {
	f := New()

	subs := make([]chan domain.SeatEvent, 5)
	for i := range subs {
		subs[i] = f.Subscribe(1)
	}
	require.Equal(t, 5, f.Subscribers(1))

	f.Publish(1, domain.SeatEvent{Type: domain.SeatEventBooked, ShowtimeID: 1, SeatID: 2, Seq: 7})

	for i, ch := range subs {
		select {
		case event := <-ch:
			assert.Equal(t, uint64(7), event.Seq, "subscriber %d", i)
		default:
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}
