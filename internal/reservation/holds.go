package reservation

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

const DefaultHoldTTL = 15 * time.Minute

// HoldManager converts seat-selection requests into time-boxed holds and
// reclaims them when their TTL elapses. It is the only component that
// transitions seats free→held and held→free.
type HoldManager struct {
	seatMap  *SeatMap
	seatRepo domain.SeatRepository
	store    domain.HoldStore
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	live  map[string]*domain.Hold
	queue expiryQueue
	wake  chan struct{}
}

func NewHoldManager(
	seatMap *SeatMap,
	seatRepo domain.SeatRepository,
	store domain.HoldStore,
	logger *slog.Logger) *HoldManager {

	return &HoldManager{
		seatMap:  seatMap,
		seatRepo: seatRepo,
		store:    store,
		logger:   logger,
		now:      time.Now,
		live:     make(map[string]*domain.Hold),
		wake:     make(chan struct{}, 1),
	}
}

// CreateHold claims every requested seat for one user. The claim is
// all-or-nothing: if any seat is not free, seats already flipped within this
// call are rolled back and ErrSeatUnavailable is returned.
func (hm *HoldManager) CreateHold(
	ctx context.Context,
	showtimeID, userID int,
	seatIDs []int,
	ttl time.Duration) (*domain.Hold, error) {

	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}

	showtimeSeats, err := hm.seatRepo.GetSeatsByShowtimeAndSeatIds(ctx, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}
	if len(showtimeSeats.Seats) != len(seatIDs) {
		return nil, domain.ErrSeatNotFound
	}

	now := hm.now()
	hold := &domain.Hold{
		ID:            uuid.New().String(),
		UserID:        userID,
		ShowtimeID:    showtimeID,
		ShowtimeStart: showtimeSeats.StartTime,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}

	total := decimal.Zero
	for _, seat := range showtimeSeats.Seats {
		price := showtimeSeats.BasePrice.Add(seat.ExtraPrice)
		hold.Seats = append(hold.Seats, domain.HoldSeat{
			SeatID: seat.ID,
			Row:    seat.Row,
			Col:    seat.Col,
			Type:   seat.Type,
			Price:  price,
		})
		total = total.Add(price)
	}
	hold.TotalPrice = total

	// Persist first: the store's seat locks arbitrate across instances, so
	// a hold that loses there never touches the in-memory map.
	if err := hm.store.Save(ctx, hold); err != nil {
		return nil, err
	}

	claim := func() error {
		return hm.seatMap.Update(ctx, showtimeID, func(tx *Tx) error {
			var applied []Transition
			for _, seat := range hold.Seats {
				tr, applyErr := tx.Apply(seat.SeatID, domain.SeatFree, domain.SeatHeld)
				if applyErr != nil {
					// Roll back the seats this call already flipped. Those CAS
					// calls cannot fail while we still hold the showtime lock.
					for _, done := range applied {
						tx.Apply(done.SeatID, domain.SeatHeld, domain.SeatFree)
					}

					if errors.Is(applyErr, domain.ErrSeatConflict) {
						return domain.ErrSeatUnavailable
					}
					return applyErr
				}
				applied = append(applied, tr)
			}

			for _, tr := range applied {
				tx.Emit(domain.SeatEvent{
					Type:       domain.SeatEventHeld,
					ShowtimeID: showtimeID,
					SeatID:     tr.SeatID,
					Seq:        tr.Seq,
					HolderID:   userID,
					ExpiresAt:  &hold.ExpiresAt,
				})
			}
			return nil
		})
	}

	err = claim()
	if errors.Is(err, domain.ErrSeatUnavailable) {
		// A racing release may have freed the seat between attempts.
		err = claim()
	}
	if err != nil {
		if delErr := hm.store.Delete(ctx, hold); delErr != nil {
			hm.logger.Error("failed to delete unapplied hold", "hold_id", hold.ID, "error", delErr)
		}
		return nil, err
	}

	hm.mu.Lock()
	hm.live[hold.ID] = hold
	heap.Push(&hm.queue, expiryEntry{holdID: hold.ID, at: hold.ExpiresAt})
	hm.mu.Unlock()
	hm.notify()

	return hold, nil
}

// Lookup returns a live hold by ID.
func (hm *HoldManager) Lookup(holdID string) (*domain.Hold, bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hold, ok := hm.live[holdID]

	return hold, ok
}

// ReleaseHold flips all of a hold's seats back to free. It is idempotent: a
// hold that is unknown, already released, or already consumed is a no-op.
func (hm *HoldManager) ReleaseHold(ctx context.Context, holdID string) error {
	hold, ok := hm.consume(holdID)
	if !ok {
		return nil
	}

	return hm.release(ctx, hold)
}

// Recover re-arms holds that survived a restart. Expired stragglers are
// discarded; live ones get their seats re-marked held and a fresh expiry
// entry. Must be called after the seat map is ready and before traffic.
func (hm *HoldManager) Recover(ctx context.Context) error {
	holds, err := hm.store.ScanActive(ctx)
	if err != nil {
		return err
	}

	now := hm.now()
	recovered := 0

	for i := range holds {
		hold := &holds[i]

		if hold.Expired(now) {
			if err := hm.store.Delete(ctx, hold); err != nil {
				hm.logger.Error("failed to discard stale hold", "hold_id", hold.ID, "error", err)
			}
			continue
		}

		err := hm.seatMap.Update(ctx, hold.ShowtimeID, func(tx *Tx) error {
			for _, seat := range hold.Seats {
				if _, applyErr := tx.Apply(seat.SeatID, domain.SeatFree, domain.SeatHeld); applyErr != nil {
					hm.logger.Warn("seat not free while recovering hold",
						"hold_id", hold.ID, "seat_id", seat.SeatID, "error", applyErr)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		hm.mu.Lock()
		hm.live[hold.ID] = hold
		heap.Push(&hm.queue, expiryEntry{holdID: hold.ID, at: hold.ExpiresAt})
		hm.mu.Unlock()

		recovered++
	}

	if recovered > 0 {
		hm.logger.Info("recovered holds from store", "count", recovered)
		hm.notify()
	}

	return nil
}

// Start launches the expiry scheduler. It stops when ctx is cancelled.
func (hm *HoldManager) Start(ctx context.Context) {
	go hm.loop(ctx)
}

func (hm *HoldManager) loop(ctx context.Context) {
	for {
		hm.expireDue(ctx)

		wait, ok := hm.nextDeadline()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-hm.wake:
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-hm.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// nextDeadline reports how long until the earliest live hold expires,
// discarding queue entries whose holds are already gone.
func (hm *HoldManager) nextDeadline() (time.Duration, bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	for hm.queue.Len() > 0 {
		head := hm.queue[0]
		if _, ok := hm.live[head.holdID]; !ok {
			heap.Pop(&hm.queue)
			continue
		}
		wait := head.at.Sub(hm.now())
		if wait < 0 {
			wait = 0
		}
		return wait, true
	}

	return 0, false
}

// expireDue releases every live hold whose deadline has passed. The live-set
// check under the mutex is what makes a confirmation that got there first
// win: a consumed hold is no longer live, so expiry skips it.
func (hm *HoldManager) expireDue(ctx context.Context) {
	now := hm.now()
	var due []*domain.Hold

	hm.mu.Lock()
	for hm.queue.Len() > 0 {
		head := hm.queue[0]
		if head.at.After(now) {
			break
		}
		heap.Pop(&hm.queue)

		hold, ok := hm.live[head.holdID]
		if !ok || !hold.Expired(now) {
			continue
		}

		delete(hm.live, head.holdID)
		due = append(due, hold)
	}
	hm.mu.Unlock()

	for _, hold := range due {
		hm.logger.Info("hold expired", "hold_id", hold.ID, "showtime_id", hold.ShowtimeID, "user_id", hold.UserID)

		if err := hm.release(ctx, hold); err != nil {
			hm.logger.Error("failed to release expired hold", "hold_id", hold.ID, "error", err)
		}
	}
}

// consume atomically removes a hold from the live set, so neither expiry nor
// an explicit release can race whoever consumed it.
func (hm *HoldManager) consume(holdID string) (*domain.Hold, bool) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	hold, ok := hm.live[holdID]
	if ok {
		delete(hm.live, holdID)
	}

	return hold, ok
}

// restore puts a consumed hold back, re-arming its expiry.
func (hm *HoldManager) restore(hold *domain.Hold) {
	hm.mu.Lock()
	hm.live[hold.ID] = hold
	heap.Push(&hm.queue, expiryEntry{holdID: hold.ID, at: hold.ExpiresAt})
	hm.mu.Unlock()
	hm.notify()
}

// forget removes a consumed hold's persisted copy once it has been converted
// into a booking.
func (hm *HoldManager) forget(ctx context.Context, hold *domain.Hold) {
	if err := hm.store.Delete(ctx, hold); err != nil {
		hm.logger.Error("failed to delete converted hold", "hold_id", hold.ID, "error", err)
	}
}

// release flips the hold's seats back to free and removes the persisted
// copy. The hold must already be out of the live set.
func (hm *HoldManager) release(ctx context.Context, hold *domain.Hold) error {
	err := hm.seatMap.Update(ctx, hold.ShowtimeID, func(tx *Tx) error {
		for _, seat := range hold.Seats {
			tr, applyErr := tx.Apply(seat.SeatID, domain.SeatHeld, domain.SeatFree)
			if applyErr != nil {
				// The seat moved on without us; leave it alone.
				continue
			}
			tx.Emit(domain.SeatEvent{
				Type:       domain.SeatEventReleased,
				ShowtimeID: hold.ShowtimeID,
				SeatID:     tr.SeatID,
				Seq:        tr.Seq,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := hm.store.Delete(ctx, hold); err != nil {
		hm.logger.Error("failed to delete released hold", "hold_id", hold.ID, "error", err)
	}

	return nil
}

func (hm *HoldManager) notify() {
	select {
	case hm.wake <- struct{}{}:
	default:
	}
}

type expiryEntry struct {
	holdID string
	at     time.Time
}

type expiryQueue []expiryEntry

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q expiryQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x any)        { *q = append(*q, x.(expiryEntry)) }

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	*q = old[:n-1]
	return entry
}
