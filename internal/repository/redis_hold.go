package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cinemaxhq/reservation-service/internal/domain"
)

// RedisHoldStore persists seat holds so they survive a process restart. Each
// hold is a JSON blob plus one lock key per seat, all expiring at the hold's
// deadline, so Redis reclaims abandoned holds even if this process never
// comes back.
type RedisHoldStore struct {
	rdb redis.UniversalClient
}

func NewRedisHoldStore(rdb redis.UniversalClient) *RedisHoldStore {
	return &RedisHoldStore{
		rdb: rdb,
	}
}

var lockSeatsScript = redis.NewScript(`
	-- KEYS = seat lock keys (seat_lock:<showtime>:<seat>)
	-- ARGV = [holdID, ttlSeconds]

	for i = 1, #KEYS do
		if redis.call("EXISTS", KEYS[i]) == 1 then
			return {err = "seat already locked"}
		end
	end

	for i = 1, #KEYS do
		redis.call("SET", KEYS[i], ARGV[1], "EX", ARGV[2])
	end

	return "OK"
`)

var unlockSeatsScript = redis.NewScript(`
	-- KEYS = seat lock keys
	-- ARGV = [holdID]

	for i = 1, #KEYS do
		if redis.call("GET", KEYS[i]) == ARGV[1] then
			redis.call("DEL", KEYS[i])
		end
	end

	return "OK"
`)

func (s *RedisHoldStore) Save(ctx context.Context, hold *domain.Hold) error {
	ttl := time.Until(hold.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("hold %s already expired", hold.ID)
	}

	keys := seatLockKeys(hold)

	ttlSeconds := int(ttl.Seconds())
	if ttlSeconds < 1 {
		ttlSeconds = 1
	}

	err := lockSeatsScript.Run(ctx, s.rdb, keys, hold.ID, ttlSeconds).Err()
	if err != nil {
		if redis.HasErrorPrefix(err, "seat already locked") {
			return domain.ErrSeatUnavailable
		}

		return err
	}

	holdBytes, err := json.Marshal(hold)
	if err != nil {
		s.unlockSeats(ctx, hold)
		return err
	}

	err = s.rdb.Set(ctx, holdKey(hold.ID), holdBytes, ttl).Err()
	if err != nil {
		s.unlockSeats(ctx, hold)
		return err
	}

	return nil
}

func (s *RedisHoldStore) Get(ctx context.Context, holdID string) (*domain.Hold, error) {
	holdBytes, err := s.rdb.Get(ctx, holdKey(holdID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	var hold domain.Hold

	err = json.Unmarshal(holdBytes, &hold)
	if err != nil {
		return nil, err
	}

	return &hold, nil
}

func (s *RedisHoldStore) Delete(ctx context.Context, hold *domain.Hold) error {
	s.unlockSeats(ctx, hold)

	return s.rdb.Del(ctx, holdKey(hold.ID)).Err()
}

// ScanActive walks all persisted holds. Redis has already evicted the
// expired ones, so the result is the set of holds to re-arm after a restart.
func (s *RedisHoldStore) ScanActive(ctx context.Context) ([]domain.Hold, error) {
	var holds []domain.Hold

	iter := s.rdb.Scan(ctx, 0, "hold:*", 100).Iterator()
	for iter.Next(ctx) {
		holdBytes, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Expired between SCAN and GET.
				continue
			}

			return nil, err
		}

		var hold domain.Hold

		if err := json.Unmarshal(holdBytes, &hold); err != nil {
			return nil, fmt.Errorf("corrupt hold at %s: %w", iter.Val(), err)
		}

		holds = append(holds, hold)
	}

	if err := iter.Err(); err != nil {
		return nil, err
	}

	return holds, nil
}

// unlockSeats removes the hold's seat locks, skipping any lock that has
// since been taken over by another hold.
func (s *RedisHoldStore) unlockSeats(ctx context.Context, hold *domain.Hold) {
	unlockSeatsScript.Run(ctx, s.rdb, seatLockKeys(hold), hold.ID)
}

func seatLockKeys(hold *domain.Hold) []string {
	keys := make([]string, len(hold.Seats))
	for i, seat := range hold.Seats {
		keys[i] = seatLockKey(hold.ShowtimeID, seat.SeatID)
	}
	return keys
}

func holdKey(holdID string) string {
	return fmt.Sprintf("hold:%s", holdID)
}

func seatLockKey(showtimeID, seatID int) string {
	return fmt.Sprintf("seat_lock:%d:%d", showtimeID, seatID)
}
