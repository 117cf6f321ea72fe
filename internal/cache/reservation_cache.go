package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"parking_reserve/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ReservationCache is a passive mirror of each user's reservation list.
// It is written after every successful state transition and read once when
// a user's state is first seeded, before the durable store has answered.
// It never resolves conflicts: the store silently supersedes it.
type ReservationCache struct {
	rdb *redis.Client
}

func NewReservationCache(rdb *redis.Client) *ReservationCache {
	return &ReservationCache{rdb: rdb}
}

// Load returns the cached list, or nil when the key is missing or the
// payload does not parse. Corruption is treated as an empty cache, never an
// error.
func (c *ReservationCache) Load(ctx context.Context, userEmail string) []domain.ReservedSlot {
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(KeyReservedSlots, userEmail)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("ReservationCache: error loading cache for %s: %v", userEmail, err)
		}
		return nil
	}
	return DecodeReservedSlots(raw)
}

func (c *ReservationCache) Save(ctx context.Context, userEmail string, slots []domain.ReservedSlot) error {
	if len(slots) == 0 {
		return c.Clear(ctx, userEmail)
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("ReservationCache.Save: %w", err)
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(KeyReservedSlots, userEmail), raw, TTLReservedSlots).Err(); err != nil {
		return fmt.Errorf("ReservationCache.Save: %w", err)
	}
	return nil
}

func (c *ReservationCache) Clear(ctx context.Context, userEmail string) error {
	if err := c.rdb.Del(ctx, fmt.Sprintf(KeyReservedSlots, userEmail)).Err(); err != nil {
		return fmt.Errorf("ReservationCache.Clear: %w", err)
	}
	return nil
}

// DecodeReservedSlots parses a cached payload, returning nil for anything
// unparseable.
func DecodeReservedSlots(raw string) []domain.ReservedSlot {
	var slots []domain.ReservedSlot
	if err := json.Unmarshal([]byte(raw), &slots); err != nil {
		log.Printf("ReservationCache: discarding corrupt payload: %v", err)
		return nil
	}
	return slots
}
