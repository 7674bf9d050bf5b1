package appointments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/chikitsa-health/hospital-backend/internal/observability/metrics"
	"github.com/chikitsa-health/hospital-backend/internal/schedule"
	"github.com/chikitsa-health/hospital-backend/pkg/logging"
)

const slotCachePrefix = "chikitsa:slots:"

// SlotCache is a short-TTL read-through cache for slot listings. It is an
// optimization only: every booking write invalidates the doctor's entries,
// and a cache failure degrades to a fresh computation, never an error.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
	m      *metrics.BookingMetrics
	logger *logging.Logger
}

// NewSlotCache creates a slot cache. Returns nil when client is nil, and a
// nil *SlotCache is safe to use (all operations become no-ops/misses).
func NewSlotCache(client *redis.Client, ttl time.Duration, m *metrics.BookingMetrics, logger *logging.Logger) *SlotCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotCache{client: client, ttl: ttl, m: m, logger: logger}
}

func slotCacheKey(doctorID uuid.UUID, day time.Time) string {
	return slotCachePrefix + doctorID.String() + ":" + day.Format(schedule.DateLayout)
}

// Get returns the cached grid for (doctor, date), if present.
func (c *SlotCache) Get(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, slotCacheKey(doctorID, day)).Bytes()
	if err != nil {
		c.m.ObserveSlotCache(false)
		return nil, false
	}
	var slots []Slot
	if err := json.Unmarshal(raw, &slots); err != nil {
		c.m.ObserveSlotCache(false)
		return nil, false
	}
	c.m.ObserveSlotCache(true)
	return slots, true
}

// Set stores the grid for (doctor, date) under the configured TTL.
func (c *SlotCache) Set(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []Slot) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, slotCacheKey(doctorID, day), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("slot cache set failed", "error", err, "doctor_id", doctorID)
	}
}

// Invalidate drops every cached date for the doctor. Called on every
// booking write so stale availability is never served past a mutation.
func (c *SlotCache) Invalidate(ctx context.Context, doctorID uuid.UUID) {
	if c == nil {
		return
	}
	pattern := slotCachePrefix + doctorID.String() + ":*"
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("slot cache scan failed", "error", err, "doctor_id", doctorID)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("slot cache invalidation failed", "error", err, "doctor_id", doctorID)
		return
	}
	c.logger.Debug("slot cache invalidated", "doctor_id", doctorID, "keys", len(keys))
}
