package coupon

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keeps the active coupon set per variant and evaluation day in Redis so
// discovery does not hit the store on every cart. A nil cache is a no-op.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. TTL bounds staleness between invalidations.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func activeKey(t Type, asOf time.Time) string {
	return "coupons:active:" + string(t) + ":" + asOf.Format(time.DateOnly)
}

// GetActive returns the cached active set for the variant, if present.
func (c *Cache) GetActive(ctx context.Context, t Type, asOf time.Time) ([]Coupon, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, activeKey(t, asOf)).Bytes()
	if err != nil {
		return nil, false
	}
	var coupons []Coupon
	if err := json.Unmarshal(data, &coupons); err != nil {
		return nil, false
	}
	return coupons, true
}

// SetActive stores the active set for the variant with the configured TTL.
func (c *Cache) SetActive(ctx context.Context, t Type, asOf time.Time, coupons []Coupon) {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(coupons)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, activeKey(t, asOf), data, c.ttl).Err()
}

// Invalidate drops today's cached sets for every variant. Called after a create
// so new coupons become discoverable immediately.
func (c *Cache) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	now := time.Now()
	keys := make([]string, 0, len(variantOrder))
	for _, t := range variantOrder {
		keys = append(keys, activeKey(t, now))
	}
	_ = c.client.Del(ctx, keys...).Err()
}
