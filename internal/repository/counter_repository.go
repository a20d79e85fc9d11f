package repository

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// CounterRepo keeps running event counters in Redis.  The external scan
// counter replaces the original document-store counters collection; INCR is
// atomic so concurrent scans cannot lose an increment.  A nil client
// disables counting, matching how the cache and rate limiter degrade.
type CounterRepo struct {
	rdb *redis.Client
}

func NewCounterRepo(rdb *redis.Client) *CounterRepo { return &CounterRepo{rdb: rdb} }

const externalScanKey = "counters:external_scans"

// IncrExternalScans bumps the external scan counter and returns the new
// value.  Returns 0 with no error when counting is disabled.
func (r *CounterRepo) IncrExternalScans(ctx context.Context) (int64, error) {
	if r.rdb == nil {
		return 0, nil
	}
	return r.rdb.Incr(ctx, externalScanKey).Result()
}

// ExternalScans reads the current counter value.
func (r *CounterRepo) ExternalScans(ctx context.Context) (int64, error) {
	if r.rdb == nil {
		return 0, nil
	}
	n, err := r.rdb.Get(ctx, externalScanKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}
