package ratelimit

import (
	"context"
	"fmt"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// Fixed adapts a ulule/limiter store to the Limiter interface using fixed windows.
type Fixed struct {
	Store limiter.Store
}

// NewMemory returns an in-process limiter for single-instance deployments.
func NewMemory(prefix string) Fixed {
	return Fixed{Store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Limiter.
func (f Fixed) Allow(ctx context.Context, key string, window time.Duration, max int) (bool, int, time.Time, error) {
	if f.Store == nil || max <= 0 || window <= 0 {
		return true, max, time.Now().Add(window), nil
	}
	res, err := limiter.New(f.Store, limiter.Rate{Period: window, Limit: int64(max)}).Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), fmt.Errorf("ratelimit: store get: %w", err)
	}
	return !res.Reached, int(res.Remaining), time.Unix(res.Reset, 0), nil
}
