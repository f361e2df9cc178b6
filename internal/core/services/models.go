package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/tagmark/internal/core/domain"
	"github.com/custodia-labs/tagmark/internal/core/ports/driven"
	"github.com/custodia-labs/tagmark/internal/logger"
)

// loadRetryAfter is how long a failed model load is remembered before the
// next pass may try again.
const loadRetryAfter = 30 * time.Second

// modelCache loads each model-backed tier at most once per process.
// Concurrent passes that need the same tier share one load.
type modelCache struct {
	provider driven.ModelProvider
	timeout  time.Duration
	now      func() time.Time

	group singleflight.Group

	mu     sync.RWMutex
	loaded map[domain.TierName]driven.Scorer
	failed map[domain.TierName]failedLoad
}

type failedLoad struct {
	err error
	at  time.Time
}

func newModelCache(provider driven.ModelProvider, timeout time.Duration) *modelCache {
	return &modelCache{
		provider: provider,
		timeout:  timeout,
		now:      time.Now,
		loaded:   make(map[domain.TierName]driven.Scorer),
		failed:   make(map[domain.TierName]failedLoad),
	}
}

// get returns the scorer for tier, loading it on first use.
func (c *modelCache) get(ctx context.Context, tier domain.TierName) (driven.Scorer, error) {
	if c.provider == nil {
		return nil, fmt.Errorf("%w: no model provider configured", domain.ErrModelUnavailable)
	}

	c.mu.RLock()
	scorer, ok := c.loaded[tier]
	failure, failedRecently := c.failed[tier]
	c.mu.RUnlock()
	if ok {
		return scorer, nil
	}
	if failedRecently && c.now().Sub(failure.at) < loadRetryAfter {
		return nil, failure.err
	}

	ch := c.group.DoChan(string(tier), func() (any, error) {
		// The load outlives the pass that triggered it so other passes
		// waiting on the same tier are not failed by one caller's cancel.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		start := c.now()
		s, err := c.provider.Load(loadCtx, tier)
		if err != nil {
			err = fmt.Errorf("%w: loading %s model: %w", domain.ErrModelUnavailable, tier, err)
			c.mu.Lock()
			c.failed[tier] = failedLoad{err: err, at: c.now()}
			c.mu.Unlock()
			logger.Warn("Model load for %s tier failed: %v", tier, err)
			return nil, err
		}

		c.mu.Lock()
		c.loaded[tier] = s
		delete(c.failed, tier)
		c.mu.Unlock()
		logger.Debug("Loaded %s model in %v", tier, c.now().Sub(start))
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(driven.Scorer), nil
	}
}
