package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"archui-experiment-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// AssignmentSource fetches assignments from a backing store (remote endpoint
// or Postgres).
type AssignmentSource interface {
	FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error)
}

// AssignmentCache caches task assignments with TTL to avoid hitting the
// backing source on every resolver fetch. Changes on the source become
// visible once the cached entry expires.
type AssignmentCache struct {
	source AssignmentSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedAssignment
}

type cachedAssignment struct {
	assignment domain.TaskAssignment
	expiresAt  time.Time
}

func NewAssignmentCache(source AssignmentSource, ttl time.Duration) *AssignmentCache {
	return &AssignmentCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedAssignment),
	}
}

func (c *AssignmentCache) FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[mtrNo]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.assignment, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(mtrNo, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[mtrNo]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.assignment, nil
		}
		c.mu.RUnlock()

		assignment, err := c.source.FetchAssignment(ctx, mtrNo)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[mtrNo] = cachedAssignment{
			assignment: assignment,
			expiresAt:  now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return assignment, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.TaskAssignment), nil
}

func (c *AssignmentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
