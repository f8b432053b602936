package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"archui-experiment-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// AssignmentSource fetches assignments from a backing store (e.g. Postgres).
type AssignmentSource interface {
	FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error)
}

// AssignmentCache caches task assignments in Redis and falls back to the
// source on cache miss. Assignments are stored as:
// SET experiment:assignment:{mtrNo} {json}
type AssignmentCache struct {
	client *redis.Client
	source AssignmentSource
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewAssignmentCache(client *redis.Client, source AssignmentSource, ttl time.Duration) *AssignmentCache {
	return &AssignmentCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *AssignmentCache) FetchAssignment(ctx context.Context, mtrNo string) (domain.TaskAssignment, error) {
	key := c.key(mtrNo)

	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		return decodeAssignment(raw)
	}

	result, err, _ := c.sf.Do(mtrNo, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := c.client.Get(ctx, key).Result(); err == nil {
			return decodeAssignment(raw)
		}

		assignment, err := c.source.FetchAssignment(ctx, mtrNo)
		if err != nil {
			return nil, err
		}

		data, err := json.Marshal(assignment)
		if err != nil {
			return nil, fmt.Errorf("encode assignment: %w", err)
		}
		_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		return assignment, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(domain.TaskAssignment), nil
}

func (c *AssignmentCache) key(mtrNo string) string {
	return "experiment:assignment:" + mtrNo
}

func decodeAssignment(raw string) (domain.TaskAssignment, error) {
	var assignment domain.TaskAssignment
	if err := json.Unmarshal([]byte(raw), &assignment); err != nil {
		return nil, fmt.Errorf("decode assignment: %w", err)
	}
	return assignment, nil
}

func (c *AssignmentCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
