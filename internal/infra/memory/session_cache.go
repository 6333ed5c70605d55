package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/randyrektor/obs-gameshow-overlay/internal/domain"
)

// SessionLoader fetches an archived session's events from a backing store.
type SessionLoader interface {
	LoadSession(ctx context.Context, sessionID string) ([]domain.Event, error)
}

// SessionCache caches archived event sequences with a TTL so repeated
// re-exports of the same show (different frame rates, different formats)
// don't keep hitting the database. Concurrent loads of one session are
// collapsed into a single backing query.
type SessionCache struct {
	loader SessionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSession
}

type cachedSession struct {
	events    []domain.Event
	expiresAt time.Time
}

func NewSessionCache(loader SessionLoader, ttl time.Duration) *SessionCache {
	return &SessionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSession),
	}
}

func (c *SessionCache) LoadSession(ctx context.Context, sessionID string) ([]domain.Event, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[sessionID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.events, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(sessionID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[sessionID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.events, nil
		}
		c.mu.RUnlock()

		events, err := c.loader.LoadSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[sessionID] = cachedSession{
			events:    events,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Event), nil
}

func (c *SessionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
