package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinCorr/internal/domain/models"
	"FinCorr/pkg/cache"
	applogger "FinCorr/pkg/logger"
)

const keyPrefix = "session:analysis"

// DefaultTTL is used when no session lifetime is configured.
const DefaultTTL = 30 * time.Minute

// Cache keeps the latest analysis per session on top of a cache.Service.
// Operations on one session are serialized; different sessions never contend.
type Cache struct {
	backend cache.Service
	ttl     time.Duration
	locks   *KeyedMutex
	l       *applogger.Logger
}

// Option configures Cache.
type Option func(*Cache)

// WithTTL sets the session lifetime. Each successful Get extends it.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithLogger reports failures that do not fail the call, such as a TTL refresh.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Cache) { c.l = l }
}

func NewCache(backend cache.Service, opts ...Option) *Cache {
	c := &Cache{backend: backend, ttl: DefaultTTL, locks: NewKeyedMutex()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func key(sessionID string) string {
	return cache.GenerateKey(keyPrefix, sessionID)
}

func validateID(sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("%w: session id is required", models.ErrInvalidInput)
	}
	return nil
}

// Put replaces the session's analysis.
func (c *Cache) Put(ctx context.Context, sessionID string, res *models.CorrelationAnalysisResult) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("%w: nil analysis result", models.ErrInvalidInput)
	}
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	if err := c.backend.Set(ctx, key(sessionID), res, c.ttl); err != nil {
		return fmt.Errorf("session cache put: %w", err)
	}
	return nil
}

// Get returns the session's analysis or ErrNoAnalysisAvailable.
func (c *Cache) Get(ctx context.Context, sessionID string) (*models.CorrelationAnalysisResult, error) {
	if err := validateID(sessionID); err != nil {
		return nil, err
	}
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	var res models.CorrelationAnalysisResult
	if err := c.backend.Get(ctx, key(sessionID), &res); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, fmt.Errorf("%w: session %s", models.ErrNoAnalysisAvailable, sessionID)
		}
		return nil, fmt.Errorf("session cache get: %w", err)
	}
	if _, err := c.backend.Expire(ctx, key(sessionID), c.ttl); err != nil && c.l != nil {
		c.l.Warn("session ttl refresh failed",
			applogger.String("session_id", sessionID),
			applogger.Error(err),
		)
	}
	return &res, nil
}

// Delete drops the session's analysis. Deleting a missing entry is not an error.
func (c *Cache) Delete(ctx context.Context, sessionID string) error {
	if err := validateID(sessionID); err != nil {
		return err
	}
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	if err := c.backend.Delete(ctx, key(sessionID)); err != nil {
		return fmt.Errorf("session cache delete: %w", err)
	}
	return nil
}
