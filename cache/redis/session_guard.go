// Package redis provides the Redis-backed purchase idempotency guard.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionGuard ties one checkout session to at most one issued entitlement.
// Claim is a SETNX: the first caller wins, replayed success-page loads lose.
type SessionGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionGuard creates a guard. ttl bounds how long a claim is held;
// it only needs to outlive the window in which a success page can be
// replayed against a still-valid checkout session.
func NewSessionGuard(client *redis.Client, prefix string, ttl time.Duration) *SessionGuard {
	return &SessionGuard{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (g *SessionGuard) redisKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", g.prefix, sessionID)
}

// Claim marks the session as consumed. It returns false when another call
// already claimed it.
func (g *SessionGuard) Claim(ctx context.Context, sessionID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.redisKey(sessionID), time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim session in Redis: %w", err)
	}
	return ok, nil
}

// Release frees a claim so a session whose issuance failed can be retried.
func (g *SessionGuard) Release(ctx context.Context, sessionID string) error {
	if err := g.client.Del(ctx, g.redisKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to release session in Redis: %w", err)
	}
	return nil
}
