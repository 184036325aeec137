package hubstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations.
// All keys and channels are namespaced with the instance name.
// The client is safe for concurrent use.
type Client struct {
	rdb      *redis.Client
	instance string
}

// NewClient creates a client for the given instance.
// Returns an error if instance is empty.
func NewClient(redisOpts *redis.Options, instance string) (*Client, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:      redis.NewClient(redisOpts),
		instance: instance,
	}, nil
}

// NewClientFromURL parses a redis:// URL and creates a client for the instance.
func NewClientFromURL(url, instance string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	return NewClient(opts, instance)
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Instance returns the namespace this client writes under.
func (c *Client) Instance() string {
	return c.instance
}

// CreateSession stores a session hash with a TTL and indexes it under its user.
func (c *Client) CreateSession(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("invalid session: already expired")
	}

	key := SessionKey(c.instance, s.Token)
	userKey := UserSessionsKey(c.instance, s.UserID)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, SessionToHash(s))
		pipe.Expire(ctx, key, ttl)
		pipe.SAdd(ctx, userKey, s.Token)
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
// Returns (nil, redis.Nil) if the session does not exist or has expired.
func (c *Client) GetSession(ctx context.Context, token string) (*Session, error) {
	hash, err := c.rdb.HGetAll(ctx, SessionKey(c.instance, token)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}
	if len(hash) == 0 {
		return nil, redis.Nil
	}

	s, err := HashToSession(token, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}
	return s, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an error.
func (c *Client) DeleteSession(ctx context.Context, token string) error {
	key := SessionKey(c.instance, token)
	userID, err := c.rdb.HGet(ctx, key, "user_id").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to read session from Redis: %w", err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if userID != "" {
			pipe.SRem(ctx, UserSessionsKey(c.instance, userID), token)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session of the user except keep, and returns how many were removed.
func (c *Client) DeleteUserSessions(ctx context.Context, userID, keep string) (int, error) {
	userKey := UserSessionsKey(c.instance, userID)
	tokens, err := c.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list user sessions: %w", err)
	}

	removed := 0
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, token := range tokens {
			if token == keep {
				continue
			}
			pipe.Del(ctx, SessionKey(c.instance, token))
			pipe.SRem(ctx, userKey, token)
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return removed, nil
}

// PutOAuthState records a pending OAuth state token and the path to return to.
func (c *Client) PutOAuthState(ctx context.Context, state, returnTo string, ttl time.Duration) error {
	if state == "" {
		return fmt.Errorf("state cannot be empty")
	}
	if err := c.rdb.Set(ctx, OAuthStateKey(c.instance, state), returnTo, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store OAuth state: %w", err)
	}
	return nil
}

// ConsumeOAuthState reads and deletes a state token in one step, so each state is usable once.
// Returns redis.Nil if the state is unknown or expired.
func (c *Client) ConsumeOAuthState(ctx context.Context, state string) (string, error) {
	returnTo, err := c.rdb.GetDel(ctx, OAuthStateKey(c.instance, state)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", redis.Nil
		}
		return "", fmt.Errorf("failed to consume OAuth state: %w", err)
	}
	return returnTo, nil
}

// RegisterFailedLogin increments the email's failure counter. The window starts
// with the first failure; a counter found without one gets it on the next failure.
func (c *Client) RegisterFailedLogin(ctx context.Context, email string, window time.Duration) (int64, error) {
	key := LoginAttemptsKey(c.instance, email)
	var incr *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempt: %w", err)
	}
	return incr.Val(), nil
}

// LoginAttempts returns the failures recorded in the current window.
func (c *Client) LoginAttempts(ctx context.Context, email string) (int64, error) {
	n, err := c.rdb.Get(ctx, LoginAttemptsKey(c.instance, email)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read login attempts: %w", err)
	}
	return n, nil
}

// ResetLoginAttempts clears the failure counter after a successful sign-in.
func (c *Client) ResetLoginAttempts(ctx context.Context, email string) error {
	if err := c.rdb.Del(ctx, LoginAttemptsKey(c.instance, email)).Err(); err != nil {
		return fmt.Errorf("failed to reset login attempts: %w", err)
	}
	return nil
}

// IsNotFound reports whether err is a Redis not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}

// LoginLocked reports whether the email has reached max failures in the current window.
func (c *Client) LoginLocked(ctx context.Context, email string, max int) (bool, error) {
	n, err := c.LoginAttempts(ctx, email)
	if err != nil {
		return false, err
	}
	return max > 0 && n >= int64(max), nil
}
