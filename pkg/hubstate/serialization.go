package hubstate

import (
	"fmt"
	"strconv"
	"time"
)

// SessionToHash converts a session to its Redis hash form. Times are stored as unix milliseconds.
func SessionToHash(s *Session) map[string]interface{} {
	return map[string]interface{}{
		"user_id":       s.UserID,
		"provider":      s.Provider,
		"created_at_ms": s.CreatedAt.UnixMilli(),
		"expires_at_ms": s.ExpiresAt.UnixMilli(),
	}
}

// HashToSession converts a Redis hash back to a session.
func HashToSession(token string, hash map[string]string) (*Session, error) {
	createdAt, err := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at_ms field: %w", err)
	}
	expiresAt, err := strconv.ParseInt(hash["expires_at_ms"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid expires_at_ms field: %w", err)
	}

	return &Session{
		Token:     token,
		UserID:    hash["user_id"],
		Provider:  hash["provider"],
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}, nil
}
