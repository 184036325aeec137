package hubstate

import (
	"fmt"
	"strings"
)

// Redis key pattern helpers.
//
// Key pattern: projecthub:{instance}:{entity}:{id}
// Channel pattern: projecthub:{instance}:{event_type}_events

// SessionKey returns the Redis key for a session hash.
func SessionKey(instance, token string) string {
	return fmt.Sprintf("projecthub:%s:session:%s", instance, token)
}

// UserSessionsKey returns the Redis key for the set of a user's session tokens.
func UserSessionsKey(instance, userID string) string {
	return fmt.Sprintf("projecthub:%s:user_sessions:%s", instance, userID)
}

// OAuthStateKey returns the Redis key for a pending OAuth state token.
func OAuthStateKey(instance, state string) string {
	return fmt.Sprintf("projecthub:%s:oauth_state:%s", instance, state)
}

// LoginAttemptsKey returns the Redis key for an email's failed sign-in counter.
// Emails are lower-cased so the counter cannot be dodged by changing case.
func LoginAttemptsKey(instance, email string) string {
	return fmt.Sprintf("projecthub:%s:login_attempts:%s", instance, strings.ToLower(strings.TrimSpace(email)))
}

// ActivityEventsChannel returns the Pub/Sub channel carrying task activity.
func ActivityEventsChannel(instance string) string {
	return fmt.Sprintf("projecthub:%s:activity_events", instance)
}

// NotificationsChannel returns the per-user Pub/Sub channel for notifications.
func NotificationsChannel(instance, userID string) string {
	return fmt.Sprintf("projecthub:%s:user:%s:notifications", instance, userID)
}
