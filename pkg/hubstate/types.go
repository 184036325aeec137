package hubstate

import (
	"fmt"
	"time"

	"github.com/dyluth/projecthub/pkg/hub"
)

// Session is a signed-in browser or API client.
type Session struct {
	Token     string
	UserID    string
	Provider  string // "credentials" or an OAuth provider name
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Validate checks the session carries a token and a user.
func (s *Session) Validate() error {
	if s.Token == "" {
		return fmt.Errorf("session token cannot be empty")
	}
	if !hub.IsValidID(s.UserID) {
		return fmt.Errorf("invalid session user ID: not a valid UUID")
	}
	if s.Provider == "" {
		return fmt.Errorf("session provider cannot be empty")
	}
	return nil
}

// ActivityEvent is published whenever a task's activity log grows.
type ActivityEvent struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId"`
	TaskTitle string     `json:"taskTitle"`
	ProjectID string     `json:"projectId"`
	UserID    string     `json:"userId"`
	UserName  string     `json:"userName"`
	Action    hub.Action `json:"action"`
	Details   string     `json:"details"`
	CreatedAt time.Time  `json:"createdAt"`
}
