//go:build integration

package hubstate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyluth/projecthub/internal/testutil"
	"github.com/dyluth/projecthub/pkg/hub"
)

// These run against a real Redis to cover what miniredis only approximates:
// key expiry and MULTI pipelines.
func TestIntegration_RealRedis(t *testing.T) {
	url := testutil.StartRedis(t)

	client, err := NewClientFromURL(url, "integration")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	require.NoError(t, client.Ping(ctx))

	t.Run("session expires with its TTL", func(t *testing.T) {
		s := newSession(uuid.NewString(), 2*time.Second)
		require.NoError(t, client.CreateSession(ctx, s))

		got, err := client.GetSession(ctx, s.Token)
		require.NoError(t, err)
		assert.Equal(t, s.UserID, got.UserID)

		require.Eventually(t, func() bool {
			_, err := client.GetSession(ctx, s.Token)
			return IsNotFound(err)
		}, 5*time.Second, 100*time.Millisecond)
	})

	t.Run("revoking other sessions keeps the current one", func(t *testing.T) {
		userID := uuid.NewString()
		keep := newSession(userID, time.Hour)
		for _, s := range []*Session{keep, newSession(userID, time.Hour), newSession(userID, time.Hour)} {
			require.NoError(t, client.CreateSession(ctx, s))
		}

		removed, err := client.DeleteUserSessions(ctx, userID, keep.Token)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		_, err = client.GetSession(ctx, keep.Token)
		assert.NoError(t, err)
	})

	t.Run("notification reaches its user's subscriber", func(t *testing.T) {
		userID := uuid.NewString()
		sub, err := client.SubscribeNotifications(ctx, userID)
		require.NoError(t, err)
		defer sub.Close()

		n := &hub.Notification{
			ID:      uuid.NewString(),
			UserID:  userID,
			Type:    hub.NotificationTaskAssigned,
			Title:   "Task assigned",
			Message: "You were assigned to Build kanban board",
		}
		require.NoError(t, client.PublishNotification(ctx, n))

		select {
		case got := <-sub.Events():
			assert.Equal(t, n.ID, got.ID)
			assert.Equal(t, n.Message, got.Message)
		case err := <-sub.Errors():
			t.Fatalf("subscription error: %v", err)
		case <-ctx.Done():
			t.Fatal("timed out waiting for notification")
		}
	})
}
