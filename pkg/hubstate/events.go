package hubstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/projecthub/pkg/hub"
)

// Subscription is an active Pub/Sub subscription delivering decoded events.
type Subscription[T any] struct {
	events <-chan *T
	errors <-chan error
	cancel context.CancelFunc
	once   sync.Once
}

// Events returns the channel of decoded events. It is closed when the subscription ends.
func (s *Subscription[T]) Events() <-chan *T {
	return s.events
}

// Errors returns the channel of decode errors. Malformed messages are skipped.
func (s *Subscription[T]) Errors() <-chan error {
	return s.errors
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription[T]) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// PublishActivity broadcasts an activity event to every activity subscriber of the instance.
func (c *Client) PublishActivity(ctx context.Context, e *ActivityEvent) error {
	return c.publish(ctx, ActivityEventsChannel(c.instance), e)
}

// PublishNotification delivers a notification to the live subscribers of its user.
func (c *Client) PublishNotification(ctx context.Context, n *hub.Notification) error {
	if n.UserID == "" {
		return fmt.Errorf("notification has no user")
	}
	return c.publish(ctx, NotificationsChannel(c.instance, n.UserID), n)
}

func (c *Client) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// SubscribeActivity subscribes to activity events for this instance.
// Caller must call Close when done; context cancellation also ends the subscription.
func (c *Client) SubscribeActivity(ctx context.Context) (*Subscription[ActivityEvent], error) {
	return subscribe[ActivityEvent](ctx, c.rdb, ActivityEventsChannel(c.instance), "activity")
}

// SubscribeNotifications subscribes to one user's notifications.
func (c *Client) SubscribeNotifications(ctx context.Context, userID string) (*Subscription[hub.Notification], error) {
	return subscribe[hub.Notification](ctx, c.rdb, NotificationsChannel(c.instance, userID), "notification")
}

// subscribe confirms the subscription with Redis before returning, then decodes
// messages on a goroutine into buffered (size 10) event and error channels.
func subscribe[T any](ctx context.Context, rdb *redis.Client, channel, what string) (*Subscription[T], error) {
	pubsub := rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s events: %w", what, err)
	}

	eventsChan := make(chan *T, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event T
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal %s event: %w", what, err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription[T]{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancel,
	}, nil
}
