// Package notifications publishes view revalidation events over Redis pub/sub.
package notifications

import (
	"context"
	"runtime/debug"

	"threads/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// RevalidationChannel carries view paths that became stale.
const RevalidationChannel = "views:revalidate"

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishRevalidation announces that the view at path is stale.
func (n *Notifier) PublishRevalidation(ctx context.Context, path string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, RevalidationChannel, path).Err()
}

// StartRevalidationSubscriber calls onPath for every revalidated path until ctx
// is cancelled. The subscription is confirmed before it returns.
func (n *Notifier) StartRevalidationSubscriber(ctx context.Context, onPath func(path string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, RevalidationChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in revalidation subscriber", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onPath(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
