// Package realtime pushes sync resources to connected clients over Redis
// pub/sub. Each user has one channel; gateway processes subscribe to the
// channels of the users they hold connections for.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hawki-project/roomsync/internal/synclog"
)

const channelPrefix = "sync:user:"

// RedisPublisher broadcasts resources on per-user Redis channels. Delivery
// is best-effort; a client that misses a push catches up from the log.
type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID int64, resource *synclog.Resource) error {
	data, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("failed to marshal resource: %w", err)
	}

	if err := p.client.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish resource: %w", err)
	}
	return nil
}

// UserChannel returns the pub/sub channel name carrying a user's feed.
func UserChannel(userID int64) string {
	return fmt.Sprintf("%s%d", channelPrefix, userID)
}
