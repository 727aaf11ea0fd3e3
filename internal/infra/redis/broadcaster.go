// File: internal/infra/redis/broadcaster.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"

	"payment-gateway-service/internal/domain/ports/adapter"
)

const statusChannel = "payments:status"

// Broadcaster publishes status updates on a redis pub/sub channel.
// Downstream notification services subscribe; nobody in this process reads
// the channel back.
type Broadcaster struct {
	cli *redis.Client
}

var _ adapter.Broadcaster = (*Broadcaster)(nil)

func NewBroadcaster(c *Client) *Broadcaster {
	return &Broadcaster{cli: c.cli}
}

func (b *Broadcaster) Publish(ctx context.Context, update adapter.StatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal status update: %w", err)
	}
	if err := b.cli.Publish(ctx, statusChannel, payload).Err(); err != nil {
		return fmt.Errorf("publish status update: %w", err)
	}
	return nil
}
