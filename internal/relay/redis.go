package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/zkparallel/internal/task"
)

// publisher is the part of a redis client the relay uses.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Redis publishes each result on a pub/sub channel.
type Redis struct {
	name    string
	channel string
	client  publisher
}

// NewRedis creates a relay publishing to channel on the server at addr.
// The connection is established lazily on first use.
func NewRedis(name, addr, channel string) *Redis {
	return &Redis{
		name:    name,
		channel: channel,
		client:  redis.NewClient(&redis.Options{Addr: addr}),
	}
}

func (r *Redis) Name() string { return r.name }

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) PostResult(ctx context.Context, res task.Result) (string, error) {
	body, err := json.Marshal(NewPayload(res))
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	receivers, err := r.client.Publish(ctx, r.channel, body).Result()
	if err != nil {
		return "", fmt.Errorf("failed to publish to '%s': %w", r.channel, err)
	}
	return fmt.Sprintf("published to %d subscribers", receivers), nil
}
