package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// broadcastChannel carries lobby fan-out across API instances.
const broadcastChannel = "arena.broadcast"

// broadcastEnvelope is the wire form of one fan-out message.
type broadcastEnvelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Broadcaster distributes lobby events to every API instance. Publishes go
// to a shared Redis channel; each instance's Run loop forwards received
// messages into its local WSHub, so clients get the update no matter which
// instance holds their socket.
type Broadcaster struct {
	client *redis.Client
	hub    *WSHub
	logger *slog.Logger
}

// NewBroadcaster creates a Broadcaster on top of an existing Redis client.
func NewBroadcaster(client *redis.Client, hub *WSHub, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{client: client, hub: hub, logger: logger}
}

// Publish sends an event to every member of a room, cluster-wide. Delivery
// is best-effort; a failed publish is logged, never propagated, since the
// state change it describes has already committed. A nil Broadcaster
// discards everything, which keeps tests free of a Redis dependency.
func (b *Broadcaster) Publish(ctx context.Context, room, event string, data interface{}) {
	if b == nil {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		b.logger.Error("broadcast marshal error", "room", room, "event", event, "error", err)
		return
	}
	payload, _ := json.Marshal(broadcastEnvelope{Room: room, Event: event, Data: raw})
	if err := b.client.Publish(ctx, broadcastChannel, payload).Err(); err != nil {
		b.logger.Error("broadcast publish error", "room", room, "event", event, "error", err)
	}
}

// Run subscribes to the broadcast channel and forwards messages into the
// local hub until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, broadcastChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", broadcastChannel, err)
	}
	b.logger.Info("broadcast subscriber started", "channel", broadcastChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env broadcastEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("broadcast decode error", "error", err)
				continue
			}
			b.hub.Publish(env.Room, env.Event, env.Data)
		}
	}
}
