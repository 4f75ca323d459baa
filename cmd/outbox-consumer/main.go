// outbox-consumer tails the event topics the API publishes through its
// transactional outbox and logs each event. It is the template for any
// downstream projection (match history, leaderboards, analytics).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/matchpoint/arena/internal/infra"
)

var topics = []string{"arena.lobby.events", "arena.wallet.events"}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("outbox consumer failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.KafkaEnabled {
		return fmt.Errorf("KAFKA_ENABLED is false; nothing to consume")
	}

	groupID := os.Getenv("CONSUMER_GROUP")
	if groupID == "" {
		groupID = "arena-event-log"
	}

	logger.Info("outbox-consumer starting", "brokers", cfg.KafkaBrokers, "group", groupID, "topics", topics)

	var wg sync.WaitGroup
	for _, topic := range topics {
		consumer := infra.NewKafkaConsumer(cfg.KafkaBrokers, topic, groupID, true, logger)
		wg.Add(1)
		go func(topic string, c *infra.KafkaConsumer) {
			defer wg.Done()
			defer c.Close()
			consume(ctx, topic, c, logger)
		}(topic, consumer)
	}

	wg.Wait()
	logger.Info("outbox-consumer shutting down")
	return nil
}

// consume reads messages until the context is cancelled.
func consume(ctx context.Context, topic string, c *infra.KafkaConsumer, logger *slog.Logger) {
	for {
		msg, err := c.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("read message", "topic", topic, "error", err)
			continue
		}

		var envelope struct {
			EventID   string          `json:"event_id"`
			EventType string          `json:"event_type"`
			Payload   json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			logger.Error("malformed event", "topic", topic, "offset", msg.Offset, "error", err)
			continue
		}

		logger.Info("event",
			"topic", topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"event_id", envelope.EventID,
			"event_type", envelope.EventType,
		)
	}
}
