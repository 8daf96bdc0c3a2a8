package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"skillgomoku/backend/internal/analytics"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	brokers := kafkaBrokers()
	topic := getenv("KAFKA_TOPIC", "game-events")

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: "analytics-consumer",
	})
	defer reader.Close()

	logger.Info("analytics consumer listening", zap.Strings("brokers", brokers), zap.String("topic", topic))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := analytics.NewMetrics()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.Log(logger)
			}
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				metrics.Log(logger)
				return
			}
			logger.Fatal("read error", zap.Error(err))
		}
		var e analytics.Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			logger.Warn("failed to unmarshal event", zap.Error(err))
			continue
		}
		metrics.Record(e)
		logger.Debug("event",
			zap.String("event", e.Event),
			zap.Any("game_id", e.Payload["gameId"]),
			zap.Any("winner", e.Payload["winner"]))
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// kafkaBrokers reads KAFKA_BROKERS like the server does, falling back to the
// single-broker KAFKA_BROKER.
func kafkaBrokers() []string {
	return strings.Split(getenv("KAFKA_BROKERS", getenv("KAFKA_BROKER", "localhost:9092")), ",")
}
