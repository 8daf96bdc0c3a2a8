package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"skillgomoku/backend/internal/analytics"
	"skillgomoku/backend/internal/game"
	"skillgomoku/backend/internal/server"
	"skillgomoku/backend/internal/storage"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	envErr := godotenv.Load()

	logger := newLogger(os.Getenv("DEBUG") != "")
	defer logger.Sync()
	if envErr != nil && !os.IsNotExist(envErr) {
		logger.Warn("error loading .env file", zap.Error(envErr))
	}

	// Check for PORT first (used by Render, Fly.io, Heroku, etc.)
	port := os.Getenv("PORT")
	var addr string
	if port != "" {
		addr = ":" + port
	} else {
		addr = getEnv("ADDR", ":8080")
	}
	botDelay := durationEnv("BOT_DELAY", 10*time.Second)
	reconnect := durationEnv("RECONNECT_WINDOW", 30*time.Second)
	turnLimit := durationEnv("TURN_TIME_LIMIT", 15*time.Second)
	seed := int64Env("AI_SEED", 0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store storage.Store
	if dsn := os.Getenv("POSTGRES_URL"); dsn != "" {
		pg, err := storage.NewPostgresStore(ctx, dsn, logger.Named("storage"))
		if err != nil {
			logger.Warn("postgres disabled", zap.Error(err))
		} else {
			defer pg.Close(context.Background())
			if err := pg.EnsureTables(ctx); err != nil {
				logger.Warn("postgres ensure tables failed", zap.Error(err))
			}
			store = pg
		}
	}

	var producer *analytics.Producer
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := getEnv("KAFKA_TOPIC", "game-events")
		producer = analytics.NewProducer(strings.Split(brokers, ","), topic, logger.Named("analytics"))
		defer producer.Close()
	}

	srv := server.New(server.Config{
		BotFallbackAfter: botDelay,
		ReconnectWindow:  reconnect,
		TurnTimeLimit:    turnLimit,
		Store:            store,
		Analytics:        producer,
		Rand:             game.NewRand(seed),
		Logger:           logger,
		FrontendDir:      os.Getenv("FRONTEND_DIR"),
	})

	logger.Info("server listening", zap.String("addr", addr), zap.Duration("turn_limit", turnLimit))
	if err := srv.Run(ctx, addr); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv reads whole seconds.
func durationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return time.Duration(parsed) * time.Second
		}
	}
	return fallback
}

func int64Env(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
