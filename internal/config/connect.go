package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo dials and pings the catalog/ledger database.
func ConnectMongo(ctx context.Context, uri, db string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(db), nil
}

// ConnectRedis pings addr with capped exponential backoff until it answers
// or ctx ends.
func ConnectRedis(ctx context.Context, addr string, logger *slog.Logger) (*redis.Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 20})
	for attempt := 1; ; attempt++ {
		err := rdb.Ping(ctx).Err()
		if err == nil {
			logger.Info("Connected to redis", "addr", addr, "attempt", attempt)
			return rdb, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		logger.Warn("Failed to connect redis", "addr", addr, "attempt", attempt, "retry_in", sleep, "err", err)
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, fmt.Errorf("connect redis %s: %w", addr, err)
		case <-time.After(sleep):
		}
	}
}
