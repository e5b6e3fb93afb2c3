package database

import (
	"context"
	"fmt"
	"time"

	"github.com/docchat/backend/internal/config"
	"github.com/docchat/backend/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Seams for tests.
var (
	mongoDial = dialMongo
	sleep     = time.Sleep
)

// ConnectMongo connects to cfg.URI and pings it, retrying with doubling backoff
// to ride out a database that is still starting. Caller should Disconnect the client.
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := cfg.ConnectBackoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := mongoDial(ctx, cfg.URI, cfg.Timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, attempts, err)
		if attempt < attempts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sleep(backoff)
			backoff *= 2
		}
	}
	return nil, fmt.Errorf("mongo: gave up after %d attempts: %w", attempts, lastErr)
}

func dialMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}
