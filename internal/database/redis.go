package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// blockingConnHeadroom keeps connections free for token and lock commands
// while every worker is parked in BLPOP.
const blockingConnHeadroom = 10

// RedisClients splits blocking pub/sub subscriptions from the client used for
// the job queue, job locks and auth tokens.
type RedisClients struct {
	Queue  *redis.Client
	PubSub *redis.Client
}

func redisOptions(redisURL string, workers int) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	if floor := workers + blockingConnHeadroom; opt.PoolSize < floor {
		opt.PoolSize = floor
	}
	return opt, nil
}

func NewRedisClients(redisURL string, workers int) (*RedisClients, error) {
	opt, err := redisOptions(redisURL, workers)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	queueClient := redis.NewClient(opt)
	if err := queueClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (queue): %w", err)
	}

	pubsubOpt := *opt
	pubsubClient := redis.NewClient(&pubsubOpt)
	if err := pubsubClient.Ping(ctx).Err(); err != nil {
		queueClient.Close()
		pubsubClient.Close()
		return nil, fmt.Errorf("failed to ping Redis (pubsub): %w", err)
	}

	return &RedisClients{
		Queue:  queueClient,
		PubSub: pubsubClient,
	}, nil
}

func (r *RedisClients) Close() {
	r.Queue.Close()
	r.PubSub.Close()
}
