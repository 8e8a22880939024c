package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"recognition-backend/internal/models"
)

const URLAnalysisQueue = "queue:url-analysis"

// JobQueue hands persisted jobs to the worker pool.
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error
}

type RedisJobQueue struct {
	client *redis.Client
}

func NewRedisJobQueue(client *redis.Client) *RedisJobQueue {
	return &RedisJobQueue{client: client}
}

func (q *RedisJobQueue) Enqueue(ctx context.Context, job *models.Job) error {
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, QueueName(job.Type), string(jobBytes)).Err()
}

func QueueName(jobType string) string {
	return "queue:" + jobType
}

// UserChannel is the pub/sub channel carrying one user's job events.
func UserChannel(userID uuid.UUID) string {
	return fmt.Sprintf("user_updates:%s", userID.String())
}

// EventPublisher pushes websocket messages to a user's subscribers.
type EventPublisher interface {
	PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage)
}

type RedisPublisher struct {
	client *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) PublishUpdate(ctx context.Context, userID uuid.UUID, msg models.WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to encode websocket message", slog.String("type", msg.Type), slog.Any("error", err))
		return
	}
	if err := p.client.Publish(ctx, UserChannel(userID), string(data)).Err(); err != nil {
		slog.Warn("failed to publish update", slog.String("user_id", userID.String()), slog.Any("error", err))
	}
}
