package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"recognition-backend/internal/media"
	"recognition-backend/internal/metrics"
	"recognition-backend/internal/models"
	"recognition-backend/internal/services"
)

const (
	maxAttempts = 3
	lockTTL     = 10 * time.Minute
	popTimeout  = 30 * time.Second
)

// errBadPayload marks jobs that can never succeed no matter how often they run.
var errBadPayload = errors.New("invalid job payload")

type urlPredictor interface {
	PredictURL(ctx context.Context, userID uuid.UUID, req models.URLPredictionRequest) (*models.URLPredictionResponse, error)
}

type jobStore interface {
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	SaveResult(ctx context.Context, id uuid.UUID, result any) error
	UpdateError(ctx context.Context, id uuid.UUID, kind, errMsg string) error
}

type Pool struct {
	redis       *redis.Client
	predictor   urlPredictor
	jobs        jobStore
	queue       services.JobQueue
	events      services.EventPublisher
	workerCount int
	jobTimeout  time.Duration
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	predictor urlPredictor,
	jobs jobStore,
	queue services.JobQueue,
	events services.EventPublisher,
	workerCount int,
	jobTimeout time.Duration,
) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	return &Pool{
		redis:       redisClient,
		predictor:   predictor,
		jobs:        jobs,
		queue:       queue,
		events:      events,
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{services.URLAnalysisQueue}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}

	slog.Info("started worker goroutines", slog.Int("count", p.workerCount))
}

// Stop signals the workers and waits for in-flight jobs. A worker blocked in
// BLPOP exits once the pop times out.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			slog.Info("worker shutting down", slog.Int("worker", id))
			return
		default:
		}

		ctx := context.Background()

		result, err := p.redis.BLPop(ctx, popTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				slog.Warn("queue pop failed", slog.Int("worker", id), slog.Any("error", err))
				time.Sleep(time.Second)
			}
			continue
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			slog.Error("failed to parse job", slog.Int("worker", id), slog.Any("error", err))
			continue
		}

		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		slog.Info("processing job",
			slog.Int("worker", id),
			slog.String("job_id", job.ID.String()),
			slog.String("type", job.Type),
		)

		p.run(ctx, &job)

		p.redis.Del(ctx, lockKey)
	}
}

// run executes one job and records its outcome.
func (p *Pool) run(ctx context.Context, job *models.Job) {
	p.updateStatus(ctx, job, models.JobStatusProcessing, 10, "Fetching media")

	jobCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	var (
		result *models.URLPredictionResponse
		err    error
	)
	switch job.Type {
	case models.JobTypeURLAnalysis:
		result, err = p.processURLAnalysis(jobCtx, job)
	default:
		err = fmt.Errorf("%w: unknown job type %q", errBadPayload, job.Type)
	}

	if err != nil {
		p.handleFailure(ctx, job, err)
		return
	}
	p.handleSuccess(ctx, job, result)
}

func (p *Pool) processURLAnalysis(ctx context.Context, job *models.Job) (*models.URLPredictionResponse, error) {
	var req models.URLPredictionRequest
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}

	p.updateStatus(ctx, job, models.JobStatusProcessing, 40, "Analyzing content")

	return p.predictor.PredictURL(ctx, job.UserID, req)
}

func (p *Pool) updateStatus(ctx context.Context, job *models.Job, status string, progress int, step string) {
	if err := p.jobs.UpdateStatus(ctx, job.ID, status, progress); err != nil {
		slog.Warn("failed to update job status", slog.String("job_id", job.ID.String()), slog.Any("error", err))
	}
	job.Status = status
	job.Progress = progress

	p.events.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "status_update",
		Payload: models.StatusUpdate{
			JobID:    job.ID,
			Status:   status,
			Progress: progress,
			StepName: step,
		},
	})
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, result *models.URLPredictionResponse) {
	if err := p.jobs.SaveResult(ctx, job.ID, result); err != nil {
		p.handleFailure(ctx, job, fmt.Errorf("failed to save result: %w", err))
		return
	}
	if err := p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusCompleted, 100); err != nil {
		slog.Warn("failed to mark job completed", slog.String("job_id", job.ID.String()), slog.Any("error", err))
	}
	metrics.RecordJob(models.JobStatusCompleted)

	p.events.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:       job.ID,
			ContentKind: result.ContentKind,
			Insight:     result.Insight,
		},
	})

	slog.Info("job completed", slog.String("job_id", job.ID.String()), slog.String("content_kind", string(result.ContentKind)))
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	if retryable(err) {
		attempt := p.nextAttempt(ctx, job.ID)
		if attempt < maxAttempts {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			slog.Warn("job failed, retrying",
				slog.String("job_id", job.ID.String()),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
				slog.Any("error", err),
			)
			p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusPending, 0)
			requeued := *job
			time.AfterFunc(backoff, func() {
				if qerr := p.queue.Enqueue(context.Background(), &requeued); qerr != nil {
					slog.Error("failed to requeue job", slog.String("job_id", requeued.ID.String()), slog.Any("error", qerr))
				}
			})
			metrics.RecordJob("retried")
			return
		}
	}

	kind, code, message := describeFailure(err)
	slog.Error("job failed permanently",
		slog.String("job_id", job.ID.String()),
		slog.String("kind", kind),
		slog.Any("error", err),
	)

	if uerr := p.jobs.UpdateError(ctx, job.ID, kind, message); uerr != nil {
		slog.Warn("failed to record job error", slog.String("job_id", job.ID.String()), slog.Any("error", uerr))
	}
	if uerr := p.jobs.UpdateStatus(ctx, job.ID, models.JobStatusFailed, job.Progress); uerr != nil {
		slog.Warn("failed to mark job failed", slog.String("job_id", job.ID.String()), slog.Any("error", uerr))
	}
	metrics.RecordJob(models.JobStatusFailed)

	p.events.PublishUpdate(ctx, job.UserID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    code,
			ErrorMessage: message,
		},
	})
}

// nextAttempt counts failures per job in Redis so retries survive requeueing.
func (p *Pool) nextAttempt(ctx context.Context, id uuid.UUID) int {
	key := fmt.Sprintf("job_attempts:%s", id.String())
	n, err := p.redis.Incr(ctx, key).Result()
	if err != nil {
		return maxAttempts
	}
	p.redis.Expire(ctx, key, time.Hour)
	return int(n)
}

// retryable reports whether err may be transient. Media errors and invalid
// requests are terminal.
func retryable(err error) bool {
	if errors.Is(err, errBadPayload) {
		return false
	}
	if _, ok := media.KindOf(err); ok {
		return false
	}
	var verr *services.ValidationError
	return !errors.As(err, &verr)
}

func describeFailure(err error) (kind, code, message string) {
	var mediaErr *media.Error
	if errors.As(err, &mediaErr) {
		return string(mediaErr.Kind), "ANALYSIS_FAILED", mediaErr.Message
	}
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return "validation_error", "VALIDATION_ERROR", "Invalid analysis request"
	}
	if errors.Is(err, errBadPayload) {
		return "invalid_job", "JOB_FAILED", "Invalid job payload"
	}
	return "internal_error", "JOB_FAILED", "Analysis failed"
}
