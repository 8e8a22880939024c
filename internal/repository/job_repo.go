package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"recognition-backend/internal/models"
)

type JobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *JobRepo {
	return &JobRepo{pool: pool}
}

func (r *JobRepo) Create(ctx context.Context, j *models.Job) error {
	j.ID = uuid.New()
	j.Status = models.JobStatusPending
	j.Progress = 0

	payload := []byte(j.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	query := `INSERT INTO jobs (id, user_id, type, status, progress, payload)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		j.ID, j.UserID, j.Type, j.Status, j.Progress, payload,
	).Scan(&j.CreatedAt)
}

func (r *JobRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j := &models.Job{}
	query := `SELECT id, user_id, type, status, progress, payload, result, error_kind, error_message,
		created_at, started_at, completed_at
		FROM jobs WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&j.ID, &j.UserID, &j.Type, &j.Status, &j.Progress, &j.Payload, &j.Result,
		&j.ErrorKind, &j.ErrorMessage, &j.CreatedAt, &j.StartedAt, &j.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	now := time.Now()
	switch status {
	case models.JobStatusProcessing:
		_, err := r.pool.Exec(ctx,
			"UPDATE jobs SET status = $1, progress = $2, started_at = COALESCE(started_at, $3) WHERE id = $4",
			status, progress, now, id)
		return err
	case models.JobStatusCompleted, models.JobStatusFailed:
		_, err := r.pool.Exec(ctx,
			"UPDATE jobs SET status = $1, progress = $2, completed_at = $3 WHERE id = $4",
			status, progress, now, id)
		return err
	}
	_, err := r.pool.Exec(ctx, "UPDATE jobs SET status = $1, progress = $2 WHERE id = $3", status, progress, id)
	return err
}

func (r *JobRepo) SaveResult(ctx context.Context, id uuid.UUID, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, "UPDATE jobs SET result = $1 WHERE id = $2", data, id)
	return err
}

func (r *JobRepo) UpdateError(ctx context.Context, id uuid.UUID, kind, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE jobs SET error_kind = $1, error_message = $2 WHERE id = $3",
		kind, errMsg, id,
	)
	return err
}
