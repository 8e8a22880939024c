package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"recognition-backend/internal/models"
)

const topLabelsLimit = 5

type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

func (r *HistoryRepo) Add(ctx context.Context, e *models.HistoryEntry) error {
	e.ID = uuid.New()
	if len(e.TopPredictions) == 0 {
		e.TopPredictions = []byte("[]")
	}

	query := `INSERT INTO prediction_history (id, user_id, filename, top_label, top_confidence, source, top_predictions)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		e.ID, e.UserID, e.Filename, e.TopLabel, e.TopConfidence, e.Source, e.TopPredictions,
	).Scan(&e.Timestamp)
}

// ListByUser returns the newest entries first, bounded by the filter.
func (r *HistoryRepo) ListByUser(ctx context.Context, userID uuid.UUID, f models.HistoryFilter) ([]models.HistoryEntry, error) {
	var args []interface{}
	argIdx := 1

	where := fmt.Sprintf("WHERE user_id = $%d", argIdx)
	args = append(args, userID)
	argIdx++

	if f.From != nil {
		where += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *f.From)
		argIdx++
	}
	if f.To != nil {
		where += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *f.To)
		argIdx++
	}

	query := fmt.Sprintf(`SELECT id, user_id, created_at, filename, top_label, top_confidence, source, top_predictions
		FROM prediction_history %s ORDER BY created_at DESC LIMIT $%d`, where, argIdx)
	args = append(args, f.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.HistoryEntry, 0)
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.Timestamp, &e.Filename, &e.TopLabel,
			&e.TopConfidence, &e.Source, &e.TopPredictions,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *HistoryRepo) ClearByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM prediction_history WHERE user_id = $1", userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *HistoryRepo) Stats(ctx context.Context, userID uuid.UUID) (*models.DashboardStats, error) {
	stats := &models.DashboardStats{
		BySource:  make(map[string]int),
		TopLabels: make([]models.LabelCount, 0),
	}

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(AVG(top_confidence), 0) FROM prediction_history WHERE user_id = $1`,
		userID,
	).Scan(&stats.TotalPredictions, &stats.AverageConfidence)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT source, COUNT(*) FROM prediction_history WHERE user_id = $1 GROUP BY source`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.BySource[source] = count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = r.pool.Query(ctx,
		`SELECT top_label, COUNT(*) AS n FROM prediction_history WHERE user_id = $1
		GROUP BY top_label ORDER BY n DESC, top_label ASC LIMIT $2`,
		userID, topLabelsLimit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var lc models.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		stats.TopLabels = append(stats.TopLabels, lc)
	}

	return stats, rows.Err()
}
