package postgres

import (
	"context"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// QueryLogRepo implements ports.QueryLogRepository.
type QueryLogRepo struct {
	db *DB
}

func NewQueryLogRepo(db *DB) *QueryLogRepo {
	return &QueryLogRepo{db: db}
}

func (r *QueryLogRepo) Insert(ctx context.Context, e *domain.QueryLogEntry) error {
	return r.db.Pool.QueryRow(ctx, `
		INSERT INTO query_log (month, poly, status, records, duration_ms, cached, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, string(e.Month), e.Poly, e.Status, e.Records, e.DurationMs, e.Cached, e.CreatedAt).Scan(&e.ID)
}

func (r *QueryLogRepo) Recent(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, month, poly, status, records, duration_ms, cached, created_at
		FROM query_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.QueryLogEntry{}
	for rows.Next() {
		var e domain.QueryLogEntry
		var month string
		if err := rows.Scan(
			&e.ID, &month, &e.Poly, &e.Status, &e.Records, &e.DurationMs, &e.Cached, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Month = domain.Month(month)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
