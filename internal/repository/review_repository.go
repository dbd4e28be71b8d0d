package repository

import (
	"context"
	"database/sql"
	"strings"
)

// ReviewRepo reads rating aggregates from the reviews table.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// AverageRatings returns the mean rating per provider.  Providers without
// reviews are omitted; callers treat a missing entry as 0.
func (r *ReviewRepo) AverageRatings(ctx context.Context, providerIDs []uint64) (map[uint64]float64, error) {
	out := make(map[uint64]float64, len(providerIDs))
	if len(providerIDs) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(providerIDs)), ",")
	args := make([]any, len(providerIDs))
	for i, id := range providerIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT provider_id, AVG(rating) FROM reviews WHERE provider_id IN ("+placeholders+") GROUP BY provider_id",
		args...)
	if err != nil {
		return nil, classify("reviews.AverageRatings", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  uint64
			avg sql.NullFloat64
		)
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, classify("reviews.AverageRatings", err)
		}
		if avg.Valid {
			out[id] = avg.Float64
		}
	}
	return out, classify("reviews.AverageRatings", rows.Err())
}
