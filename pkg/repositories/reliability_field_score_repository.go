package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-reliability/pkg/database"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// FieldScoreRepository provides data access for the current per-field scores.
type FieldScoreRepository interface {
	// ListByEntity returns the current field scores of one entity, sorted by field.
	ListByEntity(ctx context.Context, model, foreignKey string) ([]models.FieldScoreRecord, error)

	// UpsertAll writes every record, inserting new fields and updating existing ones.
	UpsertAll(ctx context.Context, records []models.FieldScoreRecord) error

	// FieldStats aggregates each field across all entities of a model.
	FieldStats(ctx context.Context, model string) (map[string]models.FieldStat, error)
}

type fieldScoreRepository struct {
	db *database.DB
}

// NewFieldScoreRepository creates a new FieldScoreRepository.
func NewFieldScoreRepository(db *database.DB) FieldScoreRepository {
	return &fieldScoreRepository{db: db}
}

var _ FieldScoreRepository = (*fieldScoreRepository)(nil)

func (r *fieldScoreRepository) ListByEntity(ctx context.Context, model, foreignKey string) ([]models.FieldScoreRecord, error) {
	query := `
		SELECT model, foreign_key, field, score, weight, max_score, notes, created_at, updated_at
		FROM reliability_field_scores
		WHERE model = $1 AND foreign_key = $2
		ORDER BY field`

	rows, err := r.db.Conn(ctx).Query(ctx, query, model, foreignKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query field scores: %w", err)
	}
	defer rows.Close()

	var records []models.FieldScoreRecord
	for rows.Next() {
		var rec models.FieldScoreRecord
		if err := rows.Scan(
			&rec.Model,
			&rec.ForeignKey,
			&rec.Field,
			&rec.Score,
			&rec.Weight,
			&rec.MaxScore,
			&rec.Notes,
			&rec.CreatedAt,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan field score: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field scores: %w", err)
	}

	return records, nil
}

func (r *fieldScoreRepository) UpsertAll(ctx context.Context, records []models.FieldScoreRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO reliability_field_scores (
			model, foreign_key, field, score, weight, max_score, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (model, foreign_key, field) DO UPDATE SET
			score = EXCLUDED.score,
			weight = EXCLUDED.weight,
			max_score = EXCLUDED.max_score,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range records {
		rec := &records[i]
		batch.Queue(query,
			rec.Model,
			rec.ForeignKey,
			rec.Field,
			rec.Score,
			rec.Weight,
			rec.MaxScore,
			rec.Notes,
			now,
		)
	}

	results := r.db.Conn(ctx).SendBatch(ctx, batch)
	defer results.Close()

	for i := range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert field score %q: %w", records[i].Field, err)
		}
	}

	return nil
}

func (r *fieldScoreRepository) FieldStats(ctx context.Context, model string) (map[string]models.FieldStat, error) {
	query := `
		SELECT field,
			COUNT(*),
			ROUND(AVG(score)::numeric, 3)::float8,
			ROUND(MIN(score)::numeric, 2)::float8,
			ROUND(MAX(score)::numeric, 2)::float8,
			ROUND(AVG(weight)::numeric, 3)::float8
		FROM reliability_field_scores
		WHERE model = $1
		GROUP BY field
		ORDER BY field`

	rows, err := r.db.Conn(ctx).Query(ctx, query, model)
	if err != nil {
		return nil, fmt.Errorf("failed to query field stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]models.FieldStat)
	for rows.Next() {
		var (
			field string
			s     models.FieldStat
		)
		if err := rows.Scan(&field, &s.Count, &s.AvgScore, &s.MinScore, &s.MaxScore, &s.AvgWeight); err != nil {
			return nil, fmt.Errorf("failed to scan field stat: %w", err)
		}
		stats[field] = s
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field stats: %w", err)
	}

	return stats, nil
}
