package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/database"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// SummaryRepository provides data access for per-entity score totals.
type SummaryRepository interface {
	// Get returns the summary of one entity, or apperrors.ErrNotFound.
	Get(ctx context.Context, model, foreignKey string) (*models.ReliabilitySummary, error)

	// Save writes s if the stored version still equals expectedVersion
	// (0 meaning no row yet) and sets s.Version to expectedVersion+1.
	// Returns apperrors.ErrConflict when another writer got there first.
	Save(ctx context.Context, s *models.ReliabilitySummary, expectedVersion int64) error

	// List returns summaries of a model ordered by foreign key.
	List(ctx context.Context, model string, limit, offset int) ([]*models.ReliabilitySummary, error)
}

type summaryRepository struct {
	db *database.DB
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(db *database.DB) SummaryRepository {
	return &summaryRepository{db: db}
}

var _ SummaryRepository = (*summaryRepository)(nil)

const summaryColumns = `model, foreign_key, total_score, completeness_percent, source_data,
	last_source, last_log_id, version, created_at, updated_at`

func (r *summaryRepository) Get(ctx context.Context, model, foreignKey string) (*models.ReliabilitySummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM reliability_summaries
		WHERE model = $1 AND foreign_key = $2`

	s, err := scanSummary(r.db.Conn(ctx).QueryRow(ctx, query, model, foreignKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	return s, nil
}

func (r *summaryRepository) Save(ctx context.Context, s *models.ReliabilitySummary, expectedVersion int64) error {
	now := time.Now().UTC()
	conn := r.db.Conn(ctx)

	if expectedVersion == 0 {
		query := `
			INSERT INTO reliability_summaries (
				model, foreign_key, total_score, completeness_percent, source_data,
				last_source, last_log_id, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)`

		_, err := conn.Exec(ctx, query,
			s.Model,
			s.ForeignKey,
			s.TotalScore,
			s.CompletenessPercent,
			[]byte(s.SourceData),
			string(s.LastSource),
			s.LastLogID,
			now,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return apperrors.ErrConflict
			}
			return fmt.Errorf("failed to insert summary: %w", err)
		}
		s.Version = 1
		s.CreatedAt = now
		s.UpdatedAt = now
		return nil
	}

	query := `
		UPDATE reliability_summaries SET
			total_score = $3,
			completeness_percent = $4,
			source_data = $5,
			last_source = $6,
			last_log_id = $7,
			version = version + 1,
			updated_at = $8
		WHERE model = $1 AND foreign_key = $2 AND version = $9`

	tag, err := conn.Exec(ctx, query,
		s.Model,
		s.ForeignKey,
		s.TotalScore,
		s.CompletenessPercent,
		[]byte(s.SourceData),
		string(s.LastSource),
		s.LastLogID,
		now,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrConflict
	}

	s.Version = expectedVersion + 1
	s.UpdatedAt = now
	return nil
}

func (r *summaryRepository) List(ctx context.Context, model string, limit, offset int) ([]*models.ReliabilitySummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM reliability_summaries
		WHERE model = $1
		ORDER BY foreign_key
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Conn(ctx).Query(ctx, query, model, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list summaries: %w", err)
	}
	defer rows.Close()

	var out []*models.ReliabilitySummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}

	return out, nil
}

func scanSummary(row pgx.Row) (*models.ReliabilitySummary, error) {
	var (
		s          models.ReliabilitySummary
		sourceData []byte
		lastSource string
	)
	err := row.Scan(
		&s.Model,
		&s.ForeignKey,
		&s.TotalScore,
		&s.CompletenessPercent,
		&sourceData,
		&lastSource,
		&s.LastLogID,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.SourceData = sourceData
	s.LastSource = models.Source(lastSource)
	return &s, nil
}
