package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-reliability/pkg/database"
	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
)

// ReliabilityLogRepository is the append-only store of score transitions.
// There are deliberately no update or delete operations.
type ReliabilityLogRepository interface {
	// Append inserts entry, assigning a time-ordered ID when entry.ID is nil.
	// The checksum must already be set; it is stored, never computed here.
	Append(ctx context.Context, entry *models.ReliabilityLogEntry) error

	// GetByID returns one entry of one entity, or apperrors.ErrNotFound.
	GetByID(ctx context.Context, model, foreignKey string, id uuid.UUID) (*models.ReliabilityLogEntry, error)

	// ListByEntity returns entries of one entity, newest first.
	ListByEntity(ctx context.Context, model, foreignKey string, limit int) ([]*models.ReliabilityLogEntry, error)

	// ListForVerification returns entries of a model, optionally limited to one
	// entity when foreignKey is non-empty, newest first.
	ListForVerification(ctx context.Context, model, foreignKey string, limit int) ([]*models.ReliabilityLogEntry, error)

	// ScoreTrends returns the per-day average recorded total since the given time.
	ScoreTrends(ctx context.Context, model string, since time.Time) ([]models.ScoreTrendPoint, error)

	// CountBySource returns how many entries each source produced since the given time.
	CountBySource(ctx context.Context, model string, since time.Time) (map[models.Source]int, error)
}

type reliabilityLogRepository struct {
	db *database.DB
}

// NewReliabilityLogRepository creates a new ReliabilityLogRepository.
func NewReliabilityLogRepository(db *database.DB) ReliabilityLogRepository {
	return &reliabilityLogRepository{db: db}
}

var _ ReliabilityLogRepository = (*reliabilityLogRepository)(nil)

const logColumns = `id, model, foreign_key, from_total_score, to_total_score,
	from_field_scores_json, to_field_scores_json, source, actor_user_id, actor_service,
	message, checksum_sha256, created`

func (r *reliabilityLogRepository) Append(ctx context.Context, entry *models.ReliabilityLogEntry) error {
	if entry.ChecksumSHA256 == "" {
		return fmt.Errorf("refusing to append log entry without checksum")
	}
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate log id: %w", err)
		}
		entry.ID = id
	}

	query := `
		INSERT INTO reliability_logs (` + logColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Conn(ctx).Exec(ctx, query,
		entry.ID,
		entry.Model,
		entry.ForeignKey,
		entry.FromTotalScore,
		entry.ToTotalScore,
		[]byte(entry.FromFieldScores),
		[]byte(entry.ToFieldScores),
		string(entry.Source),
		entry.ActorUserID,
		entry.ActorService,
		entry.Message,
		entry.ChecksumSHA256,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append reliability log: %w", err)
	}

	return nil
}

func (r *reliabilityLogRepository) GetByID(ctx context.Context, model, foreignKey string, id uuid.UUID) (*models.ReliabilityLogEntry, error) {
	query := `SELECT ` + logColumns + `
		FROM reliability_logs
		WHERE id = $1 AND model = $2 AND foreign_key = $3`

	entry, err := scanLogEntry(r.db.Conn(ctx).QueryRow(ctx, query, id, model, foreignKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reliability log: %w", err)
	}
	return entry, nil
}

func (r *reliabilityLogRepository) ListByEntity(ctx context.Context, model, foreignKey string, limit int) ([]*models.ReliabilityLogEntry, error) {
	query := `SELECT ` + logColumns + `
		FROM reliability_logs
		WHERE model = $1 AND foreign_key = $2
		ORDER BY created DESC, id DESC
		LIMIT $3`

	return r.queryEntries(ctx, query, model, foreignKey, limit)
}

func (r *reliabilityLogRepository) ListForVerification(ctx context.Context, model, foreignKey string, limit int) ([]*models.ReliabilityLogEntry, error) {
	query := `SELECT ` + logColumns + `
		FROM reliability_logs
		WHERE model = $1 AND ($2 = '' OR foreign_key = $2)
		ORDER BY created DESC, id DESC
		LIMIT $3`

	return r.queryEntries(ctx, query, model, foreignKey, limit)
}

func (r *reliabilityLogRepository) queryEntries(ctx context.Context, query string, args ...any) ([]*models.ReliabilityLogEntry, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reliability logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ReliabilityLogEntry
	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reliability log: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reliability logs: %w", err)
	}

	return entries, nil
}

func (r *reliabilityLogRepository) ScoreTrends(ctx context.Context, model string, since time.Time) ([]models.ScoreTrendPoint, error) {
	query := `
		SELECT to_char(created AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day,
			ROUND(AVG(to_total_score)::numeric, 2)::float8,
			COUNT(*)
		FROM reliability_logs
		WHERE model = $1 AND created >= $2
		GROUP BY day
		ORDER BY day`

	rows, err := r.db.Conn(ctx).Query(ctx, query, model, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query score trends: %w", err)
	}
	defer rows.Close()

	var points []models.ScoreTrendPoint
	for rows.Next() {
		var p models.ScoreTrendPoint
		if err := rows.Scan(&p.Day, &p.AvgScore, &p.Count); err != nil {
			return nil, fmt.Errorf("failed to scan score trend: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating score trends: %w", err)
	}

	return points, nil
}

func (r *reliabilityLogRepository) CountBySource(ctx context.Context, model string, since time.Time) (map[models.Source]int, error) {
	query := `
		SELECT source, COUNT(*)
		FROM reliability_logs
		WHERE model = $1 AND created >= $2
		GROUP BY source`

	rows, err := r.db.Conn(ctx).Query(ctx, query, model, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count logs by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Source]int)
	for rows.Next() {
		var (
			source string
			n      int
		)
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[models.Source(source)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source counts: %w", err)
	}

	return counts, nil
}

func scanLogEntry(row pgx.Row) (*models.ReliabilityLogEntry, error) {
	var (
		e        models.ReliabilityLogEntry
		fromJSON []byte
		toJSON   []byte
		source   string
	)
	err := row.Scan(
		&e.ID,
		&e.Model,
		&e.ForeignKey,
		&e.FromTotalScore,
		&e.ToTotalScore,
		&fromJSON,
		&toJSON,
		&source,
		&e.ActorUserID,
		&e.ActorService,
		&e.Message,
		&e.ChecksumSHA256,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.FromFieldScores = fromJSON
	e.ToFieldScores = toJSON
	e.Source = models.Source(source)
	return &e, nil
}
