package pgdb

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// ImportLogRepo хранит журнал импорта для внешнего интерфейса ревью.
type ImportLogRepo struct {
	pool *pgxpool.Pool
	conv converter.ImportLogConverter
}

func NewImportLogRepo(pool *pgxpool.Pool) *ImportLogRepo {
	return &ImportLogRepo{pool: pool}
}

func (l *ImportLogRepo) Create(ctx context.Context, log *domain.ImportLog) (*domain.ImportLog, error) {
	m, err := l.conv.ToModel(log)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO import_logs (template_id, run_id, type, payload, at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	if err := tr.Conn(ctx, l.pool).
		QueryRow(ctx, query, m.TemplateID, m.RunID, m.Type, m.Payload, m.At).
		Scan(&m.ID); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	saved := *log
	saved.ID = m.ID
	return &saved, nil
}

// ListByRun возвращает записи запуска в хронологическом порядке.
func (l *ImportLogRepo) ListByRun(ctx context.Context, runID string, limit int) ([]domain.ImportLog, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `
		SELECT id, template_id, run_id, type, payload, at
		FROM import_logs
		WHERE run_id = $1
		ORDER BY at, id
		LIMIT $2
	`

	rows, err := tr.Conn(ctx, l.pool).Query(ctx, query, runID, limit)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.ImportLog, 0)
	for rows.Next() {
		var m converter.ImportLogModel
		if err := rows.Scan(&m.ID, &m.TemplateID, &m.RunID, &m.Type, &m.Payload, &m.At); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		log, err := l.conv.ToEntity(&m)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
