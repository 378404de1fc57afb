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

// StagedPartRepo хранит извлечённые записи запуска.
type StagedPartRepo struct {
	pool *pgxpool.Pool
	conv converter.StagedPartConverter
}

func NewStagedPartRepo(pool *pgxpool.Pool) *StagedPartRepo {
	return &StagedPartRepo{pool: pool}
}

func (s *StagedPartRepo) Insert(ctx context.Context, part *domain.StagedPart) error {
	m, err := s.conv.ToModel(part)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO staged_parts (
			run_id, seq, supplier_id, external_id, url, title, part_type, description,
			images, raw_specs, norm_specs, price_msrp, price_wholesale, availability,
			fetched_at, content_hash, warnings
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (run_id, seq) DO NOTHING
	`

	if _, err := tr.Conn(ctx, s.pool).Exec(ctx, query,
		m.RunID, m.Seq, m.SupplierID, m.ExternalID, m.URL, m.Title, m.PartType, m.Description,
		nonNil(m.Images), m.RawSpecs, m.NormSpecs, m.PriceMsrp, m.PriceWholesale, m.Availability,
		m.FetchedAt, m.ContentHash, nonNil(m.Warnings),
	); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// ListByRun возвращает записи запуска в порядке добавления.
func (s *StagedPartRepo) ListByRun(ctx context.Context, runID string) ([]domain.StagedPart, error) {
	query := `
		SELECT run_id, seq, supplier_id, external_id, url, title, part_type, description,
		       images, raw_specs, norm_specs, price_msrp, price_wholesale, availability,
		       fetched_at, content_hash, warnings
		FROM staged_parts
		WHERE run_id = $1
		ORDER BY seq
	`

	rows, err := tr.Conn(ctx, s.pool).Query(ctx, query, runID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.StagedPart, 0)
	for rows.Next() {
		var m converter.StagedPartModel
		if err := rows.Scan(
			&m.RunID, &m.Seq, &m.SupplierID, &m.ExternalID, &m.URL, &m.Title, &m.PartType, &m.Description,
			&m.Images, &m.RawSpecs, &m.NormSpecs, &m.PriceMsrp, &m.PriceWholesale, &m.Availability,
			&m.FetchedAt, &m.ContentHash, &m.Warnings,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		part, err := s.conv.ToEntity(&m)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *part)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// nonNil заменяет nil-срез пустым: колонки массивов объявлены NOT NULL.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
