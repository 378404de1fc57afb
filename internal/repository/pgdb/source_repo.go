package pgdb

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// SourceRepo хранит страницы, с которых получены продукты.
type SourceRepo struct {
	pool *pgxpool.Pool
}

func NewSourceRepo(pool *pgxpool.Pool) *SourceRepo {
	return &SourceRepo{pool: pool}
}

// Upsert создаёт источник или обновляет продукт и время последнего обнаружения
// по (supplier_id, url, template_id).
func (s *SourceRepo) Upsert(ctx context.Context, source *domain.ProductSource) (*domain.ProductSource, error) {
	query := `
		INSERT INTO product_sources (supplier_id, url, template_id, product_id, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (supplier_id, url, template_id)
		DO UPDATE SET
			product_id = EXCLUDED.product_id,
			last_seen_at = GREATEST(product_sources.last_seen_at, EXCLUDED.last_seen_at)
		RETURNING id, supplier_id, url, template_id, product_id, last_seen_at
	`

	var out domain.ProductSource
	err := tr.Conn(ctx, s.pool).QueryRow(ctx, query,
		source.SupplierID, source.URL, source.TemplateID, source.ProductID, source.LastSeenAt,
	).Scan(&out.ID, &out.SupplierID, &out.URL, &out.TemplateID, &out.ProductID, &out.LastSeenAt)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return &out, nil
}
