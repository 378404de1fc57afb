package pgdb

import (
	"context"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// CatalogRepo читает канонический каталог поставщика вместе с последними версиями.
type CatalogRepo struct {
	pool     *pgxpool.Pool
	products converter.ProductConverter
	versions converter.VersionConverter
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

// ListCanonical возвращает продукты поставщика, включая архивные, отсортированные по sku.
func (c *CatalogRepo) ListCanonical(ctx context.Context, supplierID string) ([]domain.CanonicalProduct, error) {
	query := `
		SELECT p.id, p.supplier_id, p.sku, p.title, p.type, p.status, p.latest_version_id,
		       p.target_product_id, p.is_archived, p.created_at, p.updated_at,
		       v.id, v.content_hash, v.raw_specs, v.norm_specs, v.description, v.images,
		       v.price_msrp, v.price_wholesale, v.availability, v.fetched_at, v.created_at
		FROM products p
		LEFT JOIN product_versions v ON v.id = p.latest_version_id
		WHERE p.supplier_id = $1
		ORDER BY p.sku
	`

	rows, err := tr.Conn(ctx, c.pool).Query(ctx, query, supplierID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.CanonicalProduct, 0)
	for rows.Next() {
		var (
			p converter.ProductModel
			v struct {
				ID             *int64
				ContentHash    *string
				RawSpecs       []byte
				NormSpecs      []byte
				Description    *string
				Images         []string
				PriceMsrp      *int64
				PriceWholesale *int64
				Availability   *string
				FetchedAt      *time.Time
				CreatedAt      *time.Time
			}
		)
		if err := rows.Scan(
			&p.ID, &p.SupplierID, &p.SKU, &p.Title, &p.Type, &p.Status, &p.LatestVersionID,
			&p.TargetProductID, &p.IsArchived, &p.CreatedAt, &p.UpdatedAt,
			&v.ID, &v.ContentHash, &v.RawSpecs, &v.NormSpecs, &v.Description, &v.Images,
			&v.PriceMsrp, &v.PriceWholesale, &v.Availability, &v.FetchedAt, &v.CreatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		cp := domain.CanonicalProduct{Product: *c.products.ToEntity(&p)}
		if v.ID != nil {
			latest, err := c.versions.ToEntity(&converter.ProductVersionModel{
				ID:             *v.ID,
				ProductID:      p.ID,
				ContentHash:    deref(v.ContentHash),
				RawSpecs:       v.RawSpecs,
				NormSpecs:      v.NormSpecs,
				Description:    deref(v.Description),
				Images:         v.Images,
				PriceMsrp:      v.PriceMsrp,
				PriceWholesale: v.PriceWholesale,
				Availability:   deref(v.Availability),
				FetchedAt:      derefTime(v.FetchedAt),
				CreatedAt:      derefTime(v.CreatedAt),
			})
			if err != nil {
				return nil, e.Wrap(whereami.WhereAmI(), err)
			}
			cp.Latest = latest
		}
		result = append(result, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
