package pgdb

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const productColumns = `id, supplier_id, sku, title, type, status, latest_version_id, target_product_id, is_archived, created_at, updated_at`

// ProductRepo реализует репозиторий продуктов канонического каталога поверх PostgreSQL.
type ProductRepo struct {
	pool *pgxpool.Pool
	conv converter.ProductConverter
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// Upsert идемпотентно создаёт или обновляет продукт по (supplier_id, sku).
// Запись обновляется только при изменении названия или типа.
func (p *ProductRepo) Upsert(ctx context.Context, product *domain.Product) (*usecase.UpsertProductRes, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// xmax = 0 только у строки, вставленной этим запросом
	query := `
		WITH upsert AS (
		INSERT INTO products (supplier_id, sku, title, type, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (supplier_id, sku)
		DO UPDATE SET
			title = EXCLUDED.title,
			type = EXCLUDED.type,
			updated_at = NOW()
		WHERE
			products.title IS DISTINCT FROM EXCLUDED.title OR
			products.type IS DISTINCT FROM EXCLUDED.type
		RETURNING ` + productColumns + `, (xmax = 0) AS created
		)
		SELECT ` + productColumns + `, created, false AS no_changes
		FROM upsert

		UNION ALL

		SELECT ` + productColumns + `, false AS created, true AS no_changes
		FROM products
		WHERE supplier_id = $1 AND sku = $2
		  AND NOT EXISTS (SELECT 1 FROM upsert);
	`

	var (
		m                  converter.ProductModel
		created, noChanges bool
	)
	err = tx.QueryRow(ctx, query,
		product.SupplierID, product.SKU, product.Title, product.Type, string(product.Status),
	).Scan(
		&m.ID, &m.SupplierID, &m.SKU, &m.Title, &m.Type, &m.Status, &m.LatestVersionID,
		&m.TargetProductID, &m.IsArchived, &m.CreatedAt, &m.UpdatedAt, &created, &noChanges,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return usecase.NewUpsertProductRes(p.conv.ToEntity(&m), created, noChanges), nil
}

func (p *ProductRepo) GetBySKU(ctx context.Context, supplierID, sku string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE supplier_id = $1 AND sku = $2`

	var m converter.ProductModel
	err := tr.Conn(ctx, p.pool).QueryRow(ctx, query, supplierID, sku).Scan(
		&m.ID, &m.SupplierID, &m.SKU, &m.Title, &m.Type, &m.Status, &m.LatestVersionID,
		&m.TargetProductID, &m.IsArchived, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), notFound(err))
	}

	return p.conv.ToEntity(&m), nil
}

// SetLatestVersion переставляет указатель на последнюю версию.
func (p *ProductRepo) SetLatestVersion(ctx context.Context, productID, versionID int64) error {
	query := `
		UPDATE products
		SET latest_version_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	return p.exec(ctx, query, productID, versionID)
}

// MarkPublished сохраняет идентификатор во внешнем каталоге; опубликованный заново продукт снимается с архива.
func (p *ProductRepo) MarkPublished(ctx context.Context, productID int64, targetProductID string) error {
	query := `
		UPDATE products
		SET target_product_id = $2, status = $3, is_archived = FALSE, updated_at = NOW()
		WHERE id = $1
	`

	return p.exec(ctx, query, productID, targetProductID, string(domain.ProductStatusPublished))
}

func (p *ProductRepo) MarkArchived(ctx context.Context, productID int64) error {
	query := `
		UPDATE products
		SET is_archived = TRUE, updated_at = NOW()
		WHERE id = $1
	`

	return p.exec(ctx, query, productID)
}

func (p *ProductRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := tr.Conn(ctx, p.pool).Exec(ctx, query, args...)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}

	return nil
}
