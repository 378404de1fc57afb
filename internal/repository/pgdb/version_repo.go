package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const versionColumns = `id, product_id, content_hash, raw_specs, norm_specs, description, images,
	price_msrp, price_wholesale, availability, fetched_at, created_at`

// VersionRepo хранит неизменяемые версии продуктов, уникальные по (product_id, content_hash).
type VersionRepo struct {
	pool *pgxpool.Pool
	conv converter.VersionConverter
}

func NewVersionRepo(pool *pgxpool.Pool) *VersionRepo {
	return &VersionRepo{pool: pool}
}

// FindByHash возвращает nil без ошибки, если версии с таким хэшем нет.
func (v *VersionRepo) FindByHash(ctx context.Context, productID int64, contentHash string) (*domain.ProductVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM product_versions WHERE product_id = $1 AND content_hash = $2`

	version, err := v.scanOne(tr.Conn(ctx, v.pool).QueryRow(ctx, query, productID, contentHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return version, nil
}

// Insert вставляет версию. Если такая версия уже есть (гонка двух нормализаций),
// возвращается существующая строка и created = false.
func (v *VersionRepo) Insert(ctx context.Context, version *domain.ProductVersion) (*domain.ProductVersion, bool, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	m, err := v.conv.ToModel(version)
	if err != nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO product_versions (
			product_id, content_hash, raw_specs, norm_specs, description, images,
			price_msrp, price_wholesale, availability, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (product_id, content_hash) DO NOTHING
		RETURNING ` + versionColumns

	saved, err := v.scanOne(tx.QueryRow(ctx, query,
		m.ProductID, m.ContentHash, m.RawSpecs, m.NormSpecs, m.Description, nonNil(m.Images),
		m.PriceMsrp, m.PriceWholesale, m.Availability, m.FetchedAt,
	))
	if err == nil {
		return saved, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, e.Wrap(whereami.WhereAmI(), err)
	}

	existing, err := v.FindByHash(ctx, version.ProductID, version.ContentHash)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}

	return existing, false, nil
}

func (v *VersionRepo) scanOne(row pgx.Row) (*domain.ProductVersion, error) {
	var m converter.ProductVersionModel
	if err := row.Scan(
		&m.ID, &m.ProductID, &m.ContentHash, &m.RawSpecs, &m.NormSpecs, &m.Description, &m.Images,
		&m.PriceMsrp, &m.PriceWholesale, &m.Availability, &m.FetchedAt, &m.CreatedAt,
	); err != nil {
		return nil, err
	}

	return v.conv.ToEntity(&m)
}
