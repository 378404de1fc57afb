package pgdb

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

type SupplierRepo struct {
	pool *pgxpool.Pool
}

func NewSupplierRepo(pool *pgxpool.Pool) *SupplierRepo {
	return &SupplierRepo{pool: pool}
}

// Ensure идемпотентно создаёт поставщика, игнорируя дубликаты.
func (s *SupplierRepo) Ensure(ctx context.Context, supplier *domain.Supplier) error {
	query := `
		INSERT INTO suppliers (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := tr.Conn(ctx, s.pool).Exec(ctx, query, supplier.ID, supplier.Name); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
