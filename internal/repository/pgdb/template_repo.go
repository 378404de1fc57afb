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

// TemplateRepo реализует репозиторий шаблонов импорта поверх PostgreSQL.
type TemplateRepo struct {
	pool *pgxpool.Pool
	conv converter.TemplateConverter
}

func NewTemplateRepo(pool *pgxpool.Pool) *TemplateRepo {
	return &TemplateRepo{pool: pool}
}

func (t *TemplateRepo) GetByID(ctx context.Context, id int64) (*domain.ImportTemplate, error) {
	query := `
		SELECT id, name, supplier_id, target_id, seed_urls, discovery_model,
		       spec, requires_auth, preparing_run_id, created_at
		FROM import_templates
		WHERE id = $1
	`

	var m converter.ImportTemplateModel
	err := tr.Conn(ctx, t.pool).QueryRow(ctx, query, id).Scan(
		&m.ID, &m.Name, &m.SupplierID, &m.TargetID, &m.SeedURLs, &m.DiscoveryModel,
		&m.Spec, &m.RequiresAuth, &m.PreparingRunID, &m.CreatedAt,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), notFound(err))
	}

	return t.conv.ToEntity(&m), nil
}

// ClaimSlot занимает слот шаблона через compare-and-set: обновление проходит,
// только если preparing_run_id пуст.
func (t *TemplateRepo) ClaimSlot(ctx context.Context, templateID int64, runID string) (bool, error) {
	query := `
		UPDATE import_templates
		SET preparing_run_id = $2
		WHERE id = $1 AND preparing_run_id IS NULL
	`

	tag, err := tr.Conn(ctx, t.pool).Exec(ctx, query, templateID, runID)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() == 1, nil
}

func (t *TemplateRepo) ReleaseSlot(ctx context.Context, templateID int64, runID string) error {
	query := `
		UPDATE import_templates
		SET preparing_run_id = NULL
		WHERE id = $1 AND preparing_run_id = $2
	`

	if _, err := tr.Conn(ctx, t.pool).Exec(ctx, query, templateID, runID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
