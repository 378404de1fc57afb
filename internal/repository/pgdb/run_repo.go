package pgdb

import (
	"context"
	"encoding/json"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// RunRepo хранит запуски импорта и снимок канонического каталога на момент их старта.
type RunRepo struct {
	pool *pgxpool.Pool
	conv converter.RunConverter
}

func NewRunRepo(pool *pgxpool.Pool) *RunRepo {
	return &RunRepo{pool: pool}
}

func (r *RunRepo) Create(ctx context.Context, run *domain.ImportRun) error {
	m, err := r.conv.ToModel(run)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO import_runs (id, template_id, supplier_id, status, mode, summary, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := tr.Conn(ctx, r.pool).Exec(ctx, query,
		m.ID, m.TemplateID, m.SupplierID, m.Status, m.Mode, m.Summary, m.StartedAt,
	); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *RunRepo) GetByID(ctx context.Context, id string) (*domain.ImportRun, error) {
	query := `
		SELECT id, template_id, supplier_id, status, mode, summary, started_at, finished_at
		FROM import_runs
		WHERE id = $1
	`

	var m converter.ImportRunModel
	err := tr.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&m.ID, &m.TemplateID, &m.SupplierID, &m.Status, &m.Mode, &m.Summary, &m.StartedAt, &m.FinishedAt,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), notFound(err))
	}

	run, err := r.conv.ToEntity(&m)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return run, nil
}

// Transition меняет статус, только если текущий статус входит в from.
// Для терминального статуса проставляется finished_at.
func (r *RunRepo) Transition(
	ctx context.Context,
	id string,
	from []domain.RunStatus,
	to domain.RunStatus,
	summary *domain.RunSummary,
) (bool, error) {
	var summaryJSON []byte
	if summary != nil {
		var err error
		if summaryJSON, err = json.Marshal(summary); err != nil {
			return false, e.Wrap(whereami.WhereAmI(), err)
		}
	}

	statuses := make([]string, 0, len(from))
	for _, s := range from {
		statuses = append(statuses, string(s))
	}

	query := `
		UPDATE import_runs
		SET status = $2,
		    summary = COALESCE($3::jsonb, summary),
		    finished_at = CASE WHEN $4::boolean THEN NOW() ELSE finished_at END
		WHERE id = $1 AND status = ANY($5)
	`

	tag, err := tr.Conn(ctx, r.pool).Exec(ctx, query, id, string(to), summaryJSON, to.IsTerminal(), statuses)
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() == 1, nil
}

// SavePublishTotals дописывает итоги публикации в summary, не меняя статус.
func (r *RunRepo) SavePublishTotals(ctx context.Context, id string, totals *domain.PublishTotals) error {
	data, err := json.Marshal(totals)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		UPDATE import_runs
		SET summary = jsonb_set(COALESCE(summary, '{}'::jsonb), '{publish}', $2::jsonb)
		WHERE id = $1
	`

	tag, err := tr.Conn(ctx, r.pool).Exec(ctx, query, id, data)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}

	return nil
}

func (r *RunRepo) SaveBaseline(ctx context.Context, runID string, products []domain.CanonicalProduct) error {
	if products == nil {
		products = []domain.CanonicalProduct{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO import_run_baselines (run_id, products)
		VALUES ($1, $2)
		ON CONFLICT (run_id) DO UPDATE SET products = EXCLUDED.products
	`

	if _, err := tr.Conn(ctx, r.pool).Exec(ctx, query, runID, data); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *RunRepo) LoadBaseline(ctx context.Context, runID string) ([]domain.CanonicalProduct, error) {
	var data []byte
	err := tr.Conn(ctx, r.pool).
		QueryRow(ctx, `SELECT products FROM import_run_baselines WHERE run_id = $1`, runID).
		Scan(&data)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), notFound(err))
	}

	var products []domain.CanonicalProduct
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return products, nil
}
