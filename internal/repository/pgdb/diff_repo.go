package pgdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

const diffColumns = `id, seq, import_run_id, external_id, diff_type, before, after, resolution, validation, created_at`

// DiffRepo хранит диффы запусков. Все операции ограничены одним import_run_id.
type DiffRepo struct {
	pool *pgxpool.Pool
	conv converter.DiffConverter
}

func NewDiffRepo(pool *pgxpool.Pool) *DiffRepo {
	return &DiffRepo{pool: pool}
}

// ReplaceForRun удаляет прежние диффы запуска и вставляет новые одним батчем.
// Вызывается внутри транзакции, seq назначается последовательностью в порядке вставки.
func (d *DiffRepo) ReplaceForRun(ctx context.Context, runID string, diffs []domain.ImportDiff) error {
	conn := tr.Conn(ctx, d.pool)

	if _, err := conn.Exec(ctx, `DELETE FROM import_diffs WHERE import_run_id = $1`, runID); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if len(diffs) == 0 {
		return nil
	}

	query := `
		INSERT INTO import_diffs (id, import_run_id, external_id, diff_type, before, after, resolution, validation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for i := range diffs {
		m, err := d.conv.ToModel(&diffs[i])
		if err != nil {
			return e.Wrap(whereami.WhereAmI(), err)
		}
		batch.Queue(query, m.ID, runID, m.ExternalID, m.DiffType, m.Before, m.After, m.Resolution, m.Validation, m.CreatedAt)
	}

	results := conn.SendBatch(ctx, batch)
	for range diffs {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return e.Wrap(whereami.WhereAmI(), err)
		}
	}
	if err := results.Close(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (d *DiffRepo) List(ctx context.Context, runID string, filter usecase.DiffFilter) ([]domain.ImportDiff, error) {
	var (
		conds = []string{"import_run_id = $1"}
		args  = []any{runID}
	)
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("diff_type = $%d", len(args)))
	}
	if filter.Resolution != "" {
		args = append(args, string(filter.Resolution))
		conds = append(conds, fmt.Sprintf("resolution = $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM import_diffs WHERE %s ORDER BY seq`, diffColumns, strings.Join(conds, " AND "))
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	return d.query(ctx, query, args...)
}

func (d *DiffRepo) CountByType(ctx context.Context, runID string) (map[domain.DiffType]int, error) {
	return d.countByType(ctx, `
		SELECT diff_type, COUNT(*)
		FROM import_diffs
		WHERE import_run_id = $1
		GROUP BY diff_type
	`, runID)
}

// SetResolution меняет решение для указанных диффов запуска; чужие id игнорируются.
func (d *DiffRepo) SetResolution(ctx context.Context, runID string, ids []string, resolution domain.Resolution) (int, error) {
	query := `
		UPDATE import_diffs
		SET resolution = $3
		WHERE import_run_id = $1 AND id = ANY($2)
	`

	tag, err := tr.Conn(ctx, d.pool).Exec(ctx, query, runID, ids, string(resolution))
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return int(tag.RowsAffected()), nil
}

func (d *DiffRepo) AddTotals(ctx context.Context, runID string) (domain.ApproveTotals, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE resolution <> $3)
		FROM import_diffs
		WHERE import_run_id = $1 AND diff_type = $2
	`

	var t domain.ApproveTotals
	err := tr.Conn(ctx, d.pool).
		QueryRow(ctx, query, runID, string(domain.DiffAdd), string(domain.ResolutionApprove)).
		Scan(&t.TotalAdds, &t.UnresolvedAdds)
	if err != nil {
		return t, e.Wrap(whereami.WhereAmI(), err)
	}

	return t, nil
}

// ApproveAdds одобряет add-диффы: при all = false только ещё не одобренные.
func (d *DiffRepo) ApproveAdds(ctx context.Context, runID string, all bool) (int, error) {
	query := `
		UPDATE import_diffs
		SET resolution = $3
		WHERE import_run_id = $1
		  AND diff_type = $2
		  AND ($4::boolean OR resolution <> $3)
	`

	tag, err := tr.Conn(ctx, d.pool).Exec(ctx, query,
		runID, string(domain.DiffAdd), string(domain.ResolutionApprove), all,
	)
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), err)
	}

	return int(tag.RowsAffected()), nil
}

func (d *DiffRepo) CountApproved(ctx context.Context, runID string) (map[domain.DiffType]int, error) {
	return d.countByType(ctx, `
		SELECT diff_type, COUNT(*)
		FROM import_diffs
		WHERE import_run_id = $1 AND resolution = $2 AND diff_type <> $3
		GROUP BY diff_type
	`, runID, string(domain.ResolutionApprove), string(domain.DiffConflict))
}

// ListApprovedBatch возвращает следующую пачку одобренных диффов после afterSeq.
func (d *DiffRepo) ListApprovedBatch(ctx context.Context, runID string, afterSeq int64, limit int) ([]domain.ImportDiff, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM import_diffs
		WHERE import_run_id = $1 AND resolution = $2 AND diff_type <> $3 AND seq > $4
		ORDER BY seq
		LIMIT $5
	`, diffColumns)

	return d.query(ctx, query, runID, string(domain.ResolutionApprove), string(domain.DiffConflict), afterSeq, limit)
}

func (d *DiffRepo) UpdateValidation(ctx context.Context, id string, v domain.Validation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	tag, err := tr.Conn(ctx, d.pool).Exec(ctx, `UPDATE import_diffs SET validation = $2 WHERE id = $1`, id, data)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(whereami.WhereAmI(), e.ErrNotFound)
	}

	return nil
}

func (d *DiffRepo) query(ctx context.Context, query string, args ...any) ([]domain.ImportDiff, error) {
	rows, err := tr.Conn(ctx, d.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]domain.ImportDiff, 0)
	for rows.Next() {
		var m converter.ImportDiffModel
		if err := rows.Scan(
			&m.ID, &m.Seq, &m.ImportRunID, &m.ExternalID, &m.DiffType,
			&m.Before, &m.After, &m.Resolution, &m.Validation, &m.CreatedAt,
		); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}

		diff, err := d.conv.ToEntity(&m)
		if err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, *diff)
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

func (d *DiffRepo) countByType(ctx context.Context, query string, args ...any) (map[domain.DiffType]int, error) {
	rows, err := tr.Conn(ctx, d.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make(map[domain.DiffType]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result[domain.DiffType(typ)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
