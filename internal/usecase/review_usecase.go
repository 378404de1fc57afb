package usecase

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

// ReviewUseCase меняет решения ревьюера по диффам одного запуска.
type ReviewUseCase struct {
	tx     TxManager
	runs   RunRepository
	diffs  DiffRepository
	audit  Auditor
	logger logger.Logger
}

func NewReviewUC(tx TxManager, runs RunRepository, diffs DiffRepository, audit Auditor, logger logger.Logger) *ReviewUseCase {
	return &ReviewUseCase{
		tx:     tx,
		runs:   runs,
		diffs:  diffs,
		audit:  audit,
		logger: logger,
	}
}

func (r *ReviewUseCase) ListDiffs(ctx context.Context, runID string, filter DiffFilter) ([]domain.ImportDiff, error) {
	const op = "ReviewUseCase.ListDiffs"

	if _, err := r.runs.GetByID(ctx, runID); err != nil {
		return nil, e.Wrap(op, err)
	}

	diffs, err := r.diffs.List(ctx, runID, filter)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return diffs, nil
}

// ApproveSelected одобряет ровно указанные диффы запуска. Пустой список ничего не пишет.
func (r *ReviewUseCase) ApproveSelected(ctx context.Context, runID string, ids []string) (int, error) {
	const op = "ReviewUseCase.ApproveSelected"

	n, err := r.resolve(ctx, runID, ids, domain.ResolutionApprove, domain.LogReviewApprove)
	if err != nil {
		return 0, e.Wrap(op, err)
	}
	return n, nil
}

// RejectSelected отклоняет указанные диффы. Отклонение можно отменить повторным одобрением.
func (r *ReviewUseCase) RejectSelected(ctx context.Context, runID string, ids []string) (int, error) {
	const op = "ReviewUseCase.RejectSelected"

	n, err := r.resolve(ctx, runID, ids, domain.ResolutionReject, domain.LogReviewReject)
	if err != nil {
		return 0, e.Wrap(op, err)
	}
	return n, nil
}

func (r *ReviewUseCase) resolve(ctx context.Context, runID string, ids []string, to domain.Resolution, logType domain.LogType) (int, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}

	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		return 0, err
	}

	n, err := r.diffs.SetResolution(ctx, runID, ids, to)
	if err != nil {
		return 0, err
	}

	audit(ctx, r.audit, r.logger, NewAuditEntry(run.TemplateID, run.ID, logType, map[string]any{
		"requested": len(ids),
		"updated":   n,
	}))

	return n, nil
}

// ApproveAdds одобряет add-диффы запуска: по умолчанию только ещё не одобренные,
// при all = true все. Счётчики возвращаются по состоянию до обновления.
func (r *ReviewUseCase) ApproveAdds(ctx context.Context, runID string, all bool) (*ApproveAddsRes, error) {
	const op = "ReviewUseCase.ApproveAdds"

	run, err := r.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &ApproveAddsRes{All: all}
	err = r.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if res.Totals, err = r.diffs.AddTotals(ctx, runID); err != nil {
			return err
		}
		res.Updated, err = r.diffs.ApproveAdds(ctx, runID, all)
		return err
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	audit(ctx, r.audit, r.logger, NewAuditEntry(run.TemplateID, run.ID, domain.LogReviewApprove, map[string]any{
		"scope":          "adds",
		"all":            all,
		"updated":        res.Updated,
		"totalAdds":      res.Totals.TotalAdds,
		"unresolvedAdds": res.Totals.UnresolvedAdds,
	}))

	return res, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
