package usecase

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
)

type LauncherUC interface {
	StartPrepare(ctx context.Context, req *StartPrepareReq) (*StartPrepareRes, error)
	CancelRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*GetRunRes, error)
}

type PrepareUC interface {
	Execute(ctx context.Context, runID string) error
	RecomputeDiffs(ctx context.Context, runID string) (map[domain.DiffType]int, error)
}

type ReviewUC interface {
	ListDiffs(ctx context.Context, runID string, filter DiffFilter) ([]domain.ImportDiff, error)
	ApproveSelected(ctx context.Context, runID string, ids []string) (int, error)
	ApproveAdds(ctx context.Context, runID string, all bool) (*ApproveAddsRes, error)
	RejectSelected(ctx context.Context, runID string, ids []string) (int, error)
}

type PublishUC interface {
	PublishRun(ctx context.Context, req *PublishReq) (*PublishRes, error)
}

type ProductWriter interface {
	UpsertNormalizedProduct(ctx context.Context, in *UpsertNormalizedReq) (*UpsertNormalizedRes, error)
	MarkPublished(ctx context.Context, supplierID, sku, targetProductID string) error
	MarkArchived(ctx context.Context, supplierID, sku string) error
}

type Auditor interface {
	Write(ctx context.Context, entry *AuditEntry) error
}
