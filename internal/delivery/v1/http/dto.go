package http

import (
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/usecase"
)

type StartPrepareRequest struct {
	SeedURLs []string `json:"seedUrls,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

type StartPrepareResponse struct {
	OK    bool   `json:"ok"`
	RunID string `json:"runId"`
}

type RunResponse struct {
	OK    bool           `json:"ok"`
	Run   RunDTO         `json:"run"`
	Diffs map[string]int `json:"diffs"`
}

type RunDTO struct {
	ID         string            `json:"id"`
	TemplateID int64             `json:"templateId"`
	SupplierID string            `json:"supplierId"`
	Status     string            `json:"status"`
	Mode       string            `json:"mode"`
	Summary    domain.RunSummary `json:"summary"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt *time.Time        `json:"finishedAt,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type RecomputeResponse struct {
	OK    bool           `json:"ok"`
	Diffs map[string]int `json:"diffs"`
}

type DiffsResponse struct {
	OK    bool      `json:"ok"`
	Diffs []DiffDTO `json:"diffs"`
}

type DiffDTO struct {
	ID         string            `json:"id"`
	ExternalID string            `json:"externalId"`
	DiffType   string            `json:"diffType"`
	Before     *domain.Snapshot  `json:"before"`
	After      *domain.Snapshot  `json:"after"`
	Resolution string            `json:"resolution"`
	Validation domain.Validation `json:"validation"`
	CreatedAt  time.Time         `json:"createdAt"`
}

type IDsRequest struct {
	IDs []string `json:"ids"`
}

type ApproveResponse struct {
	OK            bool `json:"ok"`
	ApprovedCount int  `json:"approvedCount"`
}

type RejectResponse struct {
	OK            bool `json:"ok"`
	RejectedCount int  `json:"rejectedCount"`
}

type ApproveAddsResponse struct {
	OK      bool                 `json:"ok"`
	Updated int                  `json:"updated"`
	Totals  domain.ApproveTotals `json:"totals"`
	All     bool                 `json:"all"`
}

type PublishRequest struct {
	DryRun bool `json:"dryRun,omitempty"`
}

type PublishResponse struct {
	OK             bool                          `json:"ok"`
	RunID          string                        `json:"runId"`
	DryRun         bool                          `json:"dryRun"`
	Created        int                           `json:"created"`
	Updated        int                           `json:"updated"`
	Archived       int                           `json:"archived"`
	Failed         int                           `json:"failed"`
	Skipped        int                           `json:"skipped"`
	TotalsDetailed map[string]usecase.TypeTotals `json:"totalsDetailed,omitempty"`
	ProductIDs     []string                      `json:"productIds"`
	ShopDomain     string                        `json:"shopDomain,omitempty"`
}

func toRunResponse(res *usecase.GetRunRes) *RunResponse {
	run := res.Run
	return &RunResponse{
		OK: true,
		Run: RunDTO{
			ID:         run.ID,
			TemplateID: run.TemplateID,
			SupplierID: run.SupplierID,
			Status:     string(run.Status),
			Mode:       string(run.Mode),
			Summary:    run.Summary,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
		},
		Diffs: diffCounts(res.Diffs),
	}
}

func toPublishResponse(res *usecase.PublishRes) *PublishResponse {
	detailed := make(map[string]usecase.TypeTotals, len(res.TotalsDetailed))
	for k, v := range res.TotalsDetailed {
		detailed[string(k)] = v
	}

	ids := res.ProductIDs
	if ids == nil {
		ids = []string{}
	}

	return &PublishResponse{
		OK:             true,
		RunID:          res.RunID,
		DryRun:         res.Totals.DryRun,
		Created:        res.Totals.Created,
		Updated:        res.Totals.Updated,
		Archived:       res.Totals.Archived,
		Failed:         res.Totals.Failed,
		Skipped:        res.Totals.Skipped,
		TotalsDetailed: detailed,
		ProductIDs:     ids,
		ShopDomain:     res.ShopDomain,
	}
}

func toDiffsResponse(diffs []domain.ImportDiff) *DiffsResponse {
	out := make([]DiffDTO, 0, len(diffs))
	for _, d := range diffs {
		out = append(out, DiffDTO{
			ID:         d.ID,
			ExternalID: d.ExternalID,
			DiffType:   string(d.DiffType),
			Before:     d.Before,
			After:      d.After,
			Resolution: string(d.Resolution),
			Validation: d.Validation,
			CreatedAt:  d.CreatedAt,
		})
	}
	return &DiffsResponse{OK: true, Diffs: out}
}

func diffCounts(counts map[domain.DiffType]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[string(k)] = v
	}
	return out
}
