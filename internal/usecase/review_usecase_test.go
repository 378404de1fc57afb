package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diffFixture(runID, id string, typ domain.DiffType, res domain.Resolution) domain.ImportDiff {
	d := domain.ImportDiff{
		ID:          id,
		ImportRunID: runID,
		ExternalID:  "SKU-" + id,
		DiffType:    typ,
		Resolution:  res,
		CreatedAt:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	snap := &domain.Snapshot{ExternalID: d.ExternalID, Title: "Blank " + id, ContentHash: "h-" + id}
	if typ != domain.DiffAdd {
		d.Before = snap
	}
	if typ != domain.DiffDelete {
		d.After = snap
	}
	return d
}

// stagedRun добавляет в хранилище staged-запуск с занятым слотом шаблона и его диффы.
func stagedRun(t *testing.T, ev *env, runID string, diffs ...domain.ImportDiff) *domain.ImportRun {
	t.Helper()

	run := &domain.ImportRun{
		ID:         runID,
		TemplateID: 1,
		SupplierID: testSupplier,
		Status:     domain.RunStaged,
		Mode:       domain.RunModeDiscovery,
		StartedAt:  time.Now(),
	}
	ev.store.runs[runID] = run
	ev.store.templates[1].PreparingRunID = &run.ID
	require.NoError(t, memDiffs{ev.store}.ReplaceForRun(context.Background(), runID, diffs))
	ev.store.diffWrites = 0
	return run
}

func resolutions(ev *env, runID string) map[string]domain.Resolution {
	out := make(map[string]domain.Resolution)
	for _, d := range ev.runDiffs(runID) {
		out[d.ID] = d.Resolution
	}
	return out
}

func TestApproveSelectedEmptyIsNoop(t *testing.T) {
	ev := newEnv(t)
	stagedRun(t, ev, "run-1", diffFixture("run-1", "a", domain.DiffAdd, domain.ResolutionUnresolved))

	n, err := ev.review.ApproveSelected(context.Background(), "run-1", nil)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, ev.store.diffWrites)
	assert.Empty(t, ev.audit.types())
}

func TestApproveSelectedIsScopedToRun(t *testing.T) {
	ev := newEnv(t)
	stagedRun(t, ev, "run-2", diffFixture("run-2", "x", domain.DiffAdd, domain.ResolutionUnresolved))
	stagedRun(t, ev, "run-1",
		diffFixture("run-1", "a", domain.DiffAdd, domain.ResolutionUnresolved),
		diffFixture("run-1", "b", domain.DiffChange, domain.ResolutionUnresolved),
	)

	n, err := ev.review.ApproveSelected(context.Background(), "run-1", []string{"a", "x", "a"})

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, map[string]domain.Resolution{
		"a": domain.ResolutionApprove,
		"b": domain.ResolutionUnresolved,
	}, resolutions(ev, "run-1"))
	assert.Equal(t, domain.ResolutionUnresolved, resolutions(ev, "run-2")["x"])
}

func TestRejectIsRevocable(t *testing.T) {
	ev := newEnv(t)
	stagedRun(t, ev, "run-1", diffFixture("run-1", "a", domain.DiffAdd, domain.ResolutionApprove))

	n, err := ev.review.RejectSelected(context.Background(), "run-1", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.ResolutionReject, resolutions(ev, "run-1")["a"])

	n, err = ev.review.ApproveSelected(context.Background(), "run-1", []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.ResolutionApprove, resolutions(ev, "run-1")["a"])

	assert.Equal(t, []domain.LogType{domain.LogReviewReject, domain.LogReviewApprove}, ev.audit.types())
}

func TestApproveAdds(t *testing.T) {
	fixtures := func(runID string) []domain.ImportDiff {
		return []domain.ImportDiff{
			diffFixture(runID, runID+"-a1", domain.DiffAdd, domain.ResolutionUnresolved),
			diffFixture(runID, runID+"-a2", domain.DiffAdd, domain.ResolutionApprove),
			diffFixture(runID, runID+"-a3", domain.DiffAdd, domain.ResolutionReject),
			diffFixture(runID, runID+"-c1", domain.DiffChange, domain.ResolutionUnresolved),
		}
	}

	cases := map[string]struct {
		all     bool
		updated int
	}{
		"only not yet approved": {all: false, updated: 2},
		"all adds":              {all: true, updated: 3},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ev := newEnv(t)
			stagedRun(t, ev, "other", fixtures("other")...)
			stagedRun(t, ev, "run", fixtures("run")...)

			res, err := ev.review.ApproveAdds(context.Background(), "run", tc.all)
			require.NoError(t, err)

			assert.Equal(t, tc.updated, res.Updated)
			assert.Equal(t, tc.all, res.All)
			assert.Equal(t, domain.ApproveTotals{TotalAdds: 3, UnresolvedAdds: 2}, res.Totals)

			got := resolutions(ev, "run")
			assert.Equal(t, domain.ResolutionApprove, got["run-a1"])
			assert.Equal(t, domain.ResolutionApprove, got["run-a2"])
			assert.Equal(t, domain.ResolutionApprove, got["run-a3"])
			assert.Equal(t, domain.ResolutionUnresolved, got["run-c1"])

			assert.Equal(t, map[string]domain.Resolution{
				"other-a1": domain.ResolutionUnresolved,
				"other-a2": domain.ResolutionApprove,
				"other-a3": domain.ResolutionReject,
				"other-c1": domain.ResolutionUnresolved,
			}, resolutions(ev, "other"))
		})
	}
}

func TestReviewRequiresExistingRun(t *testing.T) {
	ev := newEnv(t)

	_, err := ev.review.ApproveSelected(context.Background(), "missing", []string{"a"})
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = ev.review.ApproveAdds(context.Background(), "missing", false)
	assert.ErrorIs(t, err, e.ErrNotFound)

	_, err = ev.review.ListDiffs(context.Background(), "missing", DiffFilter{})
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func TestListDiffsFilters(t *testing.T) {
	ev := newEnv(t)
	stagedRun(t, ev, "run-1",
		diffFixture("run-1", "a", domain.DiffAdd, domain.ResolutionUnresolved),
		diffFixture("run-1", "b", domain.DiffChange, domain.ResolutionApprove),
		diffFixture("run-1", "c", domain.DiffAdd, domain.ResolutionApprove),
	)

	diffs, err := ev.review.ListDiffs(context.Background(), "run-1", DiffFilter{Type: domain.DiffAdd})
	require.NoError(t, err)
	assert.Len(t, diffs, 2)

	diffs, err = ev.review.ListDiffs(context.Background(), "run-1", DiffFilter{Resolution: domain.ResolutionApprove, Limit: 1})
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "b", diffs[0].ID)
}
