package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/discovery"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRun(t *testing.T, ev *env, req *StartPrepareReq) *domain.ImportRun {
	t.Helper()

	res, err := ev.launcher.StartPrepare(context.Background(), req)
	require.NoError(t, err)
	return ev.run(t, res.RunID)
}

// finish освобождает слот шаблона, чтобы можно было запустить следующий импорт.
func finish(t *testing.T, ev *env, runID string) {
	t.Helper()
	require.NoError(t, ev.launcher.CancelRun(context.Background(), runID))
}

func TestPrepareNewProductProducesAdd(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/jdgtw710m-2cg"))
	ev.addPage("/products/jdgtw710m-2cg", productPage("JDGTW710M-2CG", "Judge Twitch 7'10\" M", "Medium"))

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	assert.Equal(t, domain.RunStaged, run.Status)
	diffs := ev.runDiffs(run.ID)
	require.Len(t, diffs, 1)
	assert.Equal(t, domain.DiffAdd, diffs[0].DiffType)
	assert.Nil(t, diffs[0].Before)
	assert.Equal(t, "JDGTW710M-2CG", diffs[0].After.ExternalID)
	assert.Equal(t, domain.ResolutionUnresolved, diffs[0].Resolution)

	report := run.Summary.Prepare
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Discovered)
	assert.Equal(t, 1, report.Staged)
	assert.Equal(t, 1, report.CreatedProducts)
	assert.Equal(t, 1, report.CreatedVersions)
	assert.Equal(t, map[string]int{"add": 1}, report.Diffs)
	assert.Len(t, ev.snaps.saved[run.ID], 1)

	// слот занят до терминального статуса
	require.NotNil(t, ev.store.templates[1].PreparingRunID)
	assert.Equal(t, run.ID, *ev.store.templates[1].PreparingRunID)

	assert.Equal(t, []domain.LogType{
		domain.LogLauncherStart,
		domain.LogPrepareDiscovery,
		domain.LogPrepareReport,
	}, ev.audit.types())
}

func TestPrepareUnchangedContentProducesNoDiff(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/jdgtw710m-2cg"))
	ev.addPage("/products/jdgtw710m-2cg", productPage("JDGTW710M-2CG", "Judge Twitch 7'10\" M", "Medium"))

	first := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	finish(t, ev, first.ID)

	second := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	assert.Equal(t, domain.RunStaged, second.Status)
	assert.Empty(t, ev.runDiffs(second.ID))
	assert.Equal(t, 0, second.Summary.Prepare.CreatedProducts)
	assert.Equal(t, 0, second.Summary.Prepare.CreatedVersions)
	assert.Len(t, ev.store.versions, 1)
}

func TestPrepareChangedContentProducesChange(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/jdgtw710m-2cg"))
	ev.addPage("/products/jdgtw710m-2cg", productPage("JDGTW710M-2CG", "Judge Twitch", "Medium"))

	first := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	finish(t, ev, first.ID)

	ev.addPage("/products/jdgtw710m-2cg", productPage("JDGTW710M-2CG", "Judge Twitch", "Heavy"))
	second := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	diffs := ev.runDiffs(second.ID)
	require.Len(t, diffs, 1)
	assert.Equal(t, domain.DiffChange, diffs[0].DiffType)
	require.NotNil(t, diffs[0].Before)
	assert.Equal(t, "Medium", diffs[0].Before.NormSpecs["power"])
	assert.Equal(t, "Heavy", diffs[0].After.NormSpecs["power"])
	assert.NotEqual(t, diffs[0].Before.ContentHash, diffs[0].After.ContentHash)
}

func TestPrepareDeletesOnlyForDiscoveryRuns(t *testing.T) {
	ev := newEnv(t)
	a := ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank 8'4\"", "Heavy"))
	ev.addPage("/products/xst904", productPage("XST904", "XST 9'", "Medium"))
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f", "/products/xst904"))

	first := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	require.Len(t, ev.runDiffs(first.ID), 2)
	finish(t, ev, first.ID)

	// каталог поставщика больше не содержит XST904
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f"))
	discoveryRun := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	diffs := ev.runDiffs(discoveryRun.ID)
	require.Len(t, diffs, 1)
	assert.Equal(t, domain.DiffDelete, diffs[0].DiffType)
	assert.Equal(t, "XST904", diffs[0].ExternalID)
	assert.Nil(t, diffs[0].After)
	finish(t, ev, discoveryRun.ID)

	manualRun := startRun(t, ev, &StartPrepareReq{TemplateID: 1, Mode: "manual", SeedURLs: []string{a}})

	assert.Equal(t, domain.RunStaged, manualRun.Status)
	assert.Empty(t, ev.runDiffs(manualRun.ID))
}

func TestPrepareSkipsSeriesHeaders(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage(
		"/products/the-judge-twitch-rx7-s-glass",
		"/products/jdgtw710m-2cg",
	))
	ev.addPage("/products/the-judge-twitch-rx7-s-glass",
		`<html><head><title>The Judge Twitch RX7 S-Glass</title></head><body><h1>The Judge Twitch RX7 S-Glass</h1></body></html>`)
	ev.addPage("/products/jdgtw710m-2cg", productPage("JDGTW710M-2CG", "Judge Twitch 7'10\" M", "Medium"))

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	assert.Equal(t, 1, run.Summary.Prepare.Headers)
	assert.Equal(t, 1, run.Summary.Prepare.Staged)
	staged := ev.store.staged[run.ID]
	require.Len(t, staged, 1)
	assert.Equal(t, "JDGTW710M-2CG", staged[0].ExternalID)
}

func TestPrepareKeepsGoingAfterFetchErrors(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/gone-404", "/products/sb842f"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1, Limit: 5})

	assert.Equal(t, domain.RunStaged, run.Status)
	assert.Equal(t, 1, run.Summary.Prepare.FetchErrors)
	assert.Equal(t, 1, run.Summary.Prepare.Staged)
	assert.Equal(t, []string{domain.IncompleteFetchErrors}, run.Summary.Prepare.Incomplete)
}

func TestPrepareHonoursLimit(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f", "/products/xst904"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))
	ev.addPage("/products/xst904", productPage("XST904", "XST", "Medium"))

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1, Limit: 1})

	assert.Equal(t, 2, run.Summary.Prepare.Discovered)
	assert.Equal(t, 1, run.Summary.Prepare.Staged)
	assert.Equal(t, []string{domain.IncompleteLimit}, run.Summary.Prepare.Incomplete)
}

// seedCatalog заводит в канонический каталог SB842F и XST904 и освобождает слот.
func seedCatalog(t *testing.T, ev *env) {
	t.Helper()

	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f", "/products/xst904"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))
	ev.addPage("/products/xst904", productPage("XST904", "XST", "Medium"))

	first := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	require.Len(t, ev.runDiffs(first.ID), 2)
	finish(t, ev, first.ID)
}

func assertNoDeletes(t *testing.T, ev *env, run *domain.ImportRun, reason string) {
	t.Helper()

	assert.Equal(t, domain.RunStaged, run.Status)
	for _, d := range ev.runDiffs(run.ID) {
		assert.NotEqual(t, domain.DiffDelete, d.DiffType, d.ExternalID)
	}
	require.NotNil(t, run.Summary.Prepare)
	assert.Contains(t, run.Summary.Prepare.Incomplete, reason)
}

func TestPartialCrawlNeverDeletes(t *testing.T) {
	t.Run("limit", func(t *testing.T) {
		ev := newEnv(t)
		seedCatalog(t, ev)

		run := startRun(t, ev, &StartPrepareReq{TemplateID: 1, Limit: 1})
		assertNoDeletes(t, ev, run, domain.IncompleteLimit)
	})

	t.Run("fetch error", func(t *testing.T) {
		ev := newEnv(t)
		seedCatalog(t, ev)
		delete(ev.fetcher.pages, testHost+"/products/xst904")

		run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
		assertNoDeletes(t, ev, run, domain.IncompleteFetchErrors)
	})

	t.Run("failed discovery seed", func(t *testing.T) {
		ev := newEnv(t)
		seedCatalog(t, ev)
		only := ev.addPage("/collections/salt", listingPage("/products/sb842f"))

		run := startRun(t, ev, &StartPrepareReq{TemplateID: 1, SeedURLs: []string{
			only,
			testHost + "/collections/offline",
		}})
		assertNoDeletes(t, ev, run, domain.IncompleteDiscoveryFailed)
	})

	t.Run("discovery cap", func(t *testing.T) {
		ev := newEnv(t)
		seedCatalog(t, ev)

		paths := []string{"/products/sb842f"}
		for i := 0; len(paths) < discovery.MaxURLs+10; i++ {
			paths = append(paths, fmt.Sprintf("/products/blank-%d", i))
		}
		ev.addPage("/collections/rod-blanks", listingPage(paths...))

		run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
		assertNoDeletes(t, ev, run, domain.IncompleteDiscoveryCapped)
	})
}

func TestRecomputeKeepsPartialCrawlWithoutDeletes(t *testing.T) {
	ev := newEnv(t)
	seedCatalog(t, ev)

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1, Limit: 1})
	counts, err := ev.executor.RecomputeDiffs(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Zero(t, counts[domain.DiffDelete])
}

func TestPrepareInterruptedByShutdownFailsRun(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))

	stopped, stop := context.WithCancel(context.Background())
	stop()
	ev.queue.ctx = stopped

	res, err := ev.launcher.StartPrepare(context.Background(), &StartPrepareReq{TemplateID: 1})
	require.NoError(t, err)

	run := ev.run(t, res.RunID)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Equal(t, e.ErrShutdown.Error(), run.Summary.Error)
	assert.Nil(t, ev.store.templates[1].PreparingRunID)
	assert.Contains(t, ev.audit.types(), domain.LogPrepareError)

	// слот свободен, шаблон можно запустить снова
	ev.queue.ctx = nil
	next := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	assert.Equal(t, domain.RunStaged, next.Status)
}

// Версии пишутся на этапе подготовки, поэтому содержимое отменённого запуска
// уже считается каноническим и в следующем запуске диффа не даёт.
func TestCancelledRunContentIsCanonical(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))

	first := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	require.Len(t, ev.runDiffs(first.ID), 1)
	finish(t, ev, first.ID)

	second := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	assert.Empty(t, ev.runDiffs(second.ID))

	sb, err := memProducts{ev.store}.GetBySKU(context.Background(), testSupplier, "SB842F")
	require.NoError(t, err)
	assert.Nil(t, sb.TargetProductID)
}

func TestMergeSpecsPrefersNormalized(t *testing.T) {
	got := mergeSpecs(
		map[string]string{"length_in": "", "Power": "M", "power": "medium"},
		map[string]string{"length_in": "94", "power": "Medium"},
	)

	assert.Equal(t, map[string]string{"length_in": "94", "Power": "M", "power": "Medium"}, got)
}

func TestPrepareStopsWhenRunCancelled(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f", "/products/xst904"))
	sb := ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))
	ev.addPage("/products/xst904", productPage("XST904", "XST", "Medium"))

	ev.fetcher.onFetch = func(url string) {
		if url != sb {
			return
		}
		ev.store.mu.Lock()
		defer ev.store.mu.Unlock()
		for _, r := range ev.store.runs {
			r.Status = domain.RunCancelled
		}
	}

	res, err := ev.launcher.StartPrepare(context.Background(), &StartPrepareReq{TemplateID: 1})
	require.NoError(t, err)

	run := ev.run(t, res.RunID)
	assert.Equal(t, domain.RunCancelled, run.Status)
	assert.Len(t, ev.store.staged[run.ID], 1)
	assert.Empty(t, ev.runDiffs(run.ID))
	assert.NotContains(t, ev.fetcher.calls, testHost+"/products/xst904")
	assert.NotContains(t, ev.audit.types(), domain.LogPrepareError)
}

type brokenCatalog struct{}

func (brokenCatalog) ListCanonical(context.Context, string) ([]domain.CanonicalProduct, error) {
	return nil, errors.New("connection reset")
}

func TestPrepareFailureReleasesSlot(t *testing.T) {
	ev := newEnv(t)
	ev.executor.catalog = brokenCatalog{}

	res, err := ev.launcher.StartPrepare(context.Background(), &StartPrepareReq{TemplateID: 1})
	require.NoError(t, err)

	run := ev.run(t, res.RunID)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.Summary.Error, "connection reset")
	assert.NotNil(t, run.FinishedAt)
	assert.Nil(t, ev.store.templates[1].PreparingRunID)
	assert.Contains(t, ev.audit.types(), domain.LogPrepareError)
	assert.Empty(t, ev.fetcher.calls)
}

func TestRecomputeDiffsReplacesPrevious(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	before := ev.runDiffs(run.ID)
	require.Len(t, before, 1)

	_, err := ev.review.ApproveSelected(context.Background(), run.ID, []string{before[0].ID})
	require.NoError(t, err)

	counts, err := ev.executor.RecomputeDiffs(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, map[domain.DiffType]int{domain.DiffAdd: 1}, counts)
	after := ev.runDiffs(run.ID)
	require.Len(t, after, 1)
	assert.Equal(t, domain.DiffAdd, after[0].DiffType)
	assert.Equal(t, domain.ResolutionUnresolved, after[0].Resolution)
	assert.Contains(t, ev.audit.types(), domain.LogDiffRecompute)
}

func TestRecomputeDiffsRequiresStagedRun(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage())

	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})
	finish(t, ev, run.ID)

	_, err := ev.executor.RecomputeDiffs(context.Background(), run.ID)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)

	_, err = ev.executor.RecomputeDiffs(context.Background(), "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
}
