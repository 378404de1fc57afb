package usecase

import (
	"context"
	"testing"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartPrepareValidatesBeforeNetwork(t *testing.T) {
	cases := map[string]struct {
		setup func(ev *env)
		req   StartPrepareReq
		want  error
	}{
		"empty seed list": {
			setup: func(ev *env) { ev.store.templates[1].SeedURLs = nil },
			req:   StartPrepareReq{TemplateID: 1, SeedURLs: []string{" ", ""}},
			want:  e.ErrEmptySeedList,
		},
		"out of scope seed": {
			req:  StartPrepareReq{TemplateID: 1, SeedURLs: []string{"https://evil.example.com/list"}},
			want: e.ErrOutOfScopeSeed,
		},
		"credentials required": {
			setup: func(ev *env) { ev.store.templates[1].RequiresAuth = true },
			req:   StartPrepareReq{TemplateID: 1},
			want:  e.ErrMissingCredentials,
		},
		"invalid mode": {
			req:  StartPrepareReq{TemplateID: 1, Mode: "full"},
			want: e.ErrInvalidRunMode,
		},
		"unknown discovery model": {
			setup: func(ev *env) { ev.store.templates[1].DiscoveryModel = "crawler" },
			req:   StartPrepareReq{TemplateID: 1},
			want:  e.ErrUnknownDiscoveryModel,
		},
		"broken template spec": {
			setup: func(ev *env) { ev.store.templates[1].Spec = []byte(`{"fields":`) },
			req:   StartPrepareReq{TemplateID: 1},
			want:  e.ErrInvalidTemplateSpec,
		},
		"unknown template": {
			req:  StartPrepareReq{TemplateID: 42},
			want: e.ErrNotFound,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			ev := newEnv(t)
			if tc.setup != nil {
				tc.setup(ev)
			}

			_, err := ev.launcher.StartPrepare(context.Background(), &tc.req)

			require.ErrorIs(t, err, tc.want)
			assert.Empty(t, ev.fetcher.calls)
			assert.Empty(t, ev.store.runs)
			assert.Nil(t, ev.store.templates[1].PreparingRunID)
		})
	}
}

func TestStartPrepareRejectsActiveSlot(t *testing.T) {
	ev := newEnv(t)
	other := "run-in-progress"
	ev.store.templates[1].PreparingRunID = &other

	_, err := ev.launcher.StartPrepare(context.Background(), &StartPrepareReq{TemplateID: 1})

	require.ErrorIs(t, err, e.ErrRunActive)
	assert.True(t, e.IsConflict(err))
	assert.Equal(t, other, *ev.store.templates[1].PreparingRunID)
	assert.Empty(t, ev.fetcher.calls)
}

func TestStartPrepareFailsRunWhenQueueFull(t *testing.T) {
	ev := newEnv(t)
	ev.queue.full = true

	_, err := ev.launcher.StartPrepare(context.Background(), &StartPrepareReq{TemplateID: 1})
	require.ErrorIs(t, err, e.ErrQueueFull)

	require.Len(t, ev.store.runs, 1)
	for _, run := range ev.store.runs {
		assert.Equal(t, domain.RunFailed, run.Status)
		assert.Equal(t, e.ErrQueueFull.Error(), run.Summary.Error)
	}
	assert.Nil(t, ev.store.templates[1].PreparingRunID)
}

func TestCancelRunReleasesSlot(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage())
	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	require.NoError(t, ev.launcher.CancelRun(context.Background(), run.ID))

	assert.Equal(t, domain.RunCancelled, ev.run(t, run.ID).Status)
	assert.Nil(t, ev.store.templates[1].PreparingRunID)
	assert.Equal(t, []string{run.ID}, ev.queue.cancelled)
	assert.Contains(t, ev.audit.types(), domain.LogLauncherCancel)
	assert.Equal(t, []string{run.ID}, ev.snaps.discarded)

	err := ev.launcher.CancelRun(context.Background(), run.ID)
	assert.ErrorIs(t, err, e.ErrInvalidTransition)
}

func TestGetRunCountsDiffs(t *testing.T) {
	ev := newEnv(t)
	ev.addPage("/collections/rod-blanks", listingPage("/products/sb842f", "/products/xst904"))
	ev.addPage("/products/sb842f", productPage("SB842F", "Salt Blank", "Heavy"))
	ev.addPage("/products/xst904", productPage("XST904", "XST", "Medium"))
	run := startRun(t, ev, &StartPrepareReq{TemplateID: 1})

	res, err := ev.launcher.GetRun(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.RunStaged, res.Run.Status)
	assert.Equal(t, map[domain.DiffType]int{domain.DiffAdd: 2}, res.Diffs)

	_, err = ev.launcher.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, e.ErrNotFound)
}
