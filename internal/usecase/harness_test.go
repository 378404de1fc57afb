package usecase

import (
	"fmt"
	"testing"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

const (
	testSupplier = "batson"
	testTarget   = "shopify-main"
	testHost     = "https://batsonenterprises.com"
)

// env собирает usecase-слой поверх хранилища в памяти.
type env struct {
	store    *memStore
	audit    *memAudit
	fetcher  *fakeFetcher
	target   *fakeTarget
	queue    *syncQueue
	snaps    *memSnapshots
	writer   *VersionWriter
	executor *PrepareExecutor
	launcher *LauncherUseCase
	review   *ReviewUseCase
	publish  *PublishUseCase
}

func newEnv(t *testing.T) *env {
	t.Helper()

	log := logger.NewNop()
	s := newMemStore()
	ev := &env{
		store:   s,
		audit:   &memAudit{},
		fetcher: &fakeFetcher{pages: map[string]string{}},
		target:  &fakeTarget{fail: map[string]bool{}, panics: map[string]bool{}},
		queue:   &syncQueue{},
		snaps:   &memSnapshots{},
	}

	tx := passTx{}
	scope := staticScope{testTarget: {"batsonenterprises.com"}}
	sessions := NewSessionManager(nil, nil, 0, log)

	ev.writer = NewVersionWriter(tx, memSuppliers{s}, memProducts{s}, memVersions{s}, memSources{s}, log)
	ev.executor = NewPrepareExecutor(
		tx, memTemplates{s}, memRuns{s}, memStaged{s}, memDiffs{s}, memCatalog{s},
		ev.writer, ev.fetcher, sessions, scope, ev.snaps, ev.audit, log, ExecutorCfg{DiscoveryConcurrency: 2},
	)
	ev.launcher = NewLauncherUC(tx, memTemplates{s}, memRuns{s}, memDiffs{s}, ev.executor, ev.queue, scope, sessions, ev.snaps, ev.audit, log)
	ev.review = NewReviewUC(tx, memRuns{s}, memDiffs{s}, ev.audit, log)
	ev.publish = NewPublishUC(tx, memTemplates{s}, memRuns{s}, memDiffs{s}, ev.writer, ev.target, ev.audit, log, 2)

	ev.addTemplate(1, domain.DiscoveryGrid)
	return ev
}

func (ev *env) addTemplate(id int64, model domain.DiscoveryModel) *domain.ImportTemplate {
	tmpl := &domain.ImportTemplate{
		ID:             id,
		Name:           fmt.Sprintf("template-%d", id),
		SupplierID:     testSupplier,
		TargetID:       testTarget,
		SeedURLs:       []string{testHost + "/collections/rod-blanks"},
		DiscoveryModel: model,
	}
	ev.store.templates[id] = tmpl
	return tmpl
}

func (ev *env) addPage(path, body string) string {
	u := testHost + path
	ev.fetcher.pages[u] = body
	return u
}

// productPage — карточка бланка с таблицей характеристик.
func productPage(sku, title, power string) string {
	return fmt.Sprintf(`<html><head><title>%[2]s</title></head><body>
<h1>%[2]s</h1>
<table class="specs">
 <tr><th>Model</th><td>%[1]s</td></tr>
 <tr><th>Length</th><td>7' 10"</td></tr>
 <tr><th>Power</th><td>%[3]s</td></tr>
 <tr><th>Action</th><td>Fast</td></tr>
</table>
</body></html>`, sku, title, power)
}

// listingPage — страница коллекции со ссылками на товары.
func listingPage(paths ...string) string {
	body := "<html><body><ul>"
	for _, p := range paths {
		body += fmt.Sprintf(`<li><a href="%s">item</a></li>`, p)
	}
	return body + "</ul></body></html>"
}

func (ev *env) run(t *testing.T, id string) *domain.ImportRun {
	t.Helper()
	r, ok := ev.store.runs[id]
	if !ok {
		t.Fatalf("run %s not found", id)
	}
	return r
}

func (ev *env) runDiffs(runID string) []domain.ImportDiff {
	var out []domain.ImportDiff
	for _, d := range ev.store.diffs {
		if d.ImportRunID == runID {
			out = append(out, d)
		}
	}
	return out
}
