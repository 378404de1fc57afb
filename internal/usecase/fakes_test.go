package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/taskq"
)

// memStore — хранилище в памяти, реализующее репозитории usecase-слоя.
type memStore struct {
	mu sync.Mutex

	templates map[int64]*domain.ImportTemplate
	runs      map[string]*domain.ImportRun
	baselines map[string][]domain.CanonicalProduct
	staged    map[string][]domain.StagedPart
	diffs     []domain.ImportDiff
	diffSeq   int64
	suppliers map[string]domain.Supplier
	products  []*domain.Product
	versions  []*domain.ProductVersion
	sources   []*domain.ProductSource

	diffWrites int
}

func newMemStore() *memStore {
	return &memStore{
		templates: make(map[int64]*domain.ImportTemplate),
		runs:      make(map[string]*domain.ImportRun),
		baselines: make(map[string][]domain.CanonicalProduct),
		staged:    make(map[string][]domain.StagedPart),
		suppliers: make(map[string]domain.Supplier),
	}
}

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// TEMPLATES

type memTemplates struct{ *memStore }

func (s memTemplates) GetByID(_ context.Context, id int64) (*domain.ImportTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s memTemplates) ClaimSlot(_ context.Context, templateID int64, runID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[templateID]
	if !ok {
		return false, e.ErrNotFound
	}
	if t.PreparingRunID != nil {
		return false, nil
	}
	t.PreparingRunID = &runID
	return true, nil
}

func (s memTemplates) ReleaseSlot(_ context.Context, templateID int64, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.templates[templateID]; ok && t.PreparingRunID != nil && *t.PreparingRunID == runID {
		t.PreparingRunID = nil
	}
	return nil
}

// RUNS

type memRuns struct{ *memStore }

func (s memRuns) Create(_ context.Context, run *domain.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s memRuns) GetByID(_ context.Context, id string) (*domain.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, e.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s memRuns) Transition(_ context.Context, id string, from []domain.RunStatus, to domain.RunStatus, summary *domain.RunSummary) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return false, e.ErrNotFound
	}
	allowed := false
	for _, f := range from {
		if r.Status == f {
			allowed = true
		}
	}
	if !allowed {
		return false, nil
	}

	r.Status = to
	if summary != nil {
		r.Summary = *summary
	}
	if to.IsTerminal() {
		now := time.Now()
		r.FinishedAt = &now
	}
	return true, nil
}

func (s memRuns) SavePublishTotals(_ context.Context, id string, totals *domain.PublishTotals) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return e.ErrNotFound
	}
	cp := *totals
	r.Summary.Publish = &cp
	return nil
}

func (s memRuns) SaveBaseline(_ context.Context, runID string, products []domain.CanonicalProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baselines[runID] = products
	return nil
}

func (s memRuns) LoadBaseline(_ context.Context, runID string) ([]domain.CanonicalProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.baselines[runID], nil
}

// STAGED

type memStaged struct{ *memStore }

func (s memStaged) Insert(_ context.Context, part *domain.StagedPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged[part.RunID] = append(s.staged[part.RunID], *part)
	return nil
}

func (s memStaged) ListByRun(_ context.Context, runID string) ([]domain.StagedPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.StagedPart(nil), s.staged[runID]...), nil
}

// DIFFS

type memDiffs struct{ *memStore }

func (s memDiffs) ReplaceForRun(_ context.Context, runID string, diffs []domain.ImportDiff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.diffs[:0]
	for _, d := range s.diffs {
		if d.ImportRunID != runID {
			kept = append(kept, d)
		}
	}
	s.diffs = kept
	for _, d := range diffs {
		s.diffSeq++
		d.Seq = s.diffSeq
		s.diffs = append(s.diffs, d)
	}
	s.diffWrites++
	return nil
}

func (s memDiffs) List(_ context.Context, runID string, f DiffFilter) ([]domain.ImportDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ImportDiff
	for _, d := range s.diffs {
		if d.ImportRunID != runID ||
			(f.Type != "" && d.DiffType != f.Type) ||
			(f.Resolution != "" && d.Resolution != f.Resolution) {
			continue
		}
		out = append(out, d)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s memDiffs) CountByType(_ context.Context, runID string) (map[domain.DiffType]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.DiffType]int)
	for _, d := range s.diffs {
		if d.ImportRunID == runID {
			out[d.DiffType]++
		}
	}
	return out, nil
}

func (s memDiffs) SetResolution(_ context.Context, runID string, ids []string, res domain.Resolution) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diffWrites++
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	n := 0
	for i := range s.diffs {
		if s.diffs[i].ImportRunID == runID && want[s.diffs[i].ID] {
			s.diffs[i].Resolution = res
			n++
		}
	}
	return n, nil
}

func (s memDiffs) AddTotals(_ context.Context, runID string) (domain.ApproveTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var t domain.ApproveTotals
	for _, d := range s.diffs {
		if d.ImportRunID != runID || d.DiffType != domain.DiffAdd {
			continue
		}
		t.TotalAdds++
		if d.Resolution != domain.ResolutionApprove {
			t.UnresolvedAdds++
		}
	}
	return t, nil
}

func (s memDiffs) ApproveAdds(_ context.Context, runID string, all bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.diffWrites++
	n := 0
	for i := range s.diffs {
		d := &s.diffs[i]
		if d.ImportRunID != runID || d.DiffType != domain.DiffAdd {
			continue
		}
		if all || d.Resolution != domain.ResolutionApprove {
			d.Resolution = domain.ResolutionApprove
			n++
		}
	}
	return n, nil
}

func (s memDiffs) CountApproved(_ context.Context, runID string) (map[domain.DiffType]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.DiffType]int)
	for _, d := range s.diffs {
		if d.ImportRunID == runID && d.Publishable() {
			out[d.DiffType]++
		}
	}
	return out, nil
}

func (s memDiffs) ListApprovedBatch(_ context.Context, runID string, afterSeq int64, limit int) ([]domain.ImportDiff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.ImportDiff
	for _, d := range s.diffs {
		if d.ImportRunID == runID && d.Publishable() && d.Seq > afterSeq {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s memDiffs) UpdateValidation(_ context.Context, id string, v domain.Validation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.diffs {
		if s.diffs[i].ID == id {
			s.diffs[i].Validation = v
			return nil
		}
	}
	return e.ErrNotFound
}

// CATALOG

type memCatalog struct{ *memStore }

func (s memCatalog) ListCanonical(_ context.Context, supplierID string) ([]domain.CanonicalProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.CanonicalProduct
	for _, p := range s.products {
		if p.SupplierID != supplierID {
			continue
		}
		cp := domain.CanonicalProduct{Product: *p}
		if p.LatestVersionID != nil {
			for _, v := range s.versions {
				if v.ID == *p.LatestVersionID {
					vc := *v
					cp.Latest = &vc
				}
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

// CANONICAL WRITES

type memSuppliers struct{ *memStore }

func (s memSuppliers) Ensure(_ context.Context, sup *domain.Supplier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[sup.ID]; !ok {
		s.suppliers[sup.ID] = *sup
	}
	return nil
}

type memProducts struct{ *memStore }

func (s memProducts) find(supplierID, sku string) *domain.Product {
	for _, p := range s.products {
		if p.SupplierID == supplierID && p.SKU == sku {
			return p
		}
	}
	return nil
}

func (s memProducts) Upsert(_ context.Context, product *domain.Product) (*UpsertProductRes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.find(product.SupplierID, product.SKU); p != nil {
		noChanges := p.Title == product.Title && p.Type == product.Type
		p.Title, p.Type = product.Title, product.Type
		cp := *p
		return NewUpsertProductRes(&cp, false, noChanges), nil
	}

	p := *product
	p.ID = int64(len(s.products) + 1)
	s.products = append(s.products, &p)
	cp := p
	return NewUpsertProductRes(&cp, true, false), nil
}

func (s memProducts) GetBySKU(_ context.Context, supplierID, sku string) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.find(supplierID, sku)
	if p == nil {
		return nil, e.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s memProducts) byID(id int64) (*domain.Product, error) {
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, e.ErrNotFound
}

func (s memProducts) SetLatestVersion(_ context.Context, productID, versionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.byID(productID)
	if err != nil {
		return err
	}
	p.LatestVersionID = &versionID
	return nil
}

func (s memProducts) MarkPublished(_ context.Context, productID int64, targetProductID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.byID(productID)
	if err != nil {
		return err
	}
	p.TargetProductID = &targetProductID
	p.Status = domain.ProductStatusPublished
	p.IsArchived = false
	return nil
}

func (s memProducts) MarkArchived(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.byID(productID)
	if err != nil {
		return err
	}
	p.IsArchived = true
	return nil
}

type memVersions struct{ *memStore }

func (s memVersions) FindByHash(_ context.Context, productID int64, hash string) (*domain.ProductVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions {
		if v.ProductID == productID && v.ContentHash == hash {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (s memVersions) Insert(_ context.Context, version *domain.ProductVersion) (*domain.ProductVersion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, v := range s.versions {
		if v.ProductID == version.ProductID && v.ContentHash == version.ContentHash {
			cp := *v
			return &cp, false, nil
		}
	}
	v := *version
	v.ID = int64(len(s.versions) + 1)
	s.versions = append(s.versions, &v)
	cp := v
	return &cp, true, nil
}

type memSources struct{ *memStore }

func (s memSources) Upsert(_ context.Context, src *domain.ProductSource) (*domain.ProductSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sources {
		if existing.SupplierID == src.SupplierID && existing.URL == src.URL {
			existing.ProductID = src.ProductID
			existing.LastSeenAt = src.LastSeenAt
			cp := *existing
			return &cp, nil
		}
	}
	cp := *src
	cp.ID = int64(len(s.sources) + 1)
	s.sources = append(s.sources, &cp)
	return &cp, nil
}

// AUDIT

type memAudit struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *memAudit) Write(_ context.Context, entry *AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append(a.entries, *entry)
	return nil
}

func (a *memAudit) types() []domain.LogType {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.LogType, 0, len(a.entries))
	for _, en := range a.entries {
		out = append(out, en.Type)
	}
	return out
}

// INFRASTRUCTURE

// fakeFetcher отдаёт страницы по точному URL.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	calls   []string
	onFetch func(url string)
}

func (f *fakeFetcher) Fetch(_ context.Context, req *FetchReq) (*FetchRes, error) {
	if f.onFetch != nil {
		f.onFetch(req.URL)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, req.URL)
	body, ok := f.pages[req.URL]
	if !ok {
		return nil, fmt.Errorf("%s: %w", req.URL, e.ErrFetchFailed)
	}
	return &FetchRes{
		URL:        req.URL,
		StatusCode: 200,
		Body:       []byte(body),
		FetchedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

// fakeTarget записывает вызовы внешнего каталога. Для sku из fail возвращает ошибку,
// для sku из panics паникует.
type fakeTarget struct {
	mu     sync.Mutex
	calls  []string
	fail   map[string]bool
	panics map[string]bool
	nextID int
}

func (t *fakeTarget) do(op string, snapID string) (*TargetProduct, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.calls = append(t.calls, op+":"+snapID)
	if t.panics[snapID] {
		panic("malformed product " + snapID)
	}
	if t.fail[snapID] {
		return nil, fmt.Errorf("%s %s: %w", op, snapID, e.ErrTargetAPI)
	}
	t.nextID++
	id := fmt.Sprintf("gid://shopify/Product/%d", t.nextID)
	return &TargetProduct{ID: id, Handle: strings.ToLower(snapID), URL: "https://shop.test/products/" + strings.ToLower(snapID)}, nil
}

func (t *fakeTarget) Create(_ context.Context, snap *domain.Snapshot) (*TargetProduct, error) {
	return t.do("create", snap.ExternalID)
}

func (t *fakeTarget) Update(_ context.Context, targetID string, snap *domain.Snapshot) (*TargetProduct, error) {
	tp, err := t.do("update", snap.ExternalID)
	if tp != nil {
		tp.ID = targetID
	}
	return tp, err
}

func (t *fakeTarget) Archive(_ context.Context, targetID string) (*TargetProduct, error) {
	return t.do("archive", targetID)
}

func (t *fakeTarget) ShopDomain() string { return "shop.test" }

func (t *fakeTarget) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// syncQueue выполняет задачу сразу в вызывающей горутине.
type syncQueue struct {
	full      bool
	cancelled []string
	// ctx подменяет контекст задачи, например уже отменённым при остановке
	ctx context.Context
}

func (q *syncQueue) Enqueue(task taskq.Task) error {
	if q.full {
		return e.ErrQueueFull
	}
	ctx := q.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	err := task.Run(ctx)
	if task.OnDone != nil {
		task.OnDone(err)
	}
	return nil
}

func (q *syncQueue) Cancel(id string) bool {
	q.cancelled = append(q.cancelled, id)
	return false
}

type staticScope map[string][]string

func (s staticScope) AllowedHostsForTarget(targetID string) []string { return s[targetID] }

// SNAPSHOTS

type memSnapshots struct {
	mu        sync.Mutex
	saved     map[string][]string
	discarded []string
}

func (m *memSnapshots) Save(_ context.Context, runID, pageURL string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saved == nil {
		m.saved = make(map[string][]string)
	}
	m.saved[runID] = append(m.saved[runID], pageURL)
	return runID + "/" + pageURL, nil
}

func (m *memSnapshots) DiscardRun(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discarded = append(m.discarded, runID)
}
