package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/diff"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/discovery"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/extract"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/hashing"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/header"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/scope"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ExecutorCfg — параметры этапа подготовки.
type ExecutorCfg struct {
	DiscoveryConcurrency int
}

// PrepareExecutor выполняет подготовку запуска: поиск ссылок, загрузку и извлечение,
// запись версий, вычисление диффов.
type PrepareExecutor struct {
	lifecycle *runLifecycle
	templates TemplateRepository
	runs      RunRepository
	staged    StagedPartRepository
	diffs     DiffRepository
	catalog   CatalogRepository
	writer    ProductWriter
	fetcher   PageFetcher
	sessions  SessionProvider
	scope     ScopeResolver
	snapshots SnapshotStore
	audit     Auditor
	logger    logger.Logger
	cfg       ExecutorCfg
	now       func() time.Time
}

// NewPrepareExecutor создаёт исполнителя подготовки. snapshots может быть nil.
func NewPrepareExecutor(
	tx TxManager,
	templates TemplateRepository,
	runs RunRepository,
	staged StagedPartRepository,
	diffs DiffRepository,
	catalog CatalogRepository,
	writer ProductWriter,
	fetcher PageFetcher,
	sessions SessionProvider,
	scope ScopeResolver,
	snapshots SnapshotStore,
	audit Auditor,
	logger logger.Logger,
	cfg ExecutorCfg,
) *PrepareExecutor {
	if cfg.DiscoveryConcurrency <= 0 {
		cfg.DiscoveryConcurrency = 1
	}

	return &PrepareExecutor{
		lifecycle: &runLifecycle{tx: tx, runs: runs, templates: templates, audit: audit, logger: logger},
		templates: templates,
		runs:      runs,
		staged:    staged,
		diffs:     diffs,
		catalog:   catalog,
		writer:    writer,
		fetcher:   fetcher,
		sessions:  sessions,
		scope:     scope,
		snapshots: snapshots,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// prepareState — данные одного выполнения подготовки.
type prepareState struct {
	run     *domain.ImportRun
	tmpl    *domain.ImportTemplate
	spec    *extract.Spec
	allowed []string
	cookie  string
	report  domain.PrepareReport
	log     logger.Logger
}

// Execute выполняет подготовку запуска runID. Записи обрабатываются в порядке обнаружения,
// отмена проверяется перед каждой страницей.
func (p *PrepareExecutor) Execute(ctx context.Context, runID string) error {
	const op = "PrepareExecutor.Execute"

	start := p.now()

	run, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		return e.Wrap(op, err)
	}
	if run.Status != domain.RunStarted {
		// запуск отменён до начала выполнения
		return e.Wrap(op, e.ErrRunCancelled)
	}

	st := &prepareState{
		run: run,
		log: p.logger.With(logger.FieldRunID, run.ID, logger.FieldTemplateID, run.TemplateID),
	}

	if err := p.execute(ctx, st); err != nil {
		if errors.Is(err, e.ErrRunCancelled) {
			st.log.Infof("prepare stopped: run cancelled")
			return e.Wrap(op, err)
		}
		if ctx.Err() != nil {
			// статус запуска решает вызывающий: отмена пользователем уже записана в БД
			st.log.Warnf("prepare interrupted: %v", ctx.Err())
			return e.Wrap(op, ctx.Err())
		}

		st.log.Errorf(err, "prepare failed")
		p.lifecycle.fail(ctx, run, err, domain.LogPrepareError)
		return e.Wrap(op, err)
	}

	st.report.DurationMS = p.now().Sub(start).Milliseconds()
	summary := run.Summary
	summary.Prepare = &st.report

	ok, err := p.lifecycle.transition(ctx, run, []domain.RunStatus{domain.RunStarted}, domain.RunStaged, &summary)
	if err != nil {
		p.lifecycle.fail(ctx, run, err, domain.LogPrepareError)
		return e.Wrap(op, err)
	}
	if !ok {
		return e.Wrap(op, e.ErrRunCancelled)
	}

	audit(ctx, p.audit, st.log, NewAuditEntry(run.TemplateID, run.ID, domain.LogPrepareReport, reportPayload(&st.report)))
	st.log.With(logger.FieldCount, st.report.Staged, logger.FieldDurationMS, st.report.DurationMS).Infof("prepare finished")

	return nil
}

func (p *PrepareExecutor) execute(ctx context.Context, st *prepareState) error {
	var err error

	st.tmpl, err = p.templates.GetByID(ctx, st.run.TemplateID)
	if err != nil {
		return err
	}

	st.spec, err = extract.ParseSpec(st.tmpl.Spec)
	if err != nil {
		return err
	}

	// состояние каталога фиксируется до записи версий этим запуском
	baseline, err := p.catalog.ListCanonical(ctx, st.run.SupplierID)
	if err != nil {
		return err
	}
	if err := p.runs.SaveBaseline(ctx, st.run.ID, baseline); err != nil {
		return err
	}

	st.allowed = p.scope.AllowedHostsForTarget(st.tmpl.TargetID)

	if st.tmpl.RequiresAuth {
		st.cookie, err = p.sessions.CookieHeader(ctx, st.tmpl.ID)
		if err != nil {
			return err
		}
	}

	urls := st.run.Summary.Options.SeedURLs
	if st.run.Mode == domain.RunModeDiscovery {
		urls, err = p.discover(ctx, st, urls)
		if err != nil {
			return err
		}
	}

	part := scope.PartitionURLsByHost(urls, st.allowed)
	st.report.OutOfScope = len(part.Invalid)
	st.report.InvalidHosts = part.InvalidHosts
	if len(part.Invalid) > 0 {
		st.log.Warnf("dropped %d out-of-scope urls, hosts: %v", len(part.Invalid), part.InvalidHosts)
		audit(ctx, p.audit, st.log, NewAuditEntry(st.run.TemplateID, st.run.ID, domain.LogPrepareScope, map[string]any{
			"invalid":      len(part.Invalid),
			"invalidHosts": part.InvalidHosts,
		}))
	}

	pages := part.Valid
	if limit := st.run.Summary.Options.Limit; limit > 0 && len(pages) > limit {
		pages = pages[:limit]
		st.report.MarkIncomplete(domain.IncompleteLimit)
	}

	seq := 0
	for _, pageURL := range pages {
		if err := p.checkCancelled(ctx, st.run.ID); err != nil {
			return err
		}

		staged, err := p.processPage(ctx, st, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st.report.FetchErrors++
			st.report.MarkIncomplete(domain.IncompleteFetchErrors)
			st.log.With(logger.FieldURL, pageURL).Warnf("page skipped: %v", err)
			continue
		}
		if staged == nil {
			continue
		}

		seq++
		staged.Seq = seq
		if err := p.stage(ctx, st, staged); err != nil {
			return err
		}
	}

	if err := p.checkCancelled(ctx, st.run.ID); err != nil {
		return err
	}

	if len(st.report.Incomplete) > 0 && st.run.Mode.EnumeratesCatalog() {
		st.log.Warnf("crawl incomplete (%s), delete detection disabled", strings.Join(st.report.Incomplete, ","))
	}

	counts, err := p.computeDiffs(ctx, st.run, &st.report, baseline)
	if err != nil {
		return err
	}
	st.report.Diffs = diffCounts(counts)

	return nil
}

// discover собирает ссылки со всех seed URL параллельно, сохраняя порядок seed.
func (p *PrepareExecutor) discover(ctx context.Context, st *prepareState, seeds []string) ([]string, error) {
	results := make([][]string, len(seeds))
	var (
		mu     sync.Mutex
		failed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.DiscoveryConcurrency)
	for i, seed := range seeds {
		g.Go(func() error {
			res, err := p.fetch(gctx, st, seed)
			if err == nil {
				results[i], err = discovery.Run(st.tmpl.DiscoveryModel, res.Body, res.URL, seed)
			}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				mu.Lock()
				failed++
				mu.Unlock()
				st.log.With(logger.FieldURL, seed).Warnf("discovery failed: %v", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed > 0 {
		st.report.MarkIncomplete(domain.IncompleteDiscoveryFailed)
	}
	for _, list := range results {
		if len(list) >= discovery.MaxURLs {
			st.report.MarkIncomplete(domain.IncompleteDiscoveryCapped)
		}
	}

	var (
		urls []string
		seen = make(map[string]struct{})
	)
	for _, list := range results {
		for _, u := range list {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	st.report.Discovered = len(urls)
	audit(ctx, p.audit, st.log, NewAuditEntry(st.run.TemplateID, st.run.ID, domain.LogPrepareDiscovery, map[string]any{
		"seeds":      len(seeds),
		"failed":     failed,
		"discovered": len(urls),
		"model":      string(st.tmpl.DiscoveryModel),
	}))

	return urls, nil
}

// fetch загружает страницу; при отказе сессии обновляет cookie и повторяет запрос один раз.
func (p *PrepareExecutor) fetch(ctx context.Context, st *prepareState, pageURL string) (*FetchRes, error) {
	res, err := p.fetcher.Fetch(ctx, &FetchReq{URL: pageURL, Cookie: st.cookie, AllowedHosts: st.allowed})
	if err == nil || !errors.Is(err, e.ErrSessionRejected) || !st.tmpl.RequiresAuth {
		return res, err
	}

	if err := p.sessions.Invalidate(ctx, st.tmpl.ID); err != nil {
		st.log.Warnf("session invalidate failed: %v", err)
	}
	cookie, err := p.sessions.CookieHeader(ctx, st.tmpl.ID)
	if err != nil {
		return nil, err
	}
	st.cookie = cookie

	return p.fetcher.Fetch(ctx, &FetchReq{URL: pageURL, Cookie: cookie, AllowedHosts: st.allowed})
}

// processPage загружает и разбирает одну страницу. Возвращает nil для страниц-заголовков серий.
func (p *PrepareExecutor) processPage(ctx context.Context, st *prepareState, pageURL string) (*domain.StagedPart, error) {
	res, err := p.fetch(ctx, st, pageURL)
	if err != nil {
		return nil, err
	}
	st.report.Fetched++

	if p.snapshots != nil {
		if _, err := p.snapshots.Save(ctx, st.run.ID, res.URL, res.Body); err != nil {
			st.log.Warnf("page snapshot failed: %v", err)
		}
	}

	ext, err := extract.Extract(res.Body, res.URL, st.spec)
	if err != nil {
		return nil, err
	}

	part := buildStagedPart(st.run, res, ext)

	hdr := header.DetectSeriesHeader(part.URL, part.ExternalID, part.Title, mergeSpecs(part.RawSpecs, part.NormSpecs))
	if hdr.IsHeader {
		st.report.Headers++
		st.log.With(logger.FieldExternalID, part.ExternalID).Debugf("series header skipped: %s", hdr.Reason)
		return nil, nil
	}

	return part, nil
}

// stage сохраняет запись и, если идентификатор валиден, версию продукта.
func (p *PrepareExecutor) stage(ctx context.Context, st *prepareState, part *domain.StagedPart) error {
	if err := p.staged.Insert(ctx, part); err != nil {
		return err
	}
	st.report.Staged++

	if !part.HasValidIdentity() {
		return nil
	}

	templateID := st.tmpl.ID
	res, err := p.writer.UpsertNormalizedProduct(ctx, &UpsertNormalizedReq{
		SupplierID:     part.SupplierID,
		SKU:            part.ExternalID,
		Title:          part.Title,
		Type:           part.PartType,
		URL:            part.URL,
		TemplateID:     &templateID,
		RawSpecs:       part.RawSpecs,
		NormSpecs:      part.NormSpecs,
		Description:    part.Description,
		Images:         part.Images,
		PriceMsrp:      part.PriceMsrp,
		PriceWholesale: part.PriceWholesale,
		Availability:   part.Availability,
		FetchedAt:      part.FetchedAt,
	})
	if err != nil {
		return err
	}
	if res.CreatedProduct {
		st.report.CreatedProducts++
	}
	if res.CreatedVersion {
		st.report.CreatedVersions++
	}

	return nil
}

// checkCancelled проверяет отмену контекста и статус запуска в БД.
func (p *PrepareExecutor) checkCancelled(ctx context.Context, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	run, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != domain.RunStarted {
		return e.ErrRunCancelled
	}
	return nil
}

// RecomputeDiffs пересчитывает диффы подготовленного запуска, заменяя прежние.
func (p *PrepareExecutor) RecomputeDiffs(ctx context.Context, runID string) (map[domain.DiffType]int, error) {
	const op = "PrepareExecutor.RecomputeDiffs"

	run, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if run.Status != domain.RunStaged {
		return nil, e.Wrap(op, fmt.Errorf("run is %s: %w", run.Status, e.ErrInvalidTransition))
	}

	baseline, err := p.runs.LoadBaseline(ctx, runID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	counts, err := p.computeDiffs(ctx, run, run.Summary.Prepare, baseline)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	audit(ctx, p.audit, p.logger, NewAuditEntry(run.TemplateID, run.ID, domain.LogDiffRecompute, map[string]any{
		"diffs": diffCounts(counts),
	}))

	return counts, nil
}

// computeDiffs пересчитывает диффы запуска. По неполной выгрузке удаления не формируются.
func (p *PrepareExecutor) computeDiffs(
	ctx context.Context,
	run *domain.ImportRun,
	report *domain.PrepareReport,
	baseline []domain.CanonicalProduct,
) (map[domain.DiffType]int, error) {
	staged, err := p.staged.ListByRun(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	diffs := diff.Compute(run.ID, staged, baseline, report.DiffMode(run.Mode), diff.Options{Now: p.now})
	err = p.lifecycle.tx.WithinTx(ctx, func(ctx context.Context) error {
		return p.diffs.ReplaceForRun(ctx, run.ID, diffs)
	})
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.DiffType]int)
	for _, d := range diffs {
		counts[d.DiffType]++
	}
	return counts, nil
}

func buildStagedPart(run *domain.ImportRun, res *FetchRes, ext *extract.Result) *domain.StagedPart {
	part := &domain.StagedPart{
		RunID:        run.ID,
		SupplierID:   run.SupplierID,
		ExternalID:   ext.String(extract.FieldExternalID),
		URL:          res.URL,
		Title:        ext.String(extract.FieldTitle),
		PartType:     ext.String(extract.FieldPartType),
		Description:  ext.String(extract.FieldDescription),
		Images:       ext.Strings(extract.FieldImages),
		RawSpecs:     ext.RawSpecs,
		NormSpecs:    ext.NormSpecs,
		Availability: ext.String(extract.FieldAvailability),
		FetchedAt:    res.FetchedAt,
		Warnings:     ext.Warnings(),
	}

	var err error
	if part.PriceMsrp, err = extract.Cents(ext.String(extract.FieldPriceMsrp)); err != nil {
		part.Warnings = append(part.Warnings, err.Error())
	}
	if part.PriceWholesale, err = extract.Cents(ext.String(extract.FieldPriceWholesale)); err != nil {
		part.Warnings = append(part.Warnings, err.Error())
	}

	part.ContentHash = hashing.ComputeContentHash(hashing.Input{
		NormSpecs:      part.NormSpecs,
		Description:    part.Description,
		PriceMsrp:      part.PriceMsrp,
		PriceWholesale: part.PriceWholesale,
		Availability:   part.Availability,
	})

	return part
}

// mergeSpecs объединяет сырые и канонические характеристики. Канонические значения
// приоритетнее, пустые значения не учитываются.
func mergeSpecs(raw, norm map[string]string) map[string]string {
	out := make(map[string]string, len(raw)+len(norm))
	for _, specs := range []map[string]string{raw, norm} {
		for k, v := range specs {
			if strings.TrimSpace(v) != "" {
				out[k] = v
			}
		}
	}
	return out
}

func diffCounts(counts map[domain.DiffType]int) map[string]int {
	out := make(map[string]int, len(counts))
	for t, n := range counts {
		out[string(t)] = n
	}
	return out
}

func reportPayload(r *domain.PrepareReport) map[string]any {
	return map[string]any{
		"discovered":      r.Discovered,
		"outOfScope":      r.OutOfScope,
		"fetched":         r.Fetched,
		"fetchErrors":     r.FetchErrors,
		"headers":         r.Headers,
		"staged":          r.Staged,
		"createdProducts": r.CreatedProducts,
		"createdVersions": r.CreatedVersions,
		"diffs":           r.Diffs,
		"incomplete":      r.Incomplete,
		"durationMs":      r.DurationMS,
	}
}
