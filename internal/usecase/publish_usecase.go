package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

const (
	defaultPublishBatchSize = 50
	// publishTimeout ограничивает публикацию, отвязанную от контекста запроса.
	publishTimeout = 30 * time.Minute
)

// PublishUseCase применяет одобренные диффы запуска к внешнему каталогу.
type PublishUseCase struct {
	lifecycle *runLifecycle
	runs      RunRepository
	diffs     DiffRepository
	writer    ProductWriter
	target    CatalogTarget
	audit     Auditor
	logger    logger.Logger
	batchSize int
	now       func() time.Time
}

func NewPublishUC(
	tx TxManager,
	templates TemplateRepository,
	runs RunRepository,
	diffs DiffRepository,
	writer ProductWriter,
	target CatalogTarget,
	audit Auditor,
	logger logger.Logger,
	batchSize int,
) *PublishUseCase {
	if batchSize <= 0 {
		batchSize = defaultPublishBatchSize
	}

	return &PublishUseCase{
		lifecycle: &runLifecycle{tx: tx, runs: runs, templates: templates, audit: audit, logger: logger},
		runs:      runs,
		diffs:     diffs,
		writer:    writer,
		target:    target,
		audit:     audit,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// publishState накапливает итоги одной публикации.
type publishState struct {
	run      *domain.ImportRun
	totals   domain.PublishTotals
	detailed map[domain.DiffType]TypeTotals
	ids      []string
	log      logger.Logger
}

// PublishRun публикует одобренные диффы staged-запуска. Ошибка одного диффа учитывается
// в failed и не прерывает остальные. При dryRun возвращает прогноз без изменений.
func (p *PublishUseCase) PublishRun(ctx context.Context, req *PublishReq) (*PublishRes, error) {
	const op = "PublishUseCase.PublishRun"

	start := p.now()

	run, err := p.runs.GetByID(ctx, req.RunID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if run.Status != domain.RunStaged {
		return nil, e.Wrap(op, fmt.Errorf("run is %s: %w", run.Status, e.ErrRunNotPublishable))
	}

	approved, err := p.diffs.CountApproved(ctx, run.ID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	res := &PublishRes{
		RunID:          run.ID,
		TotalsDetailed: make(map[domain.DiffType]TypeTotals),
		ShopDomain:     p.target.ShopDomain(),
	}

	total := approved[domain.DiffAdd] + approved[domain.DiffChange] + approved[domain.DiffDelete]
	if total == 0 {
		res.Totals.DryRun = req.DryRun
		return res, nil
	}

	if req.DryRun {
		res.Totals = domain.PublishTotals{
			Created:  approved[domain.DiffAdd],
			Updated:  approved[domain.DiffChange],
			Archived: approved[domain.DiffDelete],
			DryRun:   true,
		}
		for _, t := range []domain.DiffType{domain.DiffAdd, domain.DiffChange, domain.DiffDelete} {
			if n := approved[t]; n > 0 {
				res.TotalsDetailed[t] = TypeTotals{Attempted: n, Succeeded: n}
			}
		}
		return res, nil
	}

	ok, err := p.lifecycle.transition(ctx, run, []domain.RunStatus{domain.RunStaged}, domain.RunPublishing, nil)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !ok {
		return nil, e.Wrap(op, e.ErrRunNotPublishable)
	}

	// после перехода в publishing запуск должен дойти до терминального статуса с итогами,
	// даже если клиент закрыл соединение
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	st := &publishState{
		run:      run,
		detailed: res.TotalsDetailed,
		log:      p.logger.With(logger.FieldRunID, run.ID, logger.FieldTemplateID, run.TemplateID),
	}
	audit(ctx, p.audit, st.log, NewAuditEntry(run.TemplateID, run.ID, domain.LogPublishStart, map[string]any{
		"approved": total,
		"shop":     res.ShopDomain,
	}))

	if err := p.publishBatches(ctx, st); err != nil {
		st.totals.DurationMS = p.now().Sub(start).Milliseconds()
		run.Summary.Publish = &st.totals

		if errors.Is(err, e.ErrRunCancelled) {
			// запуск уже cancelled, итоги частичной публикации дописываются в его summary
			if serr := p.runs.SavePublishTotals(ctx, run.ID, &st.totals); serr != nil {
				st.log.Errorf(serr, "failed to store partial publish totals")
			}
			audit(ctx, p.audit, st.log, NewAuditEntry(run.TemplateID, run.ID, domain.LogPublishError, map[string]any{
				"reason": e.Reason(err),
				"totals": st.totals,
			}))
			return nil, e.Wrap(op, err)
		}

		st.log.Errorf(err, "publish failed")
		p.lifecycle.markFailed(ctx, run, []domain.RunStatus{domain.RunPublishing}, err, domain.LogPublishError)
		return nil, e.Wrap(op, err)
	}

	st.totals.DurationMS = p.now().Sub(start).Milliseconds()
	summary := run.Summary
	summary.Publish = &st.totals

	ok, err = p.lifecycle.transition(ctx, run, []domain.RunStatus{domain.RunPublishing}, domain.RunPublished, &summary)
	if err != nil {
		run.Summary.Publish = &st.totals
		p.lifecycle.markFailed(ctx, run, []domain.RunStatus{domain.RunPublishing}, err, domain.LogPublishError)
		return nil, e.Wrap(op, err)
	}
	if !ok {
		// отменён после последней пачки
		if serr := p.runs.SavePublishTotals(ctx, run.ID, &st.totals); serr != nil {
			st.log.Errorf(serr, "failed to store publish totals")
		}
		return nil, e.Wrap(op, e.ErrRunCancelled)
	}

	audit(ctx, p.audit, st.log, NewAuditEntry(run.TemplateID, run.ID, domain.LogPublishDone, map[string]any{
		"runId":      run.ID,
		"created":    st.totals.Created,
		"updated":    st.totals.Updated,
		"archived":   st.totals.Archived,
		"failed":     st.totals.Failed,
		"skipped":    st.totals.Skipped,
		"durationMs": st.totals.DurationMS,
	}))
	st.log.With(logger.FieldCount, st.totals.Attempted(), logger.FieldDurationMS, st.totals.DurationMS).
		Infof("publish finished: created=%d updated=%d archived=%d failed=%d",
			st.totals.Created, st.totals.Updated, st.totals.Archived, st.totals.Failed)

	res.Totals = st.totals
	res.ProductIDs = st.ids
	return res, nil
}

// publishBatches читает одобренные диффы пачками по seq. Между пачками проверяется,
// не отменён ли запуск.
func (p *PublishUseCase) publishBatches(ctx context.Context, st *publishState) error {
	var (
		afterSeq int64
		batchNo  int
	)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, err := p.diffs.ListApprovedBatch(ctx, st.run.ID, afterSeq, p.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		for i := range batch {
			p.publishOne(ctx, st, &batch[i])
		}
		afterSeq = batch[len(batch)-1].Seq
		batchNo++

		audit(ctx, p.audit, st.log, NewAuditEntry(st.run.TemplateID, st.run.ID, domain.LogPublishProgress, map[string]any{
			"batch":     batchNo,
			"size":      len(batch),
			"attempted": st.totals.Attempted(),
			"failed":    st.totals.Failed,
		}))

		current, err := p.runs.GetByID(ctx, st.run.ID)
		if err != nil {
			return err
		}
		if current.Status != domain.RunPublishing {
			return e.ErrRunCancelled
		}

		if len(batch) < p.batchSize {
			return nil
		}
	}
}

// publishOne применяет один дифф. Ошибки и паники учитываются в итогах и не выходят наружу.
func (p *PublishUseCase) publishOne(ctx context.Context, st *publishState, d *domain.ImportDiff) {
	if !d.Publishable() {
		st.totals.Skipped++
		return
	}

	log := st.log.With(logger.FieldExternalID, d.ExternalID)
	tt := st.detailed[d.DiffType]
	tt.Attempted++

	meta := &domain.PublishMeta{}
	kind, tp, err := p.apply(ctx, st.run, d)
	if err != nil {
		tt.Failed++
		st.totals.Failed++
		meta.Error = err.Error()
		log.Warnf("diff %s publish failed: %v", d.ID, err)
	} else {
		tt.Succeeded++
		switch kind {
		case domain.DiffAdd:
			st.totals.Created++
		case domain.DiffChange:
			st.totals.Updated++
		case domain.DiffDelete:
			st.totals.Archived++
		}

		now := p.now().UTC()
		meta.PublishedAt = &now
		if tp != nil {
			meta.TargetID = tp.ID
			meta.Handle = tp.Handle
			meta.URL = tp.URL
			if kind != domain.DiffDelete {
				st.ids = append(st.ids, tp.ID)
			}
		}
	}
	st.detailed[d.DiffType] = tt

	v := d.Validation
	v.Publish = meta
	if err := p.diffs.UpdateValidation(ctx, d.ID, v); err != nil {
		log.Warnf("failed to store publish result for diff %s: %v", d.ID, err)
	}
}

// apply вызывает внешний каталог и отмечает результат в каноническом каталоге.
// Возвращает фактически выполненное действие: change без товара во внешнем каталоге создаёт его.
func (p *PublishUseCase) apply(ctx context.Context, run *domain.ImportRun, d *domain.ImportDiff) (kind domain.DiffType, tp *TargetProduct, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	switch d.DiffType {
	case domain.DiffAdd, domain.DiffChange:
		if d.After == nil {
			return d.DiffType, nil, fmt.Errorf("diff %s has no after snapshot", d.ID)
		}

		kind = domain.DiffAdd
		if targetID := targetProductID(d); d.DiffType == domain.DiffChange && targetID != "" {
			kind = domain.DiffChange
			tp, err = p.target.Update(ctx, targetID, d.After)
		} else {
			tp, err = p.target.Create(ctx, d.After)
		}
		if err != nil {
			return kind, nil, err
		}

		if err := p.writer.MarkPublished(ctx, run.SupplierID, d.ExternalID, tp.ID); err != nil {
			p.logger.Warnf("failed to mark %s as published: %v", d.ExternalID, err)
		}
		return kind, tp, nil

	case domain.DiffDelete:
		if targetID := targetProductID(d); targetID != "" {
			if tp, err = p.target.Archive(ctx, targetID); err != nil {
				return domain.DiffDelete, nil, err
			}
		}

		if err := p.writer.MarkArchived(ctx, run.SupplierID, d.ExternalID); err != nil {
			return domain.DiffDelete, tp, err
		}
		return domain.DiffDelete, tp, nil
	}

	return d.DiffType, nil, fmt.Errorf("diff type %q cannot be published", d.DiffType)
}

func targetProductID(d *domain.ImportDiff) string {
	for _, s := range []*domain.Snapshot{d.After, d.Before} {
		if s != nil && s.TargetProductID != nil && *s.TargetProductID != "" {
			return *s.TargetProductID
		}
	}
	return ""
}
