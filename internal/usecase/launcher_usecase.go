package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/extract"
	"github.com/DRSN-tech/catalog-importer/internal/pipeline/scope"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
	"github.com/DRSN-tech/catalog-importer/pkg/taskq"
	"github.com/google/uuid"
)

// LauncherUseCase запускает подготовку импорта в фоне и управляет отменой запусков.
type LauncherUseCase struct {
	lifecycle *runLifecycle
	templates TemplateRepository
	runs      RunRepository
	diffs     DiffRepository
	executor  PrepareUC
	queue     TaskQueue
	scope     ScopeResolver
	sessions  SessionProvider
	snapshots SnapshotStore
	audit     Auditor
	logger    logger.Logger
	now       func() time.Time
	newID     func() string
}

func NewLauncherUC(
	tx TxManager,
	templates TemplateRepository,
	runs RunRepository,
	diffs DiffRepository,
	executor PrepareUC,
	queue TaskQueue,
	scope ScopeResolver,
	sessions SessionProvider,
	snapshots SnapshotStore,
	audit Auditor,
	logger logger.Logger,
) *LauncherUseCase {
	return &LauncherUseCase{
		lifecycle: &runLifecycle{tx: tx, runs: runs, templates: templates, audit: audit, logger: logger},
		templates: templates,
		runs:      runs,
		diffs:     diffs,
		executor:  executor,
		queue:     queue,
		scope:     scope,
		sessions:  sessions,
		snapshots: snapshots,
		audit:     audit,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// StartPrepare проверяет конфигурацию до любых сетевых запросов, занимает слот шаблона
// и ставит подготовку в очередь. Возвращает идентификатор запуска, не дожидаясь выполнения.
func (l *LauncherUseCase) StartPrepare(ctx context.Context, req *StartPrepareReq) (*StartPrepareRes, error) {
	const op = "LauncherUseCase.StartPrepare"

	tmpl, err := l.templates.GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	mode, seeds, err := l.validate(tmpl, req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	opts := domain.RunOptions{SeedURLs: seeds, Mode: mode, Limit: req.Limit}
	run := domain.NewImportRun(l.newID(), tmpl, mode, opts, l.now().UTC())

	err = l.lifecycle.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := l.runs.Create(ctx, run); err != nil {
			return err
		}

		claimed, err := l.templates.ClaimSlot(ctx, tmpl.ID, run.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return fmt.Errorf("template %d: %w", tmpl.ID, e.ErrRunActive)
		}
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	log := l.logger.With(logger.FieldRunID, run.ID, logger.FieldTemplateID, tmpl.ID)
	audit(ctx, l.audit, log, NewAuditEntry(tmpl.ID, run.ID, domain.LogLauncherStart, map[string]any{
		"mode":     string(mode),
		"seedUrls": seeds,
		"limit":    req.Limit,
	}))

	err = l.queue.Enqueue(taskq.Task{
		ID: run.ID,
		Run: func(ctx context.Context) error {
			return l.executor.Execute(ctx, run.ID)
		},
		OnDone: func(err error) {
			l.onPrepareDone(run, err)
		},
	})
	if err != nil {
		l.lifecycle.fail(ctx, run, err, domain.LogPrepareError)
		return nil, e.Wrap(op, err)
	}

	log.Infof("prepare run queued")
	return &StartPrepareRes{RunID: run.ID}, nil
}

// validate проверяет режим, seed URL, правила извлечения, разрешённые хосты и наличие учётных данных.
func (l *LauncherUseCase) validate(tmpl *domain.ImportTemplate, req *StartPrepareReq) (domain.RunMode, []string, error) {
	mode, err := domain.ParseRunMode(req.Mode)
	if err != nil {
		return "", nil, err
	}

	source := req.SeedURLs
	if len(source) == 0 {
		source = tmpl.SeedURLs
	}
	var seeds []string
	for _, s := range source {
		if s = strings.TrimSpace(s); s != "" {
			seeds = append(seeds, s)
		}
	}
	if len(seeds) == 0 {
		return "", nil, e.ErrEmptySeedList
	}

	if mode == domain.RunModeDiscovery && !tmpl.DiscoveryModel.Valid() {
		return "", nil, fmt.Errorf("%q: %w", tmpl.DiscoveryModel, e.ErrUnknownDiscoveryModel)
	}

	if _, err := extract.ParseSpec(tmpl.Spec); err != nil {
		return "", nil, err
	}

	part := scope.PartitionURLsByHost(seeds, l.scope.AllowedHostsForTarget(tmpl.TargetID))
	if len(part.Invalid) > 0 {
		return "", nil, fmt.Errorf("%s (hosts: %s): %w",
			strings.Join(part.Invalid, ", "), strings.Join(part.InvalidHosts, ", "), e.ErrOutOfScopeSeed)
	}

	if tmpl.RequiresAuth && (l.sessions == nil || !l.sessions.Enabled()) {
		return "", nil, e.ErrMissingCredentials
	}

	return mode, seeds, nil
}

// onPrepareDone вызывается очередью после завершения задачи, в том числе после паники.
func (l *LauncherUseCase) onPrepareDone(run *domain.ImportRun, err error) {
	log := l.logger.With(logger.FieldRunID, run.ID)
	switch {
	case err == nil:
		log.Infof("prepare run finished")
	case errors.Is(err, e.ErrRunCancelled):
		log.Infof("prepare run cancelled")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// задачу остановила очередь; отменённый пользователем запуск уже не в started
		log.Warnf("prepare run interrupted: %v", err)
		l.lifecycle.interrupted(context.Background(), run, domain.RunStarted, domain.LogPrepareError)
	default:
		log.Errorf(err, "prepare run failed")
		// повторный перевод в failed безопасен: завершённый запуск не меняется
		l.lifecycle.fail(context.Background(), run, err, domain.LogPrepareError)
	}
}

// CancelRun переводит запуск в cancelled, освобождает слот и отменяет фоновую задачу.
func (l *LauncherUseCase) CancelRun(ctx context.Context, runID string) error {
	const op = "LauncherUseCase.CancelRun"

	run, err := l.runs.GetByID(ctx, runID)
	if err != nil {
		return e.Wrap(op, err)
	}
	if run.Status.IsTerminal() {
		return e.Wrap(op, fmt.Errorf("run is %s: %w", run.Status, e.ErrInvalidTransition))
	}

	ok, err := l.lifecycle.transition(ctx, run, nonTerminal, domain.RunCancelled, nil)
	if err != nil {
		return e.Wrap(op, err)
	}
	if !ok {
		return e.Wrap(op, e.ErrInvalidTransition)
	}

	l.queue.Cancel(runID)
	if l.snapshots != nil {
		l.snapshots.DiscardRun(runID)
	}

	audit(ctx, l.audit, l.logger, NewAuditEntry(run.TemplateID, run.ID, domain.LogLauncherCancel, nil))
	return nil
}

// GetRun возвращает запуск и количество диффов по типам.
func (l *LauncherUseCase) GetRun(ctx context.Context, runID string) (*GetRunRes, error) {
	const op = "LauncherUseCase.GetRun"

	run, err := l.runs.GetByID(ctx, runID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	counts, err := l.diffs.CountByType(ctx, runID)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return &GetRunRes{Run: run, Diffs: counts}, nil
}
