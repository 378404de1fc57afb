package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/DRSN-tech/catalog-importer/pkg/logger"
)

// nonTerminal — статусы, из которых достижимы failed и cancelled.
var nonTerminal = []domain.RunStatus{domain.RunStarted, domain.RunStaged, domain.RunPublishing}

// runLifecycle переводит запуск между статусами и освобождает слот шаблона в терминальном статусе.
type runLifecycle struct {
	tx        TxManager
	runs      RunRepository
	templates TemplateRepository
	audit     Auditor
	logger    logger.Logger
}

// transition атомарно меняет статус; для терминального статуса в той же транзакции освобождает слот.
func (l *runLifecycle) transition(
	ctx context.Context,
	run *domain.ImportRun,
	from []domain.RunStatus,
	to domain.RunStatus,
	summary *domain.RunSummary,
) (bool, error) {
	const op = "runLifecycle.transition"

	var ok bool
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ok, err = l.runs.Transition(ctx, run.ID, from, to, summary)
		if err != nil || !ok {
			return err
		}

		if to.IsTerminal() {
			return l.templates.ReleaseSlot(ctx, run.TemplateID, run.ID)
		}
		return nil
	})
	if err != nil {
		return false, e.Wrap(op, err)
	}

	if ok {
		run.Status = to
		if summary != nil {
			run.Summary = *summary
		}
	}

	return ok, nil
}

// fail переводит запуск в failed с описанием причины. Уже завершённый запуск не меняется.
// Отмена пользователем не считается ошибкой: статус cancelled уже записан.
func (l *runLifecycle) fail(ctx context.Context, run *domain.ImportRun, cause error, logType domain.LogType) {
	if errors.Is(cause, e.ErrRunCancelled) || errors.Is(cause, context.Canceled) {
		return
	}
	l.markFailed(ctx, run, nonTerminal, cause, logType)
}

// interrupted переводит в failed запуск, чья задача остановлена вместе с процессом.
// Запуск, уже отменённый пользователем, не входит в from и не меняется.
func (l *runLifecycle) interrupted(ctx context.Context, run *domain.ImportRun, from domain.RunStatus, logType domain.LogType) {
	l.markFailed(ctx, run, []domain.RunStatus{from}, e.ErrShutdown, logType)
}

func (l *runLifecycle) markFailed(
	ctx context.Context,
	run *domain.ImportRun,
	from []domain.RunStatus,
	cause error,
	logType domain.LogType,
) {
	// контекст задачи может быть уже отменён, статус всё равно нужно записать
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	summary := run.Summary
	summary.Error = cause.Error()

	ok, err := l.transition(ctx, run, from, domain.RunFailed, &summary)
	if err != nil {
		l.logger.Errorf(err, "failed to mark run %s as failed", run.ID)
		return
	}
	if !ok {
		return
	}

	audit(ctx, l.audit, l.logger, NewAuditEntry(run.TemplateID, run.ID, logType, map[string]any{
		"error":  cause.Error(),
		"reason": e.Reason(cause),
	}))
}
