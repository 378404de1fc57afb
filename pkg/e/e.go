package e

import (
	"errors"
	"fmt"
)

var (
	// Внутренние ошибки с транзакциями
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// 400 Bad Request: конфигурация и валидация, проверяются до любых сетевых запросов
	ErrEmptySeedList         = fmt.Errorf("seed list is empty")
	ErrOutOfScopeSeed        = fmt.Errorf("seed url is out of scope")
	ErrMissingCredentials    = fmt.Errorf("portal credentials are required")
	ErrInvalidRunMode        = fmt.Errorf("invalid run mode")
	ErrInvalidTemplateSpec   = fmt.Errorf("invalid template spec")
	ErrUnknownDiscoveryModel = fmt.Errorf("unknown discovery model")
	ErrInvalidRequestBody    = fmt.Errorf("invalid request body")
	ErrIncorrectEnvVariable  = fmt.Errorf("incorrect environment variable")

	// 404 Not Found
	ErrNotFound = fmt.Errorf("not found")

	// 409 Conflict
	ErrRunActive           = fmt.Errorf("template already has an active run")
	ErrRunNotPublishable   = fmt.Errorf("run is not in a publishable state")
	ErrInvalidTransition   = fmt.Errorf("invalid run status transition")
	ErrRunCancelled        = fmt.Errorf("run cancelled")
	ErrQueueFull           = fmt.Errorf("task queue is full")
	ErrDuplicateTask       = fmt.Errorf("task already queued")
	ErrInternalServerError = fmt.Errorf("internal server error")

	// Задача прервана остановкой процесса
	ErrShutdown = fmt.Errorf("interrupted by shutdown")

	// Ошибки загрузки страниц и целевого каталога
	ErrFetchFailed      = fmt.Errorf("page fetch failed")
	ErrRedirectBlocked  = fmt.Errorf("redirect left allowed hosts")
	ErrSessionRejected  = fmt.Errorf("portal session rejected")
	ErrTargetAPI        = fmt.Errorf("target catalog api error")
	ErrTargetNotMatched = fmt.Errorf("target product not found")
)

// reasons сопоставляет sentinel-ошибки с машиночитаемыми кодами причин.
var reasons = []struct {
	err    error
	reason string
}{
	{ErrEmptySeedList, "empty_seed_list"},
	{ErrOutOfScopeSeed, "out_of_scope_seed"},
	{ErrMissingCredentials, "missing_credentials"},
	{ErrInvalidRunMode, "invalid_run_mode"},
	{ErrInvalidTemplateSpec, "invalid_template_spec"},
	{ErrUnknownDiscoveryModel, "unknown_discovery_model"},
	{ErrInvalidRequestBody, "invalid_request_body"},
	{ErrNotFound, "not_found"},
	{ErrRunActive, "run_active"},
	{ErrRunNotPublishable, "run_not_publishable"},
	{ErrInvalidTransition, "invalid_transition"},
	{ErrRunCancelled, "run_cancelled"},
	{ErrQueueFull, "queue_full"},
	{ErrDuplicateTask, "duplicate_task"},
	{ErrShutdown, "shutdown"},
}

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}

// Reason возвращает машиночитаемый код причины для известных ошибок или "internal".
func Reason(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}

	return "internal"
}

// IsValidation сообщает, относится ли ошибка к классу конфигурации/валидации.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptySeedList) ||
		errors.Is(err, ErrOutOfScopeSeed) ||
		errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrInvalidRunMode) ||
		errors.Is(err, ErrInvalidTemplateSpec) ||
		errors.Is(err, ErrUnknownDiscoveryModel) ||
		errors.Is(err, ErrInvalidRequestBody)
}

// IsConflict сообщает, является ли ошибка конфликтом состояния (HTTP 409).
func IsConflict(err error) bool {
	return errors.Is(err, ErrRunActive) ||
		errors.Is(err, ErrRunNotPublishable) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrRunCancelled) ||
		errors.Is(err, ErrQueueFull) ||
		errors.Is(err, ErrDuplicateTask)
}
