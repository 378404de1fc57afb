package domain

import (
	"strings"
	"time"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
)

// RunStatus — статус запуска импорта.
type RunStatus string

const (
	RunStarted    RunStatus = "started"
	RunStaged     RunStatus = "staged"
	RunPublishing RunStatus = "publishing"
	RunPublished  RunStatus = "published"
	RunFailed     RunStatus = "failed"
	RunCancelled  RunStatus = "cancelled"
)

var runTransitions = map[RunStatus][]RunStatus{
	RunStarted:    {RunStaged, RunFailed, RunCancelled},
	RunStaged:     {RunPublishing, RunFailed, RunCancelled},
	RunPublishing: {RunPublished, RunFailed, RunCancelled},
}

// IsTerminal сообщает, что запуск завершён и слот шаблона должен быть освобождён.
func (s RunStatus) IsTerminal() bool {
	return s == RunPublished || s == RunFailed || s == RunCancelled
}

// CanTransition проверяет допустимость перехода s -> to.
func (s RunStatus) CanTransition(to RunStatus) bool {
	for _, next := range runTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// RunMode определяет, перечисляет ли запуск весь каталог поставщика.
type RunMode string

const (
	RunModeDiscovery RunMode = "discovery"
	RunModeManual    RunMode = "manual"
)

// ParseRunMode разбирает режим запуска. Пустая строка означает режим discovery.
func ParseRunMode(s string) (RunMode, error) {
	switch RunMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", RunModeDiscovery:
		return RunModeDiscovery, nil
	case RunModeManual:
		return RunModeManual, nil
	default:
		return "", e.ErrInvalidRunMode
	}
}

// EnumeratesCatalog сообщает, можно ли считать отсутствующие в выгрузке товары удалёнными.
func (m RunMode) EnumeratesCatalog() bool {
	return m == RunModeDiscovery
}

// ImportRun — один цикл подготовки и публикации для одного шаблона.
type ImportRun struct {
	ID         string
	TemplateID int64
	SupplierID string
	Status     RunStatus
	Mode       RunMode
	Summary    RunSummary
	StartedAt  time.Time
	FinishedAt *time.Time
}

func NewImportRun(id string, tmpl *ImportTemplate, mode RunMode, opts RunOptions, now time.Time) *ImportRun {
	return &ImportRun{
		ID:         id,
		TemplateID: tmpl.ID,
		SupplierID: tmpl.SupplierID,
		Status:     RunStarted,
		Mode:       mode,
		Summary:    RunSummary{Options: opts},
		StartedAt:  now,
	}
}

// RunSummary сохраняется в import_runs.summary как JSON.
type RunSummary struct {
	Options RunOptions     `json:"options"`
	Prepare *PrepareReport `json:"prepare,omitempty"`
	Publish *PublishTotals `json:"publish,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type RunOptions struct {
	SeedURLs []string `json:"seedUrls"`
	Mode     RunMode  `json:"mode"`
	Limit    int      `json:"limit,omitempty"`
}

// PrepareReport — итоги этапа подготовки.
type PrepareReport struct {
	Discovered      int            `json:"discovered"`
	OutOfScope      int            `json:"outOfScope"`
	InvalidHosts    []string       `json:"invalidHosts,omitempty"`
	Fetched         int            `json:"fetched"`
	FetchErrors     int            `json:"fetchErrors"`
	Headers         int            `json:"headers"`
	Staged          int            `json:"staged"`
	CreatedProducts int            `json:"createdProducts"`
	CreatedVersions int            `json:"createdVersions"`
	Diffs           map[string]int `json:"diffs"`
	// Incomplete — причины, по которым выгрузка не покрыла каталог целиком. Удаления для такого запуска не формируются.
	Incomplete      []string       `json:"incomplete,omitempty"`
	DurationMS      int64          `json:"durationMs"`
}

// Причины неполной выгрузки.
const (
	IncompleteLimit           = "limit-truncated"
	IncompleteFetchErrors     = "fetch-errors"
	IncompleteDiscoveryFailed = "discovery-failed"
	IncompleteDiscoveryCapped = "discovery-capped"
)

// MarkIncomplete добавляет причину, если её ещё нет.
func (r *PrepareReport) MarkIncomplete(reason string) {
	for _, v := range r.Incomplete {
		if v == reason {
			return
		}
	}
	r.Incomplete = append(r.Incomplete, reason)
}

// DiffMode возвращает режим для вычисления диффов: неполная выгрузка не перечисляет каталог,
// даже если запуск был в режиме discovery.
func (r *PrepareReport) DiffMode(mode RunMode) RunMode {
	if r != nil && len(r.Incomplete) > 0 {
		return RunModeManual
	}
	return mode
}

// PublishTotals — итоги публикации.
type PublishTotals struct {
	Created    int   `json:"created"`
	Updated    int   `json:"updated"`
	Archived   int   `json:"archived"`
	Failed     int   `json:"failed"`
	Skipped    int   `json:"skipped"`
	DryRun     bool  `json:"dryRun,omitempty"`
	DurationMS int64 `json:"durationMs"`
}

// Attempted — количество диффов, для которых выполнялась попытка публикации.
func (t PublishTotals) Attempted() int {
	return t.Created + t.Updated + t.Archived + t.Failed
}
