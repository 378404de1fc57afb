package usecase

import (
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
)

// LAUNCHER

// StartPrepareReq — запрос на запуск подготовки импорта по шаблону.
type StartPrepareReq struct {
	TemplateID int64
	SeedURLs   []string // переопределяет seed URL шаблона
	Mode       string
	Limit      int
}

type StartPrepareRes struct {
	RunID string
}

// GetRunRes — состояние запуска и сводка по его диффам.
type GetRunRes struct {
	Run   *domain.ImportRun
	Diffs map[domain.DiffType]int
}

// REVIEW

// DiffFilter ограничивает выборку диффов запуска. Пустые поля не фильтруют.
type DiffFilter struct {
	Type       domain.DiffType
	Resolution domain.Resolution
	Limit      int
}

type ApproveAddsRes struct {
	Updated int
	Totals  domain.ApproveTotals
	All     bool
}

// PUBLISH

type PublishReq struct {
	RunID  string
	DryRun bool
}

// TypeTotals — итог публикации диффов одного типа.
type TypeTotals struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type PublishRes struct {
	RunID          string
	Totals         domain.PublishTotals
	TotalsDetailed map[domain.DiffType]TypeTotals
	ProductIDs     []string // идентификаторы товаров во внешнем каталоге
	ShopDomain     string
}

// TargetProduct — товар во внешнем каталоге.
type TargetProduct struct {
	ID     string
	Handle string
	URL    string
}

// VERSION WRITER

// UpsertNormalizedReq — нормализованная запись для сохранения в канонический каталог.
type UpsertNormalizedReq struct {
	SupplierID     string
	SKU            string
	Title          string
	Type           string
	URL            string
	TemplateID     *int64
	RawSpecs       map[string]string
	NormSpecs      map[string]string
	Description    string
	Images         []string
	PriceMsrp      *int64
	PriceWholesale *int64
	Availability   string
	FetchedAt      time.Time
}

type UpsertNormalizedRes struct {
	CreatedProduct bool
	CreatedVersion bool
	ProductID      int64
	VersionID      int64
	ContentHash    string
}

// AUDIT

// AuditEntry — запись журнала импорта.
type AuditEntry struct {
	TemplateID *int64
	RunID      *string
	Type       domain.LogType
	Payload    map[string]any
}

// INFRASTRUCTURE

type FetchReq struct {
	URL          string
	Cookie       string
	AllowedHosts []string
}

type FetchRes struct {
	URL         string // итоговый URL после редиректов
	StatusCode  int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

type WriteRawMessageReq struct {
	Key     string
	Payload []byte
}

// REPOSITORIES

type UpsertProductRes struct {
	Product   *domain.Product
	Created   bool
	NoChanges bool
}

// MAPPERS

func NewUpsertProductRes(product *domain.Product, created, noChanges bool) *UpsertProductRes {
	return &UpsertProductRes{
		Product:   product,
		Created:   created,
		NoChanges: noChanges,
	}
}

func NewWriteRawMessageReq(key string, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		Key:     key,
		Payload: payload,
	}
}

func NewAuditEntry(templateID int64, runID string, typ domain.LogType, payload map[string]any) *AuditEntry {
	return &AuditEntry{
		TemplateID: &templateID,
		RunID:      &runID,
		Type:       typ,
		Payload:    payload,
	}
}
