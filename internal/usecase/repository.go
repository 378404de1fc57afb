package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
)

// TxManager выполняет fn в одной транзакции БД; вложенные вызовы переиспользуют её.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type TemplateRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.ImportTemplate, error)
	// ClaimSlot атомарно занимает слот шаблона, если он свободен.
	ClaimSlot(ctx context.Context, templateID int64, runID string) (bool, error)
	// ReleaseSlot освобождает слот, только если его занимает runID.
	ReleaseSlot(ctx context.Context, templateID int64, runID string) error
}

type RunRepository interface {
	Create(ctx context.Context, run *domain.ImportRun) error
	GetByID(ctx context.Context, id string) (*domain.ImportRun, error)
	// Transition меняет статус, только если текущий входит в from. summary записывается, если не nil.
	Transition(ctx context.Context, id string, from []domain.RunStatus, to domain.RunStatus, summary *domain.RunSummary) (bool, error)
	// SavePublishTotals записывает итоги публикации в summary независимо от статуса запуска.
	SavePublishTotals(ctx context.Context, id string, totals *domain.PublishTotals) error
	SaveBaseline(ctx context.Context, runID string, products []domain.CanonicalProduct) error
	LoadBaseline(ctx context.Context, runID string) ([]domain.CanonicalProduct, error)
}

type StagedPartRepository interface {
	Insert(ctx context.Context, part *domain.StagedPart) error
	// ListByRun возвращает записи в порядке добавления.
	ListByRun(ctx context.Context, runID string) ([]domain.StagedPart, error)
}

type DiffRepository interface {
	// ReplaceForRun заменяет все диффы запуска.
	ReplaceForRun(ctx context.Context, runID string, diffs []domain.ImportDiff) error
	List(ctx context.Context, runID string, filter DiffFilter) ([]domain.ImportDiff, error)
	CountByType(ctx context.Context, runID string) (map[domain.DiffType]int, error)
	SetResolution(ctx context.Context, runID string, ids []string, resolution domain.Resolution) (int, error)
	AddTotals(ctx context.Context, runID string) (domain.ApproveTotals, error)
	ApproveAdds(ctx context.Context, runID string, all bool) (int, error)
	// CountApproved считает одобренные диффы без конфликтов по типам.
	CountApproved(ctx context.Context, runID string) (map[domain.DiffType]int, error)
	// ListApprovedBatch — keyset-пагинация одобренных диффов по seq.
	ListApprovedBatch(ctx context.Context, runID string, afterSeq int64, limit int) ([]domain.ImportDiff, error)
	UpdateValidation(ctx context.Context, id string, v domain.Validation) error
}

// CatalogRepository читает канонический каталог.
type CatalogRepository interface {
	ListCanonical(ctx context.Context, supplierID string) ([]domain.CanonicalProduct, error)
}

type SupplierRepository interface {
	Ensure(ctx context.Context, supplier *domain.Supplier) error
}

type ProductRepository interface {
	Upsert(ctx context.Context, product *domain.Product) (*UpsertProductRes, error)
	GetBySKU(ctx context.Context, supplierID, sku string) (*domain.Product, error)
	SetLatestVersion(ctx context.Context, productID, versionID int64) error
	MarkPublished(ctx context.Context, productID int64, targetProductID string) error
	MarkArchived(ctx context.Context, productID int64) error
}

type VersionRepository interface {
	// FindByHash возвращает nil без ошибки, если версии с таким хэшем нет.
	FindByHash(ctx context.Context, productID int64, contentHash string) (*domain.ProductVersion, error)
	// Insert возвращает false, если версия с таким хэшем уже существовала.
	Insert(ctx context.Context, version *domain.ProductVersion) (*domain.ProductVersion, bool, error)
}

type SourceRepository interface {
	Upsert(ctx context.Context, source *domain.ProductSource) (*domain.ProductSource, error)
}

type ImportLogRepository interface {
	Create(ctx context.Context, log *domain.ImportLog) (*domain.ImportLog, error)
	ListByRun(ctx context.Context, runID string, limit int) ([]domain.ImportLog, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) (*domain.OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
}

// ObjectRepository хранит объекты в S3-совместимом хранилище.
type ObjectRepository interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// SessionCache кэширует cookie авторизованной сессии по шаблону.
type SessionCache interface {
	Get(ctx context.Context, templateID int64) (string, bool, error)
	Set(ctx context.Context, templateID int64, cookie string, ttl time.Duration) error
	Delete(ctx context.Context, templateID int64) error
}
