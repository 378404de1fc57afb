package usecase

import (
	"context"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/taskq"
)

// PageFetcher загружает страницы поставщиков.
type PageFetcher interface {
	Fetch(ctx context.Context, req *FetchReq) (*FetchRes, error)
}

// LoginClient получает cookie авторизованной сессии у внешнего сервиса входа.
type LoginClient interface {
	Login(ctx context.Context, templateID int64) (string, error)
}

// SessionProvider выдаёт cookie для порталов, требующих авторизации.
type SessionProvider interface {
	Enabled() bool
	CookieHeader(ctx context.Context, templateID int64) (string, error)
	Invalidate(ctx context.Context, templateID int64) error
}

// CatalogTarget — внешний каталог, в который публикуются одобренные диффы.
type CatalogTarget interface {
	Create(ctx context.Context, snap *domain.Snapshot) (*TargetProduct, error)
	Update(ctx context.Context, targetID string, snap *domain.Snapshot) (*TargetProduct, error)
	Archive(ctx context.Context, targetID string) (*TargetProduct, error)
	ShopDomain() string
}

// SnapshotStore сохраняет HTML загруженных страниц запуска.
type SnapshotStore interface {
	Save(ctx context.Context, runID, pageURL string, body []byte) (string, error)
	// DiscardRun удаляет снимки запуска в фоне.
	DiscardRun(runID string)
}

type ScopeResolver interface {
	AllowedHostsForTarget(targetID string) []string
}

type TaskQueue interface {
	Enqueue(task taskq.Task) error
	Cancel(id string) bool
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// EventEncoder сериализует запись аудита в сообщение для Kafka.
type EventEncoder interface {
	EncodeAuditEvent(log *domain.ImportLog) ([]byte, error)
}
