package domain

import "time"

// DiscoveryModel — стратегия поиска ссылок на карточки товаров.
type DiscoveryModel string

const (
	DiscoveryBatsonListing DiscoveryModel = "batson-listing"
	DiscoverySitemap       DiscoveryModel = "sitemap"
	DiscoveryGrid          DiscoveryModel = "grid"
	DiscoveryRegex         DiscoveryModel = "regex"
)

// Valid сообщает, известна ли модель.
func (m DiscoveryModel) Valid() bool {
	switch m {
	case DiscoveryBatsonListing, DiscoverySitemap, DiscoveryGrid, DiscoveryRegex:
		return true
	}
	return false
}

// ImportTemplate хранит настройки импорта поставщика и слот активного запуска.
type ImportTemplate struct {
	ID             int64
	Name           string
	SupplierID     string
	TargetID       string
	SeedURLs       []string
	DiscoveryModel DiscoveryModel
	Spec           []byte // правила извлечения полей в JSON
	RequiresAuth   bool
	PreparingRunID *string
	CreatedAt      time.Time
}

// HasActiveRun сообщает, занят ли слот шаблона.
func (t *ImportTemplate) HasActiveRun() bool {
	return t.PreparingRunID != nil && *t.PreparingRunID != ""
}
