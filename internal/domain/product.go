package domain

import "time"

// ProductStatus — статус карточки продукта в каноническом каталоге.
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "DRAFT"
	ProductStatusReady     ProductStatus = "READY"
	ProductStatusPublished ProductStatus = "PUBLISHED"
)

// Product описывает продукт канонического каталога.
// Пара (SupplierID, SKU) уникальна.
type Product struct {
	ID              int64
	SupplierID      string
	SKU             string
	Title           string
	Type            string
	Status          ProductStatus
	LatestVersionID *int64
	TargetProductID *string // идентификатор товара во внешнем каталоге после публикации
	IsArchived      bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

func NewProduct(supplierID, sku, title, productType string) *Product {
	return &Product{
		SupplierID: supplierID,
		SKU:        sku,
		Title:      title,
		Type:       productType,
		Status:     ProductStatusDraft,
	}
}

// ProductVersion — неизменяемый снимок содержимого продукта.
// Пара (ProductID, ContentHash) уникальна.
type ProductVersion struct {
	ID             int64
	ProductID      int64
	ContentHash    string
	RawSpecs       map[string]string
	NormSpecs      map[string]string
	Description    string
	Images         []string
	PriceMsrp      *int64 // Цена хранится в центах
	PriceWholesale *int64
	Availability   string
	FetchedAt      time.Time
	CreatedAt      time.Time
}

// ProductSource — источник, с которого был получен продукт.
type ProductSource struct {
	ID         int64
	SupplierID string
	URL        string
	TemplateID *int64
	ProductID  int64
	LastSeenAt time.Time
}

type Supplier struct {
	ID   string
	Name string
}

// CanonicalProduct — продукт вместе с последней версией, используется как база для сравнения.
type CanonicalProduct struct {
	Product Product
	Latest  *ProductVersion
}
