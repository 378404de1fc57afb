package domain

import "time"

type DiffType string

const (
	DiffAdd      DiffType = "add"
	DiffChange   DiffType = "change"
	DiffDelete   DiffType = "delete"
	DiffConflict DiffType = "conflict"
)

// Resolution — решение ревьюера по диффу.
type Resolution string

const (
	ResolutionUnresolved Resolution = "unresolved"
	ResolutionApprove    Resolution = "approve"
	ResolutionReject     Resolution = "reject"
)

// CanTransition: из любого состояния можно одобрить или отклонить, вернуть в unresolved нельзя.
func (r Resolution) CanTransition(to Resolution) bool {
	return to == ResolutionApprove || to == ResolutionReject
}

// ImportDiff — одно вычисленное отличие staged-данных от канонического каталога.
type ImportDiff struct {
	ID          string
	Seq         int64 // порядок вставки, ключ пагинации при публикации
	ImportRunID string
	ExternalID  string
	DiffType    DiffType
	Before      *Snapshot
	After       *Snapshot
	Resolution  Resolution
	Validation  Validation
	CreatedAt   time.Time
}

// Publishable сообщает, может ли дифф быть применён к внешнему каталогу.
func (d *ImportDiff) Publishable() bool {
	return d.Resolution == ResolutionApprove && d.DiffType != DiffConflict
}

// Snapshot — состояние продукта до или после изменения.
type Snapshot struct {
	ExternalID      string            `json:"externalId"`
	URL             string            `json:"url,omitempty"`
	Title           string            `json:"title"`
	PartType        string            `json:"partType,omitempty"`
	Description     string            `json:"description,omitempty"`
	Images          []string          `json:"images,omitempty"`
	NormSpecs       map[string]string `json:"normSpecs,omitempty"`
	PriceMsrp       *int64            `json:"priceMsrp,omitempty"`
	PriceWholesale  *int64            `json:"priceWholesale,omitempty"`
	Availability    string            `json:"availability,omitempty"`
	ContentHash     string            `json:"contentHash"`
	ProductID       *int64            `json:"productId,omitempty"`
	VersionID       *int64            `json:"versionId,omitempty"`
	TargetProductID *string           `json:"targetProductId,omitempty"`
}

// Validation хранит предупреждения, причину конфликта и метаданные публикации.
type Validation struct {
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
	Conflict string       `json:"conflict,omitempty"`
	Publish  *PublishMeta `json:"publish,omitempty"`
}

type PublishMeta struct {
	TargetID    string     `json:"targetId,omitempty"`
	Handle      string     `json:"handle,omitempty"`
	URL         string     `json:"url,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// ApproveTotals — счётчики add-диффов, посчитанные до массового одобрения.
type ApproveTotals struct {
	TotalAdds      int `json:"totalAdds"`
	UnresolvedAdds int `json:"unresolvedAdds"`
}
