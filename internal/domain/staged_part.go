package domain

import (
	"strings"
	"time"
)

// StagedPart — извлечённая со страницы поставщика запись в рамках одного запуска.
type StagedPart struct {
	RunID          string
	Seq            int
	SupplierID     string
	ExternalID     string
	URL            string
	Title          string
	PartType       string
	Description    string
	Images         []string
	RawSpecs       map[string]string
	NormSpecs      map[string]string
	PriceMsrp      *int64
	PriceWholesale *int64
	Availability   string
	FetchedAt      time.Time
	ContentHash    string
	Warnings       []string
}

// HasValidIdentity сообщает, пригодна ли запись для сопоставления с каталогом.
func (p *StagedPart) HasValidIdentity() bool {
	return strings.TrimSpace(p.SupplierID) != "" && strings.TrimSpace(p.ExternalID) != ""
}

// Snapshot возвращает снимок записи для диффа.
func (p *StagedPart) Snapshot() *Snapshot {
	return &Snapshot{
		ExternalID:     p.ExternalID,
		URL:            p.URL,
		Title:          p.Title,
		PartType:       p.PartType,
		Description:    p.Description,
		Images:         p.Images,
		NormSpecs:      p.NormSpecs,
		PriceMsrp:      p.PriceMsrp,
		PriceWholesale: p.PriceWholesale,
		Availability:   p.Availability,
		ContentHash:    p.ContentHash,
	}
}
