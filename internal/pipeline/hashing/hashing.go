// Package hashing вычисляет хэш содержимого нормализованной записи продукта.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

// Input — семантически значимые поля продукта.
// Время загрузки, URL источника, заголовок и изображения в хэш не входят.
type Input struct {
	NormSpecs      map[string]string
	Description    string
	PriceMsrp      *int64
	PriceWholesale *int64
	Availability   string
}

// canonical фиксирует порядок полей; ключи map сериализуются encoding/json в отсортированном виде.
type canonical struct {
	NormSpecs      map[string]string `json:"normSpecs"`
	Description    string            `json:"description"`
	PriceMsrp      *int64            `json:"priceMsrp"`
	PriceWholesale *int64            `json:"priceWholesale"`
	Availability   string            `json:"availability"`
}

// ComputeContentHash возвращает sha256 канонического JSON представления в hex.
func ComputeContentHash(in Input) string {
	specs := make(map[string]string, len(in.NormSpecs))
	for k, v := range in.NormSpecs {
		v = collapse(v)
		if v == "" {
			continue
		}
		specs[strings.ToLower(strings.TrimSpace(k))] = v
	}

	payload, _ := json.Marshal(canonical{
		NormSpecs:      specs,
		Description:    collapse(in.Description),
		PriceMsrp:      in.PriceMsrp,
		PriceWholesale: in.PriceWholesale,
		Availability:   strings.ToLower(strings.TrimSpace(in.Availability)),
	})

	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
