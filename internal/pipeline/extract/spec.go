// Package extract извлекает поля товара со страницы поставщика по правилам шаблона.
package extract

import (
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
)

// SourceKind — тип источника значения поля.
type SourceKind string

const (
	SourceJSONLD   SourceKind = "jsonld"
	SourceSelector SourceKind = "selector"
	SourceTable    SourceKind = "table"
	SourceSlug     SourceKind = "slug"
	SourceHash     SourceKind = "hash"
	SourceConst    SourceKind = "const"
)

// Source описывает, откуда брать значение.
type Source struct {
	Kind     SourceKind `json:"type"`
	Path     string     `json:"path,omitempty"`     // gjson путь в блоке ld+json
	Selector string     `json:"selector,omitempty"` // CSS селектор
	Attr     string     `json:"attr,omitempty"`     // атрибут вместо текста, "html" для разметки
	Label    string     `json:"label,omitempty"`    // подпись строки таблицы
	Value    string     `json:"value,omitempty"`    // константа
}

// Rule — правило извлечения одного поля. Источники перебираются по порядку до первого значения.
type Rule struct {
	Sources    []Source `json:"sources"`
	Transforms []string `json:"transforms,omitempty"`
	Required   bool     `json:"required,omitempty"`
	Multiple   bool     `json:"multiple,omitempty"`
}

// Spec — правила извлечения для шаблона импорта.
type Spec struct {
	Fields    map[string]Rule `json:"fields"`
	SpecTable string          `json:"specTable,omitempty"` // селектор таблицы характеристик
}

// Имена полей, из которых собирается StagedPart.
const (
	FieldExternalID     = "externalId"
	FieldTitle          = "title"
	FieldPartType       = "partType"
	FieldDescription    = "description"
	FieldImages         = "images"
	FieldPriceMsrp      = "priceMsrp"
	FieldPriceWholesale = "priceWholesale"
	FieldAvailability   = "availability"
)

const defaultSpecTable = "table, dl"

// ParseSpec разбирает JSON правил шаблона. Пустой ввод даёт DefaultSpec.
func ParseSpec(raw []byte) (*Spec, error) {
	const op = "extract.ParseSpec"

	if len(raw) == 0 || string(raw) == "null" || string(raw) == "{}" {
		return DefaultSpec(), nil
	}

	var s Spec
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, e.Wrap(op, fmt.Errorf("%w: %v", e.ErrInvalidTemplateSpec, err))
	}
	if err := s.Validate(); err != nil {
		return nil, e.Wrap(op, err)
	}
	if s.SpecTable == "" {
		s.SpecTable = defaultSpecTable
	}

	return &s, nil
}

// Validate проверяет, что все источники и преобразования известны.
func (s *Spec) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: no fields", e.ErrInvalidTemplateSpec)
	}

	for name, rule := range s.Fields {
		if len(rule.Sources) == 0 {
			return fmt.Errorf("%w: field %q has no sources", e.ErrInvalidTemplateSpec, name)
		}
		for _, src := range rule.Sources {
			if err := src.validate(); err != nil {
				return fmt.Errorf("%w: field %q: %v", e.ErrInvalidTemplateSpec, name, err)
			}
		}
		for _, t := range rule.Transforms {
			if _, ok := transforms[t]; !ok {
				return fmt.Errorf("%w: field %q: unknown transform %q", e.ErrInvalidTemplateSpec, name, t)
			}
		}
	}

	return nil
}

func (s Source) validate() error {
	switch s.Kind {
	case SourceJSONLD:
		if s.Path == "" {
			return fmt.Errorf("jsonld source requires path")
		}
	case SourceSelector:
		if s.Selector == "" {
			return fmt.Errorf("selector source requires selector")
		}
	case SourceTable:
		if s.Label == "" {
			return fmt.Errorf("table source requires label")
		}
	case SourceConst:
		if s.Value == "" {
			return fmt.Errorf("const source requires value")
		}
	case SourceSlug, SourceHash:
	default:
		return fmt.Errorf("unknown source %q", s.Kind)
	}
	return nil
}

// DefaultSpec — правила для типовой карточки товара с разметкой schema.org.
func DefaultSpec() *Spec {
	return &Spec{
		SpecTable: defaultSpecTable,
		Fields: map[string]Rule{
			FieldExternalID: {
				Sources: []Source{
					{Kind: SourceJSONLD, Path: "sku"},
					{Kind: SourceTable, Label: "Model"},
					{Kind: SourceSlug},
				},
				Transforms: []string{"trim", "uppercase"},
				Required:   true,
			},
			FieldTitle: {
				Sources: []Source{
					{Kind: SourceJSONLD, Path: "name"},
					{Kind: SourceSelector, Selector: "h1"},
					{Kind: SourceSelector, Selector: "title"},
				},
				Transforms: []string{"collapse_whitespace"},
				Required:   true,
			},
			FieldPartType: {
				Sources: []Source{
					{Kind: SourceJSONLD, Path: "category"},
					{Kind: SourceConst, Value: "blank"},
				},
				Transforms: []string{"collapse_whitespace"},
			},
			FieldDescription: {
				Sources: []Source{
					{Kind: SourceSelector, Selector: ".product-description", Attr: attrHTML},
					{Kind: SourceJSONLD, Path: "description"},
					{Kind: SourceSelector, Selector: "meta[name='description']", Attr: "content"},
				},
				Transforms: []string{"sanitize_html", "trim"},
			},
			FieldImages: {
				Sources: []Source{
					{Kind: SourceJSONLD, Path: "image"},
					{Kind: SourceSelector, Selector: ".product-gallery img", Attr: "src"},
					{Kind: SourceSelector, Selector: "meta[property='og:image']", Attr: "content"},
				},
				Transforms: []string{"absolutize_url", "dedupe"},
				Multiple:   true,
			},
			FieldPriceMsrp: {
				Sources: []Source{
					{Kind: SourceJSONLD, Path: "offers.price"},
					{Kind: SourceJSONLD, Path: "offers.0.price"},
					{Kind: SourceTable, Label: "MSRP"},
				},
				Transforms: []string{"number"},
			},
			FieldPriceWholesale: {
				Sources: []Source{
					{Kind: SourceSelector, Selector: ".price-wholesale"},
					{Kind: SourceTable, Label: "Dealer Price"},
				},
				Transforms: []string{"number"},
			},
			FieldAvailability: {
				Sources: []Source{
					{Kind: SourceJSONLD, Path: "offers.availability"},
					{Kind: SourceJSONLD, Path: "offers.0.availability"},
					{Kind: SourceSelector, Selector: ".stock-status"},
				},
				Transforms: []string{"availability"},
			},
		},
	}
}
