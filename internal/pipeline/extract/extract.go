package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// attrHTML — псевдоатрибут для получения внутреннего HTML элемента.
const attrHTML = "html"

// Field — извлечённое значение поля. Пустой Values означает отсутствие значения.
type Field struct {
	Values   []string `json:"values"`
	Source   string   `json:"source,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// String возвращает первое значение или пустую строку.
func (f Field) String() string {
	if len(f.Values) == 0 {
		return ""
	}
	return f.Values[0]
}

// Value возвращает nil, строку или список в зависимости от правила.
func (f Field) Value(multiple bool) any {
	switch {
	case len(f.Values) == 0:
		return nil
	case multiple:
		return f.Values
	default:
		return f.Values[0]
	}
}

// Result — итог извлечения одной страницы.
type Result struct {
	Fields          map[string]Field
	RequiredMissing []string
	RawSpecs        map[string]string
	NormSpecs       map[string]string
}

// String возвращает значение поля name.
func (r *Result) String(name string) string {
	return r.Fields[name].String()
}

func (r *Result) Strings(name string) []string {
	return r.Fields[name].Values
}

// Warnings собирает предупреждения всех полей и отсутствующие обязательные поля.
func (r *Result) Warnings() []string {
	var out []string
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, w := range r.Fields[name].Warnings {
			out = append(out, name+": "+w)
		}
	}
	for _, name := range r.RequiredMissing {
		out = append(out, "required field missing: "+name)
	}
	return out
}

// page — разобранная страница и данные, общие для всех правил.
type page struct {
	doc    *goquery.Document
	url    *url.URL
	rawURL string
	ldJSON []string
	table  []Pair
}

// Extract применяет правила spec к HTML страницы pageURL.
// Отсутствие необязательного поля не считается ошибкой. Пустое обязательное поле попадает в RequiredMissing.
func Extract(html []byte, pageURL string, spec *Spec) (*Result, error) {
	const op = "extract.Extract"

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if spec == nil {
		spec = DefaultSpec()
	}

	p := &page{
		doc:    doc,
		url:    u,
		rawURL: pageURL,
		ldJSON: jsonLDBlocks(doc),
		table:  tableRows(doc.Selection),
	}

	res := &Result{Fields: make(map[string]Field, len(spec.Fields))}
	for name, rule := range spec.Fields {
		f := p.field(rule)
		if len(f.Values) == 0 && rule.Required {
			res.RequiredMissing = append(res.RequiredMissing, name)
		}
		res.Fields[name] = f
	}
	sort.Strings(res.RequiredMissing)

	res.RawSpecs = SpecTable(doc, spec.SpecTable)
	res.NormSpecs = NormalizeSpecs(res.RawSpecs)

	return res, nil
}

func (p *page) field(rule Rule) Field {
	var warnings []string
	for _, src := range rule.Sources {
		values := p.lookup(src, rule.Multiple)
		if len(values) == 0 {
			continue
		}

		values, ws := applyTransforms(p.url, rule.Transforms, values)
		warnings = append(warnings, ws...)
		if len(values) == 0 {
			continue
		}
		if !rule.Multiple {
			values = values[:1]
		}

		return Field{Values: values, Source: string(src.Kind), Warnings: warnings}
	}

	return Field{Warnings: warnings}
}

func (p *page) lookup(src Source, multiple bool) []string {
	switch src.Kind {
	case SourceJSONLD:
		return p.fromJSONLD(src.Path)
	case SourceSelector:
		return p.fromSelector(src.Selector, src.Attr, multiple)
	case SourceTable:
		return p.fromTable(src.Label)
	case SourceSlug:
		return nonEmpty(slug(p.url))
	case SourceHash:
		sum := sha256.Sum256([]byte(p.rawURL))
		return []string{hex.EncodeToString(sum[:8])}
	case SourceConst:
		return nonEmpty(src.Value)
	}
	return nil
}

func (p *page) fromJSONLD(query string) []string {
	for _, block := range p.ldJSON {
		r := gjson.Get(block, query)
		if !r.Exists() {
			continue
		}

		var out []string
		if r.IsArray() {
			for _, item := range r.Array() {
				out = append(out, resultString(item)...)
			}
		} else {
			out = resultString(r)
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// resultString достаёт строку из значения, в том числе из объектов ImageObject/Brand.
func resultString(r gjson.Result) []string {
	if r.IsObject() {
		for _, key := range []string{"url", "name", "@id"} {
			if v := r.Get(key); v.Exists() {
				return nonEmpty(v.String())
			}
		}
		return nil
	}
	return nonEmpty(r.String())
}

func (p *page) fromSelector(selector, attr string, multiple bool) []string {
	var out []string
	p.doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v string
		switch attr {
		case "":
			v = s.Text()
		case attrHTML:
			v, _ = s.Html()
		default:
			v, _ = s.Attr(attr)
		}
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
		return multiple || len(out) == 0
	})
	return out
}

func (p *page) fromTable(label string) []string {
	key := labelKey(label)
	for _, row := range p.table {
		if labelKey(row.Label) == key {
			return nonEmpty(row.Value)
		}
	}
	return nil
}

// jsonLDBlocks возвращает JSON объекты из блоков ld+json, товары первыми.
func jsonLDBlocks(doc *goquery.Document) []string {
	var products, others []string
	add := func(r gjson.Result) {
		if isProductType(r.Get("@type")) {
			products = append(products, r.Raw)
		} else {
			others = append(others, r.Raw)
		}
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if !gjson.Valid(raw) {
			return
		}

		root := gjson.Parse(raw)
		var items []gjson.Result
		switch {
		case root.IsArray():
			items = root.Array()
		case root.Get("@graph").IsArray():
			items = root.Get("@graph").Array()
		default:
			items = []gjson.Result{root}
		}

		for _, item := range items {
			if item.IsObject() {
				add(item)
			}
		}
	})

	return append(products, others...)
}

func isProductType(t gjson.Result) bool {
	if t.IsArray() {
		for _, v := range t.Array() {
			if strings.EqualFold(v.String(), "Product") {
				return true
			}
		}
		return false
	}
	return strings.EqualFold(t.String(), "Product")
}

// slug возвращает последний сегмент пути без расширения.
func slug(u *url.URL) string {
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return ""
	}
	last := path.Base(p)
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}
	if ext := path.Ext(last); ext != "" {
		switch strings.ToLower(ext) {
		case ".html", ".htm", ".php", ".aspx":
			last = strings.TrimSuffix(last, ext)
		}
	}
	return last
}

func nonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}
