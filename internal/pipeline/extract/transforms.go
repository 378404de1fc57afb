package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Значения поля availability после нормализации.
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityPreorder   = "preorder"
	AvailabilityUnknown    = "unknown"
)

type transformFunc func(base *url.URL, values []string) ([]string, []string)

var transforms = map[string]transformFunc{
	"trim":                each(strings.TrimSpace),
	"collapse_whitespace": each(collapseWhitespace),
	"uppercase":           each(strings.ToUpper),
	"number":              toNumber,
	"sanitize_html":       each(SanitizeHTML),
	"absolutize_url":      absolutizeURL,
	"dedupe":              dedupe,
	"unit_inches":         unitInches,
	"availability":        each(NormalizeAvailability),
}

// applyTransforms применяет преобразования по порядку и отбрасывает пустые значения.
func applyTransforms(base *url.URL, names []string, values []string) ([]string, []string) {
	var warnings []string
	for _, name := range names {
		fn, ok := transforms[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown transform %q", name))
			continue
		}

		var ws []string
		values, ws = fn(base, values)
		warnings = append(warnings, ws...)
		values = dropEmpty(values)
	}
	return values, warnings
}

func each(fn func(string) string) transformFunc {
	return func(_ *url.URL, values []string) ([]string, []string) {
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = fn(v)
		}
		return out, nil
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

var numberPattern = regexp.MustCompile(`[-+]?\d[\d,]*(?:\.\d+)?`)

// toNumber выделяет первое число из строки, например "$1,299.00 USD" -> "1299".
func toNumber(_ *url.URL, values []string) ([]string, []string) {
	var (
		out      []string
		warnings []string
	)
	for _, v := range values {
		m := numberPattern.FindString(v)
		d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
		if m == "" || err != nil {
			warnings = append(warnings, fmt.Sprintf("not a number: %q", strings.TrimSpace(v)))
			continue
		}
		out = append(out, d.String())
	}
	return out, warnings
}

var (
	unsafeElements = "script, style, iframe, object, embed, noscript, form, input, button"
	allowedAttrs   = map[string]bool{"href": true, "src": true, "alt": true, "title": true}
)

// SanitizeHTML удаляет активное содержимое и все атрибуты, кроме ссылок и подписей.
// Повторное применение к уже очищенной разметке её не меняет.
func SanitizeHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return ""
	}

	doc.Find(unsafeElements).Remove()
	for _, n := range doc.Find("body *").Nodes {
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if !allowedAttrs[strings.ToLower(a.Key)] {
				continue
			}
			if strings.HasPrefix(strings.ToLower(strings.TrimSpace(a.Val)), "javascript:") {
				continue
			}
			kept = append(kept, a)
		}
		n.Attr = kept
	}

	out, err := doc.Find("body").Html()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func absolutizeURL(base *url.URL, values []string) ([]string, []string) {
	var (
		out      []string
		warnings []string
	)
	for _, v := range values {
		ref, err := url.Parse(strings.TrimSpace(v))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("bad url: %q", v))
			continue
		}
		if base != nil {
			ref = base.ResolveReference(ref)
		}
		if ref.Scheme != "http" && ref.Scheme != "https" {
			warnings = append(warnings, fmt.Sprintf("bad url: %q", v))
			continue
		}
		out = append(out, ref.String())
	}
	return out, warnings
}

func dedupe(_ *url.URL, values []string) ([]string, []string) {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func unitInches(_ *url.URL, values []string) ([]string, []string) {
	var (
		out      []string
		warnings []string
	)
	for _, v := range values {
		d, ok := ParseInches(v)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("not a length: %q", strings.TrimSpace(v)))
			continue
		}
		out = append(out, d.String())
	}
	return out, warnings
}

var (
	feetInches = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:'|’|ft\b|feet|foot)\s*(?:(\d+(?:\.\d+)?)\s*(?:"|”|''|in\b|inch(?:es)?)?)?`)
	centimetre = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*cm\b`)
	metre      = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*m\b`)
	inches     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:"|”|''|in\b|inch(?:es)?)?`)

	inchesPerFoot = decimal.NewFromInt(12)
	cmPerInch     = decimal.RequireFromString("2.54")
)

// ParseInches переводит длину в дюймы: 7'6", 7 ft, 84 in, 213 cm, 2.13 m или просто 84.
func ParseInches(s string) (decimal.Decimal, bool) {
	s = norm.NFKC.String(strings.TrimSpace(s))

	if strings.Contains(s, "''") {
		// '' обозначает дюймы, а не футы
		s = strings.ReplaceAll(s, "''", `"`)
	}

	if m := feetInches.FindStringSubmatch(s); m != nil {
		total := decimal.RequireFromString(m[1]).Mul(inchesPerFoot)
		if m[2] != "" {
			total = total.Add(decimal.RequireFromString(m[2]))
		}
		return total.Round(2), true
	}
	if m := centimetre.FindStringSubmatch(s); m != nil {
		return decimal.RequireFromString(m[1]).Div(cmPerInch).Round(2), true
	}
	if m := metre.FindStringSubmatch(s); m != nil {
		return decimal.RequireFromString(m[1]).Mul(decimal.NewFromInt(100)).Div(cmPerInch).Round(2), true
	}
	if m := inches.FindStringSubmatch(s); m != nil {
		return decimal.RequireFromString(m[1]).Round(2), true
	}
	return decimal.Zero, false
}

// NormalizeAvailability сводит текст наличия и значения schema.org к фиксированному набору.
func NormalizeAvailability(s string) string {
	v := strings.ToLower(collapseWhitespace(s))
	v = strings.TrimPrefix(strings.TrimPrefix(v, "https://schema.org/"), "http://schema.org/")
	compact := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(v)

	switch {
	case compact == "":
		return ""
	case strings.Contains(compact, "preorder"), strings.Contains(compact, "backorder"):
		return AvailabilityPreorder
	case strings.Contains(compact, "outofstock"), strings.Contains(compact, "soldout"),
		strings.Contains(compact, "unavailable"), strings.Contains(compact, "discontinued"):
		return AvailabilityOutOfStock
	case strings.Contains(compact, "instock"), strings.Contains(compact, "available"),
		strings.Contains(compact, "limitedavailability"):
		return AvailabilityInStock
	default:
		return AvailabilityUnknown
	}
}

func dropEmpty(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
