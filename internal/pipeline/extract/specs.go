package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// Pair — строка таблицы характеристик.
type Pair struct {
	Label string
	Value string
}

// specAliases сводит подписи характеристик к каноническим ключам.
var specAliases = map[string]string{
	"length":           "length_in",
	"length_in":        "length_in",
	"length_inches":    "length_in",
	"rod_length":       "length_in",
	"blank_length":     "length_in",
	"pieces":           "pieces",
	"piece":            "pieces",
	"pcs":              "pieces",
	"sections":         "pieces",
	"number_of_pieces": "pieces",
	"no_of_pieces":     "pieces",
	"action":           "action",
	"power":            "power",
	"material":         "material",
	"blank_material":   "material",
	"line_weight":      "line_weight",
	"line_wt":          "line_weight",
	"line":             "line_weight",
	"lure_weight":      "lure_weight",
	"lure_wt":          "lure_weight",
	"lure":             "lure_weight",
	"weight":           "weight",
	"tip_diameter":     "tip_diameter",
	"tip_od":           "tip_diameter",
	"butt_diameter":    "butt_diameter",
	"butt_od":          "butt_diameter",
	"color":            "color",
	"finish":           "finish",
}

var (
	nonKeyChars = regexp.MustCompile(`[^a-z0-9]+`)
	firstInt    = regexp.MustCompile(`\d+`)
)

// SpecTable собирает пары подпись/значение из таблиц и списков определений внутри selector.
// При повторе подписи побеждает первое значение.
func SpecTable(doc *goquery.Document, selector string) map[string]string {
	if selector == "" {
		selector = defaultSpecTable
	}

	out := make(map[string]string)
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		for _, row := range tableRows(s) {
			if _, ok := out[row.Label]; !ok {
				out[row.Label] = row.Value
			}
		}
	})
	return out
}

func tableRows(sel *goquery.Selection) []Pair {
	var rows []Pair
	add := func(label, value string) {
		label = strings.TrimRight(collapseWhitespace(label), ": ")
		value = collapseWhitespace(value)
		if label != "" && value != "" {
			rows = append(rows, Pair{Label: label, Value: value})
		}
	}

	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() >= 2 {
			add(cells.Eq(0).Text(), cells.Eq(1).Text())
		}
	})
	sel.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		add(dt.Text(), dt.NextFiltered("dd").Text())
	})

	return rows
}

// NormalizeSpecs переводит сырые характеристики в канонические ключи и единицы.
func NormalizeSpecs(raw map[string]string) map[string]string {
	labels := make([]string, 0, len(raw))
	for label := range raw {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make(map[string]string, len(raw))
	for _, label := range labels {
		value := raw[label]
		key := specKey(label)
		if key == "" {
			continue
		}
		if alias, ok := specAliases[key]; ok {
			key = alias
		}
		if _, exists := out[key]; exists && key != specKey(label) {
			// точное совпадение ключа важнее синонима, среди синонимов побеждает первый
			continue
		}

		if v := normalizeSpecValue(key, value); v != "" {
			out[key] = v
		}
	}
	return out
}

func normalizeSpecValue(key, value string) string {
	value = collapseWhitespace(value)
	switch key {
	case "length_in":
		if d, ok := ParseInches(value); ok {
			return d.String()
		}
	case "pieces":
		if m := firstInt.FindString(value); m != "" {
			return strings.TrimLeft(m, "0")
		}
	}
	return value
}

func specKey(label string) string {
	k := nonKeyChars.ReplaceAllString(strings.ToLower(norm.NFKC.String(label)), "_")
	return strings.Trim(k, "_")
}

func labelKey(label string) string {
	return strings.ToLower(strings.TrimRight(collapseWhitespace(label), ": "))
}
