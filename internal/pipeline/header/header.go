// Package header отличает страницы-заголовки серий от карточек реальных товаров.
package header

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Signal — имя признака страницы-заголовка.
type Signal string

const (
	SignalSlugMatch      Signal = "slug-match"
	SignalNoMultiDigit   Signal = "no-multidigit"
	SignalFewCoreSpecs   Signal = "few-core-specs"
	SignalAggregateToken Signal = "aggregate-token"
)

// CoreSpecKeys — ключи характеристик, которые есть у настоящих бланков.
var CoreSpecKeys = []string{"length_in", "pieces", "action", "power", "material"}

// minCoreSpecs — при таком числе заполненных ключевых характеристик запись считается товаром.
const minCoreSpecs = 2

var (
	multiDigit     = regexp.MustCompile(`\d{2,}`)
	aggregateToken = regexp.MustCompile(`(?i)(series|twitch|surf|glass)`)
	nonSlugChars   = regexp.MustCompile(`[^A-Z0-9-]+`)
	pageExtension  = regexp.MustCompile(`(?i)\.(html?|php)$`)
)

// Input — данные записи для классификации.
type Input struct {
	URL        string
	ExternalID string
	Title      string
	RawSpecs   map[string]string
}

// Result — итог классификации. Reason перечисляет сработавшие признаки через запятую.
type Result struct {
	IsHeader bool
	Reason   string
	Signals  []Signal
}

type predicate struct {
	signal Signal
	test   func(Input) bool
}

// predicates должны выполниться все, чтобы запись была признана заголовком.
var predicates = []predicate{
	{SignalSlugMatch, slugMatches},
	{SignalNoMultiDigit, hasNoMultiDigit},
	{SignalFewCoreSpecs, hasFewCoreSpecs},
	{SignalAggregateToken, hasAggregateToken},
}

// DetectSeriesHeader классифицирует запись как заголовок серии, если выполнены все признаки.
func DetectSeriesHeader(pageURL, externalID, title string, rawSpecs map[string]string) Result {
	return Detect(Input{URL: pageURL, ExternalID: externalID, Title: title, RawSpecs: rawSpecs})
}

func Detect(in Input) Result {
	var fired []Signal
	for _, p := range predicates {
		if p.test(in) {
			fired = append(fired, p.signal)
		}
	}

	reasons := make([]string, len(fired))
	for i, s := range fired {
		reasons[i] = string(s)
	}

	return Result{
		IsHeader: len(fired) == len(predicates),
		Reason:   strings.Join(reasons, ","),
		Signals:  fired,
	}
}

// NormalizeSlug приводит строку к верхнему регистру, заменяет недопустимые символы на дефис
// и отбрасывает расширение страницы.
func NormalizeSlug(s string) string {
	s = pageExtension.ReplaceAllString(strings.TrimSpace(s), "")
	s = nonSlugChars.ReplaceAllString(strings.ToUpper(s), "-")
	return strings.Trim(s, "-")
}

func slugMatches(in Input) bool {
	u, err := url.Parse(in.URL)
	if err != nil {
		return false
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return false
	}
	last := path.Base(p)
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}

	id := NormalizeSlug(in.ExternalID)
	return id != "" && NormalizeSlug(last) == id
}

func hasNoMultiDigit(in Input) bool {
	return !multiDigit.MatchString(in.ExternalID)
}

func hasFewCoreSpecs(in Input) bool {
	present := 0
	for _, k := range CoreSpecKeys {
		if strings.TrimSpace(in.RawSpecs[k]) != "" {
			present++
		}
	}
	return present < minCoreSpecs
}

func hasAggregateToken(in Input) bool {
	return aggregateToken.MatchString(in.Title)
}
