// Package discovery извлекает ссылки на карточки товаров из HTML и XML документов.
package discovery

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/DRSN-tech/catalog-importer/internal/domain"
	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"
)

// MaxURLs ограничивает число ссылок, найденных эвристиками grid и regex.
const MaxURLs = 500

var (
	// preferredPath — пути, похожие на серии и бланки.
	preferredPath = regexp.MustCompile(`(?i)(series|blank)`)
	hrefPattern   = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
)

// Run извлекает абсолютные URL кандидатов из документа в соответствии с моделью.
// Некорректные ссылки отбрасываются без ошибки.
func Run(model domain.DiscoveryModel, doc []byte, baseURL, sourceURL string) ([]string, error) {
	const op = "discovery.Run"

	switch model {
	case domain.DiscoveryBatsonListing:
		return batsonListing(doc, baseURL)
	case domain.DiscoverySitemap:
		return sitemap(doc)
	case domain.DiscoveryGrid:
		return grid(doc, baseURL, sourceURL)
	case domain.DiscoveryRegex:
		return regex(doc, baseURL, sourceURL), nil
	default:
		return nil, e.Wrap(op, e.ErrUnknownDiscoveryModel)
	}
}

// sitemap возвращает содержимое всех элементов <loc>.
func sitemap(doc []byte) ([]string, error) {
	root, err := xmlquery.Parse(bytes.NewReader(doc))
	if err != nil {
		return nil, e.Wrap("discovery.sitemap", err)
	}

	var (
		out  []string
		seen = make(map[string]struct{})
	)
	for _, n := range xmlquery.Find(root, "//*[local-name()='loc']") {
		loc := strings.TrimSpace(n.InnerText())
		u, err := url.Parse(loc)
		if err != nil || !u.IsAbs() || u.Host == "" {
			continue
		}
		u.Fragment = ""
		u.RawFragment = ""
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}

	return out, nil
}

// grid собирает ссылки из всех <a href> документа.
func grid(doc []byte, baseURL, sourceURL string) ([]string, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, e.Wrap("discovery.grid", err)
	}

	base := documentBase(d, baseURL)

	var hrefs []string
	d.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})

	return normalizeLinks(hrefs, base, sourceURL), nil
}

// regex ищет href в сырой разметке, в том числе в невалидном HTML.
func regex(doc []byte, baseURL, sourceURL string) []string {
	var hrefs []string
	for _, m := range hrefPattern.FindAllSubmatch(doc, -1) {
		hrefs = append(hrefs, string(m[1]))
	}

	base, _ := url.Parse(baseURL)
	return normalizeLinks(hrefs, base, sourceURL)
}

// documentBase учитывает <base href> документа.
func documentBase(d *goquery.Document, baseURL string) *url.URL {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	href, ok := d.Find("base[href]").First().Attr("href")
	if !ok {
		return base
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return base
	}
	if base == nil {
		return ref
	}
	return base.ResolveReference(ref)
}

// normalizeLinks приводит ссылки к хосту источника, убирает fragment и query,
// удаляет дубликаты, оставляет предпочтительные пути и ограничивает результат MaxURLs.
func normalizeLinks(hrefs []string, base *url.URL, sourceURL string) []string {
	source, err := url.Parse(sourceURL)
	if err != nil || source.Host == "" {
		source = base
	}
	if source == nil || source.Host == "" {
		return nil
	}
	sourceHost := strings.ToLower(source.Hostname())

	var (
		links []string
		seen  = make(map[string]struct{})
	)
	for _, href := range hrefs {
		u, ok := resolve(href, base)
		if !ok {
			continue
		}

		host, ok := sameSite(strings.ToLower(u.Hostname()), sourceHost)
		if !ok {
			continue
		}
		if port := u.Port(); port != "" {
			host += ":" + port
		}
		u.Host = host
		u.RawQuery = ""
		u.ForceQuery = false
		u.Fragment = ""
		u.RawFragment = ""
		if u.Path == "" {
			u.Path = "/"
		}

		key := u.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		links = append(links, key)
	}

	links = preferSeries(links)
	if len(links) > MaxURLs {
		links = links[:MaxURLs]
	}

	return links
}

func resolve(href string, base *url.URL) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil, false
	}
	lower := strings.ToLower(href)
	for _, p := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, p) {
			return nil, false
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}

	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, false
	}

	return u, true
}

// sameSite сопоставляет хост ссылки с хостом источника, сводя варианты с www. к хосту источника.
func sameSite(host, sourceHost string) (string, bool) {
	if host == sourceHost {
		return sourceHost, true
	}
	if strings.TrimPrefix(host, "www.") == strings.TrimPrefix(sourceHost, "www.") {
		return sourceHost, true
	}
	return "", false
}

// preferSeries оставляет только пути серий и бланков, если такие есть.
func preferSeries(links []string) []string {
	var preferred []string
	for _, l := range links {
		u, err := url.Parse(l)
		if err != nil {
			continue
		}
		if preferredPath.MatchString(u.Path) {
			preferred = append(preferred, l)
		}
	}
	if len(preferred) == 0 {
		return links
	}
	return preferred
}
