package discovery

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/DRSN-tech/catalog-importer/pkg/e"
	"github.com/PuerkitoBio/goquery"
)

// listingSelectors — плитки товаров на страницах каталога Batson.
var listingSelectors = []string{
	".product-tile a[href]",
	".product-item a[href]",
	".productListing a[href]",
	"a[href*='/products/']",
}

// batsonListing извлекает ссылки на товары со страниц списков Batson.
// Хост не ограничивается: ссылки плиток могут вести на CDN-зеркало каталога.
func batsonListing(doc []byte, baseURL string) ([]string, error) {
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(doc))
	if err != nil {
		return nil, e.Wrap("discovery.batsonListing", err)
	}

	base := documentBase(d, baseURL)

	var (
		out  []string
		seen = make(map[string]struct{})
	)
	d.Find(strings.Join(listingSelectors, ", ")).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, ok := resolve(href, base)
		if !ok || !isProductPath(u) {
			return
		}
		u.Fragment = ""
		u.RawFragment = ""
		key := u.String()
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	})

	return out, nil
}

func isProductPath(u *url.URL) bool {
	p := strings.TrimSuffix(u.Path, "/")
	// ссылки на фильтры и пагинацию листинга
	return p != "" && !strings.HasPrefix(p, "/collections")
}
