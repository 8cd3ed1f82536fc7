package crawl

import (
	"net/url"
	"regexp"
	"strings"
)

// collectLinksJS pulls every anchor href off the current page.
const collectLinksJS = `Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`

var (
	reProductLink    = regexp.MustCompile(`(?i)/(produkt|product|artikel|article|detail|item)s?[-_/]`)
	reCategoryLink   = regexp.MustCompile(`(?i)/(kategorie|category|sortiment|shop)[-_/]?`)
	rePaginationLink = regexp.MustCompile(`(?i)([?&](page|seite|p)=\d+|/(page|seite)/\d+)`)
)

// classifyLinks buckets discovered hrefs into product, category and
// pagination links, restricted to the shop's host and deduplicated.
func classifyLinks(shopURL string, hrefs []string) (products, categories, pagination []string) {
	base, err := url.Parse(shopURL)
	if err != nil {
		return nil, nil, nil
	}
	seen := map[string]bool{}
	for _, href := range hrefs {
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if !strings.EqualFold(u.Host, base.Host) {
			continue
		}
		u.Fragment = ""
		link := u.String()
		if seen[link] {
			continue
		}
		seen[link] = true

		switch {
		case reProductLink.MatchString(u.Path):
			products = append(products, link)
		case rePaginationLink.MatchString(link):
			pagination = append(pagination, link)
		case reCategoryLink.MatchString(u.Path):
			categories = append(categories, link)
		}
	}
	return products, categories, pagination
}
