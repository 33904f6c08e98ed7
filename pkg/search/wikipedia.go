package search

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// NewWikipedia is the always-available knowledge-base provider: no key, no
// quota, lowest priority among the real backends. A hit on an organization's
// page is mined for an "official website" reference.
func NewWikipedia() *Provider {
	p := &Provider{
		Name:     "wikipedia",
		Priority: 9,
		Enabled:  true,
		Endpoint: "https://en.wikipedia.org",
	}
	p.search = func(c *whttp.Client, p *Provider, query string) (string, error) {
		name := orgNameFromQuery(query)
		for _, term := range []string{name, name + " Foundation", name + " Fund"} {
			res, err := c.Get(p.Endpoint + "/api/rest_v1/page/summary/" + url.PathEscape(term))
			if err != nil || res.StatusCode != 200 {
				continue
			}
			if gjson.Get(res.Body, "type").String() == "disambiguation" {
				continue
			}
			pageURL := gjson.Get(res.Body, "content_urls.desktop.page").String()
			if pageURL == "" {
				continue
			}
			if site := websiteFromArticle(c, pageURL); site != "" {
				return site, nil
			}
		}
		return "", nil
	}
	return p
}

// orgNameFromQuery undoes the query phrasings FoundationWebsite builds, so
// the encyclopedia is searched by organization name alone.
func orgNameFromQuery(query string) string {
	name := strings.ReplaceAll(query, `"`, "")
	for _, suffix := range []string{" foundation website", " foundation official site", " foundation .org"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.TrimSpace(name)
}

// websiteFromArticle pulls candidate official-site URLs out of an article's
// infobox "Website" row and its external-links section.
func websiteFromArticle(c *whttp.Client, articleURL string) string {
	res, err := c.Get(articleURL)
	if err != nil || res.StatusCode != 200 {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
	if err != nil {
		return ""
	}

	var candidates []string

	doc.Find("table.infobox tr").Each(func(_ int, row *goquery.Selection) {
		header := strings.ToLower(row.Find("th").Text())
		if !strings.Contains(header, "website") {
			return
		}
		if href, ok := row.Find("a[href]").First().Attr("href"); ok && strings.HasPrefix(href, "http") {
			candidates = append(candidates, href)
		}
	})

	doc.Find("span#External_links").Each(func(_ int, span *goquery.Selection) {
		span.Parent().NextAllFiltered("ul").First().Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if href, ok := a.Attr("href"); ok && strings.HasPrefix(href, "http") {
				candidates = append(candidates, href)
			}
		})
	})

	for _, u := range candidates {
		if LooksLikeFoundation(u) {
			return u
		}
	}
	if len(candidates) > 0 {
		utils.Log.Debugf("wikipedia article had %d external links, none foundation-like", len(candidates))
	}
	return ""
}
