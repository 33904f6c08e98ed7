// Package extract converts fetched pages and downloaded files into the
// structured fields and plain text the rest of the pipeline consumes.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fundingbot/grantscope/pkg/whttp"
)

// DetailFields is the labeled data scraped off one structured per-item page.
type DetailFields struct {
	Title             string
	Organization      string
	Location          string
	Status            string
	LastFundingAmount *int64
	LastFundingDate   string
	Steward           string
	Summary           string
}

// detailLabelRules maps row-label keywords to field assignments, in the
// order they are tried against each table row.
var detailLabelRules = []struct {
	keys   []string
	assign func(*DetailFields, string)
}{
	{[]string{"organization", "ngo"}, func(d *DetailFields, v string) { d.Organization = v }},
	{[]string{"location", "state"}, func(d *DetailFields, v string) { d.Location = v }},
	{[]string{"status"}, func(d *DetailFields, v string) { d.Status = v }},
	// "date" must come before "funding": labels like "Last Funding Date"
	// carry both keywords.
	{[]string{"date"}, func(d *DetailFields, v string) { d.LastFundingDate = v }},
	{[]string{"amount", "funding"}, func(d *DetailFields, v string) {
		if n, ok := firstNumber(v); ok {
			d.LastFundingAmount = &n
		}
	}},
	{[]string{"chapter", "steward"}, func(d *DetailFields, v string) { d.Steward = v }},
}

var digitRun = regexp.MustCompile(`\d[\d,]*`)

func firstNumber(s string) (int64, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// DetailPage fetches a structured per-item page and scans its table rows for
// labeled fields, plus a short summary from the first substantial paragraphs.
func DetailPage(client *whttp.Client, rawURL string) (*DetailFields, error) {
	res, err := client.Get(rawURL)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != 200 {
		return nil, fmt.Errorf("detail page %s: HTTP %d", rawURL, res.StatusCode)
	}
	return ParseDetailPage(res.Body)
}

// ParseDetailPage is the fetch-free half of DetailPage, separated so it can
// be tested on fixture HTML.
func ParseDetailPage(body string) (*DetailFields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	fields := &DetailFields{}
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		fields.Title = h1
	} else {
		fields.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(strings.TrimSpace(cells.Eq(0).Text()))
		value := strings.TrimSpace(cells.Eq(1).Text())
		if key == "" || value == "" {
			return
		}
		for _, rule := range detailLabelRules {
			for _, k := range rule.keys {
				if strings.Contains(key, k) {
					rule.assign(fields, value)
					return
				}
			}
		}
	})

	var paras []string
	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if len(text) > 50 {
			paras = append(paras, text)
		}
		return len(paras) < 3
	})
	fields.Summary = strings.Join(paras, " ")

	return fields, nil
}

// HTMLText strips script, style and navigation boilerplate and returns the
// page's visible text with collapsed whitespace.
func HTMLText(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, header, footer, aside").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// FileText extracts plain text from a downloaded file. PDFs go through the
// optional TextExtractor capability; textual formats are read directly, with
// HTML stripped of boilerplate. Unknown binary formats yield empty text.
func FileText(path string, pdfText TextExtractor) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err := pdfText.Text(path)
		if err != nil {
			return ""
		}
		return text
	case ".html", ".htm":
		raw, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return HTMLText(string(raw))
	case ".txt", ".csv":
		raw, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return string(raw)
	}
	return ""
}
