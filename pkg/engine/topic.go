package engine

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/emit"
	"github.com/fundingbot/grantscope/pkg/extract"
	"github.com/fundingbot/grantscope/pkg/finance"
	"github.com/fundingbot/grantscope/pkg/storage"
	"github.com/fundingbot/grantscope/pkg/themes"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// TopicConfig parameterizes the topic-restricted crawler, which scrapes a
// flat list of search/catalog pages rather than walking a site.
type TopicConfig struct {
	OutDir string

	// MaxBudget is the inclusive USD ceiling. Items with no detected
	// amount are kept; items above the ceiling are dropped.
	MaxBudget float64

	// Rate is INR per USD for normalization.
	Rate float64

	MaxPages int
	Delay    time.Duration
	Timeout  time.Duration

	// SearchURLs are the result/catalog pages to scrape for document
	// cards. Defaults target the agency document repositories the tool
	// was built around.
	SearchURLs []string

	SourceLabel string
	Sets        []themes.Set

	Uploader       emit.Uploader
	UploadFolderID string
	PDFText        extract.TextExtractor
	Archive        *storage.DB
	Client         *whttp.Client
}

// TopicRunResult extends the base result with per-theme statistics.
type TopicRunResult struct {
	emit.RunResult
	TotalFound  int
	PerTheme    map[string]int
	UnderBudget int
}

// DefaultTopicConfig targets the public USAID document repositories.
func DefaultTopicConfig() TopicConfig {
	return TopicConfig{
		OutDir:    "./topic_out",
		MaxBudget: 100_000,
		Rate:      83.0,
		MaxPages:  200,
		Delay:     1 * time.Second,
		Timeout:   30 * time.Second,
		SearchURLs: []string{
			"https://decfinder.devme.ai/search?q=education",
			"https://decfinder.devme.ai/search?q=youth",
			"https://decfinder.devme.ai/search?q=primary+education",
			"https://decfinder.devme.ai/search?q=vocational+training",
			"https://decfinder.devme.ai/search?q=children",
			"https://data.usaid.gov/",
			"https://catalog.data.gov/dataset?organization=usaid-gov",
		},
		SourceLabel: "USAID",
	}
}

func (c *TopicConfig) fillDefaults() {
	def := DefaultTopicConfig()
	if c.OutDir == "" {
		c.OutDir = def.OutDir
	}
	if c.MaxBudget <= 0 {
		c.MaxBudget = def.MaxBudget
	}
	if c.Rate <= 0 {
		c.Rate = def.Rate
	}
	if c.MaxPages <= 0 {
		c.MaxPages = def.MaxPages
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if len(c.SearchURLs) == 0 {
		c.SearchURLs = def.SearchURLs
	}
	if c.SourceLabel == "" {
		c.SourceLabel = def.SourceLabel
	}
	if len(c.Sets) == 0 {
		c.Sets = themes.DefaultSets()
	}
	if c.PDFText == nil {
		c.PDFText = extract.NewPDFExtractor()
	}
	if c.Client == nil {
		c.Client = whttp.NewClient(c.Timeout, c.Delay)
	}
}

// docInfo is what a search-result card yields before extraction.
type docInfo struct {
	Title       string
	Link        string
	Description string
	Year        int
}

// RunTopics executes the topic-restricted pipeline: scrape result cards off
// each search page, combine card text with any downloadable document text,
// then keep only items that clear a theme threshold and the budget ceiling.
func RunTopics(ctx context.Context, cfg TopicConfig) (*TopicRunResult, error) {
	cfg.fillDefaults()

	downloadDir := filepath.Join(cfg.OutDir, "downloads")
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return &TopicRunResult{}, fmt.Errorf("output directory unwritable: %w", err)
	}

	utils.Log.Info("starting topic-restricted crawl")
	docs := collectDocInfos(ctx, cfg)
	utils.Log.Infof("found %d unique documents across %d sources", len(docs), len(cfg.SearchURLs))

	result := &TopicRunResult{TotalFound: len(docs), PerTheme: make(map[string]int)}
	var records []emit.ProposalRecord

	for i, doc := range docs {
		utils.Log.Infof("processing document %d/%d: %s", i+1, len(docs), doc.Title)

		combined := doc.Title + " " + doc.Description
		filePath := ""
		if strings.HasSuffix(strings.ToLower(doc.Link), ".pdf") {
			if p, err := cfg.Client.Download(doc.Link, downloadDir); err == nil {
				filePath = p
				combined += " " + extract.FileText(p, cfg.PDFText)
			} else {
				utils.Log.Debugf("download failed for %s: %v", doc.Link, err)
			}
		}

		fin := finance.Extract(combined, cfg.Rate)
		score := themes.Analyze(combined, cfg.Sets)
		if !score.Relevant() {
			continue
		}
		if fin.USD != nil && *fin.USD > cfg.MaxBudget {
			continue
		}

		year := doc.Year
		if year == 0 {
			year = finance.GuessYear(combined)
		}
		currency := ""
		if fin.USD != nil {
			currency = "USD"
		}

		notes := "type=" + extract.DocType(combined, doc.Link) + "; " + fin.Note
		if doc.Description != "" {
			notes += "; " + truncate(doc.Description, 200)
		}

		title := doc.Title
		if title == "" {
			title = cfg.SourceLabel + " Document"
		}

		records = append(records, emit.ProposalRecord{
			Title:         title,
			Year:          year,
			FundingSource: cfg.SourceLabel,
			Currency:      currency,
			AmountUSD:     fin.USD,
			AmountINR:     fin.INR,
			Link:          doc.Link,
			FilePath:      filePath,
			Themes:        score.TagString(),
			Notes:         notes,
		})

		for _, tag := range score.Tags {
			result.PerTheme[tag]++
		}
		if fin.USD != nil {
			result.UnderBudget++
		}
	}

	utils.Log.Infof("%d matching documents", len(records))

	emitted, err := emit.Emit(ctx, cfg.OutDir, "topic_proposals.csv", records, cfg.Uploader, cfg.UploadFolderID)
	if err != nil {
		return &TopicRunResult{}, err
	}
	result.RunResult = *emitted
	archiveRun(ctx, cfg.Archive, cfg.SourceLabel, records)
	return result, nil
}

// collectDocInfos scrapes each search page, dropping duplicates by link.
func collectDocInfos(ctx context.Context, cfg TopicConfig) []docInfo {
	var all []docInfo
	limit := cfg.MaxPages
	if limit > len(cfg.SearchURLs) {
		limit = len(cfg.SearchURLs)
	}

	for i := 0; i < limit; i++ {
		if ctx.Err() != nil {
			break
		}
		pageURL := cfg.SearchURLs[i]
		utils.Log.Infof("scraping source %d/%d: %s", i+1, limit, pageURL)

		res, err := cfg.Client.Get(pageURL)
		if err != nil {
			utils.Log.Warnf("source unreachable, skipping: %s", pageURL)
			continue
		}
		all = append(all, scrapeResultCards(pageURL, res.Body)...)
	}

	seen := make(map[string]bool, len(all))
	var unique []docInfo
	for _, d := range all {
		if d.Link == "" || seen[d.Link] {
			continue
		}
		seen[d.Link] = true
		unique = append(unique, d)
	}
	return unique
}

var (
	cardClassPat = regexp.MustCompile(`(?i)(result|document|dataset|card|item|resource)`)
	metaClassPat = regexp.MustCompile(`(?i)(meta|date|year|location)`)
	cardYearPat  = regexp.MustCompile(`20[0-4][0-9]`)
	docLinkExts  = []string{".pdf", ".doc", ".docx", ".csv"}
)

// scrapeResultCards pulls title/link/description/year from the result cards
// of a search page. Pages without recognizable cards degrade to plain
// document-link extraction.
func scrapeResultCards(pageURL, body string) []docInfo {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var out []docInfo
	doc.Find("div, article, li").Each(func(_ int, card *goquery.Selection) {
		class, _ := card.Attr("class")
		if !cardClassPat.MatchString(class) {
			return
		}

		var d docInfo
		d.Title = strings.TrimSpace(card.Find("h1, h2, h3, h4, a").First().Text())

		if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			if ref, err := url.Parse(href); err == nil {
				d.Link = base.ResolveReference(ref).String()
			}
		}

		card.Find("p, div").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if text := strings.TrimSpace(sel.Text()); len(text) >= 20 {
				d.Description = truncate(text, 500)
				return false
			}
			return true
		})

		card.Find("span, small, div").Each(func(_ int, meta *goquery.Selection) {
			class, _ := meta.Attr("class")
			if !metaClassPat.MatchString(class) {
				return
			}
			if m := cardYearPat.FindString(meta.Text()); m != "" {
				d.Year, _ = strconv.Atoi(m)
			}
		})

		if d.Title != "" && d.Link != "" {
			out = append(out, d)
		}
	})

	if len(out) > 0 {
		return out
	}

	// No cards on the page; fall back to bare document links.
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		lower := strings.ToLower(href)
		for _, ext := range docLinkExts {
			if strings.HasSuffix(lower, ext) {
				d := docInfo{Title: strings.TrimSpace(a.Text())}
				if d.Title == "" {
					d.Title = "Document"
				}
				if ref, err := url.Parse(href); err == nil {
					d.Link = base.ResolveReference(ref).String()
				}
				if d.Link != "" {
					out = append(out, d)
				}
				return
			}
		}
	})
	return out
}
