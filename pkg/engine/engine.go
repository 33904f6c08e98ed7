// Package engine orchestrates one discovery run: crawl, extract, filter,
// emit. Runs are sequential and stateless; everything mutable lives in the
// per-run values created here.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/fundingbot/grantscope/internal/utils"
	"github.com/fundingbot/grantscope/pkg/crawl"
	"github.com/fundingbot/grantscope/pkg/emit"
	"github.com/fundingbot/grantscope/pkg/extract"
	"github.com/fundingbot/grantscope/pkg/finance"
	"github.com/fundingbot/grantscope/pkg/storage"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

// Config parameterizes the primary (frontier) crawler.
type Config struct {
	OutDir string

	// Accepted band in USD, inclusive. Records with a detected amount
	// outside the band are dropped; records with no detected amount are
	// kept only when KeepUnknownAmounts is set.
	MinUSD             float64
	MaxUSD             float64
	KeepUnknownAmounts bool

	// Rate is INR per USD for normalization.
	Rate float64

	MaxPages int
	Delay    time.Duration
	Timeout  time.Duration

	Seeds          []string
	AllowedDomains []string
	DetailPatterns []string

	// SourceLabel is the funding-source column value for records that
	// don't carry their own (downloaded documents).
	SourceLabel string

	Uploader       emit.Uploader
	UploadFolderID string

	PDFText extract.TextExtractor

	// Archive, when set, records the run's output for cross-run change
	// tracking.
	Archive *storage.DB

	// Client overrides the HTTP client, mainly for tests.
	Client *whttp.Client
}

// DefaultConfig is tuned for the project listing the tool was built around.
func DefaultConfig() Config {
	return Config{
		OutDir:             "./out",
		MinUSD:             30_000,
		MaxUSD:             50_000,
		KeepUnknownAmounts: true,
		Rate:               83.0,
		MaxPages:           400,
		Delay:              800 * time.Millisecond,
		Timeout:            20 * time.Second,
		Seeds:              []string{"https://ashanet.org/projects-list/"},
		AllowedDomains:     []string{"ashanet.org", "documents.ashanet.org", "ashadocserver.s3.amazonaws.com"},
		DetailPatterns:     []string{"/project/?pid="},
		SourceLabel:        "Asha",
	}
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.OutDir == "" {
		c.OutDir = def.OutDir
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
	if len(c.Seeds) == 0 {
		c.Seeds = def.Seeds
	}
	if len(c.AllowedDomains) == 0 {
		for _, s := range c.Seeds {
			if d, ok := crawl.RootDomain(s); ok {
				c.AllowedDomains = append(c.AllowedDomains, d)
			}
		}
		if utils.AreSlicesEqual(c.Seeds, def.Seeds) {
			c.AllowedDomains = def.AllowedDomains
		}
	}
	if len(c.DetailPatterns) == 0 && utils.AreSlicesEqual(c.Seeds, def.Seeds) {
		c.DetailPatterns = def.DetailPatterns
	}
	if c.SourceLabel == "" {
		c.SourceLabel = def.SourceLabel
	}
	if c.PDFText == nil {
		c.PDFText = extract.NewPDFExtractor()
	}
	if c.Client == nil {
		c.Client = whttp.NewClient(c.Timeout, c.Delay)
	}
}

// accept applies the band policy to a normalized amount.
func (c *Config) accept(usd *float64) bool {
	if usd == nil {
		return c.KeepUnknownAmounts
	}
	return *usd >= c.MinUSD && *usd <= c.MaxUSD
}

var dateYearPat = regexp.MustCompile(`20[0-4][0-9]`)

// Run executes the primary discovery pipeline. Per-item failures are logged
// and skipped; only an unusable configuration aborts with an error and an
// empty result.
func Run(ctx context.Context, cfg Config) (*emit.RunResult, error) {
	cfg.fillDefaults()

	if len(cfg.Seeds) == 0 {
		return &emit.RunResult{}, fmt.Errorf("no seed URLs resolvable")
	}
	downloadDir := filepath.Join(cfg.OutDir, "downloads")
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return &emit.RunResult{}, fmt.Errorf("output directory unwritable: %w", err)
	}

	utils.Log.Infof("starting crawl, accepted band $%.0f - $%.0f", cfg.MinUSD, cfg.MaxUSD)

	frontier := crawl.New(cfg.Client, crawl.Config{
		AllowedDomains: cfg.AllowedDomains,
		MaxPages:       cfg.MaxPages,
		DetailPatterns: cfg.DetailPatterns,
		DocTokens:      []string{"proposal"},
	})
	found := frontier.Crawl(ctx, cfg.Seeds)

	var records []emit.ProposalRecord
	for i, link := range found.DetailPages {
		utils.Log.Infof("processing detail page %d/%d: %s", i+1, len(found.DetailPages), link)
		if r, ok := detailRecord(cfg, link); ok {
			records = append(records, r)
		}
	}
	for i, link := range found.Documents {
		utils.Log.Infof("processing document %d/%d: %s", i+1, len(found.Documents), link)
		if r, ok := documentRecord(cfg, link, downloadDir); ok {
			records = append(records, r)
		}
	}

	utils.Log.Infof("%d records within band", len(records))

	result, err := emit.Emit(ctx, cfg.OutDir, "proposals.csv", records, cfg.Uploader, cfg.UploadFolderID)
	if err != nil {
		return &emit.RunResult{}, err
	}
	archiveRun(ctx, cfg.Archive, cfg.SourceLabel, records)
	return result, nil
}

// detailRecord builds a record from a structured per-item page. Extraction
// failures drop the item; missing fields don't.
func detailRecord(cfg Config, link string) (emit.ProposalRecord, bool) {
	fields, err := extract.DetailPage(cfg.Client, link)
	if err != nil {
		utils.Log.Warnf("detail extraction failed for %s: %v", link, err)
		return emit.ProposalRecord{}, false
	}

	var usd *float64
	var inr *int64
	if fields.LastFundingAmount != nil {
		inr = fields.LastFundingAmount
		v := float64(*inr) / cfg.Rate
		usd = &v
	}
	if !cfg.accept(usd) {
		return emit.ProposalRecord{}, false
	}

	year := 0
	if m := dateYearPat.FindString(fields.LastFundingDate); m != "" {
		year, _ = strconv.Atoi(m)
	}

	title := fields.Title
	if title == "" {
		title = "Unknown Project"
	}
	funder := fields.Steward
	if funder == "" {
		funder = cfg.SourceLabel
	}
	currency := ""
	if usd != nil {
		currency = "USD"
	}

	notes := "Status: " + fields.Status
	if fields.Summary != "" {
		notes += "; " + truncate(fields.Summary, 200)
	}

	return emit.ProposalRecord{
		Title:         title,
		Organization:  fields.Organization,
		Year:          year,
		FundingSource: funder,
		Currency:      currency,
		AmountUSD:     usd,
		AmountINR:     inr,
		Link:          link,
		Geography:     fields.Location,
		Notes:         notes,
	}, true
}

// documentRecord downloads a document, extracts its text and financials and
// applies the band policy.
func documentRecord(cfg Config, link, downloadDir string) (emit.ProposalRecord, bool) {
	path, err := cfg.Client.Download(link, downloadDir)
	if err != nil {
		utils.Log.Warnf("download failed for %s: %v", link, err)
		return emit.ProposalRecord{}, false
	}

	text := extract.FileText(path, cfg.PDFText)
	fin := finance.Extract(text, cfg.Rate)
	if !cfg.accept(fin.USD) {
		return emit.ProposalRecord{}, false
	}

	currency := ""
	if fin.USD != nil {
		currency = "USD"
	}

	return emit.ProposalRecord{
		Title:         filepath.Base(path),
		Year:          finance.GuessYear(text),
		FundingSource: cfg.SourceLabel,
		Currency:      currency,
		AmountUSD:     fin.USD,
		AmountINR:     fin.INR,
		Link:          link,
		FilePath:      path,
		Notes:         fin.Note,
	}, true
}

func archiveRun(ctx context.Context, db *storage.DB, source string, records []emit.ProposalRecord) {
	if db == nil {
		return
	}
	changes, err := db.RecordRun(ctx, source, records)
	if err != nil {
		utils.Log.Warnf("archive update failed: %v", err)
		return
	}
	if len(changes) > 0 {
		utils.Log.Infof("archive: %d new or updated proposals", len(changes))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
