package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fundingbot/grantscope/pkg/extract"
	"github.com/fundingbot/grantscope/pkg/whttp"
)

const topicSearchPage = `<html><body>
<div class="search-result">
  <h3>Teacher Training Program Evaluation</h3>
  <a href="/docs/training-eval.pdf">Download</a>
  <p>Training program for teachers and students to improve literacy in primary school classrooms. Total budget: $50,000.</p>
  <span class="meta-date">Published 2021</span>
</div>
<div class="search-result">
  <h3>Irrigation Pump Audit</h3>
  <a href="/docs/pump-audit.pdf">Download</a>
  <p>Quarterly audit of pump maintenance and spares procurement records.</p>
</div>
<div class="search-result">
  <h3>National Curriculum Reform Study</h3>
  <a href="/docs/curriculum-study.pdf">Download</a>
  <p>Study of curriculum and classroom instruction outcomes for students. Total budget: $250,000.</p>
</div>
</body></html>`

func topicTestServer() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, topicSearchPage)
	})
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 stub")
	})
	return httptest.NewServer(mux)
}

func TestRunTopics(t *testing.T) {
	srv := topicTestServer()
	defer srv.Close()

	cfg := TopicConfig{
		OutDir:      t.TempDir(),
		MaxBudget:   100_000,
		MaxPages:    10,
		SearchURLs:  []string{srv.URL + "/search"},
		SourceLabel: "USAID",
		PDFText:     extract.NoopExtractor(),
		Client:      whttp.NewClient(5*time.Second, 0),
	}
	result, err := RunTopics(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	if result.TotalFound != 3 {
		t.Fatalf("total found = %d, want 3", result.TotalFound)
	}
	// Pump audit has no theme keywords, curriculum study is over budget.
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(result.Records))
	}

	rec := result.Records[0]
	if rec.Title != "Teacher Training Program Evaluation" {
		t.Fatalf("title = %q", rec.Title)
	}
	if rec.Themes == "" || !strings.Contains(rec.Themes, "education") {
		t.Fatalf("themes = %q", rec.Themes)
	}
	if rec.AmountUSD == nil || *rec.AmountUSD != 50000 {
		t.Fatalf("amount = %v", rec.AmountUSD)
	}
	if rec.Year != 2021 {
		t.Fatalf("year = %d, want the card metadata year", rec.Year)
	}
	if rec.FundingSource != "USAID" {
		t.Fatalf("funding source = %q", rec.FundingSource)
	}
	if !strings.HasPrefix(rec.Notes, "type=") {
		t.Fatalf("notes = %q, want a document-type prefix", rec.Notes)
	}
	if rec.FilePath == "" {
		t.Fatal("pdf card should have been downloaded")
	}

	if result.PerTheme["education"] != 1 {
		t.Fatalf("per-theme counts = %v", result.PerTheme)
	}
	if result.UnderBudget != 1 {
		t.Fatalf("under budget = %d, want 1", result.UnderBudget)
	}
	if result.CSVPath == "" || !strings.HasSuffix(result.CSVPath, "topic_proposals.csv") {
		t.Fatalf("csv path = %q", result.CSVPath)
	}
}

func TestRunTopicsNormalizesRupeeAmounts(t *testing.T) {
	page := `<html><body>
	<div class="search-result">
	  <h3>Village School Literacy Drive</h3>
	  <a href="/docs/literacy-drive.pdf">Download</a>
	  <p>Literacy classes for students run by trained teachers across village schools. Total budget: Rs. 2,00,000.</p>
	</div>
	</body></html>`
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/docs/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4 stub")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := TopicConfig{
		OutDir:     t.TempDir(),
		MaxBudget:  100_000,
		Rate:       83,
		SearchURLs: []string{srv.URL + "/search"},
		PDFText:    extract.NoopExtractor(),
		Client:     whttp.NewClient(5*time.Second, 0),
	}
	result, err := RunTopics(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	// ₹2,00,000 normalizes to about $2,410; at face value it would blow
	// the $100,000 ceiling and the record would be lost.
	if len(result.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(result.Records))
	}
	rec := result.Records[0]
	if rec.AmountINR == nil || *rec.AmountINR != 200000 {
		t.Fatalf("INR = %v, want 200000", rec.AmountINR)
	}
	if rec.AmountUSD == nil || *rec.AmountUSD != 2409.64 {
		t.Fatalf("USD = %v, want 2409.64", rec.AmountUSD)
	}
}

func TestScrapeResultCards(t *testing.T) {
	docs := scrapeResultCards("https://dec.example/search", topicSearchPage)
	if len(docs) != 3 {
		t.Fatalf("cards = %d, want 3", len(docs))
	}
	if docs[0].Link != "https://dec.example/docs/training-eval.pdf" {
		t.Fatalf("card link = %q, want it resolved against the page URL", docs[0].Link)
	}
	if docs[0].Year != 2021 {
		t.Fatalf("card year = %d", docs[0].Year)
	}
	if len(docs[0].Description) == 0 || len(docs[0].Description) > 503 {
		t.Fatalf("card description length = %d", len(docs[0].Description))
	}
}

func TestScrapeResultCardsBareLinkFallback(t *testing.T) {
	body := `<html><body>
	<a href="/files/annual-report.pdf">Annual report</a>
	<a href="/about">About us</a>
	<a href="/files/budget.csv">Budget</a>
	</body></html>`
	docs := scrapeResultCards("https://data.example/", body)
	if len(docs) != 2 {
		t.Fatalf("fallback docs = %d, want 2", len(docs))
	}
	if docs[0].Title != "Annual report" || docs[0].Link != "https://data.example/files/annual-report.pdf" {
		t.Fatalf("fallback doc = %+v", docs[0])
	}
}

func TestCollectDocInfosDeduplicates(t *testing.T) {
	srv := topicTestServer()
	defer srv.Close()

	cfg := TopicConfig{
		SearchURLs: []string{srv.URL + "/search", srv.URL + "/search"},
		MaxPages:   10,
		Client:     whttp.NewClient(5*time.Second, 0),
	}
	cfg.fillDefaults()
	docs := collectDocInfos(context.Background(), cfg)
	if len(docs) != 3 {
		t.Fatalf("unique docs = %d, want 3 after dedup", len(docs))
	}
}
