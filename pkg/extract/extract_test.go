package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const detailFixture = `<html>
<head><title>Project 42 | Asha</title></head>
<body>
<h1>Evening Schools for Migrant Children</h1>
<table>
<tr><th>NGO Name</th><td>Vidya Trust</td></tr>
<tr><th>Location</th><td>Pune, Maharashtra</td></tr>
<tr><th>Project Status</th><td>Active</td></tr>
<tr><th>Last Funding Amount</th><td>Rs. 4,15,000</td></tr>
<tr><th>Last Funding Date</th><td>2023-06-12</td></tr>
<tr><th>Project Steward</th><td>Seattle Chapter</td></tr>
<tr><th>Empty</th><td></td></tr>
</table>
<p>Short.</p>
<p>The project runs evening classes for children of migrant construction workers in Pune.</p>
<p>Volunteers tutor mathematics and reading three evenings a week at two sites.</p>
</body></html>`

func TestParseDetailPage(t *testing.T) {
	fields, err := ParseDetailPage(detailFixture)
	if err != nil {
		t.Fatal(err)
	}
	if fields.Title != "Evening Schools for Migrant Children" {
		t.Fatalf("title = %q", fields.Title)
	}
	if fields.Organization != "Vidya Trust" {
		t.Fatalf("organization = %q", fields.Organization)
	}
	if fields.Location != "Pune, Maharashtra" {
		t.Fatalf("location = %q", fields.Location)
	}
	if fields.Status != "Active" {
		t.Fatalf("status = %q", fields.Status)
	}
	if fields.LastFundingAmount == nil || *fields.LastFundingAmount != 415000 {
		t.Fatalf("amount = %v, want 415000", fields.LastFundingAmount)
	}
	if fields.LastFundingDate != "2023-06-12" {
		t.Fatalf("date = %q", fields.LastFundingDate)
	}
	if fields.Steward != "Seattle Chapter" {
		t.Fatalf("steward = %q", fields.Steward)
	}
	if !strings.Contains(fields.Summary, "migrant construction workers") {
		t.Fatalf("summary = %q", fields.Summary)
	}
	if strings.Contains(fields.Summary, "Short.") {
		t.Fatalf("summary kept a trivial paragraph: %q", fields.Summary)
	}
}

func TestParseDetailPageTitleFallback(t *testing.T) {
	fields, err := ParseDetailPage(`<html><head><title>Fallback Title</title></head><body><p>x</p></body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	if fields.Title != "Fallback Title" {
		t.Fatalf("title = %q, want the <title> fallback", fields.Title)
	}
}

func TestHTMLTextStripsBoilerplate(t *testing.T) {
	body := `<html><body>
	<nav>Home About Contact</nav>
	<script>var x = 1;</script>
	<style>.a{color:red}</style>
	<p>Annual   report on
	literacy outcomes.</p>
	<footer>Copyright</footer>
	</body></html>`
	got := HTMLText(body)
	if got != "Annual report on literacy outcomes." {
		t.Fatalf("HTMLText = %q", got)
	}
}

func TestDocType(t *testing.T) {
	cases := []struct {
		text, url, want string
	}{
		{"", "https://x.org/files/final-proposal.pdf", "proposal"},
		{"", "https://x.org/files/midterm-evaluation.pdf", "evaluation"},
		{"annual study of outcomes", "https://x.org/files/a.pdf", "report"},
		{"award letter for the cohort", "https://x.org/files/b.pdf", "grant"},
		{"", "https://x.org/files/field-manual.pdf", "technical"},
		{"", "https://x.org/files/misc.pdf", "unknown"},
		// URL classification outranks text classification.
		{"a detailed study", "https://x.org/grant-letter.pdf", "grant"},
	}
	for _, c := range cases {
		if got := DocType(c.text, c.url); got != c.want {
			t.Fatalf("DocType(%q, %s) = %q, want %q", c.text, c.url, got, c.want)
		}
	}
}

func TestFileText(t *testing.T) {
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("total budget: $5,000"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FileText(txt, NoopExtractor()); got != "total budget: $5,000" {
		t.Fatalf("txt FileText = %q", got)
	}

	htmlFile := filepath.Join(dir, "page.html")
	if err := os.WriteFile(htmlFile, []byte(`<html><body><script>x</script><p>visible text</p></body></html>`), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FileText(htmlFile, NoopExtractor()); got != "visible text" {
		t.Fatalf("html FileText = %q", got)
	}

	pdfFile := filepath.Join(dir, "scan.pdf")
	if err := os.WriteFile(pdfFile, []byte("%PDF-fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FileText(pdfFile, NoopExtractor()); got != "" {
		t.Fatalf("noop pdf FileText = %q, want empty", got)
	}

	if got := FileText(filepath.Join(dir, "image.jpg"), NoopExtractor()); got != "" {
		t.Fatalf("unknown format FileText = %q, want empty", got)
	}
}
