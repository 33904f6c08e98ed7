package search

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const articleWithInfobox = `<html><body>
<table class="infobox">
<tr><th>Founded</th><td>1991</td></tr>
<tr><th>Website</th><td><a href="https://www.acmefund.org">acmefund.org</a></td></tr>
</table>
</body></html>`

const articleWithExternalLinks = `<html><body>
<h2><span class="mw-headline" id="External_links">External links</span></h2>
<ul>
<li><a href="https://commons.example/gallery">Media</a></li>
<li><a href="https://www.acmefoundation.org">Official site</a></li>
</ul>
</body></html>`

func wikipediaTestServer(t *testing.T, summaryType, article string) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rest_v1/page/summary/Acme Fund" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"type":%q,"content_urls":{"desktop":{"page":"%s/wiki/Acme_Fund"}}}`, summaryType, srv.URL)
	})
	mux.HandleFunc("/wiki/Acme_Fund", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, article)
	})
	srv = httptest.NewServer(mux)
	return srv
}

func TestWikipediaInfoboxWebsite(t *testing.T) {
	srv := wikipediaTestServer(t, "standard", articleWithInfobox)
	defer srv.Close()

	p := NewWikipedia()
	p.Endpoint = srv.URL
	got, err := p.Search(testClient(), `"Acme Fund" foundation website`)
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://www.acmefund.org" {
		t.Fatalf("Search = %q", got)
	}
}

func TestWikipediaExternalLinksFallback(t *testing.T) {
	srv := wikipediaTestServer(t, "standard", articleWithExternalLinks)
	defer srv.Close()

	p := NewWikipedia()
	p.Endpoint = srv.URL
	got, err := p.Search(testClient(), "Acme Fund foundation official site")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://www.acmefoundation.org" {
		t.Fatalf("Search = %q", got)
	}
}

func TestWikipediaSkipsDisambiguation(t *testing.T) {
	srv := wikipediaTestServer(t, "disambiguation", articleWithInfobox)
	defer srv.Close()

	p := NewWikipedia()
	p.Endpoint = srv.URL
	got, err := p.Search(testClient(), "Acme Fund foundation website")
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Fatalf("Search = %q, want empty for disambiguation pages", got)
	}
}

func TestOrgNameFromQuery(t *testing.T) {
	cases := []struct{ query, want string }{
		{`"Acme Fund" foundation website`, "Acme Fund"},
		{"Acme Fund foundation official site", "Acme Fund"},
		{"Acme Fund foundation .org", "Acme Fund"},
		{"Acme Fund", "Acme Fund"},
	}
	for _, c := range cases {
		if got := orgNameFromQuery(c.query); got != c.want {
			t.Fatalf("orgNameFromQuery(%q) = %q, want %q", c.query, got, c.want)
		}
	}
}
