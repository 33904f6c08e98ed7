package crawl

import (
	"net/url"
	"path"
	"strings"
)

// Kind is the crawl state assigned to a discovered link.
type Kind int

const (
	// KindPage is a regular HTML page, enqueued for further traversal.
	KindPage Kind = iota
	// KindDetailPage is a structured per-item page, extracted field by field
	// and not crawled further.
	KindDetailPage
	// KindDocument is a downloadable file.
	KindDocument
)

type rule struct {
	match func(raw, lower string) bool
	kind  Kind
}

// Classifier assigns a Kind to every URL via an ordered rule list: detail
// page patterns first, then document extensions, then document path tokens.
// First match wins; anything else is a plain page.
type Classifier struct {
	rules []rule
}

// NewClassifier builds the rule table. detailPatterns are URL substrings
// marking per-item pages (e.g. "/project/?pid="), docExts are dotted
// extensions (".pdf"), docTokens are path substrings that flag documents
// even without a known extension (e.g. "proposal").
func NewClassifier(detailPatterns, docExts, docTokens []string) *Classifier {
	var rules []rule
	for _, p := range detailPatterns {
		pat := strings.ToLower(p)
		rules = append(rules, rule{
			match: func(_, lower string) bool { return strings.Contains(lower, pat) },
			kind:  KindDetailPage,
		})
	}
	exts := make(map[string]bool, len(docExts))
	for _, e := range docExts {
		exts[strings.ToLower(e)] = true
	}
	rules = append(rules, rule{
		match: func(raw, _ string) bool { return exts[ExtOf(raw)] },
		kind:  KindDocument,
	})
	for _, t := range docTokens {
		tok := strings.ToLower(t)
		rules = append(rules, rule{
			match: func(_, lower string) bool { return strings.Contains(lower, tok) },
			kind:  KindDocument,
		})
	}
	return &Classifier{rules: rules}
}

// Classify runs the rule table against a URL.
func (c *Classifier) Classify(rawURL string) Kind {
	lower := strings.ToLower(rawURL)
	for _, r := range c.rules {
		if r.match(rawURL, lower) {
			return r.kind
		}
	}
	return KindPage
}

// ExtOf returns the lowercased dotted extension of a URL's path, or "".
func ExtOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	ext := path.Ext(u.Path)
	return strings.ToLower(ext)
}
