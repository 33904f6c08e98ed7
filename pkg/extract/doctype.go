package extract

import (
	"regexp"
	"strings"
)

// docTypeRules is the ordered (tag, pattern) table for document-type
// classification. First match wins; the URL is checked before the text.
var docTypeRules = []struct {
	Tag string
	re  *regexp.Regexp
}{
	{"proposal", regexp.MustCompile(`(?i)(proposal|application|submission)`)},
	{"evaluation", regexp.MustCompile(`(?i)(evaluation|assessment|review)`)},
	{"report", regexp.MustCompile(`(?i)(report|study|analysis)`)},
	{"grant", regexp.MustCompile(`(?i)(grant|award|funding)`)},
	{"technical", regexp.MustCompile(`(?i)(technical|guidance|manual)`)},
}

// DocType classifies a document by URL first, then by extracted text.
// Unmatched documents are "unknown".
func DocType(text, rawURL string) string {
	urlLower := strings.ToLower(rawURL)
	for _, r := range docTypeRules {
		if r.re.MatchString(urlLower) {
			return r.Tag
		}
	}
	if text != "" {
		textLower := strings.ToLower(text)
		for _, r := range docTypeRules {
			if r.re.MatchString(textLower) {
				return r.Tag
			}
		}
	}
	return "unknown"
}
