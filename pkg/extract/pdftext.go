package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fundingbot/grantscope/internal/utils"
)

// TextExtractor is the optional PDF-to-text capability. Minimal deployments
// run with the no-op implementation and PDF items simply yield empty text,
// which downstream stages treat as "no amount found".
type TextExtractor interface {
	Text(path string) (string, error)
}

type noopExtractor struct{}

func (noopExtractor) Text(string) (string, error) { return "", nil }

// NoopExtractor returns a TextExtractor that always yields empty text.
func NoopExtractor() TextExtractor { return noopExtractor{} }

type pdfExtractor struct{}

// NewPDFExtractor returns the real PDF text extractor.
func NewPDFExtractor() TextExtractor { return pdfExtractor{} }

// Text extracts plain text page by page. Malformed PDFs produce whatever
// pages were readable, never an error that would drop the item.
func (pdfExtractor) Text(path string) (text string, err error) {
	// The pdf library panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			utils.Log.Debugf("pdf extraction panicked on %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages = append(pages, s)
	}
	return strings.Join(pages, "\n"), nil
}
