// Package finance detects monetary figures in noisy extracted text and
// normalizes them between INR and USD at a caller-supplied rate.
package finance

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Financials is the outcome of scanning one document. INR and USD are either
// both nil (nothing usable found) or both set: whichever currency matched is
// converted to the other at the fixed rate, so downstream band filtering
// always has a USD figure to work with.
type Financials struct {
	INR  *int64
	USD  *float64
	Note string
}

// Detected reports whether an amount was found.
func (f Financials) Detected() bool {
	return f.USD != nil
}

// budgetHints marks a line as carrying the requested/awarded total rather
// than an incidental number. Phrases cover both site flavours we crawl.
var budgetHints = regexp.MustCompile(`(?i)(asha\s*request|total\s*requested|amount\s*requested|total\s*budget|project\s*cost|funding\s*amount|award\s*amount|grant\s*amount|budget)`)

// currencyRule pairs a currency code with its amount pattern. Order matters:
// rupee figures take precedence over dollar figures on the same line.
type currencyRule struct {
	code string
	re   *regexp.Regexp
}

var currencyRules = []currencyRule{
	{"INR", regexp.MustCompile(`(?i)(?:₹|rs\.?|inr)\s*([0-9][0-9,. ]*)`)},
	{"USD", regexp.MustCompile(`(?i)(?:\$|usd|us\$|dollars?)\s*([0-9][0-9,. ]*)`)},
}

var yearPat = regexp.MustCompile(`\b(20[0-4][0-9])\b`)

// Extract scans text line by line for a budget-hint line and applies the
// currency rules in precedence order; the first numeric match wins. When no
// hint line matches anywhere, it falls back to the first currency-tagged
// number in the whole text. rate is INR per USD.
func Extract(text string, rate float64) Financials {
	if strings.TrimSpace(text) == "" {
		return Financials{Note: "no_text"}
	}

	for _, line := range strings.Split(text, "\n") {
		if !budgetHints.MatchString(line) {
			continue
		}
		for _, rule := range currencyRules {
			for _, m := range rule.re.FindAllStringSubmatch(line, -1) {
				if n, ok := normalizeNumber(m[1]); ok {
					return fromAmount(rule.code, n, rate, rule.code+"_hint")
				}
			}
		}
	}

	for _, rule := range currencyRules {
		for _, m := range rule.re.FindAllStringSubmatch(text, -1) {
			if n, ok := normalizeNumber(m[1]); ok {
				return fromAmount(rule.code, n, rate, rule.code+"_text")
			}
		}
	}

	return Financials{Note: "no_amount_found"}
}

func fromAmount(code string, n, rate float64, note string) Financials {
	note = strings.ToLower(note)
	switch code {
	case "INR":
		inr := int64(math.Round(n))
		usd := round2(n / rate)
		return Financials{INR: &inr, USD: &usd, Note: note}
	default: // USD
		usd := round2(n)
		inr := int64(math.Round(n * rate))
		return Financials{INR: &inr, USD: &usd, Note: note}
	}
}

// normalizeNumber turns "30,00,000" or "36 144.58" into a float. Trailing
// separators picked up by the regex are trimmed first.
func normalizeNumber(s string) (float64, bool) {
	cleaned := strings.NewReplacer(",", "", " ", "").Replace(s)
	cleaned = strings.TrimRight(cleaned, ".")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// GuessYear returns the most recent plausible 4-digit year in the text, or 0
// when none is present.
func GuessYear(text string) int {
	best := 0
	for _, m := range yearPat.FindAllString(text, -1) {
		if y, err := strconv.Atoi(m); err == nil && y > best {
			best = y
		}
	}
	return best
}
