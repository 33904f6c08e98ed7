// Package themes scores extracted text against target topic keyword sets.
// A document is considered relevant only when at least one set clears its
// minimum occurrence threshold.
package themes

import "strings"

// Set is one keyword group with the minimum number of distinct keyword hits
// required for the group to count as a matched theme.
type Set struct {
	Name      string
	Keywords  []string
	Threshold int
}

// Score holds the per-set hit counts for one document.
type Score struct {
	Counts map[string]int
	Tags   []string
}

// Relevant reports whether at least one set cleared its threshold.
func (s Score) Relevant() bool {
	return len(s.Tags) > 0
}

// TagString renders the matched set names the way they appear in the output
// file, e.g. "education, youth".
func (s Score) TagString() string {
	return strings.Join(s.Tags, ", ")
}

// DefaultSets mirrors the education/youth focus the topic crawler was built
// for. Callers may pass their own sets to Analyze.
func DefaultSets() []Set {
	return []Set{
		{
			Name:      "education",
			Threshold: 3,
			Keywords: []string{
				"education", "educational", "school", "schools", "literacy", "learning",
				"academic", "academics", "student", "students", "teacher", "teachers",
				"curriculum", "classroom", "instruction", "pedagogical", "scholarship",
				"university", "college", "training", "capacity building", "skills development",
			},
		},
		{
			Name:      "youth",
			Threshold: 2,
			Keywords: []string{
				"youth", "youths", "adolescent", "adolescents", "young", "children",
				"child", "teenage", "teenager", "pupils", "minors", "juvenile",
				"early childhood", "primary school", "secondary school", "high school",
			},
		},
	}
}

// Analyze counts keyword occurrences per set in the lowercased text. Each
// keyword contributes at most one hit, matching presence-based scoring.
func Analyze(text string, sets []Set) Score {
	score := Score{Counts: make(map[string]int, len(sets))}
	if strings.TrimSpace(text) == "" {
		for _, s := range sets {
			score.Counts[s.Name] = 0
		}
		return score
	}

	lower := strings.ToLower(text)
	for _, s := range sets {
		n := 0
		for _, kw := range s.Keywords {
			if strings.Contains(lower, kw) {
				n++
			}
		}
		score.Counts[s.Name] = n
		if n >= s.Threshold {
			score.Tags = append(score.Tags, s.Name)
		}
	}
	return score
}
