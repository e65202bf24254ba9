package skills

import (
	"sort"
	"strings"
)

// DefaultIndicators are the phrases that introduce a skill list in free text.
var DefaultIndicators = []string{
	"proficient in",
	"experience with",
	"skilled in",
	"knowledge of",
	"familiar with",
	"expertise in",
	"qualifications",
	"essential qualifications",
}

// Set is a deduplicated collection of normalized skill phrases.
type Set map[string]struct{}

// Add inserts a phrase after case folding and trimming. Blank phrases are ignored.
func (s Set) Add(skill string) {
	skill = strings.TrimSpace(strings.ToLower(skill))
	if skill == "" {
		return
	}
	s[skill] = struct{}{}
}

// Has reports whether the normalized phrase is present.
func (s Set) Has(skill string) bool {
	_, ok := s[strings.TrimSpace(strings.ToLower(skill))]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the phrases in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Extractor finds candidate skill phrases in text.
type Extractor interface {
	Extract(text string) Set
}

// IndicatorExtractor scans sentence-like segments for indicator phrases and collects the
// comma-separated items that follow them. It is a keyword heuristic, not a parser: it splits
// on every period, so "node.js" or "e.g." break segments.
type IndicatorExtractor struct {
	indicators []string
}

// NewIndicatorExtractor builds an extractor for the given indicators, or DefaultIndicators when none are given.
func NewIndicatorExtractor(indicators ...string) *IndicatorExtractor {
	var cleaned []string
	for _, ind := range indicators {
		if ind = strings.TrimSpace(strings.ToLower(ind)); ind != "" {
			cleaned = append(cleaned, ind)
		}
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultIndicators...)
	}
	return &IndicatorExtractor{indicators: cleaned}
}

// Indicators returns a copy of the configured phrases.
func (e *IndicatorExtractor) Indicators() []string {
	return append([]string(nil), e.indicators...)
}

// Extract returns the skills mentioned after any indicator. Every indicator present in a
// segment contributes the text between its first and second occurrence.
func (e *IndicatorExtractor) Extract(text string) Set {
	out := Set{}
	if strings.TrimSpace(text) == "" {
		return out
	}
	for _, segment := range strings.Split(strings.ToLower(text), ".") {
		for _, ind := range e.indicators {
			idx := strings.Index(segment, ind)
			if idx < 0 {
				continue
			}
			tail := segment[idx+len(ind):]
			if next := strings.Index(tail, ind); next >= 0 {
				tail = tail[:next]
			}
			for _, piece := range strings.Split(tail, ",") {
				out.Add(piece)
			}
		}
	}
	return out
}

var _ Extractor = (*IndicatorExtractor)(nil)
