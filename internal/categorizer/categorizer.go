// Package categorizer assigns a category to a transaction from its
// description and merchant text.
//
// User rules are tried first, highest priority first; the keyword
// dictionary is the fallback. Matching is case-insensitive substring
// containment on trimmed text, so "juice" matches "Juicebar Grand Baie".
// Everything here is pure and safe for concurrent use.
package categorizer

import (
	"sort"
	"strings"
)

type (
	// Rule is a user-authored mapping. Empty patterns never match.
	Rule struct {
		Priority        int
		MerchantPattern string
		KeywordPattern  string
		CategoryID      string
	}

	// KeywordEntry is a dictionary fallback mapping.
	KeywordEntry struct {
		Keyword    string
		CategoryID string
	}

	// Input is one transaction's text plus the user's rules and dictionary.
	Input struct {
		Description string
		Merchant    string
		Rules       []Rule
		Dictionary  []KeywordEntry
	}
)

// Source identifies what produced a categorization.
type Source string

const (
	SourceNone         Source = "none"
	SourceRuleMerchant Source = "rule_merchant"
	SourceRuleKeyword  Source = "rule_keyword"
	SourceDictionary   Source = "dictionary"
)

// Match describes the outcome of a categorization. Index points into
// Input.Rules or Input.Dictionary depending on Source, and is -1 when
// nothing matched.
type Match struct {
	CategoryID string `json:"categoryId"`
	Source     Source `json:"source"`
	Index      int    `json:"index"`
	Pattern    string `json:"pattern"`
}

// Matched reports whether a category was found.
func (m Match) Matched() bool {
	return m.Source != SourceNone
}

// Categorize returns the category for in, or ok=false when no rule or
// dictionary entry matches.
func Categorize(in Input) (categoryID string, ok bool) {
	m := Explain(in)
	return m.CategoryID, m.Matched()
}

// Explain runs the same algorithm as Categorize and reports which rule or
// dictionary entry decided the result.
func Explain(in Input) Match {
	description := normalize(in.Description)
	merchant := normalize(in.Merchant)

	for _, i := range byPriority(in.Rules) {
		rule := in.Rules[i]
		if p := normalize(rule.MerchantPattern); contains(merchant, p) {
			return Match{CategoryID: rule.CategoryID, Source: SourceRuleMerchant, Index: i, Pattern: p}
		}
		if p := normalize(rule.KeywordPattern); contains(description, p) {
			return Match{CategoryID: rule.CategoryID, Source: SourceRuleKeyword, Index: i, Pattern: p}
		}
	}

	for i, entry := range in.Dictionary {
		kw := normalize(entry.Keyword)
		if contains(merchant, kw) || contains(description, kw) {
			return Match{CategoryID: entry.CategoryID, Source: SourceDictionary, Index: i, Pattern: kw}
		}
	}

	return Match{Source: SourceNone, Index: -1}
}

// byPriority returns rule indexes ordered by priority descending. Ties keep
// input order. The caller's slice is not reordered.
func byPriority(rules []Rule) []int {
	idx := make([]int, len(rules))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return rules[idx[a]].Priority > rules[idx[b]].Priority
	})
	return idx
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func contains(text, pattern string) bool {
	return pattern != "" && strings.Contains(text, pattern)
}
