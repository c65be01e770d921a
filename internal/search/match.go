package search

import (
	"strings"
	"unicode/utf8"
)

// ClauseKind identifies a text-matching strategy.
type ClauseKind int

const (
	// ClauseMatchAll matches every record.
	ClauseMatchAll ClauseKind = iota
	// ClausePhrase matches the term as an exact phrase.
	ClausePhrase
	// ClausePrefix matches names starting with the term.
	ClausePrefix
	// ClauseContains matches names containing the term anywhere.
	ClauseContains
	// ClauseFuzzy matches names within a bounded edit distance of the term.
	ClauseFuzzy
)

// String returns the clause kind name used in logs and explain output.
func (k ClauseKind) String() string {
	switch k {
	case ClauseMatchAll:
		return "match_all"
	case ClausePhrase:
		return "phrase"
	case ClausePrefix:
		return "prefix"
	case ClauseContains:
		return "contains"
	case ClauseFuzzy:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// Clause boosts and length thresholds.
const (
	PhraseBoost   = 5.0
	PrefixBoost   = 3.0
	ContainsBoost = 1.5
	FuzzyBoost    = 1.0

	// ContainsMinLength is the shortest term that earns a contains clause.
	ContainsMinLength = 3
	// FuzzyMinLength is the shortest term that earns a fuzzy clause.
	FuzzyMinLength = 4
	// FuzzyMaxEdits is the maximum edit distance of the fuzzy clause.
	FuzzyMaxEdits = 1
)

// Clause is one optional matching strategy of an Expression.
type Clause struct {
	Kind ClauseKind
	// Term is the original trimmed text for phrase clauses and the
	// lower-cased text for every other kind.
	Term      string
	Boost     float64
	Fuzziness int
}

// Expression is a disjunction of clauses; a record matches when at least
// MinShouldMatch clauses match, and scores the sum of their contributions.
type Expression struct {
	Clauses        []Clause
	MinShouldMatch int
}

// MatchAll reports whether the expression matches every record.
func (e Expression) MatchAll() bool {
	return len(e.Clauses) == 1 && e.Clauses[0].Kind == ClauseMatchAll
}

// Has reports whether the expression contains a clause of kind k.
func (e Expression) Has(k ClauseKind) bool {
	for _, c := range e.Clauses {
		if c.Kind == k {
			return true
		}
	}
	return false
}

// BuildMatch turns a free-text term into a tiered match expression.
// Short terms only get exact and prefix treatment; contains and fuzzy
// clauses are added as the term grows long enough to keep them precise.
func BuildMatch(term string) Expression {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return Expression{
			Clauses:        []Clause{{Kind: ClauseMatchAll, Boost: 1}},
			MinShouldMatch: 1,
		}
	}

	lower := strings.ToLower(trimmed)
	length := utf8.RuneCountInString(lower)

	clauses := []Clause{
		{Kind: ClausePhrase, Term: trimmed, Boost: PhraseBoost},
		{Kind: ClausePrefix, Term: lower, Boost: PrefixBoost},
	}
	if length >= ContainsMinLength {
		clauses = append(clauses, Clause{Kind: ClauseContains, Term: lower, Boost: ContainsBoost})
	}
	if length >= FuzzyMinLength {
		clauses = append(clauses, Clause{Kind: ClauseFuzzy, Term: lower, Boost: FuzzyBoost, Fuzziness: FuzzyMaxEdits})
	}

	return Expression{Clauses: clauses, MinShouldMatch: 1}
}
