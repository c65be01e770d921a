package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMatch_TiersByTermLength(t *testing.T) {
	tests := []struct {
		name      string
		term      string
		wantKinds []ClauseKind
	}{
		{
			name:      "single rune gets exact and prefix",
			term:      "b",
			wantKinds: []ClauseKind{ClausePhrase, ClausePrefix},
		},
		{
			name:      "two runes get exact and prefix",
			term:      "ba",
			wantKinds: []ClauseKind{ClausePhrase, ClausePrefix},
		},
		{
			name:      "three runes add contains",
			term:      "bak",
			wantKinds: []ClauseKind{ClausePhrase, ClausePrefix, ClauseContains},
		},
		{
			name:      "four runes add fuzzy",
			term:      "bake",
			wantKinds: []ClauseKind{ClausePhrase, ClausePrefix, ClauseContains, ClauseFuzzy},
		},
		{
			name:      "length counts runes not bytes",
			term:      "éé",
			wantKinds: []ClauseKind{ClausePhrase, ClausePrefix},
		},
		{
			name:      "surrounding whitespace is ignored",
			term:      "  ba  ",
			wantKinds: []ClauseKind{ClausePhrase, ClausePrefix},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := BuildMatch(tt.term)

			kinds := make([]ClauseKind, 0, len(expr.Clauses))
			for _, c := range expr.Clauses {
				kinds = append(kinds, c.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds)
			assert.Equal(t, 1, expr.MinShouldMatch)
			assert.False(t, expr.MatchAll())
		})
	}
}

func TestBuildMatch_BoostsAndTerms(t *testing.T) {
	// Given: a mixed-case term long enough for every clause
	expr := BuildMatch(" Sunny Bakery ")

	// Then: each clause carries its documented boost
	require.Len(t, expr.Clauses, 4)

	phrase := expr.Clauses[0]
	assert.Equal(t, ClausePhrase, phrase.Kind)
	assert.Equal(t, "Sunny Bakery", phrase.Term)
	assert.Equal(t, PhraseBoost, phrase.Boost)

	prefix := expr.Clauses[1]
	assert.Equal(t, "sunny bakery", prefix.Term)
	assert.Equal(t, PrefixBoost, prefix.Boost)

	contains := expr.Clauses[2]
	assert.Equal(t, "sunny bakery", contains.Term)
	assert.Equal(t, ContainsBoost, contains.Boost)

	fuzzy := expr.Clauses[3]
	assert.Equal(t, FuzzyBoost, fuzzy.Boost)
	assert.Equal(t, 1, fuzzy.Fuzziness)

	// And: exact outranks prefix outranks contains outranks fuzzy
	assert.Greater(t, phrase.Boost, prefix.Boost)
	assert.Greater(t, prefix.Boost, contains.Boost)
	assert.Greater(t, contains.Boost, fuzzy.Boost)
}

func TestBuildMatch_EmptyTermMatchesAll(t *testing.T) {
	for _, term := range []string{"", "   ", "\t\n"} {
		expr := BuildMatch(term)

		assert.True(t, expr.MatchAll(), "term %q", term)
		assert.False(t, expr.Has(ClausePhrase))
	}
}

func TestBuildMatch_IsPure(t *testing.T) {
	assert.Equal(t, BuildMatch("coffee"), BuildMatch("coffee"))
}

func TestClauseKind_String(t *testing.T) {
	assert.Equal(t, "phrase", ClausePhrase.String())
	assert.Equal(t, "contains", ClauseContains.String())
	assert.Equal(t, "unknown", ClauseKind(99).String())
}
