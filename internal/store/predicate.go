package store

import (
	"strings"

	"github.com/Aman-CERP/shopsearch/internal/search"
	"github.com/Aman-CERP/shopsearch/internal/shop"
)

// searchCriteriaAll matches every shop.
var searchCriteriaAll = search.Criteria{}

// likeEscaper escapes LIKE metacharacters with a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// predicate is a conjunction of SQL conditions with their arguments.
type predicate struct {
	conds []string
	args  []any
}

func (p *predicate) add(cond string, args ...any) {
	p.conds = append(p.conds, cond)
	p.args = append(p.args, args...)
}

// where renders the WHERE clause, or "" when nothing is constrained.
func (p predicate) where() string {
	if len(p.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(p.conds, " AND ")
}

// buildPredicate composes every optional constraint of c into one
// conjunction. Absent constraints contribute nothing.
func buildPredicate(c search.Criteria) predicate {
	var p predicate

	if name := strings.TrimSpace(c.NameContains); name != "" {
		p.add(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(name))+"%")
	}
	if c.InVacations != nil {
		p.add("in_vacations = ?", *c.InVacations)
	}
	if c.CreatedAfter != nil {
		p.add("created_at >= ?", shop.FormatDate(*c.CreatedAfter))
	}
	if c.CreatedBefore != nil {
		p.add("created_at <= ?", shop.FormatDate(*c.CreatedBefore))
	}
	return p
}

// orderBy renders the ORDER BY clause for key. Relevance without a score
// ranks exact name matches, then prefixes, then other substrings. Every
// order ends with id.
func orderBy(key shop.SortKey, name string) (string, []any) {
	switch key {
	case shop.SortName:
		return " ORDER BY LOWER(name), id", nil
	case shop.SortCreatedAt:
		return " ORDER BY created_at, id", nil
	case shop.SortNbProducts:
		return " ORDER BY nb_products, id", nil
	case shop.SortRelevance:
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			return " ORDER BY id", nil
		}
		return ` ORDER BY CASE WHEN LOWER(name) = ? THEN 0 WHEN LOWER(name) LIKE ? ESCAPE '\' THEN 1 ELSE 2 END, id`,
			[]any{lower, likeEscaper.Replace(lower) + "%"}
	default:
		return " ORDER BY id", nil
	}
}
