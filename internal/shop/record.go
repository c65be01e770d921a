// Package shop defines the searchable shop record and the query contract
// shared by the planner, the full-text index and the relational store.
package shop

import (
	"time"
)

// DateLayout is the calendar date format used on every external surface.
const DateLayout = "2006-01-02"

// MaxNameLength is the longest shop name accepted by the write path.
const MaxNameLength = 255

// Record is the read-only view of a shop used for querying.
type Record struct {
	ID          int64     `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	CreatedAt   time.Time `json:"createdAt" yaml:"created_at"`
	InVacations bool      `json:"inVacations" yaml:"in_vacations"`

	// Derived by the store on every read.
	NbProducts   int64 `json:"nbProducts" yaml:"nb_products"`
	NbCategories int64 `json:"nbCategories" yaml:"nb_categories"`
}

// ParseDate parses a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
