package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrVersionConflict is returned by versioned updates when the row changed
// since it was loaded.
var ErrVersionConflict = errors.New("record was modified concurrently")

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RecordRef identifies a record for batch jobs that span tenants.
type RecordRef struct {
	ID       string
	TenantID string
}

// Page is the pagination part of a list filter.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

func (p Page) offset() int {
	return (p.Page - 1) * p.Limit
}

// orderClause builds an ORDER BY from a whitelisted column and direction.
// Unknown columns fall back to fallback.
func orderClause(sortBy, sortOrder string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction + ", id " + direction
}

// searchPattern returns a lowercase LIKE pattern with wildcards escaped.
func searchPattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
