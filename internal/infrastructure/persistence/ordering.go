package persistence

import (
	"strings"
)

// sortSpec whitelists the columns a list may be ordered by. Client input
// never reaches the ORDER BY clause unless it matches a listed column.
type sortSpec struct {
	columns  map[string]bool
	fallback string
}

var productSort = sortSpec{
	columns: map[string]bool{
		"id":          true,
		"created_at":  true,
		"updated_at":  true,
		"name":        true,
		"sku":         true,
		"price":       true,
		"category_id": true,
		"status":      true,
	},
	fallback: "created_at",
}

// clause builds "<column> <dir>, id <dir>". The id tie-break keeps pages
// stable when the column has duplicates. Without an explicit column the
// fallback is sorted newest first.
func (s sortSpec) clause(by, dir string) string {
	column := strings.TrimSpace(by)
	direction := "DESC"
	if column == "" || !s.columns[column] {
		column = s.fallback
	} else if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		direction = "ASC"
	}
	return column + " " + direction + ", id " + direction
}
