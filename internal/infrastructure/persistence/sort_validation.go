package persistence

import "strings"

// sortClause builds an ORDER BY expression from untrusted query parameters.
// Field names are checked against an allowlist so caller input never reaches
// the SQL string directly, and the direction collapses to ASC or DESC.
func sortClause(field, direction string, allowed map[string]bool, fallback string) string {
	return sortField(field, allowed, fallback) + " " + sortDirection(direction)
}

func sortField(field string, allowed map[string]bool, fallback string) string {
	field = strings.TrimSpace(field)
	if field != "" && allowed[field] {
		return field
	}
	return fallback
}

func sortDirection(direction string) string {
	if strings.EqualFold(strings.TrimSpace(direction), "asc") {
		return "ASC"
	}
	return "DESC"
}
