package core

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// ValidateProjection checks that every requested column belongs to t. An
// empty projection means all columns and always passes. All unknown names
// are reported, in request order, without duplicates.
func ValidateProjection(columns []string, t schema.Table) error {
	var unknown []string
	seen := make(map[string]bool)
	for _, c := range columns {
		if t.HasColumn(c) || seen[c] {
			continue
		}
		seen[c] = true
		unknown = append(unknown, c)
	}
	if len(unknown) > 0 {
		return &InvalidProjectionError{Table: t.Name, Unknown: unknown}
	}
	return nil
}

// validateRow checks the keys of a row being written. The identity column is
// assigned by the store and may not be written.
func validateRow(t schema.Table, row map[string]any) error {
	var unknown []string
	for col := range row {
		if col == schema.IDColumn || !t.HasColumn(col) {
			unknown = append(unknown, col)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return &InvalidProjectionError{Table: t.Name, Unknown: unknown}
	}
	return nil
}

// validateOrder parses "col [ASC|DESC], ..." and renders it with quoted
// identifiers. Anything else is rejected.
func validateOrder(t schema.Table, orderBy string, quote func(string) string) (string, error) {
	if strings.TrimSpace(orderBy) == "" {
		return "", nil
	}

	var terms []string
	var unknown []string
	for _, raw := range strings.Split(orderBy, ",") {
		fields := strings.Fields(raw)
		if len(fields) == 0 || len(fields) > 2 {
			unknown = append(unknown, strings.TrimSpace(raw))
			continue
		}

		col := fields[0]
		if !t.HasColumn(col) {
			unknown = append(unknown, col)
			continue
		}

		term := quote(col)
		if len(fields) == 2 {
			switch dir := strings.ToUpper(fields[1]); dir {
			case "ASC", "DESC":
				term += " " + dir
			default:
				unknown = append(unknown, strings.TrimSpace(raw))
				continue
			}
		}
		terms = append(terms, term)
	}

	if len(unknown) > 0 {
		return "", &InvalidProjectionError{Table: t.Name, Unknown: unknown}
	}
	return strings.Join(terms, ", "), nil
}
