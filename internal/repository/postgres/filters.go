package postgres

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/replenish/internal/domain"
)

// buildSuggestionFilterClause constructs SQL filter clauses for suggestion listings
func buildSuggestionFilterClause(filter domain.SuggestionFilter, alias string, startIndex int) (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	alias = normalizeAlias(alias)
	idx := startIndex

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", idx)
			args = append(args, string(st))
			idx++
		}
		clauses = append(clauses, fmt.Sprintf("%sstatus IN (%s)", alias, strings.Join(placeholders, ",")))
	}

	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, u := range filter.Urgencies {
			placeholders[i] = fmt.Sprintf("$%d", idx)
			args = append(args, string(u))
			idx++
		}
		clauses = append(clauses, fmt.Sprintf("%surgency IN (%s)", alias, strings.Join(placeholders, ",")))
	}

	if filter.LocationID != "" {
		clauses = append(clauses, fmt.Sprintf("%sdestination_location_id = $%d", alias, idx))
		args = append(args, filter.LocationID)
		idx++
	}

	if filter.ProductID != "" {
		clauses = append(clauses, fmt.Sprintf("%sproduct_id = $%d", alias, idx))
		args = append(args, filter.ProductID)
		idx++
	}

	if filter.Type != "" {
		clauses = append(clauses, fmt.Sprintf("%ssuggestion_type = $%d", alias, idx))
		args = append(args, string(filter.Type))
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return " AND " + strings.Join(clauses, " AND "), args
}

func normalizeAlias(alias string) string {
	if alias == "" {
		return ""
	}
	if !strings.HasSuffix(alias, ".") {
		return alias + "."
	}
	return alias
}

// urgencyRankCase orders urgency tiers the way the ranking does, most urgent first
func urgencyRankCase(alias string) string {
	return fmt.Sprintf(`CASE %[1]surgency
	        WHEN 'critical' THEN 0
	        WHEN 'warning' THEN 1
	        WHEN 'planned' THEN 2
	        ELSE 3
	    END`, normalizeAlias(alias))
}
