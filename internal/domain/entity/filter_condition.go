package entity

import (
	"regexp"
	"strings"
)

// filterConditionKeywords are DML/DDL keywords forbidden anywhere in a
// filter_condition, matched case-insensitively as substrings.
var filterConditionKeywords = []string{"drop", "alter", "insert", "update", "delete"}

// positionalPlaceholder matches a SQL positional placeholder ($1, $2, ...),
// which a filter_condition must never contain: it is spliced verbatim into
// a DELETE ... WHERE NOT (...) statement with no parameter binding.
var positionalPlaceholder = regexp.MustCompile(`\$[0-9]+`)

// ValidateFilterCondition checks condition against the syntactic denylist
// gating admin-authored predicates before they are ever interpolated into a
// DELETE ... WHERE NOT (...) statement: no statement separators, no comment
// delimiters, no DML/DDL keywords, and no positional placeholders.
//
// This is not a SQL parser. The predicate is written by an admin, and the
// denylist only screens for statement-breaking constructs; it does not make
// an arbitrary predicate safe against a determined admin.
func ValidateFilterCondition(condition string) error {
	trimmed := strings.TrimSpace(condition)
	if trimmed == "" {
		return nil
	}

	if strings.Contains(trimmed, ";") {
		return &ValidationError{Field: "filter_condition", Message: "must not contain ';'"}
	}
	if strings.Contains(trimmed, "--") {
		return &ValidationError{Field: "filter_condition", Message: "must not contain '--'"}
	}
	if strings.Contains(trimmed, "/*") || strings.Contains(trimmed, "*/") {
		return &ValidationError{Field: "filter_condition", Message: "must not contain block comments"}
	}
	if positionalPlaceholder.MatchString(trimmed) {
		return &ValidationError{Field: "filter_condition", Message: "must not contain positional placeholders"}
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range filterConditionKeywords {
		if strings.Contains(lower, kw) {
			return &ValidationError{Field: "filter_condition", Message: "must not contain keyword '" + kw + "'"}
		}
	}

	return nil
}
