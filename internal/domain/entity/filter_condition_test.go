package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFilterCondition_AcceptsValidPredicates(t *testing.T) {
	tests := []struct {
		name      string
		condition string
	}{
		{"empty condition", ""},
		{"whitespace-only condition", "   "},
		{"domain exclusion", "source_domain <> 'spam.example'"},
		{"click threshold", "click_count > 10"},
		{"compound predicate", "source_domain = 'news.example' AND click_count >= 0"},
		{"published window", "published_at > now() - interval '7 days'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, ValidateFilterCondition(tt.condition))
		})
	}
}

func TestValidateFilterCondition_RejectsStatementBreakers(t *testing.T) {
	tests := []struct {
		name      string
		condition string
	}{
		{"semicolon", "1=1; TRUNCATE news.articles"},
		{"line comment", "click_count > 0 -- hide the rest"},
		{"block comment open", "click_count > 0 /* sneaky"},
		{"block comment close", "sneaky */ click_count > 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateFilterCondition(tt.condition))
		})
	}
}

func TestValidateFilterCondition_RejectsPositionalPlaceholders(t *testing.T) {
	tests := []struct {
		name      string
		condition string
	}{
		{"first placeholder", "source_domain = $1"},
		{"second placeholder", "click_count > $2"},
		{"multi-digit placeholder", "source_domain = $23"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilterCondition(tt.condition)
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "filter_condition", validationErr.Field)
			assert.Contains(t, validationErr.Message, "positional placeholders")
		})
	}
}

func TestValidateFilterCondition_RejectsDMLKeywords(t *testing.T) {
	tests := []struct {
		name      string
		condition string
	}{
		{"drop lowercase", "drop news.articles"},
		{"drop uppercase", "1=1 OR DROP TABLE articles"},
		{"alter", "ALTER TABLE articles"},
		{"insert", "insert into articles values (1)"},
		{"update mixed case", "UpDaTe articles set title = 'x'"},
		{"delete", "delete from articles"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilterCondition(tt.condition)
			require.Error(t, err)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, "filter_condition", validationErr.Field)
		})
	}
}

func TestValidateFilterCondition_KeywordMatchIsSubstring(t *testing.T) {
	// The keyword scan is a plain substring match, so a column name that
	// embeds a keyword is rejected too. Predicates must be written against
	// columns that avoid the denylisted words (published_at, not updated_at).
	assert.Error(t, ValidateFilterCondition("updated_at > now()"))
}
