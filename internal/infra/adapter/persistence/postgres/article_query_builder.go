package postgres

import (
	"fmt"
	"strings"
	"time"
)

// buildArticleFilterClause builds the WHERE clause and bind arguments shared
// between ListArticles' row query and its COUNT(*) companion: an optional
// published_at range plus a case-insensitive title substring match. Returns
// an empty clause and nil args when no filter is set.
func buildArticleFilterClause(from, to *time.Time, keyword string) (clause string, args []interface{}) {
	var conditions []string
	paramIndex := 1

	if from != nil {
		conditions = append(conditions, fmt.Sprintf("published_at >= $%d", paramIndex))
		args = append(args, *from)
		paramIndex++
	}
	if to != nil {
		conditions = append(conditions, fmt.Sprintf("published_at <= $%d", paramIndex))
		args = append(args, *to)
		paramIndex++
	}
	if keyword != "" {
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", paramIndex))
		args = append(args, "%"+escapeILIKE(keyword)+"%")
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// escapeILIKE escapes ILIKE wildcard characters so a keyword containing them
// is matched literally.
func escapeILIKE(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
