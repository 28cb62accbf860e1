package tablestate

import (
	"fmt"
	"strconv"

	"corpusdash/internal/domain"
)

const (
	KeyTimestamp = "timestamp"
	KeyID        = "_id"
	KeyPosition  = "position"
)

// RowKeys picks a stable identity for every row of a page: timestamp when it
// is present and unique, else _id under the same rule, else the absolute
// row position.
func RowKeys(rows []domain.Row, start int) ([]string, string) {
	for _, field := range []string{KeyTimestamp, KeyID} {
		if keys, ok := uniqueKeys(rows, field); ok {
			return keys, field
		}
	}
	keys := make([]string, len(rows))
	for i := range rows {
		keys[i] = strconv.Itoa(start + i)
	}
	return keys, KeyPosition
}

func uniqueKeys(rows []domain.Row, field string) ([]string, bool) {
	keys := make([]string, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		v, ok := row[field]
		if !ok || v == nil {
			return nil, false
		}
		k := fmt.Sprint(v)
		if k == "" || seen[k] {
			return nil, false
		}
		seen[k] = true
		keys[i] = k
	}
	return keys, true
}
