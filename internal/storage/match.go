package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSortField orders documents when a Query names none.
const DefaultSortField = "createdAt"

// MatchJSON reports whether the JSON document satisfies every entry of
// filter.
func MatchJSON(doc []byte, filter Filter) bool {
	for field, want := range filter {
		got := gjson.GetBytes(doc, field)
		switch w := want.(type) {
		case string:
			if got.String() != w {
				return false
			}
		case bool:
			if (got.Type != gjson.True && got.Type != gjson.False) || got.Bool() != w {
				return false
			}
		case int:
			if got.Type != gjson.Number || got.Int() != int64(w) {
				return false
			}
		case int64:
			if got.Type != gjson.Number || got.Int() != w {
				return false
			}
		case primitive.ObjectID:
			if got.String() != w.Hex() {
				return false
			}
		default:
			if got.String() != fmt.Sprint(w) {
				return false
			}
		}
	}
	return true
}

// SearchJSON reports whether field contains every word of term,
// case-insensitively. An empty term matches everything.
func SearchJSON(doc []byte, field, term string) bool {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return true
	}
	text := strings.ToLower(gjson.GetBytes(doc, field).String())
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// CompareJSON orders two documents by field. Timestamps compare as times,
// numbers as numbers, everything else as strings.
func CompareJSON(a, b []byte, field string) int {
	va, vb := gjson.GetBytes(a, field), gjson.GetBytes(b, field)

	if va.Type == gjson.Number && vb.Type == gjson.Number {
		return cmpOrdered(va.Float(), vb.Float())
	}
	ta, errA := time.Parse(time.RFC3339Nano, va.String())
	tb, errB := time.Parse(time.RFC3339Nano, vb.String())
	if errA == nil && errB == nil {
		return ta.Compare(tb)
	}
	return strings.Compare(va.String(), vb.String())
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Page applies skip and limit to n items, returning the slice bounds.
func Page(n int, skip, limit int64) (int, int) {
	start := min(max(int(skip), 0), n)
	end := n
	if limit > 0 {
		end = min(start+int(limit), n)
	}
	return start, end
}
