// Package normalize maps raw backend rows into typed records and back.
// Every function is pure and total: missing or mistyped optional fields
// become zero values or nil rather than errors.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is a raw backend record
type Row = map[string]interface{}

// timeLayouts are tried in order by ParseTime
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseTime reads a timestamp in any of the formats the backend emits.
// Values without a zone are taken as UTC.
func ParseTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, true
			}
		}
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(t)).UTC(), true
	}
	return time.Time{}, false
}

func str(row Row, key string) string {
	switch v := row[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func optStr(row Row, key string) *string {
	v, ok := row[key]
	if !ok || v == nil {
		return nil
	}
	s := str(row, key)
	return &s
}

func boolean(row Row, key string) bool {
	switch v := row[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	case float64:
		return v != 0
	}
	return false
}

func integer(row Row, key string) int {
	switch v := row[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		return n
	}
	return 0
}

func timestamp(row Row, key string) time.Time {
	t, _ := ParseTime(row[key])
	return t
}

func optTime(row Row, key string) *time.Time {
	t, ok := ParseTime(row[key])
	if !ok {
		return nil
	}
	return &t
}

// object returns a JSON object field, decoding it when the backend sent
// it as an encoded string.
func object(row Row, key string) (map[string]interface{}, error) {
	switch v := row[key].(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return v, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%s is not a JSON object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%s has unexpected type %T", key, v)
	}
}
