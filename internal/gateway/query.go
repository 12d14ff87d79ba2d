package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query describes the row selection of a collection call: columns,
// predicates, ordering and limit. All predicates are ANDed.
type Query struct {
	columns string
	filters []filter
	order   []string
	limit   int
}

type filter struct {
	column string
	expr   string
}

// NewQuery returns a query selecting all columns
func NewQuery() *Query {
	return &Query{columns: "*"}
}

// Select sets the column list, e.g. "system,severity,status"
func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

// Eq adds column = value
func (q *Query) Eq(column string, value interface{}) *Query {
	return q.add(column, "eq."+formatValue(value))
}

// Neq adds column <> value
func (q *Query) Neq(column string, value interface{}) *Query {
	return q.add(column, "neq."+formatValue(value))
}

// Is adds column IS value, where value is nil, true or false
func (q *Query) Is(column string, value interface{}) *Query {
	if value == nil {
		return q.add(column, "is.null")
	}
	return q.add(column, "is."+formatValue(value))
}

// In adds column IN (values...)
func (q *Query) In(column string, values ...string) *Query {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = quoteListValue(v)
	}
	return q.add(column, "in.("+strings.Join(quoted, ",")+")")
}

// ILike adds a case-insensitive pattern match; use * as wildcard
func (q *Query) ILike(column, pattern string) *Query {
	return q.add(column, "ilike."+pattern)
}

// Order appends an ordering column
func (q *Query) Order(column string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

// Limit caps the number of returned rows; zero means no limit
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// HasFilters reports whether at least one predicate is set
func (q *Query) HasFilters() bool {
	return q != nil && len(q.filters) > 0
}

// Values encodes the query as URL parameters
func (q *Query) Values() url.Values {
	v := url.Values{}
	if q == nil {
		v.Set("select", "*")
		return v
	}
	if q.columns != "" {
		v.Set("select", q.columns)
	}
	for _, f := range q.filters {
		v.Add(f.column, f.expr)
	}
	if len(q.order) > 0 {
		v.Set("order", strings.Join(q.order, ","))
	}
	if q.limit > 0 {
		v.Set("limit", strconv.Itoa(q.limit))
	}
	return v
}

// filterValues encodes only the predicates, for PATCH and DELETE.
func (q *Query) filterValues() url.Values {
	v := url.Values{}
	if q == nil {
		return v
	}
	for _, f := range q.filters {
		v.Add(f.column, f.expr)
	}
	return v
}

func (q *Query) add(column, expr string) *Query {
	q.filters = append(q.filters, filter{column: column, expr: expr})
	return q
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func quoteListValue(v string) string {
	if strings.ContainsAny(v, ",().:\" ") {
		return `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return v
}
