package gateway

import (
	"context"
	"net/http"
	"net/url"
)

const (
	acceptObject     = "application/vnd.pgrst.object+json"
	preferReturnRows = "return=representation"
	preferMinimal    = "return=minimal"
)

// Row is a raw record as returned by the backend
type Row = map[string]interface{}

func tablePath(table string) string {
	return "/rest/v1/" + url.PathEscape(table)
}

// Fetch reads rows of table matching q into dest, which is usually a
// pointer to a slice.
func (c *Client) Fetch(ctx context.Context, table string, q *Query, dest interface{}) error {
	return c.doREST(ctx, request{
		target: table,
		method: http.MethodGet,
		path:   tablePath(table),
		query:  q.Values(),
	}, dest)
}

// FetchOne reads exactly one row. When nothing matches, the returned error
// satisfies IsNoRows.
func (c *Client) FetchOne(ctx context.Context, table string, q *Query, dest interface{}) error {
	return c.doREST(ctx, request{
		target:  table,
		method:  http.MethodGet,
		path:    tablePath(table),
		query:   q.Values(),
		headers: map[string]string{"Accept": acceptObject},
	}, dest)
}

// Insert adds one row (or a slice of rows) and decodes the stored rows
// into dest when dest is non-nil.
func (c *Client) Insert(ctx context.Context, table string, payload interface{}, dest interface{}) error {
	prefer := preferMinimal
	if dest != nil {
		prefer = preferReturnRows
	}
	return c.doREST(ctx, request{
		target:  table,
		method:  http.MethodPost,
		path:    tablePath(table),
		body:    payload,
		headers: map[string]string{"Prefer": prefer},
	}, dest)
}

// Update applies patch to every row matching q. q must carry a filter.
func (c *Client) Update(ctx context.Context, table string, q *Query, patch interface{}, dest interface{}) error {
	if !q.HasFilters() {
		return ErrUnfilteredMutation
	}
	prefer := preferMinimal
	if dest != nil {
		prefer = preferReturnRows
	}
	return c.doREST(ctx, request{
		target:  table,
		method:  http.MethodPatch,
		path:    tablePath(table),
		query:   q.filterValues(),
		body:    patch,
		headers: map[string]string{"Prefer": prefer},
	}, dest)
}

// Delete removes every row matching q. q must carry a filter.
func (c *Client) Delete(ctx context.Context, table string, q *Query) error {
	if !q.HasFilters() {
		return ErrUnfilteredMutation
	}
	return c.doREST(ctx, request{
		target: table,
		method: http.MethodDelete,
		path:   tablePath(table),
		query:  q.filterValues(),
	}, nil)
}
