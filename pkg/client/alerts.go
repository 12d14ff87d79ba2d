package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// AlertService handles alert-related API calls
type AlertService struct {
	client *Client
}

// AlertListOptions contains options for listing alerts
type AlertListOptions struct {
	Search     string
	Severities []string // critical, high, medium, low
	Statuses   []string // new, acknowledged, resolved
	Page       int
	PageSize   int
}

// List retrieves one page of the filtered alerts, newest first
func (s *AlertService) List(ctx context.Context, opts *AlertListOptions) (*AlertPage, error) {
	query := url.Values{}

	if opts != nil {
		if opts.Search != "" {
			query.Set("search", opts.Search)
		}
		if len(opts.Severities) > 0 {
			query.Set("severity", strings.Join(opts.Severities, ","))
		}
		if len(opts.Statuses) > 0 {
			query.Set("status", strings.Join(opts.Statuses, ","))
		}
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.PageSize > 0 {
			query.Set("page_size", strconv.Itoa(opts.PageSize))
		}
	}

	path := "/api/v1/alerts"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var page AlertPage
	if err := s.client.doRequest(ctx, "GET", path, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// Refresh makes the server reload the alerts from the backend and returns
// how many it now holds
func (s *AlertService) Refresh(ctx context.Context) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := s.client.doRequest(ctx, "POST", "/api/v1/alerts/refresh", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// UpdateStatus sets the status of an alert
func (s *AlertService) UpdateStatus(ctx context.Context, id, status string) (*Alert, error) {
	path := fmt.Sprintf("/api/v1/alerts/%s/status", url.PathEscape(id))

	var alert Alert
	if err := s.client.doRequest(ctx, "PATCH", path, map[string]string{"status": status}, &alert); err != nil {
		return nil, err
	}

	return &alert, nil
}

// Acknowledge acknowledges an alert
func (s *AlertService) Acknowledge(ctx context.Context, id string) (*Alert, error) {
	return s.UpdateStatus(ctx, id, "acknowledged")
}

// Resolve resolves an alert
func (s *AlertService) Resolve(ctx context.Context, id string) (*Alert, error) {
	return s.UpdateStatus(ctx, id, "resolved")
}

// Reopen moves an alert back to new
func (s *AlertService) Reopen(ctx context.Context, id string) (*Alert, error) {
	return s.UpdateStatus(ctx, id, "new")
}

// Recommendations retrieves the remediation advice for an alert
func (s *AlertService) Recommendations(ctx context.Context, id string) (*Recommendations, error) {
	path := fmt.Sprintf("/api/v1/alerts/%s/recommendations", url.PathEscape(id))

	var recs Recommendations
	if err := s.client.doRequest(ctx, "GET", path, nil, &recs); err != nil {
		return nil, err
	}
	return &recs, nil
}

// Risk retrieves the risk score of an alert. Empty criticality uses the
// server default.
func (s *AlertService) Risk(ctx context.Context, id, criticality string) (*Risk, error) {
	path := fmt.Sprintf("/api/v1/alerts/%s/risk", url.PathEscape(id))
	if criticality != "" {
		path += "?" + url.Values{"criticality": {criticality}}.Encode()
	}

	var risk Risk
	if err := s.client.doRequest(ctx, "GET", path, nil, &risk); err != nil {
		return nil, err
	}
	return &risk, nil
}
