package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ProgressService handles remediation progress API calls
type ProgressService struct {
	client *Client
}

func progressPath(alertID string) string {
	return fmt.Sprintf("/api/v1/alerts/%s/progress", url.PathEscape(alertID))
}

// Get retrieves the progress of an alert. A positive total overrides the
// step count used for the percentage.
func (s *ProgressService) Get(ctx context.Context, alertID string, total int) (*Progress, error) {
	path := progressPath(alertID)
	if total > 0 {
		path += "?total=" + strconv.Itoa(total)
	}

	var p Progress
	if err := s.client.doRequest(ctx, "GET", path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ToggleStep flips the completion of one step
func (s *ProgressService) ToggleStep(ctx context.Context, alertID string, step int) (*Progress, error) {
	path := progressPath(alertID) + "/steps/" + strconv.Itoa(step)

	var p Progress
	if err := s.client.doRequest(ctx, "POST", path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SelectTemplate records the template followed for an alert
func (s *ProgressService) SelectTemplate(ctx context.Context, alertID, templateID string) (*Progress, error) {
	body := map[string]string{"templateId": templateID}

	var p Progress
	if err := s.client.doRequest(ctx, "PUT", progressPath(alertID)+"/template", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Reset forgets the progress of an alert
func (s *ProgressService) Reset(ctx context.Context, alertID string) error {
	return s.client.doRequest(ctx, "DELETE", progressPath(alertID), nil, nil)
}

// Templates lists the solution templates. category and severity are
// optional filters; category wins when both are set.
func (s *ProgressService) Templates(ctx context.Context, category, severity string) ([]Template, error) {
	query := url.Values{}
	if category != "" {
		query.Set("category", category)
	}
	if severity != "" {
		query.Set("severity", severity)
	}

	path := "/api/v1/solution-templates"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var out []Template
	if err := s.client.doRequest(ctx, "GET", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
