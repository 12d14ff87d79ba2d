package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// functionEnvelope captures the failure fields remote functions put in
// their JSON body.
type functionEnvelope struct {
	Success   *bool           `json:"success"`
	Error     json.RawMessage `json:"error"`
	ErrorType string          `json:"errorType"`
	Message   string          `json:"message"`
}

func (e functionEnvelope) errorText() string {
	if len(e.Error) == 0 || string(e.Error) == "null" {
		return e.Message
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(e.Error)
}

// Invoke calls the named remote function with a JSON body and decodes the
// JSON result into dest. A non-2xx status, or a body reporting
// success=false, yields a RemoteFunctionError; 401 yields an AuthError.
func (c *Client) Invoke(ctx context.Context, name string, body interface{}, dest interface{}) error {
	if body == nil {
		body = map[string]interface{}{}
	}
	resp, err := c.send(ctx, request{
		kind:   "function",
		target: name,
		method: http.MethodPost,
		path:   "/functions/v1/" + url.PathEscape(name),
		body:   body,
	})
	if err != nil {
		return err
	}

	var env functionEnvelope
	_ = json.Unmarshal(resp.body, &env)

	if resp.status == http.StatusUnauthorized {
		return &AuthError{StatusCode: resp.status, Message: firstNonEmpty(env.errorText(), "function rejected the session")}
	}

	if resp.status >= 400 {
		return &RemoteFunctionError{
			Function:   name,
			StatusCode: resp.status,
			ErrorType:  env.ErrorType,
			Message:    firstNonEmpty(env.errorText(), strings.TrimSpace(string(resp.body)), http.StatusText(resp.status)),
		}
	}

	if env.Success != nil && !*env.Success {
		return &RemoteFunctionError{
			Function:   name,
			StatusCode: resp.status,
			ErrorType:  env.ErrorType,
			Message:    env.errorText(),
		}
	}

	if dest != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, dest); err != nil {
			return fmt.Errorf("failed to parse %s response: %w", name, err)
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
