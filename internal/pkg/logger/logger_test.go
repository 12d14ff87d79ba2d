package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &out))
	return out
}

func TestWithFields_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf)

	log.WithFields(map[string]interface{}{
		"user_id":       "user-1",
		"access_token":  "eyJhbGciOi",
		"refresh_token": "r-123",
		"Password":      "hunter2",
		"anon_key":      "anon",
	}).With("Authorization", "Bearer eyJ").Info("Session started")

	line := lastLine(t, &buf)
	assert.Equal(t, "user-1", line["user_id"])
	for _, k := range []string{"access_token", "refresh_token", "Password", "anon_key", "Authorization"} {
		assert.Equal(t, Redacted, line[k], k)
	}
	assert.NotContains(t, buf.String(), "hunter2")
}

func TestSensitive(t *testing.T) {
	tests := map[string]bool{
		"password":        true,
		"jwt_secret":      true,
		"X-Api-Key":       false,
		"apikey":          true,
		"email":           false,
		"alert_id":        false,
		"token_type":      true,
		"request_id":      false,
		"HAWK_ANON_KEY":   true,
		"Authorization":   true,
		"notification_id": false,
	}
	for key, want := range tests {
		assert.Equal(t, want, Sensitive(key), key)
	}
}

func TestLevelIsPerLogger(t *testing.T) {
	var quiet, loud bytes.Buffer
	q := New(Config{Level: "error", OutputPath: "stderr"})
	q.logger = q.logger.Output(&quiet)
	l := NewWriter(&loud)

	q.Info("dropped")
	l.Debug("kept")
	q.ErrorWithErr(errors.New("boom"), "kept too")

	assert.NotContains(t, quiet.String(), "dropped")
	assert.Contains(t, quiet.String(), "boom")
	assert.Contains(t, loud.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "debug", parseLevel("DEBUG").String())
	assert.Equal(t, "warn", parseLevel(" warn ").String())
	assert.Equal(t, "info", parseLevel("").String())
	assert.Equal(t, "info", parseLevel("verbose").String())
}

func TestContextRoundTrip(t *testing.T) {
	fallback := NewNop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	var buf bytes.Buffer
	reqLog := NewWriter(&buf).With("request_id", "req-1")
	ctx := reqLog.IntoContext(context.Background())
	FromContext(ctx, fallback).Warn("Slow backend")

	assert.Equal(t, "req-1", lastLine(t, &buf)["request_id"])
}
