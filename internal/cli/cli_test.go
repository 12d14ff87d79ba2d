package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/solution"
	"github.com/hawksec/hawk/internal/gateway"
)

// isolate points the CLI at an empty config in a temp home
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("HAWK_BACKEND_URL", "")
	t.Setenv("HAWK_BACKEND_ANON_KEY", "")

	viper.Reset()
	cfgFile = filepath.Join(home, ".hawk", "config.yaml")
	outputFormat = ""
	setDefaults()
	t.Cleanup(func() {
		viper.Reset()
		cfgFile = ""
		outputFormat = ""
	})
}

func TestTableRender(t *testing.T) {
	var buf bytes.Buffer
	tbl := newTable(&buf, "ID", "TITLE")
	tbl.row("a1", "OpenSSL")
	tbl.row("a22", "nginx")
	require.NoError(t, tbl.flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID   TITLE", lines[0])
	assert.Equal(t, "--   -----", lines[1])
	assert.Equal(t, "a22  nginx", lines[3])
}

func TestPrintOutput(t *testing.T) {
	isolate(t)
	data := map[string]interface{}{"unreadCount": 2}

	var buf bytes.Buffer
	outputFormat = "json"
	require.NoError(t, printOutput(&buf, data))
	assert.JSONEq(t, `{"unreadCount": 2}`, buf.String())

	buf.Reset()
	outputFormat = "yaml"
	require.NoError(t, printOutput(&buf, solution.Template{ID: "web-xss-mitigation"}))
	assert.Contains(t, buf.String(), "id: web-xss-mitigation")
}

func TestAlertFilterFlags(t *testing.T) {
	tests := []struct {
		name    string
		flags   alertFilterFlags
		want    alert.Filter
		wantErr bool
	}{
		{
			name:  "empty",
			flags: alertFilterFlags{},
			want:  alert.Filter{},
		},
		{
			name:  "all is skipped",
			flags: alertFilterFlags{search: "ssl", severities: []string{"all", "HIGH"}, statuses: []string{"new"}},
			want:  alert.Filter{Search: "ssl", Severities: []alert.Severity{alert.SeverityHigh}, Statuses: []alert.Status{alert.StatusNew}},
		},
		{
			name:    "unknown severity",
			flags:   alertFilterFlags{severities: []string{"urgent"}},
			wantErr: true,
		},
		{
			name:    "unknown status",
			flags:   alertFilterFlags{statuses: []string{"closed"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.flags.filter()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionRoundTrip(t *testing.T) {
	isolate(t)

	saved := &gateway.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    1893456000,
		User:         gateway.User{ID: "user-1", Email: "dana@example.com"},
	}
	require.NoError(t, saveSession(saved))

	viper.Reset()
	viper.SetConfigFile(cfgFile)
	require.NoError(t, viper.ReadInConfig())

	got := storedSession()
	assert.Equal(t, saved.AccessToken, got.AccessToken)
	assert.Equal(t, saved.RefreshToken, got.RefreshToken)
	assert.Equal(t, saved.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, saved.User.ID, got.User.ID)
	assert.Equal(t, saved.User.Email, got.User.Email)

	require.NoError(t, clearSession())
	assert.False(t, storedSession().Active())
}

func TestOpenSessionRequiresSignIn(t *testing.T) {
	isolate(t)
	_, _, err := openSession(context.Background())
	assert.ErrorIs(t, err, errNotSignedIn)
}

func TestLoadConfig(t *testing.T) {
	isolate(t)

	_, err := loadConfig()
	require.Error(t, err, "backend must be configured")

	viper.Set("backend.url", "https://abc.backend.example/")
	viper.Set("backend.anon_key", "anon")
	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://abc.backend.example", cfg.Backend.URL)
	assert.Equal(t, "anon", cfg.Backend.AnonKey)
	assert.Equal(t, "sqlite", cfg.Progress.Driver)
	assert.Equal(t, filepath.Join(filepath.Dir(cfgFile), "progress.db"), cfg.Progress.DSN)
	assert.Equal(t, "stderr", cfg.Logging.OutputPath)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestTemplatesCommand(t *testing.T) {
	isolate(t)

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"templates", "--category", "web", "-o", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())

	var got []solution.Template
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.NotEmpty(t, got)
	for _, tpl := range got {
		assert.Equal(t, solution.CategoryWeb, tpl.Category)
	}
}

func TestConfigSetRefusesCredentials(t *testing.T) {
	isolate(t)

	rootCmd.SetArgs([]string{"config", "set", "auth.access_token", "x"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	assert.Error(t, rootCmd.Execute())
}
