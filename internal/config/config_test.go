package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setBackendEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range []string{
		"OMEGA_BACKEND_URL", "OMEGA_BACKEND_TOKEN", "OMEGA_EXECUTE_PATH", "OMEGA_REPLY_PATH",
		"OMEGA_TIMEOUT_SECONDS", "OMEGA_DEFAULT_MODEL", "OMEGA_MCP_CONFIG", "OMEGA_RUN_TTL_MINUTES",
	} {
		t.Setenv(k, vars[k])
	}
}

func TestNewBackendConfigFromEnv_Defaults(t *testing.T) {
	setBackendEnv(t, map[string]string{"OMEGA_BACKEND_URL": "https://motor.example.com/"})

	cfg, err := NewBackendConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://motor.example.com" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if cfg.ExecuteURL() != "https://motor.example.com/workflow/execute" {
		t.Errorf("ExecuteURL = %q", cfg.ExecuteURL())
	}
	if got := cfg.ReplyURL("s 1"); got != "https://motor.example.com/workflow/reply/s%201" {
		t.Errorf("ReplyURL = %q", got)
	}
	if cfg.Timeout != 0 {
		t.Errorf("Timeout = %v, want 0", cfg.Timeout)
	}
	if cfg.RunTTL != 30*time.Minute {
		t.Errorf("RunTTL = %v, want 30m", cfg.RunTTL)
	}
	if cfg.DefaultModel != "gpt-4o" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
}

func TestNewBackendConfigFromEnv_Overrides(t *testing.T) {
	setBackendEnv(t, map[string]string{
		"OMEGA_BACKEND_URL":     "http://localhost:8000",
		"OMEGA_BACKEND_TOKEN":   "segredo",
		"OMEGA_EXECUTE_PATH":    "/run",
		"OMEGA_REPLY_PATH":      "/reply",
		"OMEGA_TIMEOUT_SECONDS": "90",
		"OMEGA_RUN_TTL_MINUTES": "5",
	})

	cfg, err := NewBackendConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Token != "segredo" {
		t.Errorf("Token = %q", cfg.Token)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if cfg.ReplyURL("abc") != "http://localhost:8000/reply" {
		t.Errorf("ReplyURL without placeholder = %q", cfg.ReplyURL("abc"))
	}
	if cfg.RunTTL != 5*time.Minute {
		t.Errorf("RunTTL = %v", cfg.RunTTL)
	}
}

func TestBackendConfig_Validate(t *testing.T) {
	valid := BackendConfig{
		BaseURL:     "https://motor.example.com",
		ExecutePath: "/workflow/execute",
		ReplyPath:   "/workflow/reply/{session_id}",
		RunTTL:      time.Minute,
	}
	tests := []struct {
		name    string
		mutate  func(c *BackendConfig)
		wantErr string
	}{
		{"valid", func(c *BackendConfig) {}, ""},
		{"missing url", func(c *BackendConfig) { c.BaseURL = "" }, "OMEGA_BACKEND_URL is required"},
		{"relative url", func(c *BackendConfig) { c.BaseURL = "motor.local" }, "absolute http(s) URL"},
		{"bad scheme", func(c *BackendConfig) { c.BaseURL = "ftp://motor" }, "absolute http(s) URL"},
		{"execute path", func(c *BackendConfig) { c.ExecutePath = "run" }, "OMEGA_EXECUTE_PATH"},
		{"reply path", func(c *BackendConfig) { c.ReplyPath = "reply" }, "OMEGA_REPLY_PATH"},
		{"negative timeout", func(c *BackendConfig) { c.Timeout = -time.Second }, "OMEGA_TIMEOUT_SECONDS"},
		{"zero ttl", func(c *BackendConfig) { c.RunTTL = 0 }, "OMEGA_RUN_TTL_MINUTES"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadEnv_ExplicitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("OMEGA_TEST_LOADED=sim\nOMEGA_TEST_PRESET=arquivo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OMEGA_TEST_PRESET", "ambiente")
	t.Setenv("OMEGA_TEST_LOADED", "")
	os.Unsetenv("OMEGA_TEST_LOADED")

	if got := LoadEnv(path); got != path {
		t.Errorf("LoadEnv() = %q, want %q", got, path)
	}
	if v := os.Getenv("OMEGA_TEST_LOADED"); v != "sim" {
		t.Errorf("OMEGA_TEST_LOADED = %q, want sim", v)
	}
	if v := os.Getenv("OMEGA_TEST_PRESET"); v != "ambiente" {
		t.Errorf("existing variable overridden: %q", v)
	}
}

func TestLoadEnv_MissingPath(t *testing.T) {
	if got := LoadEnv(filepath.Join(t.TempDir(), "nao_existe.env")); got != "" {
		t.Errorf("LoadEnv() = %q, want empty", got)
	}
}

func TestEnvCandidates_IncludesCwd(t *testing.T) {
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(cwd, ".env")
	for _, c := range envCandidates() {
		if c == want {
			return
		}
	}
	t.Errorf("envCandidates() missing %q", want)
}
