package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// BackendConfig holds everything needed to talk to the execution backend.
// It is read once at startup and handed to collaborators explicitly.
type BackendConfig struct {
	BaseURL      string        // OMEGA_BACKEND_URL, required
	Token        string        // OMEGA_BACKEND_TOKEN, sent as a bearer token when set
	ExecutePath  string        // default /workflow/execute
	ReplyPath    string        // default /workflow/reply; "{session_id}" is substituted
	Timeout      time.Duration // whole-request timeout, 0 = none
	DefaultModel string        // model used when a node sets none
	MCPConfig    string        // path to mcp.json, empty = no tool catalog
	RunTTL       time.Duration // how long finished runs stay in the tracker
}

// NewBackendConfigFromEnv creates a BackendConfig from environment variables.
// Expected env vars: OMEGA_BACKEND_URL, OMEGA_BACKEND_TOKEN, OMEGA_EXECUTE_PATH,
// OMEGA_REPLY_PATH, OMEGA_TIMEOUT_SECONDS, OMEGA_DEFAULT_MODEL,
// OMEGA_MCP_CONFIG, OMEGA_RUN_TTL_MINUTES
func NewBackendConfigFromEnv() (*BackendConfig, error) {
	cfg := &BackendConfig{
		BaseURL:      strings.TrimRight(getEnvOrDefault("OMEGA_BACKEND_URL", ""), "/"),
		Token:        getEnvOrDefault("OMEGA_BACKEND_TOKEN", ""),
		ExecutePath:  getEnvOrDefault("OMEGA_EXECUTE_PATH", "/workflow/execute"),
		ReplyPath:    getEnvOrDefault("OMEGA_REPLY_PATH", "/workflow/reply/{session_id}"),
		Timeout:      time.Duration(getEnvIntOrDefault("OMEGA_TIMEOUT_SECONDS", 0)) * time.Second,
		DefaultModel: getEnvOrDefault("OMEGA_DEFAULT_MODEL", "gpt-4o"),
		MCPConfig:    getEnvOrDefault("OMEGA_MCP_CONFIG", ""),
		RunTTL:       time.Duration(getEnvIntOrDefault("OMEGA_RUN_TTL_MINUTES", 30)) * time.Minute,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is usable.
func (c *BackendConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("OMEGA_BACKEND_URL is required. Set it in .env or environment")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("OMEGA_BACKEND_URL must be an absolute http(s) URL, got %q", c.BaseURL)
	}
	if !strings.HasPrefix(c.ExecutePath, "/") {
		return fmt.Errorf("OMEGA_EXECUTE_PATH must start with '/', got %q", c.ExecutePath)
	}
	if !strings.HasPrefix(c.ReplyPath, "/") {
		return fmt.Errorf("OMEGA_REPLY_PATH must start with '/', got %q", c.ReplyPath)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("OMEGA_TIMEOUT_SECONDS cannot be negative, got %v", c.Timeout)
	}
	if c.RunTTL <= 0 {
		return fmt.Errorf("OMEGA_RUN_TTL_MINUTES must be positive, got %v", c.RunTTL)
	}
	return nil
}

// ExecuteURL is the endpoint workflows are submitted to.
func (c *BackendConfig) ExecuteURL() string {
	return c.BaseURL + c.ExecutePath
}

// ReplyURL is the endpoint a user reply for sessionID is posted to.
func (c *BackendConfig) ReplyURL(sessionID string) string {
	path := c.ReplyPath
	if strings.Contains(path, "{session_id}") {
		path = strings.ReplaceAll(path, "{session_id}", url.PathEscape(sessionID))
	}
	return c.BaseURL + path
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return defaultValue
}
