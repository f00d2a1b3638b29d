// Package mcp discovers the tools that MCP servers expose so workflows can
// be checked against them before they are submitted.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	sdk_client "github.com/mark3labs/mcp-go/client"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/pocketomega/omega-workflow/internal/xjson"
)

const (
	clientName    = "omega-workflow"
	clientVersion = "0.1.0"
)

// mcpConfigFile mirrors the top-level structure of mcp.json.
type mcpConfigFile struct {
	MCPServers map[string]ServerConfig `json:"mcpServers"`
}

// ServerConfig describes one MCP server. Name comes from the map key in
// mcp.json.
type ServerConfig struct {
	Name      string   `json:"-"`
	Transport string   `json:"transport"`         // "stdio" | "sse"
	Command   string   `json:"command,omitempty"` // stdio
	Args      []string `json:"args,omitempty"`    // stdio
	URL       string   `json:"url,omitempty"`     // sse
	Env       []string `json:"env,omitempty"`     // stdio
}

// LoadConfig reads mcp.json from path.
func LoadConfig(path string) (map[string]ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mcp: read config %q: %w", path, err)
	}

	var file mcpConfigFile
	if err := xjson.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("mcp: parse config %q: %w", path, err)
	}
	if file.MCPServers == nil {
		return map[string]ServerConfig{}, nil
	}
	for key, cfg := range file.MCPServers {
		cfg.Name = key
		file.MCPServers[key] = cfg
	}
	return file.MCPServers, nil
}

// SortedNames returns the server names of configs in lexical order.
func SortedNames(configs map[string]ServerConfig) []string {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolInfo is the metadata of one tool exposed by a server.
type ToolInfo struct {
	Name        string
	Description string
	InputSchema xjson.RawMessage
}

// check reports a config that cannot be dialed.
func (cfg ServerConfig) check() error {
	switch cfg.Transport {
	case "stdio":
		if cfg.Command == "" {
			return fmt.Errorf("mcp: server %q: stdio transport needs a command", cfg.Name)
		}
	case "sse":
		if cfg.URL == "" {
			return fmt.Errorf("mcp: server %q: sse transport needs a url", cfg.Name)
		}
	default:
		return fmt.Errorf("mcp: unknown transport %q for server %q", cfg.Transport, cfg.Name)
	}
	return nil
}

func (cfg ServerConfig) dial(ctx context.Context) (sdk_client.MCPClient, error) {
	if cfg.Transport == "stdio" {
		cli, err := sdk_client.NewStdioMCPClient(cfg.Command, cfg.Env, cfg.Args...)
		if err != nil {
			return nil, err
		}
		return cli, nil
	}
	cli, err := sdk_client.NewSSEMCPClient(cfg.URL)
	if err != nil {
		return nil, err
	}
	if err := cli.Start(ctx); err != nil {
		return nil, err
	}
	return cli, nil
}

// Probe starts a session with the server, lists its tools and ends the
// session. Tools come back sorted by name.
func Probe(ctx context.Context, cfg ServerConfig) ([]ToolInfo, error) {
	if err := cfg.check(); err != nil {
		return nil, err
	}
	session, err := cfg.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: dial %s server %q: %w", cfg.Transport, cfg.Name, err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Printf("[MCP] Close error for %q: %v", cfg.Name, cerr)
		}
	}()

	hello := sdk_mcp.InitializeRequest{}
	hello.Params.ProtocolVersion = sdk_mcp.LATEST_PROTOCOL_VERSION
	hello.Params.ClientInfo = sdk_mcp.Implementation{Name: clientName, Version: clientVersion}
	if _, err := session.Initialize(ctx, hello); err != nil {
		return nil, fmt.Errorf("mcp: initialize server %q: %w", cfg.Name, err)
	}

	listed, err := session.ListTools(ctx, sdk_mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools of %q: %w", cfg.Name, err)
	}
	return toolInfos(listed.Tools), nil
}

func toolInfos(raw []sdk_mcp.Tool) []ToolInfo {
	out := make([]ToolInfo, 0, len(raw))
	for _, t := range raw {
		schema, err := xjson.Marshal(t.InputSchema)
		if err != nil {
			schema = []byte("{}")
		}
		out = append(out, ToolInfo{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
