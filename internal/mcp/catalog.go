package mcp

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/pocketomega/omega-workflow/internal/workflow"
)

// probeServer is replaced in tests.
var probeServer = Probe

type catalogEntry struct {
	server string
	info   ToolInfo
}

// Catalog is the set of tool identifiers a node may list in ferramentas.
// A tool is known by its bare name and by "server/name".
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]catalogEntry
}

func NewCatalog() *Catalog {
	return &Catalog{tools: make(map[string]catalogEntry)}
}

// Register adds tools offered by server. A bare name already registered by
// another server keeps its first owner; the qualified name is always added.
func (c *Catalog) Register(server string, tools ...ToolInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range tools {
		entry := catalogEntry{server: server, info: t}
		if prev, ok := c.tools[t.Name]; ok && prev.server != server {
			log.Printf("[MCP] Tool %q offered by %q and %q, bare name stays with %q", t.Name, prev.server, server, prev.server)
		} else {
			c.tools[t.Name] = entry
		}
		if server != "" {
			c.tools[server+"/"+t.Name] = entry
		}
	}
}

// Has reports whether name is a known tool identifier.
func (c *Catalog) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.tools[name]
	return ok
}

// Lookup returns the tool registered under name and the server offering it.
func (c *Catalog) Lookup(name string) (ToolInfo, string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tools[name]
	return e.info, e.server, ok
}

// Names returns every registered identifier in lexical order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Discover connects to every server, registers its tools and disconnects.
// A failing server does not stop the others; its error is returned with the
// number of servers that answered.
func (c *Catalog) Discover(ctx context.Context, configs map[string]ServerConfig) (int, []error) {
	var errs []error
	ok := 0
	for _, name := range SortedNames(configs) {
		cfg := configs[name]
		if cfg.Name == "" {
			cfg.Name = name
		}
		tools, err := probeServer(ctx, cfg)
		if err != nil {
			log.Printf("[MCP] Discovery failed: %s: %v", name, err)
			errs = append(errs, fmt.Errorf("server %q: %w", name, err))
			continue
		}
		c.Register(name, tools...)
		ok++
		log.Printf("[MCP] Discovered: %s (%d tool(s))", name, len(tools))
	}
	return ok, errs
}

// CheckWorkflow fails on the first node tool that the catalog does not know.
func (c *Catalog) CheckWorkflow(w *workflow.Workflow) error {
	for _, n := range w.Graph.Nodes {
		for _, t := range n.Tools {
			if !c.Has(t) {
				return workflow.NewValidationError(workflow.KindUnknownTool, n.Name,
					"node %q uses tool %q which no MCP server offers", n.Name, t)
			}
		}
	}
	return nil
}
