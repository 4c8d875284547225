package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Tool is a callable helper exposed to the agent and the CLI.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, input string) (string, error)
}

// Catalog is an in-memory registry of tools keyed by lower-cased name.
type Catalog struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewCatalog constructs a catalog seeded with the provided tools.
func NewCatalog(tools ...Tool) *Catalog {
	c := &Catalog{tools: make(map[string]Tool)}
	for _, tool := range tools {
		_ = c.Register(tool)
	}
	return c
}

// Register adds a tool. Duplicate names return an error.
func (c *Catalog) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	key := strings.ToLower(strings.TrimSpace(tool.Name()))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.tools[key]; exists {
		return fmt.Errorf("tool %s already registered", tool.Name())
	}
	c.tools[key] = tool
	c.order = append(c.order, key)
	return nil
}

// Lookup returns the tool registered under name.
func (c *Catalog) Lookup(name string) (Tool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tool, ok := c.tools[strings.ToLower(strings.TrimSpace(name))]
	return tool, ok
}

// Tools returns the registered tools in registration order.
func (c *Catalog) Tools() []Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Tool, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.tools[key])
	}
	return out
}

// Run looks up name and invokes it with input.
func (c *Catalog) Run(ctx context.Context, name, input string) (string, error) {
	tool, ok := c.Lookup(name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	return tool.Run(ctx, input)
}

// DefaultCatalog wires the calendar and clock tools.
func DefaultCatalog(cal *Calendar) *Catalog {
	return NewCatalog(
		&PreferencesTool{Calendar: cal},
		&ScheduleMeetingTool{},
		&TimeTool{},
	)
}
