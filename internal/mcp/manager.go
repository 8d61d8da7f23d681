package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Manager owns the clients for every configured server and routes
// prefixed tool calls to the right one.
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewManager creates a manager with a client per configured server.
func NewManager(cfg *Config) *Manager {
	clients := make(map[string]*Client, len(cfg.Servers))
	for name, serverCfg := range cfg.Servers {
		clients[name] = NewClient(name, serverCfg)
	}
	return &Manager{clients: clients}
}

// StartResult reports one server's startup outcome.
type StartResult struct {
	Name string
	Err  error
}

// StartAll connects every configured server concurrently. A server that
// fails to start is skipped, not fatal; the returned slice holds the
// failures, sorted by name, so callers can warn and continue.
func (m *Manager) StartAll(ctx context.Context) []StartResult {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	results := make([]StartResult, len(clients))
	var wg sync.WaitGroup
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client *Client) {
			defer wg.Done()
			results[i] = StartResult{Name: client.Name(), Err: client.Start(ctx)}
		}(i, client)
	}
	wg.Wait()

	var failed []StartResult
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Name < failed[j].Name })
	return failed
}

// Stop closes every server connection.
func (m *Manager) Stop() {
	m.mu.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for _, client := range m.clients {
		clients = append(clients, client)
	}
	m.mu.Unlock()

	for _, client := range clients {
		client.Stop()
	}
}

// ServerNames returns the managed server names, sorted.
func (m *Manager) ServerNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns every tool from connected servers. Tool names are
// prefixed with the server name so registries stay collision free.
func (m *Manager) Tools() []ToolSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []ToolSpec
	for _, name := range names {
		client := m.clients[name]
		if !client.IsRunning() {
			continue
		}
		for _, tool := range client.Tools() {
			all = append(all, ToolSpec{
				Name:        fmt.Sprintf("%s__%s", name, tool.Name),
				Description: fmt.Sprintf("[%s] %s", name, tool.Description),
				Schema:      tool.Schema,
			})
		}
	}
	return all
}

// CallTool routes a prefixed tool call ("servername__toolname") to its
// server.
func (m *Manager) CallTool(ctx context.Context, fullName string, args json.RawMessage) (string, error) {
	serverName, toolName := parseToolName(fullName)
	if serverName == "" {
		return "", fmt.Errorf("invalid MCP tool name: %s (expected servername__toolname)", fullName)
	}

	m.mu.RLock()
	client, ok := m.clients[serverName]
	m.mu.RUnlock()

	if !ok || !client.IsRunning() {
		return "", fmt.Errorf("MCP server %s is not running", serverName)
	}
	return client.CallTool(ctx, toolName, args)
}

// parseToolName splits a prefixed tool name at the first "__".
func parseToolName(fullName string) (serverName, toolName string) {
	for i := 0; i < len(fullName)-1; i++ {
		if fullName[i] == '_' && fullName[i+1] == '_' {
			return fullName[:i], fullName[i+2:]
		}
	}
	return "", fullName
}
