package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

// maxServers bounds the connection table.
const maxServers = 16

// ServerConfig describes one MCP server the Manager should manage.
// Only the stdio transport is supported.
type ServerConfig struct {
	Name    string
	Command string
	Args    []string
	Env     []string // "KEY=VALUE"
}

// toolEntry records one discovered remote tool and the connection that
// owns it.
type toolEntry struct {
	def    ToolDefinition
	client *Client
}

// Manager owns a set of MCP server connections and the flat table of
// tools discovered across them. It is the single owner of every
// Client and of every bridge closure handed to a registry: Close the
// Manager only after the registry stops executing bridged tools.
type Manager struct {
	logger *slog.Logger

	// newTransport builds the transport for a server. Tests swap it.
	newTransport func(cfg ServerConfig) Transport

	mu      sync.Mutex
	configs []ServerConfig
	clients []*Client
	entries []toolEntry
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger.With("component", "mcp"),
		newTransport: func(cfg ServerConfig) Transport {
			return NewStdioTransport(StdioConfig{
				Command: cfg.Command,
				Args:    cfg.Args,
				Env:     cfg.Env,
				Logger:  logger,
			})
		},
	}
}

// AddServer records a server for the next Connect call. It fails when
// the config lacks a command or the connection table is full.
func (m *Manager) AddServer(cfg ServerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg.Command == "" {
		return fmt.Errorf("mcp server %q: command is required", cfg.Name)
	}
	if len(m.configs) >= maxServers {
		return fmt.Errorf("mcp server %q: connection table full (%d servers)", cfg.Name, maxServers)
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Command
	}
	m.configs = append(m.configs, cfg)
	return nil
}

// Connect spawns and initializes every added server, then discovers
// its tools. A server that fails to spawn, initialize, or list tools
// is logged and skipped; one bad server never blocks the others.
// Connect fails only when servers were configured and none succeeded.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.configs) == 0 {
		return nil
	}

	connected := 0
	for _, cfg := range m.configs {
		client := NewClient(cfg.Name, m.newTransport(cfg), m.logger)

		if err := client.Initialize(ctx); err != nil {
			m.logger.Warn("MCP server failed to initialize, skipping",
				"server", cfg.Name, "error", err)
			client.Close()
			continue
		}

		defs, err := client.ListTools(ctx)
		if err != nil {
			m.logger.Warn("MCP tool discovery failed, skipping server",
				"server", cfg.Name, "error", err)
			client.Close()
			continue
		}

		m.clients = append(m.clients, client)
		for _, def := range defs {
			m.entries = append(m.entries, toolEntry{def: def, client: client})
		}
		connected++
	}

	if connected == 0 {
		return errors.New("no MCP server could be connected")
	}

	m.logger.Info("MCP servers connected",
		"servers", connected, "tools", len(m.entries))
	return nil
}

// RegisterTools bridges every discovered tool into the target
// registry. Bridge tools are namespaced "mcp_{server}_{tool}" and are
// always tagged with the network capability. Returns the count the
// registry accepted; collisions are the registry's call, not ours.
func (m *Manager) RegisterTools(registry *tools.Registry) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, entry := range m.entries {
		if err := registry.Register(m.bridgeTool(entry)); err != nil {
			m.logger.Warn("registry rejected bridged MCP tool",
				"tool", entry.def.Name, "server", entry.client.Name(), "error", err)
			continue
		}
		count++
	}
	return count
}

// bridgeTool builds a registry descriptor that forwards execution to
// the owning connection over tools/call.
func (m *Manager) bridgeTool(entry toolEntry) *tools.Tool {
	client := entry.client
	remoteName := entry.def.Name

	schema := string(entry.def.InputSchema)
	if schema == "" {
		schema = "{}"
	}

	return &tools.Tool{
		Name:        BridgeToolName(client.Name(), remoteName),
		Description: entry.def.Description,
		Schema:      schema,
		Requires:    tools.CapNetwork,
		Handler: func(ctx context.Context, argsJSON string) tools.Result {
			text, err := client.CallTool(ctx, remoteName, argsJSON)
			if err != nil {
				return tools.Fail(err.Error())
			}
			return tools.Ok(text)
		},
	}
}

// CallTool resolves the connection owning the named remote tool and
// invokes it. The name is the remote MCP name, not the bridged one.
func (m *Manager) CallTool(ctx context.Context, name, argsJSON string) (string, error) {
	m.mu.Lock()
	var client *Client
	for _, entry := range m.entries {
		if entry.def.Name == name {
			client = entry.client
			break
		}
	}
	m.mu.Unlock()

	if client == nil {
		return "", fmt.Errorf("no MCP server provides tool %q", name)
	}
	return client.CallTool(ctx, name, argsJSON)
}

// serverFileEntry is one value in the mcpServers config map.
type serverFileEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
}

// serverFile is the on-disk server config shape. Entries stay raw so
// one malformed server cannot sink the whole file.
type serverFile struct {
	Servers map[string]json.RawMessage `json:"mcpServers"`
}

// LoadConfig reads a server-map config file and adds each well-formed
// entry. Malformed or incomplete entries are skipped with a warning,
// never fatal. Returns the number of servers added.
func (m *Manager) LoadConfig(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read mcp config: %w", err)
	}

	var file serverFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("parse mcp config %s: %w", path, err)
	}

	count := 0
	for name, raw := range file.Servers {
		var entry serverFileEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			m.logger.Warn("skipping malformed MCP server entry", "server", name, "error", err)
			continue
		}
		if entry.Command == "" {
			m.logger.Warn("skipping MCP server with no command", "server", name)
			continue
		}

		env := make([]string, 0, len(entry.Env))
		for k, v := range entry.Env {
			env = append(env, k+"="+v)
		}

		if err := m.AddServer(ServerConfig{
			Name:    name,
			Command: entry.Command,
			Args:    entry.Args,
			Env:     env,
		}); err != nil {
			m.logger.Warn("skipping MCP server", "server", name, "error", err)
			continue
		}
		count++
	}

	return count, nil
}

// Close tears down every connection: stdin closed, bounded wait for a
// graceful exit, then kill and reap. After Close the bridge closures
// held by any registry will fail cleanly rather than dangle.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.clients = nil
	m.entries = nil
	return firstErr
}

// sanitizeRe matches characters that are not lowercase alphanumeric
// or underscore.
var sanitizeRe = regexp.MustCompile(`[^a-z0-9_]`)

// BridgeToolName generates a namespaced local tool name from an MCP
// server name and remote tool name.
func BridgeToolName(serverName, remoteName string) string {
	return fmt.Sprintf("mcp_%s_%s", sanitize(serverName), sanitize(remoteName))
}

// sanitize lowercases a name and replaces anything that is not
// alphanumeric with underscores, collapsing runs and trimming ends.
func sanitize(name string) string {
	s := strings.ToLower(name)
	s = sanitizeRe.ReplaceAllString(s, "_")
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
