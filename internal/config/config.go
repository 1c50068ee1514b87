// Package config handles neuron configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./neuron.yaml, ~/.config/neuron/config.yaml, /etc/neuron/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"neuron.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "neuron", "config.yaml"))
	}

	paths = append(paths, "/etc/neuron/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all neuron configuration.
type Config struct {
	Ollama       OllamaConfig    `yaml:"ollama"`
	Agent        AgentConfig     `yaml:"agent"`
	Capabilities []string        `yaml:"capabilities"`
	Workspace    WorkspaceConfig `yaml:"workspace"`
	ShellExec    ShellExecConfig `yaml:"shell_exec"`
	Memory       MemoryConfig    `yaml:"memory"`
	MCP          MCPConfig       `yaml:"mcp"`
	LogLevel     string          `yaml:"log_level"`
}

// OllamaConfig defines the generation engine endpoint.
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

// AgentConfig tunes the reasoning loop. Zero values fall back to the
// loop's own defaults.
type AgentConfig struct {
	MaxSteps         int     `yaml:"max_steps"`
	MaxTokensPerStep int     `yaml:"max_tokens_per_step"`
	Temperature      float64 `yaml:"temperature"`
	ContextBudget    int     `yaml:"context_budget"`
}

// WorkspaceConfig defines the agent's workspace for file operations.
type WorkspaceConfig struct {
	// Path is the root directory for file operations. All file tool
	// paths are relative to this directory. If empty, file tools are
	// not registered.
	Path string `yaml:"path"`
}

// ShellExecConfig defines shell execution settings.
type ShellExecConfig struct {
	// Enabled allows shell command execution. Disabled by default.
	Enabled bool `yaml:"enabled"`
	// WorkingDir sets the default working directory for commands.
	WorkingDir string `yaml:"working_dir"`
	// DeniedPatterns are command patterns to block in addition to the
	// built-in deny list.
	DeniedPatterns []string `yaml:"denied_patterns"`
	// DefaultTimeoutSec is the default command timeout in seconds.
	DefaultTimeoutSec int `yaml:"default_timeout_sec"`
}

// MemoryConfig defines the persistent memory store.
type MemoryConfig struct {
	// Path is the SQLite database file. If empty, memory tools are
	// not registered.
	Path string `yaml:"path"`
}

// MCPConfig defines external MCP server settings.
type MCPConfig struct {
	// ServersFile is a JSON file with a top-level mcpServers map.
	ServersFile string `yaml:"servers_file"`
}

// Load reads configuration from a YAML file. Environment variables in
// the file are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			URL:   "http://localhost:11434",
			Model: "qwen3:4b",
		},
		Capabilities: []string{"memory"},
	}
}
