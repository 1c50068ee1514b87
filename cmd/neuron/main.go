// Neuron is a small tool-using agent that reasons in explicit
// think/act/observe steps against a local Ollama model.
//
// Built-in tools (files, shell, web fetch, memory) are gated by a
// capability allowlist from the config file. External MCP servers can
// be bridged into the same tool registry, and neuron can itself serve
// its registry to an MCP host over stdio.
//
// Usage:
//
//	neuron ask <question>    Answer a single question and exit
//	neuron chat              Interactive chat session
//	neuron mcp-serve         Expose the tool registry as an MCP server on stdio
//	neuron version           Print version and build information
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Neuron-OS/neuronos-sub000/internal/agent"
	"github.com/Neuron-OS/neuronos-sub000/internal/buildinfo"
	"github.com/Neuron-OS/neuronos-sub000/internal/config"
	"github.com/Neuron-OS/neuronos-sub000/internal/fetch"
	"github.com/Neuron-OS/neuronos-sub000/internal/llm"
	"github.com/Neuron-OS/neuronos-sub000/internal/mcp"
	"github.com/Neuron-OS/neuronos-sub000/internal/memory"
	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

// main constructs the OS-level environment and delegates to run so the
// full lifecycle stays testable.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run parses arguments by hand — the flag package's global state gets
// in the way of driving run concurrently from tests, and the surface
// here is tiny.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			cmdArgs = append(cmdArgs, args[i])
		}
	}

	switch command {
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	case "ask":
		if len(cmdArgs) == 0 {
			return errors.New("ask: no question given")
		}
		return runAsk(ctx, stdout, configPath, strings.Join(cmdArgs, " "))
	case "chat":
		return runChat(ctx, stdin, stdout, configPath)
	case "mcp-serve":
		return runMCPServe(ctx, stdin, stdout, stderr, configPath)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintf(w, `%s %s

Usage:
  neuron [-config path] ask <question>   Answer a single question and exit
  neuron [-config path] chat             Interactive chat session
  neuron [-config path] mcp-serve        Serve the tool registry over MCP stdio
  neuron version                         Print version information
`, buildinfo.Name, buildinfo.Version)
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML config. A missing file is not
// fatal: neuron runs fine on defaults.
func loadConfig(explicit string, logger *slog.Logger) *config.Config {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		logger.Info("no config file, using defaults")
		return config.Default()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config unreadable, using defaults", "path", cfgPath, "error", err)
		return config.Default()
	}

	logger.Info("config loaded", "path", cfgPath)
	return cfg
}

// environment is everything a session needs, built once per command.
type environment struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *tools.Registry
	store    *memory.Store
	manager  *mcp.Manager
}

// close tears down in dependency order: the MCP manager (which owns
// the bridge closures the registry still references) goes last.
func (e *environment) close() {
	if e.store != nil {
		e.store.Close()
	}
	if e.manager != nil {
		e.manager.Close()
	}
}

// setup loads config, builds the capability-gated registry, opens the
// memory store, and connects MCP servers.
func setup(ctx context.Context, logWriter io.Writer, configPath string) (*environment, error) {
	bootLogger := newLogger(logWriter, slog.LevelInfo)
	cfg := loadConfig(configPath, bootLogger)

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		bootLogger.Warn("bad log level, using info", "error", err)
	}
	logger := newLogger(logWriter, level)

	env := &environment{
		cfg:      cfg,
		logger:   logger,
		registry: tools.NewRegistry(),
	}

	allowed := tools.ParseCapabilities(cfg.Capabilities)
	defaults := []*tools.Tool{fetch.Tool(fetch.New())}

	if cfg.Workspace.Path != "" {
		defaults = append(defaults, tools.NewFileTools(cfg.Workspace.Path).Tools()...)
	}

	if cfg.ShellExec.Enabled {
		shellCfg := tools.DefaultShellExecConfig()
		shellCfg.WorkingDir = cfg.ShellExec.WorkingDir
		shellCfg.DeniedCmds = append(shellCfg.DeniedCmds, cfg.ShellExec.DeniedPatterns...)
		if cfg.ShellExec.DefaultTimeoutSec > 0 {
			shellCfg.DefaultTimeout = time.Duration(cfg.ShellExec.DefaultTimeoutSec) * time.Second
		}
		defaults = append(defaults, tools.NewShellExec(shellCfg).Tool())
	}

	if cfg.Memory.Path != "" {
		store, err := memory.NewStore(cfg.Memory.Path, logger)
		if err != nil {
			logger.Warn("memory store unavailable", "path", cfg.Memory.Path, "error", err)
		} else {
			env.store = store
			defaults = append(defaults, memory.Tools(store)...)
		}
	}

	registered := env.registry.RegisterDefaults(allowed, defaults)
	logger.Info("built-in tools registered",
		"allowed", allowed.String(),
		"registered", registered,
		"offered", len(defaults),
	)

	if cfg.MCP.ServersFile != "" {
		manager := mcp.NewManager(logger)
		n, err := manager.LoadConfig(cfg.MCP.ServersFile)
		if err != nil {
			logger.Warn("mcp config unreadable", "error", err)
		} else if n > 0 {
			if err := manager.Connect(ctx); err != nil {
				logger.Warn("no MCP server connected", "error", err)
			} else {
				env.manager = manager
				bridged := manager.RegisterTools(env.registry)
				logger.Info("MCP tools bridged", "count", bridged)
			}
		}
	}

	return env, nil
}

func newSession(env *environment) *agent.Session {
	engine := llm.NewOllamaEngine(env.cfg.Ollama.URL, env.cfg.Ollama.Model)
	params := agent.Params{
		MaxSteps:         env.cfg.Agent.MaxSteps,
		MaxTokensPerStep: env.cfg.Agent.MaxTokensPerStep,
		Temperature:      env.cfg.Agent.Temperature,
		ContextBudget:    env.cfg.Agent.ContextBudget,
	}
	session := agent.NewSession(engine, env.registry, params, env.logger)
	if env.store != nil {
		session.SetMemory(env.store)
	}
	return session
}

func runAsk(ctx context.Context, stdout io.Writer, configPath, question string) error {
	env, err := setup(ctx, stdout, configPath)
	if err != nil {
		return err
	}
	defer env.close()

	session := newSession(env)

	result := session.Run(ctx, question, func(step int, thought, action, observation string) {
		env.logger.Debug("step complete",
			"step", step, "thought", thought, "action", action)
	})

	if result.Status == agent.StatusFailed {
		return fmt.Errorf("ask: generation failed after %d steps", result.StepsTaken)
	}

	fmt.Fprintln(stdout, result.Text)
	return nil
}

func runChat(ctx context.Context, stdin io.Reader, stdout io.Writer, configPath string) error {
	env, err := setup(ctx, stdout, configPath)
	if err != nil {
		return err
	}
	defer env.close()

	session := newSession(env)

	fmt.Fprintf(stdout, "%s %s — type a message, ctrl-d to exit\n", buildinfo.Name, buildinfo.Version)

	scanner := bufio.NewScanner(stdin)
	for {
		fmt.Fprint(stdout, "> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		result := session.Chat(ctx, input, nil)
		if result.Status == agent.StatusFailed {
			return errors.New("chat: generation failed")
		}

		fmt.Fprintln(stdout, result.Text)

		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// runMCPServe exposes the registry over stdio. Protocol traffic owns
// stdout, so all logging goes to stderr.
func runMCPServe(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer, configPath string) error {
	env, err := setup(ctx, stderr, configPath)
	if err != nil {
		return err
	}
	defer env.close()

	env.logger.Info("serving tool registry over MCP",
		"tools", env.registry.Count())

	return mcp.NewServer(env.registry, env.logger).Serve(ctx, stdin, stdout)
}
