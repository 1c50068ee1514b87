package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/Neuron-OS/neuronos-sub000/internal/jsonx"
)

// ShellExec runs shell commands on behalf of the agent. It is the
// handler behind the shell_exec built-in and requires CapShell.
type ShellExec struct {
	workingDir     string
	deniedCmds     []string
	defaultTimeout time.Duration
	maxOutputBytes int
}

// ShellExecConfig configures the shell executor.
type ShellExecConfig struct {
	WorkingDir     string
	DeniedCmds     []string
	DefaultTimeout time.Duration
	MaxOutputBytes int
}

// DefaultShellExecConfig returns safe defaults.
func DefaultShellExecConfig() ShellExecConfig {
	return ShellExecConfig{
		DeniedCmds: []string{
			"rm -rf /",
			"rm -rf /*",
			"mkfs",
			"dd if=",
			"> /dev/sd",
			"chmod -R 777 /",
			":(){ :|:& };:", // Fork bomb
		},
		DefaultTimeout: 30 * time.Second,
		MaxOutputBytes: 100 * 1024,
	}
}

// NewShellExec creates a shell executor.
func NewShellExec(cfg ShellExecConfig) *ShellExec {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	if cfg.MaxOutputBytes == 0 {
		cfg.MaxOutputBytes = 100 * 1024
	}
	return &ShellExec{
		workingDir:     cfg.WorkingDir,
		deniedCmds:     cfg.DeniedCmds,
		defaultTimeout: cfg.DefaultTimeout,
		maxOutputBytes: cfg.MaxOutputBytes,
	}
}

// Tool returns the shell_exec descriptor.
func (s *ShellExec) Tool() *Tool {
	return &Tool{
		Name:        "shell_exec",
		Description: "Execute a shell command and return its stdout, stderr, and exit code.",
		Schema: `{"type":"object","properties":{` +
			`"command":{"type":"string","description":"The command to run"},` +
			`"timeout_sec":{"type":"integer","description":"Timeout in seconds (default 30)"}},` +
			`"required":["command"]}`,
		Requires: CapShell,
		Handler:  s.handle,
	}
}

func (s *ShellExec) handle(ctx context.Context, argsJSON string) Result {
	command := jsonx.FindString(argsJSON, "command", "")
	if command == "" {
		return Fail("command is required")
	}

	cmdLower := strings.ToLower(command)
	for _, denied := range s.deniedCmds {
		if strings.Contains(cmdLower, strings.ToLower(denied)) {
			return Fail(fmt.Sprintf("command blocked by security policy: matches denied pattern %q", denied))
		}
	}

	timeout := s.defaultTimeout
	if sec := jsonx.FindInt(argsJSON, "timeout_sec", 0); sec > 0 {
		timeout = time.Duration(sec) * time.Second
	}
	// Cap at 5 minutes.
	if timeout > 5*time.Minute {
		timeout = 5 * time.Minute
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if s.workingDir != "" {
		cmd.Dir = s.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if ctx.Err() == context.DeadlineExceeded {
		return Fail("command timed out")
	}

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return Fail(err.Error())
		}
	}

	out := fmt.Sprintf("exit code: %d\nstdout:\n%s", exitCode,
		truncateOutput(stdout.String(), s.maxOutputBytes))
	if stderr.Len() > 0 {
		out += "\nstderr:\n" + truncateOutput(stderr.String(), s.maxOutputBytes)
	}
	return Ok(out)
}

// truncateOutput truncates output to maxBytes, adding a note if truncated.
func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n\n[... output truncated ...]"
}
