package tools

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestShellExec_Echo(t *testing.T) {
	s := NewShellExec(DefaultShellExecConfig())

	res := s.handle(context.Background(), `{"command":"echo hi"}`)
	if !res.OK {
		t.Fatalf("handle failed: %s", res.Error)
	}
	if !strings.Contains(res.Output, "hi") {
		t.Errorf("output = %q, want it to contain %q", res.Output, "hi")
	}
	if !strings.Contains(res.Output, "exit code: 0") {
		t.Errorf("output = %q, want exit code 0", res.Output)
	}
}

func TestShellExec_DeniedPattern(t *testing.T) {
	s := NewShellExec(DefaultShellExecConfig())

	res := s.handle(context.Background(), `{"command":"rm -rf / --no-preserve-root"}`)
	if res.OK {
		t.Fatal("denied command reported success")
	}
	if !strings.Contains(res.Error, "blocked by security policy") {
		t.Errorf("error = %q, want security policy block", res.Error)
	}
}

func TestShellExec_MissingCommand(t *testing.T) {
	s := NewShellExec(DefaultShellExecConfig())

	res := s.handle(context.Background(), `{}`)
	if res.OK || res.Error != "command is required" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestShellExec_NonZeroExit(t *testing.T) {
	s := NewShellExec(DefaultShellExecConfig())

	res := s.handle(context.Background(), `{"command":"exit 3"}`)
	if !res.OK {
		t.Fatalf("non-zero exit should still be a tool success: %s", res.Error)
	}
	if !strings.Contains(res.Output, "exit code: 3") {
		t.Errorf("output = %q, want exit code 3", res.Output)
	}
}

func TestShellExec_Timeout(t *testing.T) {
	cfg := DefaultShellExecConfig()
	cfg.DefaultTimeout = 200 * time.Millisecond
	s := NewShellExec(cfg)

	res := s.handle(context.Background(), `{"command":"sleep 5"}`)
	if res.OK {
		t.Fatal("timed-out command reported success")
	}
	if res.Error != "command timed out" {
		t.Errorf("error = %q, want timeout", res.Error)
	}
}
