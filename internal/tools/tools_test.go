package tools

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func echoTool(name string, requires Capability) *Tool {
	return &Tool{
		Name:        name,
		Description: "echoes its arguments",
		Schema:      `{"type":"object","properties":{}}`,
		Requires:    requires,
		Handler: func(_ context.Context, argsJSON string) Result {
			return Ok(argsJSON)
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(echoTool("echo", 0)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}
}

func TestRegistry_RegisterDuplicateName(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(echoTool("echo", 0)); err != nil {
		t.Fatalf("first Register: %v", err)
	}

	err := r.Register(echoTool("echo", 0))
	var dup *DuplicateNameError
	if !errors.As(err, &dup) {
		t.Fatalf("second Register = %v, want DuplicateNameError", err)
	}
	if dup.Name != "echo" {
		t.Errorf("duplicate name = %q, want %q", dup.Name, "echo")
	}

	// The registry must be unchanged.
	if r.Count() != 1 {
		t.Errorf("Count after duplicate = %d, want 1", r.Count())
	}
}

func TestRegistry_RegisterInvalidDescriptor(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name string
		tool *Tool
	}{
		{"nil tool", nil},
		{"missing name", &Tool{Handler: func(context.Context, string) Result { return Ok("") }}},
		{"missing handler", &Tool{Name: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.tool); !errors.Is(err, ErrInvalidDescriptor) {
				t.Errorf("Register = %v, want ErrInvalidDescriptor", err)
			}
		})
	}
	if r.Count() != 0 {
		t.Errorf("Count = %d, want 0", r.Count())
	}
}

func TestRegistry_CapacityExceeded(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < maxTools; i++ {
		if err := r.Register(echoTool(fmt.Sprintf("tool_%d", i), 0)); err != nil {
			t.Fatalf("Register %d: %v", i, err)
		}
	}

	if err := r.Register(echoTool("overflow", 0)); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Register past capacity = %v, want ErrCapacityExceeded", err)
	}
	if r.Count() != maxTools {
		t.Errorf("Count = %d, want %d", r.Count(), maxTools)
	}
}

func TestRegistry_ExecuteUnknownTool(t *testing.T) {
	r := NewRegistry()

	res := r.Execute(context.Background(), "missing-tool", "{}")
	if res.OK {
		t.Error("Execute on missing tool reported success")
	}
	if res.Error != "Tool not found" {
		t.Errorf("Error = %q, want %q", res.Error, "Tool not found")
	}
}

func TestRegistry_ExecutePassesResultUnmodified(t *testing.T) {
	r := NewRegistry()
	want := Result{OK: false, Error: "handler exploded"}
	r.Register(&Tool{
		Name:    "failing",
		Handler: func(context.Context, string) Result { return want },
	})

	if got := r.Execute(context.Background(), "failing", "{}"); got != want {
		t.Errorf("Execute = %+v, want %+v", got, want)
	}
}

func TestRegistry_RegisterDefaultsCapabilityGate(t *testing.T) {
	defaults := []*Tool{
		echoTool("fs_tool", CapFilesystem),
		echoTool("shell_tool", CapShell),
		echoTool("net_tool", CapNetwork),
		echoTool("free_tool", 0),
	}

	// Filesystem only: the shell and network tools must be skipped.
	r := NewRegistry()
	count := r.RegisterDefaults(CapFilesystem, defaults)
	if count != 2 {
		t.Errorf("RegisterDefaults(Filesystem) = %d, want 2", count)
	}
	for i := 0; i < r.Count(); i++ {
		if r.NameAt(i) == "shell_tool" {
			t.Error("shell tool registered without CapShell")
		}
	}
	if res := r.Execute(context.Background(), "shell_tool", "{}"); res.Error != "Tool not found" {
		t.Errorf("shell_tool reachable under Filesystem: %+v", res)
	}

	// All: every built-in registers.
	r = NewRegistry()
	if count := r.RegisterDefaults(CapAll, defaults); count != len(defaults) {
		t.Errorf("RegisterDefaults(All) = %d, want %d", count, len(defaults))
	}
}

func TestRegistry_IntrospectionOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"alpha", "zulu", "mike"}
	for _, n := range names {
		r.Register(echoTool(n, 0))
	}

	for i, want := range names {
		if got := r.NameAt(i); got != want {
			t.Errorf("NameAt(%d) = %q, want %q", i, got, want)
		}
		if got := r.DescriptionAt(i); got != "echoes its arguments" {
			t.Errorf("DescriptionAt(%d) = %q", i, got)
		}
		if got := r.SchemaAt(i); got == "" {
			t.Errorf("SchemaAt(%d) is empty", i)
		}
	}

	// Out of range is empty, not a panic.
	if r.NameAt(-1) != "" || r.NameAt(len(names)) != "" {
		t.Error("out-of-range NameAt should return empty string")
	}
}

func TestParseCapabilities(t *testing.T) {
	tests := []struct {
		names []string
		want  Capability
	}{
		{[]string{"filesystem"}, CapFilesystem},
		{[]string{"shell", "network"}, CapShell | CapNetwork},
		{[]string{"all"}, CapAll},
		{[]string{"ALL"}, CapAll},
		{[]string{"bogus"}, 0},
		{[]string{" memory ", "gpio", "sensor"}, CapMemory | CapGPIO | CapSensor},
		{nil, 0},
	}

	for _, tt := range tests {
		if got := ParseCapabilities(tt.names); got != tt.want {
			t.Errorf("ParseCapabilities(%v) = %v, want %v", tt.names, got, tt.want)
		}
	}
}

func TestCapabilityPermits(t *testing.T) {
	if !CapAll.Permits(CapShell | CapNetwork) {
		t.Error("CapAll should permit everything")
	}
	if CapFilesystem.Permits(CapShell) {
		t.Error("CapFilesystem should not permit CapShell")
	}
	if !CapFilesystem.Permits(0) {
		t.Error("any capability set should permit the empty requirement")
	}
}
