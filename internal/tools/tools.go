// Package tools provides the capability-gated tool registry and the
// execution framework the agent loop and the MCP server dispatch
// through. A tool is only ever reachable via [Registry.Execute] — no
// caller invokes a handler directly.
package tools

import "context"

// maxTools bounds the registry. This is a practical limit, not a
// semantic one; Register reports ErrCapacityExceeded past it.
const maxTools = 256

// Handler executes a tool. Arguments arrive as raw JSON text; the
// handler owns all argument validation and reports failure through the
// Result, never by panicking.
type Handler func(ctx context.Context, argsJSON string) Result

// Result is the outcome of one tool execution. Exactly one of Output
// or Error is meaningful, selected by OK.
type Result struct {
	OK     bool
	Output string
	Error  string
}

// Ok returns a successful Result with the given output.
func Ok(output string) Result {
	return Result{OK: true, Output: output}
}

// Fail returns a failed Result with the given error text.
func Fail(errText string) Result {
	return Result{Error: errText}
}

// Tool describes one callable tool. Descriptors are immutable after
// registration; the registry owns them from that point on.
type Tool struct {
	// Name is the unique registry key the model calls the tool by.
	Name string

	// Description tells the model (and humans) what the tool does.
	Description string

	// Schema is the JSON Schema for the tool's arguments, as text.
	Schema string

	// Requires is the capability set a caller must allow for this
	// tool to become reachable through RegisterDefaults.
	Requires Capability

	// Handler executes the tool.
	Handler Handler
}

// Registry holds tools in insertion order. It is mutated only during
// setup; execution and serving read it without locking, which is safe
// because registration never races with dispatch.
type Registry struct {
	list  []*Tool
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a tool. It fails with ErrInvalidDescriptor when the
// name or handler is missing, ErrDuplicateName when the name is taken,
// and ErrCapacityExceeded when the registry is full.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" || t.Handler == nil {
		return ErrInvalidDescriptor
	}
	if _, exists := r.index[t.Name]; exists {
		return &DuplicateNameError{Name: t.Name}
	}
	if len(r.list) >= maxTools {
		return ErrCapacityExceeded
	}
	r.index[t.Name] = len(r.list)
	r.list = append(r.list, t)
	return nil
}

// RegisterDefaults registers every tool in defaults whose required
// capabilities are a subset of allowed, and returns how many were
// accepted. This is the single enforcement point of the capability
// sandbox: a tool skipped here is simply never reachable.
func (r *Registry) RegisterDefaults(allowed Capability, defaults []*Tool) int {
	count := 0
	for _, t := range defaults {
		if !allowed.Permits(t.Requires) {
			continue
		}
		if err := r.Register(t); err != nil {
			continue
		}
		count++
	}
	return count
}

// Execute runs the named tool. An unknown name yields a failed Result
// with the fixed error text "Tool not found"; otherwise the handler's
// Result is returned unmodified — the registry never interprets or
// retries handler failures.
func (r *Registry) Execute(ctx context.Context, name, argsJSON string) Result {
	i, ok := r.index[name]
	if !ok {
		return Fail("Tool not found")
	}
	return r.list[i].Handler(ctx, argsJSON)
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	return len(r.list)
}

// NameAt returns the name of the tool at insertion position i, or ""
// when i is out of range.
func (r *Registry) NameAt(i int) string {
	if i < 0 || i >= len(r.list) {
		return ""
	}
	return r.list[i].Name
}

// DescriptionAt returns the description at insertion position i.
func (r *Registry) DescriptionAt(i int) string {
	if i < 0 || i >= len(r.list) {
		return ""
	}
	return r.list[i].Description
}

// SchemaAt returns the argument schema text at insertion position i.
func (r *Registry) SchemaAt(i int) string {
	if i < 0 || i >= len(r.list) {
		return ""
	}
	return r.list[i].Schema
}

// Names returns all tool names in insertion order. Used to build the
// name-constraining grammar for generation.
func (r *Registry) Names() []string {
	names := make([]string, len(r.list))
	for i, t := range r.list {
		names[i] = t.Name
	}
	return names
}
