package tools

import "strings"

// Capability is a permission bitmask gating tool registration. A tool
// whose Requires set is not covered by the caller's allowed set is
// skipped by RegisterDefaults — that skip is the sandboxing boundary.
type Capability uint32

const (
	// CapFilesystem permits tools that read or write local files.
	CapFilesystem Capability = 1 << iota

	// CapNetwork permits tools that make outbound connections.
	// Bridged MCP tools always carry this.
	CapNetwork

	// CapShell permits arbitrary command execution.
	CapShell

	// CapMemory permits access to the persistent memory store.
	CapMemory

	// CapSensor permits reading attached sensors.
	CapSensor

	// CapGPIO permits driving GPIO lines.
	CapGPIO
)

// CapAll is every capability bit set.
const CapAll = CapFilesystem | CapNetwork | CapShell | CapMemory | CapSensor | CapGPIO

// capNames maps bits to config/display names, in bit order.
var capNames = []struct {
	bit  Capability
	name string
}{
	{CapFilesystem, "filesystem"},
	{CapNetwork, "network"},
	{CapShell, "shell"},
	{CapMemory, "memory"},
	{CapSensor, "sensor"},
	{CapGPIO, "gpio"},
}

// Permits reports whether required is a subset of c.
func (c Capability) Permits(required Capability) bool {
	return required&^c == 0
}

// String renders the set as a comma-separated list of names, or "none".
func (c Capability) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, cn := range capNames {
		if c&cn.bit != 0 {
			parts = append(parts, cn.name)
		}
	}
	return strings.Join(parts, ",")
}

// ParseCapabilities converts config names ("filesystem", "shell", ...,
// or "all") to a bitmask. Unknown names are ignored rather than fatal
// so a config typo narrows the sandbox instead of widening it.
func ParseCapabilities(names []string) Capability {
	var c Capability
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "all" {
			return CapAll
		}
		for _, cn := range capNames {
			if name == cn.name {
				c |= cn.bit
			}
		}
	}
	return c
}
