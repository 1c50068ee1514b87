// Package mcp implements the Model Context Protocol on both sides of
// the wire. The client side spawns external MCP servers as
// subprocesses, speaks newline-delimited JSON-RPC 2.0 over their
// stdin/stdout, and bridges the tools they advertise into the local
// tool registry. The server side is the mirror image: it exposes a
// local registry to an external MCP host over the same envelopes.
//
// The Manager owns every client connection and every bridge closure
// it hands to a registry. Teardown order matters: close the Manager
// only after the registry is no longer executing bridged tools.
package mcp
