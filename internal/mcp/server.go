package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Neuron-OS/neuronos-sub000/internal/buildinfo"
	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

// incoming is a decoded envelope from the peer. A nil ID marks a
// notification; requests always carry one.
type incoming struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *int64          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// callParams is the params shape of tools/call.
type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// toolObject is one entry in a tools/list result.
type toolObject struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Server exposes a tool registry to an external MCP host over
// newline-delimited JSON-RPC. One request is processed at a time;
// there is no pipelining.
type Server struct {
	registry *tools.Registry
	logger   *slog.Logger

	initialized bool
}

// NewServer creates a server exposing the given registry.
func NewServer(registry *tools.Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		registry: registry,
		logger:   logger.With("component", "mcp_server"),
	}
}

// Serve reads envelopes from r until the stream closes, writing
// responses to w. Tool handlers run under ctx; the loop itself ends
// when ctx is cancelled or r reaches EOF.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var msg incoming
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			s.logger.Warn("malformed envelope", "error", err)
			if err := s.writeError(w, 0, codeInvalidRequest, "Invalid request"); err != nil {
				return err
			}
			continue
		}

		if msg.ID == nil {
			s.handleNotification(&msg)
			continue
		}

		if err := s.handleRequest(ctx, w, &msg); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// handleNotification processes an id-less envelope. Nothing is ever
// written back.
func (s *Server) handleNotification(msg *incoming) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Info("client completed initialization")
	case "notifications/cancelled":
		// No in-flight work to cancel; requests are handled one at a time.
		s.logger.Info("client sent cancellation", "params", string(msg.Params))
	default:
		s.logger.Debug("ignoring notification", "method", msg.Method)
	}
}

// handleRequest dispatches one request and writes the response. The
// returned error reflects only write failures; protocol problems go
// back to the peer as JSON-RPC errors.
func (s *Server) handleRequest(ctx context.Context, w io.Writer, msg *incoming) error {
	id := *msg.ID
	s.logger.Debug("handling request", "method", msg.Method, "id", id)

	switch msg.Method {
	case "initialize":
		s.initialized = true
		return s.writeResult(w, id, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools":   map[string]any{"listChanged": false},
				"logging": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":        buildinfo.Name,
				"version":     buildinfo.Version,
				"description": "tool registry over MCP",
			},
		})

	case "ping":
		return s.writeResult(w, id, map[string]any{})

	case "tools/list":
		if !s.initialized {
			return s.writeError(w, id, codeNotInitialized, "Not initialized")
		}
		return s.writeResult(w, id, map[string]any{"tools": s.listTools()})

	case "tools/call":
		if !s.initialized {
			return s.writeError(w, id, codeNotInitialized, "Not initialized")
		}
		return s.handleCall(ctx, w, id, msg.Params)

	default:
		return s.writeError(w, id, codeMethodNotFound, "Method not found")
	}
}

// listTools serializes every registry entry to the MCP tool-object
// shape via the registry's introspection API.
func (s *Server) listTools() []toolObject {
	out := make([]toolObject, 0, s.registry.Count())
	for i := 0; i < s.registry.Count(); i++ {
		schema := s.registry.SchemaAt(i)
		if schema == "" {
			schema = "{}"
		}
		out = append(out, toolObject{
			Name:        s.registry.NameAt(i),
			Description: s.registry.DescriptionAt(i),
			InputSchema: json.RawMessage(schema),
		})
	}
	return out
}

// handleCall executes a tools/call request against the registry and
// wraps the result in MCP content blocks.
func (s *Server) handleCall(ctx context.Context, w io.Writer, id int64, params json.RawMessage) error {
	var call callParams
	if err := json.Unmarshal(params, &call); err != nil || call.Name == "" {
		return s.writeError(w, id, codeInvalidParams, "Invalid params: name is required")
	}

	args := string(call.Arguments)
	if args == "" {
		args = "{}"
	}

	result := s.registry.Execute(ctx, call.Name, args)

	text := result.Output
	if !result.OK {
		text = result.Error
	}

	return s.writeResult(w, id, map[string]any{
		"content": []ContentBlock{{Type: "text", Text: text}},
		"isError": !result.OK,
	})
}

// writeResult writes a success response envelope followed by newline.
func (s *Server) writeResult(w io.Writer, id int64, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return s.writeError(w, id, codeInternalError, "Internal error")
	}
	return s.writeLine(w, &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Result:  data,
	})
}

// writeError writes an error response envelope followed by newline.
func (s *Server) writeError(w io.Writer, id int64, code int, message string) error {
	return s.writeLine(w, &Response{
		JSONRPC: jsonrpcVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	})
}

func (s *Server) writeLine(w io.Writer, resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
