package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// mockTransport is a test double for the Transport interface.
type mockTransport struct {
	mu        sync.Mutex
	responses map[string]*Response // method -> canned response
	sendErr   error                // returned from every Send when set
	sent      []Request
	notifs    []Notification
	closed    bool
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responses: make(map[string]*Response),
	}
}

func (m *mockTransport) addResponse(method string, result any) {
	data, _ := json.Marshal(result)
	m.responses[method] = &Response{
		JSONRPC: jsonrpcVersion,
		Result:  json.RawMessage(data),
	}
}

func (m *mockTransport) addError(method string, code int, msg string) {
	m.responses[method] = &Response{
		JSONRPC: jsonrpcVersion,
		Error:   &RPCError{Code: code, Message: msg},
	}
}

func (m *mockTransport) Send(_ context.Context, req *Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	m.sent = append(m.sent, *req)
	resp, ok := m.responses[req.Method]
	if !ok {
		return nil, fmt.Errorf("unexpected method: %s", req.Method)
	}
	out := *resp
	out.ID = req.ID
	return &out, nil
}

func (m *mockTransport) Notify(_ context.Context, notif *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifs = append(m.notifs, *notif)
	return nil
}

func (m *mockTransport) Close() error {
	m.closed = true
	return nil
}

func initResult(name string) initializeResult {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		ServerInfo:      serverInfo{Name: name, Version: "1.0.0"},
	}
}

func TestClient_Initialize(t *testing.T) {
	mt := newMockTransport()
	mt.addResponse("initialize", initResult("test-server"))

	client := NewClient("test", mt, nil)
	if err := client.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	if len(mt.sent) != 1 || mt.sent[0].Method != "initialize" {
		t.Fatalf("sent = %+v, want one initialize request", mt.sent)
	}
	if len(mt.notifs) != 1 || mt.notifs[0].Method != "notifications/initialized" {
		t.Fatalf("notifs = %+v, want one initialized notification", mt.notifs)
	}

	client.mu.RLock()
	defer client.mu.RUnlock()
	if client.serverName != "test-server" {
		t.Errorf("serverName = %q, want %q", client.serverName, "test-server")
	}
	if !client.initialized {
		t.Error("initialized = false after handshake")
	}
}

func TestClient_RequestIDsIncrease(t *testing.T) {
	mt := newMockTransport()
	mt.addResponse("ping", map[string]any{})

	client := NewClient("test", mt, nil)
	for i := 0; i < 3; i++ {
		if err := client.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
	}

	for i := 1; i < len(mt.sent); i++ {
		if mt.sent[i].ID <= mt.sent[i-1].ID {
			t.Errorf("id %d followed id %d, ids must increase",
				mt.sent[i].ID, mt.sent[i-1].ID)
		}
	}
}

func TestClient_ListToolsCaches(t *testing.T) {
	mt := newMockTransport()
	mt.addResponse("tools/list", toolsListResult{
		Tools: []ToolDefinition{
			{Name: "remote_echo", Description: "Echoes input", InputSchema: json.RawMessage(`{"type":"object"}`)},
		},
	})

	client := NewClient("test", mt, nil)

	defs, err := client.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(defs) != 1 || defs[0].Name != "remote_echo" {
		t.Fatalf("defs = %+v", defs)
	}

	// Second call hits the cache, not the transport.
	if _, err := client.ListTools(context.Background()); err != nil {
		t.Fatalf("ListTools (cached): %v", err)
	}
	if len(mt.sent) != 1 {
		t.Errorf("sent %d requests, want 1", len(mt.sent))
	}
}

func TestClient_CallToolFirstText(t *testing.T) {
	mt := newMockTransport()
	mt.addResponse("tools/call", callToolResult{
		Content: []ContentBlock{
			{Type: "image"},
			{Type: "text", Text: "the answer"},
			{Type: "text", Text: "ignored second block"},
		},
	})

	client := NewClient("test", mt, nil)
	out, err := client.CallTool(context.Background(), "remote_echo", `{"x":1}`)
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if out != "the answer" {
		t.Errorf("out = %q, want %q", out, "the answer")
	}

	// Arguments must pass through as raw JSON.
	var sent struct {
		Params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"params"`
	}
	data, _ := json.Marshal(mt.sent[0])
	if err := json.Unmarshal(data, &sent); err != nil {
		t.Fatalf("re-decode request: %v", err)
	}
	if sent.Params.Name != "remote_echo" {
		t.Errorf("params.name = %q", sent.Params.Name)
	}
	if string(sent.Params.Arguments) != `{"x":1}` {
		t.Errorf("params.arguments = %s", sent.Params.Arguments)
	}
}

func TestClient_CallToolIsError(t *testing.T) {
	mt := newMockTransport()
	mt.addResponse("tools/call", callToolResult{
		Content: []ContentBlock{{Type: "text", Text: "disk full"}},
		IsError: true,
	})

	client := NewClient("test", mt, nil)
	if _, err := client.CallTool(context.Background(), "remote_write", "{}"); err == nil {
		t.Fatal("expected error for isError result")
	}
}

func TestClient_ServerErrorSurfaces(t *testing.T) {
	mt := newMockTransport()
	mt.addError("tools/call", codeMethodNotFound, "Method not found")

	client := NewClient("test", mt, nil)
	_, err := client.CallTool(context.Background(), "anything", "{}")
	if err == nil {
		t.Fatal("expected error")
	}
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Code != codeMethodNotFound {
		t.Errorf("err = %v, want RPCError %d", err, codeMethodNotFound)
	}
}

func TestClient_CloseClosesTransport(t *testing.T) {
	mt := newMockTransport()
	client := NewClient("test", mt, nil)
	if err := client.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !mt.closed {
		t.Error("transport not closed")
	}
}
