package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Neuron-OS/neuronos-sub000/internal/httpkit"
)

// OllamaEngine drives a local Ollama server through its /api/chat
// endpoint. Ollama has no arbitrary-grammar mode, so a non-empty
// Request.Grammar is approximated with format=json, which is enough to
// force the well-formed JSON shapes the agent loop expects.
type OllamaEngine struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaEngine creates an engine for the given server URL and model.
func NewOllamaEngine(baseURL, model string) *OllamaEngine {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaEngine{
		baseURL: baseURL,
		model:   model,
		// Large models need time; token streaming keeps the
		// connection busy well past any sane request timeout.
		httpClient: httpkit.NewClient(httpkit.WithTimeout(5 * time.Minute)),
	}
}

// chatRequest is the wire format of the Ollama chat API.
type chatRequest struct {
	Model    string       `json:"model"`
	Messages []Message    `json:"messages"`
	Stream   bool         `json:"stream"`
	Format   string       `json:"format,omitempty"`
	Options  *chatOptions `json:"options,omitempty"`
}

// chatOptions are model sampling parameters.
type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

// chatChunk is one newline-delimited response chunk.
type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// Generate implements Engine. The request always streams so token
// callbacks and early stop work; without a callback the chunks are
// simply accumulated.
func (e *OllamaEngine) Generate(ctx context.Context, req Request, onToken TokenCallback) (string, error) {
	wire := chatRequest{
		Model:    e.model,
		Messages: req.Messages,
		Stream:   true,
	}
	if req.Grammar != "" {
		wire.Format = "json"
	}
	if req.Temperature > 0 || req.MaxTokens > 0 || req.ContextTokens > 0 {
		wire.Options = &chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			NumCtx:      req.ContextTokens,
		}
	}

	jsonData, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var content strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for {
		var chunk chatChunk
		if err := decoder.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("decode stream chunk: %w", err)
		}

		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if onToken != nil && !onToken(chunk.Message.Content) {
				// Cooperative early stop: keep what we have.
				return content.String(), nil
			}
		}

		if chunk.Done {
			break
		}
	}

	return content.String(), nil
}

// Ping checks whether the Ollama server is reachable.
func (e *OllamaEngine) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", e.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
