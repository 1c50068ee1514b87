package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/Neuron-OS/neuronos-sub000/internal/jsonx"
	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

const toolSchema = `{"type":"object","properties":{"url":{"type":"string","description":"URL to fetch and extract content from"},"max_chars":{"type":"integer","description":"Maximum characters to return (default 50000)"}},"required":["url"]}`

// Tool wraps the Fetcher as a registry descriptor. Requires the
// network capability.
func Tool(f *Fetcher) *tools.Tool {
	return &tools.Tool{
		Name:        "web_fetch",
		Description: "Fetch a web page and return its readable text content",
		Schema:      toolSchema,
		Requires:    tools.CapNetwork,
		Handler: func(ctx context.Context, argsJSON string) tools.Result {
			url := jsonx.FindString(argsJSON, "url", "")
			if url == "" {
				return tools.Fail("url is required")
			}
			maxChars := jsonx.FindInt(argsJSON, "max_chars", 0)

			result, err := f.Fetch(ctx, url, int(maxChars))
			if err != nil {
				return tools.Fail(err.Error())
			}
			return tools.Ok(formatResult(result))
		},
	}
}

// formatResult renders a Result as plain text for the model.
func formatResult(r *Result) string {
	var b strings.Builder
	if r.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", r.Title)
	}
	b.WriteString(r.Content)
	if r.Truncated {
		b.WriteString("\n\n[content truncated]")
	}
	return b.String()
}
