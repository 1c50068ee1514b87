package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/Neuron-OS/neuronos-sub000/internal/jsonx"
	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

// DefaultNamespace is used when a tool call omits the namespace.
const DefaultNamespace = "agent"

// Tools returns the memory-backed tool descriptors. All of them
// require CapMemory, so a registry without that capability never sees
// the store at all.
func Tools(s *Store) []*tools.Tool {
	return []*tools.Tool{
		{
			Name:        "memory_set",
			Description: "Store a value in persistent memory under a key.",
			Schema: `{"type":"object","properties":{` +
				`"key":{"type":"string","description":"The key to store under"},` +
				`"value":{"type":"string","description":"The value to store"},` +
				`"namespace":{"type":"string","description":"Optional namespace (default: agent)"}},` +
				`"required":["key","value"]}`,
			Requires: tools.CapMemory,
			Handler:  setHandler(s),
		},
		{
			Name:        "memory_get",
			Description: "Retrieve a value from persistent memory by key.",
			Schema: `{"type":"object","properties":{` +
				`"key":{"type":"string","description":"The key to look up"},` +
				`"namespace":{"type":"string","description":"Optional namespace (default: agent)"}},` +
				`"required":["key"]}`,
			Requires: tools.CapMemory,
			Handler:  getHandler(s),
		},
		{
			Name:        "memory_search",
			Description: "Full-text search over stored memories. Returns matching key/value pairs.",
			Schema: `{"type":"object","properties":{` +
				`"query":{"type":"string","description":"Search terms"},` +
				`"namespace":{"type":"string","description":"Optional namespace (default: agent)"},` +
				`"limit":{"type":"integer","description":"Maximum results (default 10)"}},` +
				`"required":["query"]}`,
			Requires: tools.CapMemory,
			Handler:  searchHandler(s),
		},
	}
}

func setHandler(s *Store) tools.Handler {
	return func(_ context.Context, argsJSON string) tools.Result {
		key := jsonx.FindString(argsJSON, "key", "")
		if key == "" {
			return tools.Fail("key is required")
		}
		value := jsonx.FindString(argsJSON, "value", "")
		ns := jsonx.FindString(argsJSON, "namespace", DefaultNamespace)

		if err := s.Set(ns, key, value); err != nil {
			return tools.Fail(err.Error())
		}
		return tools.Ok(fmt.Sprintf("stored %s/%s", ns, key))
	}
}

func getHandler(s *Store) tools.Handler {
	return func(_ context.Context, argsJSON string) tools.Result {
		key := jsonx.FindString(argsJSON, "key", "")
		if key == "" {
			return tools.Fail("key is required")
		}
		ns := jsonx.FindString(argsJSON, "namespace", DefaultNamespace)

		value, err := s.Get(ns, key)
		if err != nil {
			return tools.Fail(err.Error())
		}
		if value == "" {
			return tools.Ok(fmt.Sprintf("no memory stored under %s/%s", ns, key))
		}
		return tools.Ok(value)
	}
}

func searchHandler(s *Store) tools.Handler {
	return func(_ context.Context, argsJSON string) tools.Result {
		query := jsonx.FindString(argsJSON, "query", "")
		if query == "" {
			return tools.Fail("query is required")
		}
		ns := jsonx.FindString(argsJSON, "namespace", DefaultNamespace)
		limit := int(jsonx.FindInt(argsJSON, "limit", 10))

		entries, err := s.Search(ns, query, limit)
		if err != nil {
			return tools.Fail(err.Error())
		}
		if len(entries) == 0 {
			return tools.Ok("no matching memories")
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "found %d match(es):\n", len(entries))
		for _, e := range entries {
			fmt.Fprintf(&sb, "- %s: %s\n", e.Key, e.Value)
		}
		return tools.Ok(sb.String())
	}
}
