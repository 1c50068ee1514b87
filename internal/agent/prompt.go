package agent

import (
	"fmt"
	"strings"

	"github.com/Neuron-OS/neuronos-sub000/internal/jsonx"
	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

// systemPromptTemplate is the fixed part of the system prompt. The tool
// catalog built from registry introspection is appended to it.
const systemPromptTemplate = `You are a tool-using assistant. You reason in steps.

At every step respond with exactly one JSON object, in one of two shapes:

  {"thought": "<your reasoning>", "action": "<tool name>", "args": {<tool arguments>}}
  {"thought": "<your reasoning>", "answer": "<final answer to the user>"}

Use "action" to call a tool and observe its result. Use "answer" only
when you can fully answer the user's request. Never emit anything
outside the JSON object.

Available tools:
`

// buildSystemPrompt renders the template plus a human-readable catalog
// of every registered tool, in insertion order.
func buildSystemPrompt(registry *tools.Registry) string {
	var sb strings.Builder
	sb.WriteString(systemPromptTemplate)

	if registry == nil || registry.Count() == 0 {
		sb.WriteString("(none)\n")
		return sb.String()
	}

	for i := 0; i < registry.Count(); i++ {
		fmt.Fprintf(&sb, "- %s: %s\n", registry.NameAt(i), registry.DescriptionAt(i))
		if schema := registry.SchemaAt(i); schema != "" {
			fmt.Fprintf(&sb, "  args schema: %s\n", schema)
		}
	}
	return sb.String()
}

// buildGrammar produces a GBNF grammar restricting engine output to the
// two step shapes, with the action name constrained to the registered
// tool set. Engines that cannot enforce GBNF fall back to plain JSON
// mode, which the loop's corrective turns make survivable.
func buildGrammar(registry *tools.Registry) string {
	var names []string
	if registry != nil {
		names = registry.Names()
	}

	var sb strings.Builder
	sb.WriteString("root ::= toolcall | final\n")
	sb.WriteString(`toolcall ::= "{" ws "\"thought\"" ws ":" ws string ws "," ws "\"action\"" ws ":" ws action ws "," ws "\"args\"" ws ":" ws object ws "}"` + "\n")
	sb.WriteString(`final ::= "{" ws "\"thought\"" ws ":" ws string ws "," ws "\"answer\"" ws ":" ws string ws "}"` + "\n")

	if len(names) == 0 {
		sb.WriteString("action ::= string\n")
	} else {
		alts := make([]string, len(names))
		for i, name := range names {
			alts[i] = fmt.Sprintf(`"\"%s\""`, jsonx.Escape(name))
		}
		sb.WriteString("action ::= " + strings.Join(alts, " | ") + "\n")
	}

	sb.WriteString(`string ::= "\"" char* "\""` + "\n")
	sb.WriteString(`char ::= [^"\\] | "\\" ["\\/bfnrtu]` + "\n")
	sb.WriteString(`object ::= "{" ( ws string ws ":" ws value ( ws "," ws string ws ":" ws value )* )? ws "}"` + "\n")
	sb.WriteString(`array ::= "[" ( ws value ( ws "," ws value )* )? ws "]"` + "\n")
	sb.WriteString(`value ::= string | number | object | array | "true" | "false" | "null"` + "\n")
	sb.WriteString(`number ::= "-"? [0-9]+ ("." [0-9]+)? (("e" | "E") ("+" | "-")? [0-9]+)?` + "\n")
	sb.WriteString("ws ::= [ \\t\\n\\r]*\n")
	return sb.String()
}
