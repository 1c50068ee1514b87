// Package llm abstracts the text-generation engine the agent loop
// drives. The engine is a black box: it takes an assembled turn
// sequence and returns raw text, optionally streaming tokens to a
// callback. Everything about sampling, tokenization, and grammar
// enforcement lives behind this interface.
package llm

import "context"

// Message is one turn in the sequence sent to the engine.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Request carries one generation call's inputs.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64

	// ContextTokens sizes the model's context window for this
	// request; zero leaves the engine default.
	ContextTokens int

	// Grammar, when non-empty, asks the engine to constrain its
	// output to the given formal grammar. Engines that cannot
	// enforce an arbitrary grammar fall back to their closest
	// structured-output mode.
	Grammar string
}

// TokenCallback receives each generated token as it is produced,
// synchronously on the calling goroutine. Returning false requests an
// early stop; this is cooperative, not true cancellation.
type TokenCallback func(token string) bool

// Engine generates text. A Generate error is the one failure the agent
// loop treats as fatal — no further steps are meaningful without a
// working generator.
type Engine interface {
	Generate(ctx context.Context, req Request, onToken TokenCallback) (string, error)
}
