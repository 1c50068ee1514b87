// Package agent implements the think-act-observe loop: each step asks
// the generation engine for one of two JSON shapes (a tool call or a
// final answer), executes the chosen tool through the registry, and
// feeds the result back as the next step's observation.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Neuron-OS/neuronos-sub000/internal/jsonx"
	"github.com/Neuron-OS/neuronos-sub000/internal/llm"
	"github.com/Neuron-OS/neuronos-sub000/internal/memory"
	"github.com/Neuron-OS/neuronos-sub000/internal/tools"
)

// Default parameters, applied by NewSession for any non-positive value.
const (
	defaultMaxSteps      = 10
	defaultTokensPerStep = 512
	defaultTemperature   = 0.3
	defaultContextBudget = 1536
)

// correctiveObservation is fed back when the model produced neither an
// action nor an answer. This is a self-correction turn, not a failure.
const correctiveObservation = "Your response was malformed: you must provide either " +
	`{"thought","action","args"} or {"thought","answer"}. Try again.`

// Status is the loop-level outcome of a run.
type Status int

const (
	// StatusOK means the model produced a final answer.
	StatusOK Status = iota

	// StatusExhausted means the step budget ran out with no answer.
	StatusExhausted

	// StatusFailed means the generation engine itself failed. Tool
	// failures never produce this — they become observations.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Params tune a session. Zero or negative fields get defaults.
type Params struct {
	MaxSteps         int
	MaxTokensPerStep int
	Temperature      float64
	ContextBudget    int
}

// Result is the outcome of one Run or Chat call.
type Result struct {
	Text       string
	StepsTaken int
	Elapsed    time.Duration
	Status     Status
}

// StepRecord captures one completed step. Records exist only to
// reconstruct the next step's prompt and are discarded at run end.
type StepRecord struct {
	Index       int
	RawOutput   string
	Action      string
	Observation string
}

// StepFunc is invoked once per completed step with the parsed thought,
// the chosen action name ("final_answer" for the terminal step, "error"
// for a self-correction turn), and the resulting observation.
type StepFunc func(step int, thought, action, observation string)

// Session drives the loop. It references the engine, registry, and
// memory collaborators without owning them; the caller manages their
// lifetimes.
type Session struct {
	engine   llm.Engine
	registry *tools.Registry
	memory   *memory.Store
	params   Params
	logger   *slog.Logger

	systemPrompt string
	grammar      string

	// OnToken, when set, receives engine tokens as they stream.
	OnToken llm.TokenCallback

	// history carries the conversation across Chat calls.
	history []llm.Message
}

// NewSession creates a session over the given engine and registry. The
// system prompt and the output-constraining grammar are built once from
// registry introspection; registering tools after this point will not
// be reflected in either.
func NewSession(engine llm.Engine, registry *tools.Registry, params Params, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if params.MaxSteps <= 0 {
		params.MaxSteps = defaultMaxSteps
	}
	if params.MaxTokensPerStep <= 0 {
		params.MaxTokensPerStep = defaultTokensPerStep
	}
	if params.Temperature <= 0 {
		params.Temperature = defaultTemperature
	}
	if params.ContextBudget <= 0 {
		params.ContextBudget = defaultContextBudget
	}

	return &Session{
		engine:       engine,
		registry:     registry,
		params:       params,
		logger:       logger.With("component", "agent"),
		systemPrompt: buildSystemPrompt(registry),
		grammar:      buildGrammar(registry),
	}
}

// SetMemory attaches the memory collaborator. The reference is
// non-owning; besides the memory tools themselves, it lets each run
// recall stored entries matching the user input into the prompt.
func (s *Session) SetMemory(mem *memory.Store) {
	s.memory = mem
}

// recallLimit caps how many remembered entries are injected per run.
const recallLimit = 5

// recall searches the memory store for entries related to the input
// and renders them as a context block, or "" when there is nothing.
func (s *Session) recall(input string) string {
	if s.memory == nil {
		return ""
	}
	entries, err := s.memory.Search(memory.DefaultNamespace, input, recallLimit)
	if err != nil || len(entries) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant memory:\n")
	for _, e := range entries {
		b.WriteString("- ")
		b.WriteString(e.Key)
		b.WriteString(": ")
		b.WriteString(e.Value)
		b.WriteString("\n")
	}
	return b.String()
}

// ClearHistory resets the cross-call conversation history used by Chat.
func (s *Session) ClearHistory() {
	s.history = nil
}

// Run executes the loop for one user input, starting from a fresh
// conversation. onStep may be nil.
func (s *Session) Run(ctx context.Context, userInput string, onStep StepFunc) Result {
	return s.run(ctx, userInput, onStep, false)
}

// Chat is Run with the session's conversation history prepended, and
// the exchange appended to it afterwards.
func (s *Session) Chat(ctx context.Context, userInput string, onStep StepFunc) Result {
	return s.run(ctx, userInput, onStep, true)
}

func (s *Session) run(ctx context.Context, userInput string, onStep StepFunc, useHistory bool) Result {
	runID, _ := uuid.NewV7()
	logger := s.logger.With("run_id", runID.String())
	start := time.Now()

	toolCount := 0
	if s.registry != nil {
		toolCount = s.registry.Count()
	}
	logger.Info("run started",
		"input_len", len(userInput),
		"max_steps", s.params.MaxSteps,
		"tools", toolCount,
	)

	var records []StepRecord

	for step := 0; step < s.params.MaxSteps; step++ {
		req := llm.Request{
			Messages:      s.buildMessages(userInput, records, useHistory),
			MaxTokens:     s.params.MaxTokensPerStep,
			Temperature:   s.params.Temperature,
			ContextTokens: s.params.ContextBudget,
			Grammar:       s.grammar,
		}

		raw, err := s.engine.Generate(ctx, req, s.OnToken)
		if err != nil {
			// Generation failure is the one loop-fatal category.
			logger.Error("generation failed", "step", step, "error", err)
			return Result{
				StepsTaken: step,
				Elapsed:    time.Since(start),
				Status:     StatusFailed,
			}
		}

		thought := jsonx.FindString(raw, "thought", "")

		// An answer key terminates the run even when an action is
		// also present — answer takes priority.
		if jsonx.HasKey(raw, "answer") {
			answer := jsonx.FindString(raw, "answer", "")
			if onStep != nil {
				onStep(step, thought, "final_answer", answer)
			}
			if useHistory {
				s.history = append(s.history,
					llm.Message{Role: "user", Content: userInput},
					llm.Message{Role: "assistant", Content: answer},
				)
			}
			logger.Info("run completed", "steps", step+1, "elapsed", time.Since(start).Round(time.Millisecond))
			return Result{
				Text:       answer,
				StepsTaken: step + 1,
				Elapsed:    time.Since(start),
				Status:     StatusOK,
			}
		}

		action := jsonx.FindString(raw, "action", "")
		if action != "" && s.registry != nil {
			args, ok := jsonx.ExtractObject(raw, "args")
			if !ok {
				args = "{}"
			}

			res := s.registry.Execute(ctx, action, args)
			observation := res.Output
			if !res.OK {
				// Tool failure is recoverable: it becomes the next
				// observation so the model can adapt.
				observation = res.Error
				logger.Warn("tool failed", "step", step, "tool", action, "error", res.Error)
			} else {
				logger.Debug("tool executed", "step", step, "tool", action, "output_len", len(observation))
			}

			if onStep != nil {
				onStep(step, thought, action, observation)
			}
			records = append(records, StepRecord{
				Index:       step,
				RawOutput:   raw,
				Action:      action,
				Observation: observation,
			})
			continue
		}

		// Neither answer nor action: synthesize a corrective turn.
		logger.Warn("malformed model output", "step", step, "raw_len", len(raw))
		if onStep != nil {
			onStep(step, thought, "error", correctiveObservation)
		}
		records = append(records, StepRecord{
			Index:       step,
			RawOutput:   raw,
			Action:      "error",
			Observation: correctiveObservation,
		})
	}

	logger.Warn("run exhausted", "steps", s.params.MaxSteps)
	return Result{
		StepsTaken: s.params.MaxSteps,
		Elapsed:    time.Since(start),
		Status:     StatusExhausted,
	}
}

// buildMessages assembles the turn sequence for one generation call:
// system prompt, prior history (Chat only), the user input, then each
// completed step's (assistant output, observation) pair. Rebuilt from
// scratch every step — fine at ten steps.
func (s *Session) buildMessages(userInput string, records []StepRecord, useHistory bool) []llm.Message {
	msgs := make([]llm.Message, 0, len(s.history)+2*len(records)+3)
	msgs = append(msgs, llm.Message{Role: "system", Content: s.systemPrompt})
	if recalled := s.recall(userInput); recalled != "" {
		msgs = append(msgs, llm.Message{Role: "system", Content: recalled})
	}
	if useHistory {
		msgs = append(msgs, s.history...)
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: userInput})
	for _, rec := range records {
		msgs = append(msgs, llm.Message{Role: "assistant", Content: rec.RawOutput})
		msgs = append(msgs, llm.Message{Role: "user", Content: "Observation: " + rec.Observation})
	}
	return msgs
}
