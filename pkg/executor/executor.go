package executor

import (
	"context"
	"errors"
	"time"

	"papertrade-api/pkg/llm"
)

// Oracle is the decision engine consulted once per scheduler cycle.
type Oracle interface {
	// Decide requests a trade intent for the supplied context. Oracle
	// failures never surface as errors: the returned decision degrades to
	// hold with the cause recorded.
	Decide(ctx context.Context, input *Context) (*Decision, error)
	// GetConfig exposes the executor configuration.
	GetConfig() *Config
}

// OracleExecutor wires configuration, prompt rendering and the LLM client.
type OracleExecutor struct {
	cfg      *Config
	llm      llm.LLMClient
	renderer *PromptRenderer
	nowFn    func() time.Time
}

// Option configures the executor.
type Option func(*OracleExecutor)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(e *OracleExecutor) {
		if fn != nil {
			e.nowFn = fn
		}
	}
}

// NewExecutor constructs an OracleExecutor.
func NewExecutor(cfg *Config, client llm.LLMClient, opts ...Option) (*OracleExecutor, error) {
	if cfg == nil {
		return nil, errors.New("executor: config is required")
	}
	if client == nil {
		return nil, errors.New("executor: llm client is required")
	}
	renderer, err := NewPromptRenderer(cfg, cfg.TemplatePath)
	if err != nil {
		return nil, err
	}
	e := &OracleExecutor{cfg: cfg, llm: client, renderer: renderer, nowFn: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// GetConfig returns the underlying configuration.
func (e *OracleExecutor) GetConfig() *Config { return e.cfg }

// Decide implements Oracle.
func (e *OracleExecutor) Decide(ctx context.Context, input *Context) (*Decision, error) {
	if e == nil || e.renderer == nil {
		return nil, errors.New("executor: not initialised")
	}
	if input == nil {
		return nil, errors.New("executor: input context is required")
	}

	prompt, err := e.renderer.Render(buildPromptInputs(e.cfg, input))
	if err != nil {
		return nil, err
	}

	req := &llm.ChatRequest{
		Model: e.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: prompt},
		},
		Temperature: e.cfg.Temperature,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.DecisionTimeout)
	defer cancel()

	var raw intentContract
	if err := e.llm.ChatStructured(callCtx, req, &raw); err != nil {
		return &Decision{
			Intent:    holdIntent(input, ""),
			Fallback:  true,
			Cause:     err.Error(),
			Prompt:    prompt,
			Timestamp: e.nowFn().UTC(),
		}, nil
	}

	intent, cause := mapIntentContract(e.cfg, input, raw)
	return &Decision{
		Intent:    intent,
		Fallback:  cause != "",
		Cause:     cause,
		Prompt:    prompt,
		Timestamp: e.nowFn().UTC(),
	}, nil
}
