// Package agent drives the registered tools from an Anthropic model: the model
// picks tools, the dispatcher runs them, and the envelopes go back as tool
// results until the model answers.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/models"
	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
	"github.com/toolrelay/toolrelay/internal/tools"
)

const (
	defaultModel     = "claude-sonnet-4-5"
	defaultMaxTokens = 4096
	defaultMaxIter   = 10

	systemPrompt = "You are an operations assistant with access to business tools " +
		"(search, database, CRM, enrichment, calendar, messaging, email, payments, docs, social). " +
		"Call tools when you need data or need to act, read each JSON result carefully, " +
		"and reply with a concise final answer. If a tool reports not_configured, say so instead of retrying."

	finalAnswerPrompt = "You have reached the tool call limit. Provide your final answer now without calling any more tools."
)

// RejectedError means the request was refused before reaching the model.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "rejected: " + e.Reason }

// LLMError wraps a failed call to the model API.
type LLMError struct {
	Err error
}

func (e *LLMError) Error() string { return "LLM call failed: " + e.Err.Error() }
func (e *LLMError) Unwrap() error { return e.Err }

type Options struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int

	PII     *security.PIIDetector
	Prompts *security.PromptValidator
	Audit   *security.AuditLogger
}

// Agent is safe for concurrent use; each Run keeps its own conversation.
type Agent struct {
	client     *anthropic.Client
	dispatcher *tools.Dispatcher
	router     *ToolRouter
	model      string
	maxTokens  int
	pii        *security.PIIDetector
	prompts    *security.PromptValidator
	audit      *security.AuditLogger
}

func New(d *tools.Dispatcher, opts Options) *Agent {
	reqOpts := []option.RequestOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	a := &Agent{
		client:     anthropic.NewClient(reqOpts...),
		dispatcher: d,
		router:     NewToolRouter(),
		model:      opts.Model,
		maxTokens:  opts.MaxTokens,
		pii:        opts.PII,
		prompts:    opts.Prompts,
		audit:      opts.Audit,
	}
	if a.model == "" {
		a.model = defaultModel
	}
	if a.maxTokens <= 0 {
		a.maxTokens = defaultMaxTokens
	}
	return a
}

func (a *Agent) Model() string { return a.model }

type toolCall struct {
	id    string
	name  string
	input map[string]any
}

// Run answers req.Prompt. Screening failures return *RejectedError and model
// API failures *LLMError; tool failures never abort the run, they are handed
// back to the model as error results.
func (a *Agent) Run(ctx context.Context, req *models.AgentRequest, caller string) (*models.AgentResponse, error) {
	start := time.Now()
	resp := &models.AgentResponse{
		RunID:  uuid.NewString(),
		Prompt: req.Prompt,
		Model:  a.model,
		Steps:  []models.AgentStep{},
	}
	defer func() {
		resp.DurationMs = time.Since(start).Milliseconds()
		a.audit.LogAgentRequest(req.Prompt, caller, len(resp.Steps), resp.Success, resp.DurationMs)
	}()

	if err := a.screen(req.Prompt); err != nil {
		return resp, err
	}
	selected, err := a.selectTools(req)
	if err != nil {
		return resp, err
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
		defer cancel()
	}
	ctx = tools.WithCaller(ctx, caller)

	maxIter := req.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIter
	}

	params := make([]anthropic.ToolUnionUnionParam, 0, len(selected))
	allowed := make(map[string]bool, len(selected))
	for _, t := range selected {
		p, err := toolParam(t)
		if err != nil {
			return resp, fmt.Errorf("build tool %s: %w", t.Name, err)
		}
		params = append(params, p)
		allowed[t.Name] = true
	}

	log.Info().
		Str("run_id", resp.RunID).
		Int("tools", len(params)).
		Int("max_iterations", maxIter).
		Msg("Agent run started")

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
	}

	for iter := 0; iter < maxIter; iter++ {
		resp.Iterations = iter + 1

		msg, err := a.client.Messages.New(ctx, a.params(messages, params))
		if err != nil {
			return resp, &LLMError{Err: err}
		}

		text, calls := splitContent(msg)
		log.Debug().
			Str("run_id", resp.RunID).
			Int("iter", iter).
			Str("stop_reason", string(msg.StopReason)).
			Int("tool_calls", len(calls)).
			Msg("agent iteration")

		if msg.StopReason != "tool_use" || len(calls) == 0 {
			resp.Answer = text
			resp.StopReason = string(msg.StopReason)
			resp.Success = true
			return resp, nil
		}

		messages = append(messages, msg.ToParam())
		results := make([]anthropic.ContentBlockParamUnion, 0, len(calls)+1)
		for _, c := range calls {
			results = append(results, a.execute(ctx, c, allowed, resp))
		}

		if iter == maxIter-1 {
			results = append(results, anthropic.NewTextBlock(finalAnswerPrompt))
			messages = append(messages, anthropic.NewUserMessage(results...))

			// Tools stay declared: the history holds tool_use blocks.
			final, err := a.client.Messages.New(ctx, a.params(messages, params))
			if err != nil {
				return resp, &LLMError{Err: err}
			}
			resp.Answer, _ = splitContent(final)
			resp.StopReason = "max_iterations"
			resp.Success = true
			return resp, nil
		}
		messages = append(messages, anthropic.NewUserMessage(results...))
	}

	return resp, errors.New("agent loop ended without an answer")
}

func (a *Agent) screen(prompt string) error {
	if a.prompts != nil {
		if v := a.prompts.Validate(prompt); !v.Valid {
			return &RejectedError{Reason: v.Message}
		}
	}
	if a.pii != nil {
		if found, kw := a.pii.Detect(prompt); found {
			return &RejectedError{Reason: "prompt asks for sensitive data (" + kw + ")"}
		}
	}
	return nil
}

// selectTools honours an explicit tool list, otherwise narrows the registry
// by keyword routing.
func (a *Agent) selectTools(req *models.AgentRequest) ([]tools.Tool, error) {
	reg := a.dispatcher.Registry()
	names := req.Tools
	if len(names) == 0 {
		routed := a.router.Route(req.Prompt, reg.Names())
		log.Debug().Strs("tools", routed.Tools).Str("reasoning", routed.Reasoning).Msg("tools routed")
		names = routed.Tools
	}

	out := make([]tools.Tool, 0, len(names))
	for _, name := range names {
		t, ok := reg.Lookup(name)
		if !ok {
			return nil, &RejectedError{Reason: "unknown tool: " + name}
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *Agent) params(messages []anthropic.MessageParam, toolParams []anthropic.ToolUnionUnionParam) anthropic.MessageNewParams {
	p := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(a.model)),
		MaxTokens: anthropic.F(int64(a.maxTokens)),
		Messages:  anthropic.F(messages),
		System:    anthropic.F([]anthropic.TextBlockParam{anthropic.NewTextBlock(systemPrompt)}),
	}
	if len(toolParams) > 0 {
		p.Tools = anthropic.F(toolParams)
	}
	return p
}

func (a *Agent) execute(ctx context.Context, c toolCall, allowed map[string]bool, resp *models.AgentResponse) anthropic.ContentBlockParamUnion {
	var res result.Result
	if allowed[c.name] {
		res = a.dispatcher.Call(ctx, c.name, c.input)
	} else {
		res = result.Failure(c.name, result.UnknownTool(c.name))
	}

	step := models.AgentStep{Tool: c.name, Arguments: c.input, Success: res.OK()}
	if e := res.Err(); e != nil {
		step.ErrorKind = string(e.Kind)
	}
	resp.Steps = append(resp.Steps, step)

	body, err := json.Marshal(res)
	if err != nil {
		body = []byte(`{"success":false,"error":"result could not be encoded"}`)
	}
	return anthropic.NewToolResultBlock(c.id, string(body), !res.OK())
}

func toolParam(t tools.Tool) (anthropic.ToolParam, error) {
	schema := map[string]any{"type": "object"}
	if t.InputSchema != nil {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return anthropic.ToolParam{}, err
		}
		if err := json.Unmarshal(raw, &schema); err != nil {
			return anthropic.ToolParam{}, err
		}
	}
	return anthropic.ToolParam{
		Name:        anthropic.String(t.Name),
		Description: anthropic.String(t.Description),
		InputSchema: anthropic.F[interface{}](schema),
	}, nil
}

func splitContent(msg *anthropic.Message) (string, []toolCall) {
	var text string
	var calls []toolCall
	for _, block := range msg.Content {
		switch b := block.AsUnion().(type) {
		case anthropic.TextBlock:
			text += b.Text
		case anthropic.ToolUseBlock:
			input := map[string]any{}
			if len(b.Input) > 0 {
				if err := json.Unmarshal(b.Input, &input); err != nil {
					log.Warn().Err(err).Str("tool", b.Name).Msg("failed to parse tool input")
					input = map[string]any{}
				}
			}
			calls = append(calls, toolCall{id: b.ID, name: b.Name, input: input})
		}
	}
	return text, calls
}
