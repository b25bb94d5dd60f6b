package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/result"
	"github.com/toolrelay/toolrelay/internal/security"
)

// Observer brackets each call, typically with a trace span.
type Observer interface {
	Start(ctx context.Context, tool string) (context.Context, func(success bool, kind string))
}

// Dispatcher is the single place a (name, arguments) pair becomes a
// result.Result. Both transports call through it.
type Dispatcher struct {
	registry *Registry
	redactor *result.Redactor
	audit    *security.AuditLogger
	observer Observer
}

type Option func(*Dispatcher)

// WithRedactor scrubs credential values out of failure messages.
func WithRedactor(r *result.Redactor) Option {
	return func(d *Dispatcher) { d.redactor = r }
}

func WithAuditLogger(a *security.AuditLogger) Option {
	return func(d *Dispatcher) { d.audit = a }
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

func NewDispatcher(registry *Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{registry: registry}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) Registry() *Registry { return d.registry }

// List returns the registered tool descriptors.
func (d *Dispatcher) List() []Descriptor { return d.registry.List() }

// Call runs the named tool. It never panics and always returns exactly one of
// a success or a failure.
func (d *Dispatcher) Call(ctx context.Context, name string, arguments map[string]any) (res result.Result) {
	start := time.Now()
	done := func(bool, string) {}
	if d.observer != nil {
		ctx, done = d.observer.Start(ctx, name)
	}

	defer func() {
		kind := ""
		if e := res.Err(); e != nil {
			kind = string(e.Kind)
		}
		elapsed := time.Since(start).Milliseconds()
		done(res.OK(), kind)
		d.audit.LogToolCall(name, Caller(ctx), res.OK(), kind, elapsed)

		ev := log.Info()
		if !res.OK() {
			ev = log.Warn().Str("kind", kind).Str("error", res.Err().Message)
		}
		ev.Str("tool", name).Bool("success", res.OK()).Int64("duration_ms", elapsed).Msg("Tool call")
	}()

	t, ok := d.registry.Lookup(name)
	if !ok {
		return result.Failure(name, result.UnknownTool(name))
	}
	if arguments == nil {
		arguments = map[string]any{}
	}

	payload, err := invoke(ctx, t, arguments)
	if err != nil {
		e, ok := result.As(err)
		if !ok {
			e = &result.Error{
				Kind:    result.KindHandlerError,
				Message: err.Error(),
				Context: map[string]any{"tool": name},
			}
		}
		return result.Failure(name, d.redactor.RedactError(e))
	}
	return result.Success(name, payload)
}

func invoke(ctx context.Context, t Tool, arguments map[string]any) (payload map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("tool", t.Name).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("Tool handler panicked")
			payload, err = nil, fmt.Errorf("%s failed: internal error", t.Name)
		}
	}()
	return t.Execute(ctx, arguments)
}
