// Package result defines the envelope every tool call resolves to and the
// error taxonomy handlers use to report failures.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed tool call.
type Kind string

const (
	KindUnknownTool     Kind = "unknown_tool"
	KindInvalidArgument Kind = "invalid_argument"
	KindNotConfigured   Kind = "not_configured"
	KindProviderError   Kind = "provider_error"
	KindHandlerError    Kind = "handler_error"
)

// ClientCaused reports whether the failure is attributable to the caller or
// to an upstream provider rather than to a bug in this process.
func (k Kind) ClientCaused() bool {
	return k != KindHandlerError
}

// Error is the typed failure handlers return. Any other error reaching the
// dispatcher is reported as KindHandlerError.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// With returns e with an extra context entry.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// InvalidArgument reports a missing or malformed argument.
func InvalidArgument(format string, a ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, a...)}
}

// NotConfigured reports that the credentials named by keys are absent.
func NotConfigured(keys ...string) *Error {
	msg := "not configured"
	if len(keys) > 0 {
		msg = "not configured: set " + strings.Join(keys, " and ")
	}
	return &Error{
		Kind:    KindNotConfigured,
		Message: msg,
		Context: map[string]any{"missing_config": keys},
	}
}

// NotConfiguredAny reports that none of several alternative providers is
// configured. Each group lists the keys one alternative needs.
func NotConfiguredAny(groups ...[]string) *Error {
	var alts, keys []string
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		alts = append(alts, strings.Join(g, " and "))
		keys = append(keys, g...)
	}
	msg := "not configured"
	if len(alts) > 0 {
		msg = "not configured: set " + strings.Join(alts, " or ")
	}
	return &Error{
		Kind:    KindNotConfigured,
		Message: msg,
		Context: map[string]any{"missing_config": keys},
	}
}

// ProviderFailure reports an error returned by an external provider. A zero
// status means the provider did not expose one.
func ProviderFailure(provider string, status int, message string) *Error {
	ctx := map[string]any{"provider": provider}
	if status > 0 {
		ctx["status_code"] = status
	}
	return &Error{Kind: KindProviderError, Message: message, Context: ctx}
}

// UnknownTool reports a call to a name with no registered handler.
func UnknownTool(name string) *Error {
	return &Error{Kind: KindUnknownTool, Message: "Unknown tool: " + name}
}

// As extracts a *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == k
}

// StatusCode returns the provider status recorded on err, or 0.
func StatusCode(err error) int {
	e, ok := As(err)
	if !ok {
		return 0
	}
	code, _ := e.Context["status_code"].(int)
	return code
}

// Result is exactly one of a success payload or a failure. The zero value is
// not valid; build one with Success or Failure.
type Result struct {
	tool    string
	payload map[string]any
	err     *Error
}

// Success wraps a handler payload.
func Success(tool string, payload map[string]any) Result {
	if payload == nil {
		payload = map[string]any{}
	}
	return Result{tool: tool, payload: payload}
}

// Failure wraps a typed error.
func Failure(tool string, err *Error) Result {
	if err == nil {
		err = &Error{Kind: KindHandlerError, Message: "handler failed without an error"}
	}
	return Result{tool: tool, err: err}
}

func (r Result) Tool() string            { return r.tool }
func (r Result) OK() bool                { return r.err == nil }
func (r Result) Payload() map[string]any { return r.payload }
func (r Result) Err() *Error             { return r.err }

// Envelope flattens the result into the wire document. Payload and context
// keys never override the reserved success, error and tool fields.
func (r Result) Envelope() map[string]any {
	if r.err == nil {
		out := make(map[string]any, len(r.payload)+1)
		for k, v := range r.payload {
			out[k] = v
		}
		out["success"] = true
		return out
	}

	out := make(map[string]any, len(r.err.Context)+4)
	for k, v := range r.err.Context {
		out[k] = v
	}
	out["success"] = false
	out["error"] = r.err.Message
	out["tool"] = r.tool
	out["error_kind"] = string(r.err.Kind)
	return out
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Envelope())
}
