package security

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog/log"
)

// AuditLogger logs security-relevant events. Callers, statements and prompts
// are only ever logged as truncated SHA-256 hashes.
type AuditLogger struct {
	enabled bool
}

func NewAuditLogger(enabled bool) *AuditLogger {
	return &AuditLogger{enabled: enabled}
}

// Enabled reports whether events are written. A nil logger is disabled.
func (a *AuditLogger) Enabled() bool {
	return a != nil && a.enabled
}

// LogToolCall records one dispatched tool call.
func (a *AuditLogger) LogToolCall(tool, caller string, success bool, kind string, durationMs int64) {
	if !a.Enabled() {
		return
	}
	evt := log.Info().
		Str("event", "tool_audit").
		Str("tool", tool).
		Str("caller_hash", hashStr(caller)).
		Bool("success", success).
		Int64("duration_ms", durationMs)
	if kind != "" {
		evt = evt.Str("error_kind", kind)
	}
	evt.Msg("audit")
}

// LogQuery records a database_query execution.
func (a *AuditLogger) LogQuery(stmt, database, caller string, durationMs int64, rowCount int, success bool, errMsg string) {
	if !a.Enabled() {
		return
	}
	evt := log.Info().
		Str("event", "query_audit").
		Str("sql_hash", hashStr(stmt)).
		Str("database", database).
		Str("caller_hash", hashStr(caller)).
		Int64("execution_time_ms", durationMs).
		Int("row_count", rowCount).
		Bool("success", success)
	if errMsg != "" {
		evt = evt.Str("error", errMsg)
	}
	evt.Msg("audit")
}

// LogAgentRequest records one /agent run.
func (a *AuditLogger) LogAgentRequest(prompt, caller string, toolCalls int, success bool, durationMs int64) {
	if !a.Enabled() {
		return
	}
	log.Info().
		Str("event", "agent_audit").
		Str("prompt_hash", hashStr(prompt)).
		Str("caller_hash", hashStr(caller)).
		Int("tool_calls", toolCalls).
		Bool("success", success).
		Int64("execution_time_ms", durationMs).
		Msg("agent audit")
}

func hashStr(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}
