package security

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// stackedStatements catch a second statement smuggled after the first.
var stackedStatements = regexp.MustCompile(`(?i);\s*(DROP|DELETE|INSERT|UPDATE|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|EXEC|EXECUTE|SELECT|WITH)\b`)

var sqlDangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bUNION\s+SELECT\b`), // UNION ALL SELECT stays allowed
	regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`),
	regexp.MustCompile(`(?i)\bINTO\s+DUMPFILE\b`),
	regexp.MustCompile(`(?i)\bLOAD\s+DATA\b`),
	regexp.MustCompile(`(?i)\bLOAD_FILE\s*\(`),
	regexp.MustCompile(`(?i)\bBENCHMARK\s*\(`),
	regexp.MustCompile(`(?i)\bSLEEP\s*\(`),
	regexp.MustCompile(`(?i)\bPG_SLEEP\s*\(`),
	regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b`),
	regexp.MustCompile(`(?i)\bCOPY\b.+\bPROGRAM\b`),
	regexp.MustCompile(`'.*--`),
	regexp.MustCompile(`;\s*--`),
	regexp.MustCompile(`/\*.*?\*/`),
	regexp.MustCompile(`(?i)\bor\s+1\s*=\s*1\b`),
	regexp.MustCompile(`(?i)\band\s+1\s*=\s*1\b`),
	regexp.MustCompile(`(?i)\bor\s+'1'\s*=\s*'1'`),
	regexp.MustCompile(`(?i)\band\s+'1'\s*=\s*'1'`),
}

// readOnlyViolations catch writes that hide behind a read prefix, such as
// DML inside a WITH clause or an EXPLAIN ANALYZE that executes its target.
var readOnlyViolations = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|MERGE|UPSERT|DROP|ALTER|CREATE|TRUNCATE|GRANT|REVOKE|ATTACH|DETACH|VACUUM|REINDEX)\b`),
	regexp.MustCompile(`(?i)^EXPLAIN\s*\([^)]*\bANALY[SZ]E\b`),
	regexp.MustCompile(`(?i)^EXPLAIN\s+ANALY[SZ]E\b`),
	regexp.MustCompile(`(?i)\bFOR\s+(UPDATE|SHARE|NO\s+KEY\s+UPDATE|KEY\s+SHARE)\b`),
}

var (
	readPrefixes  = []string{"SELECT", "WITH", "EXPLAIN", "SHOW", "DESCRIBE", "PRAGMA TABLE_INFO"}
	writePrefixes = []string{"INSERT", "UPDATE", "DELETE", "MERGE", "UPSERT"}
)

var errReadOnly = errors.New("only read queries are allowed (set DATABASE_ALLOW_WRITES to permit writes)")

// SQLValidator rejects injection patterns and, unless writes are allowed,
// anything that is not a read.
type SQLValidator struct {
	allowWrites bool
}

func NewSQLValidator(allowWrites bool) *SQLValidator {
	return &SQLValidator{allowWrites: allowWrites}
}

// Validate returns nil when stmt may run.
func (v *SQLValidator) Validate(stmt string) error {
	trimmed := strings.TrimRight(strings.TrimSpace(stmt), ";")
	if trimmed == "" {
		return errors.New("query cannot be empty")
	}
	upper := strings.ToUpper(trimmed)

	allowed := hasAnyPrefix(upper, readPrefixes)
	if v.allowWrites {
		allowed = allowed || hasAnyPrefix(upper, writePrefixes)
	}
	if !allowed {
		if v.allowWrites {
			return errors.New("only SELECT, INSERT, UPDATE, DELETE and MERGE statements are allowed")
		}
		return errReadOnly
	}
	if !v.allowWrites {
		for _, pattern := range readOnlyViolations {
			if pattern.MatchString(trimmed) {
				return errReadOnly
			}
		}
	}

	if stackedStatements.MatchString(trimmed) {
		return errors.New("multiple statements are not allowed")
	}
	for _, pattern := range sqlDangerousPatterns {
		if pattern.MatchString(trimmed) {
			return fmt.Errorf("SQL injection pattern detected: %s", pattern.String())
		}
	}
	return nil
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
