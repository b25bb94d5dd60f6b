// Package args extracts typed values from decoded JSON argument maps.
//
// Tool arguments arrive as map[string]any from either transport. Every
// accessor classifies the raw value first and returns an invalid_argument
// error naming the field when it is missing or has the wrong shape, so
// handlers never type-assert on caller input directly.
package args

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/toolrelay/toolrelay/internal/result"
)

// Kind is the JSON shape of an argument value.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindList:
		return "array"
	case KindMap:
		return "object"
	}
	return "unknown"
}

// KindOf classifies v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case string:
		return KindString
	case float64, float32, int, int32, int64, json.Number:
		return KindNumber
	case bool:
		return KindBool
	case []any, []string:
		return KindList
	case map[string]any:
		return KindMap
	}
	return KindOther
}

func missing(key string) error {
	return result.InvalidArgument("%s is required", key).With("argument", key)
}

func wrongType(key string, want Kind, got any) error {
	return result.InvalidArgument("%s must be a %s, got %s", key, want, KindOf(got)).With("argument", key)
}

// RequireString returns a non-blank string value.
func RequireString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(key, KindString, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", missing(key)
	}
	return s, nil
}

// String returns an optional string, or def when absent or blank.
func String(m map[string]any, key, def string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(key, KindString, v)
	}
	if s = strings.TrimSpace(s); s == "" {
		return def, nil
	}
	return s, nil
}

// OneOf returns an optional string constrained to allowed values.
func OneOf(m map[string]any, key, def string, allowed ...string) (string, error) {
	s, err := String(m, key, def)
	if err != nil {
		return "", err
	}
	return checkAllowed(key, s, allowed)
}

// RequireOneOf returns a required string constrained to allowed values.
func RequireOneOf(m map[string]any, key string, allowed ...string) (string, error) {
	s, err := RequireString(m, key)
	if err != nil {
		return "", err
	}
	return checkAllowed(key, s, allowed)
}

func checkAllowed(key, s string, allowed []string) (string, error) {
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", result.InvalidArgument("%s must be one of %s, got %q", key, strings.Join(allowed, ", "), s).
		With("argument", key)
}

// Int returns an optional integer, or def when absent. Fractional numbers
// are rejected.
func Int(m map[string]any, key string, def int) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	return toInt(key, v)
}

// RequireInt returns a required integer.
func RequireInt(m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, missing(key)
	}
	return toInt(key, v)
}

// IntInRange is Int clamped to [lo, hi].
func IntInRange(m map[string]any, key string, def, lo, hi int) (int, error) {
	n, err := Int(m, key, def)
	if err != nil {
		return 0, err
	}
	return min(max(n, lo), hi), nil
}

func toInt(key string, v any) (int, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, result.InvalidArgument("%s must be an integer, got %s", key, n.String()).With("argument", key)
		}
		return int(i), nil
	default:
		return 0, wrongType(key, KindNumber, v)
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, result.InvalidArgument("%s must be an integer, got %v", key, f).With("argument", key)
	}
	return int(f), nil
}

// Float returns an optional number.
func Float(m map[string]any, key string, def float64) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, wrongType(key, KindNumber, v)
		}
		return f, nil
	}
	return 0, wrongType(key, KindNumber, v)
}

// Bool returns an optional boolean.
func Bool(m map[string]any, key string, def bool) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, wrongType(key, KindBool, v)
	}
	return b, nil
}

// RequireMap returns a required object. An empty object is accepted; callers
// check the fields they need.
func RequireMap(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, missing(key)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, wrongType(key, KindMap, v)
	}
	return obj, nil
}

// OptionalMap returns an object, or an empty map when absent.
func OptionalMap(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return map[string]any{}, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, wrongType(key, KindMap, v)
	}
	return obj, nil
}

// StringList accepts a single string or an array of strings. Blank entries
// are dropped.
func StringList(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch l := v.(type) {
	case string:
		if s := strings.TrimSpace(l); s != "" {
			return []string{s}, nil
		}
		return nil, nil
	case []string:
		return compact(append([]string(nil), l...)), nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, result.InvalidArgument("%s must contain only strings, found %s", key, KindOf(item)).
					With("argument", key)
			}
			out = append(out, s)
		}
		return compact(out), nil
	}
	return nil, wrongType(key, KindList, v)
}

// RequireStringList is StringList with at least one entry.
func RequireStringList(m map[string]any, key string) ([]string, error) {
	l, err := StringList(m, key)
	if err != nil {
		return nil, err
	}
	if len(l) == 0 {
		return nil, missing(key)
	}
	return l, nil
}

// ListOf returns an optional array of arbitrary values.
func ListOf(m map[string]any, key string) ([]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, wrongType(key, KindList, v)
	}
	return l, nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
