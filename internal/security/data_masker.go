package security

import (
	"fmt"
	"regexp"
	"strings"
)

type maskRule struct {
	pattern *regexp.Regexp
	mask    func(string) string
}

// rules are tried in order; the first matching column pattern wins.
var maskRules = []maskRule{
	{regexp.MustCompile(`(?i)e-?mail`), maskEmail},
	{regexp.MustCompile(`(?i)phone|mobile`), maskPhone},
	{regexp.MustCompile(`(?i)ssn|social_security`), func(string) string { return "***-**-****" }},
	{regexp.MustCompile(`(?i)credit_card|card_number`), maskCreditCard},
	{regexp.MustCompile(`(?i)password|secret|token|api_key|access_key|private_key`), func(string) string { return "***" }},
}

// DataMasker masks sensitive column values in query results
type DataMasker struct {
	sensitiveColumns []string
}

func NewDataMasker(sensitiveColumns []string) *DataMasker {
	cols := make([]string, 0, len(sensitiveColumns))
	for _, c := range sensitiveColumns {
		cols = append(cols, strings.ToLower(c))
	}
	return &DataMasker{sensitiveColumns: cols}
}

// MaskRows returns masked copies of rows and the names of the columns that
// were masked, in column order.
func (m *DataMasker) MaskRows(columns []string, rows []map[string]any) ([]map[string]any, []string) {
	var sensitive []string
	for _, c := range columns {
		if m.isSensitive(c) {
			sensitive = append(sensitive, c)
		}
	}
	if len(sensitive) == 0 {
		return rows, nil
	}

	masked := make([]map[string]any, len(rows))
	for i, row := range rows {
		out := make(map[string]any, len(row))
		for k, v := range row {
			out[k] = v
		}
		for _, c := range sensitive {
			if v, ok := row[c]; ok && v != nil {
				out[c] = maskValue(c, fmt.Sprint(v))
			}
		}
		masked[i] = out
	}
	return masked, sensitive
}

func (m *DataMasker) isSensitive(col string) bool {
	lower := strings.ToLower(col)
	for _, s := range m.sensitiveColumns {
		if strings.Contains(lower, s) {
			return true
		}
	}
	for _, r := range maskRules {
		if r.pattern.MatchString(col) {
			return true
		}
	}
	return false
}

func maskValue(col, val string) string {
	for _, r := range maskRules {
		if r.pattern.MatchString(col) {
			return r.mask(val)
		}
	}
	return "***"
}

// maskEmail: "john.doe@example.com" → "jo***@***.com"
func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return "***"
	}
	r := []rune(local)
	visible := min(2, len(r))
	ext := domain[strings.LastIndex(domain, ".")+1:]
	return string(r[:visible]) + "***@***." + ext
}

// maskPhone: any phone → "***-***-1234" (show last 4)
func maskPhone(phone string) string {
	d := digits(phone)
	if len(d) < 4 {
		return "***-***-****"
	}
	return "***-***-" + d[len(d)-4:]
}

// maskCreditCard: "4111111111111111" → "****-****-****-1111"
func maskCreditCard(cc string) string {
	d := digits(cc)
	if len(d) < 4 {
		return "****-****-****-****"
	}
	return "****-****-****-" + d[len(d)-4:]
}

func digits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}
