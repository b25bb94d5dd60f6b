package security

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxPromptLength = 4000

var dangerousPatterns = []*regexp.Regexp{
	// Command execution
	regexp.MustCompile(`(?i)\brm\s+-`),
	regexp.MustCompile(`(?i)\brm\s+/`),
	regexp.MustCompile(`(?i)\bcurl\s+`),
	regexp.MustCompile(`(?i)\bwget\s+`),
	regexp.MustCompile(`(?i)\bbash\s+-`),
	regexp.MustCompile(`(?i)\bsh\s+-c\b`),
	regexp.MustCompile(`(?i)\bsudo\s+`),

	// File access
	regexp.MustCompile(`\.\./`),
	regexp.MustCompile(`/etc/passwd`),
	regexp.MustCompile(`/etc/shadow`),
	regexp.MustCompile(`/proc/`),
	regexp.MustCompile(`id_rsa`),
	regexp.MustCompile(`\.ssh/`),

	// Code execution
	regexp.MustCompile(`(?i)\beval\s*\(`),
	regexp.MustCompile(`(?i)\bexec\s*\(`),
	regexp.MustCompile(`(?i)\bsystem\s*\(`),
	regexp.MustCompile(`(?i)__import__\s*\(`),
	regexp.MustCompile(`(?i)\bsubprocess\b`),
	regexp.MustCompile(`(?i)os\.system`),

	// Prompt injection
	regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\s+(all\s+)?(previous|prior|above)\s+instructions`),
	regexp.MustCompile(`(?i)\b(new|change)\s+context\s*:`),
	regexp.MustCompile(`(?i)\binstead\s+of\s+the\s+above`),
	regexp.MustCompile(`(?i)\breveal\s+(your\s+)?(system\s+prompt|api\s+keys?|credentials)`),
}

// PromptValidator screens /agent prompts before they reach the model.
type PromptValidator struct{}

func NewPromptValidator() *PromptValidator {
	return &PromptValidator{}
}

// ValidationResult contains validation outcome
type ValidationResult struct {
	Valid   bool
	Message string
}

func (v *PromptValidator) Validate(prompt string) ValidationResult {
	if strings.TrimSpace(prompt) == "" {
		return ValidationResult{Valid: false, Message: "prompt cannot be empty"}
	}
	if n := len([]rune(prompt)); n > MaxPromptLength {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("prompt too long: %d chars (max %d)", n, MaxPromptLength),
		}
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(prompt) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("dangerous pattern detected: %s", pattern.String()),
			}
		}
	}
	return ValidationResult{Valid: true, Message: "ok"}
}
