package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/toolrelay/toolrelay/internal/result"
)

// Candidate is one provider in a fallback chain.
type Candidate[T any] struct {
	Name       string
	ConfigKeys []string
	Configured bool
	Run        func(ctx context.Context) (T, error)
}

// Chain tries its candidates in order until one succeeds or Advance says the
// failure is terminal.
type Chain[T any] struct {
	Label      string
	Candidates []Candidate[T]
	Advance    func(error) bool
}

// AdvanceOnAuthOrException moves on when a provider is not configured, rejects
// the credentials, or fails with an error that carries no kind.
func AdvanceOnAuthOrException(err error) bool {
	e, ok := result.As(err)
	if !ok {
		return true
	}
	switch e.Kind {
	case result.KindNotConfigured:
		return true
	case result.KindProviderError:
		code := result.StatusCode(err)
		return code == http.StatusUnauthorized || code == http.StatusForbidden
	}
	return false
}

// AnyConfigured reports whether at least one candidate can be tried.
func (c Chain[T]) AnyConfigured() bool {
	for _, cand := range c.Candidates {
		if cand.Configured {
			return true
		}
	}
	return false
}

// NotConfigured names the keys of every candidate.
func (c Chain[T]) NotConfigured() *result.Error {
	groups := make([][]string, len(c.Candidates))
	for i, cand := range c.Candidates {
		groups[i] = cand.ConfigKeys
	}
	return result.NotConfiguredAny(groups...)
}

// Run returns the first success and the name of the candidate that produced
// it. Unconfigured candidates are skipped. A terminal failure of the first
// attempt is returned as is; once the chain has moved past a provider, the
// failure is reported as "no <label> provider succeeded" with the last
// attempted provider's error.
func (c Chain[T]) Run(ctx context.Context) (T, string, error) {
	var zero T
	advance := c.Advance
	if advance == nil {
		advance = AdvanceOnAuthOrException
	}

	var (
		last     error
		lastName string
		allUnset = true
	)
	for _, cand := range c.Candidates {
		if !cand.Configured {
			continue
		}
		v, err := cand.Run(ctx)
		if err == nil {
			return v, cand.Name, nil
		}
		if !result.IsKind(err, result.KindNotConfigured) {
			allUnset = false
		}

		terminal := !advance(err)
		if terminal && last == nil {
			return zero, cand.Name, err
		}
		last, lastName = err, cand.Name
		if terminal {
			break
		}
		log.Warn().Err(err).Str("provider", cand.Name).Msgf("%s provider failed, trying next", c.Label)
	}

	if last == nil || allUnset {
		return zero, "", c.NotConfigured()
	}
	msg := fmt.Sprintf("no %s provider succeeded: %v", c.Label, last)
	return zero, lastName, result.ProviderFailure(lastName, result.StatusCode(last), msg)
}
