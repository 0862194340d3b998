// Package assistant answers free-text questions about the filtered transactions.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"retail-dashboard/internal/dataset"
)

const (
	ModeRules = "rules"
	ModeLLM   = "llm"
)

// Responder maps a question and the currently filtered table to an answer.
// Implementations never return an error or panic to the caller; failures are
// rendered into the answer text.
type Responder interface {
	Answer(ctx context.Context, question string, t *dataset.Table) string
}

// Options selects and configures a Responder.
type Options struct {
	Mode        string
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// New returns the delegated responder for ModeLLM and the rule-based one otherwise.
func New(opts Options, logger *slog.Logger) Responder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Mode != ModeLLM {
		return NewRuleBased(logger)
	}
	client := NewClient(opts.APIKey, opts.BaseURL, opts.Timeout)
	return NewDelegated(client, DelegatedConfig{
		Model:       opts.Model,
		Timeout:     opts.Timeout,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, logger)
}
