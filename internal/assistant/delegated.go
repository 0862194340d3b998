package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"retail-dashboard/internal/dataset"
)

const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

const promptTemplate = `You are a retail sales analyst answering questions about the transactions below.

Data layout (positional arrays keep the payload small):
- daily: {date: [revenue, transactions, customers]} for every date in range
- categories: {category: [revenue, avg_transaction, transactions, items_sold]}
- malls: {mall: [revenue, transactions]}
- payments: {payment_method: [revenue, transactions]}

Categories: %s
Malls: %s
Payment methods: %s

Data:
%s

Guidelines:
- For a specific date look it up in daily, e.g. daily["2023-03-08"].
- For a specific category look it up in categories, e.g. categories["Clothing"].
- Always quote concrete numbers.
- Format the answer with markdown.

Answer concisely using only the data provided.`

// Completer sends one chat completion request.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

type DelegatedConfig struct {
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// Delegated forwards the question and a summary of the table to a completion service.
type Delegated struct {
	client Completer
	cfg    DelegatedConfig
	logger *slog.Logger
}

func NewDelegated(client Completer, cfg DelegatedConfig, logger *slog.Logger) *Delegated {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Delegated{client: client, cfg: cfg, logger: logger}
}

func (d *Delegated) Answer(ctx context.Context, question string, t *dataset.Table) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("delegated responder panicked", "panic", r)
			answer = callFailedMessage(fmt.Errorf("%v", r))
		}
	}()

	prompt, err := BuildPrompt(t)
	if err != nil {
		return callFailedMessage(err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.client.Complete(ctx, CompletionRequest{
		Model: d.cfg.Model,
		Messages: []Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: question},
		},
		MaxTokens:   d.cfg.MaxTokens,
		Temperature: d.cfg.Temperature,
	})
	if err != nil {
		if errors.Is(err, ErrMissingCredential) {
			d.logger.Warn("completion service not configured")
			return missingCredentialMessage
		}
		d.logger.Error("completion call failed", "error", err, "duration", time.Since(start))
		return callFailedMessage(err)
	}

	text, err := resp.Text()
	if err != nil {
		d.logger.Error("completion call failed", "error", err, "request_id", resp.RequestID)
		return callFailedMessage(err)
	}

	d.logger.Debug("completion call finished",
		"model", d.cfg.Model,
		"duration", time.Since(start),
		"total_tokens", resp.Usage.TotalTokens,
		"request_id", resp.RequestID,
	)
	return text
}

// BuildPrompt renders the instruction prompt with the summary of t embedded as indented JSON.
func BuildPrompt(t *dataset.Table) (string, error) {
	data, err := json.MarshalIndent(Summarize(t), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	return fmt.Sprintf(promptTemplate,
		strings.Join(t.Categories(), ", "),
		strings.Join(t.Malls(), ", "),
		strings.Join(t.PaymentMethods(), ", "),
		data,
	), nil
}

const missingCredentialMessage = "**Error**: the AI assistant is not configured. Set OPENAI_API_KEY and restart the dashboard."

func callFailedMessage(err error) string {
	return fmt.Sprintf("**Error**: the AI assistant call failed: %v\n\nPlease try again in a moment.", err)
}
