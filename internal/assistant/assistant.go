package assistant

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/voltwise/prepaid-meter-service/internal/meter"
	"github.com/voltwise/prepaid-meter-service/internal/metrics"
	"github.com/voltwise/prepaid-meter-service/internal/usage"
)

// recentDays bounds how much per-day history is rendered into the prompt.
const recentDays = 14

// Assistant answers consumption questions over an OpenAI-compatible chat
// API, grounded in the caller's reconciled usage summary.
type Assistant struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// Config holds the assistant provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// New creates an assistant backed by an OpenAI-compatible provider.
func New(cfg *Config) *Assistant {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Assistant{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

// Chat sends the user's message with their usage context and returns the
// assistant's reply. Provider failures are retryable upstream errors; the
// assistant performs no retries itself.
func (a *Assistant) Chat(ctx context.Context, message string, summary usage.Summary) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is required", meter.ErrValidation)
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(summary)},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		metrics.AssistantRequestsTotal.WithLabelValues("error").Inc()
		a.logger.Error("assistant completion failed", zap.Error(err))
		return "", meter.Upstream("assistant completion", err)
	}
	if len(resp.Choices) == 0 {
		metrics.AssistantRequestsTotal.WithLabelValues("error").Inc()
		return "", meter.Upstream("assistant completion", fmt.Errorf("empty response"))
	}

	metrics.AssistantRequestsTotal.WithLabelValues("success").Inc()
	return resp.Choices[0].Message.Content, nil
}

// systemPrompt renders the reconciled summary into the assistant's context.
func systemPrompt(summary usage.Summary) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant for a prepaid electricity meter tracker. ")
	b.WriteString("Answer questions about the user's consumption using only the data below. ")
	b.WriteString("Units are prepaid meter units.\n\n")

	fmt.Fprintf(&b, "Average daily usage: %.2f\n", summary.AverageUsage)
	if summary.PeakUsageDay.Date != "" {
		fmt.Fprintf(&b, "Peak usage day: %s (%.2f)\n", summary.PeakUsageDay.Date, summary.PeakUsageDay.Usage)
	}
	fmt.Fprintf(&b, "Total tokens purchased: %.2f\n", summary.TotalTokensPurchased)

	days := summary.DailyUsage
	if len(days) > recentDays {
		days = days[len(days)-recentDays:]
	}
	if len(days) > 0 {
		b.WriteString("\nRecent daily usage:\n")
		for _, d := range days {
			fmt.Fprintf(&b, "- %s: %.2f\n", d.Date, d.Total)
		}
	}

	return b.String()
}
