// Package narrate turns ecosystem reports into short prose summaries.
package narrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/TeneoProtocolAI/taxyield-monitor/internal/core/domain"
)

const DefaultModel = openai.GPT4oMini

const systemPrompt = `You are a DeFi risk analyst. You receive a JSON health report for an ecosystem of
tax-funded reward tokens. Write at most five sentences of plain text: overall status,
the tokens whose yield is not covered by tax revenue, and any volume anomalies.
Mention when supply values are estimates. Do not give investment advice.`

var ErrEmptyResponse = errors.New("narrator returned no choices")

// OpenAINarrator summarizes an EcosystemHealth with a chat completion.
type OpenAINarrator struct {
	client *openai.Client
	model  string
}

func NewOpenAINarrator(apiKey, model string) *OpenAINarrator {
	return NewOpenAINarratorWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAINarratorWithConfig accepts a prepared client config, e.g. with a
// custom BaseURL.
func NewOpenAINarratorWithConfig(cfg openai.ClientConfig, model string) *OpenAINarrator {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAINarrator{client: openai.NewClientWithConfig(cfg), model: model}
}

func (n *OpenAINarrator) Summarize(ctx context.Context, eco *domain.EcosystemHealth) (string, error) {
	if eco == nil {
		return "", fmt.Errorf("nothing to summarize")
	}
	payload, err := json.Marshal(eco)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ecosystem report: %w", err)
	}

	resp, err := n.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: n.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
