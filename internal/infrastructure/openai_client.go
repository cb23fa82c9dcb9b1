package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const classifierSystemPrompt = "You are a precise assistant for a small business inbox. Always answer with a single JSON object."

type OpenAIClient struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	metrics     *PipelineMetrics
	logger      *zap.Logger
}

// NewOpenAIClient talks to the OpenAI chat completions API, or to any
// compatible endpoint when baseURL is set.
func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int, temperature float32, metrics *PipelineMetrics, logger *zap.Logger) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		metrics:     metrics,
		logger:      logger.With(zap.String("component", "openai")),
	}
}

func (c *OpenAIClient) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	defer c.metrics.ObserveAIRequest("openai", time.Now())

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		c.logger.Warn("OpenAI API call failed", zap.String("model", c.model), zap.Error(err))
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
