package openai

import (
	"context"
	"fmt"

	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Client classifies player text with the OpenAI chat completion API
type Client struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxTextSize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new OpenAI classifier
func NewClient(
	client *openai.Client,
	cfg config.OpenAIConfig,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Client {
	return &Client{
		client:        client,
		modelName:     cfg.ModelName,
		maxTokens:     cfg.MaxTokens,
		temperature:   cfg.Temperature,
		topP:          cfg.TopP,
		maxTextSize:   cfg.MaxTextSize,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// Classify asks the model whether text matches instruction
func (c *Client) Classify(ctx context.Context, instruction, text string) (*core.Verdict, error) {
	prompt := utils.BuildPrompt(instruction, c.textProcessor.ProcessText(text, c.maxTextSize))

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: utils.SystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	verdict, err := utils.ParseVerdict(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelName

	c.logger.Debug("OpenAI classification",
		zap.String("id", resp.ID),
		zap.Int("total_tokens", resp.Usage.TotalTokens))
	return verdict, nil
}
