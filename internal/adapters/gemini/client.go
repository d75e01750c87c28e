package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Client classifies player text with Google Gemini
type Client struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxTextSize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClient creates a new Gemini classifier
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SetTemperature(cfg.Temperature)
	model.SetTopP(cfg.TopP)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = genai.NewUserContent(genai.Text(utils.SystemPrompt))

	return &Client{
		client:        client,
		model:         model,
		modelName:     cfg.ModelName,
		maxTextSize:   cfg.MaxTextSize,
		logger:        logger,
		textProcessor: textProcessor,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// Classify asks the model whether text matches instruction
func (c *Client) Classify(ctx context.Context, instruction, text string) (*core.Verdict, error) {
	prompt := utils.BuildPrompt(instruction, c.textProcessor.ProcessText(text, c.maxTextSize))

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	responseText := responseText(resp)
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	verdict, err := utils.ParseVerdict(responseText)
	if err != nil {
		return nil, err
	}
	verdict.ModelUsed = c.modelName
	return verdict, nil
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
