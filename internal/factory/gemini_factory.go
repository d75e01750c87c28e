package factory

import (
	"context"
	"fmt"

	"github.com/mikey/chatguard/internal/adapters/gemini"
	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/utils"
	"go.uber.org/zap"
)

// GeminiFactory creates Gemini classifiers
type GeminiFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewGeminiFactory creates a new Gemini factory
func NewGeminiFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *GeminiFactory {
	return &GeminiFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a Gemini classifier
func (f *GeminiFactory) CreateClassifier(ctx context.Context) (core.Classifier, error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	return gemini.NewClient(ctx, geminiCfg, f.logger.Named("gemini"), f.textProcessor)
}
