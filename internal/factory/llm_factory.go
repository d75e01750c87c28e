package factory

import (
	"context"
	"fmt"

	"github.com/mikey/chatguard/internal/config"
	"github.com/mikey/chatguard/internal/core"
	"github.com/mikey/chatguard/internal/rules"
	"github.com/mikey/chatguard/internal/utils"
	"go.uber.org/zap"
)

// LLMFactory creates the classifier backing classifier rules
type LLMFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *LLMFactory {
	return &LLMFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a classifier based on the configuration. It
// returns nil when no provider is configured.
func (f *LLMFactory) CreateClassifier(ctx context.Context) (core.Classifier, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "", "none":
		return nil, nil
	case "bedrock":
		return NewBedrockFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
	case "gemini":
		return NewGeminiFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
	case "openai":
		return NewOpenAIFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// CreateMatcherBuilder returns the builder for classifier rules, nil when
// classifier is nil
func (f *LLMFactory) CreateMatcherBuilder(classifier core.Classifier) (rules.MatcherBuilder, error) {
	if classifier == nil {
		return nil, nil
	}
	settings, err := f.cfg.GetClassifier()
	if err != nil {
		return nil, err
	}
	return rules.ClassifierBuilder(classifier, rules.ClassifierSettings{
		Threshold: settings.Threshold,
		CacheSize: settings.CacheSize,
		CacheTTL:  settings.CacheTTL,
		Timeout:   settings.Timeout,
	}, f.logger.Named("classifier")), nil
}
