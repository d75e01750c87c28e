package config

import (
	"fmt"
	"time"
)

// ServerConfig represents the configuration of the event transport
type ServerConfig struct {
	Transport     string
	ListenAddress string
	Path          string
	WriteTimeout  time.Duration
}

// DispatchConfig represents the configuration of the dispatch loop
type DispatchConfig struct {
	Tick      time.Duration
	QueueSize int
}

// MetricsConfig represents the configuration of the metrics endpoint
type MetricsConfig struct {
	Enabled       bool
	ListenAddress string
}

// StoreConfig represents the configuration of the session store
type StoreConfig struct {
	Type             string
	LoadTimeout      time.Duration
	LogRetention     time.Duration
	CleanupFrequency time.Duration
	LogBuffer        int
	SQLitePath       string
	MySQLDSN         string
}

// SessionConfig represents the configuration of session caches
type SessionConfig struct {
	ClearOnExit    bool
	StuckLoadAfter time.Duration
}

// MessagesConfig lists where chatguard takes over messages and colors
type MessagesConfig struct {
	ApplyOn               []string
	ColorsApplyOn         []string
	ColorPermissionPrefix string
}

// MuteConfig represents the mute gate configuration
type MuteConfig struct {
	SoftHide     bool
	HideJoins    bool
	HideQuits    bool
	HideDeaths   bool
	PreventChat  bool
	PreventSigns bool
	PreventAnvil bool
	PreventMail  bool
}

// AntibotConfig represents the configuration of the login and sign guards
type AntibotConfig struct {
	BlockSameTextSigns         bool
	DisallowedUsernames        []string
	DisallowedUsernameCommands []string
}

// AuthConfig represents the interaction with an authentication plugin
type AuthConfig struct {
	DelayJoinUntilLogged bool
	HideQuitIfNotLogged  bool
}

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// ClassifierConfig represents the configuration of classifier rules
type ClassifierConfig struct {
	Threshold float64
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxTextSize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxTextSize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxTextSize int
}

// GetServer returns the transport configuration
func (c *Config) GetServer() (ServerConfig, error) {
	writeTimeout, err := c.GetDuration("server.write_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		Transport:     c.GetString("server.transport"),
		ListenAddress: c.GetString("server.listen_address"),
		Path:          c.GetString("server.path"),
		WriteTimeout:  writeTimeout,
	}, nil
}

// GetDispatch returns the dispatch loop configuration
func (c *Config) GetDispatch() (DispatchConfig, error) {
	tick, err := c.GetDuration("dispatch.tick")
	if err != nil {
		return DispatchConfig{}, err
	}
	return DispatchConfig{
		Tick:      tick,
		QueueSize: c.GetInt("dispatch.queue_size"),
	}, nil
}

// GetMetrics returns the metrics configuration
func (c *Config) GetMetrics() MetricsConfig {
	return MetricsConfig{
		Enabled:       c.GetBool("metrics.enabled"),
		ListenAddress: c.GetString("metrics.listen_address"),
	}
}

// GetStore returns the store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	cfg := StoreConfig{
		Type:       c.GetString("store.type"),
		LogBuffer:  c.GetInt("store.log_buffer"),
		SQLitePath: c.GetString("store.sqlite_path"),
		MySQLDSN:   c.GetString("store.mysql_dsn"),
	}

	var err error
	if cfg.LoadTimeout, err = c.GetDuration("store.load_timeout"); err != nil {
		return StoreConfig{}, err
	}
	if cfg.LogRetention, err = c.GetDuration("store.log_retention"); err != nil {
		return StoreConfig{}, err
	}
	if cfg.CleanupFrequency, err = c.GetDuration("store.cleanup_frequency"); err != nil {
		return StoreConfig{}, err
	}
	return cfg, nil
}

// GetSession returns the session configuration
func (c *Config) GetSession() (SessionConfig, error) {
	stuck, err := c.GetDuration("session.stuck_load_after")
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{
		ClearOnExit:    c.GetBool("session.clear_on_exit"),
		StuckLoadAfter: stuck,
	}, nil
}

// GetMessages returns the message takeover configuration
func (c *Config) GetMessages() MessagesConfig {
	return MessagesConfig{
		ApplyOn:               c.GetStringSlice("messages.apply_on"),
		ColorsApplyOn:         c.GetStringSlice("colors.apply_on"),
		ColorPermissionPrefix: c.GetString("colors.permission_prefix"),
	}
}

// GetSignCheckMode returns how signs are checked, 1 whole text, 2 per line or 3 both
func (c *Config) GetSignCheckMode() (int, error) {
	mode := c.GetInt("rules.sign_check_mode")
	if mode < 1 || mode > 3 {
		return 0, fmt.Errorf("invalid rules.sign_check_mode %d, expected 1, 2 or 3", mode)
	}
	return mode, nil
}

// UnmarshalKey decodes a configuration subtree into out
func (c *Config) UnmarshalKey(key string, out interface{}) error {
	if err := c.v.UnmarshalKey(key, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// GetMute returns the mute configuration
func (c *Config) GetMute() MuteConfig {
	return MuteConfig{
		SoftHide:     c.GetBool("mute.soft_hide"),
		HideJoins:    c.GetBool("mute.hide_joins"),
		HideQuits:    c.GetBool("mute.hide_quits"),
		HideDeaths:   c.GetBool("mute.hide_deaths"),
		PreventChat:  c.GetBool("mute.prevent_chat"),
		PreventSigns: c.GetBool("mute.prevent_signs"),
		PreventAnvil: c.GetBool("mute.prevent_anvil"),
		PreventMail:  c.GetBool("mute.prevent_mail"),
	}
}

// GetAntibot returns the antibot configuration
func (c *Config) GetAntibot() AntibotConfig {
	return AntibotConfig{
		BlockSameTextSigns:         c.GetBool("antibot.block_same_text_signs"),
		DisallowedUsernames:        c.GetStringSlice("antibot.disallowed_usernames"),
		DisallowedUsernameCommands: c.GetStringSlice("antibot.disallowed_username_commands"),
	}
}

// GetAuth returns the authentication configuration
func (c *Config) GetAuth() AuthConfig {
	return AuthConfig{
		DelayJoinUntilLogged: c.GetBool("auth.delay_join_until_logged"),
		HideQuitIfNotLogged:  c.GetBool("auth.hide_quit_if_not_logged"),
	}
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetClassifier returns the classifier rule configuration
func (c *Config) GetClassifier() (ClassifierConfig, error) {
	ttl, err := c.GetDuration("classifier.cache_ttl")
	if err != nil {
		return ClassifierConfig{}, err
	}
	timeout, err := c.GetDuration("classifier.timeout")
	if err != nil {
		return ClassifierConfig{}, err
	}
	return ClassifierConfig{
		Threshold: c.GetFloat64("classifier.threshold"),
		CacheSize: c.GetInt("classifier.cache_size"),
		CacheTTL:  ttl,
		Timeout:   timeout,
	}, nil
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxTextSize: c.GetInt("bedrock.max_text_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxTextSize: c.GetInt("gemini.max_text_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxTextSize: c.GetInt("openai.max_text_size"),
	}
}
