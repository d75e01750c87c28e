package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. An explicit file wins over the
// search paths.
func New(file string) (*Config, error) {
	v := viper.New()
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/chatguard/")
		v.AddConfigPath("$HOME/.chatguard")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("CHATGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Transport defaults
	v.SetDefault("server.transport", "websocket")
	v.SetDefault("server.listen_address", "127.0.0.1:8765")
	v.SetDefault("server.path", "/events")
	v.SetDefault("server.write_timeout", "5s")

	// Dispatch defaults
	v.SetDefault("dispatch.tick", "50ms")
	v.SetDefault("dispatch.queue_size", 1024)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listen_address", "127.0.0.1:9090")

	// Store defaults
	v.SetDefault("store.type", "memory")
	v.SetDefault("store.load_timeout", "10s")
	v.SetDefault("store.log_retention", "720h")
	v.SetDefault("store.cleanup_frequency", "1h")
	v.SetDefault("store.log_buffer", 256)
	v.SetDefault("store.sqlite_path", "/data/chatguard.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/chatguard")

	// Session defaults
	v.SetDefault("session.clear_on_exit", true)
	v.SetDefault("session.stuck_load_after", "30s")

	// Message defaults
	v.SetDefault("messages.apply_on", []string{"join", "quit", "kick", "death"})
	v.SetDefault("colors.apply_on", []string{"sign", "anvil"})
	v.SetDefault("colors.permission_prefix", "chatguard.color.")

	// Rule defaults
	v.SetDefault("rules.sign_check_mode", 3)
	v.SetDefault("rules.list", []map[string]interface{}{})

	// Mute defaults
	v.SetDefault("mute.soft_hide", false)
	v.SetDefault("mute.hide_joins", true)
	v.SetDefault("mute.hide_quits", true)
	v.SetDefault("mute.hide_deaths", true)
	v.SetDefault("mute.prevent_chat", true)
	v.SetDefault("mute.prevent_signs", true)
	v.SetDefault("mute.prevent_anvil", true)
	v.SetDefault("mute.prevent_mail", true)

	// Antibot defaults
	v.SetDefault("antibot.block_same_text_signs", true)
	v.SetDefault("antibot.disallowed_usernames", []string{})
	v.SetDefault("antibot.disallowed_username_commands", []string{})

	// Auth defaults
	v.SetDefault("auth.delay_join_until_logged", false)
	v.SetDefault("auth.hide_quit_if_not_logged", false)

	// LLM provider defaults, "none" disables classifier rules
	v.SetDefault("llm.provider", "none")

	// Classifier defaults
	v.SetDefault("classifier.threshold", 0.7)
	v.SetDefault("classifier.cache_size", 1024)
	v.SetDefault("classifier.cache_ttl", "1h")
	v.SetDefault("classifier.timeout", "3s")

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 256)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)
	v.SetDefault("bedrock.max_text_size", 1024)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 256)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)
	v.SetDefault("gemini.max_text_size", 1024)

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4")
	v.SetDefault("openai.max_tokens", 256)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.top_p", 0.9)
	v.SetDefault("openai.max_text_size", 1024)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Set overrides a configuration value
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	d, err := time.ParseDuration(c.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
