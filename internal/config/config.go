package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string `yaml:"database_path"`
	Port         int    `yaml:"port"`
	ImageDir     string `yaml:"image_dir"`
	ImageBaseURL string `yaml:"image_base_url"`
	Timezone     string `yaml:"timezone"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`

	// APIBaseURL is where the terminal and bot front-ends reach the API.
	// Empty means they open the database directly.
	APIBaseURL string `yaml:"api_base_url"`

	GhostURL        string `yaml:"ghost_api_url"`
	GhostContentKey string `yaml:"ghost_content_api_key"`
	GhostAdminKey   string `yaml:"ghost_admin_api_key"`
	GeminiAPIKey    string `yaml:"gemini_api_key"`
	GeminiModel     string `yaml:"gemini_model"`

	// Telegram Config
	TelegramBotToken     string  `yaml:"telegram_bot_token"`
	TelegramWebhookURL   string  `yaml:"telegram_webhook_url"`
	TelegramAllowUserIDs []int64 `yaml:"telegram_allow_user_ids"`

	location *time.Location
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		DatabasePath: "data/meal-calendar.db",
		Port:         8080,
		ImageDir:     "data/images",
		ImageBaseURL: "http://localhost:8080/images",
		Timezone:     "Asia/Tokyo",
		LogLevel:     "info",
		LogFormat:    "json",
	}
}

// NewFromEnv creates a new Config object from defaults and environment variables.
func NewFromEnv() (*Config, error) {
	return Load("")
}

// Load reads the YAML file at path (if any) over the defaults, then applies
// environment variables on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DATABASE_PATH":         &c.DatabasePath,
		"IMAGE_DIR":             &c.ImageDir,
		"IMAGE_BASE_URL":        &c.ImageBaseURL,
		"TIMEZONE":              &c.Timezone,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_FORMAT":            &c.LogFormat,
		"API_BASE_URL":          &c.APIBaseURL,
		"GHOST_API_URL":         &c.GhostURL,
		"GHOST_CONTENT_API_KEY": &c.GhostContentKey,
		"GHOST_ADMIN_API_KEY":   &c.GhostAdminKey,
		"GEMINI_API_KEY":        &c.GeminiAPIKey,
		"GEMINI_MODEL":          &c.GeminiModel,
		"TELEGRAM_BOT_TOKEN":    &c.TelegramBotToken,
		"TELEGRAM_WEBHOOK_URL":  &c.TelegramWebhookURL,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT must be a number, got %q", v)
		}
		c.Port = port
	}

	if v := os.Getenv("TELEGRAM_ALLOW_USER_IDS"); v != "" {
		ids, err := parseIDs(v)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ALLOW_USER_IDS: %w", err)
		}
		c.TelegramAllowUserIDs = ids
	}
	return nil
}

// Validate checks the settings every front-end needs.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH must not be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT out of range: %d", c.Port)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.GhostAdminKey == "" {
		// Fallback to content key if only one is provided
		c.GhostAdminKey = c.GhostContentKey
	}
	return nil
}

// RequireTelegram checks the settings the bot cannot run without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// RequireGhost checks the settings the Ghost import and publish commands need.
func (c *Config) RequireGhost() error {
	if c.GhostURL == "" {
		return fmt.Errorf("GHOST_API_URL environment variable not set")
	}
	if c.GhostContentKey == "" {
		return fmt.Errorf("GHOST_CONTENT_API_KEY environment variable not set")
	}
	return nil
}

// Location is the time zone calendar days are taken in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// AllowsUser reports whether a Telegram user may talk to the bot. An empty
// allow list admits everyone.
func (c *Config) AllowsUser(id int64) bool {
	if len(c.TelegramAllowUserIDs) == 0 {
		return true
	}
	for _, allowed := range c.TelegramAllowUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
