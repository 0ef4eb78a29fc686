package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the Tavolo phone agent.
// Precedence: CLI flags > env vars > defaults.
type Config struct {
	DataDir  string
	HTTPPort int
	BaseURL  string // public base URL Twilio uses to reach this server

	LogLevel  string
	LogFormat string // "text" or "json"

	OpenAIKey   string
	AgentModel  string // chat model for the reservation agent
	JudgeModel  string // chat model for quality scoring
	AgentTokens int    // max completion tokens per agent turn

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	ValidateWebhooks bool // verify X-Twilio-Signature on webhook routes

	OpenHour  int // first bookable hour (24h)
	CloseHour int // last slot starts strictly before this hour

	QualityIntervalMin int // minutes between batch quality analysis runs
	QualityBatchSize   int
}

// defaults
const (
	defaultDataDir         = "./data"
	defaultHTTPPort        = 8080
	defaultLogLevel        = "info"
	defaultLogFormat       = "text"
	defaultAgentModel      = "gpt-4o"
	defaultJudgeModel      = "gpt-4o-mini"
	defaultAgentTokens     = 150
	defaultOpenHour        = 17
	defaultCloseHour       = 22
	defaultQualityInterval = 10
	defaultQualityBatch    = 20
)

// envPrefix is the prefix for all Tavolo environment variables.
const envPrefix = "TAVOLO_"

// Load parses configuration from CLI flags and environment variables.
// A .env file in the working directory is loaded first if present.
// Precedence: CLI flags > env vars > defaults.
func Load() (*Config, error) {
	// Optional .env for local development; real env vars win.
	_ = godotenv.Load()

	cfg := &Config{}

	fs := flag.NewFlagSet("tavolo", flag.ContinueOnError)

	fs.StringVar(&cfg.DataDir, "data-dir", defaultDataDir, "data directory for database and audio files")
	fs.IntVar(&cfg.HTTPPort, "http-port", defaultHTTPPort, "HTTP server listen port")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "public base URL for webhook callbacks and audio links")
	fs.StringVar(&cfg.LogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", defaultLogFormat, "log output format (text, json)")
	fs.StringVar(&cfg.OpenAIKey, "openai-key", "", "OpenAI API key for the agent and quality judge")
	fs.StringVar(&cfg.AgentModel, "agent-model", defaultAgentModel, "chat model used for the reservation agent")
	fs.StringVar(&cfg.JudgeModel, "judge-model", defaultJudgeModel, "chat model used for quality scoring")
	fs.IntVar(&cfg.AgentTokens, "agent-tokens", defaultAgentTokens, "max completion tokens per agent turn")
	fs.StringVar(&cfg.TwilioAccountSID, "twilio-account-sid", "", "Twilio account SID for SMS")
	fs.StringVar(&cfg.TwilioAuthToken, "twilio-auth-token", "", "Twilio auth token for SMS and webhook validation")
	fs.StringVar(&cfg.TwilioFromNumber, "twilio-from-number", "", "Twilio phone number SMS is sent from")
	fs.BoolVar(&cfg.ValidateWebhooks, "validate-webhooks", false, "require a valid X-Twilio-Signature on webhook routes")
	fs.IntVar(&cfg.OpenHour, "open-hour", defaultOpenHour, "first bookable hour, 24-hour clock")
	fs.IntVar(&cfg.CloseHour, "close-hour", defaultCloseHour, "hour the last bookable slot must start before")
	fs.IntVar(&cfg.QualityIntervalMin, "quality-interval", defaultQualityInterval, "minutes between batch quality analysis runs (0 disables)")
	fs.IntVar(&cfg.QualityBatchSize, "quality-batch", defaultQualityBatch, "max calls analyzed per batch run")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	applyEnvOverrides(fs, cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides checks environment variables for any flag that was not
// explicitly provided on the command line. This preserves the precedence:
// CLI flags > env vars > defaults.
func applyEnvOverrides(fs *flag.FlagSet, cfg *Config) {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	envMap := map[string]string{
		"data-dir":           envPrefix + "DATA_DIR",
		"http-port":          envPrefix + "HTTP_PORT",
		"base-url":           envPrefix + "BASE_URL",
		"log-level":          envPrefix + "LOG_LEVEL",
		"log-format":         envPrefix + "LOG_FORMAT",
		"openai-key":         "OPENAI_API_KEY",
		"agent-model":        envPrefix + "AGENT_MODEL",
		"judge-model":        envPrefix + "JUDGE_MODEL",
		"agent-tokens":       envPrefix + "AGENT_TOKENS",
		"twilio-account-sid": "TWILIO_ACCOUNT_SID",
		"twilio-auth-token":  "TWILIO_AUTH_TOKEN",
		"twilio-from-number": "TWILIO_PHONE_NUMBER",
		"validate-webhooks":  envPrefix + "VALIDATE_WEBHOOKS",
		"open-hour":          envPrefix + "OPEN_HOUR",
		"close-hour":         envPrefix + "CLOSE_HOUR",
		"quality-interval":   envPrefix + "QUALITY_INTERVAL",
		"quality-batch":      envPrefix + "QUALITY_BATCH",
	}

	for flagName, envVar := range envMap {
		if set[flagName] {
			continue
		}
		val, ok := os.LookupEnv(envVar)
		if !ok || val == "" {
			continue
		}
		switch flagName {
		case "data-dir":
			cfg.DataDir = val
		case "http-port":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.HTTPPort = v
			}
		case "base-url":
			cfg.BaseURL = val
		case "log-level":
			cfg.LogLevel = val
		case "log-format":
			cfg.LogFormat = val
		case "openai-key":
			cfg.OpenAIKey = val
		case "agent-model":
			cfg.AgentModel = val
		case "judge-model":
			cfg.JudgeModel = val
		case "agent-tokens":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.AgentTokens = v
			}
		case "twilio-account-sid":
			cfg.TwilioAccountSID = val
		case "twilio-auth-token":
			cfg.TwilioAuthToken = val
		case "twilio-from-number":
			cfg.TwilioFromNumber = val
		case "validate-webhooks":
			if v, err := strconv.ParseBool(val); err == nil {
				cfg.ValidateWebhooks = v
			}
		case "open-hour":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.OpenHour = v
			}
		case "close-hour":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.CloseHour = v
			}
		case "quality-interval":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.QualityIntervalMin = v
			}
		case "quality-batch":
			if v, err := strconv.Atoi(val); err == nil {
				cfg.QualityBatchSize = v
			}
		}
	}
}

// validate checks that the config values are sane.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http-port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("log-level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	c.LogLevel = strings.ToLower(c.LogLevel)

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.LogFormat)] {
		return fmt.Errorf("log-format must be one of text, json; got %q", c.LogFormat)
	}
	c.LogFormat = strings.ToLower(c.LogFormat)

	if c.OpenHour < 0 || c.OpenHour > 23 {
		return fmt.Errorf("open-hour must be between 0 and 23, got %d", c.OpenHour)
	}
	if c.CloseHour <= c.OpenHour || c.CloseHour > 24 {
		return fmt.Errorf("close-hour must be between open-hour+1 and 24, got %d", c.CloseHour)
	}

	if c.AgentTokens < 1 {
		return fmt.Errorf("agent-tokens must be positive, got %d", c.AgentTokens)
	}
	if c.QualityIntervalMin < 0 {
		return fmt.Errorf("quality-interval must not be negative, got %d", c.QualityIntervalMin)
	}
	if c.QualityBatchSize < 1 {
		return fmt.Errorf("quality-batch must be positive, got %d", c.QualityBatchSize)
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	// SMS credentials must be all present or all absent.
	creds := 0
	for _, v := range []string{c.TwilioAccountSID, c.TwilioAuthToken, c.TwilioFromNumber} {
		if v != "" {
			creds++
		}
	}
	if creds != 0 && creds != 3 {
		return fmt.Errorf("twilio-account-sid, twilio-auth-token and twilio-from-number must be set together")
	}

	if c.ValidateWebhooks && c.TwilioAuthToken == "" {
		return fmt.Errorf("validate-webhooks requires twilio-auth-token")
	}

	return nil
}

// SMSEnabled reports whether Twilio SMS credentials are configured.
func (c *Config) SMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// SlogHandler returns a slog.Handler configured with the appropriate format
// (text or json) and log level.
func (c *Config) SlogHandler(w *os.File) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// SlogLevel returns the slog.Level corresponding to the configured log level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
