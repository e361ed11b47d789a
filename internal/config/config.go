// Package config loads pipeline settings from environment variables with an
// optional YAML sites file. CLI flags override on top in the cmd packages.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Site describes one WordPress source the pipeline can pull from.
type Site struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`
	Slug    string `yaml:"slug"`
	Lang    string `yaml:"lang"`
}

type sitesFile struct {
	Sites []Site `yaml:"sites"`
}

// Config holds settings for both the parse and the posting stage.
type Config struct {
	// Source
	BaseURL string
	Slug    string
	Lang    string // translation target, empty disables translation
	Limit   int

	// State
	OutputDir       string
	PostedStateFile string
	StopwordsFile   string
	LedgerRetention int
	DatabaseURL     string // optional Postgres ledger

	// HTTP
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Translation
	TranslateRegion   string
	OpenAIKey         string
	GeminiKey         string
	MaxOpenAIRequests int // per run, 0 = unlimited
	MaxGeminiRequests int

	// Telegram (posting stage)
	TelegramToken   string
	TelegramChannel string
	PostDelay       time.Duration

	// Images
	ImageWorkers   int
	WatermarkFile  string
	WatermarkScale float64

	Debug bool

	Sites []Site
}

// Load builds the config from defaults and environment.
func Load() *Config {
	cfg := &Config{
		BaseURL:         "https://www.thethaiger.com",
		Slug:            "national",
		Lang:            "ru",
		Limit:           10,
		OutputDir:       "articles",
		PostedStateFile: "articles/posted.json",
		StopwordsFile:   "stopwords.txt",
		LedgerRetention: 500,
		RequestTimeout:  60 * time.Second,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		TranslateRegion: "EN",
		PostDelay:       5 * time.Second,
		ImageWorkers:    5,
		WatermarkFile:   "watermark.png",
		WatermarkScale:  0.45,
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.TelegramChannel = os.Getenv("TELEGRAM_CHANNEL")
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.TranslateRegion = getEnvOrDefault("TRANSLATE_REGION", cfg.TranslateRegion)
	cfg.LedgerRetention = getEnvIntOrDefault("LEDGER_RETENTION", cfg.LedgerRetention)
	cfg.MaxOpenAIRequests = getEnvIntOrDefault("MAX_OPENAI_REQUESTS", 0)
	cfg.MaxGeminiRequests = getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 0)

	if v := os.Getenv("POST_DELAY"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			cfg.PostDelay = time.Duration(secs * float64(time.Second))
		}
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg
}

// LoadSites reads the optional YAML sites file. A missing file is not an
// error; the CLI flags describe a single site well enough.
func (c *Config) LoadSites(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read sites config: %w", err)
	}

	var f sitesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse sites config: %w", err)
	}
	c.Sites = f.Sites
	return nil
}

// Site returns the named site from the sites file, falling back to the
// flag-configured source when name is empty or unknown.
func (c *Config) Site(name string) Site {
	for _, s := range c.Sites {
		if s.Name == name {
			return s
		}
	}
	return Site{Name: "default", BaseURL: c.BaseURL, Slug: c.Slug, Lang: c.Lang}
}

// ValidatePoster checks the settings the posting stage cannot run without.
func (c *Config) ValidatePoster() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}
	if c.TelegramChannel == "" {
		return fmt.Errorf("TELEGRAM_CHANNEL is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
