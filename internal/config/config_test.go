package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHANNEL", "@chan")
	t.Setenv("POST_DELAY", "2.5")
	t.Setenv("LEDGER_RETENTION", "250")
	t.Setenv("MAX_OPENAI_REQUESTS", "7")
	t.Setenv("DEBUG", "true")

	cfg := Load()
	assert.Equal(t, "tok", cfg.TelegramToken)
	assert.Equal(t, "@chan", cfg.TelegramChannel)
	assert.Equal(t, 2500*time.Millisecond, cfg.PostDelay)
	assert.Equal(t, 250, cfg.LedgerRetention)
	assert.Equal(t, 7, cfg.MaxOpenAIRequests)
	assert.Assert(t, cfg.Debug)
}

func TestLoad_BadEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("POST_DELAY", "soon")
	t.Setenv("LEDGER_RETENTION", "many")

	cfg := Load()
	assert.Equal(t, 5*time.Second, cfg.PostDelay)
	assert.Equal(t, 500, cfg.LedgerRetention)
}

func TestLoadSites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	raw := `sites:
  - name: thaiger
    baseUrl: https://www.thethaiger.com
    slug: national
    lang: ru
`
	assert.NilError(t, os.WriteFile(path, []byte(raw), 0o644))

	cfg := Load()
	assert.NilError(t, cfg.LoadSites(path))
	assert.Equal(t, 1, len(cfg.Sites))

	s := cfg.Site("thaiger")
	assert.Equal(t, "https://www.thethaiger.com", s.BaseURL)
	assert.Equal(t, "ru", s.Lang)

	// Unknown names fall back to the flag-configured source.
	fallback := cfg.Site("missing")
	assert.Equal(t, cfg.BaseURL, fallback.BaseURL)
}

func TestLoadSites_MissingFileIsFine(t *testing.T) {
	cfg := Load()
	assert.NilError(t, cfg.LoadSites(filepath.Join(t.TempDir(), "nope.yaml")))
	assert.Equal(t, 0, len(cfg.Sites))
}

func TestValidatePoster(t *testing.T) {
	cfg := &Config{}
	assert.Assert(t, cfg.ValidatePoster() != nil)

	cfg.TelegramToken = "tok"
	assert.Assert(t, cfg.ValidatePoster() != nil)

	cfg.TelegramChannel = "@chan"
	assert.NilError(t, cfg.ValidatePoster())
}
