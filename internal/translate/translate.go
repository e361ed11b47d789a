// Package translate turns an article title and body into the target
// language using a chain of providers: the free Google endpoint first,
// then OpenAI, then Gemini. Long documents travel in sentinel-delimited
// chunks; a chunk whose translation fails keeps its original text so the
// reassembled article is always complete.
package translate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/abadojack/whatlanggo"

	"wpgram/internal/chunk"
	"wpgram/internal/memo"
)

// DefaultChunkLimit keeps requests under the character caps of the free
// endpoints.
const DefaultChunkLimit = 4500

var errAllProvidersFailed = errors.New("all translation providers failed")

// Provider is one translation backend.
type Provider interface {
	Name() string
	Translate(ctx context.Context, text, from, to string) (string, error)
}

// Options configures the translator chain.
type Options struct {
	Region         string // hint for the free endpoint
	OpenAIKey      string
	GeminiKey      string
	MaxOpenAI      int // per-run request caps, 0 = unlimited
	MaxGemini      int
	ChunkLimit     int
	RequestTimeout time.Duration
	Log            *slog.Logger
}

// Result reports what happened to one document.
type Result struct {
	Title        string
	Body         string
	Translated   bool // false when skipped or everything failed
	Chunks       int
	FailedChunks int
}

// Translator runs documents through the provider chain.
type Translator struct {
	providers []Provider
	budget    *Budget
	memo      *memo.Cache
	limit     int
	timeout   time.Duration
	log       *slog.Logger
}

// New assembles the chain from the configured credentials. The free
// endpoint is always present; OpenAI and Gemini join when keys are set.
func New(opts Options) *Translator {
	if opts.ChunkLimit <= 0 {
		opts.ChunkLimit = DefaultChunkLimit
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 20 * time.Second
	}

	t := &Translator{
		budget:  NewBudget(map[string]int{"openai": opts.MaxOpenAI, "gemini": opts.MaxGemini}),
		memo:    memo.New(24 * time.Hour),
		limit:   opts.ChunkLimit,
		timeout: opts.RequestTimeout,
		log:     opts.Log,
	}

	t.providers = append(t.providers, newGoogleProvider(opts.Region, opts.RequestTimeout))
	if opts.OpenAIKey != "" {
		t.providers = append(t.providers, newOpenAIProvider(opts.OpenAIKey))
	}
	if opts.GeminiKey != "" {
		if g, err := newGeminiProvider(opts.GeminiKey); err == nil {
			t.providers = append(t.providers, g)
		} else {
			opts.Log.Warn("gemini unavailable", "error", err)
		}
	}
	return t
}

// Document translates title and body into `to`. The title/body boundary
// survives chunking through the sentinel delimiter. When the content is
// already in the target language the originals come back untouched.
func (t *Translator) Document(ctx context.Context, title, body, to string) Result {
	if to == "" || (title == "" && body == "") {
		return Result{Title: title, Body: body}
	}

	from := detectLang(title + " " + body)
	if from == to {
		t.log.Debug("content already in target language, skipping translation", "lang", to)
		return Result{Title: title, Body: body}
	}

	combined := chunk.JoinTitleBody(title, body)
	segs := chunk.SplitForTranslation(combined, t.limit)

	translated := make([]string, len(segs))
	failed := 0
	for i, seg := range segs {
		out, err := t.translateChunk(ctx, seg, from, to)
		if err != nil {
			// Keep the original text; the document must stay complete.
			t.log.Warn("chunk translation failed, keeping original", "chunk", i, "error", err)
			translated[i] = seg
			failed++
			continue
		}
		translated[i] = out
	}

	outTitle, outBody := chunk.Recombine(translated)
	if outTitle == "" {
		outTitle = title
	}
	return Result{
		Title:        outTitle,
		Body:         outBody,
		Translated:   failed < len(segs),
		Chunks:       len(segs),
		FailedChunks: failed,
	}
}

// Text translates a single short string, for titles used standalone.
func (t *Translator) Text(ctx context.Context, text, to string) string {
	if to == "" || text == "" {
		return text
	}
	from := detectLang(text)
	if from == to {
		return text
	}
	out, err := t.translateChunk(ctx, text, from, to)
	if err != nil {
		t.log.Warn("text translation failed, keeping original", "error", err)
		return text
	}
	return out
}

// translateChunk walks the provider chain for one chunk, consulting the
// memo cache and the per-provider budgets first.
func (t *Translator) translateChunk(ctx context.Context, text, from, to string) (string, error) {
	key := memo.Key(text, to)
	if cached, ok := t.memo.Get(key); ok {
		return cached, nil
	}

	var lastErr error = errAllProvidersFailed
	for _, p := range t.providers {
		if !t.budget.Allow(p.Name()) {
			t.log.Debug("provider budget spent", "provider", p.Name())
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, t.timeout)
		out, err := p.Translate(cctx, text, from, to)
		cancel()
		t.budget.Use(p.Name())

		if err != nil || out == "" {
			if err == nil {
				err = errors.New("empty translation")
			}
			t.log.Warn("provider failed", "provider", p.Name(), "error", err)
			lastErr = err
			continue
		}

		t.memo.Set(key, out)
		return out, nil
	}
	return "", lastErr
}

// detectLang guesses the source language; unknown or unreliable guesses
// fall back to English, the dominant source in practice.
func detectLang(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "en"
	}
	if code := info.Lang.Iso6391(); code != "" {
		return code
	}
	return "en"
}
