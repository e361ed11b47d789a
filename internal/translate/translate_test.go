package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"gotest.tools/assert"

	"wpgram/internal/memo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProvider uppercases its input, which keeps the sentinel intact,
// and can be told to fail on chunks containing a trigger string.
type fakeProvider struct {
	name    string
	calls   int
	failOn  string
	failAll bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Translate(_ context.Context, text, _, _ string) (string, error) {
	f.calls++
	if f.failAll || (f.failOn != "" && strings.Contains(text, f.failOn)) {
		return "", errors.New("provider down")
	}
	return strings.ToUpper(text), nil
}

func newTestTranslator(limit int, providers ...Provider) *Translator {
	return &Translator{
		providers: providers,
		budget:    NewBudget(nil),
		memo:      memo.New(time.Hour),
		limit:     limit,
		timeout:   time.Second,
		log:       testLogger(),
	}
}

func TestDocument_TranslatesTitleAndBody(t *testing.T) {
	fake := &fakeProvider{name: "fake"}
	tr := newTestTranslator(DefaultChunkLimit, fake)

	res := tr.Document(context.Background(), "hello world", "first paragraph.\n\nsecond paragraph.", "ru")
	assert.Assert(t, res.Translated)
	assert.Equal(t, 0, res.FailedChunks)
	assert.Equal(t, "HELLO WORLD", res.Title)
	assert.Equal(t, "FIRST PARAGRAPH.\n\nSECOND PARAGRAPH.", res.Body)
}

func TestDocument_FailedChunkKeepsOriginalText(t *testing.T) {
	fake := &fakeProvider{name: "fake", failOn: "poison"}
	tr := newTestTranslator(40, fake)

	body := "good paragraph here.\n\npoison paragraph here.\n\nanother good one."
	res := tr.Document(context.Background(), "title", body, "ru")

	assert.Assert(t, res.Translated)
	assert.Assert(t, res.FailedChunks > 0)
	// The failed chunk survives untranslated; the rest is uppercased.
	assert.Assert(t, strings.Contains(res.Body, "poison paragraph here."))
	assert.Assert(t, strings.Contains(res.Body, "GOOD PARAGRAPH HERE."))
}

func TestDocument_AllChunksFailedKeepsWholeOriginal(t *testing.T) {
	fake := &fakeProvider{name: "fake", failAll: true}
	tr := newTestTranslator(DefaultChunkLimit, fake)

	res := tr.Document(context.Background(), "my title", "my body text.", "ru")
	assert.Assert(t, !res.Translated)
	assert.Equal(t, "my title", res.Title)
	assert.Equal(t, "my body text.", res.Body)
}

func TestDocument_SkipsContentAlreadyInTargetLanguage(t *testing.T) {
	fake := &fakeProvider{name: "fake"}
	tr := newTestTranslator(DefaultChunkLimit, fake)

	title := "Новости дня"
	body := "Сегодня в столице открылась новая станция метро. Жители района ждали этого события несколько лет."
	res := tr.Document(context.Background(), title, body, "ru")

	assert.Assert(t, !res.Translated)
	assert.Equal(t, title, res.Title)
	assert.Equal(t, body, res.Body)
	assert.Equal(t, 0, fake.calls)
}

func TestTranslateChunk_FallsThroughProviderChain(t *testing.T) {
	broken := &fakeProvider{name: "broken", failAll: true}
	backup := &fakeProvider{name: "backup"}
	tr := newTestTranslator(DefaultChunkLimit, broken, backup)

	out, err := tr.translateChunk(context.Background(), "some text", "en", "ru")
	assert.NilError(t, err)
	assert.Equal(t, "SOME TEXT", out)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestTranslateChunk_BudgetSkipsCappedProvider(t *testing.T) {
	capped := &fakeProvider{name: "capped"}
	backup := &fakeProvider{name: "backup"}
	tr := newTestTranslator(DefaultChunkLimit, capped, backup)
	tr.budget = NewBudget(map[string]int{"capped": 1})

	_, err := tr.translateChunk(context.Background(), "first", "en", "ru")
	assert.NilError(t, err)
	_, err = tr.translateChunk(context.Background(), "second", "en", "ru")
	assert.NilError(t, err)

	assert.Equal(t, 1, capped.calls)
	assert.Equal(t, 1, backup.calls)
}

func TestTranslateChunk_MemoAvoidsRepeatCalls(t *testing.T) {
	fake := &fakeProvider{name: "fake"}
	tr := newTestTranslator(DefaultChunkLimit, fake)

	for i := 0; i < 3; i++ {
		out, err := tr.translateChunk(context.Background(), "same text", "en", "ru")
		assert.NilError(t, err)
		assert.Equal(t, "SAME TEXT", out)
	}
	assert.Equal(t, 1, fake.calls)
}

func TestText_FailureReturnsOriginal(t *testing.T) {
	fake := &fakeProvider{name: "fake", failAll: true}
	tr := newTestTranslator(DefaultChunkLimit, fake)

	assert.Equal(t, "keep me", tr.Text(context.Background(), "keep me", "ru"))
}

func TestNew_AppliesConfiguredRequestTimeout(t *testing.T) {
	tr := New(Options{RequestTimeout: 5 * time.Second, Log: testLogger()})
	assert.Equal(t, 5*time.Second, tr.timeout)

	// Zero falls back to the built-in default.
	tr = New(Options{Log: testLogger()})
	assert.Equal(t, 20*time.Second, tr.timeout)
}

func TestBudget_ZeroCapIsUnlimited(t *testing.T) {
	b := NewBudget(map[string]int{"metered": 2, "free": 0})

	for i := 0; i < 5; i++ {
		assert.Assert(t, b.Allow("free"))
		b.Use("free")
	}
	assert.Equal(t, 5, b.Used("free"))

	assert.Assert(t, b.Allow("metered"))
	b.Use("metered")
	assert.Assert(t, b.Allow("metered"))
	b.Use("metered")
	assert.Assert(t, !b.Allow("metered"))
}
