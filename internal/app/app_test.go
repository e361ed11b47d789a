package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gotest.tools/assert"

	"wpgram/internal/article"
	"wpgram/internal/config"
	"wpgram/internal/stopwords"
	"wpgram/internal/storage"
	"wpgram/internal/wordpress"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// wpFixture serves a minimal WordPress REST API with one post whose image
// lives on the same server.
func wpFixture(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id": 7, "slug": "national"}]`)
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[
			{"id": 42, "slug": "rail-line-opens", "date": "2024-05-01T10:00:00",
			 "link": "%[1]s/rail-line-opens/",
			 "title": {"rendered": "Rail line opens"},
			 "content": {"rendered": "<p>First paragraph.</p><p>Second paragraph.</p><img src=\"%[1]s/img/one.jpg\">"}}
		]`, server.URL)
	})
	mux.HandleFunc("/img/one.jpg", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "jpegbytes")
	})

	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		BaseURL:         baseURL,
		Slug:            "national",
		Lang:            "", // keep the test offline
		Limit:           10,
		OutputDir:       root,
		PostedStateFile: filepath.Join(root, "posted.json"),
		StopwordsFile:   filepath.Join(root, "stopwords.txt"),
		RequestTimeout:  5 * time.Second,
		RetryAttempts:   1,
		ImageWorkers:    2,
	}
}

func newTestPipeline(cfg *config.Config) *Pipeline {
	log := testLogger()
	return &Pipeline{
		cfg:  cfg,
		wp:   wordpress.NewClient(cfg.BaseURL, cfg.RequestTimeout, cfg.RetryAttempts, 0, log),
		stop: stopwords.Load(cfg.StopwordsFile, log),
		log:  log,
	}
}

func TestRun_ProcessesNewArticle(t *testing.T) {
	server := wpFixture(t)
	cfg := testConfig(t, server.URL)

	hasNew, err := newTestPipeline(cfg).Run(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, hasNew)

	dir := article.Dir(cfg.OutputDir, "42", "rail-line-opens")
	meta, err := article.LoadMeta(dir)
	assert.NilError(t, err)
	assert.Equal(t, "Rail line opens", meta.Title)
	assert.DeepEqual(t, []string{"one.jpg"}, meta.Images)

	body, err := os.ReadFile(filepath.Join(dir, meta.TextFile))
	assert.NilError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", string(body))

	img, err := os.ReadFile(filepath.Join(dir, article.ImagesDir, "one.jpg"))
	assert.NilError(t, err)
	assert.Equal(t, "jpegbytes", string(img))

	catalog := storage.LoadCatalog(filepath.Join(cfg.OutputDir, "catalog.json"), testLogger())
	entry := catalog.Get("42")
	assert.Assert(t, entry != nil)
	assert.Assert(t, entry.Hash != "")
}

func TestRun_SecondPassSkipsUnchanged(t *testing.T) {
	server := wpFixture(t)
	cfg := testConfig(t, server.URL)

	hasNew, err := newTestPipeline(cfg).Run(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, hasNew)

	hasNew, err = newTestPipeline(cfg).Run(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, !hasNew)
}

func TestRun_SkipsPostedArticles(t *testing.T) {
	server := wpFixture(t)
	cfg := testConfig(t, server.URL)

	ledger := storage.NewLedger()
	ledger.Add("42")
	assert.NilError(t, ledger.Save(cfg.PostedStateFile, 100, testLogger()))

	hasNew, err := newTestPipeline(cfg).Run(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, !hasNew)

	_, err = article.LoadMeta(article.Dir(cfg.OutputDir, "42", "rail-line-opens"))
	assert.Assert(t, err != nil, "posted article must not be reparsed")
}

func TestRun_StopwordSkipsArticle(t *testing.T) {
	server := wpFixture(t)
	cfg := testConfig(t, server.URL)
	assert.NilError(t, os.WriteFile(cfg.StopwordsFile, []byte("rail\n"), 0o644))

	hasNew, err := newTestPipeline(cfg).Run(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, !hasNew)

	_, err = article.LoadMeta(article.Dir(cfg.OutputDir, "42", "rail-line-opens"))
	assert.Assert(t, err != nil)
}
