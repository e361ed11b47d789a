// Package app orchestrates the parse stage: fetch posts of one category,
// clean and translate them, download their images and persist everything
// under the output directory together with the catalog.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"wpgram/internal/article"
	"wpgram/internal/config"
	"wpgram/internal/metrics"
	"wpgram/internal/scraper"
	"wpgram/internal/stopwords"
	"wpgram/internal/storage"
	"wpgram/internal/translate"
	"wpgram/internal/wordpress"
)

// Status classifies what happened to one article. Skips are expected
// outcomes, not errors.
type Status string

const (
	StatusProcessed        Status = "processed"
	StatusUpdated          Status = "updated"
	StatusSkippedUnchanged Status = "skipped_unchanged"
	StatusSkippedStopword  Status = "skipped_stopword"
	StatusSkippedNoImages  Status = "skipped_no_images"
	StatusSkippedPosted    Status = "skipped_posted"
	StatusFailed           Status = "failed"
)

// Outcome is the discriminated result of processing one post.
type Outcome struct {
	ID     string
	Status Status
	Reason string
}

// Pipeline wires the parse-stage collaborators.
type Pipeline struct {
	cfg        *config.Config
	wp         *wordpress.Client
	translator *translate.Translator
	stop       *stopwords.Set
	catalog    *storage.Catalog
	log        *slog.Logger
}

// New assembles a pipeline from the config.
func New(cfg *config.Config, log *slog.Logger) *Pipeline {
	wp := wordpress.NewClient(cfg.BaseURL, cfg.RequestTimeout, cfg.RetryAttempts, cfg.RetryDelay,
		log.With("component", "wordpress"))

	translator := translate.New(translate.Options{
		Region:         cfg.TranslateRegion,
		OpenAIKey:      cfg.OpenAIKey,
		GeminiKey:      cfg.GeminiKey,
		MaxOpenAI:      cfg.MaxOpenAIRequests,
		MaxGemini:      cfg.MaxGeminiRequests,
		RequestTimeout: cfg.RequestTimeout,
		Log:            log.With("component", "translate"),
	})

	return &Pipeline{
		cfg:        cfg,
		wp:         wp,
		translator: translator,
		stop:       stopwords.Load(cfg.StopwordsFile, log),
		log:        log,
	}
}

// Run executes one parse pass and returns whether any brand-new article
// was catalogued. The caller turns that into the NEW_ARTICLES_STATUS line
// the surrounding orchestration watches for.
func (p *Pipeline) Run(ctx context.Context) (bool, error) {
	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return false, fmt.Errorf("create output dir: %w", err)
	}

	posts, err := p.fetchPosts(ctx)
	if err != nil {
		return false, err
	}

	// Oldest first, so a partial run leaves a contiguous prefix behind.
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })

	catalogPath := filepath.Join(p.cfg.OutputDir, "catalog.json")
	p.catalog = storage.LoadCatalog(catalogPath, p.log)
	ledger := storage.LoadLedger(p.cfg.PostedStateFile, p.log)
	p.log.Info("state loaded", "catalog", p.catalog.Len(), "posted", ledger.Len())

	newCount, updatedCount, processed := 0, 0, 0
	for _, post := range posts {
		if p.cfg.Limit > 0 && processed >= p.cfg.Limit {
			p.log.Info("processing limit reached", "limit", p.cfg.Limit)
			break
		}

		id := strconv.Itoa(post.ID)
		if ledger.Contains(id) {
			metrics.Global.Inc(&metrics.Global.SkippedPosted)
			continue
		}

		known := p.catalog.Get(id) != nil
		outcome := p.processPost(ctx, post)
		if outcome.Status == StatusProcessed && known {
			outcome.Status = StatusUpdated
		}
		p.log.Info("article done", "id", outcome.ID, "status", outcome.Status, "reason", outcome.Reason)

		switch outcome.Status {
		case StatusProcessed, StatusUpdated:
			processed++
			if known {
				updatedCount++
				metrics.Global.Inc(&metrics.Global.ArticlesUpdated)
			} else {
				newCount++
				metrics.Global.Inc(&metrics.Global.ArticlesProcessed)
			}
		case StatusSkippedUnchanged:
			metrics.Global.Inc(&metrics.Global.SkippedUnchanged)
		case StatusSkippedStopword:
			metrics.Global.Inc(&metrics.Global.SkippedStopword)
		case StatusSkippedNoImages:
			metrics.Global.Inc(&metrics.Global.SkippedNoImages)
		}
	}

	if newCount > 0 || updatedCount > 0 {
		if err := p.catalog.Save(catalogPath); err != nil {
			p.log.Error("cannot save catalog", "error", err)
		} else {
			p.log.Info("catalog saved", "new", newCount, "updated", updatedCount)
		}
	} else {
		p.log.Info("no new or updated articles")
	}

	metrics.Global.SetLastRun()
	return newCount > 0, nil
}

// fetchPosts goes through the REST API and falls back to the category RSS
// feed when REST is unavailable. Over-requests twice the limit to survive
// skips.
func (p *Pipeline) fetchPosts(ctx context.Context) ([]wordpress.Post, error) {
	perPage := 10
	if p.cfg.Limit > 0 {
		perPage = p.cfg.Limit * 2
	}

	cid, err := p.wp.CategoryID(ctx, p.cfg.Slug)
	if err == nil {
		posts, perr := p.wp.Posts(ctx, cid, perPage)
		if perr == nil {
			return posts, nil
		}
		err = perr
	}

	p.log.Warn("REST API unavailable, trying category feed", "error", err)
	posts, ferr := p.wp.PostsFromFeed(ctx, p.cfg.Slug)
	if ferr != nil {
		return nil, fmt.Errorf("fetch posts: rest: %w; feed: %v", err, ferr)
	}
	return posts, nil
}

// processPost runs clean → gate → images → translate → persist for one post.
func (p *Pipeline) processPost(ctx context.Context, post wordpress.Post) Outcome {
	id := strconv.Itoa(post.ID)

	origTitle := scraper.Title(post.Title.Rendered)
	if phrase := p.stop.Match(origTitle); phrase != "" {
		return Outcome{ID: id, Status: StatusSkippedStopword, Reason: phrase}
	}

	raw := []byte(post.Content.Rendered)
	hash := storage.Fingerprint(raw)

	if storage.ShouldSkip(raw, p.cfg.Lang, p.catalog.Get(id)) {
		return Outcome{ID: id, Status: StatusSkippedUnchanged, Reason: "catalog hash match"}
	}

	dir := article.Dir(p.cfg.OutputDir, id, post.Slug)
	if meta, err := article.LoadMeta(dir); err == nil && meta.Unchanged(hash, p.cfg.Lang) {
		// Catalog lost track of an article that is already on disk.
		p.catalog.Upsert(storage.CatalogEntry{ID: id, Hash: hash, TranslatedTo: meta.TranslatedTo})
		return Outcome{ID: id, Status: StatusSkippedUnchanged, Reason: "meta hash match"}
	}

	paras := scraper.Paragraphs(post.Content.Rendered)
	body := strings.Join(paras, "\n\n")

	images := p.downloadImages(ctx, post, filepath.Join(dir, article.ImagesDir))
	if len(images) == 0 {
		return Outcome{ID: id, Status: StatusSkippedNoImages, Reason: "no downloadable images"}
	}

	meta := &article.Meta{
		ID:     id,
		Slug:   post.Slug,
		Date:   post.Date,
		Link:   post.Link,
		Title:  origTitle,
		Images: images,
		Hash:   hash,
	}

	textFile, err := article.WriteContent(dir, body)
	if err != nil {
		return Outcome{ID: id, Status: StatusFailed, Reason: err.Error()}
	}
	meta.TextFile = textFile

	if p.cfg.Lang != "" {
		res := p.translator.Document(ctx, origTitle, body, p.cfg.Lang)
		metrics.Global.Add(&metrics.Global.ChunksTranslated, int64(res.Chunks-res.FailedChunks))
		metrics.Global.Add(&metrics.Global.TranslateFailures, int64(res.FailedChunks))
		if res.Translated {
			transFile, err := article.WriteTranslated(dir, p.cfg.Lang, res.Title, res.Body)
			if err != nil {
				return Outcome{ID: id, Status: StatusFailed, Reason: err.Error()}
			}
			meta.Title = res.Title
			meta.TranslatedTo = p.cfg.Lang
			meta.TranslatedFile = transFile
			meta.TextFile = transFile
		}
	}

	if err := meta.Save(dir); err != nil {
		return Outcome{ID: id, Status: StatusFailed, Reason: err.Error()}
	}

	p.catalog.Upsert(storage.CatalogEntry{ID: id, Hash: hash, TranslatedTo: meta.TranslatedTo})
	return Outcome{ID: id, Status: StatusProcessed}
}

// downloadImages fans candidate URLs out over a bounded worker group and
// keeps whatever arrived. Individual failures only cost that one image.
func (p *Pipeline) downloadImages(ctx context.Context, post wordpress.Post, imgDir string) []string {
	candidates := scraper.ImageCandidates(post.Content.Rendered, 10)
	if len(candidates) == 0 && post.Embedded != nil && len(post.Embedded.FeaturedMedia) > 0 {
		if u := post.Embedded.FeaturedMedia[0].SourceURL; u != "" {
			candidates = append(candidates, u)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if err := os.MkdirAll(imgDir, 0o750); err != nil {
		p.log.Error("cannot create images dir", "dir", imgDir, "error", err)
		return nil
	}

	var mu sync.Mutex
	var saved []string

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ImageWorkers)

	for _, src := range candidates {
		src := src
		g.Go(func() error {
			name := article.ImageFileName(src)
			if name == "" {
				return nil
			}

			data, err := p.wp.Get(gctx, src)
			if err != nil {
				p.log.Warn("image download failed", "url", src, "error", err)
				return nil // one lost image must not cancel the group
			}

			dest := filepath.Join(imgDir, name)
			if err := os.WriteFile(dest, data, 0o644); err != nil {
				p.log.Warn("cannot save image", "file", dest, "error", err)
				return nil
			}

			mu.Lock()
			saved = append(saved, name)
			mu.Unlock()
			metrics.Global.Inc(&metrics.Global.ImagesDownloaded)
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(saved)
	return saved
}
