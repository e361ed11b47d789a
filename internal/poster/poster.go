// Package poster publishes parsed articles to a Telegram channel: one
// photo album with the title as caption, then the text split across
// messages. Posted IDs go into a shared ledger so reruns are idempotent.
package poster

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"wpgram/internal/article"
	"wpgram/internal/chunk"
	"wpgram/internal/config"
	"wpgram/internal/metrics"
	"wpgram/internal/storage"
	"wpgram/internal/telegram"
	"wpgram/internal/watermark"
)

// PostedStore records which article IDs have already been published.
// Both the JSON file ledger and the Postgres ledger satisfy it.
type PostedStore interface {
	Contains(id string) bool
	MarkPosted(id string)
	Flush() error
}

type fileStore struct {
	ledger    *storage.Ledger
	path      string
	retention int
	log       *slog.Logger
}

// NewFileStore opens the JSON ledger at path. A missing or corrupt file
// starts empty; Flush merges with whatever is on disk by then.
func NewFileStore(path string, retention int, log *slog.Logger) PostedStore {
	return &fileStore{
		ledger:    storage.LoadLedger(path, log),
		path:      path,
		retention: retention,
		log:       log,
	}
}

func (s *fileStore) Contains(id string) bool { return s.ledger.Contains(id) }
func (s *fileStore) MarkPosted(id string)    { s.ledger.Add(id) }
func (s *fileStore) Flush() error            { return s.ledger.Save(s.path, s.retention, s.log) }

// item is one parsed article directory ready to publish.
type item struct {
	id     string
	dir    string
	title  string
	text   string
	images []string
}

// Poster walks the parsed directory and publishes unposted articles.
type Poster struct {
	cfg   *config.Config
	tg    *telegram.Client
	store PostedStore
	mark  *watermark.Marker
	log   *slog.Logger
}

// New validates the Telegram settings and assembles a poster.
func New(cfg *config.Config, store PostedStore, log *slog.Logger) (*Poster, error) {
	if err := cfg.ValidatePoster(); err != nil {
		return nil, err
	}
	mark, err := watermark.Load(cfg.WatermarkFile, cfg.WatermarkScale)
	if err != nil {
		log.Warn("watermark disabled", "file", cfg.WatermarkFile, "error", err)
	}
	return &Poster{
		cfg:   cfg,
		tg:    telegram.New(cfg.TelegramToken, cfg.TelegramChannel, log.With("component", "telegram")),
		store: store,
		mark:  mark,
		log:   log,
	}, nil
}

// Run publishes up to cfg.Limit unposted articles, oldest first, and
// flushes the ledger afterwards. Returns how many went out.
func (p *Poster) Run(ctx context.Context) (int, error) {
	dirs, err := p.scan()
	if err != nil {
		return 0, err
	}
	p.log.Info("parsed directory scanned", "articles", len(dirs))

	posted := 0
	for _, d := range dirs {
		if p.cfg.Limit > 0 && posted >= p.cfg.Limit {
			break
		}

		id := idFromDir(d)
		if id == "" {
			continue
		}
		if p.store.Contains(id) {
			metrics.Global.Inc(&metrics.Global.SkippedPosted)
			continue
		}

		it, err := p.load(id, d)
		if err != nil {
			p.log.Warn("article not postable", "dir", d, "error", err)
			continue
		}

		if err := p.publish(ctx, it); err != nil {
			p.log.Error("posting failed", "id", id, "error", err)
			metrics.Global.SetError(err.Error())
			if ctx.Err() != nil {
				break
			}
			continue
		}

		p.store.MarkPosted(id)
		p.flagPosted(d)
		posted++
		metrics.Global.Inc(&metrics.Global.ArticlesPosted)
		p.log.Info("article posted", "id", id, "title", it.title)

		if p.cfg.PostDelay > 0 {
			select {
			case <-time.After(p.cfg.PostDelay):
			case <-ctx.Done():
				goto done
			}
		}
	}

done:
	// A failed save means a possible duplicate next run, never a lost
	// post; the batch itself succeeded.
	if err := p.store.Flush(); err != nil {
		p.log.Error("cannot save posted state", "error", err)
	}
	metrics.Global.SetLastRun()
	return posted, nil
}

// scan lists article directories under the parsed root, oldest ID first.
func (p *Poster) scan() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("read parsed dir %s: %w", p.cfg.OutputDir, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && idFromDir(e.Name()) != "" {
			dirs = append(dirs, filepath.Join(p.cfg.OutputDir, e.Name()))
		}
	}
	sort.Slice(dirs, func(i, j int) bool {
		a, _ := strconv.Atoi(idFromDir(dirs[i]))
		b, _ := strconv.Atoi(idFromDir(dirs[j]))
		return a < b
	})
	return dirs, nil
}

// idFromDir extracts the numeric prefix of an <id>_<slug> directory name.
func idFromDir(dir string) string {
	name := filepath.Base(dir)
	id, _, ok := strings.Cut(name, "_")
	if !ok {
		return ""
	}
	if _, err := strconv.Atoi(id); err != nil {
		return ""
	}
	return id
}

// load reads one article directory, falling back past a broken meta.json
// where the files on disk still tell the story.
func (p *Poster) load(id, dir string) (item, error) {
	it := item{id: id, dir: dir}

	meta, err := article.LoadMeta(dir)
	if err != nil {
		meta = &article.Meta{}
		p.log.Debug("meta unreadable, using directory contents", "dir", dir, "error", err)
	}

	it.title = meta.Title
	if it.title == "" {
		_, slug, _ := strings.Cut(filepath.Base(dir), "_")
		it.title = strings.ReplaceAll(slug, "-", " ")
	}

	textFile := meta.TextFile
	if textFile == "" || !fileExists(filepath.Join(dir, textFile)) {
		textFile = firstTextFile(dir)
	}
	if textFile != "" {
		data, err := os.ReadFile(filepath.Join(dir, textFile))
		if err == nil {
			it.text = strings.TrimSpace(string(data))
		}
	}

	names := meta.Images
	if len(names) == 0 {
		names = listImages(filepath.Join(dir, article.ImagesDir))
	}
	for _, n := range names {
		path := filepath.Join(dir, article.ImagesDir, n)
		if fileExists(path) {
			it.images = append(it.images, path)
		}
	}
	if len(it.images) == 0 {
		return it, fmt.Errorf("no images to post")
	}
	return it, nil
}

// publish sends the album and then the text, one chunk per message.
func (p *Poster) publish(ctx context.Context, it item) error {
	photos := p.photos(it)
	if len(photos) == 0 {
		return fmt.Errorf("no readable images")
	}

	if err := p.tg.SendMediaGroup(ctx, photos, it.title); err != nil {
		return fmt.Errorf("send album: %w", err)
	}
	metrics.Global.Inc(&metrics.Global.AlbumsSent)

	for _, msg := range chunk.Split(it.text, telegram.MessageLimit) {
		if err := p.tg.SendMessage(ctx, msg); err != nil {
			return fmt.Errorf("send text: %w", err)
		}
		metrics.Global.Inc(&metrics.Global.MessagesSent)
	}
	return nil
}

// photos reads and watermarks the article images. An image the marker
// cannot process is sent as-is.
func (p *Poster) photos(it item) []telegram.Photo {
	var photos []telegram.Photo
	for _, path := range it.images {
		if len(photos) >= telegram.AlbumLimit {
			break
		}
		data, err := os.ReadFile(path)
		if err != nil {
			p.log.Warn("cannot read image", "file", path, "error", err)
			continue
		}
		if p.mark != nil {
			if marked, err := p.mark.Apply(data); err == nil {
				data = marked
			} else {
				p.log.Warn("watermark failed, sending original", "file", path, "error", err)
			}
		}
		photos = append(photos, telegram.Photo{Name: filepath.Base(path), Data: data})
	}
	return photos
}

// flagPosted records the posted flag in the article manifest. The ledger
// is authoritative; a manifest without the flag just looks unposted to a
// human browsing the directory.
func (p *Poster) flagPosted(dir string) {
	meta, err := article.LoadMeta(dir)
	if err != nil {
		return
	}
	meta.Posted = true
	if err := meta.Save(dir); err != nil {
		p.log.Warn("cannot update manifest", "dir", dir, "error", err)
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// firstTextFile prefers a translated content file over the original.
func firstTextFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var candidates []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			candidates = append(candidates, e.Name())
		}
	}
	sort.Strings(candidates)
	// content.<lang>.txt sorts after content.txt; take the last one.
	if len(candidates) == 0 {
		return ""
	}
	return candidates[len(candidates)-1]
}

func listImages(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
