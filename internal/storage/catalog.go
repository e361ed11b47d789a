package storage

import (
	"encoding/json"
	"log/slog"
	"os"
)

// CatalogEntry is the minimal provenance record kept per article: enough
// to decide whether a refetched article needs reprocessing, nothing more.
// Full bodies and derived artifacts live in the per-article directories.
type CatalogEntry struct {
	ID           string `json:"id"`
	Hash         string `json:"hash"`
	TranslatedTo string `json:"translated_to"`
}

// catalogRecord mirrors CatalogEntry with a loosely typed ID so old files
// that stored numeric IDs still load.
type catalogRecord struct {
	ID           any    `json:"id"`
	Hash         string `json:"hash"`
	TranslatedTo string `json:"translated_to"`
}

// Catalog maps article IDs to their provenance, at most one entry per ID.
// It is mutated by the single pipeline goroutine only.
type Catalog struct {
	entries []CatalogEntry
	index   map[string]int
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{index: make(map[string]int)}
}

// LoadCatalog reads the catalog file. Records without an ID are dropped;
// a missing or corrupt file degrades to an empty catalog with a warning.
func LoadCatalog(path string, log *slog.Logger) *Catalog {
	c := NewCatalog()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("cannot read catalog, assuming empty", "path", path, "error", err)
		}
		return c
	}
	if len(data) == 0 {
		return c
	}

	var raw []catalogRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("catalog is not valid JSON, assuming empty", "path", path, "error", err)
		return c
	}

	for _, rec := range raw {
		id, ok := coerceID(rec.ID)
		if !ok {
			continue
		}
		c.Upsert(CatalogEntry{ID: id, Hash: rec.Hash, TranslatedTo: rec.TranslatedTo})
	}
	return c
}

// Get returns the entry for id, or nil when the article is unknown.
func (c *Catalog) Get(id string) *CatalogEntry {
	if i, ok := c.index[id]; ok {
		e := c.entries[i]
		return &e
	}
	return nil
}

// Upsert replaces any existing entry with the same ID; the most recent
// version wins.
func (c *Catalog) Upsert(e CatalogEntry) {
	if i, ok := c.index[e.ID]; ok {
		c.entries[i] = e
		return
	}
	c.index[e.ID] = len(c.entries)
	c.entries = append(c.entries, e)
}

// Len returns the number of catalogued articles.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Save serializes only the minimal fields and writes them atomically.
func (c *Catalog) Save(path string) error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}
