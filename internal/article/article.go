// Package article owns the on-disk layout of one parsed article:
// articles/<id>_<slug>/ with meta.json, content.txt, an optional
// translated content file and an images/ subdirectory.
package article

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPermissions = 0o750

	// MetaFile sits next to the content inside every article directory.
	MetaFile = "meta.json"
	// ContentFile holds the original cleaned body.
	ContentFile = "content.txt"
	// ImagesDir holds the downloaded images.
	ImagesDir = "images"
)

// Meta is the per-article manifest the posting stage consumes.
type Meta struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	Date           string   `json:"date"`
	Link           string   `json:"link"`
	Title          string   `json:"title"`
	TextFile       string   `json:"text_file"`
	Images         []string `json:"images"`
	Posted         bool     `json:"posted"`
	Hash           string   `json:"hash"`
	TranslatedTo   string   `json:"translated_to"`
	TranslatedFile string   `json:"translated_file,omitempty"`
}

// Dir returns the directory for one article under root.
func Dir(root, id, slug string) string {
	return filepath.Join(root, fmt.Sprintf("%s_%s", id, slug))
}

// LoadMeta reads meta.json from dir. Corrupt or missing manifests return
// an error; the caller reprocesses the article in that case.
func LoadMeta(dir string) (*Meta, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetaFile))
	if err != nil {
		return nil, err
	}
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &m, nil
}

// Unchanged reports whether the stored article matches the fresh content
// hash and translation target, meaning reprocessing can be skipped.
func (m *Meta) Unchanged(hash, targetLang string) bool {
	return m.Hash == hash && m.TranslatedTo == targetLang
}

// Save writes the manifest into dir.
func (m *Meta) Save(dir string) error {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("create article dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, MetaFile), data, 0o644)
}

// WriteContent stores the original body and returns the file name
// relative to dir, the form the manifest records.
func WriteContent(dir, text string) (string, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("create article dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ContentFile), []byte(text), 0o644); err != nil {
		return "", err
	}
	return ContentFile, nil
}

// WriteTranslated stores the translated body prefixed by the translated
// title, the layout the posting stage sends as-is.
func WriteTranslated(dir, lang, title, body string) (string, error) {
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return "", fmt.Errorf("create article dir: %w", err)
	}
	name := fmt.Sprintf("content.%s.txt", lang)
	content := title + "\n\n\n" + body
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		return "", err
	}
	return name, nil
}

// ImageFileName derives a local file name from an image URL: the last path
// segment with any query string stripped.
func ImageFileName(srcURL string) string {
	name := srcURL
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "?"); idx >= 0 {
		name = name[:idx]
	}
	return name
}
