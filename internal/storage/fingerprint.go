package storage

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint returns the hex sha256 of the raw rendered content.
func Fingerprint(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ShouldSkip reports whether a freshly fetched article is unchanged: the
// stored entry exists, its hash matches the new content and it was already
// translated to the requested language. Pure predicate; the caller persists
// the new fingerprint after processing.
func ShouldSkip(content []byte, targetLang string, entry *CatalogEntry) bool {
	if entry == nil {
		return false
	}
	return entry.Hash == Fingerprint(content) && entry.TranslatedTo == targetLang
}
