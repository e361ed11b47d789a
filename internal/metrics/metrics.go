// Package metrics keeps run counters exposed on the optional monitoring
// endpoint.
package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Parse stage
	ArticlesProcessed int64
	ArticlesUpdated   int64
	SkippedUnchanged  int64
	SkippedStopword   int64
	SkippedNoImages   int64
	SkippedPosted     int64
	ImagesDownloaded  int64
	ChunksTranslated  int64
	TranslateFailures int64

	// Posting stage
	AlbumsSent        int64
	MessagesSent      int64
	ArticlesPosted    int64

	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

// Global is shared by both binaries; each run touches its own counters.
var Global = &Metrics{IsHealthy: true}

func (m *Metrics) Inc(counter *int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter++
}

func (m *Metrics) Add(counter *int64, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	*counter += n
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// GetStats snapshots the counters for the JSON endpoints.
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_processed": m.ArticlesProcessed,
		"articles_updated":   m.ArticlesUpdated,
		"skipped_unchanged":  m.SkippedUnchanged,
		"skipped_stopword":   m.SkippedStopword,
		"skipped_no_images":  m.SkippedNoImages,
		"skipped_posted":     m.SkippedPosted,
		"images_downloaded":  m.ImagesDownloaded,
		"chunks_translated":  m.ChunksTranslated,
		"translate_failures": m.TranslateFailures,
		"albums_sent":        m.AlbumsSent,
		"messages_sent":      m.MessagesSent,
		"articles_posted":    m.ArticlesPosted,
		"last_run_time":      m.LastRunTime.Format(time.RFC3339),
		"last_error_time":    m.LastErrorTime.Format(time.RFC3339),
		"last_error":         m.LastError,
		"is_healthy":         m.IsHealthy,
	}
}
