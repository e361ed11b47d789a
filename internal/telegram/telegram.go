// Package telegram sends albums and chunked text messages to a channel
// through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

const (
	// MessageLimit is the Bot API cap for one text message.
	MessageLimit = 4096
	// CaptionLimit is the Bot API cap for a media caption.
	CaptionLimit = 1024
	// AlbumLimit is the most photos one media group may carry.
	AlbumLimit = 10

	maxAttempts    = 3
	baseRetryDelay = 2 * time.Second
)

// ErrBadRequest marks 4xx responses other than rate limiting; retrying
// them is pointless.
var ErrBadRequest = errors.New("telegram rejected request")

// Photo is one image ready for upload.
type Photo struct {
	Name string
	Data []byte
}

// Client posts to a single chat or channel.
type Client struct {
	token   string
	chatID  string
	http    *http.Client
	baseURL string
	log     *slog.Logger
}

// New builds a client for the given bot token and chat.
func New(token, chatID string, log *slog.Logger) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: "https://api.telegram.org",
		log:     log,
	}
}

// SetBaseURL points the client at a different API host, used by tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = u }

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendMessage sends one plain-text message with previews disabled.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	payload := map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return c.post(ctx, "sendMessage", func() (io.Reader, string, error) {
		return bytes.NewReader(body), "application/json", nil
	})
}

// SendMediaGroup uploads up to AlbumLimit photos as one album, with the
// caption on the first photo. Extra photos are dropped, matching the API cap.
func (c *Client) SendMediaGroup(ctx context.Context, photos []Photo, caption string) error {
	if len(photos) == 0 {
		return nil
	}
	if len(photos) > AlbumLimit {
		photos = photos[:AlbumLimit]
	}

	build := func() (io.Reader, string, error) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)

		media := make([]map[string]string, 0, len(photos))
		for i, p := range photos {
			key := fmt.Sprintf("photo%d", i)
			part, err := w.CreateFormFile(key, p.Name)
			if err != nil {
				return nil, "", err
			}
			if _, err := part.Write(p.Data); err != nil {
				return nil, "", err
			}
			item := map[string]string{"type": "photo", "media": "attach://" + key}
			if i == 0 && caption != "" {
				item["caption"] = Caption(caption)
			}
			media = append(media, item)
		}

		mediaJSON, err := json.Marshal(media)
		if err != nil {
			return nil, "", err
		}
		if err := w.WriteField("chat_id", c.chatID); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("media", string(mediaJSON)); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	}

	return c.post(ctx, "sendMediaGroup", build)
}

// post runs one API method with retries. 429 waits out retry_after, other
// 4xx fail immediately, everything else backs off exponentially.
func (c *Client) post(ctx context.Context, method string, build func() (io.Reader, string, error)) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, contentType, err := build()
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}

		retryAfter, err := c.once(ctx, method, contentType, body)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrBadRequest) {
			return err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		wait := baseRetryDelay << (attempt - 1)
		if retryAfter > 0 {
			wait = time.Duration(retryAfter) * time.Second
		}
		c.log.Warn("telegram send failed, retrying", "method", method,
			"attempt", attempt, "wait", wait, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", method, maxAttempts, lastErr)
}

// once performs a single API call and reports any retry_after hint.
func (c *Client) once(ctx context.Context, method, contentType string, body io.Reader) (int, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return 0, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var api apiResponse
	_ = json.Unmarshal(raw, &api)

	if resp.StatusCode == http.StatusTooManyRequests {
		after := 5
		if api.Parameters != nil && api.Parameters.RetryAfter > 0 {
			after = api.Parameters.RetryAfter
		}
		return after, fmt.Errorf("rate limited: %s", api.Description)
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return 0, fmt.Errorf("%w: status %d: %s", ErrBadRequest, resp.StatusCode, api.Description)
	}
	return 0, fmt.Errorf("status %d: %s", resp.StatusCode, api.Description)
}

// Caption trims a title to the caption limit, rune-safe, with an ellipsis.
func Caption(title string) string {
	runes := []rune(title)
	if len(runes) <= CaptionLimit {
		return title
	}
	return string(runes[:CaptionLimit-1]) + "…"
}
