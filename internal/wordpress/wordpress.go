// Package wordpress pulls posts of one category from a WordPress site over
// the REST API, with the category RSS feed as a fallback for sites that
// disable REST.
package wordpress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mmcdole/gofeed"

	"wpgram/internal/retry"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrStatusNotOK      = errors.New("unexpected HTTP status")
)

// RenderedField is the WP REST {"rendered": "..."} wrapper.
type RenderedField struct {
	Rendered string `json:"rendered"`
}

// Media is one embedded media object; only the source URL matters here.
type Media struct {
	SourceURL string `json:"source_url"`
}

// Embedded carries the _embed extras requested with the posts.
type Embedded struct {
	FeaturedMedia []Media `json:"wp:featuredmedia"`
}

// Post is a single WordPress post as returned by /wp-json/wp/v2/posts.
type Post struct {
	ID       int           `json:"id"`
	Slug     string        `json:"slug"`
	Date     string        `json:"date"`
	Link     string        `json:"link"`
	Title    RenderedField `json:"title"`
	Content  RenderedField `json:"content"`
	Embedded *Embedded     `json:"_embedded,omitempty"`
}

type category struct {
	ID int `json:"id"`
}

// Client talks to one WordPress site.
type Client struct {
	baseURL string
	http    *http.Client
	retry   retry.Config
	log     *slog.Logger
}

// NewClient builds a client for baseURL with the given retry policy.
func NewClient(baseURL string, timeout time.Duration, attempts int, delay time.Duration, log *slog.Logger) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
	c.retry = retry.Config{
		MaxAttempts: attempts,
		Delay:       delay,
		Backoff:     true,
		OnRetry: func(attempt int, err error) {
			log.Warn("request failed, retrying", "attempt", attempt, "error", err)
		},
	}
	return c
}

// CategoryID resolves a category slug to its numeric ID.
func (c *Client) CategoryID(ctx context.Context, slug string) (int, error) {
	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/categories?slug=%s", c.baseURL, url.QueryEscape(slug))

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("fetch categories: %w", err)
	}

	var cats []category
	if err := json.Unmarshal(body, &cats); err != nil {
		return 0, fmt.Errorf("decode categories: %w", err)
	}
	if len(cats) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrCategoryNotFound, slug)
	}
	return cats[0].ID, nil
}

// Posts fetches up to perPage posts of the category, embedded media included.
func (c *Client) Posts(ctx context.Context, categoryID, perPage int) ([]Post, error) {
	endpoint := fmt.Sprintf("%s/wp-json/wp/v2/posts?categories=%d&per_page=%d&_embed",
		c.baseURL, categoryID, perPage)

	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch posts: %w", err)
	}

	var posts []Post
	if err := json.Unmarshal(body, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return posts, nil
}

// PostsFromFeed reads the category RSS feed and maps items onto Post. The
// numeric ID comes from the ?p= query of the GUID, so only items with a
// default-permalink GUID survive the mapping.
func (c *Client) PostsFromFeed(ctx context.Context, slug string) ([]Post, error) {
	feedURL := fmt.Sprintf("%s/category/%s/feed/", c.baseURL, url.PathEscape(slug))

	body, err := c.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var posts []Post
	for _, item := range feed.Items {
		id, ok := guidPostID(item.GUID)
		if !ok {
			c.log.Debug("feed item without numeric guid, skipping", "guid", item.GUID)
			continue
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}

		posts = append(posts, Post{
			ID:      id,
			Slug:    slugFromLink(item.Link),
			Date:    item.Published,
			Link:    item.Link,
			Title:   RenderedField{Rendered: item.Title},
			Content: RenderedField{Rendered: content},
		})
	}
	return posts, nil
}

// Get fetches a URL with the client's retry policy and returns the body.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	err := retry.Do(ctx, c.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: %s", ErrStatusNotOK, resp.Status)
		}

		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// guidPostID extracts the post ID from a default-permalink GUID
// like https://example.com/?p=123.
func guidPostID(guid string) (int, bool) {
	u, err := url.Parse(guid)
	if err != nil {
		return 0, false
	}
	p := u.Query().Get("p")
	if p == "" {
		return 0, false
	}
	id, err := strconv.Atoi(p)
	if err != nil {
		return 0, false
	}
	return id, true
}

// slugFromLink takes the last non-empty path segment of the post link.
func slugFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	segs := []rune(u.Path)
	// trim trailing slash
	for len(segs) > 0 && segs[len(segs)-1] == '/' {
		segs = segs[:len(segs)-1]
	}
	path := string(segs)
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
