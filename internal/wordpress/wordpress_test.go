package wordpress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gotest.tools/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(baseURL string) *Client {
	return NewClient(baseURL, 5*time.Second, 2, 0, testLogger())
}

func restHandler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slug") != "national" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[{"id": 7, "slug": "national"}]`)
	})
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("categories"))
		fmt.Fprint(w, `[
			{"id": 102, "slug": "second", "date": "2024-05-02T10:00:00",
			 "link": "https://example.com/second/",
			 "title": {"rendered": "Second &#8211; post"},
			 "content": {"rendered": "<p>Body two</p>"}},
			{"id": 101, "slug": "first", "date": "2024-05-01T10:00:00",
			 "link": "https://example.com/first/",
			 "title": {"rendered": "First post"},
			 "content": {"rendered": "<p>Body one</p>"},
			 "_embedded": {"wp:featuredmedia": [{"source_url": "https://cdn.example.com/f.jpg"}]}}
		]`)
	})
	return mux
}

func TestClient_CategoryID(t *testing.T) {
	server := httptest.NewServer(restHandler(t))
	defer server.Close()
	client := newTestClient(server.URL)

	t.Run("known slug", func(t *testing.T) {
		id, err := client.CategoryID(context.Background(), "national")
		assert.NilError(t, err)
		assert.Equal(t, 7, id)
	})

	t.Run("unknown slug", func(t *testing.T) {
		_, err := client.CategoryID(context.Background(), "missing")
		assert.Assert(t, errors.Is(err, ErrCategoryNotFound))
	})
}

func TestClient_Posts(t *testing.T) {
	server := httptest.NewServer(restHandler(t))
	defer server.Close()
	client := newTestClient(server.URL)

	posts, err := client.Posts(context.Background(), 7, 20)
	assert.NilError(t, err)
	assert.Equal(t, 2, len(posts))
	assert.Equal(t, 102, posts[0].ID)
	assert.Equal(t, "<p>Body two</p>", posts[0].Content.Rendered)
	assert.Assert(t, posts[1].Embedded != nil)
	assert.Equal(t, "https://cdn.example.com/f.jpg", posts[1].Embedded.FeaturedMedia[0].SourceURL)
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	failures := 1
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures > 0 {
			failures--
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "payload")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	body, err := client.Get(context.Background(), server.URL+"/anything")
	assert.NilError(t, err)
	assert.Equal(t, "payload", string(body))
}

func TestClient_GetExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Get(context.Background(), server.URL+"/anything")
	assert.Assert(t, errors.Is(err, ErrStatusNotOK))
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>National</title>
	<item>
		<title>Feed post one</title>
		<link>https://example.com/feed-post-one/</link>
		<guid isPermaLink="false">https://example.com/?p=201</guid>
		<pubDate>Wed, 01 May 2024 10:00:00 +0000</pubDate>
		<description>&lt;p&gt;Summary one&lt;/p&gt;</description>
	</item>
	<item>
		<title>No numeric guid</title>
		<link>https://example.com/odd/</link>
		<guid isPermaLink="true">https://example.com/odd/</guid>
	</item>
</channel></rss>`

func TestClient_PostsFromFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/category/national/feed/", r.URL.Path)
		fmt.Fprint(w, sampleFeed)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	posts, err := client.PostsFromFeed(context.Background(), "national")
	assert.NilError(t, err)

	// The item without a ?p= GUID is dropped.
	assert.Equal(t, 1, len(posts))
	assert.Equal(t, 201, posts[0].ID)
	assert.Equal(t, "feed-post-one", posts[0].Slug)
	assert.Equal(t, "Feed post one", posts[0].Title.Rendered)
	assert.Equal(t, "<p>Summary one</p>", posts[0].Content.Rendered)
}

func TestGuidPostID(t *testing.T) {
	id, ok := guidPostID("https://example.com/?p=123")
	assert.Assert(t, ok)
	assert.Equal(t, 123, id)

	_, ok = guidPostID("https://example.com/some-slug/")
	assert.Assert(t, !ok)

	_, ok = guidPostID("https://example.com/?p=abc")
	assert.Assert(t, !ok)
}

func TestSlugFromLink(t *testing.T) {
	assert.Equal(t, "my-post", slugFromLink("https://example.com/2024/05/my-post/"))
	assert.Equal(t, "my-post", slugFromLink("https://example.com/my-post"))
	assert.Equal(t, "", slugFromLink("https://example.com/"))
}
