package translate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// googleProvider uses the public gtx endpoint. Free, no key, and good
// enough for news prose; the paid providers only run when it fails.
type googleProvider struct {
	http   *http.Client
	region string
}

func newGoogleProvider(region string, timeout time.Duration) *googleProvider {
	return &googleProvider{
		http:   &http.Client{Timeout: timeout},
		region: strings.ToLower(region),
	}
}

func (g *googleProvider) Name() string { return "google" }

func (g *googleProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", from)
	params.Set("tl", to)
	params.Set("dt", "t")
	if g.region != "" {
		params.Set("hl", g.region)
	}
	params.Set("q", text)

	endpoint := "https://translate.googleapis.com/translate_a/single?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return parseGoogleResponse(body)
}

// parseGoogleResponse walks the nested-array response; the first element
// holds [translatedPart, originalPart, ...] tuples.
func parseGoogleResponse(body []byte) (string, error) {
	var response []interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", err
	}
	if len(response) == 0 {
		return "", errors.New("empty response")
	}

	parts, ok := response[0].([]interface{})
	if !ok {
		return "", errors.New("unexpected response format")
	}

	var result strings.Builder
	for _, part := range parts {
		tuple, ok := part.([]interface{})
		if !ok || len(tuple) == 0 {
			continue
		}
		if s, ok := tuple[0].(string); ok {
			result.WriteString(s)
		}
	}
	return result.String(), nil
}
