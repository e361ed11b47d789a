package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// geminiProvider is the last fallback in the chain.
type geminiProvider struct {
	client *genai.Client
}

func newGeminiProvider(apiKey string) (*geminiProvider, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiProvider{client: client}, nil
}

func (g *geminiProvider) Name() string { return "gemini" }

func (g *geminiProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	model := g.client.GenerativeModel("gemini-1.5-flash")

	prompt := fmt.Sprintf(`Translate this %s news text to %s, naturally and
without literalism. Do not translate proper names of brands or organizations.
Preserve paragraph breaks and any "|||" marker exactly.
Reply with the translation only.

%s`, langName(from), langName(to), text)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("empty candidate text")
	}
	return out, nil
}

// Close releases the underlying client.
func (g *geminiProvider) Close() {
	if g.client != nil {
		g.client.Close()
	}
}
