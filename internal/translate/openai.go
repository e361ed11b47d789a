package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// openaiProvider is the second link in the chain; costs tokens, so the
// budget usually caps it.
type openaiProvider struct {
	client *openai.Client
}

func newOpenAIProvider(apiKey string) *openaiProvider {
	return &openaiProvider{client: openai.NewClient(apiKey)}
}

func (o *openaiProvider) Name() string { return "openai" }

func (o *openaiProvider) Translate(ctx context.Context, text, from, to string) (string, error) {
	prompt := fmt.Sprintf(`Translate the following %s news text to %s.
Keep the meaning, tone and journalistic style of the original.
Preserve paragraph breaks and any "|||" marker exactly as they appear.
Reply with the translation only, no comments.

Text to translate:
%s`, langName(from), langName(to), text)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: openai.GPT4oMini,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// langName maps the codes seen in practice to names the models respond
// well to; unknown codes pass through as-is.
func langName(code string) string {
	names := map[string]string{
		"en": "English",
		"ru": "Russian",
		"uk": "Ukrainian",
		"de": "German",
		"th": "Thai",
		"da": "Danish",
		"es": "Spanish",
		"fr": "French",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
