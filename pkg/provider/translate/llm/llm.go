// Package llm provides translation through an OpenAI-compatible chat
// completion endpoint, for self-hosted models where Amazon Translate is not
// an option.
package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/babelroom/babelroom/pkg/provider/translate"
)

// languageNames spell out the codes for the prompt; models follow names more
// reliably than ISO codes.
var languageNames = map[string]string{
	"ko": "Korean",
	"en": "English",
	"ja": "Japanese",
	"zh": "Chinese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"ru": "Russian",
	"it": "Italian",
	"ar": "Arabic",
	"hi": "Hindi",
	"tr": "Turkish",
}

// thinkBlock strips reasoning traces some chat models prepend to output.
var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Compile-time assertion that Translator satisfies translate.Translator.
var _ translate.Translator = (*Translator)(nil)

// Translator translates text with one chat completion per call.
type Translator struct {
	client oai.Client
	model  string
}

// Option is a functional option for the Translator.
type Option func(*[]option.RequestOption)

// WithBaseURL points the client at a self-hosted endpoint.
func WithBaseURL(url string) Option {
	return func(opts *[]option.RequestOption) {
		*opts = append(*opts, option.WithBaseURL(url))
	}
}

// New builds the backend. apiKey may be empty for unauthenticated local
// endpoints.
func New(apiKey, model string, opts ...Option) (*Translator, error) {
	if model == "" {
		return nil, fmt.Errorf("llm: model must not be empty")
	}
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	for _, o := range opts {
		o(&reqOpts)
	}
	return &Translator{client: oai.NewClient(reqOpts...), model: model}, nil
}

// Translate converts text from sourceLang to targetLang. Empty text and
// same-language pairs pass through untouched.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || sourceLang == targetLang {
		return text, nil
	}

	src := languageName(sourceLang)
	dst := languageName(targetLang)
	system := fmt.Sprintf(
		"You are a professional real-time interpreter. Translate the user's %s utterance into natural spoken %s. Output only the translation, nothing else.",
		src, dst,
	)

	resp, err := t.client.Chat.Completions.New(ctx, oai.ChatCompletionNewParams{
		Model: shared.ChatModel(t.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(system),
			oai.UserMessage(text),
		},
		Temperature: param.NewOpt(0.3),
	})
	if err != nil {
		return "", fmt.Errorf("llm: %s to %s: %w", sourceLang, targetLang, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: %s to %s: empty response", sourceLang, targetLang)
	}

	out := thinkBlock.ReplaceAllString(resp.Choices[0].Message.Content, "")
	return strings.TrimSpace(out), nil
}

// Close is a no-op; the client holds no connections between calls.
func (t *Translator) Close() error { return nil }

func languageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}
