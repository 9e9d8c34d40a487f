// Package awstranslate provides translation over Amazon Translate.
package awstranslate

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awstranslate "github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/babelroom/babelroom/pkg/provider/translate"
)

// Compile-time assertion that Translator satisfies translate.Translator.
var _ translate.Translator = (*Translator)(nil)

// Translator translates text via Amazon Translate. The service accepts
// ISO 639-1 codes directly, so no mapping layer is needed.
type Translator struct {
	client *awstranslate.Client
}

// New builds the backend from a shared AWS config.
func New(cfg aws.Config) *Translator {
	return &Translator{client: awstranslate.NewFromConfig(cfg)}
}

// Translate converts text from sourceLang to targetLang. Empty text and
// same-language pairs pass through untouched.
func (t *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if text == "" || sourceLang == targetLang {
		return text, nil
	}

	out, err := t.client.TranslateText(ctx, &awstranslate.TranslateTextInput{
		Text:               aws.String(text),
		SourceLanguageCode: aws.String(sourceLang),
		TargetLanguageCode: aws.String(targetLang),
	})
	if err != nil {
		return "", fmt.Errorf("awstranslate: %s to %s: %w", sourceLang, targetLang, err)
	}
	return aws.ToString(out.TranslatedText), nil
}

// Close is a no-op; the client holds no connections between calls.
func (t *Translator) Close() error { return nil }
