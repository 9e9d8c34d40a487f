// Package polly provides speech synthesis over Amazon Polly. Output is MP3
// at 24 kHz in every language.
package polly

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/babelroom/babelroom/pkg/provider/tts"
)

// voice pairs a Polly voice with the engine it ships on. Neural voices where
// Polly has them, standard otherwise.
type voice struct {
	id     types.VoiceId
	engine types.Engine
}

var voices = map[string]voice{
	"ko": {"Seoyeon", types.EngineNeural},
	"en": {"Joanna", types.EngineNeural},
	"zh": {"Zhiyu", types.EngineNeural},
	"ja": {"Takumi", types.EngineNeural},
	"es": {"Lucia", types.EngineNeural},
	"fr": {"Lea", types.EngineNeural},
	"de": {"Vicki", types.EngineNeural},
	"pt": {"Camila", types.EngineNeural},
	"ru": {"Tatyana", types.EngineStandard},
	"ar": {"Zeina", types.EngineStandard},
	"hi": {"Aditi", types.EngineStandard},
	"tr": {"Filiz", types.EngineStandard},
}

// Compile-time assertion that Synthesizer satisfies tts.Synthesizer.
var _ tts.Synthesizer = (*Synthesizer)(nil)

// Synthesizer turns text into MP3 speech via Amazon Polly.
type Synthesizer struct {
	client *polly.Client
}

// New builds the backend from a shared AWS config.
func New(cfg aws.Config) *Synthesizer {
	return &Synthesizer{client: polly.NewFromConfig(cfg)}
}

// Synthesize renders text with the language's voice. Unmapped languages use
// the English voice. The duration is estimated from the MP3 byte length at
// the 24 kbit/s the configured sample rate produces.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) (tts.Result, error) {
	if text == "" {
		return tts.Result{}, nil
	}
	v, ok := voices[language]
	if !ok {
		v = voices["en"]
	}

	out, err := s.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      v.id,
		Engine:       v.engine,
		OutputFormat: types.OutputFormatMp3,
		SampleRate:   aws.String("24000"),
	})
	if err != nil {
		return tts.Result{}, fmt.Errorf("polly: synthesize %s: %w", language, err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return tts.Result{}, fmt.Errorf("polly: read audio stream: %w", err)
	}

	return tts.Result{
		Audio:      audio,
		DurationMS: len(audio) * 8 / 24,
	}, nil
}

// Close is a no-op; the client holds no connections between calls.
func (s *Synthesizer) Close() error { return nil }
