// Package whisper provides a speech-to-text backend over the whisper.cpp CGO
// bindings. The whisper.cpp static library (libwhisper.a) and headers
// (whisper.h) must be available at link time via LIBRARY_PATH and
// C_INCLUDE_PATH.
//
// The model is loaded once and shared; each Transcribe call runs on a fresh
// whisper context, so concurrent calls are safe.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/babelroom/babelroom/pkg/audio"
	"github.com/babelroom/babelroom/pkg/provider/stt"
)

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber runs batch inference against one loaded whisper.cpp model.
type Transcriber struct {
	model whisperlib.Model
	name  string
}

// New loads the ggml model at modelPath. Call Close to release it.
func New(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: model path must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}
	return &Transcriber{model: model, name: modelPath}, nil
}

// Transcribe converts s16le mono PCM at 16 kHz to text in the given language.
// Multilingual models honour the language hint; monolingual models ignore it.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, language string) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	samples := audio.Float32(pcm)
	if len(samples) == 0 {
		return stt.Result{}, nil
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if language != "" && t.model.IsMultilingual() {
		if err := wctx.SetLanguage(language); err != nil {
			return stt.Result{}, fmt.Errorf("whisper: set language %q: %w", language, err)
		}
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if s := strings.TrimSpace(segment.Text); s != "" {
			parts = append(parts, s)
		}
	}

	return stt.Result{Text: strings.Join(parts, " "), Confidence: 1}, nil
}

// Close releases the model.
func (t *Transcriber) Close() error {
	if t.model != nil {
		return t.model.Close()
	}
	return nil
}

// String names the loaded model, for logs.
func (t *Transcriber) String() string {
	return "whisper:" + t.name
}
