// Package sherpa provides a speech-to-text backend over sherpa-onnx offline
// recognition. The model directory must contain encoder.onnx, decoder.onnx,
// and tokens.txt exported in sherpa's whisper layout.
package sherpa

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/babelroom/babelroom/pkg/audio"
	"github.com/babelroom/babelroom/pkg/provider/stt"
)

const sampleRate = 16000

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber runs batch inference against one sherpa-onnx offline
// recognizer. The underlying recognizer is not thread-safe, so calls are
// serialized with a mutex.
type Transcriber struct {
	mu         sync.Mutex
	recognizer *sherpa.OfflineRecognizer
	name       string
}

// New builds a recognizer from the model directory. The language hint is
// baked into the recognizer, so multilingual routing uses one Transcriber per
// language.
func New(modelDir, language string) (*Transcriber, error) {
	if modelDir == "" {
		return nil, errors.New("sherpa: model dir must not be empty")
	}

	cfg := &sherpa.OfflineRecognizerConfig{}
	cfg.ModelConfig.Whisper.Encoder = filepath.Join(modelDir, "encoder.onnx")
	cfg.ModelConfig.Whisper.Decoder = filepath.Join(modelDir, "decoder.onnx")
	cfg.ModelConfig.Whisper.Language = language
	cfg.ModelConfig.Whisper.Task = "transcribe"
	cfg.ModelConfig.Whisper.TailPaddings = -1
	cfg.ModelConfig.Tokens = filepath.Join(modelDir, "tokens.txt")
	cfg.ModelConfig.NumThreads = 2
	cfg.DecodingMethod = "greedy_search"

	recognizer := sherpa.NewOfflineRecognizer(cfg)
	if recognizer == nil {
		return nil, fmt.Errorf("sherpa: create recognizer from %q", modelDir)
	}
	return &Transcriber{recognizer: recognizer, name: modelDir}, nil
}

// Transcribe converts s16le mono PCM at 16 kHz to text. The language argument
// is accepted for interface compatibility; the recognizer's configured
// language applies.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, _ string) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	samples := audio.Float32(pcm)
	if len(samples) == 0 {
		return stt.Result{}, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stream := sherpa.NewOfflineStream(t.recognizer)
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, samples)
	t.recognizer.Decode(stream)
	result := stream.GetResult()

	return stt.Result{Text: strings.TrimSpace(result.Text), Confidence: 1}, nil
}

// Close releases the recognizer.
func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(t.recognizer)
		t.recognizer = nil
	}
	return nil
}

// String names the loaded model, for logs.
func (t *Transcriber) String() string {
	return "sherpa:" + t.name
}
