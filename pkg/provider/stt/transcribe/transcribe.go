// Package transcribe provides a speech-to-text backend over Amazon
// Transcribe streaming. Each call opens one streaming session, pushes the
// segment through it, and joins the final results.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming"
	"github.com/aws/aws-sdk-go-v2/service/transcribestreaming/types"

	"github.com/babelroom/babelroom/pkg/provider/stt"
)

const (
	sampleRate = 16000

	// chunkBytes is how much PCM goes into one audio event: 100 ms.
	chunkBytes = 3200
)

var languageCodes = map[string]types.LanguageCode{
	"ko": types.LanguageCodeKoKr,
	"en": types.LanguageCodeEnUs,
	"ja": types.LanguageCodeJaJp,
	"zh": types.LanguageCodeZhCn,
	"es": types.LanguageCodeEsEs,
	"fr": types.LanguageCodeFrFr,
	"de": types.LanguageCodeDeDe,
	"pt": types.LanguageCodePtBr,
	"it": types.LanguageCodeItIt,
	"ar": types.LanguageCodeArSa,
	"hi": types.LanguageCodeHiIn,
}

// Compile-time assertion that Transcriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*Transcriber)(nil)

// Transcriber sends segments to Amazon Transcribe streaming.
type Transcriber struct {
	client *transcribestreaming.Client
}

// New builds the backend from a shared AWS config.
func New(cfg aws.Config) *Transcriber {
	return &Transcriber{client: transcribestreaming.NewFromConfig(cfg)}
}

// Transcribe streams the segment and collects the final transcript events.
// Unmapped languages fall back to US English.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, language string) (stt.Result, error) {
	langCode, ok := languageCodes[language]
	if !ok {
		langCode = types.LanguageCodeEnUs
	}

	resp, err := t.client.StartStreamTranscription(ctx, &transcribestreaming.StartStreamTranscriptionInput{
		LanguageCode:         langCode,
		MediaEncoding:        types.MediaEncodingPcm,
		MediaSampleRateHertz: aws.Int32(sampleRate),
	})
	if err != nil {
		return stt.Result{}, fmt.Errorf("transcribe: start stream: %w", err)
	}
	stream := resp.GetStream()
	defer stream.Close()

	// Feed audio from its own goroutine so event reading below never blocks
	// the writer.
	sendErr := make(chan error, 1)
	go func() {
		defer close(sendErr)
		for off := 0; off < len(pcm); off += chunkBytes {
			end := off + chunkBytes
			if end > len(pcm) {
				end = len(pcm)
			}
			event := &types.AudioStreamMemberAudioEvent{
				Value: types.AudioEvent{AudioChunk: pcm[off:end]},
			}
			if err := stream.Send(ctx, event); err != nil {
				sendErr <- fmt.Errorf("transcribe: send audio: %w", err)
				return
			}
		}
		if err := stream.Writer.Close(); err != nil {
			sendErr <- fmt.Errorf("transcribe: close writer: %w", err)
		}
	}()

	var (
		parts      []string
		confidence float64
		items      int
	)
	for event := range stream.Events() {
		te, ok := event.(*types.TranscriptResultStreamMemberTranscriptEvent)
		if !ok || te.Value.Transcript == nil {
			continue
		}
		for _, result := range te.Value.Transcript.Results {
			if result.IsPartial || len(result.Alternatives) == 0 {
				continue
			}
			alt := result.Alternatives[0]
			if text := strings.TrimSpace(aws.ToString(alt.Transcript)); text != "" {
				parts = append(parts, text)
			}
			for _, item := range alt.Items {
				if item.Confidence != nil {
					confidence += *item.Confidence
					items++
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return stt.Result{}, fmt.Errorf("transcribe: stream: %w", err)
	}
	if err := <-sendErr; err != nil {
		return stt.Result{}, err
	}

	res := stt.Result{Text: strings.Join(parts, " "), Confidence: 1}
	if items > 0 {
		res.Confidence = confidence / float64(items)
	}
	return res, nil
}

// Close is a no-op; sessions are per call.
func (t *Transcriber) Close() error { return nil }
