// Package processor turns one segmented utterance into a transcript,
// per-language translations, and per-language synthesized audio, with
// bounded parallelism and transcript-before-audio ordering.
package processor

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/observe"
	"github.com/babelroom/babelroom/internal/roomcache"
	"github.com/babelroom/babelroom/pkg/audio"
	"github.com/babelroom/babelroom/pkg/provider/stt"
	"github.com/babelroom/babelroom/pkg/provider/translate"
	"github.com/babelroom/babelroom/pkg/provider/tts"
)

// preflightRMSFloor is the normalised RMS below which a segment is treated as
// silence and never reaches the STT backend.
const preflightRMSFloor = 0.001

// whisperNoSpeechCeiling drops transcripts whose backend reported a no-speech
// probability above it, independent of text length.
const whisperNoSpeechCeiling = 0.6

// Utterance is one detached audio segment handed over by a session.
type Utterance struct {
	Room           string
	SpeakerID      string
	SourceLanguage string
	Audio          []byte // s16le mono PCM

	// IsFinal is true when the segment was terminated by sentence end or
	// session end rather than by the buffer-full cap.
	IsFinal bool
}

// Translation is one successful translation of an utterance.
type Translation struct {
	TargetLanguage string
	Text           string
	ListenerIDs    []string
}

// Transcript is the first emission for an utterance.
type Transcript struct {
	ID             string
	SpeakerID      string
	Text           string
	SourceLanguage string
	Translations   []Translation
	IsFinal        bool
	TimestampMS    int64
	Confidence     float64
}

// Audio is one synthesized translation, bound to its transcript.
type Audio struct {
	TranscriptID   string
	TargetLanguage string
	ListenerIDs    []string
	Data           []byte
	Format         string
	SampleRate     int
	DurationMS     int
	SpeakerID      string
}

// Emitter receives pipeline output. The transcript for an utterance is always
// emitted before any of its audio; implementations must tolerate emissions
// after the originating stream has gone away.
type Emitter interface {
	EmitTranscript(ctx context.Context, t *Transcript)
	EmitAudio(ctx context.Context, a *Audio)
}

// Recorder archives finished transcripts. Recording failures never affect the
// pipeline.
type Recorder interface {
	RecordTranscript(ctx context.Context, room string, t *Transcript)
}

// Deps bundles the shared collaborators a room processor needs.
type Deps struct {
	Pipeline config.PipelineConfig
	Audio    config.AudioConfig

	Cache      *roomcache.Cache
	Pool       *Pool
	Filters    *TextFilters
	Transcribe stt.Transcriber
	Translate  translate.Translator
	Synthesize tts.Synthesizer
	Recorder   Recorder // optional
	Metrics    *observe.Metrics
	Now        func() time.Time // optional, for tests
}

// Processor runs the utterance pipeline for one room. Safe for concurrent use
// by every session in the room.
type Processor struct {
	room string
	deps Deps
	log  *slog.Logger
	now  func() time.Time
}

// NewProcessor builds the pipeline for one room.
func NewProcessor(room string, deps Deps) *Processor {
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		room: room,
		deps: deps,
		log:  slog.With("component", "processor", "room_id", room),
		now:  now,
	}
}

// ProcessAudio runs the full pipeline for one utterance: pre-flight gate,
// deduplicated STT, filler short-circuit, parallel translation fan-out,
// transcript emission, then parallel TTS fan-out. Each emission goes through
// em; a fully filtered utterance emits nothing.
func (p *Processor) ProcessAudio(ctx context.Context, utt Utterance, em Emitter) {
	start := p.now()
	m := p.deps.Metrics

	rms := audio.RMSNormalized(utt.Audio)
	dur := audio.Duration(len(utt.Audio), p.deps.Audio.SampleRate, p.deps.Audio.BytesPerSample)
	if rms < preflightRMSFloor {
		m.RecordDrop(ctx, "silent")
		observe.Debug(ctx, observe.CatPipeline, "segment below energy floor", "rms", rms)
		return
	}
	if dur < p.deps.Pipeline.MinAudioDuration() {
		m.RecordDrop(ctx, "short")
		observe.Debug(ctx, observe.CatPipeline, "segment too short", "duration", dur)
		return
	}

	sttStart := p.now()
	res, sttCached, err := p.deps.Cache.GetOrCreateSTT(ctx, utt.Room, utt.SpeakerID, utt.Audio, p.deps.Pipeline.STTTimeout(),
		func(cctx context.Context) (stt.Result, error) {
			return p.transcribeFiltered(cctx, utt, rms)
		})
	sttDur := p.now().Sub(sttStart)
	m.RecordStage(ctx, "stt", sttDur)
	if err != nil {
		m.RecordDrop(ctx, "stt_error")
		p.log.Warn("transcription failed", "speaker", utt.SpeakerID, "error", err)
		return
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		m.RecordDrop(ctx, "empty")
		return
	}

	transcript := &Transcript{
		ID:             uuid.NewString()[:8],
		SpeakerID:      utt.SpeakerID,
		Text:           text,
		SourceLanguage: utt.SourceLanguage,
		IsFinal:        utt.IsFinal,
		TimestampMS:    p.now().UnixMilli(),
		Confidence:     res.Confidence,
	}

	// Filler and single-character transcripts still reach the speaker's own
	// transcript feed, but nothing downstream.
	if p.deps.Filters.IsFiller(text) || utf8.RuneCountInString(text) <= 1 {
		m.UtterancesProcessed.Add(ctx, 1)
		observe.Debug(ctx, observe.CatPipeline, "filler short-circuit", "text", text)
		em.EmitTranscript(ctx, transcript)
		return
	}

	translateStart := p.now()
	transcript.Translations = p.fanOutTranslations(ctx, utt, text)
	translateDur := p.now().Sub(translateStart)

	m.UtterancesProcessed.Add(ctx, 1)
	em.EmitTranscript(ctx, transcript)
	if p.deps.Recorder != nil {
		p.deps.Recorder.RecordTranscript(ctx, utt.Room, transcript)
	}

	ttsStart := p.now()
	p.fanOutTTS(ctx, utt, transcript, em)
	ttsDur := p.now().Sub(ttsStart)

	total := p.now().Sub(start)
	m.UtteranceDuration.Record(ctx, total.Seconds())
	observe.Debug(ctx, observe.CatPipeline, "utterance complete",
		"transcript_id", transcript.ID,
		"speaker", utt.SpeakerID,
		"stt_ms", sttDur.Milliseconds(),
		"stt_cached", sttCached,
		"translate_ms", translateDur.Milliseconds(),
		"tts_ms", ttsDur.Milliseconds(),
		"total_ms", total.Milliseconds(),
		"translations", len(transcript.Translations),
	)
}

// transcribeFiltered runs the STT backend and applies the transcript
// post-filters. A filtered transcript comes back as an empty result, which
// the dedup cache stores so identical retransmissions stay cheap.
func (p *Processor) transcribeFiltered(ctx context.Context, utt Utterance, rms float64) (stt.Result, error) {
	res, err := p.deps.Transcribe.Transcribe(ctx, utt.Audio, utt.SourceLanguage)
	if err != nil {
		return stt.Result{}, err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return stt.Result{}, nil
	}
	if res.NoSpeechProb > whisperNoSpeechCeiling {
		p.deps.Metrics.RecordDrop(ctx, "no_speech")
		observe.Debug(ctx, observe.CatSTT, "no-speech transcript dropped", "prob", res.NoSpeechProb)
		return stt.Result{}, nil
	}
	if p.deps.Filters.IsArtifact(text) {
		p.deps.Metrics.RecordDrop(ctx, "artifact")
		observe.Debug(ctx, observe.CatSTT, "artifact transcript dropped", "text", text)
		return stt.Result{}, nil
	}
	if IsLowEnergyHallucination(text, rms, p.deps.Pipeline.HallucinationRMSThreshold, res.NoSpeechProb) {
		p.deps.Metrics.RecordDrop(ctx, "hallucination")
		observe.Debug(ctx, observe.CatSTT, "low-energy transcript dropped", "rms", rms, "text", text)
		return stt.Result{}, nil
	}
	res.Text = text
	return res, nil
}

// fanOutTranslations translates text to every listener language in the room
// other than the source, one pool task per target. Failed targets are simply
// omitted. Results are sorted by language so the transcript payload is
// deterministic.
func (p *Processor) fanOutTranslations(ctx context.Context, utt Utterance, text string) []Translation {
	m := p.deps.Metrics

	var (
		mu      sync.Mutex
		results []Translation
		wg      sync.WaitGroup
	)
	for _, target := range p.deps.Cache.ListenerLanguages(utt.Room) {
		if target == utt.SourceLanguage {
			continue
		}
		ids := p.deps.Cache.ListenersForLanguage(utt.Room, target)
		if len(ids) == 0 {
			continue
		}
		target := target
		wg.Add(1)
		submitted := p.deps.Pool.Go(ctx, func() {
			defer wg.Done()
			start := p.now()
			translated, _, err := p.deps.Cache.GetOrCreateTranslation(ctx, utt.Room, utt.SourceLanguage, target, text, p.deps.Pipeline.TranslationTimeout(),
				func(cctx context.Context) (string, error) {
					return p.deps.Translate.Translate(cctx, text, utt.SourceLanguage, target)
				})
			m.RecordStage(ctx, "translate", p.now().Sub(start))
			if err != nil {
				m.RecordFanoutTask(ctx, "translate", "error")
				p.log.Warn("translation failed", "target", target, "error", err)
				return
			}
			if strings.TrimSpace(translated) == "" {
				m.RecordFanoutTask(ctx, "translate", "skipped")
				return
			}
			m.RecordFanoutTask(ctx, "translate", "ok")
			mu.Lock()
			results = append(results, Translation{TargetLanguage: target, Text: translated, ListenerIDs: ids})
			mu.Unlock()
		})
		if submitted != nil {
			wg.Done()
			m.RecordFanoutTask(ctx, "translate", "skipped")
		}
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].TargetLanguage < results[j].TargetLanguage })
	return results
}

// fanOutTTS synthesizes each translation that passes the synthesis gate, one
// pool task per target, and emits audio as each task finishes. Order across
// targets is unspecified; every emission carries the transcript id.
func (p *Processor) fanOutTTS(ctx context.Context, utt Utterance, transcript *Transcript, em Emitter) {
	m := p.deps.Metrics

	var wg sync.WaitGroup
	for _, tr := range transcript.Translations {
		trimmed := strings.TrimSpace(tr.Text)
		if utf8.RuneCountInString(trimmed) < p.deps.Pipeline.MinTTSTextLength || p.deps.Filters.IsFiller(trimmed) {
			m.RecordFanoutTask(ctx, "tts", "skipped")
			continue
		}
		tr := tr
		wg.Add(1)
		submitted := p.deps.Pool.Go(ctx, func() {
			defer wg.Done()
			start := p.now()
			res, _, err := p.deps.Cache.GetOrCreateTTS(ctx, utt.Room, tr.TargetLanguage, trimmed, p.deps.Pipeline.TTSTimeout(),
				func(cctx context.Context) (tts.Result, error) {
					return p.deps.Synthesize.Synthesize(cctx, trimmed, tr.TargetLanguage)
				})
			m.RecordStage(ctx, "tts", p.now().Sub(start))
			if err != nil {
				m.RecordFanoutTask(ctx, "tts", "error")
				p.log.Warn("synthesis failed", "target", tr.TargetLanguage, "error", err)
				return
			}
			if len(res.Audio) == 0 {
				m.RecordFanoutTask(ctx, "tts", "skipped")
				return
			}
			m.RecordFanoutTask(ctx, "tts", "ok")
			em.EmitAudio(ctx, &Audio{
				TranscriptID:   transcript.ID,
				TargetLanguage: tr.TargetLanguage,
				ListenerIDs:    tr.ListenerIDs,
				Data:           res.Audio,
				Format:         tts.Format,
				SampleRate:     tts.SampleRate,
				DurationMS:     res.DurationMS,
				SpeakerID:      utt.SpeakerID,
			})
		})
		if submitted != nil {
			wg.Done()
			m.RecordFanoutTask(ctx, "tts", "skipped")
		}
	}
	wg.Wait()
}
