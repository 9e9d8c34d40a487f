// Package session holds per-stream state: the speaker, the room roster, the
// audio buffer with its VAD-driven segmentation, and the process-wide session
// registry.
package session

import (
	"sort"
	"sync"
	"time"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/lang"
	"github.com/babelroom/babelroom/internal/vad"
)

// SpeakerInfo identifies the participant speaking on a stream.
type SpeakerInfo struct {
	ParticipantID  string
	Nickname       string
	ProfileImg     string
	SourceLanguage string
}

// ParticipantInfo describes one room member's translation preferences.
type ParticipantInfo struct {
	ParticipantID      string
	Nickname           string
	ProfileImg         string
	TargetLanguage     string
	TranslationEnabled bool
}

// DetachReason says why a buffer was detached for processing.
type DetachReason string

const (
	// DetachSentenceEnd means VAD declared a sentence boundary with enough
	// buffered audio.
	DetachSentenceEnd DetachReason = "sentence_end"

	// DetachBufferFull means the hard duration cap was hit mid-utterance.
	DetachBufferFull DetachReason = "buffer_full"

	// DetachSessionEnd means the stream is closing and the remainder was
	// flushed.
	DetachSessionEnd DetachReason = "session_end"
)

// Segment is one detached utterance ready for the room processor.
type Segment struct {
	Audio  []byte
	Reason DetachReason

	// IsFinal is false only for buffer-full detaches, where the utterance was
	// cut mid-sentence.
	IsFinal bool
}

// Buffering is the strategy advertised to the client on session ready.
type Buffering struct {
	SourceLanguage string
	PrimaryTarget  string
	Strategy       lang.Strategy
	BufferSizeMS   int
}

// Session is the state for one RPC stream. The ingestion path (Ingest, Flush)
// is called from the stream handler goroutine; settings updates may arrive
// concurrently from unary RPCs, so all state is guarded by one mutex.
type Session struct {
	ID   string
	Room string

	audioCfg config.AudioConfig

	mu           sync.Mutex
	speaker      SpeakerInfo
	participants map[string]ParticipantInfo
	buffering    Buffering
	buffer       []byte
	vad          *vad.Processor
	startedAt    time.Time
	chunks       int
	segments     int
}

// New builds the state for one stream and computes its buffering strategy.
func New(id, room string, speaker SpeakerInfo, participants []ParticipantInfo, audioCfg config.AudioConfig, vadCfg config.VADConfig, opts ...vad.Option) *Session {
	s := &Session{
		ID:           id,
		Room:         room,
		audioCfg:     audioCfg,
		speaker:      speaker,
		participants: make(map[string]ParticipantInfo, len(participants)),
		vad:          vad.New(audioCfg, vadCfg, opts...),
		startedAt:    time.Now(),
	}
	for _, p := range participants {
		s.participants[p.ParticipantID] = p
	}
	s.recomputeBuffering()
	return s
}

// Speaker returns the stream's speaker.
func (s *Session) Speaker() SpeakerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speaker
}

// Buffering returns the current strategy snapshot.
func (s *Session) Buffering() Buffering {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffering
}

// TargetLanguages returns the sorted set of target languages of
// translation-enabled participants, excluding the speaker's source language.
func (s *Session) TargetLanguages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetLanguagesLocked()
}

// Listeners returns the translation-enabled participants, for listener
// registration.
func (s *Session) Listeners() []ParticipantInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ParticipantInfo, 0, len(s.participants))
	for _, p := range s.participants {
		if p.TranslationEnabled && p.TargetLanguage != "" {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ParticipantID < out[j].ParticipantID })
	return out
}

// UpdateParticipant applies a settings change. Unknown participants are added
// to the roster; a room member may join after this stream started. The
// buffering strategy is recomputed and takes effect from the next utterance.
func (s *Session) UpdateParticipant(participantID, targetLang string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		p = ParticipantInfo{ParticipantID: participantID}
	}
	p.TargetLanguage = targetLang
	p.TranslationEnabled = enabled
	s.participants[participantID] = p
	s.recomputeBuffering()
}

// Ingest runs one inbound chunk through VAD, buffers its speech, and reports
// whether a segment detached. Detachment is atomic: the returned segment owns
// the buffered bytes and the session buffer starts empty.
func (s *Session) Ingest(chunk []byte) (Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks++

	hasSpeech, sentenceEnd := s.vad.ProcessChunk(chunk)
	if hasSpeech {
		s.buffer = append(s.buffer, s.vad.FilterSpeech(chunk)...)
	}

	if sentenceEnd && len(s.buffer) >= s.minSentenceBytes() {
		return s.detachLocked(DetachSentenceEnd, true), true
	}
	if len(s.buffer) >= s.audioCfg.SentenceMaxBytes() {
		s.vad.Reset()
		return s.detachLocked(DetachBufferFull, false), true
	}
	return Segment{}, false
}

// Flush detaches whatever the buffer holds at session end, provided it is long
// enough to be worth transcribing.
func (s *Session) Flush() (Segment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buffer) < s.minFlushBytes() {
		s.buffer = nil
		return Segment{}, false
	}
	return s.detachLocked(DetachSessionEnd, true), true
}

// Stats returns chunk and segment counts for the teardown log line.
func (s *Session) Stats() (chunks, segments int, uptime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks, s.segments, time.Since(s.startedAt)
}

func (s *Session) detachLocked(reason DetachReason, isFinal bool) Segment {
	seg := Segment{Audio: s.buffer, Reason: reason, IsFinal: isFinal}
	s.buffer = nil
	s.segments++
	return seg
}

// minSentenceBytes is the least buffered audio a sentence-end detach needs:
// half a second.
func (s *Session) minSentenceBytes() int {
	return s.audioCfg.BytesPerSecond() / 2
}

// minFlushBytes is the least buffered audio a session-end flush keeps: 300 ms.
func (s *Session) minFlushBytes() int {
	return s.audioCfg.BytesPerSecond() * 3 / 10
}

func (s *Session) targetLanguagesLocked() []string {
	set := make(map[string]struct{})
	for _, p := range s.participants {
		if p.TranslationEnabled && p.TargetLanguage != "" && p.TargetLanguage != s.speaker.SourceLanguage {
			set[p.TargetLanguage] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *Session) recomputeBuffering() {
	targets := s.targetLanguagesLocked()
	primary := ""
	if len(targets) > 0 {
		primary = targets[0]
	}
	strategy := lang.PrimaryStrategy(s.speaker.SourceLanguage, targets)
	s.buffering = Buffering{
		SourceLanguage: s.speaker.SourceLanguage,
		PrimaryTarget:  primary,
		Strategy:       strategy,
		BufferSizeMS:   lang.BufferSizeMS(strategy, s.audioCfg.ChunkDurationMS),
	}
}
