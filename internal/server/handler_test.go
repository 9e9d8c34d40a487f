package server

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/observe"
	"github.com/babelroom/babelroom/internal/processor"
	"github.com/babelroom/babelroom/internal/roomcache"
	"github.com/babelroom/babelroom/internal/session"
	"github.com/babelroom/babelroom/pkg/provider/stt"
	sttmock "github.com/babelroom/babelroom/pkg/provider/stt/mock"
	translatemock "github.com/babelroom/babelroom/pkg/provider/translate/mock"
	ttsmock "github.com/babelroom/babelroom/pkg/provider/tts/mock"
)

// fakeStream drives StreamChat without a network: requests come from a
// channel, responses accumulate in order.
type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
	in  chan *ChatRequest

	mu  sync.Mutex
	out []*ChatResponse
}

func newFakeStream() *fakeStream {
	return &fakeStream{ctx: context.Background(), in: make(chan *ChatRequest, 64)}
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func (f *fakeStream) Send(r *ChatResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.out = append(f.out, r)
	return nil
}

func (f *fakeStream) Recv() (*ChatRequest, error) {
	r, ok := <-f.in
	if !ok {
		return nil, io.EOF
	}
	return r, nil
}

func (f *fakeStream) responses() []*ChatResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ChatResponse(nil), f.out...)
}

type testService struct {
	svc      *Service
	registry *session.Registry
	manager  *processor.Manager
	cache    *roomcache.Cache
	stt      *sttmock.Transcriber
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	cfg := config.Default()
	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	cache := roomcache.New(cfg.Cache, roomcache.WithMetrics(metrics))
	sttMock := &sttmock.Transcriber{Result: stt.Result{Text: "안녕하세요 반갑습니다", Confidence: 0.9}}
	manager := processor.NewManager(processor.Deps{
		Pipeline:   cfg.Pipeline,
		Audio:      cfg.Audio,
		Cache:      cache,
		Pool:       processor.NewPool(cfg.Pipeline.ParallelWorkers),
		Filters:    processor.NewTextFilters(cfg.Filters.FillerWords, cfg.Filters.ArtifactPatterns),
		Transcribe: sttMock,
		Translate:  &translatemock.Translator{},
		Synthesize: &ttsmock.Synthesizer{},
		Metrics:    metrics,
	})
	registry := session.NewRegistry(metrics)
	return &testService{
		svc:      NewService(cfg, registry, manager, cache),
		registry: registry,
		manager:  manager,
		cache:    cache,
		stt:      sttMock,
	}
}

// speech builds 16 kHz s16le audio loud enough for the default VAD.
func speech(d time.Duration) []byte {
	n := int(16000 * d.Seconds())
	out := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		s := int16(8000)
		if i%2 == 1 {
			s = -8000
		}
		out = append(out, byte(uint16(s)), byte(uint16(s)>>8))
	}
	return out
}

func initRequest(sessionID, room string) *ChatRequest {
	return &ChatRequest{
		SessionID:     sessionID,
		RoomID:        room,
		ParticipantID: "speaker",
		SessionInit: &SessionInit{
			Speaker: SpeakerInfo{ParticipantID: "speaker", Nickname: "Minho", SourceLanguage: "ko"},
			Participants: []ParticipantInfo{
				{ParticipantID: "alice", TargetLanguage: "en", TranslationEnabled: true},
			},
		},
	}
}

func TestStreamChatSessionLifecycle(t *testing.T) {
	ts := newTestService(t)
	stream := newFakeStream()

	stream.in <- initRequest("s1", "r1")
	// Five half-second chunks hit the 2.5 s hard cap on the last one.
	for i := 0; i < 5; i++ {
		stream.in <- &ChatRequest{SessionID: "s1", RoomID: "r1", AudioChunk: speech(500 * time.Millisecond)}
	}
	stream.in <- &ChatRequest{SessionID: "s1", RoomID: "r1", SessionEnd: &SessionEnd{}}

	if err := ts.svc.StreamChat(stream); err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	out := stream.responses()
	if len(out) < 4 {
		t.Fatalf("responses = %d, want at least ready + transcript + audio + ended", len(out))
	}

	ready := out[0]
	if ready.Status == nil || ready.Status.Status != StatusReady {
		t.Fatalf("first response = %+v, want READY status", ready)
	}
	bs := ready.Status.BufferingStrategy
	if bs == nil || bs.Strategy != "SENTENCE_BASED" || bs.BufferSizeMS != 1500 || bs.PrimaryTargetLanguage != "en" {
		t.Errorf("buffering strategy = %+v", bs)
	}

	// Buffer-full transcript arrives before its audio.
	var transcript *TranscriptResult
	transcriptIdx, audioIdx := -1, -1
	for i, r := range out {
		if r.Transcript != nil && transcriptIdx < 0 {
			transcript = r.Transcript
			transcriptIdx = i
		}
		if r.Audio != nil && audioIdx < 0 {
			audioIdx = i
		}
	}
	if transcript == nil {
		t.Fatal("no transcript emitted")
	}
	if audioIdx >= 0 && audioIdx < transcriptIdx {
		t.Error("audio emitted before its transcript")
	}
	if transcript.OriginalText != "안녕하세요 반갑습니다" || transcript.OriginalLanguage != "ko" {
		t.Errorf("transcript = %+v", transcript)
	}
	if transcript.IsFinal || !transcript.IsPartial {
		t.Error("buffer-full transcript must be partial, not final")
	}
	if transcript.Speaker.ParticipantID != "speaker" {
		t.Errorf("transcript speaker = %+v", transcript.Speaker)
	}

	last := out[len(out)-1]
	if last.Status == nil || last.Status.Status != StatusEnded {
		t.Errorf("last response = %+v, want ENDED status", last)
	}

	if ts.registry.Len() != 0 {
		t.Errorf("registry holds %d sessions after end", ts.registry.Len())
	}
	if ts.manager.Rooms() != 0 {
		t.Errorf("manager holds %d rooms after last session left", ts.manager.Rooms())
	}
}

func TestStreamChatSessionEndFlushesBuffer(t *testing.T) {
	ts := newTestService(t)
	stream := newFakeStream()

	stream.in <- initRequest("s1", "r1")
	// Half a second of speech stays buffered: below the hard cap, no silence.
	stream.in <- &ChatRequest{SessionID: "s1", RoomID: "r1", AudioChunk: speech(480 * time.Millisecond)}
	stream.in <- &ChatRequest{SessionID: "s1", RoomID: "r1", SessionEnd: &SessionEnd{}}

	if err := ts.svc.StreamChat(stream); err != nil {
		t.Fatalf("StreamChat: %v", err)
	}

	var transcript *TranscriptResult
	sawAudio := false
	for _, r := range stream.responses() {
		if r.Transcript != nil {
			transcript = r.Transcript
		}
		if r.Audio != nil {
			sawAudio = true
			if transcript == nil {
				t.Fatal("audio before transcript")
			}
			if r.Audio.TranscriptID != transcript.ID {
				t.Errorf("audio transcript id = %q, want %q", r.Audio.TranscriptID, transcript.ID)
			}
			if r.Audio.Format != "mp3" || r.Audio.SampleRate != 24000 {
				t.Errorf("audio format = %s/%d", r.Audio.Format, r.Audio.SampleRate)
			}
		}
	}
	if transcript == nil {
		t.Fatal("session end did not flush the buffer")
	}
	if !transcript.IsFinal {
		t.Error("flushed transcript must be final")
	}
	if !sawAudio {
		t.Error("no audio for the flushed transcript")
	}
	if ts.registry.Len() != 0 {
		t.Error("session still registered after end")
	}
}

func TestStreamChatRejectsMissingInit(t *testing.T) {
	ts := newTestService(t)
	stream := newFakeStream()
	stream.in <- &ChatRequest{SessionID: "s1", RoomID: "r1", AudioChunk: speech(100 * time.Millisecond)}

	err := ts.svc.StreamChat(stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("error = %v, want InvalidArgument", err)
	}
}

func TestStreamChatRejectsMissingRoom(t *testing.T) {
	ts := newTestService(t)
	stream := newFakeStream()
	req := initRequest("s1", "")
	stream.in <- req

	err := ts.svc.StreamChat(stream)
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("error = %v, want InvalidArgument", err)
	}
}

func TestStreamChatTransportCloseDeregisters(t *testing.T) {
	ts := newTestService(t)
	stream := newFakeStream()
	stream.in <- initRequest("s1", "r1")
	close(stream.in)

	if err := ts.svc.StreamChat(stream); err != nil {
		t.Fatalf("StreamChat on transport close: %v", err)
	}
	if ts.registry.Len() != 0 {
		t.Error("session still registered after transport close")
	}
}

func TestStreamChatRegistersListeners(t *testing.T) {
	ts := newTestService(t)
	stream := newFakeStream()
	stream.in <- initRequest("s1", "r1")

	served := make(chan error, 1)
	go func() { served <- ts.svc.StreamChat(stream) }()

	// Wait for the READY response; the listener registration precedes it.
	deadline := time.Now().Add(2 * time.Second)
	for len(stream.responses()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no READY response")
		}
		time.Sleep(time.Millisecond)
	}
	if got := ts.cache.ListenersForLanguage("r1", "en"); len(got) != 1 || got[0] != "alice" {
		t.Errorf("listeners during session = %v, want [alice]", got)
	}

	close(stream.in)
	if err := <-served; err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if got := ts.cache.ListenersForLanguage("r1", "en"); got != nil {
		t.Errorf("listeners after room release = %v, want nil", got)
	}
}

func TestUpdateParticipantSettings(t *testing.T) {
	ts := newTestService(t)
	cfg := config.Default()
	sess := session.New("s1", "r1",
		session.SpeakerInfo{ParticipantID: "speaker", SourceLanguage: "ko"},
		[]session.ParticipantInfo{{ParticipantID: "alice", TargetLanguage: "en", TranslationEnabled: true}},
		cfg.Audio, cfg.VAD)
	ts.registry.Add(sess)
	ts.cache.RegisterListener("r1", "alice", "en")

	resp, err := ts.svc.UpdateParticipantSettings(context.Background(), &UpdateParticipantSettingsRequest{
		RoomID: "r1", ParticipantID: "alice", TargetLanguage: "ja", TranslationEnabled: true,
	})
	if err != nil || !resp.Success {
		t.Fatalf("update = %+v, %v", resp, err)
	}
	if got := ts.cache.ListenersForLanguage("r1", "ja"); len(got) != 1 || got[0] != "alice" {
		t.Errorf("ja listeners = %v, want [alice]", got)
	}
	if got := ts.cache.ListenersForLanguage("r1", "en"); got != nil {
		t.Errorf("en listeners = %v, want nil after move", got)
	}

	// Disabling removes the listener registration.
	resp, err = ts.svc.UpdateParticipantSettings(context.Background(), &UpdateParticipantSettingsRequest{
		RoomID: "r1", ParticipantID: "alice", TargetLanguage: "ja", TranslationEnabled: false,
	})
	if err != nil || !resp.Success {
		t.Fatalf("disable = %+v, %v", resp, err)
	}
	if got := ts.cache.ListenersForLanguage("r1", "ja"); got != nil {
		t.Errorf("ja listeners after disable = %v, want nil", got)
	}

	// Unknown room succeeds at the RPC level but reports no sessions.
	resp, err = ts.svc.UpdateParticipantSettings(context.Background(), &UpdateParticipantSettingsRequest{
		RoomID: "ghost", ParticipantID: "alice", TargetLanguage: "en", TranslationEnabled: true,
	})
	if err != nil || resp.Success {
		t.Errorf("unknown room = %+v, %v, want success=false", resp, err)
	}

	// Missing identifiers are rejected.
	if _, err := ts.svc.UpdateParticipantSettings(context.Background(), &UpdateParticipantSettingsRequest{}); status.Code(err) != codes.InvalidArgument {
		t.Errorf("error = %v, want InvalidArgument", err)
	}
}
