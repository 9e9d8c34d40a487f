// Package server exposes the speech-translation pipeline over gRPC: a
// bidirectional stream per speaker carrying audio in and transcripts plus
// synthesized translations out, and a unary settings RPC.
package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/observe"
	"github.com/babelroom/babelroom/internal/processor"
	"github.com/babelroom/babelroom/internal/roomcache"
	"github.com/babelroom/babelroom/internal/session"
)

// Service implements [TranslationServer] on top of the session registry, the
// room processors, and the room cache.
type Service struct {
	UnimplementedTranslationServer

	cfg      *config.Config
	registry *session.Registry
	manager  *processor.Manager
	cache    *roomcache.Cache
	log      *slog.Logger
}

// NewService wires the service to its collaborators.
func NewService(cfg *config.Config, registry *session.Registry, manager *processor.Manager, cache *roomcache.Cache) *Service {
	return &Service{
		cfg:      cfg,
		registry: registry,
		manager:  manager,
		cache:    cache,
		log:      slog.With("component", "server"),
	}
}

// StreamChat runs one speaker's session: init, audio ingestion with
// VAD-driven segmentation, processing of detached segments, and teardown.
// Responses for a segment are emitted before the next chunk is ingested, so
// per-session ordering follows processing order.
func (s *Service) StreamChat(stream Translation_StreamChatServer) error {
	ctx := stream.Context()

	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.SessionInit == nil {
		return status.Error(codes.InvalidArgument, "first message must be session_init")
	}
	if first.RoomID == "" {
		return status.Error(codes.InvalidArgument, "room_id is required")
	}

	sess := s.initSession(first)
	defer s.teardown(sess)

	em := &streamEmitter{
		stream:    stream,
		sessionID: sess.ID,
		roomID:    sess.Room,
		speaker:   speakerToWire(sess.Speaker()),
		log:       s.log,
	}
	em.sendStatus(StatusReady, "session ready", sess.Buffering())

	proc := s.manager.Room(sess.Room)
	s.log.Info("session started",
		"session_id", sess.ID,
		"room_id", sess.Room,
		"speaker", sess.Speaker().ParticipantID,
		"source_language", sess.Speaker().SourceLanguage,
		"strategy", sess.Buffering().Strategy,
	)

	for {
		req, err := stream.Recv()
		if err != nil {
			// Transport close: stop ingesting, leave in-flight work behind.
			observe.Debug(ctx, observe.CatSession, "stream closed", "session_id", sess.ID, "error", err)
			return nil
		}

		switch {
		case req.SessionEnd != nil:
			if seg, ok := sess.Flush(); ok {
				proc.ProcessAudio(ctx, s.utterance(sess, seg), em)
			}
			em.sendStatus(StatusEnded, "session ended", session.Buffering{})
			return nil

		case len(req.AudioChunk) > 0:
			if seg, ok := sess.Ingest(req.AudioChunk); ok {
				observe.Debug(ctx, observe.CatSession, "segment detached",
					"session_id", sess.ID, "reason", seg.Reason, "bytes", len(seg.Audio))
				proc.ProcessAudio(ctx, s.utterance(sess, seg), em)
			}

		case req.SessionInit != nil:
			em.sendError("duplicate_init", "session already initialised")

		default:
			em.sendError("empty_request", "request carries no payload")
		}
	}
}

// UpdateParticipantSettings changes one participant's target language or
// enablement across every live session in the room. The listener registry
// follows the setting so fan-out of the next utterance sees it.
func (s *Service) UpdateParticipantSettings(ctx context.Context, req *UpdateParticipantSettingsRequest) (*ParticipantSettingsResponse, error) {
	if req.RoomID == "" || req.ParticipantID == "" {
		return nil, status.Error(codes.InvalidArgument, "room_id and participant_id are required")
	}

	ok := s.registry.UpdateParticipantSettings(req.RoomID, req.ParticipantID, req.TargetLanguage, req.TranslationEnabled)
	if !ok {
		return &ParticipantSettingsResponse{Success: false, Message: "no active sessions in room"}, nil
	}

	if req.TranslationEnabled && req.TargetLanguage != "" {
		s.cache.RegisterListener(req.RoomID, req.ParticipantID, req.TargetLanguage)
	} else {
		s.cache.UnregisterListener(req.RoomID, req.ParticipantID)
	}

	observe.Debug(ctx, observe.CatSession, "participant settings updated",
		"room_id", req.RoomID,
		"participant", req.ParticipantID,
		"target_language", req.TargetLanguage,
		"enabled", req.TranslationEnabled,
	)
	return &ParticipantSettingsResponse{Success: true}, nil
}

func (s *Service) initSession(first *ChatRequest) *session.Session {
	id := first.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	init := first.SessionInit

	participants := make([]session.ParticipantInfo, 0, len(init.Participants))
	for _, p := range init.Participants {
		participants = append(participants, session.ParticipantInfo{
			ParticipantID:      p.ParticipantID,
			Nickname:           p.Nickname,
			ProfileImg:         p.ProfileImg,
			TargetLanguage:     p.TargetLanguage,
			TranslationEnabled: p.TranslationEnabled,
		})
	}
	speaker := session.SpeakerInfo{
		ParticipantID:  init.Speaker.ParticipantID,
		Nickname:       init.Speaker.Nickname,
		ProfileImg:     init.Speaker.ProfileImg,
		SourceLanguage: init.Speaker.SourceLanguage,
	}

	sess := session.New(id, first.RoomID, speaker, participants, s.cfg.Audio, s.cfg.VAD)
	s.registry.Add(sess)
	for _, p := range sess.Listeners() {
		s.cache.RegisterListener(sess.Room, p.ParticipantID, p.TargetLanguage)
	}
	return sess
}

func (s *Service) teardown(sess *session.Session) {
	if s.registry.Remove(sess.ID) == nil {
		return
	}
	chunks, segments, uptime := sess.Stats()
	s.log.Info("session ended",
		"session_id", sess.ID,
		"room_id", sess.Room,
		"chunks", chunks,
		"segments", segments,
		"uptime", uptime,
	)
	if s.registry.RoomCount(sess.Room) == 0 {
		s.manager.Release(sess.Room)
	}
}

func (s *Service) utterance(sess *session.Session, seg session.Segment) processor.Utterance {
	speaker := sess.Speaker()
	return processor.Utterance{
		Room:           sess.Room,
		SpeakerID:      speaker.ParticipantID,
		SourceLanguage: speaker.SourceLanguage,
		Audio:          seg.Audio,
		IsFinal:        seg.IsFinal,
	}
}

// streamEmitter adapts the RPC stream to [processor.Emitter]. Send errors are
// logged and swallowed: a closed stream drops late emissions.
type streamEmitter struct {
	mu        sync.Mutex
	stream    Translation_StreamChatServer
	sessionID string
	roomID    string
	speaker   SpeakerInfo
	log       *slog.Logger
}

var _ processor.Emitter = (*streamEmitter)(nil)

func (e *streamEmitter) EmitTranscript(_ context.Context, t *processor.Transcript) {
	entries := make([]TranslationEntry, 0, len(t.Translations))
	for _, tr := range t.Translations {
		entries = append(entries, TranslationEntry{
			TargetLanguage:       tr.TargetLanguage,
			TranslatedText:       tr.Text,
			TargetParticipantIDs: tr.ListenerIDs,
		})
	}
	e.send(&ChatResponse{
		SessionID: e.sessionID,
		RoomID:    e.roomID,
		Transcript: &TranscriptResult{
			ID:               t.ID,
			Speaker:          e.speaker,
			OriginalText:     t.Text,
			OriginalLanguage: t.SourceLanguage,
			Translations:     entries,
			IsPartial:        !t.IsFinal,
			IsFinal:          t.IsFinal,
			TimestampMS:      t.TimestampMS,
			Confidence:       t.Confidence,
		},
	})
}

func (e *streamEmitter) EmitAudio(_ context.Context, a *processor.Audio) {
	e.send(&ChatResponse{
		SessionID: e.sessionID,
		RoomID:    e.roomID,
		Audio: &AudioResult{
			TranscriptID:         a.TranscriptID,
			TargetLanguage:       a.TargetLanguage,
			TargetParticipantIDs: a.ListenerIDs,
			AudioData:            a.Data,
			Format:               a.Format,
			SampleRate:           a.SampleRate,
			DurationMS:           a.DurationMS,
			SpeakerParticipantID: a.SpeakerID,
		},
	})
}

func (e *streamEmitter) sendStatus(state, msg string, b session.Buffering) {
	st := &SessionStatus{Status: state, Message: msg}
	if state == StatusReady {
		st.BufferingStrategy = &BufferingStrategy{
			SourceLanguage:        b.SourceLanguage,
			PrimaryTargetLanguage: b.PrimaryTarget,
			Strategy:              string(b.Strategy),
			BufferSizeMS:          b.BufferSizeMS,
		}
	}
	e.send(&ChatResponse{SessionID: e.sessionID, RoomID: e.roomID, Status: st})
}

func (e *streamEmitter) sendError(code, msg string) {
	e.send(&ChatResponse{
		SessionID: e.sessionID,
		RoomID:    e.roomID,
		Error:     &ErrorResponse{Code: code, Message: msg},
	})
}

func (e *streamEmitter) send(resp *ChatResponse) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.stream.Send(resp); err != nil {
		e.log.Debug("emission dropped", "session_id", e.sessionID, "error", err)
	}
}

func speakerToWire(s session.SpeakerInfo) SpeakerInfo {
	return SpeakerInfo{
		ParticipantID:  s.ParticipantID,
		Nickname:       s.Nickname,
		ProfileImg:     s.ProfileImg,
		SourceLanguage: s.SourceLanguage,
	}
}
