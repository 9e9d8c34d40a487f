package session

import (
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/babelroom/babelroom/internal/config"
	"github.com/babelroom/babelroom/internal/lang"
	"github.com/babelroom/babelroom/internal/observe"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	metrics, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	return NewRegistry(metrics)
}

func registrySession(t *testing.T, id, room string, participants ...ParticipantInfo) *Session {
	t.Helper()
	cfg := config.Default()
	speaker := SpeakerInfo{ParticipantID: "speaker-" + id, SourceLanguage: "ko"}
	return New(id, room, speaker, participants, cfg.Audio, cfg.VAD)
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := newTestRegistry(t)
	s := registrySession(t, "s1", "r1")

	r.Add(s)
	if got, ok := r.Get("s1"); !ok || got != s {
		t.Fatalf("Get(s1) = %v, %v", got, ok)
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}

	if got := r.Remove("s1"); got != s {
		t.Errorf("Remove returned %v, want the session", got)
	}
	if _, ok := r.Get("s1"); ok {
		t.Error("session still present after remove")
	}
	if got := r.Remove("s1"); got != nil {
		t.Errorf("second remove returned %v, want nil", got)
	}
}

func TestRegistryRoomCount(t *testing.T) {
	r := newTestRegistry(t)
	r.Add(registrySession(t, "s1", "r1"))
	r.Add(registrySession(t, "s2", "r1"))
	r.Add(registrySession(t, "s3", "r2"))

	if got := r.RoomCount("r1"); got != 2 {
		t.Errorf("r1 count = %d, want 2", got)
	}
	if got := r.RoomCount("r2"); got != 1 {
		t.Errorf("r2 count = %d, want 1", got)
	}

	r.Remove("s2")
	if got := r.RoomCount("r1"); got != 1 {
		t.Errorf("r1 count after remove = %d, want 1", got)
	}
}

func TestRegistryUpdateParticipantSettings(t *testing.T) {
	r := newTestRegistry(t)
	a := registrySession(t, "s1", "r1",
		ParticipantInfo{ParticipantID: "alice", TargetLanguage: "ja", TranslationEnabled: true})
	b := registrySession(t, "s2", "r1",
		ParticipantInfo{ParticipantID: "alice", TargetLanguage: "ja", TranslationEnabled: true})
	other := registrySession(t, "s3", "r2",
		ParticipantInfo{ParticipantID: "alice", TargetLanguage: "ja", TranslationEnabled: true})
	r.Add(a)
	r.Add(b)
	r.Add(other)

	if !r.UpdateParticipantSettings("r1", "alice", "en", true) {
		t.Fatal("update reported no sessions matched")
	}

	// Every session in the room sees the change; other rooms do not.
	for _, s := range []*Session{a, b} {
		if got := s.Buffering().Strategy; got != lang.SentenceBased {
			t.Errorf("session %s strategy = %s, want SENTENCE_BASED", s.ID, got)
		}
	}
	if got := other.Buffering().Strategy; got != lang.ChunkBased {
		t.Errorf("unrelated room strategy = %s, want CHUNK_BASED", got)
	}

	if r.UpdateParticipantSettings("ghost", "alice", "en", true) {
		t.Error("update for unknown room reported success")
	}
}

func TestRegistryAddReplacesStaleEntry(t *testing.T) {
	r := newTestRegistry(t)
	r.Add(registrySession(t, "s1", "r1"))
	fresh := registrySession(t, "s1", "r1")
	r.Add(fresh)

	if got, _ := r.Get("s1"); got != fresh {
		t.Error("stale session not replaced")
	}
	if r.Len() != 1 {
		t.Errorf("len = %d, want 1", r.Len())
	}
}
