package history

import (
	"context"
	"fmt"
	"testing"

	"github.com/babelroom/babelroom/internal/processor"
)

func transcript(id, text string) *processor.Transcript {
	return &processor.Transcript{
		ID:             id,
		SpeakerID:      "speaker",
		Text:           text,
		SourceLanguage: "ko",
		IsFinal:        true,
		TimestampMS:    1700000000000,
		Confidence:     0.9,
		Translations: []processor.Translation{
			{TargetLanguage: "en", Text: "hello", ListenerIDs: []string{"alice"}},
		},
	}
}

func TestMemoryStoreRecordAndRecent(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()

	s.RecordTranscript(ctx, "r1", transcript("aaaa1111", "첫 번째"))
	s.RecordTranscript(ctx, "r1", transcript("bbbb2222", "두 번째"))
	s.RecordTranscript(ctx, "r2", transcript("cccc3333", "다른 방"))

	got, err := s.Recent(ctx, "r1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("entries = %d, want 2", len(got))
	}
	// Newest first.
	if got[0].TranscriptID != "bbbb2222" || got[1].TranscriptID != "aaaa1111" {
		t.Errorf("order = %s, %s", got[0].TranscriptID, got[1].TranscriptID)
	}
	e := got[1]
	if e.Room != "r1" || e.Text != "첫 번째" || e.SourceLanguage != "ko" || !e.IsFinal {
		t.Errorf("entry = %+v", e)
	}
	if e.Translations["en"] != "hello" {
		t.Errorf("translations = %v", e.Translations)
	}
	if e.CreatedAt.UnixMilli() != 1700000000000 {
		t.Errorf("created at = %v", e.CreatedAt)
	}
}

func TestMemoryStoreLimit(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.RecordTranscript(ctx, "r1", transcript(fmt.Sprintf("id%d", i), "text"))
	}

	got, _ := s.Recent(ctx, "r1", 2)
	if len(got) != 2 || got[0].TranscriptID != "id4" || got[1].TranscriptID != "id3" {
		t.Errorf("recent(2) = %+v", got)
	}
}

func TestMemoryStoreEviction(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.RecordTranscript(ctx, "r1", transcript(fmt.Sprintf("id%d", i), "text"))
	}

	got, _ := s.Recent(ctx, "r1", 0)
	if len(got) != 3 {
		t.Fatalf("entries = %d, want 3 (oldest evicted)", len(got))
	}
	if got[len(got)-1].TranscriptID != "id2" {
		t.Errorf("oldest surviving = %s, want id2", got[len(got)-1].TranscriptID)
	}
}

func TestMemoryStoreDropRoom(t *testing.T) {
	s := NewMemoryStore(10)
	ctx := context.Background()
	s.RecordTranscript(ctx, "r1", transcript("aaaa1111", "text"))
	s.DropRoom("r1")

	if got, _ := s.Recent(ctx, "r1", 10); len(got) != 0 {
		t.Errorf("entries after drop = %d, want 0", len(got))
	}
}

func TestMemoryStoreUnknownRoom(t *testing.T) {
	s := NewMemoryStore(10)
	if got, err := s.Recent(context.Background(), "ghost", 10); err != nil || len(got) != 0 {
		t.Errorf("unknown room = %v, %v", got, err)
	}
}
