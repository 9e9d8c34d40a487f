// Package history archives finished transcripts per room, either in a
// bounded in-memory store or in Postgres.
package history

import (
	"context"
	"time"

	"github.com/babelroom/babelroom/internal/processor"
)

// Entry is one archived transcript.
type Entry struct {
	TranscriptID   string
	Room           string
	SpeakerID      string
	SourceLanguage string
	Text           string
	Confidence     float64
	IsFinal        bool
	CreatedAt      time.Time

	// Translations maps target language to translated text.
	Translations map[string]string
}

// Store archives transcripts and serves recent ones back. RecordTranscript
// satisfies [processor.Recorder]; archive failures are logged, never
// propagated into the pipeline.
type Store interface {
	processor.Recorder
	Recent(ctx context.Context, room string, limit int) ([]Entry, error)
	Close()
}

func entryFromTranscript(room string, t *processor.Transcript) Entry {
	e := Entry{
		TranscriptID:   t.ID,
		Room:           room,
		SpeakerID:      t.SpeakerID,
		SourceLanguage: t.SourceLanguage,
		Text:           t.Text,
		Confidence:     t.Confidence,
		IsFinal:        t.IsFinal,
		CreatedAt:      time.UnixMilli(t.TimestampMS),
	}
	if len(t.Translations) > 0 {
		e.Translations = make(map[string]string, len(t.Translations))
		for _, tr := range t.Translations {
			e.Translations[tr.TargetLanguage] = tr.Text
		}
	}
	return e
}
