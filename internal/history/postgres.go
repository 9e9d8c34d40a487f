package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/babelroom/babelroom/internal/processor"
)

const transcriptsSchema = `
CREATE TABLE IF NOT EXISTS transcripts (
    id              BIGSERIAL PRIMARY KEY,
    transcript_id   TEXT        NOT NULL,
    room_id         TEXT        NOT NULL,
    speaker_id      TEXT        NOT NULL,
    source_language TEXT        NOT NULL,
    text            TEXT        NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL,
    is_final        BOOLEAN     NOT NULL,
    translations    JSONB,
    created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS transcripts_room_created_idx
    ON transcripts (room_id, created_at DESC);
`

// writeTimeout bounds one archive insert so a slow database cannot stall the
// pipeline's emission path.
const writeTimeout = 3 * time.Second

// PostgresStore archives transcripts in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn, ensures the schema, and returns the
// store.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, transcriptsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool, log: slog.With("component", "history")}, nil
}

// RecordTranscript inserts one transcript. Failures are logged and dropped.
func (s *PostgresStore) RecordTranscript(ctx context.Context, room string, t *processor.Transcript) {
	e := entryFromTranscript(room, t)

	var translations []byte
	if len(e.Translations) > 0 {
		var err error
		if translations, err = json.Marshal(e.Translations); err != nil {
			s.log.Warn("transcript archive skipped", "transcript_id", e.TranscriptID, "error", err)
			return
		}
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	_, err := s.pool.Exec(wctx, `
		INSERT INTO transcripts
		    (transcript_id, room_id, speaker_id, source_language, text, confidence, is_final, translations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.TranscriptID, e.Room, e.SpeakerID, e.SourceLanguage, e.Text, e.Confidence, e.IsFinal, translations, e.CreatedAt,
	)
	if err != nil {
		s.log.Warn("transcript archive failed", "transcript_id", e.TranscriptID, "error", err)
	}
}

// Recent returns up to limit transcripts for room, newest first.
func (s *PostgresStore) Recent(ctx context.Context, room string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultRoomCap
	}
	rows, err := s.pool.Query(ctx, `
		SELECT transcript_id, room_id, speaker_id, source_language, text, confidence, is_final, translations, created_at
		FROM transcripts
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, room, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var translations []byte
		if err := rows.Scan(&e.TranscriptID, &e.Room, &e.SpeakerID, &e.SourceLanguage, &e.Text, &e.Confidence, &e.IsFinal, &translations, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if len(translations) > 0 {
			if err := json.Unmarshal(translations, &e.Translations); err != nil {
				return nil, fmt.Errorf("history: decode translations: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: rows: %w", err)
	}
	return out, nil
}

// Ping probes the connection pool, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
