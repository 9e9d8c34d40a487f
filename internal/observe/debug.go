package observe

import (
	"context"
	"log/slog"
)

// Debug categories used across the pipeline. Keeping them in one place makes
// log filtering by category predictable.
const (
	CatAudio     = "audio"
	CatVAD       = "vad"
	CatSTT       = "stt"
	CatTranslate = "translate"
	CatTTS       = "tts"
	CatCache     = "cache"
	CatPipeline  = "pipeline"
	CatSession   = "session"
)

// Debug is the single append point for category-scoped debug events. Every
// event carries a "category" attribute so one grep or log query isolates a
// pipeline stage.
func Debug(ctx context.Context, category, msg string, args ...any) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := make([]any, 0, len(args)+2)
	attrs = append(attrs, "category", category)
	attrs = append(attrs, args...)
	slog.DebugContext(ctx, msg, attrs...)
}
