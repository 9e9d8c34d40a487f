package roomcache

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// keySep separates key components. Room ids are opaque but participant and
// language codes never contain it.
const keySep = "|"

// STTKey identifies one audio segment within a room: the speaker plus the
// first 16 hex characters of the MD5 of the raw bytes. MD5 is fine here —
// the key only deduplicates identical segments inside a 10-second window.
func STTKey(room, speaker string, audio []byte) string {
	sum := md5.Sum(audio)
	return room + keySep + speaker + keySep + hex.EncodeToString(sum[:])[:16]
}

// TranslationKey identifies one (source, target, text) triple within a room.
// The text hash is a process-local xxhash; keys are never persisted or
// shared across processes.
func TranslationKey(room, sourceLang, targetLang, text string) string {
	return room + keySep + sourceLang + keySep + targetLang + keySep + hashText(text)
}

// TTSKey identifies one (language, text) pair within a room.
func TTSKey(room, targetLang, text string) string {
	return room + keySep + "tts" + keySep + targetLang + keySep + hashText(text)
}

func hashText(text string) string {
	return strconv.FormatUint(xxhash.Sum64String(text), 16)
}
