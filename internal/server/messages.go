package server

// Wire messages for the Translation service. The transport uses the JSON
// codec (codec.go), so these are plain structs with JSON tags instead of
// generated protobuf types. Request and response bodies emulate a oneof: at
// most one of the pointer fields is set.

// ChatRequest is one client → server stream message.
type ChatRequest struct {
	SessionID     string `json:"session_id"`
	RoomID        string `json:"room_id"`
	ParticipantID string `json:"participant_id"`

	SessionInit *SessionInit `json:"session_init,omitempty"`
	AudioChunk  []byte       `json:"audio_chunk,omitempty"`
	SessionEnd  *SessionEnd  `json:"session_end,omitempty"`
}

// SessionInit opens a session: who speaks and who listens.
type SessionInit struct {
	Speaker      SpeakerInfo       `json:"speaker"`
	Participants []ParticipantInfo `json:"participants"`
}

// SessionEnd asks for a final flush and teardown.
type SessionEnd struct{}

// SpeakerInfo identifies the speaking participant.
type SpeakerInfo struct {
	ParticipantID  string `json:"participant_id"`
	Nickname       string `json:"nickname"`
	ProfileImg     string `json:"profile_img"`
	SourceLanguage string `json:"source_language"`
}

// ParticipantInfo describes one room member's translation preferences.
type ParticipantInfo struct {
	ParticipantID      string `json:"participant_id"`
	Nickname           string `json:"nickname"`
	ProfileImg         string `json:"profile_img"`
	TargetLanguage     string `json:"target_language"`
	TranslationEnabled bool   `json:"translation_enabled"`
}

// ChatResponse is one server → client stream message.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id"`

	Status     *SessionStatus    `json:"status,omitempty"`
	Transcript *TranscriptResult `json:"transcript,omitempty"`
	Audio      *AudioResult      `json:"audio,omitempty"`
	Error      *ErrorResponse    `json:"error,omitempty"`
}

// Session status values.
const (
	StatusReady = "READY"
	StatusEnded = "ENDED"
)

// SessionStatus reports a session lifecycle change.
type SessionStatus struct {
	Status            string             `json:"status"`
	Message           string             `json:"message,omitempty"`
	BufferingStrategy *BufferingStrategy `json:"buffering_strategy,omitempty"`
}

// BufferingStrategy advertises how the client should size its audio chunks.
type BufferingStrategy struct {
	SourceLanguage        string `json:"source_language"`
	PrimaryTargetLanguage string `json:"primary_target_language"`
	Strategy              string `json:"strategy"` // CHUNK_BASED or SENTENCE_BASED
	BufferSizeMS          int    `json:"buffer_size_ms"`
}

// TranscriptResult carries one utterance's text and its translations.
type TranscriptResult struct {
	ID               string             `json:"id"`
	Speaker          SpeakerInfo        `json:"speaker"`
	OriginalText     string             `json:"original_text"`
	OriginalLanguage string             `json:"original_language"`
	Translations     []TranslationEntry `json:"translations,omitempty"`
	IsPartial        bool               `json:"is_partial"`
	IsFinal          bool               `json:"is_final"`
	TimestampMS      int64              `json:"timestamp_ms"`
	Confidence       float64            `json:"confidence"`
}

// TranslationEntry is one target-language rendition of a transcript.
type TranslationEntry struct {
	TargetLanguage       string   `json:"target_language"`
	TranslatedText       string   `json:"translated_text"`
	TargetParticipantIDs []string `json:"target_participant_ids"`
}

// AudioResult carries synthesized speech for one translation.
type AudioResult struct {
	TranscriptID         string   `json:"transcript_id"`
	TargetLanguage       string   `json:"target_language"`
	TargetParticipantIDs []string `json:"target_participant_ids"`
	AudioData            []byte   `json:"audio_data"`
	Format               string   `json:"format"`
	SampleRate           int      `json:"sample_rate"`
	DurationMS           int      `json:"duration_ms"`
	SpeakerParticipantID string   `json:"speaker_participant_id"`
}

// ErrorResponse reports a non-fatal stream error to the client.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// UpdateParticipantSettingsRequest changes one participant's translation
// preferences across every live session in a room.
type UpdateParticipantSettingsRequest struct {
	RoomID             string `json:"room_id"`
	ParticipantID      string `json:"participant_id"`
	TargetLanguage     string `json:"target_language"`
	TranslationEnabled bool   `json:"translation_enabled"`
}

// ParticipantSettingsResponse acknowledges a settings update.
type ParticipantSettingsResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}
