package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultFillerWords are interjections that never warrant translation or
// synthesis. Matching is exact after trimming, case-insensitive on Latin text.
var defaultFillerWords = []string{
	// Korean
	"네", "예", "응", "음", "어", "아", "으", "흠", "뭐", "그", "저",
	"아아", "어어", "음음", "네네", "예예", "그래", "응응",
	// English
	"uh", "um", "ah", "oh", "hmm", "yeah", "yes", "no", "ok", "okay",
	"well", "so", "like", "you know", "i mean",
	// Japanese
	"あ", "え", "う", "ん", "はい", "うん", "ええ", "まあ",
	// Chinese
	"嗯", "啊", "哦", "呃", "好", "是",
}

// defaultArtifactPatterns are transcription outputs that describe sound
// rather than transcribe speech.
var defaultArtifactPatterns = []string{
	"[음악]", "[音楽]", "[music]", "[applause]", "[laughter]",
	"[박수]", "[웃음]", "♪", "♫", "...", "…",
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Environment variable references like ${AWS_REGION} in the file
// are expanded before decoding.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg, err := LoadFromReader(bytes.NewReader([]byte(expanded)))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a fully-defaulted configuration, equivalent to loading an
// empty file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields of cfg in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = ":50051"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxWorkers == 0 {
		cfg.Server.MaxWorkers = 32
	}
	if cfg.Server.MaxMessageMB == 0 {
		cfg.Server.MaxMessageMB = 50
	}

	if cfg.Audio.SampleRate == 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.BytesPerSample == 0 {
		cfg.Audio.BytesPerSample = 2
	}
	if cfg.Audio.ChunkDurationMS == 0 {
		cfg.Audio.ChunkDurationMS = 1500
	}
	if cfg.Audio.SentenceMaxDurationMS == 0 {
		cfg.Audio.SentenceMaxDurationMS = 2500
	}

	if cfg.VAD.SilenceDurationMS == 0 {
		cfg.VAD.SilenceDurationMS = 350
	}
	if cfg.VAD.SilenceThresholdRMS == 0 {
		cfg.VAD.SilenceThresholdRMS = 30
	}
	if cfg.VAD.Aggressiveness == 0 {
		cfg.VAD.Aggressiveness = 2
	}
	if cfg.VAD.MinSpeechFrames == 0 {
		cfg.VAD.MinSpeechFrames = 3
	}

	if cfg.Pipeline.ParallelWorkers == 0 {
		cfg.Pipeline.ParallelWorkers = 8
	}
	if cfg.Pipeline.MinAudioDurationMS == 0 {
		cfg.Pipeline.MinAudioDurationMS = 300
	}
	if cfg.Pipeline.MinTTSTextLength == 0 {
		cfg.Pipeline.MinTTSTextLength = 2
	}
	if cfg.Pipeline.HallucinationRMSThreshold == 0 {
		cfg.Pipeline.HallucinationRMSThreshold = 0.005
	}
	if cfg.Pipeline.STTTimeoutSeconds == 0 {
		cfg.Pipeline.STTTimeoutSeconds = 15
	}
	if cfg.Pipeline.TranslationTimeoutSeconds == 0 {
		cfg.Pipeline.TranslationTimeoutSeconds = 10
	}
	if cfg.Pipeline.TTSTimeoutSeconds == 0 {
		cfg.Pipeline.TTSTimeoutSeconds = 8
	}

	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 10
	}
	if cfg.Cache.CleanupIntervalSeconds == 0 {
		cfg.Cache.CleanupIntervalSeconds = 30
	}

	if cfg.Providers.STT.Backend == "" {
		cfg.Providers.STT.Backend = STTMulti
	}
	if cfg.Providers.STT.Fallback.Engine == "" {
		cfg.Providers.STT.Fallback = STTModelEntry{Engine: "whisper", Model: "models/ggml-large-v3-turbo.bin"}
	}
	if cfg.Providers.Translation.Backend == "" {
		cfg.Providers.Translation.Backend = TranslateAWS
	}
	if cfg.Providers.TTS.Backend == "" {
		cfg.Providers.TTS.Backend = "polly"
	}

	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "ap-northeast-2"
	}

	if len(cfg.Filters.FillerWords) == 0 {
		cfg.Filters.FillerWords = defaultFillerWords
	}
	if len(cfg.Filters.ArtifactPatterns) == 0 {
		cfg.Filters.ArtifactPatterns = defaultArtifactPatterns
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("server.max_workers %d must be at least 1", cfg.Server.MaxWorkers))
	}
	if cfg.Server.MaxMessageMB < 1 {
		errs = append(errs, fmt.Errorf("server.max_message_mb %d must be at least 1", cfg.Server.MaxMessageMB))
	}

	if cfg.Audio.SampleRate != 16000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is unsupported; inbound PCM must be 16000 Hz", cfg.Audio.SampleRate))
	}
	if cfg.Audio.BytesPerSample != 2 {
		errs = append(errs, fmt.Errorf("audio.bytes_per_sample %d is unsupported; inbound PCM must be 16-bit", cfg.Audio.BytesPerSample))
	}
	if cfg.Audio.SentenceMaxDurationMS < 500 {
		errs = append(errs, fmt.Errorf("audio.sentence_max_duration_ms %d must be at least 500", cfg.Audio.SentenceMaxDurationMS))
	}

	if cfg.VAD.Aggressiveness < 0 || cfg.VAD.Aggressiveness > 3 {
		errs = append(errs, fmt.Errorf("vad.aggressiveness %d is out of range [0, 3]", cfg.VAD.Aggressiveness))
	}
	if cfg.VAD.SilenceDurationMS < 30 {
		errs = append(errs, fmt.Errorf("vad.silence_duration_ms %d must cover at least one 30ms frame", cfg.VAD.SilenceDurationMS))
	}
	if cfg.VAD.MinSpeechFrames < 1 {
		errs = append(errs, fmt.Errorf("vad.min_speech_frames %d must be at least 1", cfg.VAD.MinSpeechFrames))
	}

	if cfg.Pipeline.ParallelWorkers < 1 {
		errs = append(errs, fmt.Errorf("pipeline.parallel_workers %d must be at least 1", cfg.Pipeline.ParallelWorkers))
	}

	if cfg.Cache.TTLSeconds < 1 {
		errs = append(errs, fmt.Errorf("cache.ttl_seconds %d must be at least 1", cfg.Cache.TTLSeconds))
	}
	if cfg.Cache.CleanupIntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("cache.cleanup_interval_seconds %d must be at least 1", cfg.Cache.CleanupIntervalSeconds))
	}

	if !cfg.Providers.STT.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("providers.stt.backend %q is invalid; valid values: multi, whisper, transcribe", cfg.Providers.STT.Backend))
	}
	for lang, entry := range cfg.Providers.STT.Models {
		if entry.Engine != "whisper" && entry.Engine != "sherpa" {
			errs = append(errs, fmt.Errorf("providers.stt.models[%s].engine %q is invalid; valid values: whisper, sherpa", lang, entry.Engine))
		}
		if entry.Model == "" {
			errs = append(errs, fmt.Errorf("providers.stt.models[%s].model is required", lang))
		}
	}
	if !cfg.Providers.Translation.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("providers.translation.backend %q is invalid; valid values: aws, llm", cfg.Providers.Translation.Backend))
	}
	if cfg.Providers.Translation.Backend == TranslateLLM && cfg.Providers.Translation.LLM.Model == "" {
		errs = append(errs, fmt.Errorf("providers.translation.llm.model is required when backend is llm"))
	}
	if cfg.Providers.TTS.Backend != "polly" {
		errs = append(errs, fmt.Errorf("providers.tts.backend %q is invalid; valid values: polly", cfg.Providers.TTS.Backend))
	}

	return errors.Join(errs...)
}
