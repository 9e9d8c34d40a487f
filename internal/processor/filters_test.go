package processor

import (
	"strings"
	"testing"

	"github.com/babelroom/babelroom/internal/config"
)

func defaultFilters() *TextFilters {
	cfg := config.Default()
	return NewTextFilters(cfg.Filters.FillerWords, cfg.Filters.ArtifactPatterns)
}

func TestIsFiller(t *testing.T) {
	f := defaultFilters()
	tests := []struct {
		text string
		want bool
	}{
		{"네", true},
		{"  네  ", true},
		{"um", true},
		{"Um", true},
		{"UM", true},
		{"ええ", true},
		{"嗯", true},
		{"네 안녕하세요", false},
		{"umbrella", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := f.IsFiller(tt.text); got != tt.want {
			t.Errorf("IsFiller(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsArtifactPatterns(t *testing.T) {
	f := defaultFilters()
	tests := []struct {
		text string
		want bool
	}{
		{"[music]", true},
		{"[Music]", true},
		{" [음악] ", true},
		{"♪", true},
		{"…", true},
		{"music", false},
		{"[music] is playing", false},
	}
	for _, tt := range tests {
		if got := f.IsArtifact(tt.text); got != tt.want {
			t.Errorf("IsArtifact(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsArtifactRepetition(t *testing.T) {
	f := defaultFilters()
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"five identical tokens", "감사합니다 감사합니다 감사합니다 감사합니다 감사합니다", true},
		{"four identical tokens pass", "감사합니다 감사합니다 감사합니다 감사합니다", false},
		{"six tokens two unique", "a b a b a b", true},
		{"five tokens two unique pass", "a b a b a", false},
		{"six distinct tokens pass", "one two three four five six", false},
		{"dot-suffixed run", "wait.. wait.. wait..", true},
		{"two dot-suffixed pass", "wait.. wait..", false},
		{"mixed dot-suffixed pass", "wait.. stop.. wait..", false},
		{"dominant character", "aaaaaaaab", false}, // length 9, below the gate
		{"dominant character at length", "aaaaaaaabb", true},
		{"balanced characters pass", "abcdefghij", false},
		{"tiny alphabet long text", strings.Repeat("ab", 25), true},
		{"tiny alphabet short text pass", strings.Repeat("ab", 20), false},
		{"normal sentence", "오늘 회의는 세 시에 시작합니다", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IsArtifact(tt.text); got != tt.want {
				t.Errorf("IsArtifact(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsLowEnergyHallucination(t *testing.T) {
	const threshold = 0.005
	tests := []struct {
		name         string
		text         string
		rms          float64
		noSpeechProb float64
		want         bool
	}{
		{"quiet long text", "감사합니다", 0.002, 0, true},
		{"quiet short text pass", "네네", 0.002, 0, false},
		{"loud long text pass", "감사합니다", 0.1, 0, false},
		{"no-speech long text", "hello there", 0.1, 0.8, true},
		{"no-speech short text pass", "hello", 0.1, 0.8, false},
		{"no-speech at boundary pass", "hello there", 0.1, 0.7, false},
		{"empty", "", 0.0001, 0.99, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsLowEnergyHallucination(tt.text, tt.rms, threshold, tt.noSpeechProb)
			if got != tt.want {
				t.Errorf("IsLowEnergyHallucination(%q, rms=%v, prob=%v) = %v, want %v",
					tt.text, tt.rms, tt.noSpeechProb, got, tt.want)
			}
		})
	}
}
