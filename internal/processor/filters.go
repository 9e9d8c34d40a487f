package processor

import (
	"regexp"
	"strings"
)

// TextFilters holds the transcript filter tables. One instance is shared by
// every room processor.
type TextFilters struct {
	fillers   map[string]struct{}
	artifacts map[string]struct{}
}

// NewTextFilters builds the filter tables from the configured word lists.
func NewTextFilters(fillerWords, artifactPatterns []string) *TextFilters {
	f := &TextFilters{
		fillers:   make(map[string]struct{}, len(fillerWords)),
		artifacts: make(map[string]struct{}, len(artifactPatterns)),
	}
	for _, w := range fillerWords {
		f.fillers[w] = struct{}{}
	}
	for _, p := range artifactPatterns {
		f.artifacts[strings.ToLower(p)] = struct{}{}
	}
	return f
}

// IsFiller reports whether text is exactly a filler token. Both the trimmed
// text and its lower-cased form are checked so Latin fillers match
// case-insensitively while CJK fillers match verbatim.
func (f *TextFilters) IsFiller(text string) bool {
	trimmed := strings.TrimSpace(text)
	if _, ok := f.fillers[trimmed]; ok {
		return true
	}
	_, ok := f.fillers[strings.ToLower(trimmed)]
	return ok
}

// dotRunPattern matches "word.." tokens: a non-space run followed by two or
// more dots.
var dotRunPattern = regexp.MustCompile(`(\S+)\.\.+`)

// IsArtifact reports whether text is a transcription artifact: either an
// exact artifact pattern ("[music]", "…") or a repetition hallucination.
//
// Real words are never filtered by content alone — a speaker may genuinely
// repeat themselves twice — only the degenerate repetition shapes below.
func (f *TextFilters) IsArtifact(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(text))

	if _, ok := f.artifacts[lower]; ok {
		return true
	}

	words := strings.Fields(lower)

	// One token repeated many times ("음 음 음 음 음").
	if len(words) >= 5 && uniqueCount(words) == 1 {
		return true
	}

	// Two tokens cycled at length ("릴리 릴리 릴리 릴리 릴리 릴리").
	if len(words) >= 6 && uniqueCount(words) <= 2 {
		return true
	}

	// "X.. X.. X.." runs.
	if m := dotRunPattern.FindAllStringSubmatch(lower, -1); len(m) >= 3 {
		first := m[0][1]
		same := true
		for _, g := range m[1:] {
			if g[1] != first {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}

	runes := []rune(lower)

	// One character dominating the text ("강강강강강강강강").
	if len(runes) >= 10 {
		counts := make(map[rune]int)
		total := 0
		for _, r := range runes {
			if r == ' ' || r == '.' {
				continue
			}
			counts[r]++
			total++
		}
		maxCount := 0
		for _, n := range counts {
			if n > maxCount {
				maxCount = n
			}
		}
		if total > 0 && float64(maxCount)/float64(total) > 0.6 {
			return true
		}
	}

	// Long text drawn from a tiny alphabet.
	if len(runes) >= 50 {
		unique := make(map[rune]struct{})
		for _, r := range runes {
			if r != ' ' && r != '.' {
				unique[r] = struct{}{}
			}
		}
		if len(unique) <= 3 {
			return true
		}
	}

	return false
}

// IsLowEnergyHallucination reports whether a transcript is suspect given the
// segment's audio characteristics: quiet audio that still produced text, or
// a high no-speech probability alongside non-trivial text.
//
// rms is on the normalised [0, 1] scale; rmsThreshold comes from config.
func IsLowEnergyHallucination(text string, rms, rmsThreshold, noSpeechProb float64) bool {
	if text == "" {
		return false
	}
	n := len([]rune(text))
	if rms < rmsThreshold && n > 3 {
		return true
	}
	if noSpeechProb > 0.7 && n > 5 {
		return true
	}
	return false
}

func uniqueCount(words []string) int {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return len(set)
}
