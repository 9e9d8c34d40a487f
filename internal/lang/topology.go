// Package lang classifies languages by word order and derives the buffering
// strategy a session should advertise, plus the code tables the cloud
// backends need.
package lang

// WordOrder is the dominant constituent order of a language.
type WordOrder string

const (
	SOV WordOrder = "SOV"
	SVO WordOrder = "SVO"
	VSO WordOrder = "VSO"
)

// Strategy is the buffering hint reported to clients on session ready.
type Strategy string

const (
	// ChunkBased favours low latency: source and target share word order, so
	// partial chunks translate acceptably.
	ChunkBased Strategy = "CHUNK_BASED"

	// SentenceBased waits for sentence boundaries: differing word order needs
	// the full clause before translation reads naturally.
	SentenceBased Strategy = "SENTENCE_BASED"
)

// wordOrders maps ISO 639-1 codes to their group. Unlisted languages are
// treated as SVO.
var wordOrders = map[string]WordOrder{
	"ko": SOV, "ja": SOV, "tr": SOV, "hi": SOV, "bn": SOV,
	"en": SVO, "zh": SVO, "es": SVO, "fr": SVO, "de": SVO,
	"pt": SVO, "ru": SVO, "it": SVO,
	"ar": VSO, "he": VSO,
}

// Order returns the word-order group for code, defaulting to SVO.
func Order(code string) WordOrder {
	if o, ok := wordOrders[code]; ok {
		return o
	}
	return SVO
}

// PairStrategy returns the buffering strategy for one source/target pair.
func PairStrategy(source, target string) Strategy {
	if Order(source) == Order(target) {
		return ChunkBased
	}
	return SentenceBased
}

// PrimaryStrategy returns the session-level strategy: sentence-based as soon
// as any target differs from the source in word order.
func PrimaryStrategy(source string, targets []string) Strategy {
	for _, t := range targets {
		if PairStrategy(source, t) == SentenceBased {
			return SentenceBased
		}
	}
	return ChunkBased
}

// BufferSizeMS returns the buffer hint advertised with a strategy.
// chunkDurationMS is the configured chunk duration.
func BufferSizeMS(s Strategy, chunkDurationMS int) int {
	if s == ChunkBased {
		return 1000
	}
	return chunkDurationMS
}
