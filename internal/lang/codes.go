package lang

// transcribeCodes maps ISO 639-1 codes to Amazon Transcribe locale codes.
var transcribeCodes = map[string]string{
	"ko": "ko-KR",
	"en": "en-US",
	"ja": "ja-JP",
	"zh": "zh-CN",
	"es": "es-US",
	"fr": "fr-FR",
	"de": "de-DE",
	"pt": "pt-BR",
	"ru": "ru-RU",
	"ar": "ar-SA",
	"hi": "hi-IN",
	"tr": "tr-TR",
}

// TranscribeCode returns the Amazon Transcribe locale for code and whether
// the language is supported by the streaming backend.
func TranscribeCode(code string) (string, bool) {
	c, ok := transcribeCodes[code]
	return c, ok
}

// names maps ISO 639-1 codes to English display names, used in LLM
// translation prompts and logs.
var names = map[string]string{
	"ko": "Korean",
	"en": "English",
	"ja": "Japanese",
	"zh": "Chinese",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"pt": "Portuguese",
	"ru": "Russian",
	"ar": "Arabic",
	"hi": "Hindi",
	"tr": "Turkish",
}

// Name returns the English display name for code, or the code itself when
// unknown.
func Name(code string) string {
	if n, ok := names[code]; ok {
		return n
	}
	return code
}
