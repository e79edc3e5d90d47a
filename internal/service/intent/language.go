package intent

import "strings"

// Lang is the reply language picked for a message.
type Lang string

const (
	Arabic  Lang = "ar"
	English Lang = "en"
)

// DetectLanguage returns English unless the text contains Arabic script.
func DetectLanguage(text string) Lang {
	for _, r := range text {
		if isArabic(r) {
			return Arabic
		}
	}
	return English
}

// NormalizeDigits maps Arabic-Indic and Eastern Arabic-Indic digits to ASCII
// and drops everything that is not a digit.
func NormalizeDigits(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		}
	}
	return b.String()
}
