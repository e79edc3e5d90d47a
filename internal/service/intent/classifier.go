package intent

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category is one intent signal extracted from free text.
type Category uint16

const (
	Greeting Category = 1 << iota
	Location
	Offers
	OffersConfirmation
	Doctors
	Booking
	Cancel
	Reset
	Question
	Banned
)

var categoryNames = []struct {
	c    Category
	name string
}{
	{Reset, "reset"},
	{Greeting, "greeting"},
	{Banned, "banned"},
	{Location, "location"},
	{Offers, "offers"},
	{OffersConfirmation, "offers_confirmation"},
	{Doctors, "doctors"},
	{Cancel, "cancel"},
	{Booking, "booking"},
	{Question, "question"},
}

func (c Category) String() string {
	for _, n := range categoryNames {
		if n.c == c {
			return n.name
		}
	}
	return "none"
}

// Set is the collection of categories matched by one text. Categories are not
// mutually exclusive.
type Set uint16

// Has reports whether c was matched.
func (s Set) Has(c Category) bool {
	return s&Set(c) != 0
}

// Empty reports whether nothing matched.
func (s Set) Empty() bool {
	return s == 0
}

// Primary returns the name of the highest-priority matched category, using
// the same order the conversation router resolves conflicts with.
func (s Set) Primary() string {
	for _, n := range categoryNames {
		if s.Has(n.c) {
			return n.name
		}
	}
	return ""
}

// Names lists every matched category in priority order.
func (s Set) Names() []string {
	var out []string
	for _, n := range categoryNames {
		if s.Has(n.c) {
			out = append(out, n.name)
		}
	}
	return out
}

type matcher struct {
	latin  *regexp.Regexp
	arabic []string
}

func newMatcher(keywords []string) matcher {
	var m matcher
	var parts []string
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if isASCII(kw) {
			parts = append(parts, boundedPattern(kw))
			continue
		}
		m.arabic = append(m.arabic, kw)
	}
	if len(parts) > 0 {
		m.latin = regexp.MustCompile(strings.Join(parts, "|"))
	}
	return m
}

func (m matcher) match(lower string) bool {
	for _, kw := range m.arabic {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return m.latin != nil && m.latin.MatchString(lower)
}

// boundedPattern anchors Latin keywords at the start of a word so that "hi"
// does not fire inside "this" or "dr" inside "address". The end stays open
// for plurals and inflections ("deals", "cancelled", "okay").
func boundedPattern(kw string) string {
	p := regexp.QuoteMeta(kw)
	if isWordByte(kw[0]) {
		p = `\b` + p
	}
	return p
}

var (
	greetingMatcher     = newMatcher(greetingKeywords)
	locationMatcher     = newMatcher(locationKeywords)
	offersMatcher       = newMatcher(offersKeywords)
	confirmationMatcher = newMatcher(offersConfirmationKeywords)
	doctorsMatcher      = newMatcher(doctorsKeywords)
	bookingMatcher      = newMatcher(bookingKeywords)
	cancelMatcher       = newMatcher(cancelKeywords)
	resetMatcher        = newMatcher(resetKeywords)
	bannedMatcher       = newMatcher(bannedKeywords)
)

// Classify tags text with every category whose keyword list matches. Empty
// text matches nothing.
func Classify(text string) Set {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	lower := strings.ToLower(trimmed)

	var s Set
	add := func(c Category, ok bool) {
		if ok {
			s |= Set(c)
		}
	}

	add(Greeting, greetingMatcher.match(lower))
	add(Location, locationMatcher.match(lower))
	add(Offers, offersMatcher.match(lower))
	add(OffersConfirmation, IsOffersConfirmation(trimmed))
	add(Doctors, doctorsMatcher.match(lower))
	add(Booking, bookingMatcher.match(lower))
	add(Cancel, cancelMatcher.match(lower))
	add(Reset, resetMatcher.match(lower))
	add(Question, IsQuestion(trimmed))
	add(Banned, bannedMatcher.match(lower))

	return s
}

// IsOffersConfirmation reports whether text accepts the offers teaser.
func IsOffersConfirmation(text string) bool {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case r == 'ـ':
			// tatweel
		case isArabic(r), r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == ' ':
			b.WriteRune(r)
		}
	}
	return confirmationMatcher.match(b.String())
}

// IsQuestion is the side-question heuristic: the text ends with a question
// mark or contains an interrogative word.
func IsQuestion(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	if strings.HasSuffix(t, "?") || strings.HasSuffix(t, "؟") {
		return true
	}
	for _, token := range tokens(strings.ToLower(t)) {
		if isQuestionWord(token) || isQuestionWord(stripProclitic(token)) {
			return true
		}
	}
	return false
}

func isQuestionWord(token string) bool {
	for _, w := range questionWords {
		if token == w {
			return true
		}
	}
	return false
}

// stripProclitic drops one attached و/ف/ب/ل so that "بكم" and "وكم" reduce
// to "كم". Tokens of two letters or fewer are left alone.
func stripProclitic(token string) string {
	r, size := utf8.DecodeRuneInString(token)
	if utf8.RuneCountInString(token) <= 2 {
		return token
	}
	switch r {
	case 'و', 'ف', 'ب', 'ل':
		return token[size:]
	}
	return token
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isArabic(r rune) bool {
	return r >= 0x0600 && r <= 0x06FF
}
