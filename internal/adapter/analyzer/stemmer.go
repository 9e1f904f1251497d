package analyzer

import "strings"

// Stemmer strips common English inflections (plurals, -ing, -ed, -ly) so
// inflected forms share a term.
type Stemmer struct{}

func NewStemmer() *Stemmer {
	return &Stemmer{}
}

// Stem expects a lowercased word.
func (s *Stemmer) Stem(word string) string {
	if len(word) < 4 {
		return word
	}
	word = stripPlural(word)
	word = stripVerbal(word)
	if strings.HasSuffix(word, "ly") && len(word) > 5 {
		word = word[:len(word)-2]
	}
	return word
}

func stripPlural(word string) string {
	switch {
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

func stripVerbal(word string) string {
	for _, suffix := range []string{"ing", "ed"} {
		if !strings.HasSuffix(word, suffix) {
			continue
		}
		stem := word[:len(word)-len(suffix)]
		if len(stem) < 3 || !hasVowel(stem) {
			return word
		}
		return undouble(stem)
	}
	return word
}

// undouble turns "runn" into "run" but leaves "fall" and "pass" alone.
func undouble(stem string) string {
	n := len(stem)
	if n < 2 || stem[n-1] != stem[n-2] {
		return stem
	}
	switch stem[n-1] {
	case 'l', 's', 'z', 'a', 'e', 'i', 'o', 'u':
		return stem
	}
	return stem[:n-1]
}

func hasVowel(s string) bool {
	return strings.ContainsAny(s, "aeiouy")
}
