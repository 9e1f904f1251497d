package analyzer

import (
	"strings"
	"unicode"

	"docindex/internal/port"
)

// Tokenizer turns text into normalized terms: lowercased, stopwords and
// single-letter words dropped, optionally stemmed.
type Tokenizer struct {
	stemmer   *Stemmer
	stopwords map[string]struct{}
}

var _ port.Tokenizer = (*Tokenizer)(nil)

func NewTokenizer(useStemming bool) *Tokenizer {
	t := &Tokenizer{stopwords: defaultStopwords()}
	if useStemming {
		t.stemmer = NewStemmer()
	}
	return t
}

// Tokenize returns the terms of text in reading order. Repeated terms are
// kept so callers can weight by frequency.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(word)
		if len([]rune(word)) < 2 {
			continue
		}
		if _, stop := t.stopwords[word]; stop {
			continue
		}
		if t.stemmer != nil {
			word = t.stemmer.Stem(word)
		}
		terms = append(terms, word)
	}
	return terms
}

// splitWords breaks text on anything that is not a letter or digit, so
// "king's" yields "king" and "s".
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func defaultStopwords() map[string]struct{} {
	stops := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"that", "the", "to", "was", "were", "will", "with", "this",
		"have", "had", "but", "not", "you", "your", "we", "our",
		"they", "their", "she", "her", "his", "if", "or", "so",
		"no", "can", "do", "does", "did", "been", "being", "would",
		"could", "should", "may", "might", "must", "shall", "which",
		"who", "whom", "what", "when", "where", "why", "how", "all",
		"there", "then", "into", "about", "over", "these", "those",
	}
	m := make(map[string]struct{}, len(stops))
	for _, s := range stops {
		m[s] = struct{}{}
	}
	return m
}
