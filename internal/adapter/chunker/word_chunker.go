package chunker

import (
	"strings"
	"unicode/utf8"

	"docindex/internal/domain"
)

// WordChunker splits text on whitespace into chunks of whole words whose
// length in characters stays within the chunk size. A word longer than the
// chunk size becomes a chunk of its own. Hyphenated compounds are single
// words.
//
// Overlap is measured in characters and applied in whole words: the next
// chunk starts with the longest run of trailing words of the previous chunk
// that fits in overlap characters. The run is always shorter than the
// previous chunk, and carried words are dropped from the front when they
// would keep the next new word from fitting.
type WordChunker struct{}

func NewWordChunker() *WordChunker {
	return &WordChunker{}
}

func (c *WordChunker) Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, domain.Invalid("chunk_size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, domain.Invalid("chunk_overlap must not be negative, got %d", overlap)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	// prefix[i] is the total rune count of words[:i].
	prefix := make([]int, len(words)+1)
	for i, w := range words {
		prefix[i+1] = prefix[i] + utf8.RuneCountInString(w)
	}
	// span is the length of words[i:j] joined with single spaces.
	span := func(i, j int) int {
		return prefix[j] - prefix[i] + (j - i - 1)
	}

	var chunks []string
	start, next := 0, 0
	for next < len(words) {
		for start < next && span(start, next+1) > chunkSize {
			start++
		}

		end := next
		for end < len(words) {
			if end > start && span(start, end+1) > chunkSize {
				break
			}
			end++
		}

		chunks = append(chunks, strings.Join(words[start:end], " "))
		next = end
		start = carryStart(span, start, end, overlap)
	}

	return chunks, nil
}

// carryStart returns the index of the first word of chunk [start, end) to be
// repeated at the head of the next chunk. end means no carry.
func carryStart(span func(i, j int) int, start, end, overlap int) int {
	if overlap == 0 {
		return end
	}
	s := end
	for s-1 > start && span(s-1, end) <= overlap {
		s--
	}
	return s
}
