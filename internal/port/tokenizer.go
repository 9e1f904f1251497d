package port

// Tokenizer turns text into the normalized terms used for feature hashing
// and match highlighting.
type Tokenizer interface {
	Tokenize(text string) []string
}
