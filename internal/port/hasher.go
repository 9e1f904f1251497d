package port

// Hasher computes the content fingerprint used for deduplication.
type Hasher interface {
	Fingerprint(text string) (string, error)
}
