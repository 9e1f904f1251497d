package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode/utf8"

	"docindex/internal/domain"
)

// SHA256 fingerprints text as the lowercase hex SHA-256 of its UTF-8 bytes.
type SHA256 struct{}

func New() SHA256 {
	return SHA256{}
}

func (SHA256) Fingerprint(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", domain.Invalid("text is not valid UTF-8")
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]), nil
}
