package hardening

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/drivevault/drivevault/internal/fault"
)

const (
	digitChars  = "0123456789"
	letterChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// KeyCharset is the alphabet of key-type passwords.
	KeyCharset = digitChars + letterChars
	// DefaultCharset is the printable alphabet used by
	// GenerateCharPassword when no charset is given.
	DefaultCharset = KeyCharset + "!#$%&()*+,-./:;<=>?@[]^_{|}~"

	maxGenerateRetries = 100
)

// GenerateKeyPassword returns an n-character alphanumeric password
// containing at least one digit and at least one letter. Candidates are
// rejection-sampled; after 100 attempts without a valid candidate an
// error is returned.
func GenerateKeyPassword(n int) (string, error) {
	if n < 2 {
		return "", fault.Correctablef("hardening: key password length %d too short, need at least 2", n)
	}
	for attempt := 0; attempt < maxGenerateRetries; attempt++ {
		pw, err := randomString(n, KeyCharset)
		if err != nil {
			return "", err
		}
		if strings.ContainsAny(pw, digitChars) && strings.ContainsAny(pw, letterChars) {
			return pw, nil
		}
	}
	return "", fmt.Errorf("hardening: no valid key password after %d attempts", maxGenerateRetries)
}

// GenerateCharPassword returns an n-character password drawn uniformly
// from charset, or DefaultCharset when charset is empty.
func GenerateCharPassword(n int, charset string) (string, error) {
	if n < 1 {
		return "", fault.Correctablef("hardening: char password length %d too short", n)
	}
	if charset == "" {
		charset = DefaultCharset
	}
	return randomString(n, charset)
}

// GenerateWordPassword joins count random wordlist entries with sep.
func GenerateWordPassword(count int, sep string) (string, error) {
	if count < 1 {
		return "", fault.Correctablef("hardening: word password needs at least 1 word, got %d", count)
	}
	words := make([]string, count)
	max := big.NewInt(int64(len(wordlist)))
	for i := range words {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("hardening: random word index: %w", err)
		}
		words[i] = wordlist[idx.Int64()]
	}
	return strings.Join(words, sep), nil
}

func randomString(n int, charset string) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(charset)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("hardening: random index: %w", err)
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}

// CharEntropy returns log2(charsetSize^length) bits.
func CharEntropy(length, charsetSize int) float64 {
	return float64(length) * math.Log2(float64(charsetSize))
}

// KeyEntropy is the entropy of a key-type password of the given length.
func KeyEntropy(length int) float64 {
	return CharEntropy(length, len(KeyCharset))
}

// WordEntropy returns log2(wordlistSize^words) bits.
func WordEntropy(words int) float64 {
	return float64(words) * math.Log2(float64(len(wordlist)))
}
