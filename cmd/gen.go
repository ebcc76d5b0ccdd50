package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/drivevault/drivevault/internal/hardening"
)

// Gen prints a freshly generated password and its entropy.
func Gen(kind string, length, words int, sep, charset string) {
	var (
		password string
		entropy  float64
		err      error
	)
	switch kind {
	case "key":
		password, err = hardening.GenerateKeyPassword(length)
		entropy = hardening.KeyEntropy(length)
	case "word", "words":
		password, err = hardening.GenerateWordPassword(words, sep)
		entropy = hardening.WordEntropy(words)
	case "char", "chars":
		password, err = hardening.GenerateCharPassword(length, charset)
		size := len(charset)
		if size == 0 {
			size = len(hardening.DefaultCharset)
		}
		entropy = hardening.CharEntropy(length, size)
	default:
		fmt.Fprintf(os.Stderr, "Unknown password kind: %s\nSupported: key, word, char\n", kind)
		os.Exit(1)
	}
	if err != nil {
		HandleError(err)
	}

	fmt.Println(password)
	fmt.Fprintf(os.Stderr, "Entropy: %.1f bits\n", entropy)
}

// Crack benchmarks this machine and estimates how long a brute-force
// search over the given entropy would take a well-funded adversary.
func Crack(ctx context.Context, entropyBits float64) {
	if entropyBits <= 0 {
		fmt.Fprintln(os.Stderr, "Error: entropy must be positive (try 'drivevault gen' to see a password's entropy)")
		os.Exit(1)
	}
	_, stop := hardeningProgress("benchmarking")
	estimate, err := hardening.EstimateTimeToCrack(ctx, entropyBits, hardening.DefaultParams())
	stop()
	if err != nil {
		HandleError(err)
	}
	fmt.Printf("Estimated time to crack: %s\n", estimate)
}
