package hardening

import (
	"math"
	"strings"
	"testing"

	"github.com/drivevault/drivevault/internal/fault"
)

func TestGenerateKeyPasswordConstraints(t *testing.T) {
	for i := 0; i < 50; i++ {
		pw, err := GenerateKeyPassword(14)
		if err != nil {
			t.Fatalf("GenerateKeyPassword failed: %v", err)
		}
		if len(pw) != 14 {
			t.Fatalf("Length: got %d, want 14", len(pw))
		}
		if !strings.ContainsAny(pw, digitChars) {
			t.Errorf("Key password %q has no digit", pw)
		}
		if !strings.ContainsAny(pw, letterChars) {
			t.Errorf("Key password %q has no letter", pw)
		}
		for _, r := range pw {
			if !strings.ContainsRune(KeyCharset, r) {
				t.Errorf("Key password %q contains %q outside charset", pw, r)
			}
		}
	}
}

func TestGenerateKeyPasswordTooShort(t *testing.T) {
	if _, err := GenerateKeyPassword(1); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error, got %v", err)
	}
}

func TestGenerateCharPassword(t *testing.T) {
	pw, err := GenerateCharPassword(20, "")
	if err != nil {
		t.Fatalf("GenerateCharPassword failed: %v", err)
	}
	if len(pw) != 20 {
		t.Errorf("Length: got %d, want 20", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(DefaultCharset, r) {
			t.Errorf("Char password contains %q outside default charset", r)
		}
	}

	pw, err = GenerateCharPassword(8, "ab")
	if err != nil {
		t.Fatalf("GenerateCharPassword failed: %v", err)
	}
	for _, r := range pw {
		if r != 'a' && r != 'b' {
			t.Errorf("Char password contains %q outside custom charset", r)
		}
	}
}

func TestGenerateWordPassword(t *testing.T) {
	pw, err := GenerateWordPassword(4, "-")
	if err != nil {
		t.Fatalf("GenerateWordPassword failed: %v", err)
	}
	parts := strings.Split(pw, "-")
	if len(parts) != 4 {
		t.Fatalf("Word count: got %d, want 4", len(parts))
	}
	for _, w := range parts {
		found := false
		for _, candidate := range wordlist {
			if candidate == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Word %q is not in the wordlist", w)
		}
	}
}

func TestEntropyFormulas(t *testing.T) {
	// char password: log2(charsetSize^length)
	got := CharEntropy(10, 64)
	if got != 60 {
		t.Errorf("CharEntropy(10, 64): got %v, want 60", got)
	}

	// key passwords draw from 62 characters
	want := 14 * math.Log2(62)
	if diff := math.Abs(KeyEntropy(14) - want); diff > 1e-9 {
		t.Errorf("KeyEntropy(14): got %v, want %v", KeyEntropy(14), want)
	}

	// the wordlist holds 256 words, 8 bits each
	if len(wordlist) != 256 {
		t.Fatalf("Wordlist size: got %d, want 256", len(wordlist))
	}
	if WordEntropy(5) != 40 {
		t.Errorf("WordEntropy(5): got %v, want 40", WordEntropy(5))
	}
}

func TestFormatCrackTimeBuckets(t *testing.T) {
	const year = 365.25 * 24 * 3600

	cases := []struct {
		seconds float64
		want    string
	}{
		{30, "less than a minute"},
		{10 * 60, "10 minutes"},
		{5 * 3600, "5 hours"},
		{3 * 24 * 3600, "3 days"},
		{2 * year, "2 years"},
		{3e6 * year, "3 million years"},
		{1e63 * year, "1 vigintillion years"},
	}
	for _, tc := range cases {
		if got := FormatCrackTime(tc.seconds); got != tc.want {
			t.Errorf("FormatCrackTime(%v): got %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
