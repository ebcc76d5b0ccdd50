package hardening

import (
	"context"
	"testing"

	"github.com/drivevault/drivevault/internal/fault"
	"github.com/drivevault/drivevault/internal/progress"
)

// testParams keeps hardening fast enough for tests while staying inside
// the validated ranges.
func testParams() Params {
	return Params{Rounds: 2, Iterations: 1 << 16, Memory: 512}
}

func testSalt() []byte {
	salt := make([]byte, SaltSize)
	for i := range salt {
		salt[i] = byte(i)
	}
	return salt
}

func TestHardenDeterministic(t *testing.T) {
	ctx := context.Background()
	password := []byte("correct horse battery staple")
	salt := testSalt()

	k1, p1, err := Harden(ctx, password, salt, testParams(), FormatHex512, nil)
	if err != nil {
		t.Fatalf("First Harden failed: %v", err)
	}
	k2, p2, err := Harden(ctx, password, salt, testParams(), FormatHex512, nil)
	if err != nil {
		t.Fatalf("Second Harden failed: %v", err)
	}

	if k1.Hex() != k2.Hex() {
		t.Error("Identical inputs produced different key material")
	}
	if len(k1.Bytes()) != 64 {
		t.Errorf("Digest length: got %d, want 64", len(k1.Bytes()))
	}
	if p1 != p2 || p1 != testParams() {
		t.Errorf("Effective parameters mismatch: %+v vs %+v", p1, p2)
	}
}

func TestHardenDiffersAcrossInputs(t *testing.T) {
	ctx := context.Background()
	salt := testSalt()

	k1, _, err := Harden(ctx, []byte("password-one"), salt, testParams(), FormatHex512, nil)
	if err != nil {
		t.Fatalf("Harden failed: %v", err)
	}
	k2, _, err := Harden(ctx, []byte("password-two"), salt, testParams(), FormatHex512, nil)
	if err != nil {
		t.Fatalf("Harden failed: %v", err)
	}
	if k1.Hex() == k2.Hex() {
		t.Error("Different passwords produced identical keys")
	}

	otherSalt := testSalt()
	otherSalt[0] ^= 0xFF
	k3, _, err := Harden(ctx, []byte("password-one"), otherSalt, testParams(), FormatHex512, nil)
	if err != nil {
		t.Fatalf("Harden failed: %v", err)
	}
	if k1.Hex() == k3.Hex() {
		t.Error("Different salts produced identical keys")
	}
}

func TestParamValidationBoundaries(t *testing.T) {
	ctx := context.Background()
	password := []byte("pw")
	salt := testSalt()

	cases := []struct {
		name   string
		params Params
		ok     bool
	}{
		{"iterations below floor", Params{Rounds: 2, Iterations: 1<<16 - 1, Memory: 512}, false},
		{"iterations at floor", Params{Rounds: 2, Iterations: 1 << 16, Memory: 512}, true},
		{"memory below floor", Params{Rounds: 2, Iterations: 1 << 16, Memory: 511}, false},
		{"memory not power of two", Params{Rounds: 2, Iterations: 1 << 16, Memory: 1000}, false},
		{"memory at floor", Params{Rounds: 2, Iterations: 1 << 16, Memory: 512}, true},
		{"memory above ceiling", Params{Rounds: 2, Iterations: 1 << 16, Memory: 3 << 30}, false},
		{"rounds below floor", Params{Rounds: 1, Iterations: 1 << 16, Memory: 512}, false},
		{"rounds at floor", Params{Rounds: 2, Iterations: 1 << 16, Memory: 512}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Harden(ctx, password, salt, tc.params, FormatHex512, nil)
			if tc.ok && err != nil {
				t.Fatalf("Expected success, got %v", err)
			}
			if !tc.ok {
				if err == nil {
					t.Fatal("Expected a validation error")
				}
				if !fault.IsCorrectable(err) {
					t.Errorf("Expected correctable error, got %v", err)
				}
			}
		})
	}
}

func TestHardenProgressMonotonic(t *testing.T) {
	var reports []float64
	tracker := progress.New(progress.Func(func(f float64) {
		reports = append(reports, f)
	}))

	_, _, err := Harden(context.Background(), []byte("pw"), testSalt(), testParams(), FormatHex512, tracker)
	if err != nil {
		t.Fatalf("Harden failed: %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("No progress reported")
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Fatalf("Progress went backwards at %d: %v -> %v", i, reports[i-1], reports[i])
		}
	}
	if reports[len(reports)-1] != 1 {
		t.Errorf("Final progress: got %v, want 1", reports[len(reports)-1])
	}
}

func TestHardenAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	key, _, err := Harden(ctx, []byte("pw"), testSalt(), testParams(), FormatHex512, nil)
	if err == nil {
		t.Fatal("Expected abort error")
	}
	if !fault.IsAborted(err) {
		t.Errorf("Expected aborted outcome, got %v", err)
	}
	if key != nil {
		t.Error("Aborted hardening must not return partial key material")
	}
}

func TestDeriveKeyRequiresKDFFormat(t *testing.T) {
	ctx := context.Background()

	raw, _, err := Harden(ctx, []byte("pw"), testSalt(), testParams(), FormatHex512, nil)
	if err != nil {
		t.Fatalf("Harden failed: %v", err)
	}
	if _, err := raw.DeriveKey("purpose", 32); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error for non-KDF key, got %v", err)
	}

	kdf, _, err := Harden(ctx, []byte("pw"), testSalt(), testParams(), FormatKDF, nil)
	if err != nil {
		t.Fatalf("Harden failed: %v", err)
	}
	a, err := kdf.DeriveKey("purpose", 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	b, err := kdf.DeriveKey("purpose", 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if string(a) != string(b) {
		t.Error("Subkey derivation is not deterministic")
	}
	c, err := kdf.DeriveKey("other", 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if string(a) == string(c) {
		t.Error("Distinct purposes produced identical subkeys")
	}

	hmacKey, symKey, err := kdf.StorageKeys()
	if err != nil {
		t.Fatalf("StorageKeys failed: %v", err)
	}
	if len(hmacKey) != 32 || len(symKey) != 32 {
		t.Errorf("Storage key sizes: got %d/%d, want 32/32", len(hmacKey), len(symKey))
	}
	if string(hmacKey) == string(symKey) {
		t.Error("HMAC and symmetric keys must differ")
	}
}

func TestHardenRejectsShortSaltAndEmptyPassword(t *testing.T) {
	ctx := context.Background()

	if _, _, err := Harden(ctx, []byte("pw"), make([]byte, 8), testParams(), FormatHex512, nil); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error for short salt, got %v", err)
	}
	if _, _, err := Harden(ctx, []byte("   "), testSalt(), testParams(), FormatHex512, nil); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error for blank password, got %v", err)
	}
}

func TestNewSalt(t *testing.T) {
	s1, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}
	if len(s1) != SaltSize {
		t.Errorf("Salt size: got %d, want %d", len(s1), SaltSize)
	}
	s2, err := NewSalt()
	if err != nil {
		t.Fatalf("NewSalt failed: %v", err)
	}
	if string(s1) == string(s2) {
		t.Error("Two salts came out identical")
	}
}
