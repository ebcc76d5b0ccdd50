package hardening

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"

	"github.com/drivevault/drivevault/internal/fault"
	"github.com/drivevault/drivevault/internal/progress"
)

// Format selects the output form of Harden.
type Format int

const (
	// FormatHex512 yields only the raw 512-bit digest, exposed as hex.
	FormatHex512 Format = iota
	// FormatKDF additionally makes the digest usable as an HKDF handle
	// for further subkey derivation.
	FormatKDF
)

// Progress weights of the three phases. Deriving the initial bytes is
// cheap; the memory phase dominates.
const (
	deriveWeight = 0.01
	memoryWeight = 0.94
	mixingWeight = 1 - deriveWeight - memoryWeight
)

const (
	derivedLen = 120 // 64-byte HMAC key + 32-byte CBC key + 16-byte IV
	minSuffix  = 512 // smallest mixing-phase salt slice
	injectLen  = 64  // bytes written back per mixing round
)

// Key is hardened key material. Once derived it is immutable and shared
// by reference; callers must never re-derive it implicitly.
type Key struct {
	digest []byte
	format Format
}

// Harden derives strong key material from password and a per-account
// salt. It returns the key and the effective parameters actually used,
// so callers can persist them next to the salt.
//
// The context is checked cooperatively between rounds; an abort unwinds
// without returning or caching partial key material. Progress is
// reported through tracker (nil to discard) in three weighted segments.
func Harden(ctx context.Context, password, salt []byte, params Params, format Format, tracker *progress.Tracker) (*Key, Params, error) {
	if err := params.Validate(); err != nil {
		return nil, Params{}, err
	}
	if len(salt) < 16 {
		return nil, Params{}, fault.Correctablef("hardening: salt must be at least 16 bytes, got %d", len(salt))
	}
	password = bytes.TrimSpace(password)
	if len(password) == 0 {
		return nil, Params{}, fault.Correctablef("hardening: empty password")
	}
	if err := ctx.Err(); err != nil {
		return nil, Params{}, err
	}

	// Phase 1: stretch the password into the HMAC key, CBC key and IV.
	derived := pbkdf2.Key(password, salt, int(params.Iterations), derivedLen, sha512.New)
	defer zero(derived)
	hmacKey := derived[:64]
	iv := make([]byte, aes.BlockSize)
	copy(iv, derived[96:112])
	tracker.Slice(0, deriveWeight).Done()

	block, err := aes.NewCipher(derived[64:96])
	if err != nil {
		return nil, Params{}, fmt.Errorf("hardening: init cipher: %w", err)
	}

	// Phase 2: memory hardening. The buffer starts as repetitions of the
	// derived block and is CBC-encrypted in place each round; between
	// rounds its SHA-256 seeds the next IV.
	buf := make([]byte, params.Memory)
	defer zero(buf)
	for i := 0; i < len(buf); i += derivedLen {
		copy(buf[i:], derived)
	}
	memTracker := tracker.Slice(deriveWeight, memoryWeight)
	rounds := int(params.Rounds)
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, Params{}, err
		}
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf, buf)
		if r < rounds-1 {
			sum := sha256.Sum256(buf)
			copy(iv, sum[:aes.BlockSize])
		}
		memTracker.Report(float64(r+1) / float64(rounds))
	}

	// Phase 3: mixing. Each round derives injectLen bytes from a growing
	// buffer suffix and writes them back at an offset taken from the
	// derived bytes themselves, so the access pattern depends on the
	// data and cannot be precomputed.
	mixTracker := tracker.Slice(deriveWeight+memoryWeight, mixingWeight)
	mask := params.Memory - 1 // Memory is a power of two
	for r := 0; r < rounds; r++ {
		if err := ctx.Err(); err != nil {
			return nil, Params{}, err
		}
		suffix := suffixLen(len(buf), r, rounds)
		mixed := pbkdf2.Key(password, buf[len(buf)-suffix:], int(params.Iterations), injectLen, sha512.New)
		offset := int(binary.BigEndian.Uint32(mixed[:4]) & mask)
		n := copy(buf[offset:], mixed)
		copy(buf, mixed[n:]) // wrap past the end of the buffer
		mixTracker.Report(float64(r+1) / float64(rounds))
	}

	mac := hmac.New(sha512.New, hmacKey)
	mac.Write(buf)
	digest := mac.Sum(nil)
	tracker.Done()

	return &Key{digest: digest, format: format}, params, nil
}

// suffixLen grows the mixing salt linearly from minSuffix toward the
// whole buffer by the final round.
func suffixLen(size, round, rounds int) int {
	n := size * (round + 1) / rounds
	if n < minSuffix {
		n = minSuffix
	}
	if n > size {
		n = size
	}
	return n
}

// Hex returns the 512-bit digest as lowercase hex.
func (k *Key) Hex() string {
	return hex.EncodeToString(k.digest)
}

// Bytes returns the raw digest. Callers must treat it as read-only.
func (k *Key) Bytes() []byte {
	return k.digest
}

// DeriveKey expands n bytes of subkey material bound to info via
// HKDF-SHA-256. Only available for keys hardened with FormatKDF.
func (k *Key) DeriveKey(info string, n int) ([]byte, error) {
	if k.format != FormatKDF {
		return nil, fault.Correctablef("hardening: key was not derived in KDF format")
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, k.digest, nil, []byte(info)), out); err != nil {
		return nil, fmt.Errorf("hardening: expand subkey: %w", err)
	}
	return out, nil
}

// StorageKeys derives the HMAC and symmetric keys that seed a storage
// family's crypto context.
func (k *Key) StorageKeys() (hmacKey, symKey []byte, err error) {
	hmacKey, err = k.DeriveKey("drivevault/storage/hmac", 32)
	if err != nil {
		return nil, nil, err
	}
	symKey, err = k.DeriveKey("drivevault/storage/sym", 32)
	if err != nil {
		return nil, nil, err
	}
	return hmacKey, symKey, nil
}

// Destroy zeroes the digest. The key must not be used afterwards.
func (k *Key) Destroy() {
	zero(k.digest)
}

// ClearBytes zeroes sensitive material such as passwords read from the
// terminal.
func ClearBytes(b []byte) {
	zero(b)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
