package record

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/drivevault/drivevault/internal/fault"
)

const (
	// KeySize is the AES-256 symmetric key size.
	KeySize = 32
	// HMACKeySize is the index hashing key size.
	HMACKeySize = 32

	nonceSize = 12
	tagSize   = 16
)

// Codec is the crypto context of one storage family: an HMAC key for
// index hashing and a symmetric key for value encryption. Keys may be
// attached after construction, because nested storages are created
// before the user logs in.
//
// Plaintext mode disables value encryption entirely. It is an explicit
// debugging/compliance mode chosen at construction and never a fallback:
// encrypting without a symmetric key outside plaintext mode is a
// correctable error.
type Codec struct {
	mu      sync.RWMutex
	hmacKey []byte
	symKey  []byte

	plaintext bool
}

// NewCodec creates a codec. Either key may be nil and attached later.
func NewCodec(hmacKey, symKey []byte) *Codec {
	return &Codec{hmacKey: hmacKey, symKey: symKey}
}

// NewPlaintextCodec creates a codec that base64s values without
// encrypting them. Used only for records that are public by design,
// such as account hardening parameters.
func NewPlaintextCodec() *Codec {
	return &Codec{plaintext: true}
}

// AttachKeys seeds or replaces the crypto context.
func (c *Codec) AttachKeys(hmacKey, symKey []byte) {
	c.mu.Lock()
	c.hmacKey = hmacKey
	c.symKey = symKey
	c.mu.Unlock()
}

// HasKeys reports whether an HMAC key is attached. Hashes computed
// before and after attachment differ.
func (c *Codec) HasKeys() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.hmacKey) > 0
}

// Plaintext reports whether value encryption is disabled.
func (c *Codec) Plaintext() bool {
	return c.plaintext
}

// Hash returns a base62 digest of s. With an HMAC key attached this is
// HMAC-SHA-256 over a length-prefixed encoding; without one it degrades
// to a plain SHA-256 digest usable before login.
func (c *Codec) Hash(s string) string {
	c.mu.RLock()
	key := c.hmacKey
	c.mu.RUnlock()

	data := []byte(s)
	if len(key) == 0 {
		sum := sha256.Sum256(data)
		return encodeBase62(sum[:])
	}

	mac := hmac.New(sha256.New, key)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(data)))
	mac.Write(n[:])
	mac.Write(data)
	return encodeBase62(mac.Sum(nil))
}

// Encrypt serialises value for persistence: AES-256-GCM then base64, or
// base64 of the plaintext when plaintext mode is active.
func (c *Codec) Encrypt(value string) (string, error) {
	if c.plaintext {
		return base64.StdEncoding.EncodeToString([]byte(value)), nil
	}

	c.mu.RLock()
	key := c.symKey
	c.mu.RUnlock()
	if len(key) == 0 {
		return "", fault.Correctablef("record: encrypt without a symmetric key; attach keys or construct a plaintext codec")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("record: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("record: create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("record: generate nonce: %w", err)
	}

	out := gcm.Seal(nonce, nonce, []byte(value), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt is the inverse of Encrypt, selecting the path by the same
// plaintext-mode flag. Authentication failures surface as corruption.
func (c *Codec) Decrypt(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("record: decode value: %w", err)
	}
	if c.plaintext {
		return string(raw), nil
	}

	c.mu.RLock()
	key := c.symKey
	c.mu.RUnlock()
	if len(key) == 0 {
		return "", fault.Correctablef("record: decrypt without a symmetric key; attach keys or construct a plaintext codec")
	}

	if len(raw) < nonceSize+tagSize {
		return "", fmt.Errorf("record: %w: ciphertext too short", fault.ErrCorrupted)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("record: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("record: create GCM: %w", err)
	}

	plain, err := gcm.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("record: %w: authentication failed", fault.ErrCorrupted)
	}
	return string(plain), nil
}
