package hardening

import (
	"crypto/rand"
	"fmt"

	"github.com/drivevault/drivevault/internal/fault"
)

const (
	// MinIterations is the PBKDF2 floor (2^16).
	MinIterations = 1 << 16
	// MinMemory and MaxMemory bound the hardening buffer size in bytes.
	// Memory must be a power of two so derived offsets can be masked
	// into range. The ceiling is 2^31: the buffer is a byte slice, and
	// larger sizes overflow int on 32-bit platforms.
	MinMemory = 512
	MaxMemory = 1 << 31
	// MinRounds is the floor for both the memory and mixing phases.
	MinRounds = 2

	// SaltSize is 1024 bits. A salt is generated once per account and
	// reused only for that account.
	SaltSize = 128
)

// Params are the public hardening parameters. They are persisted
// unencrypted alongside the salt so the key can be re-derived at login.
type Params struct {
	Rounds     uint32 `json:"rounds"`
	Iterations uint32 `json:"iterations"`
	Memory     uint32 `json:"memory"`
}

// DefaultParams returns the parameters used for new accounts.
func DefaultParams() Params {
	return Params{Rounds: 8, Iterations: 1 << 17, Memory: 1 << 22}
}

// Validate reports parameter violations as correctable errors: they are
// configuration bugs to fix, not runtime conditions to handle.
func (p Params) Validate() error {
	if p.Iterations < MinIterations {
		return fault.Correctablef("hardening: iterations %d below minimum %d", p.Iterations, MinIterations)
	}
	if p.Memory < MinMemory || p.Memory > MaxMemory {
		return fault.Correctablef("hardening: memory %d outside [%d, %d]", p.Memory, MinMemory, MaxMemory)
	}
	if p.Memory&(p.Memory-1) != 0 {
		return fault.Correctablef("hardening: memory %d is not a power of two", p.Memory)
	}
	if p.Rounds < MinRounds {
		return fault.Correctablef("hardening: rounds %d below minimum %d", p.Rounds, MinRounds)
	}
	return nil
}

// NewSalt returns a fresh 1024-bit random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("hardening: generate salt: %w", err)
	}
	return salt, nil
}
