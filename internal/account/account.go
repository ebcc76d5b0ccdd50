package account

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drivevault/drivevault/internal/hardening"
	"github.com/drivevault/drivevault/internal/progress"
	"github.com/drivevault/drivevault/internal/storage"
)

var (
	ErrUserNotFound       = errors.New("account: user not found")
	ErrUserExists         = errors.New("account: user already exists")
	ErrInvalidCredentials = errors.New("account: invalid credentials")
)

const verifierInfo = "drivevault/account/verifier"

// Record is one account's public material. Everything here is stored
// unencrypted; none of it helps an attacker who lacks the password.
type Record struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	Salt     string           `json:"salt"` // hex
	Params   hardening.Params `json:"params"`
	Verifier string           `json:"verifier"` // hex
	Online   bool             `json:"online"`
	Created  time.Time        `json:"created"`
}

// Manager registers and authenticates accounts against a dedicated
// plaintext storage.
type Manager struct {
	accounts *storage.Engine
	params   hardening.Params
}

// NewManager binds a manager to its account storage. params are used
// for new registrations; existing accounts keep the parameters they
// were created with.
func NewManager(accounts *storage.Engine, params hardening.Params) *Manager {
	return &Manager{accounts: accounts, params: params}
}

// Exists reports whether username is registered.
func (m *Manager) Exists(ctx context.Context, username string) (bool, error) {
	return m.accounts.Has(ctx, username)
}

// Record loads the public account record for username.
func (m *Manager) Record(ctx context.Context, username string) (*Record, error) {
	raw, err := m.accounts.Get(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("account: decode record for %s: %w", username, err)
	}
	return &rec, nil
}

// Register creates an account: fresh salt, hardened key, derived
// verifier. Returns the key so the caller can unlock storage right
// away without hardening twice.
func (m *Manager) Register(ctx context.Context, username, password string, tracker *progress.Tracker) (*hardening.Key, *Record, error) {
	exists, err := m.Exists(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if exists {
		return nil, nil, fmt.Errorf("%w: %s", ErrUserExists, username)
	}

	salt, err := hardening.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	key, params, err := hardening.Harden(ctx, []byte(password), salt, m.params, hardening.FormatKDF, tracker)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := key.DeriveKey(verifierInfo, 32)
	if err != nil {
		key.Destroy()
		return nil, nil, err
	}

	rec := &Record{
		ID:       uuid.NewString(),
		Username: username,
		Salt:     hex.EncodeToString(salt),
		Params:   params,
		Verifier: hex.EncodeToString(verifier),
		Online:   true,
		Created:  time.Now().UTC(),
	}
	if err := m.put(ctx, rec); err != nil {
		key.Destroy()
		return nil, nil, err
	}
	return key, rec, nil
}

// Login re-hardens password with the account's persisted salt and
// parameters and checks the verifier. A wrong password costs a full
// hardening run, which is the point.
func (m *Manager) Login(ctx context.Context, username, password string, tracker *progress.Tracker) (*hardening.Key, *Record, error) {
	rec, err := m.Record(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	salt, err := hex.DecodeString(rec.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("account: decode salt for %s: %w", username, err)
	}
	stored, err := hex.DecodeString(rec.Verifier)
	if err != nil {
		return nil, nil, fmt.Errorf("account: decode verifier for %s: %w", username, err)
	}

	key, _, err := hardening.Harden(ctx, []byte(password), salt, rec.Params, hardening.FormatKDF, tracker)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := key.DeriveKey(verifierInfo, 32)
	if err != nil {
		key.Destroy()
		return nil, nil, err
	}
	if subtle.ConstantTimeCompare(verifier, stored) != 1 {
		key.Destroy()
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidCredentials, username)
	}

	rec.Online = true
	if err := m.put(ctx, rec); err != nil {
		key.Destroy()
		return nil, nil, err
	}
	return key, rec, nil
}

// Logout clears the online flag.
func (m *Manager) Logout(ctx context.Context, username string) error {
	rec, err := m.Record(ctx, username)
	if err != nil {
		return err
	}
	rec.Online = false
	return m.put(ctx, rec)
}

// Rotate replaces an account's salt, parameters and verifier for a new
// password, keeping the account ID. The caller re-encrypts stored data
// with the returned key.
func (m *Manager) Rotate(ctx context.Context, username, newPassword string, tracker *progress.Tracker) (*hardening.Key, *Record, error) {
	rec, err := m.Record(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	salt, err := hardening.NewSalt()
	if err != nil {
		return nil, nil, err
	}
	key, params, err := hardening.Harden(ctx, []byte(newPassword), salt, m.params, hardening.FormatKDF, tracker)
	if err != nil {
		return nil, nil, err
	}
	verifier, err := key.DeriveKey(verifierInfo, 32)
	if err != nil {
		key.Destroy()
		return nil, nil, err
	}

	rec.Salt = hex.EncodeToString(salt)
	rec.Params = params
	rec.Verifier = hex.EncodeToString(verifier)
	if err := m.put(ctx, rec); err != nil {
		key.Destroy()
		return nil, nil, err
	}
	return key, rec, nil
}

func (m *Manager) put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("account: encode record for %s: %w", rec.Username, err)
	}
	return m.accounts.Set(ctx, rec.Username, string(data))
}
