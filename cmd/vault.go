package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/drivevault/drivevault/internal/account"
	"github.com/drivevault/drivevault/internal/drive"
	"github.com/drivevault/drivevault/internal/hardening"
	"github.com/drivevault/drivevault/internal/progress"
	"github.com/drivevault/drivevault/internal/record"
	"github.com/drivevault/drivevault/internal/storage"
	"github.com/drivevault/drivevault/internal/store"
)

// VaultFile is the vault database in the current directory.
const VaultFile = ".drivevault"

const (
	accountsDocument = "accounts.json"
	dataDocument     = "data.json"

	// namespacesKey tracks created namespaces inside the root storage,
	// so passwd can re-encrypt every record without reversing hashes.
	namespacesKey = ".namespaces"
)

var (
	ErrNotInitialized = errors.New("drivevault not initialized")
	ErrAlreadyExists  = errors.New(VaultFile + " already exists in this directory")
)

// Vault binds the drive, the public account storage and the encrypted
// data storage of one vault file.
type Vault struct {
	Drive    *drive.BoltDrive
	Accounts *account.Manager
	Data     *storage.Engine

	Key  *hardening.Key
	User *account.Record
}

// OpenVault opens an existing vault in the current directory.
func OpenVault() (*Vault, error) {
	if _, err := os.Stat(VaultFile); err != nil {
		return nil, ErrNotInitialized
	}
	return openVaultFile()
}

// CreateVault creates a fresh vault in the current directory.
func CreateVault() (*Vault, error) {
	if _, err := os.Stat(VaultFile); err == nil {
		return nil, ErrAlreadyExists
	}
	v, err := openVaultFile()
	if err != nil {
		return nil, err
	}
	if err := v.Drive.Initialize(); err != nil {
		v.Close()
		os.Remove(VaultFile)
		return nil, err
	}
	return v, nil
}

func openVaultFile() (*Vault, error) {
	d, err := drive.OpenBolt(VaultFile)
	if err != nil {
		return nil, err
	}

	accountsEngine := storage.New("accounts", record.NewPlaintextCodec(), drive.NewBackend(d, accountsDocument))
	dataEngine := storage.New("root", record.NewCodec(nil, nil), drive.NewBackend(d, dataDocument))

	return &Vault{
		Drive:    d,
		Accounts: account.NewManager(accountsEngine, hardening.DefaultParams()),
		Data:     dataEngine,
	}, nil
}

// Close releases the vault file.
func (v *Vault) Close() {
	if v.Key != nil {
		v.Key.Destroy()
	}
	v.Drive.Close()
}

// Register creates the vault's account and unlocks the data storage.
func (v *Vault) Register(ctx context.Context, username string, password []byte, tracker *progress.Tracker) error {
	key, rec, err := v.Accounts.Register(ctx, username, string(password), tracker)
	if err != nil {
		return err
	}
	return v.unlock(key, rec)
}

// Login authenticates and unlocks the data storage.
func (v *Vault) Login(ctx context.Context, username string, password []byte, tracker *progress.Tracker) error {
	key, rec, err := v.Accounts.Login(ctx, username, string(password), tracker)
	if err != nil {
		return err
	}
	return v.unlock(key, rec)
}

func (v *Vault) unlock(key *hardening.Key, rec *account.Record) error {
	hmacKey, symKey, err := key.StorageKeys()
	if err != nil {
		key.Destroy()
		return err
	}
	v.Data.AttachKeys(hmacKey, symKey)
	v.Key = key
	v.User = rec
	return nil
}

// Storage resolves a namespace to its engine. Empty means the root.
func (v *Vault) Storage(namespace string) *storage.Engine {
	if namespace == "" {
		return v.Data
	}
	return v.Data.Nested(namespace)
}

// Namespaces returns the restored namespace registry.
func (v *Vault) Namespaces(ctx context.Context) (*store.ArrayStore[string], error) {
	ns := store.NewArray[string](v.Data, namespacesKey, true)
	if err := ns.Restore(ctx); err != nil {
		return nil, err
	}
	return ns, nil
}

// RememberNamespace registers a namespace on first use.
func (v *Vault) RememberNamespace(ctx context.Context, namespace string) error {
	if namespace == "" {
		return nil
	}
	ns, err := v.Namespaces(ctx)
	if err != nil {
		return err
	}
	for _, existing := range ns.Items() {
		if existing == namespace {
			return nil
		}
	}
	return ns.Append(ctx, namespace)
}

func requireLogin(v *Vault) {
	if v.Key == nil {
		fmt.Fprintln(os.Stderr, "Error: vault is locked")
		os.Exit(1)
	}
}

// unlockVault opens the vault in the current directory and logs in,
// exiting with a user-facing message on any failure.
func unlockVault(ctx context.Context) *Vault {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	vaultID, _ := v.Drive.VaultID()
	password := GetPasswordOrExit(vaultID, "Enter password: ")
	defer hardening.ClearBytes(password)

	tracker, stop := hardeningProgress("unlocking vault")
	err = v.Login(ctx, Username(), password, tracker)
	stop()
	if err != nil {
		v.Close()
		HandleError(err)
	}
	return v
}
