package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/drivevault/drivevault/internal/hardening"
)

// Passwd rotates the vault password: everything is read out under the
// old key, the account gets fresh salt and verifier, and all records
// are re-encrypted under the new key. Hashed physical keys cannot be
// reversed, so only namespaces tracked in the registry survive; that
// registry is maintained by every write path.
func Passwd(ctx context.Context) {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	current, err := ReadPassword("Current password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer hardening.ClearBytes(current)

	tracker, stop := hardeningProgress("verifying password")
	err = v.Login(ctx, Username(), current, tracker)
	stop()
	if err != nil {
		HandleError(err)
	}

	// Snapshot every storage while the old keys are attached.
	namespaces, err := v.Namespaces(ctx)
	if err != nil {
		HandleError(err)
	}
	names := append([]string{""}, namespaces.Items()...)
	contents := make(map[string]map[string]string, len(names))
	for _, name := range names {
		pairs, err := v.Storage(name).Find(ctx, nil)
		if err != nil {
			HandleError(err)
		}
		delete(pairs, namespacesKey)
		contents[name] = pairs
	}

	newPassword, err := ReadPasswordConfirm()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer hardening.ClearBytes(newPassword)

	tracker, stop = hardeningProgress("hardening new key")
	key, rec, err := v.Accounts.Rotate(ctx, Username(), string(newPassword), tracker)
	stop()
	if err != nil {
		HandleError(err)
	}

	// Drop the old ciphertext, switch keys, write everything back.
	if err := v.Data.Clear(ctx, true); err != nil {
		HandleError(err)
	}
	if err := v.unlock(key, rec); err != nil {
		HandleError(err)
	}
	for name, pairs := range contents {
		if len(pairs) == 0 {
			continue
		}
		if err := v.RememberNamespace(ctx, name); err != nil {
			HandleError(err)
		}
		if err := v.Storage(name).SetAll(ctx, pairs); err != nil {
			HandleError(err)
		}
	}

	if salt, err := hex.DecodeString(rec.Salt); err == nil {
		if err := v.Drive.SetSalt(salt); err != nil {
			HandleError(err)
		}
	}
	if err := v.Drive.SetParams(rec.Params); err != nil {
		HandleError(err)
	}
	if err := v.Drive.Compact(); err != nil {
		HandleError(err)
	}
	successf("Password changed; %d namespaces re-encrypted", len(names))
}
