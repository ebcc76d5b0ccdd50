package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/drivevault/drivevault/internal/hardening"
)

const keyringService = "drivevault"

// KeyringGetPassword retrieves the cached passphrase for a vault.
func KeyringGetPassword(vaultID string) (string, error) {
	return keyring.Get(keyringService, vaultID)
}

// KeyringSave verifies the password and caches it in the OS keyring.
func KeyringSave(ctx context.Context) {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	password, err := ReadPassword("Enter password: ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer hardening.ClearBytes(password)

	tracker, stop := hardeningProgress("verifying password")
	err = v.Login(ctx, Username(), password, tracker)
	stop()
	if err != nil {
		HandleError(err)
	}

	vaultID, err := v.Drive.VaultID()
	if err != nil {
		HandleError(err)
	}
	if err := keyring.Set(keyringService, vaultID, string(password)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save to keyring: %s\n", err)
		os.Exit(1)
	}
	successf("Password saved to keyring")
}

// KeyringDelete removes the cached passphrase.
func KeyringDelete() {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	vaultID, err := v.Drive.VaultID()
	if err != nil {
		fmt.Println("No password stored in keyring")
		return
	}
	if err := keyring.Delete(keyringService, vaultID); err != nil {
		fmt.Println("No password stored in keyring")
		return
	}
	fmt.Println("Password removed from keyring")
}

// KeyringStatus reports whether a passphrase is cached.
func KeyringStatus() {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	vaultID, err := v.Drive.VaultID()
	if err != nil {
		fmt.Println("Password: not stored")
		return
	}
	if _, err := keyring.Get(keyringService, vaultID); err == nil {
		fmt.Println("Password: stored in keyring")
	} else {
		fmt.Println("Password: not stored")
	}
}
