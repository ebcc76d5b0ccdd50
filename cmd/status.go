package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
)

// Status prints public vault information. No password required: it only
// reads the unencrypted drive config and the account record.
func Status(ctx context.Context) {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	info, err := os.Stat(VaultFile)
	if err != nil {
		HandleError(err)
	}

	bold := color.New(color.Bold)
	bold.Println("Vault status")

	if vaultID, err := v.Drive.VaultID(); err == nil {
		fmt.Printf("  ID:        %s\n", vaultID)
	}
	fmt.Printf("  File:      %s (%d bytes)\n", VaultFile, info.Size())
	if created, err := v.Drive.Created(); err == nil {
		fmt.Printf("  Created:   %s\n", created.Format("2006-01-02 15:04:05"))
	}
	if modified, err := v.Drive.Modified(); err == nil {
		fmt.Printf("  Modified:  %s\n", modified.Format("2006-01-02 15:04:05"))
	}

	rec, err := v.Accounts.Record(ctx, Username())
	if err != nil {
		fmt.Printf("  Account:   %s (not registered)\n", Username())
		return
	}
	fmt.Printf("  Account:   %s\n", rec.Username)
	fmt.Printf("  Hardening: %d rounds, %d iterations, %d bytes memory\n",
		rec.Params.Rounds, rec.Params.Iterations, rec.Params.Memory)

	if cached := keyringCached(v); cached {
		color.Green("  Password:  cached in OS keyring")
	} else {
		fmt.Println("  Password:  not cached")
	}
}

func keyringCached(v *Vault) bool {
	vaultID, err := v.Drive.VaultID()
	if err != nil {
		return false
	}
	_, err = KeyringGetPassword(vaultID)
	return err == nil
}

// Compact rewrites the vault file to reclaim free space.
func Compact(ctx context.Context) {
	v, err := OpenVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	before, _ := os.Stat(VaultFile)
	if err := v.Drive.Compact(); err != nil {
		HandleError(err)
	}
	after, _ := os.Stat(VaultFile)
	if before != nil && after != nil {
		successf("Compacted: %d -> %d bytes", before.Size(), after.Size())
		return
	}
	successf("Compacted")
}
