package cmd

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/drivevault/drivevault/internal/hardening"
)

// Init creates a vault in the current directory and registers its
// account.
func Init(ctx context.Context) {
	v, err := CreateVault()
	if err != nil {
		HandleError(err)
	}
	defer v.Close()

	password := GetPasswordFromEnv()
	if password == nil {
		password, err = ReadPasswordConfirm()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Remove(VaultFile)
			os.Exit(1)
		}
	}
	defer hardening.ClearBytes(password)

	tracker, stop := hardeningProgress("hardening key")
	err = v.Register(ctx, Username(), password, tracker)
	stop()
	if err != nil {
		os.Remove(VaultFile)
		HandleError(err)
	}

	// Mirror the public hardening material into the drive config so
	// status can show it without touching the storage layer.
	salt, err := hex.DecodeString(v.User.Salt)
	if err == nil {
		if err := v.Drive.SetSalt(salt); err != nil {
			HandleError(err)
		}
	}
	if err := v.Drive.SetParams(v.User.Params); err != nil {
		HandleError(err)
	}

	vaultID, err := v.Drive.VaultID()
	if err != nil {
		HandleError(err)
	}

	successf("Vault created in %s", VaultFile)
	fmt.Printf("Vault ID: %s\n", vaultID)
	fmt.Printf("Account:  %s\n", v.User.Username)
	fmt.Println("The password is not stored anywhere - you must remember it.")
}
