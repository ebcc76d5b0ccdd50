package cmd

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/drivevault/drivevault/internal/account"
	"github.com/drivevault/drivevault/internal/progress"
)

// PasswordEnv overrides all prompting when set.
const PasswordEnv = "DRIVEVAULT_PASSWORD"

// UserEnv selects the account; most vaults have exactly one.
const UserEnv = "DRIVEVAULT_USER"

// DefaultUser is the account name used when none is configured.
const DefaultUser = "default"

// Username returns the configured account name.
func Username() string {
	if u := os.Getenv(UserEnv); u != "" {
		return u
	}
	return DefaultUser
}

// ReadPassword reads a password from the terminal without echoing.
func ReadPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}

// ReadPasswordConfirm reads a password twice and ensures they match.
func ReadPasswordConfirm() ([]byte, error) {
	password1, err := ReadPassword("Enter password: ")
	if err != nil {
		return nil, err
	}
	password2, err := ReadPassword("Confirm password: ")
	if err != nil {
		return nil, err
	}
	if string(password1) != string(password2) {
		return nil, fmt.Errorf("passwords do not match")
	}
	return password1, nil
}

// GetPasswordFromEnv reads the password override, returning a copy so it
// can be cleared independently.
func GetPasswordFromEnv() []byte {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil
	}
	result := make([]byte, len(password))
	copy(result, password)
	return result
}

// GetPassword resolves a password: environment, then OS keyring for the
// given vault ID, then a terminal prompt. The caller must clear the
// returned bytes.
func GetPassword(vaultID, prompt string) ([]byte, error) {
	if password := GetPasswordFromEnv(); password != nil {
		return password, nil
	}
	if vaultID != "" {
		if cached, err := KeyringGetPassword(vaultID); err == nil {
			return []byte(cached), nil
		}
	}
	return ReadPassword(prompt)
}

// GetPasswordOrExit is like GetPassword but exits on error.
func GetPasswordOrExit(vaultID, prompt string) []byte {
	password, err := GetPassword(vaultID, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return password
}

// HandleError reports common errors consistently and exits.
func HandleError(err error) {
	switch {
	case errors.Is(err, ErrNotInitialized):
		fmt.Fprintln(os.Stderr, "Error: drivevault not initialized")
		fmt.Fprintln(os.Stderr, "Run 'drivevault init' first")
	case errors.Is(err, ErrAlreadyExists):
		fmt.Fprintf(os.Stderr, "Error: %s already exists in this directory\n", VaultFile)
		fmt.Fprintln(os.Stderr, "Use 'drivevault status' to see current state")
	case errors.Is(err, account.ErrInvalidCredentials):
		fmt.Fprintln(os.Stderr, "Error: wrong password")
	case errors.Is(err, account.ErrUserNotFound):
		fmt.Fprintln(os.Stderr, "Error: account not found")
		fmt.Fprintln(os.Stderr, "Run 'drivevault init' first")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// hardeningProgress shows a spinner with a live percentage while a key
// is being hardened. The stop function must be called before any other
// terminal output.
func hardeningProgress(label string) (*progress.Tracker, func()) {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil, func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + label
	s.Color("cyan")
	s.Start()
	tracker := progress.New(progress.Func(func(fraction float64) {
		s.Suffix = fmt.Sprintf(" %s %3.0f%%", label, fraction*100)
	}))
	return tracker, s.Stop
}

func successf(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(os.Stdout, format+"\n", args...)
}
