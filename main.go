package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/drivevault/drivevault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "set":
		runSet(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "keys":
		runKeys(ctx, os.Args[2:])
	case "clear":
		runClear(ctx, os.Args[2:])
	case "find":
		runFind(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "gen":
		runGen(ctx, os.Args[2:])
	case "crack":
		runCrack(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Init(ctx)
}

func runSet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to write into")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault set [-ns <namespace>] <key> <value>")
		os.Exit(1)
	}

	cmd.Set(ctx, *ns, fs.Arg(0), fs.Arg(1))
}

func runGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to read from")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault get [-ns <namespace>] <key>")
		os.Exit(1)
	}

	cmd.Get(ctx, *ns, fs.Arg(0))
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to remove from")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault rm [-ns <namespace>] <key>")
		os.Exit(1)
	}

	cmd.Remove(ctx, *ns, fs.Arg(0))
}

func runKeys(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("keys", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to list")
	deep := fs.Bool("deep", false, "Include keys of all nested namespaces")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Keys(ctx, *ns, *deep)
}

func runClear(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to clear")
	deep := fs.Bool("deep", false, "Also clear all nested namespaces")
	force := fs.Bool("force", false, "Clear without confirmation")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Clear(ctx, *ns, *deep, *force)
}

func runFind(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("find", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to search")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault find [-ns <namespace>] <query>")
		os.Exit(1)
	}

	cmd.Find(ctx, *ns, fs.Arg(0))
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Passwd(ctx)
}

func runGen(_ context.Context, args []string) {
	fs := flag.NewFlagSet("gen", flag.ExitOnError)
	kind := fs.String("kind", "key", "Password kind: key, word or char")
	length := fs.Int("length", 16, "Character count for key/char passwords")
	words := fs.Int("words", 5, "Word count for word passwords")
	sep := fs.String("sep", "-", "Word separator for word passwords")
	charset := fs.String("charset", "", "Custom alphabet for char passwords")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Gen(*kind, *length, *words, *sep, *charset)
}

func runCrack(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("crack", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault crack <entropy-bits>")
		os.Exit(1)
	}
	entropy, err := strconv.ParseFloat(fs.Arg(0), 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid entropy %q\n", fs.Arg(0))
		os.Exit(1)
	}

	cmd.Crack(ctx, entropy)
}

func runDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	ns := fs.String("ns", "", "Namespace (nested storage) to read from")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault diff [-ns <namespace>] <key> <file>")
		os.Exit(1)
	}

	cmd.Diff(ctx, *ns, fs.Arg(0), fs.Arg(1))
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Status(ctx)
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}

	cmd.Compact(ctx)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault keyring <save|delete|status>")
		os.Exit(1)
	}
	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx)
	case "delete":
		cmd.KeyringDelete()
	case "status":
		cmd.KeyringStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: drivevault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("drivevault - Encrypted key-value vault with hardened passwords")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  drivevault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a .drivevault vault in current directory")
	fmt.Println("  set         Store a value under a key")
	fmt.Println("  get         Print a stored value")
	fmt.Println("  rm          Remove a key")
	fmt.Println("  keys        List keys")
	fmt.Println("  clear       Remove all keys in a namespace")
	fmt.Println("  find        Search keys and values")
	fmt.Println("  passwd      Change vault password (re-encrypts all records)")
	fmt.Println("  gen         Generate a password")
	fmt.Println("  crack       Estimate time to crack a password of given entropy")
	fmt.Println("  diff        Compare a stored value with a local file")
	fmt.Println("  status      Show vault status")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  keyring     Manage password in OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  drivevault init                       # Create new vault")
	fmt.Println("  drivevault set api_token abc123       # Store a secret")
	fmt.Println("  drivevault get -ns prod api_token     # Read from a namespace")
	fmt.Println("  drivevault keys -deep                 # List everything")
	fmt.Println()
	fmt.Println("Use 'drivevault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("drivevault init")
		fmt.Println()
		fmt.Println("Creates a .drivevault vault file in the current directory.")
		fmt.Println("Prompts for a password that is hardened into the encryption key.")
		fmt.Println("The password is not stored anywhere - you must remember it.")
	case "set":
		fmt.Println("drivevault set [-ns <namespace>] <key> <value>")
		fmt.Println()
		fmt.Println("Encrypts and stores a value under a key.")
		fmt.Println("Namespaces are nested storages; they are created on first use.")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  drivevault set api_token abc123")
		fmt.Println("  drivevault set -ns prod db_password hunter2")
	case "get":
		fmt.Println("drivevault get [-ns <namespace>] <key>")
		fmt.Println()
		fmt.Println("Decrypts and prints a stored value to stdout.")
	case "rm":
		fmt.Println("drivevault rm [-ns <namespace>] <key>")
		fmt.Println()
		fmt.Println("Removes a key from the vault.")
	case "keys":
		fmt.Println("drivevault keys [-ns <namespace>] [-deep]")
		fmt.Println()
		fmt.Println("Lists keys in a namespace, sorted.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -deep    Include keys of all nested namespaces")
	case "clear":
		fmt.Println("drivevault clear [-ns <namespace>] [-deep] [-force]")
		fmt.Println()
		fmt.Println("Removes all keys in a namespace.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -deep     Also clear all nested namespaces")
		fmt.Println("  -force    Clear without confirmation")
	case "find":
		fmt.Println("drivevault find [-ns <namespace>] <query>")
		fmt.Println()
		fmt.Println("Prints key=value pairs whose key or value contains the query.")
		fmt.Println("Decrypts every record in the namespace; intended for occasional use.")
	case "passwd":
		fmt.Println("drivevault passwd")
		fmt.Println()
		fmt.Println("Changes the vault password.")
		fmt.Println("Requires both the current and new passwords.")
		fmt.Println("Re-encrypts all records with the new key and compacts the vault.")
	case "gen":
		fmt.Println("drivevault gen [-kind key|word|char] [-length n] [-words n] [-sep s] [-charset s]")
		fmt.Println()
		fmt.Println("Generates a password and prints its entropy to stderr.")
		fmt.Println()
		fmt.Println("Kinds:")
		fmt.Println("  key     Alphanumeric with at least one digit and one letter (default)")
		fmt.Println("  word    Random words joined by a separator")
		fmt.Println("  char    Uniform draw from a charset")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  drivevault gen -length 20")
		fmt.Println("  drivevault gen -kind word -words 6")
	case "crack":
		fmt.Println("drivevault crack <entropy-bits>")
		fmt.Println()
		fmt.Println("Benchmarks key hardening on this machine and estimates how long")
		fmt.Println("a brute-force search over the given entropy would take an")
		fmt.Println("adversary a billion times faster.")
		fmt.Println()
		fmt.Println("Example:")
		fmt.Println("  drivevault crack 95.3")
	case "diff":
		fmt.Println("drivevault diff [-ns <namespace>] <key> <file>")
		fmt.Println()
		fmt.Println("Compares a stored value with a local file and prints a diff.")
		fmt.Println("Exits 0 when identical, 1 when they differ.")
	case "status":
		fmt.Println("drivevault status")
		fmt.Println()
		fmt.Println("Shows vault ID, timestamps, account and hardening parameters.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "compact":
		fmt.Println("drivevault compact")
		fmt.Println()
		fmt.Println("Compacts the .drivevault database to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'passwd', but can be run")
		fmt.Println("manually if needed.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("drivevault keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the vault password in the OS keyring, keyed by vault ID.")
		fmt.Println("A cached password is used automatically instead of prompting.")
	case "completion":
		fmt.Println("drivevault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(drivevault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(drivevault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  drivevault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
