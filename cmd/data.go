package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/drivevault/drivevault/internal/storage"
)

// Set writes one key into the given namespace ("" for the root).
func Set(ctx context.Context, namespace, key, value string) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	if err := v.RememberNamespace(ctx, namespace); err != nil {
		HandleError(err)
	}
	if err := v.Storage(namespace).Set(ctx, key, value); err != nil {
		HandleError(err)
	}
	successf("Stored %s", key)
}

// Get prints one value to stdout.
func Get(ctx context.Context, namespace, key string) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	value, err := v.Storage(namespace).Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error: key %q not found\n", key)
		os.Exit(1)
	}
	if err != nil {
		HandleError(err)
	}
	fmt.Println(value)
}

// Remove deletes one key.
func Remove(ctx context.Context, namespace, key string) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	eng := v.Storage(namespace)
	exists, err := eng.Has(ctx, key)
	if err != nil {
		HandleError(err)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "Error: key %q not found\n", key)
		os.Exit(1)
	}
	if err := eng.Remove(ctx, key); err != nil {
		HandleError(err)
	}
	successf("Removed %s", key)
}

// Keys lists the keys of a namespace, optionally with every nested
// namespace below it.
func Keys(ctx context.Context, namespace string, deep bool) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	keys, err := v.Storage(namespace).Keys(ctx, deep)
	if err != nil {
		HandleError(err)
	}
	for _, key := range keys {
		if key == namespacesKey {
			continue
		}
		fmt.Println(key)
	}
}

// Find prints key/value pairs whose key or value contains the query.
func Find(ctx context.Context, namespace, query string) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	matches, err := v.Storage(namespace).Find(ctx, func(key, value string) bool {
		if key == namespacesKey {
			return false
		}
		return strings.Contains(key, query) || strings.Contains(value, query)
	})
	if err != nil {
		HandleError(err)
	}
	for key, value := range matches {
		fmt.Printf("%s=%s\n", key, value)
	}
}

// Clear removes every key of a namespace. Deep mode also clears all
// nested namespaces; on the root that means the whole vault content.
func Clear(ctx context.Context, namespace string, deep, force bool) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	if !force {
		scope := "namespace " + namespace
		if namespace == "" {
			scope = "the root namespace"
		}
		if deep {
			scope += " and everything below it"
		}
		fmt.Fprintf(os.Stderr, "This removes all keys in %s. Continue? [y/N] ", scope)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(os.Stderr, "Aborted")
			os.Exit(1)
		}
	}

	if err := v.Storage(namespace).Clear(ctx, deep); err != nil {
		HandleError(err)
	}
	successf("Cleared")
}
