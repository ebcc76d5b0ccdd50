package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/drivevault/drivevault/internal/storage"
)

// Diff compares a stored value against a local file and prints a
// unified diff. Exits 0 when identical, 1 when they differ.
func Diff(ctx context.Context, namespace, key, path string) {
	v := unlockVault(ctx)
	defer v.Close()
	requireLogin(v)

	stored, err := v.Storage(namespace).Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "Error: key %q not found\n", key)
		os.Exit(1)
	}
	if err != nil {
		HandleError(err)
	}

	local, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %s\n", path, err)
		os.Exit(1)
	}

	diff := unifiedDiff(key, path, stored, string(local))
	if diff == "" {
		fmt.Println("No differences")
		return
	}
	fmt.Print(diff)
	os.Exit(1)
}

// unifiedDiff renders a line-mode diff between the stored and local
// text, or empty when they match.
func unifiedDiff(key, path, stored, local string) string {
	if stored == local {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(stored, local)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(stored, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- vault/%s\n", key))
	result.WriteString(fmt.Sprintf("+++ %s\n", path))
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
