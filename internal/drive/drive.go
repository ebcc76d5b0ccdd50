package drive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotExist reports a document that has never been written.
var ErrNotExist = errors.New("drive: document does not exist")

// Drive stores named documents as opaque byte blobs. Writes must be
// atomic: a crash mid-write leaves either the old or the new content,
// never a mix.
type Drive interface {
	ReadDocument(ctx context.Context, name string) ([]byte, error)
	WriteDocument(ctx context.Context, name string, data []byte) error
	RemoveDocument(ctx context.Context, name string) error
}

// FileDrive keeps each document as one file in a directory. Replacement
// goes through a temp file and rename on the same filesystem.
type FileDrive struct {
	dir string
}

// NewFileDrive creates the directory if needed and returns a drive
// rooted there.
func NewFileDrive(dir string) (*FileDrive, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("drive: create directory: %w", err)
	}
	return &FileDrive{dir: dir}, nil
}

func (d *FileDrive) path(name string) string {
	return filepath.Join(d.dir, filepath.Base(name))
}

func (d *FileDrive) ReadDocument(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotExist, name)
	}
	if err != nil {
		return nil, fmt.Errorf("drive: read %s: %w", name, err)
	}
	return data, nil
}

func (d *FileDrive) WriteDocument(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := d.path(name)
	tmp, err := os.CreateTemp(d.dir, filepath.Base(name)+".tmp-*")
	if err != nil {
		return fmt.Errorf("drive: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("drive: write %s: %w", name, err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("drive: chmod %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("drive: close %s: %w", name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("drive: replace %s: %w", name, err)
	}
	return nil
}

func (d *FileDrive) RemoveDocument(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(d.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("drive: remove %s: %w", name, err)
	}
	return nil
}
