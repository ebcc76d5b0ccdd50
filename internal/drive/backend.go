package drive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/drivevault/drivevault/internal/storage"
)

// Backend adapts one named document on a Drive into the storage
// engine's whole-document contract. A document that has never been
// written loads as empty.
type Backend struct {
	drive Drive
	name  string
}

// NewBackend binds a storage backend to the named document.
func NewBackend(d Drive, name string) *Backend {
	return &Backend{drive: d, name: name}
}

func (b *Backend) Load(ctx context.Context) (storage.Document, error) {
	data, err := b.drive.ReadDocument(ctx, b.name)
	if errors.Is(err, ErrNotExist) {
		return storage.Document{}, nil
	}
	if err != nil {
		return nil, err
	}
	var doc storage.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("drive: decode document %s: %w", b.name, err)
	}
	if doc == nil {
		doc = storage.Document{}
	}
	return doc, nil
}

func (b *Backend) Store(ctx context.Context, doc storage.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("drive: encode document %s: %w", b.name, err)
	}
	return b.drive.WriteDocument(ctx, b.name, data)
}
