package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/drivevault/drivevault/internal/fault"
)

// Tx is the only handle available inside a transaction. It reuses the
// engine's internals without re-acquiring the family queue, so a
// transaction body cannot deadlock against itself. Operations issued
// through the handle are serialized on the transaction's own queue:
// concurrent calls from inside the callback run back-to-back, never
// interleaving their read-modify-write cycles.
type Tx struct {
	engine *Engine
	queue  *Queue

	mu   sync.Mutex
	done bool
}

// Transaction runs fn while holding the family's queue turn, so no
// other operation interleaves with the callback's reads and writes.
// There is no rollback: writes made before fn fails stay committed.
func (e *Engine) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	tx := &Tx{engine: e, queue: NewQueue()}
	defer tx.close()
	return fn(tx)
}

func (tx *Tx) close() {
	tx.mu.Lock()
	tx.done = true
	tx.mu.Unlock()
}

// acquire takes a turn on the transaction's queue and guards against
// Tx handles escaping their callback.
func (tx *Tx) acquire(ctx context.Context) (func(), error) {
	release, err := tx.queue.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	tx.mu.Lock()
	done := tx.done
	tx.mu.Unlock()
	if done {
		release()
		return nil, fault.Correctablef("storage: transaction used after completion")
	}
	return release, nil
}

// Get reads key within the transaction.
func (tx *Tx) Get(ctx context.Context, key string) (string, error) {
	release, err := tx.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return tx.engine.get(ctx, key)
}

// GetOr reads key, returning fallback when absent.
func (tx *Tx) GetOr(ctx context.Context, key, fallback string) (string, error) {
	v, err := tx.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	return v, err
}

// Has reports whether key exists within the transaction.
func (tx *Tx) Has(ctx context.Context, key string) (bool, error) {
	_, err := tx.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Set writes key within the transaction.
func (tx *Tx) Set(ctx context.Context, key, value string) error {
	return tx.SetAll(ctx, map[string]string{key: value})
}

// SetAll writes all entries in one physical read-modify-write.
func (tx *Tx) SetAll(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	release, err := tx.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return tx.engine.setAll(ctx, entries)
}

// Remove deletes key within the transaction.
func (tx *Tx) Remove(ctx context.Context, key string) error {
	release, err := tx.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return tx.engine.remove(ctx, key)
}

// Find scans this storage's records within the transaction.
func (tx *Tx) Find(ctx context.Context, pred func(key, value string) bool) (map[string]string, error) {
	release, err := tx.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return tx.engine.find(ctx, pred)
}

// Keys lists logical keys within the transaction.
func (tx *Tx) Keys(ctx context.Context, deep bool) ([]string, error) {
	release, err := tx.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return tx.engine.keys(ctx, deep)
}

// Clear removes this storage's records within the transaction.
func (tx *Tx) Clear(ctx context.Context, deep bool) error {
	release, err := tx.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return tx.engine.clear(ctx, deep)
}
