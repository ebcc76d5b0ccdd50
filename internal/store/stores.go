package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/drivevault/drivevault/internal/fault"
	"github.com/drivevault/drivevault/internal/storage"
)

// Member is any typed store that can join a Group.
type Member interface {
	Key() string
	joinGroup() error
	memberSnapshot() (string, error)
	memberRestore(payload string, found bool) error
}

// ObjectStore keeps one JSON-serialisable value under one key.
type ObjectStore[D any] struct {
	base
	engine *storage.Engine

	dataMu sync.RWMutex
	data   D
}

// NewObject binds an object store to key on engine.
func NewObject[D any](engine *storage.Engine, key string, autoCommit bool) *ObjectStore[D] {
	s := &ObjectStore[D]{engine: engine}
	s.base.key = key
	s.base.autoCommit = autoCommit
	s.base.snapshot = s.memberSnapshot
	s.base.write = func(ctx context.Context, payload string) error {
		return engine.Set(ctx, key, payload)
	}
	return s
}

// Restore loads the persisted value. An absent key restores to the zero
// value of D.
func (s *ObjectStore[D]) Restore(ctx context.Context) error {
	if err := s.beginRestore(); err != nil {
		return err
	}
	raw, err := s.engine.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		var zero D
		s.dataMu.Lock()
		s.data = zero
		s.dataMu.Unlock()
		s.finishRestore("", false)
		return nil
	case err != nil:
		s.failRestore()
		return err
	}
	if err := s.memberRestore(raw, true); err != nil {
		s.failRestore()
		return err
	}
	return nil
}

// Get returns the current in-memory value.
func (s *ObjectStore[D]) Get() D {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.data
}

// Set replaces the value and marks the store dirty.
func (s *ObjectStore[D]) Set(ctx context.Context, value D) error {
	if err := s.ensureRestored(); err != nil {
		return err
	}
	s.dataMu.Lock()
	s.data = value
	s.dataMu.Unlock()
	return s.afterMutation(ctx)
}

// Update applies fn to the value in place under the store's lock.
func (s *ObjectStore[D]) Update(ctx context.Context, fn func(*D)) error {
	if err := s.ensureRestored(); err != nil {
		return err
	}
	s.dataMu.Lock()
	fn(&s.data)
	s.dataMu.Unlock()
	return s.afterMutation(ctx)
}

func (s *ObjectStore[D]) memberSnapshot() (string, error) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	data, err := json.Marshal(s.data)
	if err != nil {
		return "", fmt.Errorf("store: encode %q: %w", s.key, err)
	}
	return string(data), nil
}

func (s *ObjectStore[D]) memberRestore(payload string, found bool) error {
	var value D
	if found {
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			return fmt.Errorf("store: decode %q: %w", s.key, err)
		}
	}
	s.dataMu.Lock()
	s.data = value
	s.dataMu.Unlock()
	s.finishRestore(payload, found)
	return nil
}

// ArrayStore keeps a slice of elements under one key.
type ArrayStore[E any] struct {
	base
	engine *storage.Engine

	dataMu sync.RWMutex
	items  []E
}

// NewArray binds an array store to key on engine.
func NewArray[E any](engine *storage.Engine, key string, autoCommit bool) *ArrayStore[E] {
	s := &ArrayStore[E]{engine: engine}
	s.base.key = key
	s.base.autoCommit = autoCommit
	s.base.snapshot = s.memberSnapshot
	s.base.write = func(ctx context.Context, payload string) error {
		return engine.Set(ctx, key, payload)
	}
	return s
}

// Restore loads the persisted slice. An absent key restores empty.
func (s *ArrayStore[E]) Restore(ctx context.Context) error {
	if err := s.beginRestore(); err != nil {
		return err
	}
	raw, err := s.engine.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.dataMu.Lock()
		s.items = nil
		s.dataMu.Unlock()
		s.finishRestore("", false)
		return nil
	case err != nil:
		s.failRestore()
		return err
	}
	if err := s.memberRestore(raw, true); err != nil {
		s.failRestore()
		return err
	}
	return nil
}

// Items returns a copy of the current elements.
func (s *ArrayStore[E]) Items() []E {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	out := make([]E, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the current element count.
func (s *ArrayStore[E]) Len() int {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return len(s.items)
}

// Append adds elements at the end.
func (s *ArrayStore[E]) Append(ctx context.Context, items ...E) error {
	if err := s.ensureRestored(); err != nil {
		return err
	}
	s.dataMu.Lock()
	s.items = append(s.items, items...)
	s.dataMu.Unlock()
	return s.afterMutation(ctx)
}

// RemoveAt deletes the element at index i.
func (s *ArrayStore[E]) RemoveAt(ctx context.Context, i int) error {
	if err := s.ensureRestored(); err != nil {
		return err
	}
	s.dataMu.Lock()
	if i < 0 || i >= len(s.items) {
		s.dataMu.Unlock()
		return fault.Correctablef("store: index %d out of range in %q", i, s.key)
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.dataMu.Unlock()
	return s.afterMutation(ctx)
}

// Replace swaps the whole slice.
func (s *ArrayStore[E]) Replace(ctx context.Context, items []E) error {
	if err := s.ensureRestored(); err != nil {
		return err
	}
	s.dataMu.Lock()
	s.items = append([]E(nil), items...)
	s.dataMu.Unlock()
	return s.afterMutation(ctx)
}

func (s *ArrayStore[E]) memberSnapshot() (string, error) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	items := s.items
	if items == nil {
		items = []E{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("store: encode %q: %w", s.key, err)
	}
	return string(data), nil
}

func (s *ArrayStore[E]) memberRestore(payload string, found bool) error {
	var items []E
	if found {
		if err := json.Unmarshal([]byte(payload), &items); err != nil {
			return fmt.Errorf("store: decode %q: %w", s.key, err)
		}
	}
	s.dataMu.Lock()
	s.items = items
	s.dataMu.Unlock()
	s.finishRestore(payload, found)
	return nil
}

// PrimitiveStore keeps one scalar under one key.
type PrimitiveStore[P any] struct {
	base
	engine *storage.Engine

	dataMu sync.RWMutex
	value  P
}

// NewPrimitive binds a primitive store to key on engine.
func NewPrimitive[P any](engine *storage.Engine, key string, autoCommit bool) *PrimitiveStore[P] {
	s := &PrimitiveStore[P]{engine: engine}
	s.base.key = key
	s.base.autoCommit = autoCommit
	s.base.snapshot = s.memberSnapshot
	s.base.write = func(ctx context.Context, payload string) error {
		return engine.Set(ctx, key, payload)
	}
	return s
}

// Restore loads the persisted value. An absent key restores to the zero
// value of P.
func (s *PrimitiveStore[P]) Restore(ctx context.Context) error {
	if err := s.beginRestore(); err != nil {
		return err
	}
	raw, err := s.engine.Get(ctx, s.key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		var zero P
		s.dataMu.Lock()
		s.value = zero
		s.dataMu.Unlock()
		s.finishRestore("", false)
		return nil
	case err != nil:
		s.failRestore()
		return err
	}
	if err := s.memberRestore(raw, true); err != nil {
		s.failRestore()
		return err
	}
	return nil
}

// Value returns the current in-memory value.
func (s *PrimitiveStore[P]) Value() P {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return s.value
}

// Set replaces the value and marks the store dirty.
func (s *PrimitiveStore[P]) Set(ctx context.Context, value P) error {
	if err := s.ensureRestored(); err != nil {
		return err
	}
	s.dataMu.Lock()
	s.value = value
	s.dataMu.Unlock()
	return s.afterMutation(ctx)
}

func (s *PrimitiveStore[P]) memberSnapshot() (string, error) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	data, err := json.Marshal(s.value)
	if err != nil {
		return "", fmt.Errorf("store: encode %q: %w", s.key, err)
	}
	return string(data), nil
}

func (s *PrimitiveStore[P]) memberRestore(payload string, found bool) error {
	var value P
	if found {
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			return fmt.Errorf("store: decode %q: %w", s.key, err)
		}
	}
	s.dataMu.Lock()
	s.value = value
	s.dataMu.Unlock()
	s.finishRestore(payload, found)
	return nil
}
