package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/drivevault/drivevault/internal/record"
)

// Document is the shared physical map: hashed, prefixed key to
// JSON-serialised record. One document backs a whole storage tree.
type Document = map[string]string

// Backend moves whole documents. Implementations must treat Store as an
// atomic replace of the entire document; nothing above assumes partial
// writes.
type Backend interface {
	Load(ctx context.Context) (Document, error)
	Store(ctx context.Context, doc Document) error
}

// ErrNotFound reports a missing logical key. Records that exist but fail
// verification surface fault.ErrCorrupted instead, never ErrNotFound.
var ErrNotFound = errors.New("storage: key not found")

// Engine is one logical storage over a shared physical document.
type Engine struct {
	id       string
	baseID   string
	parentID string

	codec   *record.Codec
	backend Backend
	queue   *Queue

	// Hashed reserved index names, computed lazily: hashing needs the
	// crypto context, which may attach after construction.
	mu               sync.Mutex
	hashedParentName string
	hashedThisName   string
	hashedWithKeys   bool
}

// New creates the root engine of a storage tree. The id doubles as the
// tree's base storage ID.
func New(id string, codec *record.Codec, backend Backend) *Engine {
	if !strings.HasSuffix(id, "/") {
		id += "/"
	}
	return &Engine{
		id:      id,
		baseID:  id,
		codec:   codec,
		backend: backend,
		queue:   NewQueue(),
	}
}

// Nested synchronously derives a child storage. The child shares the
// parent's crypto context, base ID, backend and operation queue and is
// usable immediately; index-name hashing completes lazily on first use.
func (e *Engine) Nested(name string) *Engine {
	name = strings.Trim(name, "/")
	return &Engine{
		id:       e.id + name + "/",
		baseID:   e.baseID,
		parentID: e.id,
		codec:    e.codec,
		backend:  e.backend,
		queue:    e.queue,
	}
}

// ID returns the human-readable storage path, e.g. "root/users/".
func (e *Engine) ID() string { return e.id }

// IsRoot reports whether e is the base of its storage tree.
func (e *Engine) IsRoot() bool { return e.id == e.baseID }

// AttachKeys seeds the crypto context of the whole storage family.
// Reserved index names are rehashed on next use.
func (e *Engine) AttachKeys(hmacKey, symKey []byte) {
	e.codec.AttachKeys(hmacKey, symKey)
	e.mu.Lock()
	e.hashedWithKeys = false
	e.hashedParentName = ""
	e.mu.Unlock()
}

// Codec exposes the storage family's crypto context.
func (e *Engine) Codec() *record.Codec { return e.codec }

// ready finishes deferred setup: the reserved index names must be hashed
// with the current crypto context before records can be finalised.
func (e *Engine) ready() (hashedParentName, hashedThisName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.hashedParentName == "" || e.hashedWithKeys != e.codec.HasKeys() {
		e.hashedParentName = e.codec.Hash(record.IndexParentStorageID)
		e.hashedThisName = e.codec.Hash(record.IndexThisStorageID)
		e.hashedWithKeys = e.codec.HasKeys()
	}
	return e.hashedParentName, e.hashedThisName
}

// prefix is hash(baseID)+hash(thisID)+"_", shared by every record of
// this logical storage.
func (e *Engine) prefix() string {
	return e.codec.Hash(e.baseID) + e.codec.Hash(e.id) + "_"
}

func (e *Engine) basePrefix() string {
	return e.codec.Hash(e.baseID)
}

// hashKey maps a logical key to its physical document key.
func (e *Engine) hashKey(key string) string {
	return e.prefix() + e.codec.Hash(key)
}

// Get returns the value stored under key. A missing key is an error;
// use GetOr for an ok-if-missing read.
func (e *Engine) Get(ctx context.Context, key string) (string, error) {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	return e.get(ctx, key)
}

// GetOr returns fallback when key is absent. Corruption still fails.
func (e *Engine) GetOr(ctx context.Context, key, fallback string) (string, error) {
	v, err := e.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return fallback, nil
	}
	return v, err
}

// Has reports whether key exists. Corruption is an error, not absence.
func (e *Engine) Has(ctx context.Context, key string) (bool, error) {
	_, err := e.Get(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Set writes one key. See SetAll for writing several keys in a single
// physical read-modify-write.
func (e *Engine) Set(ctx context.Context, key, value string) error {
	return e.SetAll(ctx, map[string]string{key: value})
}

// SetAll writes all entries with one document read and one write,
// instead of one physical write per key.
func (e *Engine) SetAll(ctx context.Context, entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.setAll(ctx, entries)
}

// Remove deletes key. Removing an absent key is not an error.
func (e *Engine) Remove(ctx context.Context, key string) error {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.remove(ctx, key)
}

// Keys returns this storage's logical keys, sorted. Shallow mode filters
// by this storage's exact prefix; deep mode reconstructs the storage
// tree and walks it from this node downward. Deep enumeration scans and
// decodes every record under the base prefix — keep it off hot paths.
func (e *Engine) Keys(ctx context.Context, deep bool) ([]string, error) {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.keys(ctx, deep)
}

// Find returns the logical key/value pairs of this storage matching
// pred. Every candidate record under the prefix is decrypted, making
// this a full scan intended for debugging and rare administrative use.
func (e *Engine) Find(ctx context.Context, pred func(key, value string) bool) (map[string]string, error) {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return e.find(ctx, pred)
}

// Clear removes this storage's records. With deep set, the subtree
// rooted here is cleared too; the tree root clears everything under the
// shared base prefix.
func (e *Engine) Clear(ctx context.Context, deep bool) error {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return e.clear(ctx, deep)
}

// Structure rebuilds the hashed parent/child tree from the reserved
// indexes of every record under the base prefix.
func (e *Engine) Structure(ctx context.Context) (map[string]*Node, error) {
	release, err := e.queue.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	return e.structure(doc)
}

// Unqueued internals. Callers must hold the operation queue.

func (e *Engine) get(ctx context.Context, key string) (string, error) {
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return "", err
	}
	return e.lookup(doc, key)
}

func (e *Engine) lookup(doc Document, key string) (string, error) {
	raw, ok := doc[e.hashKey(key)]
	if !ok {
		return "", fmt.Errorf("%w: %q in %s", ErrNotFound, key, e.id)
	}
	rec, err := record.Unmarshal(raw)
	if err != nil {
		return "", fmt.Errorf("storage: decode record for %q: %w", key, err)
	}
	if err := e.codec.Verify(rec); err != nil {
		return "", err
	}
	return e.codec.Decrypt(rec.Value)
}

func (e *Engine) setAll(ctx context.Context, entries map[string]string) error {
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return err
	}
	for key, value := range entries {
		raw, err := e.encode(key, value)
		if err != nil {
			return err
		}
		doc[e.hashKey(key)] = raw
	}
	return e.backend.Store(ctx, doc)
}

func (e *Engine) encode(key, value string) (string, error) {
	hashedParentName, hashedThisName := e.ready()
	encKey, err := e.codec.Encrypt(key)
	if err != nil {
		return "", err
	}
	encValue, err := e.codec.Encrypt(value)
	if err != nil {
		return "", err
	}
	rec := &record.Record{Key: encKey, Value: encValue}
	e.codec.Finalize(rec, hashedParentName, hashedThisName, e.parentID, e.id)
	return record.Marshal(rec)
}

func (e *Engine) remove(ctx context.Context, key string) error {
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return err
	}
	physical := e.hashKey(key)
	if _, ok := doc[physical]; !ok {
		return nil
	}
	delete(doc, physical)
	return e.backend.Store(ctx, doc)
}

func (e *Engine) keys(ctx context.Context, deep bool) ([]string, error) {
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !deep {
		return e.keysWithPrefix(doc, e.prefix())
	}

	nodes, err := e.structure(doc)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, id := range e.subtree(nodes) {
		node := nodes[id]
		if node == nil {
			continue
		}
		for _, physical := range node.PhysicalKeys {
			key, err := e.logicalKey(doc[physical])
			if err != nil {
				return nil, err
			}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (e *Engine) keysWithPrefix(doc Document, prefix string) ([]string, error) {
	var keys []string
	for physical, raw := range doc {
		if !strings.HasPrefix(physical, prefix) {
			continue
		}
		key, err := e.logicalKey(raw)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (e *Engine) logicalKey(raw string) (string, error) {
	rec, err := record.Unmarshal(raw)
	if err != nil {
		return "", fmt.Errorf("storage: decode record: %w", err)
	}
	return e.codec.Decrypt(rec.Key)
}

func (e *Engine) find(ctx context.Context, pred func(key, value string) bool) (map[string]string, error) {
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	prefix := e.prefix()
	out := make(map[string]string)
	for physical, raw := range doc {
		if !strings.HasPrefix(physical, prefix) {
			continue
		}
		rec, err := record.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("storage: decode record: %w", err)
		}
		if err := e.codec.Verify(rec); err != nil {
			return nil, err
		}
		key, err := e.codec.Decrypt(rec.Key)
		if err != nil {
			return nil, err
		}
		value, err := e.codec.Decrypt(rec.Value)
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(key, value) {
			out[key] = value
		}
	}
	return out, nil
}

func (e *Engine) clear(ctx context.Context, deep bool) error {
	doc, err := e.backend.Load(ctx)
	if err != nil {
		return err
	}

	changed := false
	switch {
	case deep && e.IsRoot():
		// The tree root owns everything under the shared base prefix.
		base := e.basePrefix()
		for physical := range doc {
			if strings.HasPrefix(physical, base) {
				delete(doc, physical)
				changed = true
			}
		}
	case deep:
		nodes, err := e.structure(doc)
		if err != nil {
			return err
		}
		for _, id := range e.subtree(nodes) {
			node := nodes[id]
			if node == nil {
				continue
			}
			for _, physical := range node.PhysicalKeys {
				delete(doc, physical)
				changed = true
			}
		}
	default:
		prefix := e.prefix()
		for physical := range doc {
			if strings.HasPrefix(physical, prefix) {
				delete(doc, physical)
				changed = true
			}
		}
	}

	if !changed {
		return nil
	}
	return e.backend.Store(ctx, doc)
}

// Node is one logical storage in the reconstructed tree, keyed by its
// hashed storage ID.
type Node struct {
	Children     []string // hashed storage IDs
	PhysicalKeys []string // document keys belonging to this storage
}

// structure scans every record under the base prefix and rebuilds the
// parent/child tree from the two reserved indexes. This is what enables
// tree-scoped deep operations without a separately persisted index.
func (e *Engine) structure(doc Document) (map[string]*Node, error) {
	hashedParentName, hashedThisName := e.ready()
	base := e.basePrefix()

	nodes := make(map[string]*Node)
	node := func(id string) *Node {
		n := nodes[id]
		if n == nil {
			n = &Node{}
			nodes[id] = n
		}
		return n
	}

	for physical, raw := range doc {
		if !strings.HasPrefix(physical, base) {
			continue
		}
		rec, err := record.Unmarshal(raw)
		if err != nil {
			return nil, fmt.Errorf("storage: decode record %q: %w", physical, err)
		}
		thisID := rec.Index[hashedThisName]
		parentID := rec.Index[hashedParentName]
		n := node(thisID)
		n.PhysicalKeys = append(n.PhysicalKeys, physical)
		if parentID != "" && parentID != thisID {
			parent := node(parentID)
			if !containsString(parent.Children, thisID) {
				parent.Children = append(parent.Children, thisID)
			}
		}
	}
	return nodes, nil
}

// subtree returns the hashed IDs reachable from e's node, e included.
func (e *Engine) subtree(nodes map[string]*Node) []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(id string)
	walk = func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
		if n := nodes[id]; n != nil {
			for _, child := range n.Children {
				walk(child)
			}
		}
	}
	walk(e.codec.Hash(e.id))
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
