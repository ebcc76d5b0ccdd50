package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/drivevault/drivevault/internal/fault"
	"github.com/drivevault/drivevault/internal/record"
)

// memBackend keeps the document in memory and hands out copies, the same
// load/store contract a file-backed implementation honours. A non-zero
// loadDelay stretches the read-modify-write window the way a slow file
// system would.
type memBackend struct {
	mu        sync.Mutex
	doc       Document
	stores    int
	loadDelay time.Duration
}

func (b *memBackend) Load(ctx context.Context) (Document, error) {
	b.mu.Lock()
	out := make(Document, len(b.doc))
	for k, v := range b.doc {
		out[k] = v
	}
	b.mu.Unlock()
	if b.loadDelay > 0 {
		time.Sleep(b.loadDelay)
	}
	return out, nil
}

func (b *memBackend) Store(ctx context.Context, doc Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc = doc
	b.stores++
	return nil
}

func testCodec() *record.Codec {
	hmacKey := make([]byte, record.HMACKeySize)
	symKey := make([]byte, record.KeySize)
	for i := range hmacKey {
		hmacKey[i] = byte(i)
		symKey[i] = byte(255 - i)
	}
	return record.NewCodec(hmacKey, symKey)
}

func testEngine() (*Engine, *memBackend) {
	backend := &memBackend{}
	return New("root", testCodec(), backend), backend
}

func TestSetGetRemove(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine()

	if err := eng.Set(ctx, "alpha", "one"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := eng.Get(ctx, "alpha")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "one" {
		t.Errorf("Get: got %q, want %q", got, "one")
	}

	if _, err := eng.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	v, err := eng.GetOr(ctx, "missing", "fallback")
	if err != nil {
		t.Fatalf("GetOr failed: %v", err)
	}
	if v != "fallback" {
		t.Errorf("GetOr: got %q, want fallback", v)
	}

	ok, err := eng.Has(ctx, "alpha")
	if err != nil || !ok {
		t.Errorf("Has(alpha): got %v/%v, want true/nil", ok, err)
	}

	if err := eng.Remove(ctx, "alpha"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := eng.Get(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Remove, got %v", err)
	}
	// removing an absent key is a no-op
	if err := eng.Remove(ctx, "alpha"); err != nil {
		t.Errorf("Remove of absent key failed: %v", err)
	}
}

func TestSetAllSingleWrite(t *testing.T) {
	ctx := context.Background()
	eng, backend := testEngine()

	entries := map[string]string{"a": "1", "b": "2", "c": "3"}
	if err := eng.SetAll(ctx, entries); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	if backend.stores != 1 {
		t.Errorf("Physical writes: got %d, want 1", backend.stores)
	}
	for k, want := range entries {
		got, err := eng.Get(ctx, k)
		if err != nil {
			t.Fatalf("Get(%q) failed: %v", k, err)
		}
		if got != want {
			t.Errorf("Get(%q): got %q, want %q", k, got, want)
		}
	}
}

func TestNestedStorageIsolation(t *testing.T) {
	ctx := context.Background()
	root, _ := testEngine()
	users := root.Nested("users")
	config := root.Nested("config")

	if err := root.Set(ctx, "shared", "root-value"); err != nil {
		t.Fatalf("Set on root failed: %v", err)
	}
	if err := users.Set(ctx, "shared", "users-value"); err != nil {
		t.Fatalf("Set on users failed: %v", err)
	}
	if err := config.Set(ctx, "shared", "config-value"); err != nil {
		t.Fatalf("Set on config failed: %v", err)
	}

	for _, tc := range []struct {
		eng  *Engine
		want string
	}{
		{root, "root-value"},
		{users, "users-value"},
		{config, "config-value"},
	} {
		got, err := tc.eng.Get(ctx, "shared")
		if err != nil {
			t.Fatalf("Get on %s failed: %v", tc.eng.ID(), err)
		}
		if got != tc.want {
			t.Errorf("Get on %s: got %q, want %q", tc.eng.ID(), got, tc.want)
		}
	}

	keys, err := users.Keys(ctx, false)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "shared" {
		t.Errorf("Shallow keys of users: got %v, want [shared]", keys)
	}
}

func TestConcurrentSetNoLostUpdate(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = eng.Set(ctx, fmt.Sprintf("key-%02d", i), fmt.Sprintf("value-%d", i))
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Set %d failed: %v", i, err)
		}
	}

	keys, err := eng.Keys(ctx, false)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != n {
		t.Fatalf("Keys after concurrent sets: got %d, want %d", len(keys), n)
	}
}

func TestTransactionReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine()
	if err := eng.Set(ctx, "counter", "0"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := eng.Transaction(ctx, func(tx *Tx) error {
				v, err := tx.Get(ctx, "counter")
				if err != nil {
					return err
				}
				var cur int
				fmt.Sscanf(v, "%d", &cur)
				return tx.Set(ctx, "counter", fmt.Sprintf("%d", cur+1))
			})
			if err != nil {
				t.Errorf("Transaction failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := eng.Get(ctx, "counter")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != fmt.Sprintf("%d", n) {
		t.Errorf("Counter after %d transactions: got %q, want %q", n, got, fmt.Sprintf("%d", n))
	}
}

func TestTransactionConcurrentSetsNoLostUpdate(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{loadDelay: time.Millisecond}
	eng := New("root", testCodec(), backend)

	const n = 16
	err := eng.Transaction(ctx, func(tx *Tx) error {
		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = tx.Set(ctx, fmt.Sprintf("key-%02d", i), fmt.Sprintf("value-%d", i))
			}(i)
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				return fmt.Errorf("set %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	keys, err := eng.Keys(ctx, false)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != n {
		t.Fatalf("Keys after concurrent sets in one transaction: got %d, want %d", len(keys), n)
	}
}

func TestTransactionExcludesConcurrentOps(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine()

	inTx := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- eng.Transaction(ctx, func(tx *Tx) error {
			if err := tx.Set(ctx, "k", "tx-value"); err != nil {
				return err
			}
			close(inTx)
			<-proceed
			v, err := tx.Get(ctx, "k")
			if err != nil {
				return err
			}
			if v != "tx-value" {
				return fmt.Errorf("concurrent write interleaved with transaction: %q", v)
			}
			return nil
		})
	}()

	<-inTx
	setDone := make(chan error, 1)
	go func() {
		setDone <- eng.Set(ctx, "k", "outside-value")
	}()
	select {
	case err := <-setDone:
		t.Fatalf("Set completed while a transaction held the queue: %v", err)
	default:
	}
	close(proceed)

	if err := <-done; err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}
	if err := <-setDone; err != nil {
		t.Fatalf("Queued Set failed: %v", err)
	}
	v, err := eng.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "outside-value" {
		t.Errorf("Final value: got %q, want outside-value", v)
	}
}

func TestTxEscapedHandle(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine()

	var escaped *Tx
	if err := eng.Transaction(ctx, func(tx *Tx) error {
		escaped = tx
		return nil
	}); err != nil {
		t.Fatalf("Transaction failed: %v", err)
	}

	if err := escaped.Set(ctx, "k", "v"); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error from escaped handle, got %v", err)
	}
}

func TestDeepKeysAndClear(t *testing.T) {
	ctx := context.Background()
	root, _ := testEngine()
	a := root.Nested("a")
	b := root.Nested("b")
	aa := a.Nested("inner")

	seed := map[*Engine]string{
		root: "root-key",
		a:    "a-key",
		b:    "b-key",
		aa:   "inner-key",
	}
	for eng, key := range seed {
		if err := eng.Set(ctx, key, "v"); err != nil {
			t.Fatalf("Set on %s failed: %v", eng.ID(), err)
		}
	}

	deep, err := a.Keys(ctx, true)
	if err != nil {
		t.Fatalf("Deep keys failed: %v", err)
	}
	if strings.Join(deep, ",") != "a-key,inner-key" {
		t.Errorf("Deep keys of a: got %v, want [a-key inner-key]", deep)
	}

	// clearing a's subtree leaves the sibling and the root intact
	if err := a.Clear(ctx, true); err != nil {
		t.Fatalf("Deep clear failed: %v", err)
	}
	for eng, key := range map[*Engine]string{a: "a-key", aa: "inner-key"} {
		if ok, _ := eng.Has(ctx, key); ok {
			t.Errorf("Key %q on %s survived deep clear", key, eng.ID())
		}
	}
	for eng, key := range map[*Engine]string{root: "root-key", b: "b-key"} {
		if ok, _ := eng.Has(ctx, key); !ok {
			t.Errorf("Key %q on %s lost by sibling clear", key, eng.ID())
		}
	}

	// deep clear on the root empties the whole tree
	if err := root.Clear(ctx, true); err != nil {
		t.Fatalf("Root deep clear failed: %v", err)
	}
	for eng, key := range seed {
		if ok, _ := eng.Has(ctx, key); ok {
			t.Errorf("Key %q on %s survived root clear", key, eng.ID())
		}
	}
}

func TestShallowClear(t *testing.T) {
	ctx := context.Background()
	root, _ := testEngine()
	child := root.Nested("child")

	if err := root.Set(ctx, "k", "root"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := child.Set(ctx, "k", "child"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := root.Clear(ctx, false); err != nil {
		t.Fatalf("Shallow clear failed: %v", err)
	}
	if ok, _ := root.Has(ctx, "k"); ok {
		t.Error("Root key survived shallow clear")
	}
	if ok, _ := child.Has(ctx, "k"); !ok {
		t.Error("Child key lost by shallow clear of the parent")
	}
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	eng, _ := testEngine()
	other := eng.Nested("other")

	if err := eng.SetAll(ctx, map[string]string{"a": "hit", "b": "miss", "c": "hit"}); err != nil {
		t.Fatalf("SetAll failed: %v", err)
	}
	if err := other.Set(ctx, "d", "hit"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	out, err := eng.Find(ctx, func(key, value string) bool { return value == "hit" })
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(out) != 2 || out["a"] != "hit" || out["c"] != "hit" {
		t.Errorf("Find: got %v, want a and c only", out)
	}
}

func TestCorruptionIsNotAbsence(t *testing.T) {
	ctx := context.Background()
	eng, backend := testEngine()

	if err := eng.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// flip the stored record's value, leaving the signature stale
	backend.mu.Lock()
	for physical, raw := range backend.doc {
		backend.doc[physical] = strings.Replace(raw, `"value":"`, `"value":"AAAA`, 1)
	}
	backend.mu.Unlock()

	_, err := eng.Get(ctx, "k")
	if err == nil {
		t.Fatal("Expected an error for a tampered record")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Tampered record reported as missing")
	}
	if !errors.Is(err, fault.ErrCorrupted) {
		t.Errorf("Expected corruption, got %v", err)
	}
}

func TestPlaintextCodecKeepsLayoutOpaque(t *testing.T) {
	ctx := context.Background()
	backend := &memBackend{}
	codec := record.NewPlaintextCodec()
	eng := New("root", codec, backend)

	if err := eng.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := eng.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "v" {
		t.Errorf("Plaintext round trip: got %q, want v", got)
	}

	// record layout must not leak logical names
	backend.mu.Lock()
	for physical, raw := range backend.doc {
		if strings.Contains(physical, "root") || strings.Contains(physical, "k") && len(physical) < 40 {
			t.Errorf("Physical key %q leaks a logical name", physical)
		}
		if strings.Contains(raw, `"v"`) {
			t.Errorf("Serialised record contains the raw value: %s", raw)
		}
	}
	backend.mu.Unlock()
}
