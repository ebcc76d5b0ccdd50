package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/drivevault/drivevault/internal/fault"
	"github.com/drivevault/drivevault/internal/record"
	"github.com/drivevault/drivevault/internal/storage"
)

// testBackend counts physical writes and can stall them through gate.
type testBackend struct {
	mu     sync.Mutex
	doc    storage.Document
	stores int
	gate   chan struct{}
}

func (b *testBackend) Load(ctx context.Context) (storage.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(storage.Document, len(b.doc))
	for k, v := range b.doc {
		out[k] = v
	}
	return out, nil
}

func (b *testBackend) Store(ctx context.Context, doc storage.Document) error {
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.doc = doc
	b.stores++
	return nil
}

func (b *testBackend) writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stores
}

func testEngine(backend *testBackend) *storage.Engine {
	hmacKey := make([]byte, record.HMACKeySize)
	symKey := make([]byte, record.KeySize)
	for i := range hmacKey {
		hmacKey[i] = byte(i + 7)
		symKey[i] = byte(i + 77)
	}
	return storage.New("root", record.NewCodec(hmacKey, symKey), backend)
}

type profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func TestMutateBeforeRestore(t *testing.T) {
	ctx := context.Background()
	s := NewObject[profile](testEngine(&testBackend{}), "profile", false)

	if err := s.Set(ctx, profile{Name: "a"}); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error before restore, got %v", err)
	}
	if err := s.Commit(ctx); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error from early commit, got %v", err)
	}
}

func TestObjectRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{}
	eng := testEngine(backend)

	s := NewObject[profile](eng, "profile", false)
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := s.Get(); got != (profile{}) {
		t.Errorf("Absent key restored non-zero: %+v", got)
	}

	want := profile{Name: "Ada", Email: "ada@example.com"}
	if err := s.Set(ctx, want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !s.Dirty() {
		t.Error("Store not dirty after Set")
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if s.Dirty() {
		t.Error("Store still dirty after Commit")
	}

	fresh := NewObject[profile](eng, "profile", false)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := fresh.Get(); got != want {
		t.Errorf("Round trip: got %+v, want %+v", got, want)
	}
}

func TestAutoCommit(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{}
	eng := testEngine(backend)

	s := NewPrimitive[int](eng, "counter", true)
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := s.Set(ctx, 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	fresh := NewPrimitive[int](eng, "counter", false)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if fresh.Value() != 42 {
		t.Errorf("Auto-committed value: got %d, want 42", fresh.Value())
	}
}

func TestUnchangedCommitSkipsWrite(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{}
	eng := testEngine(backend)

	s := NewObject[profile](eng, "profile", false)
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := s.Set(ctx, profile{Name: "x"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	before := backend.writes()

	// same value again: dirty, but nothing changed on the wire
	if err := s.Set(ctx, profile{Name: "x"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if got := backend.writes(); got != before {
		t.Errorf("Physical writes for unchanged data: got %d, want %d", got, before)
	}
	if s.Dirty() {
		t.Error("Store still dirty after no-op commit")
	}
}

func TestCommitCoalescing(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{gate: make(chan struct{})}
	eng := testEngine(backend)

	s := NewPrimitive[string](eng, "value", false)
	// restore before the gate blocks writes
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := s.Set(ctx, "first"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() { firstDone <- s.Commit(ctx) }()
	time.Sleep(20 * time.Millisecond) // let the first commit reach the gate

	// mutate and pile up commits while the first write is stalled
	if err := s.Set(ctx, "last"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Commit(ctx)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)

	close(backend.gate)
	if err := <-firstDone; err != nil {
		t.Fatalf("First commit failed: %v", err)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("Queued commit %d failed: %v", i, err)
		}
	}

	// the pile-up collapses into one follow-up write
	if got := backend.writes(); got > 2 {
		t.Errorf("Physical writes: got %d, want at most 2", got)
	}

	fresh := NewPrimitive[string](eng, "value", false)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if fresh.Value() != "last" {
		t.Errorf("Persisted value: got %q, want last", fresh.Value())
	}
}

func TestArrayStore(t *testing.T) {
	ctx := context.Background()
	eng := testEngine(&testBackend{})

	s := NewArray[string](eng, "tags", false)
	if err := s.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := s.Append(ctx, "a", "b", "c"); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.RemoveAt(ctx, 1); err != nil {
		t.Fatalf("RemoveAt failed: %v", err)
	}
	if err := s.RemoveAt(ctx, 5); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error for bad index, got %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	fresh := NewArray[string](eng, "tags", false)
	if err := fresh.Restore(ctx); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	items := fresh.Items()
	if len(items) != 2 || items[0] != "a" || items[1] != "c" {
		t.Errorf("Items after round trip: got %v, want [a c]", items)
	}
}

func TestGroupCommitsAsOne(t *testing.T) {
	ctx := context.Background()
	backend := &testBackend{}
	eng := testEngine(backend)

	obj := NewObject[profile](eng, "profile", true)
	count := NewPrimitive[int](eng, "count", true)
	g, err := NewGroup(eng, obj, count)
	if err != nil {
		t.Fatalf("NewGroup failed: %v", err)
	}
	if g.Key() != "profile+count" {
		t.Errorf("Composite key: got %q", g.Key())
	}

	if err := g.Restore(ctx); err != nil {
		t.Fatalf("Group restore failed: %v", err)
	}

	// auto-commit is suppressed for group members
	if err := obj.Set(ctx, profile{Name: "n"}); err != nil {
		t.Fatalf("Member Set failed: %v", err)
	}
	if err := count.Set(ctx, 3); err != nil {
		t.Fatalf("Member Set failed: %v", err)
	}
	if backend.writes() != 0 {
		t.Fatalf("Members wrote on their own: %d writes", backend.writes())
	}
	if err := obj.Commit(ctx); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error from member commit, got %v", err)
	}

	if err := g.Commit(ctx); err != nil {
		t.Fatalf("Group commit failed: %v", err)
	}
	if backend.writes() != 1 {
		t.Errorf("Group commit writes: got %d, want 1", backend.writes())
	}

	obj2 := NewObject[profile](eng, "profile", false)
	count2 := NewPrimitive[int](eng, "count", false)
	g2, err := NewGroup(eng, obj2, count2)
	if err != nil {
		t.Fatalf("NewGroup failed: %v", err)
	}
	if err := g2.Restore(ctx); err != nil {
		t.Fatalf("Group restore failed: %v", err)
	}
	if got := obj2.Get(); got.Name != "n" {
		t.Errorf("Restored member object: got %+v", got)
	}
	if count2.Value() != 3 {
		t.Errorf("Restored member primitive: got %d, want 3", count2.Value())
	}
}

func TestGroupNeedsTwoMembers(t *testing.T) {
	eng := testEngine(&testBackend{})
	obj := NewObject[profile](eng, "profile", false)
	if _, err := NewGroup(eng, obj); !fault.IsCorrectable(err) {
		t.Errorf("Expected correctable error, got %v", err)
	}
}
