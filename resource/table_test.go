package resource

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnAssetEvent(e Event) {
	o.events = append(o.events, e)
}

func (o *testObserver) types() []EventType {
	out := make([]EventType, len(o.events))
	for i, e := range o.events {
		out[i] = e.Type
	}
	return out
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

type closer struct {
	closed bool
	err    error
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

var testClass = &abi.AssetClass{}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h, err := table.Insert(testClass, "string", "test")
	if err != nil {
		t.Fatal(err)
	}
	if h.Handle == 0 || h.Class != testClass {
		t.Fatalf("bad header %+v", h)
	}

	val, ok := table.Lookup(h)
	if !ok || val != "test" {
		t.Fatalf("Lookup = %v, %v", val, ok)
	}
	if table.Count(h) != 1 {
		t.Fatalf("Count = %d, want 1", table.Count(h))
	}

	if n, err := table.Release(h); err != nil || n != 0 {
		t.Fatalf("Release = %d, %v", n, err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after last release")
	}
	if _, ok := table.Lookup(h); ok {
		t.Fatal("released header must be stale")
	}
}

func TestTable_RefCounting(t *testing.T) {
	table := NewTable()
	payload := &dropCounter{}
	h, _ := table.Insert(testClass, "*dropCounter", payload)

	// One extra retain, then two releases: destructor runs exactly once.
	if n, _ := table.Retain(h); n != 2 {
		t.Fatalf("Retain = %d, want 2", n)
	}
	if n, _ := table.Release(h); n != 1 {
		t.Fatalf("Release = %d, want 1", n)
	}
	if payload.drops != 0 {
		t.Fatal("destructor ran early")
	}
	table.Release(h)
	if payload.drops != 1 {
		t.Fatalf("drops = %d, want 1", payload.drops)
	}

	_, err := table.Release(h)
	if !stderrors.Is(err, errors.ErrDoubleRelease) {
		t.Fatalf("expected double release, got %v", err)
	}
	if payload.drops != 1 {
		t.Fatal("double release must not rerun the destructor")
	}
}

func TestTable_StaleHeaderAfterReuse(t *testing.T) {
	table := NewTable()

	old, _ := table.Insert(testClass, "string", "old")
	table.Release(old)

	fresh, _ := table.Insert(testClass, "string", "new")
	if fresh.Handle != old.Handle {
		t.Fatalf("expected slot reuse, got %d and %d", old.Handle, fresh.Handle)
	}
	if fresh == old {
		t.Fatal("reused slot must get a new header")
	}
	if _, ok := table.Lookup(old); ok {
		t.Fatal("stale header resolved to the reused slot")
	}
	if _, err := table.Release(old); !stderrors.Is(err, errors.ErrDoubleRelease) {
		t.Fatalf("release through stale header: %v", err)
	}
	if v, ok := table.Lookup(fresh); !ok || v != "new" {
		t.Fatalf("fresh Lookup = %v, %v", v, ok)
	}

	got, ok := table.Resolve(fresh.Handle)
	if !ok || got != fresh {
		t.Fatal("Resolve should return the live header")
	}
}

func TestTable_Uncounted(t *testing.T) {
	table := NewTable()
	payload := &dropCounter{}
	h, _ := table.InsertUncounted(testClass, "*dropCounter", payload)

	for range 3 {
		if n, err := table.Retain(h); n != 1 || err != nil {
			t.Fatalf("Retain = %d, %v", n, err)
		}
		if n, err := table.Release(h); n != 1 || err != nil {
			t.Fatalf("Release = %d, %v", n, err)
		}
	}

	v, ok := table.Revoke(h)
	if !ok || v != payload {
		t.Fatal("Revoke should return the payload")
	}
	if payload.drops != 0 {
		t.Fatal("revoke must not destroy the payload")
	}
	if _, ok := table.Lookup(h); ok {
		t.Fatal("revoked header must be stale")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	cancel := table.Subscribe(obs)

	h, _ := table.Insert(testClass, "string", "test")
	table.Retain(h)
	table.Release(h)
	table.Release(h)

	want := []EventType{EventCreated, EventRetained, EventReleased, EventDestroyed}
	got := obs.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d = %v, want %v", i, got[i], want[i])
		}
	}
	if obs.events[1].Count != 2 {
		t.Errorf("retain count = %d", obs.events[1].Count)
	}

	cancel()
	table.Insert(testClass, "string", "quiet")
	if len(obs.events) != len(want) {
		t.Fatal("unsubscribed observer received an event")
	}
}

func TestTable_ObserverFuncCancel(t *testing.T) {
	table := NewTable()
	var first, second int
	cancelFirst := table.Subscribe(ObserverFunc(func(Event) { first++ }))
	cancelSecond := table.Subscribe(ObserverFunc(func(Event) { second++ }))
	defer cancelSecond()

	table.Insert(testClass, "string", "a")
	cancelFirst()
	cancelFirst()
	table.Insert(testClass, "string", "b")

	if first != 1 || second != 2 {
		t.Errorf("first = %d, second = %d, want 1 and 2", first, second)
	}
}

func TestTable_RetainRefusesDyingSlot(t *testing.T) {
	table := NewTable()
	payload := &dropCounter{}
	h, _ := table.Insert(testClass, "*dropCounter", payload)

	// count reached zero, the releasing goroutine has not freed the slot yet
	table.backend.lookup(h).refs.Store(0)

	if _, err := table.Retain(h); !stderrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("Retain at zero = %v, want invalid handle", err)
	}
	if _, err := table.Release(h); !stderrors.Is(err, errors.ErrDoubleRelease) {
		t.Fatalf("Release at zero = %v, want double release", err)
	}
	if n := table.backend.lookup(h).refs.Load(); n != 0 {
		t.Errorf("count = %d after refused calls, want 0", n)
	}
	if payload.drops != 0 {
		t.Error("refused calls must not destroy the payload")
	}
}

func TestTable_ConcurrentRetainRelease(t *testing.T) {
	table := NewTable()
	payload := &dropCounter{}
	h, _ := table.Insert(testClass, "*dropCounter", payload)

	const workers = 8
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				if _, err := table.Retain(h); err != nil {
					t.Errorf("Retain: %v", err)
					return
				}
				if _, err := table.Release(h); err != nil {
					t.Errorf("Release: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := table.Count(h); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
	if _, err := table.Release(h); err != nil {
		t.Fatal(err)
	}
	if payload.drops != 1 {
		t.Errorf("drops = %d, want 1", payload.drops)
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()

	c := &closer{err: stderrors.New("flush failed")}
	d := &dropCounter{}
	table.Insert(testClass, "*closer", c)
	table.Insert(testClass, "*dropCounter", d)
	table.InsertUncounted(testClass, "*dropCounter", &dropCounter{})

	err := table.Close()
	if err == nil || err.Error() != "flush failed" {
		t.Fatalf("Close error = %v", err)
	}
	if !c.closed || d.drops != 1 {
		t.Fatal("Close must destroy counted payloads")
	}
	if _, err := table.Insert(testClass, "string", "late"); err == nil {
		t.Fatal("Insert after Close should fail")
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	for _, s := range []string{"a", "b", "c"} {
		table.Insert(testClass, "string", s)
	}

	var seen []any
	table.Each(func(_ *abi.Asset, payload any) bool {
		seen = append(seen, payload)
		return len(seen) < 2
	})
	if len(seen) != 2 {
		t.Fatalf("Each visited %d, want 2", len(seen))
	}
}
