package resource

import (
	"io"
	"slices"
	"sync"

	"go.uber.org/multierr"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
)

// Table maps asset headers to native payloads and reference counts.
type Table struct {
	backend   *LocalBackend
	observers []subscription
	nextSub   uint64
	obsMu     sync.RWMutex
}

type subscription struct {
	id uint64
	o  Observer
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert stores payload and returns its header. The count starts at 1,
// the creator's reference.
func (t *Table) Insert(class *abi.AssetClass, typeName string, payload any) (*abi.Asset, error) {
	return t.insert(class, typeName, payload, 1)
}

// InsertUncounted stores payload for strategies that do not count
// references. Retain and Release report 1 without changing anything.
func (t *Table) InsertUncounted(class *abi.AssetClass, typeName string, payload any) (*abi.Asset, error) {
	return t.insert(class, typeName, payload, uncounted)
}

const uncounted = -1 << 30

func (t *Table) insert(class *abi.AssetClass, typeName string, payload any, refs int32) (*abi.Asset, error) {
	header, err := t.backend.Create(class, typeName, payload, refs)
	if err != nil {
		return nil, err
	}
	t.notify(Event{
		Type:     EventCreated,
		Header:   header,
		Handle:   header.Handle,
		TypeName: typeName,
		Payload:  payload,
		Count:    max(refs, 1),
	})
	return header, nil
}

// Lookup returns the payload behind header. Stale headers report false.
func (t *Table) Lookup(header *abi.Asset) (any, bool) {
	s := t.backend.lookup(header)
	if s == nil {
		return nil, false
	}
	return s.payload, true
}

// Resolve finds the live header at handle.
func (t *Table) Resolve(handle Handle) (*abi.Asset, bool) {
	s := t.backend.byHandle(handle)
	if s == nil {
		return nil, false
	}
	return s.header, true
}

// Count returns the current reference count; 0 for stale headers.
func (t *Table) Count(header *abi.Asset) int32 {
	s := t.backend.lookup(header)
	if s == nil {
		return 0
	}
	if n := s.refs.Load(); n > 0 {
		return n
	}
	return 1
}

// Retain adds a reference. A slot whose count already reached zero is
// being destroyed and cannot be revived; Retain reports an invalid handle.
func (t *Table) Retain(header *abi.Asset) (int32, error) {
	s := t.backend.lookup(header)
	if s == nil {
		return 0, errors.InvalidHandle(errors.PhaseAsset, handleOf(header))
	}
	for {
		n := s.refs.Load()
		switch {
		case n < 0:
			return 1, nil
		case n == 0:
			return 0, errors.InvalidHandle(errors.PhaseAsset, header.Handle)
		}
		if s.refs.CompareAndSwap(n, n+1) {
			t.notify(Event{Type: EventRetained, Header: header, Handle: header.Handle, TypeName: s.typeName, Payload: s.payload, Count: n + 1})
			return n + 1, nil
		}
	}
}

// Release drops a reference. The last release frees the slot and runs the
// payload's Dropper or io.Closer. Releasing past zero is a double release.
func (t *Table) Release(header *abi.Asset) (int32, error) {
	s := t.backend.lookup(header)
	if s == nil {
		return 0, errors.DoubleRelease("", handleOf(header))
	}

	var n int32
	for {
		cur := s.refs.Load()
		switch {
		case cur < 0:
			return 1, nil
		case cur == 0:
			return 0, errors.DoubleRelease(s.typeName, header.Handle)
		}
		if s.refs.CompareAndSwap(cur, cur-1) {
			n = cur - 1
			break
		}
	}
	if n > 0 {
		t.notify(Event{Type: EventReleased, Header: header, Handle: header.Handle, TypeName: s.typeName, Payload: s.payload, Count: n})
		return n, nil
	}

	if _, ok := t.backend.free(header); !ok {
		return 0, errors.DoubleRelease(s.typeName, header.Handle)
	}
	err := destroy(s.payload)
	t.notify(Event{Type: EventDestroyed, Header: header, Handle: header.Handle, TypeName: s.typeName, Payload: s.payload})
	return 0, err
}

// Revoke frees the slot regardless of its count. The payload's destructor
// does not run; the caller keeps ownership of it.
func (t *Table) Revoke(header *abi.Asset) (any, bool) {
	s, ok := t.backend.free(header)
	if !ok {
		return nil, false
	}
	t.notify(Event{Type: EventRevoked, Header: header, Handle: header.Handle, TypeName: s.typeName, Payload: s.payload})
	return s.payload, true
}

// Subscribe adds an observer for lifecycle events. The returned func
// removes it; calling it again does nothing.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.observers = append(t.observers, subscription{id: id, o: o})
	return func() { t.unsubscribe(id) }
}

func (t *Table) unsubscribe(id uint64) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = slices.DeleteFunc(t.observers, func(s subscription) bool { return s.id == id })
}

// Len returns the number of live assets.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live assets.
func (t *Table) Each(fn func(header *abi.Asset, payload any) bool) {
	t.backend.Each(fn)
}

// Close destroys every counted asset still alive and rejects further inserts.
func (t *Table) Close() error {
	var err error
	for _, s := range t.backend.drain() {
		if s.refs.Load() < 0 {
			t.notify(Event{Type: EventRevoked, Header: s.header, Handle: s.header.Handle, TypeName: s.typeName, Payload: s.payload})
			continue
		}
		err = multierr.Append(err, destroy(s.payload))
		t.notify(Event{Type: EventDestroyed, Header: s.header, Handle: s.header.Handle, TypeName: s.typeName, Payload: s.payload})
	}
	return err
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, s := range t.observers {
		s.o.OnAssetEvent(e)
	}
}

func destroy(payload any) error {
	switch p := payload.(type) {
	case Dropper:
		p.Drop()
	case io.Closer:
		return p.Close()
	}
	return nil
}

func handleOf(header *abi.Asset) uint32 {
	if header == nil {
		return 0
	}
	return header.Handle
}
