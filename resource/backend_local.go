package resource

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/script-bridge/abi"
	"github.com/wippyai/script-bridge/errors"
)

// LocalBackend is the in-memory slot arena behind a Table.
type LocalBackend struct {
	entries  []*slot
	freeList []Handle
	mu       sync.RWMutex
	closed   bool
}

type slot struct {
	header   *abi.Asset
	payload  any
	typeName string
	refs     atomic.Int32
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]*slot, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores payload under a fresh header with the given starting count.
func (b *LocalBackend) Create(class *abi.AssetClass, typeName string, payload any, refs int32) (*abi.Asset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errors.New(errors.PhaseAsset, errors.KindNotInitialized).
			Detail("asset table closed").
			Build()
	}

	s := &slot{payload: payload, typeName: typeName}
	s.refs.Store(refs)

	var handle Handle
	if len(b.freeList) > 0 {
		handle = b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = s
	} else {
		b.entries = append(b.entries, s)
		handle = Handle(len(b.entries))
	}

	// a fresh header per slot use; stale headers never match a reused slot
	s.header = &abi.Asset{Class: class, Handle: handle}
	return s.header, nil
}

// lookup returns the live slot owning header.
func (b *LocalBackend) lookup(header *abi.Asset) *slot {
	if header == nil || header.Handle == 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := int(header.Handle) - 1
	if idx >= len(b.entries) {
		return nil
	}
	s := b.entries[idx]
	if s == nil || s.header != header {
		return nil
	}
	return s
}

// byHandle returns the live slot at handle.
func (b *LocalBackend) byHandle(handle Handle) *slot {
	if handle == 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := int(handle) - 1
	if idx >= len(b.entries) {
		return nil
	}
	return b.entries[idx]
}

// free removes the slot owning header. It reports false when the header is
// stale.
func (b *LocalBackend) free(header *abi.Asset) (*slot, bool) {
	if header == nil || header.Handle == 0 {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := int(header.Handle) - 1
	if idx >= len(b.entries) {
		return nil, false
	}
	s := b.entries[idx]
	if s == nil || s.header != header {
		return nil, false
	}

	b.entries[idx] = nil
	b.freeList = append(b.freeList, header.Handle)
	return s, true
}

// drain drops every slot and returns them for cleanup.
func (b *LocalBackend) drain() []*slot {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []*slot
	for _, s := range b.entries {
		if s != nil {
			live = append(live, s)
		}
	}
	b.entries = nil
	b.freeList = nil
	return live
}

// Len returns the number of live slots.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, s := range b.entries {
		if s != nil {
			count++
		}
	}
	return count
}

// Each iterates over all live slots.
func (b *LocalBackend) Each(fn func(header *abi.Asset, payload any) bool) {
	b.mu.RLock()
	live := make([]*slot, 0, len(b.entries))
	for _, s := range b.entries {
		if s != nil {
			live = append(live, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range live {
		if !fn(s.header, s.payload) {
			break
		}
	}
}
