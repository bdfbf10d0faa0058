package inventory

import (
	"bytes"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// LotLocker hands out one mutex per lot id. Every quantity mutation of a lot
// must run inside that lot's section; multi-lot operations must acquire their
// sections through LockAll so all callers take them in the same global order.
type LotLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewLotLocker() *LotLocker {
	return &LotLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (lk *LotLocker) lock(id uuid.UUID) *sync.Mutex {
	lk.mu.Lock()
	defer lk.mu.Unlock()
	m, ok := lk.locks[id]
	if !ok {
		m = &sync.Mutex{}
		lk.locks[id] = m
	}
	return m
}

// Lock acquires the section for a single lot and returns the unlock func.
func (lk *LotLocker) Lock(id uuid.UUID) func() {
	m := lk.lock(id)
	m.Lock()
	return m.Unlock
}

// LockAll acquires the sections for all given lots in ascending UUID byte
// order, deduplicating repeats. Taking every multi-lot section in this one
// order is what rules out deadlock between concurrent operations. The
// returned func releases in reverse order.
func (lk *LotLocker) LockAll(ids []uuid.UUID) func() {
	uniq := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Slice(uniq, func(i, j int) bool {
		return bytes.Compare(uniq[i][:], uniq[j][:]) < 0
	})

	held := make([]*sync.Mutex, 0, len(uniq))
	for _, id := range uniq {
		m := lk.lock(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
