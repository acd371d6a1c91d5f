package risk

import "sync"

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockTable hands out one mutex per user. Entries are dropped as soon as nobody holds or waits on
// them, so the table only grows with the number of users being updated concurrently.
type lockTable struct {
	mu      sync.Mutex
	entries map[uint]*lockEntry
}

func newLockTable() *lockTable {
	return &lockTable{entries: make(map[uint]*lockEntry)}
}

func (t *lockTable) lock(key uint) (unlock func()) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &lockEntry{}
		t.entries[key] = entry
	}
	entry.refs++
	t.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		t.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(t.entries, key)
		}
		t.mu.Unlock()
	}
}

func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
