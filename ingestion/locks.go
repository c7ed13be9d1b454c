package ingestion

import (
	"sync"

	"github.com/mxmarchal/neuraldocs/core"
)

// keyedMutex serializes work per document ID. Lock entries are reference
// counted and removed once the last holder releases, so the map does not
// grow with the number of URLs ever ingested.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[core.ID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[core.ID]*lockEntry)}
}

// Lock acquires the mutex for id, blocking while another holder has it.
func (k *keyedMutex) Lock(id core.ID) {
	k.mu.Lock()
	entry, ok := k.locks[id]
	if !ok {
		entry = &lockEntry{}
		k.locks[id] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the mutex for id.
func (k *keyedMutex) Unlock(id core.ID) {
	k.mu.Lock()
	entry := k.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	entry.mu.Unlock()
}
