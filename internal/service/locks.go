package service

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

type refMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or
// waits on it.
type keyedMutex[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*refMutex
}

func (k *keyedMutex[K]) lock(key K) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[K]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// Locks serializes writes inside this process. Tournament locks are always
// taken before player locks, and player locks in netid order.
type Locks struct {
	tournaments keyedMutex[uuid.UUID]
	players     keyedMutex[string]
}

func NewLocks() *Locks {
	return &Locks{}
}

func (l *Locks) Tournament(id uuid.UUID) func() {
	return l.tournaments.lock(id)
}

func (l *Locks) Players(netids ...string) func() {
	sorted := append([]string(nil), netids...)
	sort.Strings(sorted)

	var unlocks []func()
	for i, netid := range sorted {
		if i > 0 && sorted[i-1] == netid {
			continue
		}
		unlocks = append(unlocks, l.players.lock(netid))
	}

	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
