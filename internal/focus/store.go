package focus

import "sync"

// Store is the process-wide registry mapping an owner to at most one live
// session. The top-level map is guarded only for entry lookup, insert and
// delete; every session mutation happens under the owning entry's mutex, so
// control messages and ticks for the same owner are serialized while
// unrelated owners never contend.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*ownerEntry
}

// ownerEntry serializes all operations for a single owner. gen is a
// monotonic ticker generation counter surviving session replacement, so a
// callback from a superseded ticker can be told apart from the live one.
type ownerEntry struct {
	mu      sync.Mutex
	removed bool
	gen     uint64
	session *Session
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{entries: make(map[string]*ownerEntry)}
}

// acquireEntry returns the entry for owner with its mutex held, creating it
// if absent. Entries flagged removed are raced out of the map; retry until a
// live one is observed.
func (s *Store) acquireEntry(owner string) *ownerEntry {
	for {
		s.mu.Lock()
		e, ok := s.entries[owner]
		if !ok {
			e = &ownerEntry{}
			s.entries[owner] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

// lockedEntry returns the existing entry for owner with its mutex held, or
// nil if the owner has no live session. Guards against races between a
// disconnect-triggered removal and an in-flight control message.
func (s *Store) lockedEntry(owner string) *ownerEntry {
	s.mu.RLock()
	e, ok := s.entries[owner]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	if e.removed || e.session == nil {
		e.mu.Unlock()
		return nil
	}
	return e
}

// dropEntry unlinks e from the map. The caller holds e.mu and must have set
// e.removed first.
func (s *Store) dropEntry(owner string, e *ownerEntry) {
	s.mu.Lock()
	if s.entries[owner] == e {
		delete(s.entries, owner)
	}
	s.mu.Unlock()
}

// Get returns a read-only copy of the owner's session, if any.
func (s *Store) Get(owner string) (Snapshot, bool) {
	e := s.lockedEntry(owner)
	if e == nil {
		return Snapshot{}, false
	}
	defer e.mu.Unlock()
	return e.session.snapshot(), true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Owners returns the owners of all live sessions.
func (s *Store) Owners() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owners := make([]string, 0, len(s.entries))
	for owner := range s.entries {
		owners = append(owners, owner)
	}
	return owners
}
