package peers

import "time"

// NewStore builds the membership table. expiry is how long a peer may stay
// silent before it is marked not-alive; removal is how long a not-alive
// record is kept before it is dropped entirely.
func NewStore(selfID string, expiry, removal time.Duration) *Store {
	return &Store{
		selfID:  selfID,
		expiry:  expiry,
		removal: removal,
		peers:   make(map[string]*Peer),
	}
}

// Record inserts or refreshes a peer seen at now. Announcements for the
// local node itself are ignored.
func (s *Store) Record(id, addr string, now time.Time) {
	if id == s.selfID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[id]
	if !ok {
		s.peers[id] = &Peer{ID: id, Addr: addr, LastSeen: now, Alive: true}
		return
	}
	p.Addr = addr
	p.LastSeen = now
	p.Alive = true
	p.downSince = time.Time{}
}

// Sweep ages the table: silent peers go not-alive, long-dead records are
// removed. Called periodically by the discovery beacon.
func (s *Store) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.peers {
		if now.Sub(p.LastSeen) <= s.expiry {
			continue
		}
		if p.Alive {
			p.Alive = false
			p.downSince = now
			continue
		}
		if now.Sub(p.downSince) > s.removal {
			delete(s.peers, id)
		}
	}
}

// Alive returns a snapshot of currently alive peers, never including the
// local node.
func (s *Store) Alive() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		if p.Alive {
			out = append(out, *p)
		}
	}
	return out
}

// All returns a snapshot of every record, alive or not.
func (s *Store) All() []Peer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Peer, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, *p)
	}
	return out
}

func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.peers[id]
	return ok
}

func (s *Store) SelfID() string { return s.selfID }
