// Package session keeps per-conversation state: a short rolling history
// window and the last enrollment link the bot offered, so "pasame el link"
// follow-ups can be resolved without re-matching.
package session

import (
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// Entry is one message in a session's history window.
type Entry struct {
	Role string // "user" or "assistant"
	Text string
}

// Offer records the last enrollment link offered in a session.
type Offer struct {
	CourseID string
	Title    string
	FormURL  string
}

// Session is a point-in-time copy of one conversation's state.
type Session struct {
	History     []Entry
	LastOffered *Offer
	LastSeen    time.Time
}

type sessionState struct {
	history     []Entry
	lastOffered *Offer
	lastSeen    time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

// Store is a sharded in-memory session store. All operations on a single
// key serialize on that key's shard.
type Store struct {
	shards     [shardCount]*shard
	maxHistory int
}

// NewStore creates a store whose history windows hold at most maxHistory
// entries (a turn appends two: the user message and the reply).
func NewStore(maxHistory int) *Store {
	s := &Store{maxHistory: maxHistory}
	for i := range s.shards {
		s.shards[i] = &shard{sessions: make(map[string]*sessionState)}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%shardCount]
}

// Snapshot returns a copy of the session's current state. A key never seen
// before yields an empty session.
func (s *Store) Snapshot(key string) Session {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[key]
	if !ok {
		return Session{}
	}

	out := Session{
		History:  make([]Entry, len(st.history)),
		LastSeen: st.lastSeen,
	}
	copy(out.History, st.history)
	if st.lastOffered != nil {
		offer := *st.lastOffered
		out.LastOffered = &offer
	}
	return out
}

// AppendTurn records one completed turn, trimming the window from the front
// so it never exceeds the configured maximum.
func (s *Store) AppendTurn(key, userText, assistantText string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st := sh.getOrCreate(key)
	st.history = append(st.history, Entry{Role: "user", Text: userText}, Entry{Role: "assistant", Text: assistantText})
	if over := len(st.history) - s.maxHistory; over > 0 {
		st.history = append(st.history[:0:0], st.history[over:]...)
	}
	st.lastSeen = time.Now()
}

// SetLastOffered remembers the enrollment link most recently offered.
func (s *Store) SetLastOffered(key string, offer Offer) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st := sh.getOrCreate(key)
	st.lastOffered = &offer
	st.lastSeen = time.Now()
}

// LastOffered returns the last offered enrollment link, if any.
func (s *Store) LastOffered(key string) (Offer, bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[key]
	if !ok || st.lastOffered == nil {
		return Offer{}, false
	}
	return *st.lastOffered, true
}

// Len returns the number of live sessions across all shards.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}

// PruneIdle drops sessions idle longer than maxIdle and returns how many
// were removed. Run periodically from a background goroutine.
func (s *Store) PruneIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, st := range sh.sessions {
			if st.lastSeen.Before(cutoff) {
				delete(sh.sessions, key)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (sh *shard) getOrCreate(key string) *sessionState {
	st, ok := sh.sessions[key]
	if !ok {
		st = &sessionState{}
		sh.sessions[key] = st
	}
	return st
}
