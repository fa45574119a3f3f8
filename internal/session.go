package internal

import (
	"sync"
	"time"
)

// SendState is the per-session request lifecycle state
type SendState int

const (
	StateIdle SendState = iota
	StateSending
)

func (s SendState) String() string {
	if s == StateSending {
		return "sending"
	}
	return "idle"
}

// Store holds the active session: its identifier, ordered transcript,
// selected mode and send state. It is the single source of truth the
// presentation layer renders.
type Store struct {
	mu       sync.Mutex
	id       SessionID
	mode     Mode
	turns    []Turn
	lastID   TurnID
	state    SendState
	detached bool
	now      func() time.Time
}

// NewStore creates an unsaved, empty session in the given mode
func NewStore(mode Mode) *Store {
	if mode == "" {
		mode = ModeDefault
	}
	return &Store{
		mode: mode,
		now:  time.Now,
	}
}

// WithClock replaces the timestamp source, mostly for tests
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

// Current returns a snapshot of the session
func (s *Store) Current() Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	transcript := make([]Turn, len(s.turns))
	copy(transcript, s.turns)
	return Session{
		ID:         s.id,
		Mode:       s.mode,
		Transcript: transcript,
	}
}

// ID returns the bound session id, NoSession when unsaved
func (s *Store) ID() SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Mode returns the mode applied to the next send
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// State returns the current send state
func (s *Store) State() SendState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// AppendUserTurn appends a user message at the tail
func (s *Store) AppendUserTurn(text string) TurnID {
	return s.appendTurn(RoleUser, text)
}

// AppendBotTurn appends a bot message at the tail
func (s *Store) AppendBotTurn(text string) TurnID {
	return s.appendTurn(RoleBot, text)
}

func (s *Store) appendTurn(role Role, text string) TurnID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return 0
	}
	s.lastID++
	s.turns = append(s.turns, Turn{
		ID:        s.lastID,
		Role:      role,
		Text:      text,
		Timestamp: s.now(),
	})
	return s.lastID
}

// SetMode changes the mode used by subsequent sends. Existing turns are untouched.
func (s *Store) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.detached {
		return
	}
	s.mode = mode
}

// BindSessionID records the id the server assigned on first persistence.
// It binds at most once and returns false if the session was already bound.
func (s *Store) BindSessionID(id SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached || id == NoSession || s.id != NoSession {
		return false
	}
	s.id = id
	return true
}

// Replace installs a transcript loaded from the server. The turn counter
// continues after the highest loaded id so live appends never collide.
func (s *Store) Replace(id SessionID, mode Mode, transcript []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.detached {
		return
	}
	s.id = id
	if mode != "" {
		s.mode = mode
	}
	s.turns = make([]Turn, len(transcript))
	copy(s.turns, transcript)
	s.lastID = 0
	for _, t := range s.turns {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
}

// Exchange returns the (user, bot) pair that ends with the given bot turn
func (s *Store) Exchange(botTurn TurnID) (HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.turns {
		if t.ID != botTurn {
			continue
		}
		if !t.IsBot() || i == 0 || !s.turns[i-1].IsUser() {
			return HistoryEntry{}, ErrTurnNotFound
		}
		return HistoryEntry{UserMessage: s.turns[i-1].Text, BotResponse: t.Text}, nil
	}
	return HistoryEntry{}, ErrTurnNotFound
}

// LastExchange returns the most recent completed (user, bot) pair
func (s *Store) LastExchange() (HistoryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.turns) - 1; i > 0; i-- {
		if s.turns[i].IsBot() && s.turns[i-1].IsUser() {
			return HistoryEntry{UserMessage: s.turns[i-1].Text, BotResponse: s.turns[i].Text}, true
		}
	}
	return HistoryEntry{}, false
}

// Detach abandons the session: every later mutation is a no-op.
// Callbacks of requests still in flight then land nowhere.
func (s *Store) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detached = true
}

// Detached reports whether the session was abandoned
func (s *Store) Detached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detached
}

// beginSend moves Idle to Sending. It fails if a send is already outstanding.
func (s *Store) beginSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateSending {
		return false
	}
	s.state = StateSending
	return true
}

// endSend returns the session to Idle
func (s *Store) endSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateIdle
}
