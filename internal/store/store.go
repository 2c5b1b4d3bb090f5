package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Backend durably records the whole universe.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Store keeps users, kings and message pointers per chat in memory and writes the
// full universe through to its Backend after every mutation. Save failures are
// logged and the in-memory state is kept.
type Store struct {
	backend         Backend
	log             *slog.Logger
	startingBalance int64

	mu      sync.RWMutex
	chats   map[string]*ChatState
	version uint64

	saveMu sync.Mutex
	saved  uint64
}

// Open loads the durable record. A missing or unreadable record yields an empty store.
func Open(ctx context.Context, backend Backend, startingBalance int64, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		backend:         backend,
		log:             logger,
		startingBalance: startingBalance,
		chats:           map[string]*ChatState{},
	}
	snap, err := backend.Load(ctx)
	if err != nil {
		logger.Error("store load failed, starting empty", "err", err)
		return s
	}
	snap.normalize()
	s.chats = snap.Chats
	stats := s.Stats()
	logger.Info("store loaded", "chats", stats.ChatCount, "users", stats.UserCount)
	return s
}

func (s *Store) StartingBalance() int64 {
	return s.startingBalance
}

// GetOrCreateUser returns the user, creating it with the starting balance on first
// sight. A non-empty displayName replaces the stored one.
func (s *Store) GetOrCreateUser(ctx context.Context, chatID, userID, displayName string) User {
	var out User
	var changed bool
	s.mutate(ctx, func() bool {
		u, created := s.userLocked(chatID, userID)
		changed = created
		if displayName != "" && u.DisplayName != displayName {
			u.DisplayName = displayName
			changed = true
		}
		out = *u
		return changed
	})
	return out
}

// AdjustBalance adds delta to the user's balance and returns the new balance.
func (s *Store) AdjustBalance(ctx context.Context, chatID, userID string, delta int64) int64 {
	var balance int64
	s.mutate(ctx, func() bool {
		u, _ := s.userLocked(chatID, userID)
		u.Balance += delta
		balance = u.Balance
		return true
	})
	return balance
}

// User returns a copy of the user without creating it.
func (s *Store) User(chatID, userID string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return User{}, false
	}
	u, ok := c.Users[userID]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (s *Store) King(chatID string) (King, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok || c.King == nil {
		return King{}, false
	}
	return *c.King, true
}

func (s *Store) SetKing(ctx context.Context, chatID string, king King) {
	s.mutate(ctx, func() bool {
		k := king
		s.chatLocked(chatID).King = &k
		return true
	})
}

func (s *Store) ClearKing(ctx context.Context, chatID string) {
	s.mutate(ctx, func() bool {
		c, ok := s.chats[chatID]
		if !ok || c.King == nil {
			return false
		}
		c.King = nil
		return true
	})
}

func (s *Store) LastMessageID(chatID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok || c.LastMessageID == "" {
		return "", false
	}
	return c.LastMessageID, true
}

func (s *Store) SetLastMessageID(ctx context.Context, chatID, messageID string) {
	s.mutate(ctx, func() bool {
		c := s.chatLocked(chatID)
		if c.LastMessageID == messageID {
			return false
		}
		c.LastMessageID = messageID
		return true
	})
}

func (s *Store) ClearLastMessageID(ctx context.Context, chatID string) {
	s.mutate(ctx, func() bool {
		c, ok := s.chats[chatID]
		if !ok || c.LastMessageID == "" {
			return false
		}
		c.LastMessageID = ""
		return true
	})
}

// ResetChat forgets everything recorded for the chat, balances included.
func (s *Store) ResetChat(ctx context.Context, chatID string) {
	s.mutate(ctx, func() bool {
		if _, ok := s.chats[chatID]; !ok {
			return false
		}
		delete(s.chats, chatID)
		return true
	})
}

// Users returns the chat's users ordered by balance, richest first.
func (s *Store) Users(chatID string) []User {
	s.mu.RLock()
	c, ok := s.chats[chatID]
	var out []User
	if ok {
		out = make([]User, 0, len(c.Users))
		for _, u := range c.Users {
			out = append(out, *u)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b User) int {
		if n := cmp.Compare(b.Balance, a.Balance); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Chat returns a copy of the chat state.
func (s *Store) Chat(chatID string) (ChatState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return ChatState{}, false
	}
	return *c.clone(), true
}

func (s *Store) ChatIDs() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.chats))
	for id := range s.chats {
		out = append(out, id)
	}
	s.mu.RUnlock()
	slices.Sort(out)
	return out
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := Stats{ChatCount: len(s.chats)}
	for _, c := range s.chats {
		out.UserCount += len(c.Users)
	}
	return out
}

// mutate applies fn under the write lock and, when fn reports a change, writes the
// resulting universe through before returning. Writes are ordered by version so a
// slow save never overwrites a newer one.
func (s *Store) mutate(ctx context.Context, fn func() bool) {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return
	}
	s.version++
	version := s.version
	snap := Snapshot{Chats: s.chats}.clone()
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version <= s.saved {
		return
	}
	if err := s.backend.Save(ctx, snap); err != nil {
		s.log.Error("store save failed, memory diverged from disk", "err", err, "version", version)
		return
	}
	s.saved = version
}

func (s *Store) chatLocked(chatID string) *ChatState {
	c, ok := s.chats[chatID]
	if !ok {
		c = &ChatState{ChatID: chatID, Users: map[string]*User{}}
		s.chats[chatID] = c
	}
	return c
}

func (s *Store) userLocked(chatID, userID string) (*User, bool) {
	c := s.chatLocked(chatID)
	u, ok := c.Users[userID]
	if ok {
		return u, false
	}
	u = &User{ID: userID, Balance: s.startingBalance}
	c.Users[userID] = u
	return u, true
}
