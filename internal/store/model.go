package store

import (
	"maps"
	"time"
)

type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Balance     int64  `json:"balance"`
}

type King struct {
	HolderID   string    `json:"holderId"`
	HolderName string    `json:"holderName,omitempty"`
	Stake      int64     `json:"stake"`
	Streak     int       `json:"streak"`
	ClaimedAt  time.Time `json:"claimedAt"`
}

type ChatState struct {
	ChatID        string           `json:"chatId"`
	Users         map[string]*User `json:"users"`
	King          *King            `json:"king,omitempty"`
	LastMessageID string           `json:"lastMessageId,omitempty"`
}

// Snapshot is the whole persisted universe.
type Snapshot struct {
	Chats map[string]*ChatState `json:"chats"`
}

type Stats struct {
	ChatCount int `json:"chat_count"`
	UserCount int `json:"user_count"`
}

func emptySnapshot() Snapshot {
	return Snapshot{Chats: map[string]*ChatState{}}
}

func (c *ChatState) clone() *ChatState {
	out := &ChatState{
		ChatID:        c.ChatID,
		LastMessageID: c.LastMessageID,
		Users:         make(map[string]*User, len(c.Users)),
	}
	if c.King != nil {
		k := *c.King
		out.King = &k
	}
	for id, u := range c.Users {
		cp := *u
		out.Users[id] = &cp
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Chats: make(map[string]*ChatState, len(s.Chats))}
	for id, c := range s.Chats {
		out.Chats[id] = c.clone()
	}
	return out
}

// normalize repairs records decoded from older or hand-edited files.
func (s *Snapshot) normalize() {
	if s.Chats == nil {
		s.Chats = map[string]*ChatState{}
	}
	for id, c := range maps.Clone(s.Chats) {
		if c == nil {
			delete(s.Chats, id)
			continue
		}
		if c.ChatID == "" {
			c.ChatID = id
		}
		if c.Users == nil {
			c.Users = map[string]*User{}
		}
		for uid, u := range c.Users {
			if u == nil {
				delete(c.Users, uid)
				continue
			}
			if u.ID == "" {
				u.ID = uid
			}
		}
	}
}
