// Package lifecycletest provides an in-memory chat platform for tests.
package lifecycletest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"throne/internal/view"
)

var ErrInjected = errors.New("injected failure")

type Sent struct {
	ChatID  string
	ID      string
	Text    string
	Game    bool
	Message view.Message
}

// Failures switches individual platform operations to fail.
type Failures struct {
	Send, SendText, Pin, Unpin, Delete bool
}

// Messenger records every call and fails the operations switched on by SetFail.
type Messenger struct {
	mu   sync.Mutex
	fail Failures

	next    int
	Sent    []Sent
	Pins    []string
	Unpins  []string
	Deletes []string
	live    map[string]bool
	pinned  map[string]bool
}

func NewMessenger() *Messenger {
	return &Messenger{live: map[string]bool{}, pinned: map[string]bool{}}
}

func (m *Messenger) SetFail(f Failures) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = f
}

func (m *Messenger) Send(_ context.Context, chatID string, msg view.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail.Send {
		return "", ErrInjected
	}
	id := m.newIDLocked()
	m.Sent = append(m.Sent, Sent{ChatID: chatID, ID: id, Text: msg.Text, Game: true, Message: msg})
	return id, nil
}

func (m *Messenger) SendText(_ context.Context, chatID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail.SendText {
		return "", ErrInjected
	}
	id := m.newIDLocked()
	m.Sent = append(m.Sent, Sent{ChatID: chatID, ID: id, Text: text})
	return id, nil
}

func (m *Messenger) Pin(_ context.Context, _ string, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pins = append(m.Pins, messageID)
	if m.fail.Pin {
		return ErrInjected
	}
	m.pinned[messageID] = true
	return nil
}

func (m *Messenger) Unpin(_ context.Context, _ string, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Unpins = append(m.Unpins, messageID)
	if m.fail.Unpin {
		return ErrInjected
	}
	delete(m.pinned, messageID)
	return nil
}

func (m *Messenger) Delete(_ context.Context, _ string, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, messageID)
	if m.fail.Delete {
		return ErrInjected
	}
	delete(m.live, messageID)
	delete(m.pinned, messageID)
	return nil
}

func (m *Messenger) Live(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live[messageID]
}

func (m *Messenger) Pinned(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pinned[messageID]
}

// Deleted reports whether a delete was attempted for messageID.
func (m *Messenger) Deleted(messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.Deletes {
		if id == messageID {
			return true
		}
	}
	return false
}

// Texts returns the plain (non-game) messages sent so far.
func (m *Messenger) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, s := range m.Sent {
		if !s.Game {
			out = append(out, s.Text)
		}
	}
	return out
}

// LastGame returns the most recent game view sent.
func (m *Messenger) LastGame() (Sent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].Game {
			return m.Sent[i], true
		}
	}
	return Sent{}, false
}

func (m *Messenger) newIDLocked() string {
	m.next++
	id := "m" + strconv.Itoa(m.next)
	m.live[id] = true
	return id
}

// Pointers is an in-memory lifecycle.Pointers.
type Pointers struct {
	mu  sync.Mutex
	ids map[string]string
}

func NewPointers() *Pointers {
	return &Pointers{ids: map[string]string{}}
}

func (p *Pointers) LastMessageID(chatID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.ids[chatID]
	return id, ok
}

func (p *Pointers) SetLastMessageID(_ context.Context, chatID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ids[chatID] = messageID
}

func (p *Pointers) ClearLastMessageID(_ context.Context, chatID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.ids, chatID)
}
