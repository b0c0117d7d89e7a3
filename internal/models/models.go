// Package models defines the data structures tracked per game server and
// persisted in the registry snapshot.
package models

import (
	"sync"
	"time"
)

// PlayerRecord is the durable state kept for a single player on a single
// server. Records are created the first time a probe snapshot mentions the
// id and are never dropped automatically.
type PlayerRecord struct {
	// ID is the opaque identifier reported by the game server.
	// Display names are mutable and never used as identity.
	ID string `json:"id"`

	// Name is the last display name seen for the player.
	Name string `json:"name"`

	// IsOnline is recomputed in full on every reconciliation pass.
	IsOnline bool `json:"isOnline"`

	// LastOnline is the time of the most recent pass that saw the player.
	LastOnline time.Time `json:"lastOnline"`

	// OnlineByMonth maps a "<year>-<zero-based month>" key to accumulated
	// online milliseconds. Values only ever grow.
	OnlineByMonth map[string]int64 `json:"onlineByMonth,omitempty"`
}

// ChatSubscription binds a chat to a server and remembers the pinned status
// message currently shown there.
type ChatSubscription struct {
	ChatID int64 `json:"chatId"`

	// MessageID is zero until the first status message is sent.
	MessageID int `json:"messageId,omitempty"`
}

// ServerEntry is one tracked game server: its address, protocol version,
// roster and subscribed chats. Identity is (host, port, version).
type ServerEntry struct {
	Host string `json:"host"`

	// Port is zero when the game's default port is used.
	Port int `json:"port,omitempty"`

	// Version is the protocol version supplied at subscribe time.
	Version int `json:"version"`

	// MaxPlayers is the last known capacity.
	MaxPlayers int `json:"maxPlayers"`

	// OnlineCount is the online total reported by the last probe. Servers
	// truncate the player sample, so this can exceed the roster's online
	// count.
	OnlineCount int `json:"onlineCount,omitempty"`

	Players []*PlayerRecord     `json:"players"`
	Chats   []*ChatSubscription `json:"chats"`

	// HasError is set when the most recent probe failed.
	HasError bool `json:"hasError,omitempty"`

	mu sync.Mutex
}

// Lock serializes roster and chat mutation for this entry. The poll cycle
// and command handlers interleave, so every mutation goes through here.
func (s *ServerEntry) Lock() { s.mu.Lock() }

// Unlock releases the entry lock.
func (s *ServerEntry) Unlock() { s.mu.Unlock() }

// Chat returns the subscription for chatID, or nil.
// Caller must hold the entry lock.
func (s *ServerEntry) Chat(chatID int64) *ChatSubscription {
	for _, c := range s.Chats {
		if c.ChatID == chatID {
			return c
		}
	}
	return nil
}

// AddChat subscribes chatID to this entry. Returns false if the chat was
// already subscribed.
func (s *ServerEntry) AddChat(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Chat(chatID) != nil {
		return false
	}
	s.Chats = append(s.Chats, &ChatSubscription{ChatID: chatID})
	return true
}

// RemoveChat drops the subscription for chatID and reports whether it
// existed and how many chats remain.
func (s *ServerEntry) RemoveChat(chatID int64) (removed bool, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.Chats {
		if c.ChatID == chatID {
			s.Chats = append(s.Chats[:i], s.Chats[i+1:]...)
			return true, len(s.Chats)
		}
	}
	return false, len(s.Chats)
}

// SetMessageID records the current pinned message for chatID.
func (s *ServerEntry) SetMessageID(chatID int64, messageID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.Chat(chatID); c != nil {
		c.MessageID = messageID
	}
}

// Subscriptions returns a copy of the chat list safe to iterate without the
// entry lock held.
func (s *ServerEntry) Subscriptions() []ChatSubscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ChatSubscription, 0, len(s.Chats))
	for _, c := range s.Chats {
		out = append(out, *c)
	}
	return out
}

// HasChat reports whether chatID is subscribed to this entry.
func (s *ServerEntry) HasChat(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Chat(chatID) != nil
}
