// Package store owns the registry of tracked servers and its serialized
// form. Entries are keyed by (host, port, version) hashed with xxhash; the
// serialized layout is an ordered list of key/server pairs so a restart
// resumes with rosters, accumulators and message ids intact.
package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/models"
)

// Store is the registry of tracked servers. Structural operations are
// guarded by an internal lock; mutation inside a returned entry goes through
// the entry's own lock.
type Store struct {
	mu      sync.RWMutex
	order   []uint64
	servers map[uint64]*models.ServerEntry
}

// storedServer is one element of the serialized registry.
type storedServer struct {
	Key    string              `json:"key"`
	Server *models.ServerEntry `json:"server"`
}

// New returns an empty registry.
func New() *Store {
	return &Store{servers: make(map[uint64]*models.ServerEntry)}
}

func keyHash(host string, port, version int) uint64 {
	label := mcurl.Addr{Host: host, Port: port}.Format()
	return xxhash.Sum64String(label + "@" + strconv.Itoa(version))
}

// Init returns the entry for (addr, version), creating a zeroed one if the
// key is not yet tracked. Calling it twice with the same key returns the
// same entry.
func (s *Store) Init(addr mcurl.Addr, version int) *models.ServerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := keyHash(addr.Host, addr.Port, version)
	if entry, ok := s.servers[hash]; ok {
		return entry
	}

	entry := &models.ServerEntry{
		Host:    addr.Host,
		Port:    addr.Port,
		Version: version,
		Players: []*models.PlayerRecord{},
		Chats:   []*models.ChatSubscription{},
	}
	s.servers[hash] = entry
	s.order = append(s.order, hash)
	return entry
}

// Find returns the entry matching addr that has chatID among its chats,
// or nil. Protocol version is deliberately not part of the lookup: a chat
// refers to its subscription by address alone.
func (s *Store) Find(addr mcurl.Addr, chatID int64) *models.ServerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, hash := range s.order {
		entry := s.servers[hash]
		if entry.Host == addr.Host && entry.Port == addr.Port && entry.HasChat(chatID) {
			return entry
		}
	}
	return nil
}

// All returns every tracked entry in insertion order.
func (s *Store) All() []*models.ServerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ServerEntry, 0, len(s.order))
	for _, hash := range s.order {
		out = append(out, s.servers[hash])
	}
	return out
}

// ByChat returns the entries chatID is subscribed to, in insertion order.
func (s *Store) ByChat(chatID int64) []*models.ServerEntry {
	var out []*models.ServerEntry
	for _, entry := range s.All() {
		if entry.HasChat(chatID) {
			out = append(out, entry)
		}
	}
	return out
}

// Remove drops the entry entirely. Used when its last chat unsubscribes.
func (s *Store) Remove(entry *models.ServerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := keyHash(entry.Host, entry.Port, entry.Version)
	if _, ok := s.servers[hash]; !ok {
		return
	}
	delete(s.servers, hash)
	for i, h := range s.order {
		if h == hash {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of tracked servers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.servers)
}

// Serialize dumps the registry as an ordered JSON list of key/server pairs.
// Each entry is marshaled under its own lock so a concurrently running poll
// cycle cannot tear the snapshot.
func (s *Store) Serialize() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type rawPair struct {
		Key    string          `json:"key"`
		Server json.RawMessage `json:"server"`
	}

	pairs := make([]rawPair, 0, len(s.order))
	for _, hash := range s.order {
		entry := s.servers[hash]
		entry.Lock()
		key := mcurl.Addr{Host: entry.Host, Port: entry.Port}.Format() + "@" + strconv.Itoa(entry.Version)
		raw, err := json.Marshal(entry)
		entry.Unlock()
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", key, err)
		}
		pairs = append(pairs, rawPair{Key: key, Server: raw})
	}

	return json.Marshal(pairs)
}

// Deserialize replaces the registry contents with data. Malformed input
// leaves the registry empty and returns the parse error; unknown fields are
// ignored so newer snapshots still load.
func (s *Store) Deserialize(data []byte) error {
	var pairs []storedServer
	if err := json.Unmarshal(data, &pairs); err != nil {
		s.mu.Lock()
		s.order = nil
		s.servers = make(map[uint64]*models.ServerEntry)
		s.mu.Unlock()
		return fmt.Errorf("parse registry snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.servers = make(map[uint64]*models.ServerEntry, len(pairs))
	for _, pair := range pairs {
		if pair.Server == nil || pair.Server.Host == "" {
			continue
		}
		entry := pair.Server
		if entry.Players == nil {
			entry.Players = []*models.PlayerRecord{}
		}
		if entry.Chats == nil {
			entry.Chats = []*models.ChatSubscription{}
		}
		hash := keyHash(entry.Host, entry.Port, entry.Version)
		if _, ok := s.servers[hash]; ok {
			continue
		}
		s.servers[hash] = entry
		s.order = append(s.order, hash)
	}

	return nil
}
