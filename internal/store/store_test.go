package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/models"
)

var addr = mcurl.Addr{Host: "mc.example.org", Port: 25565}

func TestInitIsIdempotentPerKey(t *testing.T) {
	s := New()

	first := s.Init(addr, 763)
	second := s.Init(addr, 763)

	assert.Same(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestInitDistinguishesVersions(t *testing.T) {
	s := New()

	a := s.Init(addr, 763)
	b := s.Init(addr, 764)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, s.Len())
}

func TestFindMatchesChat(t *testing.T) {
	s := New()
	entry := s.Init(addr, 763)
	entry.AddChat(42)

	assert.Same(t, entry, s.Find(addr, 42))
	assert.Nil(t, s.Find(addr, 99))
	assert.Nil(t, s.Find(mcurl.Addr{Host: "other.example.org"}, 42))
}

func TestByChat(t *testing.T) {
	s := New()
	a := s.Init(addr, 763)
	a.AddChat(42)
	b := s.Init(mcurl.Addr{Host: "second.example.org"}, 763)
	b.AddChat(42)
	s.Init(mcurl.Addr{Host: "third.example.org"}, 763).AddChat(7)

	entries := s.ByChat(42)

	require.Len(t, entries, 2)
	assert.Same(t, a, entries[0])
	assert.Same(t, b, entries[1])
}

func TestRemove(t *testing.T) {
	s := New()
	entry := s.Init(addr, 763)

	s.Remove(entry)

	assert.Equal(t, 0, s.Len())
	assert.NotSame(t, entry, s.Init(addr, 763), "a fresh entry is created after removal")
}

func populated() *Store {
	s := New()

	entry := s.Init(addr, 763)
	entry.AddChat(42)
	entry.AddChat(43)
	entry.SetMessageID(42, 1007)

	entry.Lock()
	entry.MaxPlayers = 30
	entry.Players = []*models.PlayerRecord{
		{
			ID: "aaa", Name: "alice", IsOnline: true,
			LastOnline:    time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC),
			OnlineByMonth: map[string]int64{"2026-7": 300000},
		},
		{
			ID: "bbb", Name: "bob",
			LastOnline:    time.Date(2026, time.August, 29, 10, 0, 0, 0, time.UTC),
			OnlineByMonth: map[string]int64{"2026-6": 120000, "2026-7": 60000},
		},
		{
			ID: "ccc", Name: "carol",
			LastOnline: time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	entry.Unlock()

	s.Init(mcurl.Addr{Host: "second.example.org"}, 764).AddChat(7)

	return s
}

func TestSerializeRoundTrip(t *testing.T) {
	original := populated()

	data, err := original.Serialize()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Deserialize(data))

	require.Equal(t, original.Len(), restored.Len())

	want := original.All()
	got := restored.All()
	for i := range want {
		assert.Equal(t, want[i].Host, got[i].Host)
		assert.Equal(t, want[i].Port, got[i].Port)
		assert.Equal(t, want[i].Version, got[i].Version)
		assert.Equal(t, want[i].MaxPlayers, got[i].MaxPlayers)
		assert.Equal(t, want[i].Players, got[i].Players)
		assert.Equal(t, want[i].Chats, got[i].Chats)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	s := populated()

	err := s.Deserialize([]byte("{definitely not json"))

	require.Error(t, err)
	assert.Equal(t, 0, s.Len(), "malformed input degrades to an empty registry")
}

func TestDeserializeIgnoresUnknownFields(t *testing.T) {
	s := New()

	data := []byte(`[{"key":"mc.example.org:25565@763","server":{
		"host":"mc.example.org","port":25565,"version":763,"maxPlayers":30,
		"players":[{"id":"aaa","name":"alice","isOnline":false,
			"lastOnline":"2026-08-30T12:00:00Z","futureField":1}],
		"chats":[{"chatId":42}],
		"someNewSetting":true}}]`)

	require.NoError(t, s.Deserialize(data))
	require.Equal(t, 1, s.Len())

	entry := s.All()[0]
	assert.Equal(t, "mc.example.org", entry.Host)
	require.Len(t, entry.Players, 1)
	assert.Nil(t, entry.Players[0].OnlineByMonth, "missing accumulator map defaults to empty")
}

func TestRoundTripPreservesOrder(t *testing.T) {
	s := New()
	hosts := []string{"third.example.org", "first.example.org", "second.example.org"}
	for _, h := range hosts {
		s.Init(mcurl.Addr{Host: h}, 763)
	}

	data, err := s.Serialize()
	require.NoError(t, err)

	restored := New()
	require.NoError(t, restored.Deserialize(data))

	var got []string
	for _, entry := range restored.All() {
		got = append(got, entry.Host)
	}
	assert.Equal(t, hosts, got)
}
