package status

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minewatch/minewatch/internal/models"
)

var (
	testNow    = time.Date(2026, time.August, 30, 12, 0, 0, 0, time.UTC)
	testWindow = 60 * time.Minute
)

func player(id, name string, online bool, lastOnline time.Time, monthMs int64) *models.PlayerRecord {
	return &models.PlayerRecord{
		ID:         id,
		Name:       name,
		IsOnline:   online,
		LastOnline: lastOnline,
		OnlineByMonth: map[string]int64{
			"2026-7": monthMs,
		},
	}
}

func testEntry() *models.ServerEntry {
	return &models.ServerEntry{
		Host:       "test.goodmc.org",
		Version:    763,
		MaxPlayers: 30,
		Players: []*models.PlayerRecord{
			player("aaa", "bob", true, testNow, 300000),
			player("bbb", "Alice", true, testNow, 120000),
			player("ccc", "carol", false, testNow.Add(-59*time.Minute), 120000),
			player("ddd", "dave", false, testNow.Add(-61*time.Minute), 0),
		},
	}
}

func TestMessageDeterminism(t *testing.T) {
	entry := testEntry()

	first := Message(entry, testNow, testWindow, 3)
	second := Message(entry, testNow, testWindow, 3)

	assert.Equal(t, first, second)
}

func TestMessageHeader(t *testing.T) {
	entry := testEntry()
	text := Message(entry, testNow, testWindow, 3)

	assert.True(t, strings.HasPrefix(text, "*test.goodmc.org* *2/30*"), "got: %s", text)
	assert.NotContains(t, text, "🛑")
}

func TestMessageHeaderUsesReportedCount(t *testing.T) {
	entry := testEntry()
	entry.OnlineCount = 7

	text := Message(entry, testNow, testWindow, 3)

	assert.True(t, strings.HasPrefix(text, "*test.goodmc.org* *7/30*"),
		"reported total wins over a truncated sample, got: %s", text)
}

func TestMessageErrorHeader(t *testing.T) {
	entry := testEntry()
	entry.HasError = true

	text := Message(entry, testNow, testWindow, 3)

	assert.True(t, strings.HasPrefix(text, "🛑 *test.goodmc.org* is offline"), "got: %s", text)
}

func TestMessageOnlineSortedCaseInsensitive(t *testing.T) {
	text := Message(testEntry(), testNow, testWindow, 3)

	alice := strings.Index(text, "🟢Alice")
	bob := strings.Index(text, "🟢bob")
	require.GreaterOrEqual(t, alice, 0)
	require.GreaterOrEqual(t, bob, 0)
	assert.Less(t, alice, bob)
}

func TestMessageOfflineWindow(t *testing.T) {
	text := Message(testEntry(), testNow, testWindow, 3)

	assert.Contains(t, text, "⚪carol ~ ", "59 minutes is inside a 60 minute window")
	assert.NotContains(t, text, "⚪dave", "61 minutes is outside a 60 minute window")

	// Filtering is render-only: the roster keeps the player.
	entry := testEntry()
	_ = Message(entry, testNow, testWindow, 3)
	require.Len(t, entry.Players, 4)
}

func TestMessageOfflineSortedByRecency(t *testing.T) {
	entry := testEntry()
	entry.Players = append(entry.Players, player("eee", "erin", false, testNow.Add(-10*time.Minute), 0))

	text := Message(entry, testNow, testWindow, 3)

	erin := strings.Index(text, "⚪erin")
	carol := strings.Index(text, "⚪carol")
	require.GreaterOrEqual(t, erin, 0)
	require.GreaterOrEqual(t, carol, 0)
	assert.Less(t, erin, carol, "most recently seen first")
}

func TestTopSectionRanking(t *testing.T) {
	entry := &models.ServerEntry{
		Host:       "test.goodmc.org",
		MaxPlayers: 30,
		Players: []*models.PlayerRecord{
			player("a", "A", false, testNow, 300000),
			player("b", "B", false, testNow, 120000),
			player("c", "C", false, testNow, 120000),
			player("d", "D", false, testNow, 0),
		},
	}

	top := TopSection(entry.Players, 3, false, testNow)
	lines := strings.Split(top, "\n")

	require.Len(t, lines, 4)
	assert.Equal(t, "*Top 3 online this month*", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "🥇 A"), "got: %s", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "🥈 B"), "ties keep roster order, got: %s", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "🥉 C"), "got: %s", lines[3])
	assert.NotContains(t, top, "D")
}

func TestTopSectionPlainRanks(t *testing.T) {
	players := []*models.PlayerRecord{
		player("a", "A", false, testNow, 500000),
		player("b", "B", false, testNow, 400000),
		player("c", "C", false, testNow, 300000),
		player("d", "D", false, testNow, 200000),
	}

	top := TopSection(players, 4, false, testNow)

	assert.Contains(t, top, "*4.* D")
}

func TestTopSectionAllTime(t *testing.T) {
	players := []*models.PlayerRecord{
		{ID: "a", Name: "A", OnlineByMonth: map[string]int64{"2026-6": 600000, "2026-7": 0}},
		{ID: "b", Name: "B", OnlineByMonth: map[string]int64{"2026-7": 300000}},
	}

	month := TopSection(players, 3, false, testNow)
	all := TopSection(players, 3, true, testNow)

	monthLines := strings.Split(month, "\n")
	allLines := strings.Split(all, "\n")
	assert.True(t, strings.HasPrefix(monthLines[1], "🥇 B"), "B leads this month, got: %s", monthLines[1])
	assert.True(t, strings.HasPrefix(allLines[1], "🥇 A"), "A leads overall, got: %s", allLines[1])
	assert.Equal(t, "*Top 3 online overall*", allLines[0])
}

func TestMessageEmptyRoster(t *testing.T) {
	entry := &models.ServerEntry{Host: "test.goodmc.org", MaxPlayers: 30}

	text := Message(entry, testNow, testWindow, 3)

	assert.Equal(t, "*test.goodmc.org* *0/30*", text, "no sections and no leaderboard for an empty roster")
}

func TestTopSectionEmpty(t *testing.T) {
	assert.Empty(t, TopSection(nil, 3, false, testNow))
}
