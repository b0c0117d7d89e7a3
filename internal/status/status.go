// Package status renders a server's roster into the human-readable text
// shown in chats. Rendering is a pure function of the roster and the clock:
// the poll cycle compares two renders byte for byte to decide whether a
// notification is worth sending.
package status

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/models"
	"github.com/minewatch/minewatch/internal/roster"
)

// maxListedPlayers caps the total number of players shown in one message so
// a busy server does not overflow the chat message limit.
const maxListedPlayers = 30

var medals = []string{"🥇", "🥈", "🥉"}

// Message renders the full status text for a server: header, online list,
// recent-offline list and the monthly leaderboard. The caller must hold the
// entry lock.
func Message(s *models.ServerEntry, now time.Time, window time.Duration, topCount int) string {
	label := mcurl.Addr{Host: s.Host, Port: s.Port}.Format()

	var online, offline []*models.PlayerRecord
	for _, p := range s.Players {
		if p.IsOnline {
			online = append(online, p)
		} else {
			offline = append(offline, p)
		}
	}

	// The probe's reported total wins over the sample when the server
	// truncates the player list.
	count := len(online)
	if s.OnlineCount > count {
		count = s.OnlineCount
	}

	var head []string
	if s.HasError {
		head = []string{"🛑", "*" + label + "*", "is offline"}
	} else {
		head = []string{"*" + label + "*", fmt.Sprintf("*%d/%d*", count, s.MaxPlayers)}
	}

	sections := []string{strings.Join(head, " ")}
	if sec := onlineSection(online); sec != "" {
		sections = append(sections, sec)
	}
	if sec := offlineSection(offline, now, window, maxListedPlayers-len(online)); sec != "" {
		sections = append(sections, sec)
	}

	text := strings.Join(sections, "\n")
	if top := TopSection(s.Players, topCount, false, now); top != "" {
		text += "\n\n" + top
	}

	return text
}

// TopSection renders the leaderboard of players by accumulated online time,
// for the current month or all time. Empty rosters produce no section.
func TopSection(players []*models.PlayerRecord, count int, allTime bool, now time.Time) string {
	if len(players) == 0 || count <= 0 {
		return ""
	}

	month := roster.MonthKey(now)
	type ranked struct {
		player *models.PlayerRecord
		online int64
	}

	list := make([]ranked, 0, len(players))
	for _, p := range players {
		var total int64
		if allTime {
			for _, v := range p.OnlineByMonth {
				total += v
			}
		} else {
			total = p.OnlineByMonth[month]
		}
		list = append(list, ranked{player: p, online: total})
	}

	// Ties keep roster order.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].online > list[j].online
	})
	if len(list) > count {
		list = list[:count]
	}

	title := fmt.Sprintf("*Top %d online this month*", count)
	if allTime {
		title = fmt.Sprintf("*Top %d online overall*", count)
	}

	lines := []string{title}
	for i, r := range list {
		decor := fmt.Sprintf("*%d.*", i+1)
		if i < len(medals) {
			decor = medals[i]
		}
		lines = append(lines, fmt.Sprintf("%s %s ~ %s", decor, r.player.Name, onlineSpan(r.online, now)))
	}

	return strings.Join(lines, "\n")
}

func onlineSection(online []*models.PlayerRecord) string {
	if len(online) == 0 {
		return ""
	}

	sorted := append([]*models.PlayerRecord(nil), online...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return strings.ToLower(sorted[i].Name) < strings.ToLower(sorted[j].Name)
	})

	lines := make([]string, 0, len(sorted))
	for _, p := range sorted {
		lines = append(lines, "🟢"+p.Name)
	}
	return strings.Join(lines, "\n")
}

// offlineSection lists players last seen within the recency window, most
// recent first. Older players stay in the roster but are not rendered.
func offlineSection(offline []*models.PlayerRecord, now time.Time, window time.Duration, limit int) string {
	var recent []*models.PlayerRecord
	for _, p := range offline {
		if now.Sub(p.LastOnline) < window {
			recent = append(recent, p)
		}
	}
	if len(recent) == 0 || limit <= 0 {
		return ""
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].LastOnline.After(recent[j].LastOnline)
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}

	lines := make([]string, 0, len(recent))
	for _, p := range recent {
		lines = append(lines, fmt.Sprintf("⚪%s ~ %s", p.Name, humanize.RelTime(p.LastOnline, now, "ago", "from now")))
	}
	return strings.Join(lines, "\n")
}

// onlineSpan humanizes an accumulated duration ("2 hours", "5 minutes").
func onlineSpan(ms int64, now time.Time) string {
	d := time.Duration(ms) * time.Millisecond
	return strings.TrimSpace(humanize.RelTime(now.Add(-d), now, "", ""))
}
