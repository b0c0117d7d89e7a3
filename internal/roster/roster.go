// Package roster merges probe snapshots into the durable per-player state
// kept for each server.
package roster

import (
	"fmt"
	"time"

	"github.com/minewatch/minewatch/internal/models"
	"github.com/minewatch/minewatch/internal/probe"
)

// MockPlayerID is reported by some servers for authentication placeholder
// sessions and never belongs to a real player.
const MockPlayerID = "00000000-0000-0000-0000-000000000000"

// MonthKey returns the accumulator key for t: "<year>-<zero-based month>".
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%d-%d", t.Year(), int(t.Month())-1)
}

// Reconcile merges snap into the previous roster and returns the new roster
// and capacity.
//
// A nil snapshot means the probe failed: every known player is marked
// offline and nothing else changes. Otherwise players present in the sample
// are marked online, credited interval worth of online time for the current
// month and stamped with now; players absent from the sample are marked
// offline with counters untouched; sample players not yet in the roster are
// appended as new records.
func Reconcile(snap *probe.Snapshot, prev []*models.PlayerRecord, prevMax int, interval time.Duration, now time.Time) ([]*models.PlayerRecord, int) {
	if snap == nil {
		for _, p := range prev {
			p.IsOnline = false
		}
		return prev, prevMax
	}

	month := MonthKey(now)
	ms := interval.Milliseconds()

	seen := make(map[string]probe.Player, len(snap.Sample))
	for _, sp := range snap.Sample {
		if sp.ID == MockPlayerID {
			continue
		}
		seen[sp.ID] = sp
	}

	known := make(map[string]struct{}, len(prev))
	players := prev
	for _, p := range prev {
		known[p.ID] = struct{}{}

		sp, online := seen[p.ID]
		if !online {
			p.IsOnline = false
			continue
		}
		p.IsOnline = true
		p.Name = sp.Name
		p.LastOnline = now
		if p.OnlineByMonth == nil {
			p.OnlineByMonth = make(map[string]int64)
		}
		p.OnlineByMonth[month] += ms
	}

	// New players join in sample order.
	for _, sp := range snap.Sample {
		if sp.ID == MockPlayerID {
			continue
		}
		if _, ok := known[sp.ID]; ok {
			continue
		}
		known[sp.ID] = struct{}{}
		players = append(players, &models.PlayerRecord{
			ID:            sp.ID,
			Name:          sp.Name,
			IsOnline:      true,
			LastOnline:    now,
			OnlineByMonth: map[string]int64{month: ms},
		})
	}

	return players, snap.MaxPlayers
}
