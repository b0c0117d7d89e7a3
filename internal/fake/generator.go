// Package fake populates the registry with randomized servers and rosters
// for renderer and dashboard development.
package fake

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/models"
	"github.com/minewatch/minewatch/internal/roster"
	"github.com/minewatch/minewatch/internal/store"
)

var names = []string{
	"Steve", "Alex", "Herobrine", "creeper_fan", "EnderLord", "diamond_dan",
	"Pickaxe_Pete", "redstone_rita", "VillagerNo9", "ZombiePigman",
	"skyblock_sam", "NetherQueen", "obsidian_olli", "GhastBuster",
}

// GenerateData fills the store with count randomized servers, each with a
// roster carrying a few months of online history.
func GenerateData(st *store.Store, count int) {
	now := time.Now()

	for i := 0; i < count; i++ {
		addr := mcurl.Addr{
			Host: fmt.Sprintf("mc%d.example.org", i+1),
			Port: 25565 + rand.Intn(10),
		}
		entry := st.Init(addr, 763)
		entry.AddChat(int64(1000 + i))

		entry.Lock()
		entry.MaxPlayers = 20 + rand.Intn(80)
		playerCount := 3 + rand.Intn(len(names)-3)
		for j := 0; j < playerCount; j++ {
			lastSeen := now.Add(-time.Duration(rand.Intn(72)) * time.Hour)
			online := rand.Float32() < 0.4

			months := make(map[string]int64)
			for m := 0; m < 3; m++ {
				key := roster.MonthKey(now.AddDate(0, -m, 0))
				months[key] = int64(rand.Intn(90)) * time.Hour.Milliseconds()
			}

			entry.Players = append(entry.Players, &models.PlayerRecord{
				ID:            fmt.Sprintf("fake-%s-%d", names[j%len(names)], j),
				Name:          names[j%len(names)],
				IsOnline:      online,
				LastOnline:    lastSeen,
				OnlineByMonth: months,
			})
			if online {
				entry.OnlineCount++
			}
		}
		entry.Unlock()
	}

	log.Info().Int("servers", count).Msg("Fake registry generated")
}
