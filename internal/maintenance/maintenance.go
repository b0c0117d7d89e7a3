// Package maintenance provides offline tasks over the persisted registry.
package maintenance

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minewatch/minewatch/internal/config"
	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/status"
	"github.com/minewatch/minewatch/internal/storage"
	"github.com/minewatch/minewatch/internal/store"
)

// Run checks the maintenance flags and executes the corresponding task on
// the already loaded registry. Returns true if a task ran (indicating the
// program should exit).
func Run(cfg *config.Config, st *store.Store, repo *storage.Repository) bool {
	switch {
	case cfg.Storage.PruneOffline > 0:
		pruneOffline(cfg.Storage.PruneOffline, st, repo)
		return true
	case cfg.Storage.Dump:
		dump(cfg, st)
		return true
	}

	return false
}

// pruneOffline drops players last seen before the cutoff. Rosters are never
// trimmed automatically, so this is the one deliberate way to forget
// long-gone players and their accumulators.
func pruneOffline(maxAge time.Duration, st *store.Store, repo *storage.Repository) {
	cutoff := time.Now().Add(-maxAge)
	var pruned int

	for _, entry := range st.All() {
		entry.Lock()
		kept := entry.Players[:0]
		for _, p := range entry.Players {
			if p.IsOnline || p.LastOnline.After(cutoff) {
				kept = append(kept, p)
			} else {
				pruned++
			}
		}
		entry.Players = kept
		entry.Unlock()
	}

	if pruned == 0 {
		log.Info().Msg("No players to prune")
		return
	}

	data, err := st.Serialize()
	if err != nil {
		log.Error().Err(err).Msg("Failed to serialize pruned registry")
		return
	}
	if err := repo.SaveState(data); err != nil {
		log.Error().Err(err).Msg("Failed to save pruned registry")
		return
	}

	log.Info().Int("pruned", pruned).Msg("Prune finished")
}

// dump prints the rendered status of every tracked server to stdout.
func dump(cfg *config.Config, st *store.Store) {
	entries := st.All()
	if len(entries) == 0 {
		log.Info().Msg("Registry is empty")
		return
	}

	now := time.Now()
	for _, entry := range entries {
		entry.Lock()
		text := status.Message(entry, now, cfg.Poll.OfflineWindow, cfg.Poll.TopCount)
		chats := len(entry.Chats)
		entry.Unlock()

		fmt.Printf("--- %s (protocol %d, %d chats)\n%s\n\n",
			mcurl.Addr{Host: entry.Host, Port: entry.Port}.Format(), entry.Version, chats, text)
	}
}
