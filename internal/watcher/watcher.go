// Package watcher runs the poll cycle: probe every tracked server, merge
// the results into the rosters and fan changed status texts out to the
// subscribed chats.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minewatch/minewatch/internal/bot"
	"github.com/minewatch/minewatch/internal/config"
	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/models"
	"github.com/minewatch/minewatch/internal/probe"
	"github.com/minewatch/minewatch/internal/roster"
	"github.com/minewatch/minewatch/internal/status"
	"github.com/minewatch/minewatch/internal/store"
)

// Watcher drives repeated poll cycles with a fixed inter-cycle delay. A new
// cycle starts only after every probe of the previous one has resolved.
type Watcher struct {
	store     *store.Store
	pinger    probe.Pinger
	transport bot.Transport

	interval    time.Duration
	timeout     time.Duration
	window      time.Duration
	topCount    int
	concurrency int

	now func() time.Time
}

// New wires a watcher from the poll configuration.
func New(st *store.Store, pinger probe.Pinger, transport bot.Transport, cfg *config.Config) *Watcher {
	concurrency := cfg.Poll.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	return &Watcher{
		store:       st,
		pinger:      pinger,
		transport:   transport,
		interval:    cfg.Poll.Interval,
		timeout:     cfg.Poll.Timeout,
		window:      cfg.Poll.OfflineWindow,
		topCount:    cfg.Poll.TopCount,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Run loops until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.interval):
		}
		w.cycle(ctx)
	}
}

// cycle probes every tracked server concurrently, bounded by the semaphore,
// and waits for all of them. A slow or failing server affects only itself.
func (w *Watcher) cycle(ctx context.Context) {
	sem := make(chan struct{}, w.concurrency)
	var wg sync.WaitGroup

	for _, entry := range w.store.All() {
		wg.Add(1)
		go func(entry *models.ServerEntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			probeCtx, cancel := context.WithTimeout(ctx, w.timeout)
			snap, err := w.pinger.Ping(probeCtx, entry.Host, entry.Port, entry.Version)
			cancel()
			if err != nil {
				log.Debug().
					Err(err).
					Str("server", mcurl.Addr{Host: entry.Host, Port: entry.Port}.Format()).
					Msg("Probe failed")
				snap = nil
			}

			w.apply(ctx, entry, snap)
		}(entry)
	}

	wg.Wait()
}

// apply reconciles one probe outcome into the entry and, when the rendered
// status changed, updates every subscribed chat. Chats are updated
// concurrently; one chat failing does not block its siblings.
func (w *Watcher) apply(ctx context.Context, entry *models.ServerEntry, snap *probe.Snapshot) {
	now := w.now()

	entry.Lock()
	before := status.Message(entry, now, w.window, w.topCount)

	players, maxPlayers := roster.Reconcile(snap, entry.Players, entry.MaxPlayers, w.interval, now)
	entry.Players = players
	entry.MaxPlayers = maxPlayers
	entry.HasError = snap == nil
	if snap != nil {
		entry.OnlineCount = snap.Online
	} else {
		entry.OnlineCount = 0
	}

	after := status.Message(entry, now, w.window, w.topCount)
	entry.Unlock()

	// Rendered-text equality is the one change signal.
	if after == before {
		return
	}

	var wg sync.WaitGroup
	for _, sub := range entry.Subscriptions() {
		wg.Add(1)
		go func(sub models.ChatSubscription) {
			defer wg.Done()

			id, err := bot.SyncMessage(ctx, w.transport, sub.ChatID, sub.MessageID, after)
			if err != nil {
				log.Warn().
					Err(err).
					Int64("chat_id", sub.ChatID).
					Msg("Status update not delivered, will retry next change")
				return
			}
			if id != sub.MessageID {
				entry.SetMessageID(sub.ChatID, id)
			}
		}(sub)
	}
	wg.Wait()
}
