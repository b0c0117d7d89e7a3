package bot

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/minewatch/minewatch/internal/config"
	"github.com/minewatch/minewatch/internal/geoip"
	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/models"
	"github.com/minewatch/minewatch/internal/probe"
	"github.com/minewatch/minewatch/internal/status"
	"github.com/minewatch/minewatch/internal/store"
)

const helpText = `*Minewatch* keeps one pinned status message per chat up to date.

/add <host[:port]> [version] — watch a server
/remove <host[:port]> — stop watching a server
/stop — stop watching everything in this chat
/list — servers watched in this chat
/stat — full status and all-time leaderboard
/month — this month's leaderboard`

// Bot dispatches inbound chat commands against the registry and the probe.
type Bot struct {
	api       *tgbotapi.BotAPI
	transport Transport
	store     *store.Store
	pinger    probe.Pinger
	geo       *geoip.Provider
	cfg       *config.Config

	// save requests a best-effort registry snapshot after a mutation.
	save func()

	now func() time.Time
}

// New logs the bot in and wires the command dispatcher.
func New(cfg *config.Config, st *store.Store, pinger probe.Pinger, geo *geoip.Provider, save func()) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("bot login: %w", err)
	}

	return &Bot{
		api:       api,
		transport: NewTelegram(api, cfg.Bot.MessageRate, cfg.Bot.RateBurst),
		store:     st,
		pinger:    pinger,
		geo:       geo,
		cfg:       cfg,
		save:      save,
		now:       time.Now,
	}, nil
}

// Transport exposes the paced outbound transport for the watcher fan-out.
func (b *Bot) Transport() Transport {
	return b.transport
}

// Username returns the logged-in bot account name.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run consumes the long-poll updates channel until ctx is canceled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			msg := update.Message
			if msg == nil || msg.Chat == nil {
				continue
			}
			if msg.PinnedMessage != nil {
				b.handlePinned(ctx, msg)
				continue
			}
			if !msg.IsCommand() {
				continue
			}
			b.dispatch(ctx, msg)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())

	log.Debug().
		Int64("chat_id", chatID).
		Str("command", msg.Command()).
		Msg("Command received")

	switch msg.Command() {
	case "add":
		b.handleAdd(ctx, chatID, args)
	case "remove":
		b.handleRemove(ctx, chatID, args)
	case "stop":
		b.handleStop(ctx, chatID)
	case "list":
		b.handleList(ctx, chatID)
	case "stat":
		b.handleStat(ctx, chatID)
	case "month":
		b.handleMonth(ctx, chatID)
	case "help", "start":
		b.reply(ctx, chatID, helpText)
	}
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, "Usage: /add <host[:port]> [version]")
		return
	}

	addr, err := mcurl.Parse(args[0])
	if err != nil {
		b.reply(ctx, chatID, "That doesn't look like a server address.")
		return
	}

	version := b.cfg.Poll.DefaultVersion
	if len(args) > 1 {
		version, err = strconv.Atoi(args[1])
		if err != nil || version < 0 {
			b.reply(ctx, chatID, "Protocol version must be a number.")
			return
		}
	}

	probeCtx, cancel := context.WithTimeout(ctx, b.cfg.Poll.Timeout)
	_, err = b.pinger.Ping(probeCtx, addr.Host, addr.Port, version)
	cancel()
	if err != nil {
		log.Debug().Err(err).Str("server", addr.Format()).Msg("Subscribe probe failed")
		b.reply(ctx, chatID, fmt.Sprintf("Can't reach *%s*, nothing added. Check the address and try again.", addr.Format()))
		return
	}

	entry := b.store.Init(addr, version)
	if !entry.AddChat(chatID) {
		b.reply(ctx, chatID, fmt.Sprintf("*%s* is already watched in this chat.", addr.Format()))
		return
	}
	b.save()

	log.Info().
		Str("server", addr.Format()).
		Int("version", version).
		Int64("chat_id", chatID).
		Msg("Server subscribed")

	b.reply(ctx, chatID, fmt.Sprintf("Watching *%s* now. The status message appears after the first poll.", addr.Format()))
}

func (b *Bot) handleRemove(ctx context.Context, chatID int64, args []string) {
	if len(args) == 0 {
		b.reply(ctx, chatID, "Usage: /remove <host[:port]>")
		return
	}

	addr, err := mcurl.Parse(args[0])
	if err != nil {
		b.reply(ctx, chatID, "That doesn't look like a server address.")
		return
	}

	entry := b.store.Find(addr, chatID)
	if entry == nil {
		b.reply(ctx, chatID, fmt.Sprintf("*%s* is not watched in this chat.", addr.Format()))
		return
	}

	b.unsubscribe(ctx, chatID, entry)
	b.save()
	b.reply(ctx, chatID, fmt.Sprintf("Stopped watching *%s*.", addr.Format()))
}

func (b *Bot) handleStop(ctx context.Context, chatID int64) {
	entries := b.store.ByChat(chatID)
	for _, entry := range entries {
		b.unsubscribe(ctx, chatID, entry)
	}
	if len(entries) > 0 {
		b.save()
	}
	b.reply(ctx, chatID, fmt.Sprintf("Stopped watching %d server(s).", len(entries)))
}

// unsubscribe removes the chat from the entry, cleans up its pinned status
// message and drops the entry when no chats remain.
func (b *Bot) unsubscribe(ctx context.Context, chatID int64, entry *models.ServerEntry) {
	for _, sub := range entry.Subscriptions() {
		if sub.ChatID != chatID || sub.MessageID == 0 {
			continue
		}
		if err := b.transport.DeleteMessage(ctx, chatID, sub.MessageID); err != nil {
			log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to delete status message on unsubscribe")
		}
	}

	removed, remaining := entry.RemoveChat(chatID)
	if removed && remaining == 0 {
		b.store.Remove(entry)
		log.Info().
			Str("server", mcurl.Addr{Host: entry.Host, Port: entry.Port}.Format()).
			Msg("Last chat unsubscribed, server dropped")
	}
}

func (b *Bot) handleList(ctx context.Context, chatID int64) {
	entries := b.store.ByChat(chatID)
	if len(entries) == 0 {
		b.reply(ctx, chatID, "Nothing is watched in this chat. Try /add.")
		return
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		label := mcurl.Addr{Host: entry.Host, Port: entry.Port}.Format()
		lines = append(lines, fmt.Sprintf("• *%s* (protocol %d)", label, entry.Version))
	}
	b.reply(ctx, chatID, strings.Join(lines, "\n"))
}

func (b *Bot) handleStat(ctx context.Context, chatID int64) {
	entries := b.store.ByChat(chatID)
	if len(entries) == 0 {
		b.reply(ctx, chatID, "Nothing is watched in this chat. Try /add.")
		return
	}

	now := b.now()
	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry.Lock()
		block := status.Message(entry, now, b.cfg.Poll.OfflineWindow, b.cfg.Poll.TopCount)
		if top := status.TopSection(entry.Players, b.cfg.Poll.TopCount, true, now); top != "" {
			block += "\n\n" + top
		}
		entry.Unlock()

		if country := b.country(ctx, entry.Host); country != "" {
			block += "\n🌐 " + country
		}
		blocks = append(blocks, block)
	}
	b.reply(ctx, chatID, strings.Join(blocks, "\n\n"))
}

func (b *Bot) handleMonth(ctx context.Context, chatID int64) {
	entries := b.store.ByChat(chatID)
	if len(entries) == 0 {
		b.reply(ctx, chatID, "Nothing is watched in this chat. Try /add.")
		return
	}

	now := b.now()
	blocks := make([]string, 0, len(entries))
	for _, entry := range entries {
		label := mcurl.Addr{Host: entry.Host, Port: entry.Port}.Format()

		entry.Lock()
		top := status.TopSection(entry.Players, b.cfg.Poll.TopCount, false, now)
		entry.Unlock()

		if top == "" {
			top = "no players seen yet"
		}
		blocks = append(blocks, "*"+label+"*\n"+top)
	}
	b.reply(ctx, chatID, strings.Join(blocks, "\n\n"))
}

// handlePinned is thin glue for pin service messages: when someone pins one
// of the bot's own messages that is not the expected status message for this
// chat, the stray pin is deleted so the chat keeps a single live status.
func (b *Bot) handlePinned(ctx context.Context, msg *tgbotapi.Message) {
	pinned := msg.PinnedMessage
	if pinned.From == nil || pinned.From.ID != b.api.Self.ID {
		return
	}

	chatID := msg.Chat.ID
	for _, entry := range b.store.ByChat(chatID) {
		for _, sub := range entry.Subscriptions() {
			if sub.ChatID == chatID && sub.MessageID == pinned.MessageID {
				return
			}
		}
	}

	log.Debug().
		Int64("chat_id", chatID).
		Int("message_id", pinned.MessageID).
		Msg("Removing stray pinned message")

	if err := b.transport.DeleteMessage(ctx, chatID, pinned.MessageID); err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("Failed to delete stray pin")
	}
}

// country resolves the server host to an ISO country code, when GeoIP is
// configured.
func (b *Bot) country(ctx context.Context, host string) string {
	if b.geo == nil {
		return ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	addrs, err := net.DefaultResolver.LookupHost(lookupCtx, host)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return b.geo.GetCountryCode(addrs[0])
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if _, err := b.transport.SendMessage(ctx, chatID, text); err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
