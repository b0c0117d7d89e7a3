package bot

import (
	"context"

	"github.com/rs/zerolog/log"
)

// SyncMessage keeps exactly one live status message in a chat. With no prior
// message it sends a new silent message and pins it. With a prior message it
// edits in place; if the edit is rejected (message too old, deleted by a
// user, identical content) the stale message is best-effort deleted and a
// fresh one is sent and pinned.
//
// The returned id is the message now showing the text. A send failure is
// returned to the caller with id zero; the previous id stays valid and the
// next cycle retries naturally.
func SyncMessage(ctx context.Context, t Transport, chatID int64, prevID int, text string) (int, error) {
	if prevID != 0 {
		err := t.EditMessage(ctx, chatID, prevID, text)
		if err == nil {
			return prevID, nil
		}
		log.Debug().
			Err(err).
			Int64("chat_id", chatID).
			Int("message_id", prevID).
			Msg("Edit rejected, replacing status message")

		if err := t.DeleteMessage(ctx, chatID, prevID); err != nil {
			log.Warn().
				Err(err).
				Int64("chat_id", chatID).
				Int("message_id", prevID).
				Msg("Failed to delete stale status message")
		}
	}

	id, err := t.SendMessage(ctx, chatID, text)
	if err != nil {
		return 0, err
	}

	if err := t.PinMessage(ctx, chatID, id); err != nil {
		// The message stands unpinned, which is tolerable.
		log.Warn().
			Err(err).
			Int64("chat_id", chatID).
			Int("message_id", id).
			Msg("Failed to pin status message")
	}

	return id, nil
}
