package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"cookbot/core/flow"
	"cookbot/core/logger"
	"cookbot/core/order"
	tgsender "cookbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Renderer maps effect descriptors onto telebot calls. Callback answers go
// out immediately; everything else runs on the async sender so handlers
// never wait on the Telegram API.
type Renderer struct {
	bot     *tele.Bot
	out     *tgsender.Dispatcher
	archive *order.Archive
	adminID int64
}

// NewRenderer binds the bot, the outbound sender, and the order archive.
// archive may be nil when no database is configured.
func NewRenderer(bot *tele.Bot, out *tgsender.Dispatcher, archive *order.Archive, adminID int64) *Renderer {
	return &Renderer{bot: bot, out: out, archive: archive, adminID: adminID}
}

// Render delivers one dispatch's effects. The message effects of a single
// dispatch are sent sequentially inside one queued job so the cart header,
// line cards, and the pay prompt arrive in order.
func (r *Renderer) Render(ctx context.Context, c tele.Context, effects []flow.Effect) {
	if len(effects) == 0 {
		return
	}

	var queued []flow.Effect
	for _, eff := range effects {
		if ack, ok := eff.(flow.AnswerCallback); ok {
			r.respond(ctx, c, ack)
			continue
		}
		queued = append(queued, eff)
	}
	if len(queued) == 0 {
		return
	}

	chat := c.Chat()
	if chat == nil {
		return
	}
	recipient := tele.ChatID(chat.ID)

	err := r.out.Enqueue(ctx, "render.effects", func() error {
		for _, eff := range queued {
			r.deliver(ctx, recipient, eff)
		}
		return nil
	})
	if err != nil {
		// queue saturated or closed; deliver inline rather than drop
		logger.Warn(ctx, "tg", "render.queue.fallback",
			slog.Int64("chat_id", chat.ID),
			slog.String("err", err.Error()),
		)
		for _, eff := range queued {
			r.deliver(ctx, recipient, eff)
		}
	}
}

func (r *Renderer) respond(ctx context.Context, c tele.Context, ack flow.AnswerCallback) {
	if c.Callback() == nil {
		return
	}
	if err := c.Respond(&tele.CallbackResponse{Text: ack.Text}); err != nil {
		logger.Warn(ctx, "tg", "callback.answer",
			slog.String("err", err.Error()),
		)
	}
}

// deliver performs one outbound call. Failures are logged and do not stop
// the remaining effects; transient network errors retry inside the HTTP
// client.
func (r *Renderer) deliver(ctx context.Context, recipient tele.Recipient, eff flow.Effect) {
	var err error
	action := "send"

	switch e := eff.(type) {
	case flow.SendText:
		action = "send.text"
		opts := &tele.SendOptions{ReplyMarkup: buildMarkup(e.Keyboard)}
		if e.Markdown {
			opts.ParseMode = tele.ModeMarkdown
		}
		_, err = r.bot.Send(recipient, e.Body, opts)

	case flow.SendPhoto:
		action = "send.photo"
		photo := &tele.Photo{File: tele.FromDisk(e.AssetRef), Caption: e.Caption}
		_, err = r.bot.Send(recipient, photo, &tele.SendOptions{
			ParseMode:   tele.ModeMarkdown,
			ReplyMarkup: buildMarkup(e.Keyboard),
		})

	case flow.EditKeyboard:
		action = "edit.keyboard"
		ref, ok := parseMessageRef(e.MessageRef)
		if !ok {
			return
		}
		_, err = r.bot.EditReplyMarkup(ref, buildMarkup(e.Keyboard))

	case flow.NotifyAdmin:
		action = "notify.admin"
		_, err = r.bot.Send(tele.ChatID(r.adminID), e.Body)

	case flow.ArchiveOrder:
		action = "order.archive"
		if r.archive == nil {
			return
		}
		err = r.archive.Record(ctx, e.Submission)
	}

	if err != nil {
		logger.Warn(ctx, "tg", action,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

// MessageRef carries "chatID:messageID" so keyboard edits can address the
// tapped message outside the telebot context.
func formatMessageRef(chatID int64, messageID int) string {
	return fmt.Sprintf("%d:%d", chatID, messageID)
}

func parseMessageRef(ref string) (tele.Editable, bool) {
	parts := strings.SplitN(ref, ":", 2)
	if len(parts) != 2 {
		return nil, false
	}
	chatID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil, false
	}
	return &tele.StoredMessage{ChatID: chatID, MessageID: parts[1]}, true
}
