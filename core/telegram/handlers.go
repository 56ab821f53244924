package telegram

import (
	"strings"

	"cookbot/core/flow"
	tghelpers "cookbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// registerRoutes binds the three endpoints the flow consumes: the /start
// command, plain text, and inline-button callbacks.
func registerRoutes(bot *tele.Bot, dispatch *flow.Dispatcher, renderer *Renderer) {
	text := func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return nil
		}
		ctx := tghelpers.BuildContext(c)
		effects := dispatch.Dispatch(ctx, chat.ID, flow.TextEvent{Text: c.Text()})
		renderer.Render(ctx, c, effects)
		return nil
	}

	bot.Handle("/start", text)
	bot.Handle(tele.OnText, text)

	bot.Handle(tele.OnCallback, func(c tele.Context) error {
		cb := c.Callback()
		chat := c.Chat()
		if cb == nil || chat == nil {
			return nil
		}
		ctx := tghelpers.BuildContext(c)

		ev := flow.CallbackEvent{Token: strings.TrimPrefix(cb.Data, "\f")}
		if cb.Message != nil {
			ev.MessageRef = formatMessageRef(chat.ID, cb.Message.ID)
		}

		effects := dispatch.Dispatch(ctx, chat.ID, ev)
		renderer.Render(ctx, c, effects)
		return nil
	})
}
