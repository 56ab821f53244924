package telegram

import (
	"cookbot/core/flow"

	tele "gopkg.in/telebot.v4"
)

// buildMarkup converts an effect keyboard descriptor into telebot markup.
// Inline buttons carry the raw callback token as their data.
func buildMarkup(kb flow.Keyboard) *tele.ReplyMarkup {
	switch kb.Kind {
	case flow.KeyboardRemove:
		return &tele.ReplyMarkup{RemoveKeyboard: true}

	case flow.KeyboardReply:
		markup := &tele.ReplyMarkup{ResizeKeyboard: true}
		rows := make([]tele.Row, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			btns := make([]tele.Btn, 0, len(row))
			for _, b := range row {
				btns = append(btns, markup.Text(b.Label))
			}
			rows = append(rows, markup.Row(btns...))
		}
		markup.Reply(rows...)
		return markup

	case flow.KeyboardInline:
		markup := &tele.ReplyMarkup{}
		inline := make([][]tele.InlineButton, 0, len(kb.Rows))
		for _, row := range kb.Rows {
			r := make([]tele.InlineButton, 0, len(row))
			for _, b := range row {
				r = append(r, tele.InlineButton{Text: b.Label, Data: b.Token})
			}
			inline = append(inline, r)
		}
		markup.InlineKeyboard = inline
		return markup
	}
	return nil
}
