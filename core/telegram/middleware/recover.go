// Package middleware holds the global bot middleware chain: panic recovery,
// per-chat rate limiting, and update receipt logging.
package middleware

import (
	"context"
	"runtime/debug"

	"log/slog"

	"cookbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Recover catches panics in handlers so a single bad update cannot take the
// bot down.
func Recover(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(context.Background(), "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
			}
		}()
		return next(c)
	}
}
