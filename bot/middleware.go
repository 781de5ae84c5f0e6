package bot

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/patrickmn/go-cache"

	"github.com/miravpn/shop/payment"
)

const throttleWindow = 700 * time.Millisecond

// throttle drops updates arriving faster than the window per user. Purchase
// callbacks pass through; a dropped payment click is worse than a double
// render.
func (b *Bot) throttle() Middleware {
	seen := cache.New(throttleWindow, time.Minute)

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, upd *tgbotapi.Update) error {
			from := upd.SentFrom()
			if from == nil {
				return next(ctx, upd)
			}

			if cq := upd.CallbackQuery; cq != nil && payment.IsSubscriptionData(cq.Data) {
				return next(ctx, upd)
			}

			key := strconv.FormatInt(from.ID, 10)
			if err := seen.Add(key, struct{}{}, throttleWindow); err != nil {
				return nil // still inside the window
			}

			return next(ctx, upd)
		}
	}
}

// maintenance blocks everyone but admins while the shop is closed.
func (b *Bot) maintenance(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, upd *tgbotapi.Update) error {
		if !b.svc.Maintenance() {
			return next(ctx, upd)
		}

		from := upd.SentFrom()
		if from == nil || b.cfg.IsAdmin(from.ID) {
			return next(ctx, upd)
		}

		if cq := upd.CallbackQuery; cq != nil {
			b.answerCallback(cq.ID, "The bot is under maintenance. Please try again later.")
			return nil
		}

		if msg := upd.Message; msg != nil {
			return b.send(msg.Chat.ID, "🚧 The bot is under maintenance. Please try again later.", nil)
		}

		return nil
	}
}

// garbage deletes user messages after handling so chats stay a single menu.
// /start survives because Telegram clients pin it as the conversation entry.
func (b *Bot) garbage(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, upd *tgbotapi.Update) error {
		err := next(ctx, upd)

		if msg := upd.Message; msg != nil && !(msg.IsCommand() && msg.Command() == "start") {
			b.deleteMessage(msg.Chat.ID, msg.MessageID)
		}

		return err
	}
}

// auth upserts the sender before any handler runs, so every flow can assume
// the user exists.
func (b *Bot) auth(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, upd *tgbotapi.Update) error {
		from := upd.SentFrom()
		if from == nil || from.IsBot {
			return nil
		}

		if _, err := b.svc.RegisterUser(ctx, from.ID, from.FirstName, from.UserName); err != nil {
			return err
		}

		return next(ctx, upd)
	}
}
