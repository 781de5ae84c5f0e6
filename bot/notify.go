package bot

import (
	"fmt"

	"go.uber.org/zap"
)

// The bot is the shop's Notifier: provisioning outcomes land in the buyer's
// chat once the payment event has been handled.

func (b *Bot) PurchaseSucceeded(telegramID int64, key string) {
	text := "✅ <b>Payment received!</b>\n\nYour key:\n<code>" + key + "</code>\n\n" +
		"Add it to your VPN app as a subscription URL. See the download " +
		"section if you need an app."

	keyboard := mainMenuKeyboard()
	if err := b.send(telegramID, text, &keyboard); err != nil {
		b.log.Warn("purchase notification undelivered",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err),
		)
	}
}

func (b *Bot) SubscriptionExtended(telegramID int64) {
	text := "✅ <b>Payment received!</b>\n\nYour subscription has been extended."

	keyboard := mainMenuKeyboard()
	if err := b.send(telegramID, text, &keyboard); err != nil {
		b.log.Warn("extension notification undelivered",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err),
		)
	}
}

func (b *Bot) PaymentCanceled(telegramID int64) {
	text := "❌ <b>Payment canceled.</b>\n\nNothing was charged. You can try again from the main menu."

	keyboard := mainMenuKeyboard()
	if err := b.send(telegramID, text, &keyboard); err != nil {
		b.log.Warn("cancel notification undelivered",
			zap.Int64("telegram_id", telegramID),
			zap.Error(err),
		)
	}
}

// NotifyStarted and NotifyStopped ping the developer chat on lifecycle
// transitions, which doubles as a deploy health signal.

func (b *Bot) NotifyStarted(version string) {
	if b.cfg.DevID == 0 {
		return
	}

	b.send(b.cfg.DevID, fmt.Sprintf("#BotStarted\nVersion: %s", version), nil)
}

func (b *Bot) NotifyStopped() {
	if b.cfg.DevID == 0 {
		return
	}

	b.send(b.cfg.DevID, "#BotStopped", nil)
}
