package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/miravpn/shop"
	"github.com/miravpn/shop/plan"
	"github.com/miravpn/shop/promocode"
	"github.com/miravpn/shop/session"
	"github.com/miravpn/shop/xui"
)

const mainMenuText = "🏠 <b>Main menu</b>\n\n" +
	"Fast and secure VPN. Pick a section below."

func (b *Bot) sendMainMenu(chatID int64) error {
	keyboard := mainMenuKeyboard()
	return b.send(chatID, mainMenuText, &keyboard)
}

func (b *Bot) editMainMenu(cq *tgbotapi.CallbackQuery) error {
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, mainMenuText, mainMenuKeyboard())
}

func (b *Bot) showProfile(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	u, err := b.svc.User(cq.From.ID)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"👤 <b>Profile</b>\n\nName: %s\nID: <code>%d</code>\n\n",
		u.FirstName, u.TelegramID,
	)

	data, err := b.svc.ClientData(ctx, cq.From.ID)
	switch {
	case errors.Is(err, shop.ErrNoSubscription):
		text += "You have no active subscription."
	case err != nil:
		return err
	default:
		text += formatClientData(data)
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔑 Show key", cbShowKey),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbMainMenu),
		),
	)

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) showKey(cq *tgbotapi.CallbackQuery) error {
	key, err := b.svc.SubscriptionKey(cq.From.ID)
	if err != nil {
		return err
	}

	text := "🔑 <b>Your key</b>\n\n<code>" + key + "</code>\n\n" +
		"Paste it into your VPN app as a subscription URL."

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbProfile))
}

func (b *Bot) showDownload(cq *tgbotapi.CallbackQuery) error {
	text := "📱 <b>Download</b>\n\n" +
		"iOS: Streisand or V2Box from the App Store\n" +
		"Android: v2rayNG from Google Play\n" +
		"Windows: Hiddify or v2rayN\n\n" +
		"Add your key from the profile as a subscription."

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbMainMenu))
}

func (b *Bot) showSupport(cq *tgbotapi.CallbackQuery) error {
	text := "🆘 <b>Support</b>\n\n" +
		"Check the download section first: most connection problems are a " +
		"stale subscription URL.\n\nStill stuck? Write to support."

	keyboard := backKeyboard(cbMainMenu)
	if b.cfg.SupportID != 0 {
		keyboard = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("✍️ Contact support",
					fmt.Sprintf("tg://user?id=%d", b.cfg.SupportID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbMainMenu),
			),
		)
	}

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) askPromocode(cq *tgbotapi.CallbackQuery) error {
	state := session.State{Name: sessionPromocode}
	if err := b.sessions.Set(cq.From.ID, state); err != nil {
		return err
	}

	text := "🎟 <b>Promocode</b>\n\nSend me your promocode."

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbMainMenu))
}

func (b *Bot) handlePromocodeInput(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.sessions.Clear(msg.From.ID); err != nil {
		return err
	}

	p, err := b.svc.ActivatePromocode(ctx, msg.From.ID, msg.Text)
	if err != nil {
		text := "❌ Could not activate this promocode."
		switch {
		case errors.Is(err, promocode.ErrPromocodeNotFound):
			text = "❌ Promocode not found. Check the code and try again."
		case errors.Is(err, promocode.ErrPromocodeActivated):
			text = "❌ This promocode has already been used."
		}

		keyboard := mainMenuKeyboard()
		return b.send(msg.Chat.ID, text, &keyboard)
	}

	text := fmt.Sprintf(
		"✅ Promocode activated! Your subscription got <b>%s</b> extra.",
		plan.FormatPeriod(p.Duration),
	)

	keyboard := mainMenuKeyboard()
	return b.send(msg.Chat.ID, text, &keyboard)
}

func formatClientData(data *xui.ClientData) string {
	expiry := "never"
	if data.ExpiryTime != xui.Unlimited {
		expiry = time.UnixMilli(data.ExpiryTime).Format("02.01.2006 15:04")
	}

	traffic := "unlimited"
	if data.TrafficTotal != xui.Unlimited {
		traffic = formatBytes(data.TrafficRemaining) + " left"
	}

	return fmt.Sprintf(
		"<b>Subscription</b>\nDevices: %s\nTraffic: %s\nUsed: %s\nExpires: %s",
		plan.FormatDevices(data.MaxDevices),
		traffic,
		formatBytes(data.TrafficUsed),
		expiry,
	)
}

func formatBytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
