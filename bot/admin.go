package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/miravpn/shop/plan"
	"github.com/miravpn/shop/session"
)

const adminMenuText = "🛠 <b>Admin tools</b>"

func (b *Bot) sendAdminMenu(chatID int64) error {
	keyboard := adminMenuKeyboard()
	return b.send(chatID, adminMenuText, &keyboard)
}

func (b *Bot) editAdminMenu(cq *tgbotapi.CallbackQuery) error {
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, adminMenuText, adminMenuKeyboard())
}

func (b *Bot) showStatistics(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	stats, err := b.svc.Statistics(ctx)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"📊 <b>Statistics</b>\n\n"+
			"Users: %d\nOnline clients: %d\nActivated promocodes: %d\n\n"+
			"<b>Transactions</b>\nPending: %d\nCompleted: %d\nCanceled: %d\nRefunded: %d",
		stats.TotalUsers,
		stats.OnlineClients,
		stats.ActivatedPromocodes,
		stats.Transactions["pending"],
		stats.Transactions["completed"],
		stats.Transactions["canceled"],
		stats.Transactions["refunded"],
	)

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbAdminTools))
}

func (b *Bot) showServers(cq *tgbotapi.CallbackQuery) error {
	servers, err := b.svc.Servers()
	if err != nil {
		return err
	}

	text := "🖥 <b>Servers</b>\n\n"
	if len(servers) == 0 {
		text += "No servers registered."
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(servers)+2)
	for _, s := range servers {
		status := "🔴"
		if s.Online {
			status = "🟢"
		}

		text += fmt.Sprintf("%s <b>%s</b> — %d/%d clients\n",
			status, s.Name, s.CurrentClients, s.MaxClients)

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📡 "+s.Name, cbPingServer+":"+s.Name),
			tgbotapi.NewInlineKeyboardButtonData("🗑", cbDeleteServer+":"+s.Name),
		))
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Add server", cbAddServer),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbAdminTools),
		),
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) askAddServer(cq *tgbotapi.CallbackQuery) error {
	state := session.State{Name: sessionAddServer}
	if err := b.sessions.Set(cq.From.ID, state); err != nil {
		return err
	}

	text := "➕ <b>Add server</b>\n\nSend the server as:\n" +
		"<code>name host subscription_url max_clients</code>"

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbServerManagement))
}

func (b *Bot) handleAddServerInput(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.sessions.Clear(msg.From.ID); err != nil {
		return err
	}

	fields := strings.Fields(msg.Text)
	if len(fields) != 4 {
		keyboard := adminMenuKeyboard()
		return b.send(msg.Chat.ID, "❌ Expected: name host subscription_url max_clients", &keyboard)
	}

	maxClients, err := strconv.Atoi(fields[3])
	if err != nil {
		keyboard := adminMenuKeyboard()
		return b.send(msg.Chat.ID, "❌ max_clients must be a number", &keyboard)
	}

	s, err := b.svc.AddServer(ctx, fields[0], fields[1], fields[2], maxClients)
	if err != nil {
		keyboard := adminMenuKeyboard()
		return b.send(msg.Chat.ID, "❌ "+err.Error(), &keyboard)
	}

	status := "offline"
	if s.Online {
		status = "online"
	}

	keyboard := adminMenuKeyboard()
	return b.send(msg.Chat.ID,
		fmt.Sprintf("✅ Server <b>%s</b> added (%s).", s.Name, status), &keyboard)
}

func (b *Bot) pingServer(ctx context.Context, cq *tgbotapi.CallbackQuery, name string) error {
	latency, err := b.svc.PingServer(ctx, name)
	if err != nil {
		b.answerCallback(cq.ID, "❌ "+name+" is unreachable")
		return b.showServers(cq)
	}

	b.answerCallback(cq.ID, fmt.Sprintf("🟢 %s: %dms", name, latency.Milliseconds()))
	return b.showServers(cq)
}

func (b *Bot) deleteServer(cq *tgbotapi.CallbackQuery, name string) error {
	if err := b.svc.DeleteServer(name); err != nil {
		return err
	}

	return b.showServers(cq)
}

func (b *Bot) showPromocodes(cq *tgbotapi.CallbackQuery) error {
	promocodes, err := b.svc.Promocodes()
	if err != nil {
		return err
	}

	text := "🎟 <b>Promocodes</b>\n\n"
	if len(promocodes) == 0 {
		text += "No promocodes yet."
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(promocodes)+2)
	for _, p := range promocodes {
		status := "●"
		if p.Activated {
			status = "✓"
		}

		text += fmt.Sprintf("%s <code>%s</code> — %s\n",
			status, p.Code, plan.FormatPeriod(p.Duration))

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+p.Code, cbDeletePromocode+":"+p.Code),
		))
	}

	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Create", cbCreatePromocode),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbAdminTools),
		),
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) askCreatePromocode(cq *tgbotapi.CallbackQuery) error {
	state := session.State{Name: sessionCreatePromocode}
	if err := b.sessions.Set(cq.From.ID, state); err != nil {
		return err
	}

	text := "➕ <b>Create promocode</b>\n\nSend the duration in days."

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbPromocodeEditor))
}

func (b *Bot) handleCreatePromocodeInput(ctx context.Context, msg *tgbotapi.Message) error {
	if err := b.sessions.Clear(msg.From.ID); err != nil {
		return err
	}

	duration, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || duration <= 0 {
		keyboard := adminMenuKeyboard()
		return b.send(msg.Chat.ID, "❌ Duration must be a positive number of days.", &keyboard)
	}

	p, err := b.svc.CreatePromocode(duration)
	if err != nil {
		return err
	}

	keyboard := adminMenuKeyboard()
	return b.send(msg.Chat.ID,
		fmt.Sprintf("✅ Promocode <code>%s</code> created for %s.",
			p.Code, plan.FormatPeriod(p.Duration)), &keyboard)
}

func (b *Bot) deletePromocode(cq *tgbotapi.CallbackQuery, code string) error {
	if err := b.svc.DeletePromocode(code); err != nil {
		return err
	}

	return b.showPromocodes(cq)
}

func (b *Bot) askNotification(cq *tgbotapi.CallbackQuery) error {
	state := session.State{Name: sessionNotification}
	if err := b.sessions.Set(cq.From.ID, state); err != nil {
		return err
	}

	text := "📢 <b>Notification</b>\n\nSend the message to broadcast to all users."

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbAdminTools))
}

func (b *Bot) handleNotificationInput(ctx context.Context, msg *tgbotapi.Message, state *session.State) error {
	if err := b.sessions.Clear(msg.From.ID); err != nil {
		return err
	}

	users, err := b.svc.Users()
	if err != nil {
		return err
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Close", cbCloseNotification),
		),
	)

	sent := 0
	for _, u := range users {
		if err := b.send(u.TelegramID, msg.Text, &keyboard); err != nil {
			b.log.Warn("notification undelivered",
				zap.Int64("telegram_id", u.TelegramID),
				zap.Error(err),
			)
			continue
		}
		sent++
	}

	adminKeyboard := adminMenuKeyboard()
	return b.send(msg.Chat.ID,
		fmt.Sprintf("📢 Delivered to %d of %d users.", sent, len(users)), &adminKeyboard)
}

func (b *Bot) sendBackup(cq *tgbotapi.CallbackQuery) error {
	if b.dbFile == "" {
		b.answerCallback(cq.ID, "No database file to back up")
		return nil
	}

	doc := tgbotapi.NewDocument(cq.Message.Chat.ID, tgbotapi.FilePath(b.dbFile))
	doc.Caption = "💾 Database backup"

	_, err := b.api.Send(doc)
	return err
}

func (b *Bot) switchMaintenance(cq *tgbotapi.CallbackQuery, active bool) error {
	b.svc.SetMaintenance(active)

	text := "🔴 Maintenance mode disabled."
	if active {
		text = "🟢 Maintenance mode enabled."
	}

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, backKeyboard(cbAdminTools))
}

func (b *Bot) restart(cq *tgbotapi.CallbackQuery) error {
	if err := b.send(cq.Message.Chat.ID, "🔄 Restarting...", nil); err != nil {
		return err
	}

	b.shutdown()
	return nil
}
