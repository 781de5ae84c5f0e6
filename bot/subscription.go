package bot

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/miravpn/shop"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/plan"
)

func (b *Bot) showSubscription(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	data, err := b.svc.ClientData(ctx, cq.From.ID)
	if err != nil && !errors.Is(err, shop.ErrNoSubscription) {
		return err
	}

	if errors.Is(err, shop.ErrNoSubscription) {
		return b.showDevices(cq, false)
	}

	text := "🔑 <b>Subscription</b>\n\n" + formatClientData(data) +
		"\n\nExtending replaces the device plan and adds time on top of the " +
		"current expiry."

	extend := payment.SubscriptionData{
		State:      stateDevices,
		Extend:     true,
		TelegramID: cq.From.ID,
		MessageID:  cq.Message.MessageID,
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏳ Extend", extend.Pack()),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbMainMenu),
		),
	)

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) handleSubscriptionCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	data, err := payment.UnpackSubscriptionData(cq.Data)
	if err != nil {
		return err
	}

	data.TelegramID = cq.From.ID
	data.MessageID = cq.Message.MessageID

	switch data.State {
	case stateDevices:
		return b.showDevices(cq, data.Extend)
	case stateDuration:
		return b.showDurations(cq, data)
	case statePay:
		return b.showGateways(cq, data)
	case statePayYooKassa:
		return b.createPayment(ctx, cq, data)
	default:
		return payment.ErrInvalidSubscriptionData
	}
}

func (b *Bot) showDevices(cq *tgbotapi.CallbackQuery, extend bool) error {
	text := "📱 <b>Devices</b>\n\nHow many devices will use the VPN?"

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(b.catalog.Plans)+1)
	for _, p := range b.catalog.Plans {
		data := payment.SubscriptionData{
			State:      stateDuration,
			Extend:     extend,
			TelegramID: cq.From.ID,
			MessageID:  cq.Message.MessageID,
			Devices:    p.Devices,
		}

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(plan.FormatDevices(p.Devices), data.Pack()),
		))
	}

	back := cbMainMenu
	if extend {
		back = cbSubscription
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", back),
	))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) showDurations(cq *tgbotapi.CallbackQuery, data payment.SubscriptionData) error {
	p, err := b.catalog.Plan(data.Devices)
	if err != nil {
		return err
	}

	currency := b.currency()

	text := fmt.Sprintf(
		"⏳ <b>Duration</b>\n\nPlan: %s. Pick a period.",
		plan.FormatDevices(data.Devices),
	)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(b.catalog.Durations)+1)
	for _, days := range b.catalog.Durations {
		price := p.Price(currency, days)
		if price == 0 {
			continue
		}

		next := data
		next.State = statePay
		next.Duration = days
		next.Price = price

		label := fmt.Sprintf("%s — %.0f %s", plan.FormatPeriod(days), price, currency)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, next.Pack()),
		))
	}

	back := payment.SubscriptionData{
		State:      stateDevices,
		Extend:     data.Extend,
		TelegramID: data.TelegramID,
		MessageID:  data.MessageID,
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", back.Pack()),
	))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) showGateways(cq *tgbotapi.CallbackQuery, data payment.SubscriptionData) error {
	text := fmt.Sprintf(
		"💳 <b>Payment</b>\n\n%s, %s — %.0f %s\n\nChoose a payment method.",
		plan.FormatDevices(data.Devices),
		plan.FormatPeriod(data.Duration),
		data.Price, b.currency(),
	)

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, 2)
	for _, gw := range b.payments.Gateways() {
		next := data
		next.State = "pay_" + gw.Name()

		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💳 "+gw.Name(), next.Pack()),
		))
	}

	back := data
	back.State = stateDuration
	back.Duration = 0
	back.Price = 0
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", back.Pack()),
	))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) createPayment(ctx context.Context, cq *tgbotapi.CallbackQuery, data payment.SubscriptionData) error {
	p, err := b.payments.CreatePayment(ctx, "yookassa", data)
	if err != nil {
		b.log.Error(err.Error())
		return b.edit(cq.Message.Chat.ID, cq.Message.MessageID,
			"❌ Could not create the payment. Please try again later.",
			backKeyboard(cbMainMenu))
	}

	text := fmt.Sprintf(
		"💳 <b>Payment</b>\n\n%s, %s — %.0f %s\n\n"+
			"Pay via the button below. The subscription activates "+
			"automatically once the payment goes through.",
		plan.FormatDevices(data.Devices),
		plan.FormatPeriod(data.Duration),
		data.Price, b.currency(),
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Pay", p.URL),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbMainMenu),
		),
	)

	return b.edit(cq.Message.Chat.ID, cq.Message.MessageID, text, keyboard)
}

func (b *Bot) currency() string {
	gateways := b.payments.Gateways()
	if len(gateways) == 0 {
		return "RUB"
	}

	return gateways[0].Currency()
}
