// Package bot is the Telegram transport: it routes updates pushed by the
// webhook through a middleware chain into flow handlers, and renders menus
// with inline keyboards.
package bot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/miravpn/shop"
	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/plan"
	"github.com/miravpn/shop/session"
)

type HandlerFunc func(ctx context.Context, upd *tgbotapi.Update) error

type Middleware func(next HandlerFunc) HandlerFunc

type Bot struct {
	api      *tgbotapi.BotAPI
	svc      shop.Service
	payments payment.Service
	sessions session.Store
	catalog  *plan.Catalog
	cfg      conf.Bot
	log      *zap.Logger

	handler  HandlerFunc
	shutdown context.CancelFunc
	dbFile   string
}

// New wires the middleware chain around the router. The shutdown function
// stops the whole process; the restart admin tool relies on the supervisor
// bringing it back.
func New(
	api *tgbotapi.BotAPI,
	svc shop.Service,
	payments payment.Service,
	sessions session.Store,
	catalog *plan.Catalog,
	cfg conf.Bot,
	dbFile string,
	shutdown context.CancelFunc,
) *Bot {
	b := &Bot{
		api:      api,
		svc:      svc,
		payments: payments,
		sessions: sessions,
		catalog:  catalog,
		cfg:      cfg,
		log:      zap.L().With(zap.String("transport", "bot")),
		shutdown: shutdown,
		dbFile:   dbFile,
	}

	handler := b.route
	for _, mw := range []Middleware{
		b.auth,
		b.garbage,
		b.maintenance,
		b.throttle(),
	} {
		handler = mw(handler)
	}

	b.handler = handler
	return b
}

// Dispatch consumes a raw webhook body. Handling runs on its own goroutine
// so the webhook endpoint can answer Telegram immediately.
func (b *Bot) Dispatch(body []byte) {
	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		b.log.Warn("malformed update", zap.Error(err))
		return
	}

	go func() {
		if err := b.handler(context.Background(), &upd); err != nil {
			b.log.Error(err.Error(), zap.Int("update_id", upd.UpdateID))
		}
	}()
}

func (b *Bot) route(ctx context.Context, upd *tgbotapi.Update) error {
	switch {
	case upd.CallbackQuery != nil:
		return b.routeCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil:
		return b.routeMessage(ctx, upd.Message)
	default:
		return nil
	}
}

func (b *Bot) routeMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			return b.sendMainMenu(msg.From.ID)
		case "admin":
			if b.cfg.IsAdmin(msg.From.ID) {
				return b.sendAdminMenu(msg.From.ID)
			}
			return nil
		default:
			return nil
		}
	}

	// A plain message only means something while a dialog is waiting for it.
	state, err := b.sessions.Get(msg.From.ID)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	switch state.Name {
	case sessionPromocode:
		return b.handlePromocodeInput(ctx, msg)
	case sessionCreatePromocode:
		return b.handleCreatePromocodeInput(ctx, msg)
	case sessionAddServer:
		return b.handleAddServerInput(ctx, msg)
	case sessionNotification:
		return b.handleNotificationInput(ctx, msg, state)
	default:
		return b.sessions.Clear(msg.From.ID)
	}
}

func (b *Bot) routeCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	defer b.answerCallback(cq.ID, "")

	data := cq.Data

	if payment.IsSubscriptionData(data) {
		return b.handleSubscriptionCallback(ctx, cq)
	}

	action, arg, _ := strings.Cut(data, ":")

	if adminAction(action) {
		if !b.cfg.IsAdmin(cq.From.ID) {
			return nil
		}
		return b.routeAdminCallback(ctx, cq, action, arg)
	}

	switch action {
	case cbMainMenu:
		return b.editMainMenu(cq)
	case cbCloseNotification:
		return b.deleteMessage(cq.Message.Chat.ID, cq.Message.MessageID)
	case cbProfile:
		return b.showProfile(ctx, cq)
	case cbShowKey:
		return b.showKey(cq)
	case cbSubscription:
		return b.showSubscription(ctx, cq)
	case cbPromocode:
		return b.askPromocode(cq)
	case cbDownload:
		return b.showDownload(cq)
	case cbSupport, cbHowToConnect:
		return b.showSupport(cq)
	default:
		return nil
	}
}

func adminAction(action string) bool {
	switch action {
	case cbAdminTools, cbStatistics, cbServerManagement, cbAddServer,
		cbPingServer, cbDeleteServer, cbPromocodeEditor, cbCreatePromocode,
		cbDeletePromocode, cbSendNotification, cbCreateBackup,
		cbMaintenanceOn, cbMaintenanceOff, cbRestartBot:
		return true
	default:
		return false
	}
}

func (b *Bot) routeAdminCallback(ctx context.Context, cq *tgbotapi.CallbackQuery, action string, arg string) error {
	switch action {
	case cbAdminTools:
		return b.editAdminMenu(cq)
	case cbStatistics:
		return b.showStatistics(ctx, cq)
	case cbServerManagement:
		return b.showServers(cq)
	case cbAddServer:
		return b.askAddServer(cq)
	case cbPingServer:
		return b.pingServer(ctx, cq, arg)
	case cbDeleteServer:
		return b.deleteServer(cq, arg)
	case cbPromocodeEditor:
		return b.showPromocodes(cq)
	case cbCreatePromocode:
		return b.askCreatePromocode(cq)
	case cbDeletePromocode:
		return b.deletePromocode(cq, arg)
	case cbSendNotification:
		return b.askNotification(cq)
	case cbCreateBackup:
		return b.sendBackup(cq)
	case cbMaintenanceOn:
		return b.switchMaintenance(cq, true)
	case cbMaintenanceOff:
		return b.switchMaintenance(cq, false)
	case cbRestartBot:
		return b.restart(cq)
	default:
		return nil
	}
}

func (b *Bot) answerCallback(id string, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.log.Warn("answer callback failed", zap.Error(err))
	}
}

func (b *Bot) deleteMessage(chatID int64, messageID int) error {
	_, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func (b *Bot) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard tgbotapi.InlineKeyboardMarkup) error {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := b.api.Send(msg)
	return err
}
