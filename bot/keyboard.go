package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func mainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("👤 Profile", cbProfile),
			tgbotapi.NewInlineKeyboardButtonData("🔑 Subscription", cbSubscription),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Promocode", cbPromocode),
			tgbotapi.NewInlineKeyboardButtonData("📱 Download", cbDownload),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🆘 Support", cbSupport),
		),
	)
}

func backKeyboard(target string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", target),
		),
	)
}

func adminMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Statistics", cbStatistics),
			tgbotapi.NewInlineKeyboardButtonData("🖥 Servers", cbServerManagement),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎟 Promocodes", cbPromocodeEditor),
			tgbotapi.NewInlineKeyboardButtonData("📢 Notification", cbSendNotification),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💾 Backup", cbCreateBackup),
			tgbotapi.NewInlineKeyboardButtonData("🔄 Restart", cbRestartBot),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🟢 Maintenance on", cbMaintenanceOn),
			tgbotapi.NewInlineKeyboardButtonData("🔴 Maintenance off", cbMaintenanceOff),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", cbMainMenu),
		),
	)
}
