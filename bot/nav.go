package bot

// Callback payloads for inline buttons. Purchase-flow buttons carry packed
// payment.SubscriptionData instead and are routed by prefix.
const (
	cbMainMenu          = "main_menu"
	cbCloseNotification = "close_notification"

	cbProfile = "profile"
	cbShowKey = "show_key"

	cbSupport      = "support"
	cbHowToConnect = "how_to_connect"

	cbDownload = "download"

	cbSubscription = "subscription"
	cbPromocode    = "promocode"

	cbAdminTools       = "admin_tools"
	cbStatistics       = "statistics"
	cbServerManagement = "server_management"
	cbAddServer        = "add_server"
	cbPingServer       = "ping_server" // ping_server:<name>
	cbDeleteServer     = "delete_server"
	cbPromocodeEditor  = "promocode_editor"
	cbCreatePromocode  = "create_promocode"
	cbDeletePromocode  = "delete_promocode" // delete_promocode:<code>
	cbSendNotification = "send_notification"
	cbCreateBackup     = "create_backup"
	cbMaintenanceOn    = "maintenance_on"
	cbMaintenanceOff   = "maintenance_off"
	cbRestartBot       = "restart_bot"
)

// Purchase flow screens, carried in SubscriptionData.State.
const (
	stateDevices     = "devices"
	stateDuration    = "duration"
	statePay         = "pay"
	statePayYooKassa = "pay_yookassa"
)

// Dialog states kept in the session store while waiting for a typed reply.
const (
	sessionPromocode       = "promocode"
	sessionCreatePromocode = "admin_create_promocode"
	sessionAddServer       = "admin_add_server"
	sessionNotification    = "admin_notification"
)
