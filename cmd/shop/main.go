package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	consul "github.com/hashicorp/consul/api"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/miravpn/shop"
	"github.com/miravpn/shop/bot"
	"github.com/miravpn/shop/conf"
	"github.com/miravpn/shop/events"
	"github.com/miravpn/shop/payment"
	"github.com/miravpn/shop/payment/yookassa"
	"github.com/miravpn/shop/persistence"
	"github.com/miravpn/shop/plan"
	"github.com/miravpn/shop/policy"
	"github.com/miravpn/shop/xui"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	transHTTP "github.com/miravpn/shop/transport/http"
	transPubSub "github.com/miravpn/shop/transport/pubsub"
)

var (
	Version   string = "0.0.0"
	BuildTime string
	GitCommit string
)

var versionCmd = &cli.Command{
	Name:    "version",
	Aliases: []string{"ver", "v"},
	Usage:   "Show version",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Show all infomation (include: Version, BuildTime, GitCommit)",
			Value:   false,
		},
	},
	Action: func(ctx *cli.Context) error {
		if !ctx.Bool("all") {
			fmt.Println(ctx.App.Version)
		} else {
			cli.ShowVersion(ctx)
		}
		return nil
	},
}

var genkeyCmd = &cli.Command{
	Name:  "genkey",
	Usage: "Generate a new ed25519 key pair",
	Action: func(ctx *cli.Context) error {
		pub, priv, err := ed25519.GenerateKey(nil)
		if err != nil {
			return fmt.Errorf("failed to generate key pair: %w", err)
		}

		basedPriv := base64.StdEncoding.EncodeToString(priv)
		basedPub := base64.StdEncoding.EncodeToString(pub)

		fmt.Printf("Public Key: %s\n", basedPub)
		fmt.Printf("Private Key: %s\n", basedPriv)

		return nil
	},
}

var adminTokenCmd = &cli.Command{
	Name:  "admin-token",
	Usage: "Issue an admin token for the management API",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "subject",
			Usage: "Token subject",
			Value: "admin",
		},
	},
	Action: func(cli *cli.Context) error {
		if err := conf.LoadEnv(cli); err != nil {
			return err
		}

		cfg, err := conf.LoadConfig()
		if err != nil {
			return err
		}
		conf.ReplaceGlobals(cfg)

		transHTTP.Init(cfg.BaseURL, cfg.JWT.Audiences[0], cfg.JWT.Privkey)

		token, expiredAt, err := transHTTP.SignToken(cli.String("subject"), []string{"admin"})
		if err != nil {
			return err
		}

		fmt.Printf("Token: %s\n", token)
		fmt.Printf("Expires: %s\n", expiredAt.Format(time.RFC3339))
		return nil
	},
}

func main() {
	cli.VersionPrinter = func(cli *cli.Context) {
		fmt.Println("Version: " + cli.App.Version)
		fmt.Println("BuildTime: " + BuildTime)
		fmt.Println("GitCommit: " + GitCommit)
	}

	app := &cli.App{
		Name:     "shop",
		Usage:    "VPN subscription shop over Telegram, backed by a 3x-ui panel",
		Version:  Version,
		Commands: []*cli.Command{versionCmd, genkeyCmd, adminTokenCmd},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Specifies the working directory",
				EnvVars: []string{"SHOP_PATH"},
			},
			&cli.IntFlag{
				Name:    "port",
				Usage:   "Specifies the HTTP service port",
				Value:   8080,
				EnvVars: []string{"SHOP_HTTP_PORT"},
			},
			&cli.StringFlag{
				Name:    "nats",
				EnvVars: []string{"NATS_URL"},
				Value:   "nats://localhost:4222",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}

	time.Sleep(3000 * time.Millisecond)
}

func run(cli *cli.Context) error {
	err := conf.LoadEnv(cli)
	if err != nil {
		return err
	}

	cfg, err := conf.LoadConfig()
	if err != nil {
		return err
	}
	conf.ReplaceGlobals(cfg)

	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Add Persistence
	users, err := persistence.NewUserRepository(cfg.Persistence)
	if err != nil {
		log.Error(err.Error(),
			zap.String("infra", "persistence"),
			zap.String("driver", cfg.Persistence.Driver.String()),
		)
		return err
	}
	defer users.Close()

	promocodes, err := persistence.NewPromocodeRepository(cfg.Persistence)
	if err != nil {
		return err
	}
	defer promocodes.Close()

	servers, err := persistence.NewServerRepository(cfg.Persistence)
	if err != nil {
		return err
	}
	defer servers.Close()

	transactions, err := persistence.NewTransactionRepository(cfg.Persistence)
	if err != nil {
		return err
	}
	defer transactions.Close()

	sessions, err := persistence.NewSessionStore(cfg.Sessions)
	if err != nil {
		log.Error(err.Error(),
			zap.String("infra", "sessions"),
			zap.String("driver", cfg.Sessions.Driver.String()),
		)
		return err
	}
	defer sessions.Close()

	// Add Panel
	panel := xui.NewClient(
		cfg.Panel.Host,
		cfg.Panel.Username,
		cfg.Panel.Password,
		cfg.Panel.Token,
	)

	if err := panel.Login(ctx); err != nil {
		log.Error(err.Error(), zap.String("infra", "panel"))
		return err
	}

	// Add Plans
	catalog, err := plan.Load(cfg.PlansPath())
	if err != nil {
		return err
	}

	// Add Services and Middlewares
	gateways := make([]payment.Gateway, 0, 1)
	if cfg.YooKassa.Enabled() {
		gw := yookassa.NewGateway(
			cfg.YooKassa.ShopID,
			cfg.YooKassa.Secret,
			cfg.Bot.Email,
			cfg.BaseURL,
			yookassa.WithTrustedNets(cfg.YooKassa.TrustedNets),
		)
		gateways = append(gateways, gw)
	}

	describe := func(data payment.SubscriptionData) string {
		return fmt.Sprintf("VPN subscription: %s, %s",
			plan.FormatDevices(data.Devices), plan.FormatPeriod(data.Duration))
	}
	payments := payment.NewService(transactions, describe, gateways...)

	svc := shop.NewService(users, promocodes, servers, transactions, panel, cfg.Panel)
	svc = shop.LoggingMiddleware(log)(svc)

	// Add Endpoints
	endpoints := shop.EndpointSet{
		RegisterUser:      shop.RegisterUserEndpoint(svc),
		User:              shop.UserEndpoint(svc),
		SubscriptionKey:   shop.SubscriptionKeyEndpoint(svc),
		ClientData:        shop.ClientDataEndpoint(svc),
		ActivatePromocode: shop.ActivatePromocodeEndpoint(svc),
		CreatePromocode:   shop.CreatePromocodeEndpoint(svc),
		DeletePromocode:   shop.DeletePromocodeEndpoint(svc),
		Promocodes:        shop.PromocodesEndpoint(svc),
		AddServer:         shop.AddServerEndpoint(svc),
		DeleteServer:      shop.DeleteServerEndpoint(svc),
		Servers:           shop.ServersEndpoint(svc),
		PingServer:        shop.PingServerEndpoint(svc),
		Statistics:        shop.StatisticsEndpoint(svc),
		Maintenance:       shop.MaintenanceEndpoint(svc),
	}

	// Add PubSub Transports and Event Sourcing
	var ps transPubSub.NATSPubSub
	{
		log := log.With(
			zap.String("infra", "pubsub"),
			zap.String("provider", cfg.EventBus.Provider.String()),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		natsURL := cli.String("nats")
		creds := conf.Path + "/user.creds"
		if _, err := os.Stat(creds); err != nil {
			creds = ""
		}

		natsPS, err := transPubSub.NewNATSPubSub(natsURL, cfg.Name, creds)
		if err != nil {
			log.Error(err.Error())
			return err
		}
		defer natsPS.Close()

		log.Info("connected")

		if err := natsPS.AddJetStream(); err != nil {
			log.Error(err.Error())
			return err
		}

		stream := cfg.EventBus.Shop
		if err := natsPS.AddStreamAndConsumer(ctx, stream); err != nil {
			log.Error(err.Error())
			return err
		}

		consumer := transPubSub.ConsumerStreamPair{
			Consumer: stream.Consumer.Name,
			Stream:   stream.Consumer.Stream,
		}

		// SUB shop.>
		endpoint := shop.EventEndpoint(svc)
		handler := transPubSub.EventHandler(endpoint)

		if err := natsPS.PullConsume(consumer, handler); err != nil {
			log.Error(err.Error())
			return err
		}

		ps = natsPS
	}

	events.ReplaceGlobals(ps)

	// Add PubSub Transport
	{
		srv, err := ps.AddService(micro.Config{
			Name:        "shop",
			Version:     Version,
			Description: "VPN subscription shop over Telegram",
			Metadata: map[string]string{
				"id": cfg.Name,
			},
		})

		if err != nil {
			return err
		}

		root := srv.AddGroup("shop")

		// SUB shop.stats
		root.AddEndpoint("stats", transPubSub.StatisticsHandler(endpoints.Statistics))

		// SUB shop.health
		root.AddEndpoint("health", transPubSub.CheckHealthHandler())
	}

	// Add Bot
	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.Error(err.Error(), zap.String("infra", "telegram"))
		return err
	}

	b := bot.New(api, svc, payments, sessions, catalog, cfg.Bot, cfg.Persistence.File(), cancel)
	svc.SetNotifier(b)

	webhookURL := cfg.BaseURL + "/webhook/telegram/" + cfg.Bot.WebhookSecret
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return err
	}

	if _, err := api.Request(wh); err != nil {
		log.Error(err.Error(), zap.String("infra", "telegram"))
		return err
	}

	// Add HTTP Transport
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))

	// GET /.well-known/jwks.json
	r.GET("/.well-known/jwks.json", transHTTP.JWKHandler)

	// GET /healthz
	r.GET("/healthz", transHTTP.HealthHandler)

	// POST /webhook/telegram/:secret
	r.POST("/webhook/telegram/:secret",
		transHTTP.TelegramWebhookHandler(b, cfg.Bot.WebhookSecret))

	if cfg.YooKassa.Enabled() {
		gw, ok := gateways[0].(*yookassa.Gateway)
		if ok {
			// POST /webhook/yookassa
			r.POST("/webhook/yookassa", transHTTP.YooKassaWebhookHandler(gw, payments))
		}
	}

	transHTTP.Init(
		cfg.BaseURL,          // issuer
		cfg.JWT.Audiences[0], // audience
		cfg.JWT.Privkey,      // ed25519 private key
	)

	permissionsPath := filepath.Join(conf.Path, "permissions.json")
	policy, err := policy.NewRegoPolicy(ctx, permissionsPath)
	if err != nil {
		return err
	}

	auth := transHTTP.Authorizator(policy)

	apiV1 := r.Group("/shop/v1")
	{
		// GET /stats
		apiV1.GET("/stats",
			auth("shop::stats.read"),
			transHTTP.StatisticsHandler(endpoints.Statistics))

		// PUT /maintenance
		apiV1.PUT("/maintenance",
			auth("shop::maintenance.update"),
			transHTTP.MaintenanceHandler(endpoints.Maintenance))

		// GET /servers
		apiV1.GET("/servers",
			auth("shop::servers.read"),
			transHTTP.ServersHandler(endpoints.Servers))

		// POST /servers
		apiV1.POST("/servers",
			auth("shop::servers.update"),
			transHTTP.AddServerHandler(endpoints.AddServer))

		// DELETE /servers/:server
		apiV1.DELETE("/servers/:server",
			auth("shop::servers.update"),
			transHTTP.DeleteServerHandler(endpoints.DeleteServer))

		// POST /servers/:server/ping
		apiV1.POST("/servers/:server/ping",
			auth("shop::servers.read"),
			transHTTP.PingServerHandler(endpoints.PingServer))

		// POST /users
		apiV1.POST("/users",
			auth("shop::users.update"),
			transHTTP.RegisterUserHandler(endpoints.RegisterUser))

		// GET /users/:telegram_id
		apiV1.GET("/users/:telegram_id",
			auth("shop::users.read"),
			transHTTP.UserHandler(endpoints.User))

		// GET /users/:telegram_id/key
		apiV1.GET("/users/:telegram_id/key",
			auth("shop::users.read"),
			transHTTP.SubscriptionKeyHandler(endpoints.SubscriptionKey))

		// GET /users/:telegram_id/subscription
		apiV1.GET("/users/:telegram_id/subscription",
			auth("shop::users.read"),
			transHTTP.ClientDataHandler(endpoints.ClientData))

		// GET /promocodes
		apiV1.GET("/promocodes",
			auth("shop::promocodes.read"),
			transHTTP.PromocodesHandler(endpoints.Promocodes))

		// POST /promocodes
		apiV1.POST("/promocodes",
			auth("shop::promocodes.update"),
			transHTTP.CreatePromocodeHandler(endpoints.CreatePromocode))

		// DELETE /promocodes/:code
		apiV1.DELETE("/promocodes/:code",
			auth("shop::promocodes.update"),
			transHTTP.DeletePromocodeHandler(endpoints.DeletePromocode))

		// POST /promocodes/:code/activate
		apiV1.POST("/promocodes/:code/activate",
			auth("shop::promocodes.update"),
			transHTTP.ActivatePromocodeHandler(endpoints.ActivatePromocode))

		// PATCH /token/refresh
		apiV1.PATCH("/token/refresh", transHTTP.RefreshHandler)
	}

	go r.Run(":" + strconv.Itoa(conf.Port))

	// Register with Consul
	if cfg.Discovery.Enabled {
		consulCfg := consul.DefaultConfig()
		consulCfg.Address = cfg.Discovery.Address

		client, err := consul.NewClient(consulCfg)
		if err != nil {
			log.Error(err.Error(), zap.String("infra", "discovery"))
			return err
		}

		registration := &consul.AgentServiceRegistration{
			ID:   cfg.Name,
			Name: cfg.Discovery.Service,
			Port: conf.Port,
			Check: &consul.AgentServiceCheck{
				HTTP:     cfg.BaseURL + "/healthz",
				Interval: "30s",
				Timeout:  "5s",
			},
		}

		if err := client.Agent().ServiceRegister(registration); err != nil {
			log.Error(err.Error(), zap.String("infra", "discovery"))
			return err
		}
		defer client.Agent().ServiceDeregister(cfg.Name)

		log.Info("registered", zap.String("infra", "discovery"))
	}

	b.NotifyStarted(Version)
	defer b.NotifyStopped()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sign := <-quit:
		log.Info("shutdown", zap.String("signal", sign.String()))
	case <-ctx.Done():
		log.Info("shutdown", zap.String("reason", "restart requested"))
	}

	return nil
}
