package conf

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var (
	Path string
	Port int

	global *Config
)

func G() *Config {
	if global == nil {
		panic("configuration not loaded")
	}

	return global
}

func ReplaceGlobals(cfg *Config) {
	global = cfg
}

func LoadEnv(cli *cli.Context) error {
	path := cli.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = homeDir + "/.miravpn/shop"
	}

	Path = path
	Port = cli.Int("port")
	return nil
}

func LoadConfig() (*Config, error) {
	f, err := os.Open(Path + "/config.yaml")
	if err != nil {
		f, err = os.Open(Path + "/config.example.yaml")
		if err != nil {
			return nil, err
		}
	}
	defer f.Close()

	r := NewEnvExpandedReader(f)

	var cfg *Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

type Config struct {
	Name        string      `yaml:"name"`
	BaseURL     string      `yaml:"baseUrl"`
	Bot         Bot         `yaml:"bot"`
	JWT         JWT         `yaml:"jwt"`
	Panel       Panel       `yaml:"panel"`
	YooKassa    YooKassa    `yaml:"yookassa"`
	Persistence Persistence `yaml:"persistence"`
	Sessions    Sessions    `yaml:"sessions"`
	EventBus    EventBus    `yaml:"eventBus"`
	Discovery   Discovery   `yaml:"discovery"`
	Plans       string      `yaml:"plans"`
}

// PlansPath falls back to the working directory catalog.
func (cfg *Config) PlansPath() string {
	if cfg.Plans != "" {
		return cfg.Plans
	}

	return Path + "/plans.json"
}

type Bot struct {
	Token         string  `yaml:"token"`
	Admins        []int64 `yaml:"admins"`
	DevID         int64   `yaml:"devID"`
	SupportID     int64   `yaml:"supportID"`
	Email         string  `yaml:"email"`
	WebhookSecret string  `yaml:"webhookSecret"`
}

func (cfg Bot) IsAdmin(telegramID int64) bool {
	if telegramID == cfg.DevID {
		return true
	}

	for _, id := range cfg.Admins {
		if id == telegramID {
			return true
		}
	}

	return false
}

type JWT struct {
	Privkey ed25519.PrivateKey
	Timeout time.Duration
	Refresh struct {
		Enabled bool
		Maximum time.Duration
	}
	Audiences []string
}

func (cfg *JWT) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Privkey string
		Timeout string
		Refresh struct {
			Enabled bool
			Maximum string
		}
		Audiences []string
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	priv, err := base64.StdEncoding.DecodeString(raw.Privkey)
	if err != nil {
		return err
	}

	if len(priv) != ed25519.PrivateKeySize {
		return errors.New("invalid ed25519 private key length")
	}

	cfg.Privkey = ed25519.PrivateKey(priv)

	if raw.Timeout == "" {
		cfg.Timeout = 1 * time.Hour
	} else {
		timeout, err := time.ParseDuration(raw.Timeout)
		if err != nil {
			return err
		}

		cfg.Timeout = timeout
	}

	cfg.Refresh.Enabled = raw.Refresh.Enabled
	if !raw.Refresh.Enabled {
		cfg.Refresh.Maximum = 0
	} else {
		if raw.Refresh.Maximum == "" {
			cfg.Refresh.Maximum = 1 * time.Hour
		} else {
			max, err := time.ParseDuration(raw.Refresh.Maximum)
			if err != nil {
				return err
			}

			cfg.Refresh.Maximum = max
		}
	}

	cfg.Audiences = raw.Audiences

	return nil
}

type Panel struct {
	Host         string `yaml:"host"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Token        string `yaml:"token"`
	Subscription string `yaml:"subscription"`
	InboundID    int    `yaml:"inboundID"`
}

type YooKassa struct {
	ShopID      string   `yaml:"shopID"`
	Secret      string   `yaml:"secret"`
	TrustedNets []string `yaml:"trustedNets"`
}

func (cfg YooKassa) Enabled() bool {
	return cfg.ShopID != "" && cfg.Secret != ""
}

type PersistenceDriver int

const (
	SQLite PersistenceDriver = iota
	InMem
)

func ParsePersistenceDriver(driver string) (PersistenceDriver, error) {
	switch driver {
	case "sqlite":
		return SQLite, nil
	case "inmem":
		return InMem, nil
	default:
		return -1, errors.New("driver not supported")
	}
}

func (driver PersistenceDriver) String() string {
	switch driver {
	case SQLite:
		return "sqlite"
	case InMem:
		return "inmem"
	default:
		return "unknown"
	}
}

type Persistence struct {
	Driver PersistenceDriver
	Name   string
	Host   string
	InMem  bool
}

func (p *Persistence) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Driver string `yaml:"driver"`
		Name   string `yaml:"name"`
		Host   string `yaml:"host"`
		InMem  bool   `yaml:"inmem"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	driver, err := ParsePersistenceDriver(raw.Driver)
	if err != nil {
		return err
	}

	p.Driver = driver
	p.Name = raw.Name

	p.Host = raw.Host
	if raw.Host == "" {
		p.Host = Path
	}

	p.InMem = raw.InMem

	return nil
}

// File is the sqlite database location, used by the backup admin tool.
func (p Persistence) File() string {
	return p.Host + "/" + p.Name + ".db"
}

type SessionDriver int

const (
	BadgerDB SessionDriver = iota
	SessionInMem
)

func ParseSessionDriver(driver string) (SessionDriver, error) {
	switch driver {
	case "badger":
		return BadgerDB, nil
	case "inmem":
		return SessionInMem, nil
	default:
		return -1, errors.New("driver not supported")
	}
}

func (driver SessionDriver) String() string {
	switch driver {
	case BadgerDB:
		return "badger"
	case SessionInMem:
		return "inmem"
	default:
		return "unknown"
	}
}

type Sessions struct {
	Driver SessionDriver
	Host   string
	TTL    time.Duration
	InMem  bool
}

func (s *Sessions) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Driver string `yaml:"driver"`
		Host   string `yaml:"host"`
		TTL    string `yaml:"ttl"`
		InMem  bool   `yaml:"inmem"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	driver, err := ParseSessionDriver(raw.Driver)
	if err != nil {
		return err
	}

	s.Driver = driver

	s.Host = raw.Host
	if raw.Host == "" {
		s.Host = Path
	}

	if raw.TTL == "" {
		s.TTL = 30 * time.Minute
	} else {
		ttl, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return err
		}

		s.TTL = ttl
	}

	s.InMem = raw.InMem

	return nil
}

type TransportProvider int

const NATS TransportProvider = iota

func ParseTransportProvider(provider string) (TransportProvider, error) {
	switch provider {
	case "nats":
		return NATS, nil
	default:
		return -1, errors.New("provider not supported")
	}
}

func (p TransportProvider) String() string {
	switch p {
	case NATS:
		return "nats"
	default:
		return ""
	}
}

type StreamConfig struct {
	Name     string   `yaml:"name"`
	Subjects []string `yaml:"subjects"`
}

type ConsumerConfig struct {
	Name   string `yaml:"name"`
	Stream string `yaml:"stream"`
}

type StreamConsumer struct {
	Stream   StreamConfig   `yaml:"stream"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

type EventBus struct {
	Provider TransportProvider
	Shop     StreamConsumer
}

func (e *EventBus) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Provider string         `yaml:"provider"`
		Shop     StreamConsumer `yaml:"shop"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	provider, err := ParseTransportProvider(raw.Provider)
	if err != nil {
		return err
	}

	e.Provider = provider
	e.Shop = raw.Shop

	return nil
}

type Discovery struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Service string `yaml:"service"`
}
