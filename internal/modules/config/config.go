package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"intraday_trader/internal/strategy"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	configDir         = "configs/"
)

type Trading struct {
	EntryTimeFrame int     `yaml:"entry_time_frame"` // minutes
	ExitTimeFrame  int     `yaml:"exit_time_frame"`  // minutes
	Symbol         string  `yaml:"symbol"`
	Exchange       string  `yaml:"exchange"`
	InstrumentTok  int64   `yaml:"instrument_token"`
	Product        string  `yaml:"product"`
	Quantity       int     `yaml:"quantity"`
	TickSize       float64 `yaml:"tick_size"`
	// HistoryDays is how far back candles are requested.
	HistoryDays int `yaml:"history_days"`

	ConfirmWindowFactor float64       `yaml:"confirm_window_factor"`
	ConfirmPollInterval time.Duration `yaml:"confirm_poll_interval"`
	StatusPollInterval  time.Duration `yaml:"status_poll_interval"`
}

type Holiday struct {
	Date string `yaml:"date"` // 2006-01-02
	Name string `yaml:"name"`
}

type Session struct {
	Timezone     string        `yaml:"timezone"`
	MarketOpen   string        `yaml:"market_open"` // 15:04
	MarketClose  string        `yaml:"market_close"`
	TradingStart string        `yaml:"trading_start"`
	TradingEnd   string        `yaml:"trading_end"`
	Holidays     []Holiday     `yaml:"holidays"`
	IdleRecheck  time.Duration `yaml:"idle_recheck"`
}

type Broker struct {
	Mode        string        `yaml:"mode"` // live | paper
	BaseURL     string        `yaml:"base_url"`
	TickerURL   string        `yaml:"ticker_url"`
	UseTicker   bool          `yaml:"use_ticker"`
	APIKey      string        `yaml:"api_key"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

type Mail struct {
	Enabled    bool     `yaml:"send_email"`
	Host       string   `yaml:"host"`
	Port       int      `yaml:"port"`
	Address    string   `yaml:"address"`
	Password   string   `yaml:"password"`
	Recipients []string `yaml:"recipients"`
}

type Tracing struct {
	Enabled    bool    `yaml:"enabled"`
	Host       string  `yaml:"host"`
	Port       int     `yaml:"port"`
	SampleRate float64 `yaml:"sample_rate"` // share of ticks traced, 1 traces all
}

type Strategy struct {
	Name           string `yaml:"name"`
	DonchianPeriod int    `yaml:"donchian_period"`
	TrendEMA       int    `yaml:"trend_ema"`
	ExitFastEMA    int    `yaml:"exit_fast_ema"`
	ExitSlowEMA    int    `yaml:"exit_slow_ema"`
}

// Config is read once at start and never reloaded.
type Config struct {
	Trading  Trading  `yaml:"trading"`
	Strategy Strategy `yaml:"strategy"`
	Session  Session  `yaml:"session"`
	Broker   Broker   `yaml:"broker"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Mail Mail `yaml:"mail"`

	DBDriver string `yaml:"db_driver"` // postgres | memory
	DB       string `yaml:"db_dsn"`

	Service struct {
		Name       string `yaml:"name"`
		HealthAddr string `yaml:"health_addr"`
		LogLevel   string `yaml:"log_level"`
	} `yaml:"service"`
	Tracing Tracing `yaml:"tracing"`

	Supervisor struct {
		MaxRestarts int           `yaml:"max_restarts"`
		MinBackoff  time.Duration `yaml:"min_backoff"`
		MaxBackoff  time.Duration `yaml:"max_backoff"`
	} `yaml:"supervisor"`
}

// Default returns the configuration used when no file overrides it.
func Default() Config {
	var cfg Config
	cfg.Trading = Trading{
		EntryTimeFrame:      5,
		ExitTimeFrame:       5,
		Exchange:            "NSE",
		Product:             "MIS",
		Quantity:            1,
		TickSize:            0.05,
		HistoryDays:         5,
		ConfirmWindowFactor: 2.8,
		ConfirmPollInterval: time.Second,
		StatusPollInterval:  10 * time.Second,
	}
	cfg.Strategy = Strategy{
		Name:           "donchian",
		DonchianPeriod: 20,
		TrendEMA:       50,
		ExitFastEMA:    9,
		ExitSlowEMA:    21,
	}
	cfg.Session = Session{
		Timezone:     "Asia/Kolkata",
		MarketOpen:   "09:15",
		MarketClose:  "15:30",
		TradingStart: "09:15",
		TradingEnd:   "15:15",
		IdleRecheck:  30 * time.Second,
	}
	cfg.Broker = Broker{
		Mode:      "live",
		BaseURL:   "https://api.kite.trade",
		TickerURL: "wss://ws.kite.trade",
		Timeout:   10 * time.Second,
	}
	cfg.Mail = Mail{Host: "smtp.gmail.com", Port: 465}
	cfg.DBDriver = "postgres"
	cfg.Service.Name = "intraday_trader"
	cfg.Service.HealthAddr = ":8080"
	cfg.Service.LogLevel = "info"
	cfg.Tracing.Host = "localhost"
	cfg.Tracing.Port = 6831
	cfg.Tracing.SampleRate = 1
	cfg.Supervisor.MaxRestarts = 5
	cfg.Supervisor.MinBackoff = 5 * time.Second
	cfg.Supervisor.MaxBackoff = time.Minute
	return cfg
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	if err := decodeFile(configDir+configFileName, &config); err != nil {
		return nil, err
	}

	applyEnv(newEnv(), &config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func decodeFile(path string, config *Config) error {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if err := yaml.NewDecoder(file).Decode(config); err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	return nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	return v
}

// applyEnv overrides file values with non-empty environment variables.
func applyEnv(v *viper.Viper, config *Config) {
	str := func(key string, dst *string) {
		if v.GetString(key) != "" {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.GetString(key) != "" {
			*dst = v.GetInt(key)
		}
	}

	num("ENTRY_TIME_FRAME", &config.Trading.EntryTimeFrame)
	num("EXIT_TIME_FRAME", &config.Trading.ExitTimeFrame)
	str("SYMBOL", &config.Trading.Symbol)
	str("EXCHANGE", &config.Trading.Exchange)
	if v.GetString("INSTRUMENT_TOKEN") != "" {
		config.Trading.InstrumentTok = v.GetInt64("INSTRUMENT_TOKEN")
	}
	str("PRODUCT", &config.Trading.Product)
	num("QUANTITY", &config.Trading.Quantity)

	str("BROKER_MODE", &config.Broker.Mode)
	str("KITE_API_KEY", &config.Broker.APIKey)
	str("KITE_ACCESS_TOKEN", &config.Broker.AccessToken)

	str("DB_DRIVER", &config.DBDriver)
	str("DATABASE_DSN", &config.DB)

	str("TELEGRAM_TOKEN", &config.Telegram.Token)
	if v.GetString("TELEGRAM_CHAT_ID") != "" {
		config.Telegram.ChatID = v.GetInt64("TELEGRAM_CHAT_ID")
	}

	if v.GetString("SEND_EMAIL") != "" {
		config.Mail.Enabled = v.GetBool("SEND_EMAIL")
	}
	str("EMAIL_ADDRESS", &config.Mail.Address)
	str("EMAIL_PASSWORD", &config.Mail.Password)
	if r := v.GetString("EMAIL_RECIPIENTS"); r != "" {
		config.Mail.Recipients = splitList(r)
	}

	str("LOG_LEVEL", &config.Service.LogLevel)
	str("HEALTH_ADDR", &config.Service.HealthAddr)
	if v.GetString("TRACING_ENABLED") != "" {
		config.Tracing.Enabled = v.GetBool("TRACING_ENABLED")
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Trading.EntryTimeFrame <= 0:
		return fmt.Errorf("entry_time_frame must be positive, got %d", c.Trading.EntryTimeFrame)
	case c.Trading.ExitTimeFrame <= 0:
		return fmt.Errorf("exit_time_frame must be positive, got %d", c.Trading.ExitTimeFrame)
	case c.Trading.Quantity <= 0:
		return fmt.Errorf("quantity must be positive, got %d", c.Trading.Quantity)
	case strings.TrimSpace(c.Trading.Symbol) == "":
		return errors.New("symbol is required")
	case c.Trading.Exchange == "":
		return errors.New("exchange is required")
	case c.Trading.ConfirmWindowFactor <= 0:
		return fmt.Errorf("confirm_window_factor must be positive, got %v", c.Trading.ConfirmWindowFactor)
	case c.Trading.ConfirmPollInterval <= 0 || c.Trading.StatusPollInterval <= 0:
		return errors.New("poll intervals must be positive")
	}
	switch c.Broker.Mode {
	case "live", "paper":
	default:
		return fmt.Errorf("unknown broker mode %q", c.Broker.Mode)
	}
	switch c.DBDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	if c.DBDriver == "postgres" && c.DB == "" {
		return errors.New("db_dsn is required for the postgres driver")
	}
	return nil
}

// StrategyConfig converts to the evaluator's own config type.
func (c *Config) StrategyConfig() strategy.Config {
	return strategy.Config{
		Name:           c.Strategy.Name,
		DonchianPeriod: c.Strategy.DonchianPeriod,
		TrendEMA:       c.Strategy.TrendEMA,
		ExitFastEMA:    c.Strategy.ExitFastEMA,
		ExitSlowEMA:    c.Strategy.ExitSlowEMA,
	}
}
