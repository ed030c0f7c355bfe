package config

import (
	"errors"
	"fmt"
	"time"

	"balance-watch/internal/domain"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Chain    ChainConfig    `mapstructure:"chain"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	App      AppConfig      `mapstructure:"app"`
}

// ChainConfig - JSON-RPC node settings
type ChainConfig struct {
	RPCURL         string  `mapstructure:"rpc_url"`
	RequestTimeout int     `mapstructure:"request_timeout"` // seconds per eth_getBalance
	MaxRetries     int     `mapstructure:"max_retries"`     // startup connectivity check only
	RateLimit      float64 `mapstructure:"rate_limit"`      // requests per second
}

// TelegramConfig - alerting is disabled when either value is empty
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"` // numeric id or @channel
	Timeout  int    `mapstructure:"timeout"` // seconds
}

type AppConfig struct {
	AddressesFile string `mapstructure:"addresses_file"`
	PollInterval  int    `mapstructure:"poll_interval"` // seconds
	LogFile       string `mapstructure:"log_file"`      // balance CSV
	LogsDir       string `mapstructure:"logs_dir"`      // zap app.log
	MetricsAddr   string `mapstructure:"metrics_addr"`  // empty disables /metrics
}

func (c ChainConfig) Timeout() time.Duration { return time.Duration(c.RequestTimeout) * time.Second }

func (c TelegramConfig) Enabled() bool { return c.BotToken != "" && c.ChatID != "" }

func (c TelegramConfig) SendTimeout() time.Duration { return time.Duration(c.Timeout) * time.Second }

func (c AppConfig) Interval() time.Duration { return time.Duration(c.PollInterval) * time.Second }

// RegisterFlags adds the config flags to a command's flag set. LoadConfig binds them.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Path to a YAML config file (default ./config.yaml)")

	flags.String("chain.rpc_url", "http://127.0.0.1:8545", "Ethereum JSON-RPC endpoint (env: RPC_URL)")
	flags.Int("chain.request_timeout", 15, "Balance request timeout in seconds (env: RPC_TIMEOUT_SEC)")
	flags.Int("chain.max_retries", 2, "Retries for the startup connectivity check (env: RPC_MAX_RETRIES)")
	flags.Float64("chain.rate_limit", 10, "Max RPC requests per second (env: RPC_RATE_LIMIT)")

	flags.String("telegram.bot_token", "", "Telegram bot token (env: TG_BOT_TOKEN)")
	flags.String("telegram.chat_id", "", "Telegram chat id or @channel (env: TG_CHAT_ID)")
	flags.Int("telegram.timeout", 10, "Notification timeout in seconds (env: TG_TIMEOUT_SEC)")

	flags.String("app.addresses_file", "addresses.txt", "File with one address per line (env: ADDRESSES_FILE)")
	flags.Int("app.poll_interval", 30, "Seconds between poll cycles (env: POLL_SEC)")
	flags.String("app.log_file", "balances.csv", "Balance change CSV log (env: LOG_FILE)")
	flags.String("app.logs_dir", "logs", "Directory for app.log (env: LOGS_DIR)")
	flags.String("app.metrics_addr", "", "Listen address for /metrics and /healthz, empty disables (env: METRICS_ADDR)")
}

// LoadConfig layers, lowest first: defaults, config.yaml, .env, environment, flags.
// flags may be nil.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	// .env only fills variables that are not already set
	godotenv.Load(".env")

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	configFile := ""
	if flags != nil {
		configFile, _ = flags.GetString("config")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config file: %v", domain.ErrConfiguration, err)
		}
	}

	v.AutomaticEnv()
	setupEnvAliases(v)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("%w: bind flags: %v", domain.ErrConfiguration, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// setupEnvAliases maps the short environment names (RPC_URL, POLL_SEC, ...) onto config keys.
func setupEnvAliases(v *viper.Viper) {
	v.BindEnv("chain.rpc_url", "RPC_URL")
	v.BindEnv("chain.request_timeout", "RPC_TIMEOUT_SEC")
	v.BindEnv("chain.max_retries", "RPC_MAX_RETRIES")
	v.BindEnv("chain.rate_limit", "RPC_RATE_LIMIT")

	v.BindEnv("telegram.bot_token", "TG_BOT_TOKEN")
	v.BindEnv("telegram.chat_id", "TG_CHAT_ID")
	v.BindEnv("telegram.timeout", "TG_TIMEOUT_SEC")

	v.BindEnv("app.addresses_file", "ADDRESSES_FILE")
	v.BindEnv("app.poll_interval", "POLL_SEC")
	v.BindEnv("app.log_file", "LOG_FILE")
	v.BindEnv("app.logs_dir", "LOGS_DIR")
	v.BindEnv("app.metrics_addr", "METRICS_ADDR")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("chain.request_timeout", 15)
	v.SetDefault("chain.max_retries", 2)
	v.SetDefault("chain.rate_limit", 10.0)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.timeout", 10)

	v.SetDefault("app.addresses_file", "addresses.txt")
	v.SetDefault("app.poll_interval", 30)
	v.SetDefault("app.log_file", "balances.csv")
	v.SetDefault("app.logs_dir", "logs")
	v.SetDefault("app.metrics_addr", "")
}

func validateConfig(cfg *Config) error {
	switch {
	case cfg.Chain.RPCURL == "":
		return fmt.Errorf("%w: chain.rpc_url is required", domain.ErrConfiguration)
	case cfg.Chain.RequestTimeout <= 0:
		return fmt.Errorf("%w: chain.request_timeout must be positive", domain.ErrConfiguration)
	case cfg.Chain.MaxRetries < 0:
		return fmt.Errorf("%w: chain.max_retries must not be negative", domain.ErrConfiguration)
	case cfg.Chain.RateLimit <= 0:
		return fmt.Errorf("%w: chain.rate_limit must be positive", domain.ErrConfiguration)
	case cfg.Telegram.Timeout <= 0:
		return fmt.Errorf("%w: telegram.timeout must be positive", domain.ErrConfiguration)
	case cfg.App.AddressesFile == "":
		return fmt.Errorf("%w: app.addresses_file is required", domain.ErrConfiguration)
	case cfg.App.PollInterval <= 0:
		return fmt.Errorf("%w: app.poll_interval must be positive", domain.ErrConfiguration)
	case cfg.App.LogFile == "":
		return fmt.Errorf("%w: app.log_file is required", domain.ErrConfiguration)
	}
	return nil
}
