package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "MENTORPAY"
	configFileName = "mentorpay.yaml"
)

const (
	keyPlatformFee        = "engine.platform_fee"
	keyGracePeriod        = "engine.grace_period"
	keyHeartbeatInterval  = "engine.heartbeat_interval"
	keyHeartbeatCooldown  = "engine.heartbeat_cooldown"
	keyEntryTimeout       = "engine.entry_timeout"
	keyRecoveryWindow     = "engine.recovery_window"
	keyMaxSessionDuration = "engine.max_session_duration"
	keyTickInterval       = "scheduler.tick_interval"
	keyRetryAttempts      = "settlement.retry_attempts"
	keyRetryBackoff       = "settlement.retry_backoff"
	keyListen             = "server.listen"
	keyLogLevel           = "log.level"
	keyLogFile            = "log.file"
)

type Engine struct {
	PlatformFee        string        `mapstructure:"platform_fee"`
	GracePeriod        time.Duration `mapstructure:"grace_period"`
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatCooldown  time.Duration `mapstructure:"heartbeat_cooldown"`
	EntryTimeout       time.Duration `mapstructure:"entry_timeout"`
	RecoveryWindow     time.Duration `mapstructure:"recovery_window"`
	MaxSessionDuration time.Duration `mapstructure:"max_session_duration"`
}

type Scheduler struct {
	TickInterval time.Duration `mapstructure:"tick_interval"`
}

type Settlement struct {
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

type Server struct {
	Listen string `mapstructure:"listen"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type Config struct {
	DataDir      string     `mapstructure:"-"`
	StatePath    string     `mapstructure:"-"`
	DBPath       string     `mapstructure:"-"`
	ReportsDir   string     `mapstructure:"-"`
	ManifestPath string     `mapstructure:"-"`
	Engine       Engine     `mapstructure:"engine"`
	Scheduler    Scheduler  `mapstructure:"scheduler"`
	Settlement   Settlement `mapstructure:"settlement"`
	Server       Server     `mapstructure:"server"`
	Log          Log        `mapstructure:"log"`
}

// New builds a Config rooted at dataDir. Values come from defaults, an optional
// mentorpay.yaml in dataDir (or configFile when given), a .env file and
// MENTORPAY_* environment variables, in increasing precedence.
func New(dataDir, configFile string) (Config, error) {
	if strings.TrimSpace(dataDir) == "" {
		return Config{}, fmt.Errorf("data dir is required")
	}
	_ = godotenv.Load(filepath.Join(dataDir, ".env"))

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		configFile = filepath.Join(dataDir, configFileName)
	}
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.DataDir = dataDir
	cfg.StatePath = filepath.Join(dataDir, ".mentorpay", "state.db")
	cfg.DBPath = filepath.Join(dataDir, ".mentorpay", "mentorpay.db")
	cfg.ReportsDir = filepath.Join(dataDir, "reports")
	cfg.ManifestPath = filepath.Join(dataDir, "settlement", "plugin.json")
	if cfg.Log.File != "" && !filepath.IsAbs(cfg.Log.File) {
		cfg.Log.File = filepath.Join(dataDir, cfg.Log.File)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyPlatformFee, "0.10")
	v.SetDefault(keyGracePeriod, "2m")
	v.SetDefault(keyHeartbeatInterval, "30s")
	v.SetDefault(keyHeartbeatCooldown, "30s")
	v.SetDefault(keyEntryTimeout, "15m")
	v.SetDefault(keyRecoveryWindow, "10m")
	v.SetDefault(keyMaxSessionDuration, "4h")
	v.SetDefault(keyTickInterval, "1s")
	v.SetDefault(keyRetryAttempts, 3)
	v.SetDefault(keyRetryBackoff, "500ms")
	v.SetDefault(keyListen, "127.0.0.1:8787")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyLogFile, "")
}

func (c Config) Validate() error {
	if c.Scheduler.TickInterval <= 0 {
		return fmt.Errorf("scheduler.tick_interval must be positive")
	}
	if c.Settlement.RetryAttempts < 1 {
		return fmt.Errorf("settlement.retry_attempts must be at least 1")
	}
	if c.Settlement.RetryBackoff < 0 {
		return fmt.Errorf("settlement.retry_backoff must not be negative")
	}
	if strings.TrimSpace(c.Server.Listen) == "" {
		return fmt.Errorf("server.listen is required")
	}
	return nil
}
