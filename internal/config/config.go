package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"iglivez"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"iglivez"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`

	BotToken    string  `envconfig:"BOT_TOKEN"`
	BotUsername string  `envconfig:"BOT_USERNAME" default:"IGLiveZBot"`
	AdminIDs    []int64 `envconfig:"ADMIN_IDS"`

	// Worker loop
	RunOnce                 bool `envconfig:"RUN_ONCE" default:"false"`
	PollingIntervalSeconds  int  `envconfig:"POLLING_INTERVAL_SECONDS" default:"2"`
	RetryCeiling            int  `envconfig:"RETRY_CEILING" default:"3"`
	SlowJobThresholdSeconds int  `envconfig:"SLOW_JOB_THRESHOLD_SECONDS" default:"5"`
	StuckJobResetMinutes    int  `envconfig:"STUCK_JOB_RESET_MINUTES" default:"15"`

	// Auto-broadcast trigger
	AutoBroadcastThreshold            int `envconfig:"AUTO_BROADCAST_THRESHOLD" default:"10"`
	AutoBroadcastCooldownHours        int `envconfig:"AUTO_BROADCAST_COOLDOWN_HOURS" default:"24"`
	AutoBroadcastCheckIntervalSeconds int `envconfig:"AUTO_BROADCAST_CHECK_INTERVAL_SECONDS" default:"300"`

	// Rate limits, per action: max requests within a sliding window
	RateCheckLiveMax         int `envconfig:"RATE_CHECK_LIVE_MAX" default:"5"`
	RateCheckLiveWindowSec   int `envconfig:"RATE_CHECK_LIVE_WINDOW_SECONDS" default:"60"`
	RateLiveCheckLogicMax    int `envconfig:"RATE_LIVE_CHECK_LOGIC_MAX" default:"10"`
	RateLiveCheckLogicWinSec int `envconfig:"RATE_LIVE_CHECK_LOGIC_WINDOW_SECONDS" default:"60"`
	RateButtonClickMax       int `envconfig:"RATE_BUTTON_CLICK_MAX" default:"20"`
	RateButtonClickWindowSec int `envconfig:"RATE_BUTTON_CLICK_WINDOW_SECONDS" default:"60"`
	RatePaymentMax           int `envconfig:"RATE_PAYMENT_MAX" default:"3"`
	RatePaymentWindowSec     int `envconfig:"RATE_PAYMENT_WINDOW_SECONDS" default:"300"`
	RateMessageMax           int `envconfig:"RATE_MESSAGE_MAX" default:"10"`
	RateMessageWindowSec     int `envconfig:"RATE_MESSAGE_WINDOW_SECONDS" default:"60"`

	// Points and referrals
	DefaultDailyPoints  int `envconfig:"DEFAULT_DAILY_POINTS" default:"3"`
	ReferralBonusPoints int `envconfig:"REFERRAL_BONUS_POINTS" default:"5"`
	LiveStreamsPerPage  int `envconfig:"LIVE_STREAMS_PER_PAGE" default:"5"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8082"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars may be set in the shell; .env files are optional.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.RetryCeiling < 0 {
		return fmt.Errorf("%w: RETRY_CEILING must not be negative", ErrMissingRequired)
	}
	return nil
}

func (c *Config) PollingInterval() time.Duration {
	return time.Duration(c.PollingIntervalSeconds) * time.Second
}

func (c *Config) SlowJobThreshold() time.Duration {
	return time.Duration(c.SlowJobThresholdSeconds) * time.Second
}

func (c *Config) StuckJobResetAge() time.Duration {
	return time.Duration(c.StuckJobResetMinutes) * time.Minute
}

func (c *Config) AutoBroadcastCooldown() time.Duration {
	return time.Duration(c.AutoBroadcastCooldownHours) * time.Hour
}

func (c *Config) AutoBroadcastCheckInterval() time.Duration {
	return time.Duration(c.AutoBroadcastCheckIntervalSeconds) * time.Second
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
