package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cron     CronConfig     `mapstructure:"cron"`
	Pace     PaceConfig     `mapstructure:"pace"`
	Backfill BackfillConfig `mapstructure:"backfill"`
	Pickup   PickupConfig   `mapstructure:"pickup"`
	Ensemble EnsembleConfig `mapstructure:"ensemble"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type RedisConfig struct {
	URL string        `mapstructure:"url"`
	TTL time.Duration `mapstructure:"ttl"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	PaceSnapshot   string `mapstructure:"pace_snapshot"`
	BackfillRepair string `mapstructure:"backfill_repair"`
	RateStats      string `mapstructure:"rate_stats"`
	Actuals        string `mapstructure:"actuals"`
}

type PaceConfig struct {
	// HorizonDays is how far forward the daily snapshot looks; TrailingDays is
	// how many past stay dates get their lead-0 (final) row refreshed.
	HorizonDays  int    `mapstructure:"horizon_days"`
	TrailingDays int    `mapstructure:"trailing_days"`
	LedgerEpoch  string `mapstructure:"ledger_epoch"`
}

type BackfillConfig struct {
	RepairDays int  `mapstructure:"repair_days"`
	Resume     bool `mapstructure:"resume"`
}

type PickupConfig struct {
	// MaxListedSamples bounds how many of the earliest prior-year pickup
	// bookings feed the listed-rate estimate.
	MaxListedSamples int `mapstructure:"max_listed_samples"`
}

type EnsembleConfig struct {
	MapeFloor       float64 `mapstructure:"mape_floor"`
	HistoryDays     int     `mapstructure:"history_days"`
	BlendEnabled    bool    `mapstructure:"blend_enabled"`
	EnsembleWeight  float64 `mapstructure:"ensemble_weight"`
	ReferenceWeight float64 `mapstructure:"reference_weight"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.ttl", "60s")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.pace_snapshot", "0 0 5 * * *")
	v.SetDefault("cron.backfill_repair", "0 0 3 * * *")
	v.SetDefault("cron.rate_stats", "0 30 4 * * *")
	v.SetDefault("cron.actuals", "0 0 6 * * *")
	v.SetDefault("pace.horizon_days", 365)
	v.SetDefault("pace.trailing_days", 30)
	v.SetDefault("pace.ledger_epoch", "2018-01-01")
	v.SetDefault("backfill.repair_days", 60)
	v.SetDefault("backfill.resume", true)
	v.SetDefault("pickup.max_listed_samples", 3)
	v.SetDefault("ensemble.mape_floor", 0.01)
	v.SetDefault("ensemble.history_days", 90)
	v.SetDefault("ensemble.blend_enabled", true)
	v.SetDefault("ensemble.ensemble_weight", 0.6)
	v.SetDefault("ensemble.reference_weight", 0.4)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
