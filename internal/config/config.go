package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AppEnv   string         `mapstructure:"app_env"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Lookup   LookupConfig   `mapstructure:"lookup"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN renders the postgres connection string shared by sqlx and gorm.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

type RedisConfig struct {
	// Empty host disables Redis; the in-memory cache is used instead.
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
}

type LogConfig struct {
	OutputFile string `mapstructure:"output_file"`
}

type HTTPConfig struct {
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type PipelineConfig struct {
	FullCycleInterval  time.Duration `mapstructure:"full_cycle_interval"`
	ReconcileInterval  time.Duration `mapstructure:"reconcile_interval"`
	BatchSize          int           `mapstructure:"batch_size"`
	UpsertChunkSize    int           `mapstructure:"upsert_chunk_size"`
	MaxWorkers         int           `mapstructure:"max_workers"`
	VacuumEveryNCycles int           `mapstructure:"vacuum_every_n_cycles"`
	CheckpointPath     string        `mapstructure:"checkpoint_path"`
	HpBackfillLimit    int           `mapstructure:"hp_backfill_limit"`
}

type LookupConfig struct {
	SpecAPIBaseURL string        `mapstructure:"spec_api_base_url"`
	GenAIBaseURL   string        `mapstructure:"gen_ai_base_url"`
	GenAIAPIKey    string        `mapstructure:"gen_ai_api_key"`
	Proxies        []string      `mapstructure:"proxies"`
	SiblingTries   int           `mapstructure:"sibling_tries"`
	TryDelay       time.Duration `mapstructure:"try_delay"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
}

type AlertsConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Load reads config.yaml and overrides with environment variables
// (dot notation maps to underscores, e.g. POSTGRES_HOST).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("postgres.user", "pricer")
	v.SetDefault("postgres.dbname", "pricer")
	v.SetDefault("postgres.sslmode", "disable")

	v.SetDefault("redis.port", "6379")

	v.SetDefault("http.port", 8080)

	v.SetDefault("pipeline.full_cycle_interval", 6*time.Hour)
	v.SetDefault("pipeline.reconcile_interval", 5*time.Minute)
	v.SetDefault("pipeline.batch_size", 200)
	v.SetDefault("pipeline.upsert_chunk_size", 50)
	v.SetDefault("pipeline.max_workers", 4)
	v.SetDefault("pipeline.vacuum_every_n_cycles", 10)
	v.SetDefault("pipeline.checkpoint_path", "data/checkpoint.json")
	v.SetDefault("pipeline.hp_backfill_limit", 500)

	v.SetDefault("lookup.sibling_tries", 3)
	v.SetDefault("lookup.try_delay", 2*time.Second)
	v.SetDefault("lookup.rate_per_second", 1.0)
}
