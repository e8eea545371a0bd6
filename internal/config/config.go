package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/vasiliy-maslov/littletreat/internal/catalog"
	"github.com/vasiliy-maslov/littletreat/internal/order"
	"github.com/vasiliy-maslov/littletreat/internal/sheets"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath = "config.yaml"
	defaultEnvPath    = ".env"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Store      StoreConfig      `yaml:"store"`
	Storefront StorefrontConfig `yaml:"storefront"`
	Admin      AdminConfig      `yaml:"admin"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	Port string `yaml:"port" validate:"required,numeric"`
}

type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	MaxConns        int32         `yaml:"max_conns" validate:"gte=0"`
	MinConns        int32         `yaml:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	// LockTimeout bounds the wait for a sheet's write lock.
	LockTimeout time.Duration `yaml:"lock_timeout"`
}

// StoreConfig points the storefront and admin at the order store.
type StoreConfig struct {
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
	// OverrideFile holds a URL saved through the setup endpoint. It wins over
	// BaseURL when present.
	OverrideFile string             `yaml:"override_file"`
	Timeout      time.Duration      `yaml:"timeout"`
	Retry        sheets.RetryPolicy `yaml:"retry"`
}

type StorefrontConfig struct {
	Kind     string `yaml:"kind" validate:"required,oneof=food chocolate"`
	Name     string `yaml:"name"`
	Prefix   string `yaml:"prefix" validate:"omitempty,alphanum"`
	WhatsApp string `yaml:"whatsapp" validate:"required"`
	// Sheet must be the kind's own sheet: the store reads and updates only
	// the food and chocolate sheets.
	Sheet          string         `yaml:"sheet" validate:"omitempty,oneof=Orders chocolates_orders"`
	MenuPath       string         `yaml:"menu_path" validate:"required"`
	DeliveryDate   string         `yaml:"delivery_date"`
	DeliveryWindow catalog.Window `yaml:"delivery_window"`
	Persist        bool           `yaml:"persist"`
}

type AdminConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
	// Timezone decides which calendar day counts as "today" in the summary.
	Timezone string `yaml:"timezone"`
}

// Location loads the admin timezone, falling back to UTC.
func (a AdminConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NewConfig loads .env (if present), the YAML file named by CONFIG_PATH and
// then applies environment overrides.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(envOr("ENV_PATH", defaultEnvPath)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return Load(envOr("CONFIG_PATH", defaultConfigPath))
}

func Load(path string) (*Config, error) {
	cfg := defaults()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDerived()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	if want := cfg.Kind().DefaultSheet(); cfg.Storefront.Sheet != want {
		return nil, fmt.Errorf("config: invalid: %s storefront must use sheet %q, got %q", cfg.Kind(), want, cfg.Storefront.Sheet)
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.App.Port = "8080"
	cfg.Postgres.Port = "5432"
	cfg.Postgres.SSLMode = "disable"
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 1
	cfg.Postgres.MaxConnLifetime = time.Hour
	cfg.Postgres.LockTimeout = 10 * time.Second
	cfg.Store.Timeout = 15 * time.Second
	cfg.Store.Retry = sheets.DefaultRetryPolicy
	cfg.Storefront.Kind = string(order.KindFood)
	cfg.Storefront.MenuPath = "menu.json"
	cfg.Admin.Timezone = "Asia/Kolkata"
	return cfg
}

func (c *Config) applyEnv() error {
	overrides := []struct {
		key string
		dst *string
	}{
		{"APP_PORT", &c.App.Port},
		{"DB_HOST", &c.Postgres.Host},
		{"DB_PORT", &c.Postgres.Port},
		{"DB_USER", &c.Postgres.User},
		{"DB_PASSWORD", &c.Postgres.Password},
		{"DB_NAME", &c.Postgres.DBName},
		{"DB_SSLMODE", &c.Postgres.SSLMode},
		{"STORE_URL", &c.Store.BaseURL},
		{"STORE_OVERRIDE_FILE", &c.Store.OverrideFile},
		{"STOREFRONT_KIND", &c.Storefront.Kind},
		{"WHATSAPP_NUMBER", &c.Storefront.WhatsApp},
		{"MENU_PATH", &c.Storefront.MenuPath},
		{"DELIVERY_DATE", &c.Storefront.DeliveryDate},
		{"ADMIN_USERNAME", &c.Admin.Username},
		{"ADMIN_PASSWORD_HASH", &c.Admin.PasswordHash},
		{"ADMIN_TIMEZONE", &c.Admin.Timezone},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}

	if v, ok := os.LookupEnv("STORE_PERSIST"); ok && v != "" {
		persist, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: STORE_PERSIST: %w", err)
		}
		c.Storefront.Persist = persist
	}
	return nil
}

func (c *Config) fillDerived() {
	kind := order.Kind(c.Storefront.Kind)
	if c.Storefront.Prefix == "" {
		c.Storefront.Prefix = kind.DefaultPrefix()
	}
	if c.Storefront.Sheet == "" {
		c.Storefront.Sheet = kind.DefaultSheet()
	}
	if c.App.Name == "" {
		c.App.Name = "littletreat-" + c.Storefront.Kind
	}
}

// Kind returns the validated storefront kind.
func (c *Config) Kind() order.Kind {
	return order.Kind(c.Storefront.Kind)
}

// DSN is the key/value connection string understood by pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
