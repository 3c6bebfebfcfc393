package configs

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout    time.Duration `koanf:"read_timeout"`
		WriteTimeout   time.Duration `koanf:"write_timeout"`
		IdleTimeout    time.Duration `koanf:"idle_timeout"`
		RequestTimeout time.Duration `koanf:"request_timeout"`
	} `koanf:"http"`

	Database struct {
		Driver          string        `koanf:"driver"` // mysql | postgres | sqlite
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	} `koanf:"database"`

	Redis struct {
		Addr     string `koanf:"addr"` // empty disables cache and idempotency
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Idempotency struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"idempotency"`

	Cache struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cache"`

	Rabbit struct {
		URL            string        `koanf:"url"` // empty disables events
		Exchange       string        `koanf:"exchange"`
		Prefetch       int           `koanf:"prefetch"`
		HandlerTimeout time.Duration `koanf:"handler_timeout"`
		Requeue        bool          `koanf:"requeue"`
		ConfirmTimeout time.Duration `koanf:"confirm_timeout"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Brokers    []string `koanf:"brokers"` // empty disables the payment consumer
		GroupID    string   `koanf:"group_id"`
		Topic      string   `koanf:"topic"`
		Version    string   `koanf:"version"`
		FromOldest bool     `koanf:"from_oldest"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string `koanf:"jwt_secret"`
		Issuer    string `koanf:"issuer"`
		Audience  string `koanf:"audience"`
		TTL       int    `koanf:"ttl"` // minutes
	} `koanf:"security"`

	GRPC struct {
		Addr     string `koanf:"addr"` // empty disables the health server
		CertFile string `koanf:"cert_file"`
		KeyFile  string `koanf:"key_file"`
	} `koanf:"grpc"`

	Orders struct {
		MaxOrderValue   string `koanf:"max_order_value"`
		MaxItemQuantity int    `koanf:"max_item_quantity"`
		DefaultPageSize int    `koanf:"default_page_size"`
		MaxPageSize     int    `koanf:"max_page_size"`
	} `koanf:"orders"`

	Inventory struct {
		LowStockThreshold int `koanf:"low_stock_threshold"`
	} `koanf:"inventory"`

	Telemetry struct {
		Endpoint    string  `koanf:"endpoint"` // empty keeps spans in-process
		URLPath     string  `koanf:"url_path"`
		Insecure    bool    `koanf:"insecure"`
		SampleRatio float64 `koanf:"sample_ratio"`
	} `koanf:"telemetry"`
}

// Defaults returns the values used when no file or variable sets them.
func Defaults() Config {
	var c Config
	c.App.Name = "order-api"
	c.App.HTTPAddr = ":8080"
	c.App.LogLevel = "info"
	c.HTTP.ReadTimeout = 5 * time.Second
	c.HTTP.WriteTimeout = 10 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.RequestTimeout = 3 * time.Second
	c.Database.Driver = "mysql"
	c.Idempotency.TTL = 24 * time.Hour
	c.Cache.TTL = 10 * time.Minute
	c.Rabbit.Exchange = "order.events"
	c.Rabbit.Prefetch = 50
	c.Rabbit.HandlerTimeout = 10 * time.Second
	c.Rabbit.Requeue = true
	c.Rabbit.ConfirmTimeout = 5 * time.Second
	c.Kafka.GroupID = "order-api"
	c.Kafka.Topic = "payments.outcome"
	c.Security.TTL = 60
	c.Orders.MaxOrderValue = "1000.00"
	c.Orders.MaxItemQuantity = 50
	c.Orders.DefaultPageSize = 20
	c.Orders.MaxPageSize = 100
	c.Inventory.LowStockThreshold = 5
	c.Telemetry.URLPath = "/v1/traces"
	c.Telemetry.SampleRatio = 1
	return c
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	if envName != "" {
		_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())
	}

	// 3) environment variables override (prefix ORDERAPI_, nested with __)
	// e.g. ORDERAPI_DATABASE__DSN, ORDERAPI_REDIS__PASSWORD
	if err := k.Load(env.Provider("ORDERAPI_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "ORDERAPI_")
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.App.HTTPAddr == "" {
		return fmt.Errorf("app.http_addr required")
	}
	switch strings.ToLower(c.Database.Driver) {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver %q not supported", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn required")
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret required")
	}
	if _, err := c.MaxOrderValue(); err != nil {
		return err
	}
	if c.Orders.MaxItemQuantity < 1 {
		return fmt.Errorf("orders.max_item_quantity must be at least 1")
	}
	if c.Orders.DefaultPageSize < 1 || c.Orders.MaxPageSize < c.Orders.DefaultPageSize {
		return fmt.Errorf("orders page sizes invalid: default=%d max=%d", c.Orders.DefaultPageSize, c.Orders.MaxPageSize)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1]")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic required when brokers are set")
	}
	return nil
}

// MaxOrderValue parses the order-value ceiling.
func (c Config) MaxOrderValue() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(c.Orders.MaxOrderValue))
	if err != nil {
		return decimal.Zero, fmt.Errorf("orders.max_order_value %q: %w", c.Orders.MaxOrderValue, err)
	}
	if v.IsNegative() {
		return decimal.Zero, fmt.Errorf("orders.max_order_value must not be negative")
	}
	return v, nil
}

func (c Config) TokenTTL() time.Duration {
	return time.Duration(c.Security.TTL) * time.Minute
}
