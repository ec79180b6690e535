package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ldinh/marketd/internal/core/domain"
)

// Config is the root configuration for a marketd instance.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	MySQL       MySQLConfig       `yaml:"mysql"`
	Redis       RedisConfig       `yaml:"redis"`
	Market      MarketConfig      `yaml:"market"`
	Auth        AuthConfig        `yaml:"auth"`
	Entitlement EntitlementConfig `yaml:"entitlement"`
	Catalog     []ItemConfig      `yaml:"catalog"`
}

type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MySQLConfig holds the durable store connection. An empty DSN selects
// the in-memory store (single-node runs and tests).
type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig holds the snapshot cache connection. An empty address
// disables the cache; listings then read straight from the store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

type MarketConfig struct {
	// DefaultBalance is granted to a wallet on first touch.
	DefaultBalance int64 `yaml:"default_balance"`

	// ExpiryInterval is the poll interval of the expiry scheduler.
	ExpiryInterval time.Duration `yaml:"expiry_interval"`

	// ListingTTL bounds the staleness of cached inventory listings.
	ListingTTL time.Duration `yaml:"listing_ttl"`

	// MaxOpenDuration caps the window length an admin may request.
	MaxOpenDuration time.Duration `yaml:"max_open_duration"`
}

// AuthConfig lists the principals allowed to open and close markets.
type AuthConfig struct {
	Admins []string `yaml:"admins"`
}

type EntitlementConfig struct {
	// WebhookURL receives grant requests; empty disables granting.
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ItemConfig is one catalog template as written in YAML.
type ItemConfig struct {
	ItemID         string `yaml:"item_id"`
	DisplayName    string `yaml:"display_name"`
	Category       string `yaml:"category"`
	MinPrice       int64  `yaml:"min_price"`
	MaxPrice       int64  `yaml:"max_price"`
	MinStock       int    `yaml:"min_stock"`
	MaxStock       int    `yaml:"max_stock"`
	PerUserLimit   int    `yaml:"per_user_limit"`
	EntitlementKey string `yaml:"entitlement_key"`
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.MySQL.MaxOpenConns == 0 {
		c.MySQL.MaxOpenConns = 50
	}
	if c.MySQL.MaxIdleConns == 0 {
		c.MySQL.MaxIdleConns = 25
	}
	if c.MySQL.ConnMaxLifetime == 0 {
		c.MySQL.ConnMaxLifetime = 5 * time.Minute
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 100
	}
	if c.Market.DefaultBalance == 0 {
		c.Market.DefaultBalance = 10000
	}
	if c.Market.ExpiryInterval == 0 {
		c.Market.ExpiryInterval = 15 * time.Second
	}
	if c.Market.ListingTTL == 0 {
		c.Market.ListingTTL = 2 * time.Second
	}
	if c.Market.MaxOpenDuration == 0 {
		c.Market.MaxOpenDuration = 24 * time.Hour
	}
	if c.Entitlement.Timeout == 0 {
		c.Entitlement.Timeout = 5 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Market.DefaultBalance < 0 {
		return errors.New("market.default_balance must not be negative")
	}
	if c.Market.ExpiryInterval < time.Second {
		return fmt.Errorf("market.expiry_interval %s is below 1s", c.Market.ExpiryInterval)
	}
	if len(c.Auth.Admins) == 0 {
		return errors.New("auth.admins must list at least one principal")
	}
	return c.DomainCatalog().Validate()
}

// DomainCatalog converts the YAML catalog into the domain type.
func (c *Config) DomainCatalog() domain.Catalog {
	catalog := make(domain.Catalog, 0, len(c.Catalog))
	for _, item := range c.Catalog {
		catalog = append(catalog, domain.CatalogTemplate{
			ItemID:         item.ItemID,
			DisplayName:    item.DisplayName,
			Category:       item.Category,
			MinPrice:       item.MinPrice,
			MaxPrice:       item.MaxPrice,
			MinStock:       item.MinStock,
			MaxStock:       item.MaxStock,
			PerUserLimit:   item.PerUserLimit,
			EntitlementKey: item.EntitlementKey,
		})
	}
	return catalog
}
