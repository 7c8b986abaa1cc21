package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete engine configuration, loadable from environment
// variables (FENRO_ prefix), flags, or YAML config files.
type Config struct {
	Addr     string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	Catalog  CatalogConfig
	Store    StoreConfig
	CORS     CORSConfig
	Graceful GracefulConfig
}

// CatalogConfig points the engine at a Fenro catalog API and bounds the
// mirrored scope.
type CatalogConfig struct {
	BaseURL      string        `usage:"Fenro API base URL (FENRO_CATALOG_BASE_URL)" flag:"catalog-base-url"`
	ShopID       string        `usage:"Fenro shop identifier" flag:"shop-id"`
	PollInterval time.Duration `default:"5s" usage:"Interval between incremental catalog polls" flag:"poll-interval"`
	Status       string        `default:"active" usage:"Product status scope (active, inactive, all)"`
	Limit        int           `default:"100" usage:"Max products per fetch"`
	Offset       int           `default:"0" usage:"Fetch offset"`
	Collection   string        `default:"" usage:"Restrict the mirror to one collection"`
	Category     string        `default:"" usage:"Restrict the mirror to one category"`
}

// StoreConfig selects the persistence backend for carts, favorites and the
// other client-side collections.
type StoreConfig struct {
	Backend     string `default:"bolt" usage:"Persistence backend: bolt, postgres or memory"`
	BoltPath    string `default:"storefront.db" usage:"Bolt database file path" flag:"bolt-path"`
	DatabaseURL string `usage:"PostgreSQL connection URL (FENRO_STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "FENRO",
		Files:     []string{"config.yaml", "/etc/fenro/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Catalog.BaseURL == "" {
		return nil, errors.New("catalog base URL is required: set FENRO_CATALOG_BASE_URL")
	}
	if cfg.Catalog.ShopID == "" {
		return nil, errors.New("shop ID is required: set FENRO_CATALOG_SHOP_ID")
	}
	if cfg.Store.Backend == "postgres" && cfg.Store.DatabaseURL == "" {
		return nil, errors.New("database URL is required for the postgres backend: set FENRO_STORE_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT onto the FENRO_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.Store.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
