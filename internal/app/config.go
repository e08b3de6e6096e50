package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Mongo     MongoConfig
	Starknet  StarknetConfig
	Wallet    WalletConfig
	Catalog   CatalogConfig
	Orders    OrdersConfig
	Kafka     KafkaConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// MongoConfig controls the order document store.
type MongoConfig struct {
	URL        string `usage:"MongoDB connection URL (SHOP_MONGO_URL or MONGO_URL)" flag:"mongo-url"`
	Database   string `default:"copiblocks" usage:"MongoDB database name"`
	Collection string `default:"orders" usage:"Orders collection name"`
}

// StarknetConfig holds the contract addresses the checkout encodes calls
// against.
type StarknetConfig struct {
	ChamberAddress string `usage:"Chamber contract address (SHOP_STARKNET_CHAMBER_ADDRESS)" flag:"chamber-address"`
	TokenAddress   string `usage:"Payment token contract address (SHOP_STARKNET_TOKEN_ADDRESS)" flag:"token-address"`
	TokenDecimals  int32  `default:"6" usage:"Payment token decimal precision" flag:"token-decimals"`
}

// WalletConfig points at the wallet agent that signs and submits calls.
type WalletConfig struct {
	AgentURL string        `usage:"Wallet agent base URL (SHOP_WALLET_AGENT_URL)" flag:"wallet-agent-url"`
	Timeout  time.Duration `default:"30s" usage:"Wallet agent request timeout" flag:"wallet-timeout"`
}

// CatalogConfig optionally overrides the built-in product catalog.
type CatalogConfig struct {
	Path string `default:"" usage:"Path to a JSON catalog file; empty uses the built-in catalog" flag:"catalog-path"`
}

// OrdersConfig controls order persistence behavior.
type OrdersConfig struct {
	Dedupe bool `default:"false" usage:"Reject repeat saves carrying an already-recorded transaction hash" flag:"orders-dedupe"`
}

// KafkaConfig controls order-created event publishing. Publishing is disabled
// when no brokers are configured.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka broker addresses; empty disables event publishing" flag:"kafka-brokers"`
	Topic   string   `default:"orders.created" usage:"Topic for order-created events" flag:"kafka-topic"`
}

// RedisConfig controls the balance cache. Caching is disabled when no address
// is configured.
type RedisConfig struct {
	Addr       string        `usage:"Redis address; empty disables the balance cache" flag:"redis-addr"`
	Password   string        `usage:"Redis password" flag:"redis-password"`
	BalanceTTL time.Duration `default:"30s" usage:"Balance cache entry lifetime" flag:"balance-ttl"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	switch {
	case cfg.Mongo.URL == "":
		return nil, errors.New("mongo URL is required: set SHOP_MONGO_URL or MONGO_URL")
	case cfg.Starknet.ChamberAddress == "":
		return nil, errors.New("chamber address is required: set SHOP_STARKNET_CHAMBER_ADDRESS")
	case cfg.Starknet.TokenAddress == "":
		return nil, errors.New("token address is required: set SHOP_STARKNET_TOKEN_ADDRESS")
	case cfg.Wallet.AgentURL == "":
		return nil, errors.New("wallet agent URL is required: set SHOP_WALLET_AGENT_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like MONGO_URL and PORT to the
// application's SHOP_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Mongo.URL == "" {
		if v := os.Getenv("MONGO_URL"); v != "" {
			c.Mongo.URL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
