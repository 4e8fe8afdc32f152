package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Lock backend selection values for CertConfig.LockBackend.
const (
	LockBackendMemory   = "memory"
	LockBackendRedis    = "redis"
	LockBackendMySQL    = "mysql"
	LockBackendDisabled = "disabled"
)

type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	DB     DatabaseConfig
	Chain  ChainConfig
	Cert   CertConfig
	Issuer IssuerConfig
}

type ServerConfig struct {
	Host         string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	Environment  string        `envconfig:"ENVIRONMENT" default:"development"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DatabaseConfig is only consulted when the mysql lock backend is
// selected; the service keeps no other persistent state.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"3306"`
	User            string        `envconfig:"DB_USER" default:"app"`
	Password        string        `envconfig:"DB_PASSWORD" default:""`
	Name            string        `envconfig:"DB_NAME" default:"certclaim"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type ChainConfig struct {
	// ChainID of the deployment the service accepts tokens for.
	ChainID int64 `envconfig:"CHAIN_ID" default:"137"`
	// RPCURLs is a comma-separated preference list; endpoints are
	// tried in order on transport failures.
	RPCURLs string `envconfig:"CHAIN_RPC_URLS" default:"https://polygon-rpc.com"`
	// ContractAddress is the deployed NFT contract every token must be
	// bound to.
	ContractAddress string `envconfig:"CERT_CONTRACT_ADDRESS" default:""`
}

func (c ChainConfig) RPCURLList() []string {
	parts := strings.Split(c.RPCURLs, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}

type CertConfig struct {
	// Secret signs and verifies every claim token. The process is the
	// only holder; read once at startup, never rotated live.
	Secret string `envconfig:"CERT_TOKEN_SECRET" default:""`
	// TokenTTL is the default validity window of issued tokens.
	TokenTTL time.Duration `envconfig:"CERT_TOKEN_TTL" default:"30m"`
	// SingleUse enables exactly-once download consumption.
	SingleUse bool `envconfig:"CERT_SINGLE_USE" default:"false"`
	// LockBackend selects the once-lock store: memory, redis, mysql or
	// disabled. Ignored unless SingleUse is set.
	LockBackend string `envconfig:"CERT_LOCK_BACKEND" default:"memory"`
	// TemplatePath points at the certificate template PNG. Empty means
	// render on a plain generated background.
	TemplatePath string `envconfig:"CERT_TEMPLATE_PATH" default:""`
	// BaseURL prefixes claim URLs returned by the issue endpoint.
	BaseURL string `envconfig:"CERT_BASE_URL" default:"http://localhost:8080"`
}

type IssuerConfig struct {
	// DevPass guards the token issue endpoint. Empty disables it.
	DevPass string `envconfig:"DEV_TOKEN_PASS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no workable default.
func (c *Config) Validate() error {
	if c.Cert.Secret == "" {
		return fmt.Errorf("CERT_TOKEN_SECRET is required")
	}
	if c.Chain.ContractAddress == "" {
		return fmt.Errorf("CERT_CONTRACT_ADDRESS is required")
	}
	if len(c.Chain.ContractAddress) != 42 || !strings.HasPrefix(c.Chain.ContractAddress, "0x") {
		return fmt.Errorf("CERT_CONTRACT_ADDRESS must be a 0x-prefixed 20-byte address")
	}
	if len(c.Chain.RPCURLList()) == 0 {
		return fmt.Errorf("CHAIN_RPC_URLS must list at least one endpoint")
	}
	switch c.Cert.LockBackend {
	case LockBackendMemory, LockBackendRedis, LockBackendMySQL, LockBackendDisabled:
	default:
		return fmt.Errorf("unknown CERT_LOCK_BACKEND %q", c.Cert.LockBackend)
	}
	return nil
}
