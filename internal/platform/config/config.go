// Package config loads the gateway configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"

	"dkyc/pkg/platform/middleware/metadata"
)

// DefaultFeeWei is 0.01 ether.
const DefaultFeeWei = "10000000000000000"

// Config is the full gateway configuration.
type Config struct {
	Server  Server
	Storage Storage
	Ledger  Ledger
	Journal Journal
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string        `env:"DKYC_ADDR" envDefault:":8080"`
	Environment    string        `env:"DKYC_ENV" envDefault:"development"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	RequestTimeout time.Duration `env:"DKYC_REQUEST_TIMEOUT" envDefault:"3m"`
	MaxBodyBytes   int64         `env:"DKYC_MAX_BODY_BYTES" envDefault:"1048576"`
	TrustedProxies []string      `env:"DKYC_TRUSTED_PROXIES" envSeparator:","`
}

// Storage configures the presigned upload/download brokers. An empty Bucket
// is allowed at startup; the brokers reject each request instead.
type Storage struct {
	Bucket        string        `env:"KYC_BUCKET"`
	Region        string        `env:"AWS_REGION"`
	DefaultRegion string        `env:"AWS_DEFAULT_REGION"`
	UploadPrefix  string        `env:"KYC_UPLOAD_PREFIX" envDefault:"uploads/"`
	PresignTTL    time.Duration `env:"KYC_PRESIGN_TTL" envDefault:"600s"`
}

// Ledger configures the KYC contract gateway.
type Ledger struct {
	RPCURL                 string        `env:"RPC_URL,required,notEmpty"`
	ContractAddress        string        `env:"CONTRACT_ADDRESS,required,notEmpty"`
	PrivateKey             string        `env:"PRIVATE_KEY,required,notEmpty"`
	FeeWei                 string        `env:"KYC_FEE_WEI" envDefault:"10000000000000000"`
	FeeFromContract        bool          `env:"KYC_FEE_FROM_CONTRACT" envDefault:"false"`
	ConfirmTimeout         time.Duration `env:"KYC_CONFIRM_TIMEOUT" envDefault:"2m"`
	UpdateRequiresExisting bool          `env:"KYC_UPDATE_REQUIRES_EXISTING" envDefault:"true"`
	BreakerThreshold       int           `env:"KYC_LEDGER_BREAKER_THRESHOLD" envDefault:"5"`
}

// Journal configures workflow state persistence. An empty Path keeps the
// journal log-only.
type Journal struct {
	Path string `env:"KYC_JOURNAL_PATH"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if c.Storage.Region == "" {
		c.Storage.Region = c.Storage.DefaultRegion
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.PresignTTL <= 0 {
		return errors.New("KYC_PRESIGN_TTL must be positive")
	}

	c.Ledger.PrivateKey = strings.TrimPrefix(strings.TrimSpace(c.Ledger.PrivateKey), "0x")
	if len(c.Ledger.PrivateKey) != 64 {
		return errors.New("PRIVATE_KEY must be 32 bytes of hex")
	}
	if !common.IsHexAddress(c.Ledger.ContractAddress) {
		return fmt.Errorf("CONTRACT_ADDRESS %q is not a valid address", c.Ledger.ContractAddress)
	}
	if _, err := c.Ledger.Fee(); err != nil {
		return err
	}
	if c.Ledger.ConfirmTimeout <= 0 {
		return errors.New("KYC_CONFIRM_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout <= c.Ledger.ConfirmTimeout {
		return fmt.Errorf("DKYC_REQUEST_TIMEOUT (%s) must exceed KYC_CONFIRM_TIMEOUT (%s)",
			c.Server.RequestTimeout, c.Ledger.ConfirmTimeout)
	}
	if c.Ledger.BreakerThreshold < 1 {
		c.Ledger.BreakerThreshold = 1
	}

	if _, err := c.Server.Proxies(); err != nil {
		return err
	}
	return nil
}

// Fee returns the configured fixed fee in wei.
func (l Ledger) Fee() (*big.Int, error) {
	fee, ok := new(big.Int).SetString(strings.TrimSpace(l.FeeWei), 10)
	if !ok || fee.Sign() < 0 {
		return nil, fmt.Errorf("KYC_FEE_WEI %q is not a non-negative integer", l.FeeWei)
	}
	return fee, nil
}

// Proxies parses TrustedProxies as CIDR prefixes.
func (s Server) Proxies() ([]netip.Prefix, error) {
	out, err := metadata.ParseTrustedProxies(s.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("DKYC_TRUSTED_PROXIES: %w", err)
	}
	return out, nil
}
