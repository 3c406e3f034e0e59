package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/utils"
)

type Config struct {
	Port           string        `yaml:"port"`
	JWTSecretKey   string        `yaml:"jwt_secret_key"`
	AccessTokenTTL time.Duration `yaml:"-"`

	AnchoringEnabled bool `yaml:"anchoring_enabled"`

	Ledger Ledger `yaml:"ledger"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	fileOverlay fileConfig
}

type Ledger struct {
	AlgodAddress    string        `yaml:"algod_address"`
	IndexerAddress  string        `yaml:"indexer_address"`
	APIToken        string        `yaml:"api_token"`
	AdminPrivateKey string        `yaml:"admin_private_key"`
	Timeout         time.Duration `yaml:"-"`
	WaitRounds      uint64        `yaml:"wait_rounds"`
}

type fileConfig struct {
	Port             string `yaml:"port"`
	JWTSecretKey     string `yaml:"jwt_secret_key"`
	AccessTokenTTLs  int    `yaml:"access_token_ttl_seconds"`
	AnchoringEnabled *bool  `yaml:"anchoring_enabled"`
	Ledger           struct {
		AlgodAddress   string `yaml:"algod_address"`
		IndexerAddress string `yaml:"indexer_address"`
		APIToken       string `yaml:"api_token"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		WaitRounds     uint64 `yaml:"wait_rounds"`
	} `yaml:"ledger"`
	RedisAddr string `yaml:"redis_addr"`
}

// Load reads configuration from the environment, with an optional YAML file
// (CONFIG_FILE) overlaying the defaults. Secrets stay env-only.
func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:             utils.GetEnv("PORT", "8080", log),
		JWTSecretKey:     utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log),
		AccessTokenTTL:   time.Duration(utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 86400, log)) * time.Second,
		AnchoringEnabled: utils.GetEnvAsBool("LEDGER_ANCHORING_ENABLED", true, log),
		Ledger: Ledger{
			AlgodAddress:    utils.GetEnv("ALGORAND_ALGOD_ADDRESS", "https://testnet-api.algonode.cloud", log),
			IndexerAddress:  utils.GetEnv("ALGORAND_INDEXER_ADDRESS", "https://testnet-idx.algonode.cloud", log),
			APIToken:        utils.GetEnv("ALGORAND_API_KEY", "", log),
			AdminPrivateKey: utils.GetEnv("ALGORAND_ADMIN_PRIVATE_KEY", "", log),
			Timeout:         time.Duration(utils.GetEnvAsInt("LEDGER_TIMEOUT_SECONDS", 30, log)) * time.Second,
			WaitRounds:      uint64(utils.GetEnvAsInt("LEDGER_WAIT_ROUNDS", 4, log)),
		},
		RedisAddr:     utils.GetEnv("REDIS_ADDR", "", log),
		RedisPassword: utils.GetEnv("REDIS_PASSWORD", "", log),
	}

	path := utils.GetEnv("CONFIG_FILE", "", log)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	cfg.applyFile(fc)
	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) {
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.JWTSecretKey != "" {
		c.JWTSecretKey = fc.JWTSecretKey
	}
	if fc.AccessTokenTTLs > 0 {
		c.AccessTokenTTL = time.Duration(fc.AccessTokenTTLs) * time.Second
	}
	if fc.AnchoringEnabled != nil {
		c.AnchoringEnabled = *fc.AnchoringEnabled
	}
	if fc.Ledger.AlgodAddress != "" {
		c.Ledger.AlgodAddress = fc.Ledger.AlgodAddress
	}
	if fc.Ledger.IndexerAddress != "" {
		c.Ledger.IndexerAddress = fc.Ledger.IndexerAddress
	}
	if fc.Ledger.APIToken != "" {
		c.Ledger.APIToken = fc.Ledger.APIToken
	}
	if fc.Ledger.TimeoutSeconds > 0 {
		c.Ledger.Timeout = time.Duration(fc.Ledger.TimeoutSeconds) * time.Second
	}
	if fc.Ledger.WaitRounds > 0 {
		c.Ledger.WaitRounds = fc.Ledger.WaitRounds
	}
	if fc.RedisAddr != "" {
		c.RedisAddr = fc.RedisAddr
	}
}
