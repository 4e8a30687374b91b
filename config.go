package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/eurotz/tzgate/pkg/log"
	"github.com/eurotz/tzgate/pkg/tzrpc"
)

const (
	configDirPathEnv     = "TZGATE_CONFIG_DIR_PATH"
	defaultConfigDirPath = "."
)

// LedgerConfig locates the token ledger: a big map of the token contract.
type LedgerConfig struct {
	BigMapID int64  `env:"TZGATE_LEDGER_BIG_MAP_ID" env-default:"0" env-description:"big map id of the token ledger" validate:"gte=0"`
	Contract string `env:"TZGATE_LEDGER_CONTRACT" env-default:"" env-description:"token contract address signed into transfers"`
	// Decimals converts between base units stored in the ledger and token amounts.
	Decimals int32 `env:"TZGATE_TOKEN_DECIMALS" env-default:"0" env-description:"token decimals" validate:"gte=0,lte=36"`
}

// AuthConfig protects the signing endpoints. An empty secret disables auth.
type AuthConfig struct {
	Secret   string        `env:"TZGATE_AUTH_SECRET" env-default:"" env-description:"HS256 secret for API tokens, empty disables auth"`
	TokenTTL time.Duration `env:"TZGATE_AUTH_TOKEN_TTL" env-default:"24h"`
}

// Config represents the overall application configuration
type Config struct {
	ListenAddr        string `env:"TZGATE_LISTEN_ADDR" env-default:":8000" validate:"required"`
	MetricsListenAddr string `env:"TZGATE_METRICS_LISTEN_ADDR" env-default:":4242" validate:"required"`
	// SecretKey is the edsk/spsk key used by the signing endpoints. Without it
	// the service only serves read endpoints.
	SecretKey string `env:"TZGATE_SECRET_KEY" env-default:"" env-description:"edsk or spsk signing key"`

	Ledger LedgerConfig
	Auth   AuthConfig
	Node   tzrpc.Config
	Log    log.Config
	DB     DatabaseConfig
}

// LoadConfig builds configuration from the .env file in TZGATE_CONFIG_DIR_PATH
// and the environment. Variables already set in the environment win.
func LoadConfig(logger log.Logger) (*Config, error) {
	logger = logger.WithName("config")

	configDirPath := os.Getenv(configDirPathEnv)
	if configDirPath == "" {
		configDirPath = defaultConfigDirPath
	}

	configDotEnvPath := filepath.Join(configDirPath, ".env")
	logger.Info("loading .env file", "path", configDotEnvPath)
	if err := godotenv.Load(configDotEnvPath); err != nil {
		logger.Warn(".env file not found", "path", configDotEnvPath)
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}

	if config.DB.URL != "" {
		dbConf, err := ParseConnectionString(config.DB.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connection string: %w", err)
		}
		dbConf.URL = config.DB.URL
		config.DB = dbConf
	}

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Info("configuration loaded",
		"node", config.Node.URL,
		"bigMapID", config.Ledger.BigMapID,
		"contract", config.Ledger.Contract,
		"db", config.DB.Driver,
		"signingEnabled", config.SecretKey != "",
		"authEnabled", config.Auth.Secret != "",
	)
	return &config, nil
}

// ConfigDescription renders the environment variables the service reads.
func ConfigDescription() (string, error) {
	var config Config
	desc, err := cleanenv.GetDescription(&config, nil)
	if err != nil {
		return "", err
	}
	return desc, nil
}
