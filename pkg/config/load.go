package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalidConfig is returned when loaded values fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	if len(envFilePath) == 0 {
		logger.Debug("No environment file specified, trying default .env")
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := FindEnvFile(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		return loadFromEnv()
	}

	logger.Info("No valid environment files found, using default .env")
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Default().Info("App config loaded",
		"env", cfg.Env,
		"storage_driver", cfg.Storage.Driver,
		"rate_store", cfg.Storage.RateStore,
		"db", maskValue(cfg.DB.Url),
		"rates_ttl", cfg.Rates.TTL,
		"rates_refresh_interval", cfg.Rates.RefreshInterval,
		"rates_base_currency", cfg.Rates.BaseCurrency,
		"rates_providers", cfg.Rates.Providers,
		"coingecko_api_url", cfg.Providers.CoinGecko.ApiUrl,
		"coingecko_api_key", maskValue(cfg.Providers.CoinGecko.ApiKey),
		"exchange_api_url", cfg.Providers.ExchangeRateApi.ApiUrl,
		"exchange_api_key", maskValue(cfg.Providers.ExchangeRateApi.ApiKey),
		"jwt_expiry", cfg.Jwt.Expiry,
	)
	return &cfg, nil
}

// Validate checks the values envconfig cannot express as tags.
func (a *App) Validate() error {
	if a.Rates.TTL <= 0 {
		return fmt.Errorf("%w: RATES_TTL must be positive", ErrInvalidConfig)
	}
	if a.Rates.RefreshInterval <= 0 {
		return fmt.Errorf("%w: RATES_REFRESH_INTERVAL must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(a.Rates.BaseCurrency) == "" {
		return fmt.Errorf("%w: RATES_BASE_CURRENCY is empty", ErrInvalidConfig)
	}
	a.Rates.BaseCurrency = strings.ToUpper(strings.TrimSpace(a.Rates.BaseCurrency))
	switch a.Storage.Driver {
	case "file", "memory", "postgres":
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, a.Storage.Driver)
	}
	switch a.Storage.RateStore {
	case "", "redis":
	default:
		return fmt.Errorf("%w: unknown STORAGE_RATE_STORE %q", ErrInvalidConfig, a.Storage.RateStore)
	}
	return nil
}

// FindEnvFile walks up from the working directory looking for filename.
// If filename is empty, it searches for .env
func FindEnvFile(filename string) (string, error) {
	if filename == "" {
		filename = ".env"
	}
	curr, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(curr, filename)
		if _, err = os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(curr)
		if parent == curr {
			break
		}
		curr = parent
	}
	return "", os.ErrNotExist
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
