package config

import (
	"time"
)

type DB struct {
	Url             string        `envconfig:"URL"`
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS" default:"25"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" default:"change-me"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

type Redis struct {
	URL          string        `envconfig:"URL" default:"redis://localhost:6379/0"`
	KeyPrefix    string        `envconfig:"KEY_PREFIX" default:"valutatrade:"`
	PoolSize     int           `envconfig:"POOL_SIZE" default:"10"`
	HistoryLimit int           `envconfig:"HISTORY_LIMIT" default:"10000"`
	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Rates holds the freshness and refresh policy of the rate cache.
type Rates struct {
	TTL                  time.Duration `envconfig:"TTL" default:"300s"`
	RefreshInterval      time.Duration `envconfig:"REFRESH_INTERVAL" default:"1h"`
	BaseCurrency         string        `envconfig:"BASE_CURRENCY" default:"USD"`
	Providers            []string      `envconfig:"PROVIDERS" default:"coingecko,exchangerate"`
	SchedulerStopTimeout time.Duration `envconfig:"SCHEDULER_STOP_TIMEOUT" default:"2s"`
	AutostartScheduler   bool          `envconfig:"AUTOSTART_SCHEDULER" default:"true"`
	// StaticRates feeds the static provider, e.g. "BTC_USD:59337.21,EUR_USD:1.0786".
	StaticRates string `envconfig:"STATIC" default:""`
}

//revive:disable
type CoinGecko struct {
	ApiKey            string        `envconfig:"API_KEY"`
	ApiUrl            string        `envconfig:"API_URL" default:"https://api.coingecko.com/api/v3"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	MaxRetries        int           `envconfig:"MAX_RETRIES" default:"3"`
	RequestsPerMinute int           `envconfig:"REQUESTS_PER_MINUTE" default:"30"`
	BurstSize         int           `envconfig:"BURST_SIZE" default:"1"`
	Coins             string        `envconfig:"COINS" default:"BTC:bitcoin,ETH:ethereum,SOL:solana"`
}

type ExchangeRateApi struct {
	ApiKey            string        `envconfig:"API_KEY"`
	ApiUrl            string        `envconfig:"API_URL" default:"https://v6.exchangerate-api.com/v6"`
	HTTPTimeout       time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	MaxRetries        int           `envconfig:"MAX_RETRIES" default:"3"`
	RequestsPerMinute int           `envconfig:"REQUESTS_PER_MINUTE" default:"60"`
	BurstSize         int           `envconfig:"BURST_SIZE" default:"1"`
	Currencies        []string      `envconfig:"CURRENCIES" default:"EUR,GBP,RUB"`
}

//revive:enable
type ExchangeRateProviders struct {
	CoinGecko       *CoinGecko       `envconfig:"COINGECKO"`
	ExchangeRateApi *ExchangeRateApi `envconfig:"EXCHANGERATE"`
}

type Storage struct {
	Driver    string `envconfig:"DRIVER" default:"file"`
	DataDir   string `envconfig:"DATA_DIR" default:"data"`
	RateStore string `envconfig:"RATE_STORE" default:""`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[valutatrade]"`
	File       string `envconfig:"FILE" default:"logs/actions.log"`
	MaxSizeMB  int    `envconfig:"MAX_SIZE_MB" default:"1"`
	MaxBackups int    `envconfig:"MAX_BACKUPS" default:"3"`
	Verbose    bool   `envconfig:"VERBOSE" default:"false"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string                 `envconfig:"APP_ENV" default:"development"`
	Server    *Server                `envconfig:"SERVER"`
	Log       *Log                   `envconfig:"LOG"`
	DB        *DB                    `envconfig:"DATABASE"`
	Jwt       *Jwt                   `envconfig:"JWT"`
	Redis     *Redis                 `envconfig:"REDIS"`
	RateLimit *RateLimit             `envconfig:"RATE_LIMIT"`
	Rates     *Rates                 `envconfig:"RATES"`
	Providers *ExchangeRateProviders `envconfig:"RATE_PROVIDER"`
	Storage   *Storage               `envconfig:"STORAGE"`
}
