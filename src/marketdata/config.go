package marketdata

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BISTBaseURL     string        `envconfig:"BIST_BASE_URL" default:"https://api.bistcharts.com"`
	BISTTimeout     time.Duration `envconfig:"BIST_TIMEOUT" default:"15s"`
	RetryAttempts   int           `envconfig:"MARKETDATA_RETRY_ATTEMPTS" default:"5"`
	RetryBaseDelay  time.Duration `envconfig:"MARKETDATA_RETRY_BASE_DELAY" default:"500ms"`
	RetryMaxBackoff time.Duration `envconfig:"MARKETDATA_RETRY_MAX_BACKOFF" default:"8s"`

	BinanceEndpoint string `envconfig:"BINANCE_ENDPOINT" default:""`
	BinanceQuote    string `envconfig:"BINANCE_QUOTE" default:"USDT"`
	CandleLimit     int    `envconfig:"CANDLE_LIMIT" default:"1000"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
