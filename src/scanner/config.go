package scanner

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ScanInterval     time.Duration `envconfig:"SCAN_INTERVAL" default:"5m"`
	OffHoursInterval time.Duration `envconfig:"SCAN_OFF_HOURS_INTERVAL" default:"30m"`
	TickerTimeout    time.Duration `envconfig:"SCAN_TICKER_TIMEOUT" default:"30s"`
	Workers          int           `envconfig:"SCAN_WORKERS" default:"4"`
	LookbackBars     int           `envconfig:"SCAN_LOOKBACK_BARS" default:"300"`
	SessionGating    bool          `envconfig:"SCAN_SESSION_GATING" default:"true"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
