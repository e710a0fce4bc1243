package engine

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	TrailStops    bool `envconfig:"TRAIL_STOPS" default:"false"`
	TrailLookback int  `envconfig:"TRAIL_LOOKBACK" default:"20"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
