package simulation

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StartDate      time.Time     `envconfig:"SIM_START_DATE" default:"2024-01-02T00:00:00Z"`
	EndDate        time.Time     `envconfig:"SIM_END_DATE" default:"2024-03-29T00:00:00Z"`
	InitialBalance float64       `envconfig:"SIM_INITIAL_BALANCE" default:"100000"`
	FixedLots      float64       `envconfig:"SIM_FIXED_LOTS" default:"10"`
	StepDelay      time.Duration `envconfig:"SIM_STEP_DELAY" default:"0s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
