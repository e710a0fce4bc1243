package controller

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// DefaultLots is used when a manual entry or exit omits the lot count.
	DefaultLots float64 `envconfig:"MANUAL_DEFAULT_LOTS" default:"1"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
