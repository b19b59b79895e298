package cli

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the environment configuration of settingsctl.
type Env struct {
	// File is the settings file operated on when --file is not given.
	File string `env:"LIVESETTINGS_FILE" envDefault:"settings.json"`

	// Indent is the indentation used when writing the file.
	Indent string `env:"LIVESETTINGS_INDENT" envDefault:"  "`

	// Verbosity is the glog -v level.
	Verbosity int `env:"LIVESETTINGS_VERBOSITY" envDefault:"0"`

	// NoColor disables colored watch output.
	NoColor bool `env:"LIVESETTINGS_NO_COLOR"`
}

// ParseEnv reads the configuration from the process environment.
func ParseEnv() (Env, error) {
	var cfg Env
	if err := env.Parse(&cfg); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
