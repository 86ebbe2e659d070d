package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv loads configuration from environment variables. Service configs
// declare their variables with `env` struct tags under the MEDIADECK_ prefix;
// flags parsed afterwards take precedence over whatever is loaded here.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
