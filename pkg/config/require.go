package config

import "log"

// MustValid stops the process when the configuration cannot start a server.
func MustValid(cfg Config) {
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
}
