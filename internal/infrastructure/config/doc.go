// Package config handles loading and validating Inventory Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading a local .env file (development convenience)
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (the JWT signing secret) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - The JWT secret must be at least 32 characters and is refused otherwise
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Port)
package config
