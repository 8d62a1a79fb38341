// Package config handles loading and validating sinric-link configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Loading secrets from a .env file
//   - Overriding with environment variables
//   - Validation of required fields and declared devices
//
// Security Considerations:
//   - The app key and secret should be set via SINRICLINK_APP_KEY and
//     SINRICLINK_APP_SECRET, or a .env file with restricted permissions
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    log.Fatal(err)
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Cloud.Host)
package config
