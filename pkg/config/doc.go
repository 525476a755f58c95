// Package config loads typed configuration from environment variables.
//
// It wraps `github.com/joho/godotenv` and `github.com/caarlos0/env/v11`:
//
//   - The default `.env` in the working directory is read once, if present.
//     LoadEnv reads additional files explicitly.
//   - Load parses the environment into any struct annotated with `env` tags and
//     caches the result per type and prefix.
//   - MustLoad panics on failure for configuration the process cannot run without.
//
// # Usage
//
//	var mongoCfg mongo.Config
//	var billingCfg billing.Config
//	config.MustLoad(&mongoCfg)
//	config.MustLoad(&billingCfg)
//
// WithPrefix loads the same struct type under a different variable namespace:
//
//	var replica mongo.Config
//	err := config.Load(&replica, config.WithPrefix("REPORTS_"))
//
// # Error Handling
//
//   - ErrParsingConfig: the environment could not be parsed into the struct,
//     for example a required variable is missing.
//   - ErrLoadingEnvFile: LoadEnv could not read a file.
//   - ErrNilPointer: nil pointer passed to Load or MustLoad.
//
// Use ResetCache in tests that change the environment between loads.
package config
