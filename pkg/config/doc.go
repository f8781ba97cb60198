// Package config holds the registry's environment-driven configuration.
//
// Each section is a plain struct with cleanenv tags so cmd/registry can embed
// it in its own Config and read everything with one cleanenv.ReadEnv call.
//
// GetEnvironment reads APP_ENV for checks that depend on the deployment, such
// as the minimum JWT secret length in production.
//
// # Configuration Validation
//
// Validators return every problem at once; Validate joins them:
//
//	if err := config.Validate(
//		cfg.Registry.Validator(),
//		cfg.Oracle.Validator(),
//		cfg.Email.Validator(),
//	); err != nil {
//		slog.Error("Invalid configuration", "err", err)
//		os.Exit(1)
//	}
package config
