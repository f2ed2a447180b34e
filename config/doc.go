// Package config provides configuration loading and validation for runstore.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (RUNSTORE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"runstore.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//	reg := pool.NewRegistry(cfg.Backend())
//
// # Environment Variables
//
// All config keys map to environment variables with RUNSTORE_ prefix:
//   - server.port → RUNSTORE_SERVER_PORT
//   - database.type → RUNSTORE_DATABASE_TYPE
//   - database.postgres.password → RUNSTORE_DATABASE_POSTGRES_PASSWORD
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: host, port, read_only and shutdown_timeout for the API server
//   - Database: backend type, default location and per-backend connection settings
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level and format
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Database type must be sqlite or postgres
//   - Log level must be debug, info, warn, or error
//
// The postgres backend additionally requires host, user and a database name;
// Load reports missing ones as runstore.ErrConfiguration.
package config
