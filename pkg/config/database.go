package config

import (
	"fmt"

	dbutils "github.com/tendant/db-utils/db"
)

// DatabaseConfig holds PostgreSQL configuration for the postgres persistence backend
type DatabaseConfig struct {
	Host     string `env:"DELEGATION_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"DELEGATION_PG_PORT" env-default:"5432"`
	Database string `env:"DELEGATION_PG_DATABASE" env-default:"delegation_db"`
	User     string `env:"DELEGATION_PG_USER" env-default:"delegation"`
	Password string `env:"DELEGATION_PG_PASSWORD" env-default:"pwd"`
	Schema   string `env:"DELEGATION_PG_SCHEMA" env-default:"public"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s,public",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

// ToDbConfig converts the config to a db-utils DbConfig
func (d DatabaseConfig) ToDbConfig() dbutils.DbConfig {
	return dbutils.DbConfig{
		Host:     d.Host,
		Port:     d.Port,
		Database: d.Database,
		User:     d.User,
		Password: d.Password,
	}
}

// Validator checks the fields needed to open a pool
func (d DatabaseConfig) Validator() Validator {
	return func() ValidationErrors {
		return CollectErrors(
			RequireNonEmpty("DELEGATION_PG_HOST", d.Host),
			RequireValidPort("DELEGATION_PG_PORT", d.Port),
			RequireNonEmpty("DELEGATION_PG_DATABASE", d.Database),
			RequireNonEmpty("DELEGATION_PG_USER", d.User),
		)
	}
}
