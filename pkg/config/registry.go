package config

import "time"

// Persistence backends understood by delegation.NewDelegationRepository
const (
	PersistenceMemory   = "memory"
	PersistenceFile     = "file"
	PersistencePostgres = "postgres"
)

// Oracle backends
const (
	OracleMemory = "memory"
	OracleEth    = "eth"
)

// RegistryConfig holds delegation registry settings
type RegistryConfig struct {
	Persistence         string `env:"DELEGATION_PERSISTENCE" env-default:"memory"`
	DataDir             string `env:"DELEGATION_DATA_DIR" env-default:"./data"`
	AllowSelfDelegation bool   `env:"DELEGATION_ALLOW_SELF" env-default:"false"`
	EventCapacity       int    `env:"DELEGATION_EVENT_CAPACITY" env-default:"10000"`
}

func (c RegistryConfig) Validator() Validator {
	return func() ValidationErrors {
		errs := CollectErrors(
			RequireOneOf("DELEGATION_PERSISTENCE", c.Persistence,
				[]string{PersistenceMemory, PersistenceFile, PersistencePostgres}),
			RequireNonNegative("DELEGATION_EVENT_CAPACITY", c.EventCapacity),
		)
		if c.Persistence == PersistenceFile {
			errs = append(errs, CollectErrors(RequireNonEmpty("DELEGATION_DATA_DIR", c.DataDir))...)
		}
		return errs
	}
}

// OracleConfig selects where asset ownership is read from
type OracleConfig struct {
	Backend string        `env:"ORACLE_BACKEND" env-default:"memory"`
	RPCURL  string        `env:"ORACLE_RPC_URL"`
	Timeout time.Duration `env:"ORACLE_TIMEOUT" env-default:"5s"`
}

func (c OracleConfig) Validator() Validator {
	return func() ValidationErrors {
		errs := CollectErrors(
			RequireOneOf("ORACLE_BACKEND", c.Backend, []string{OracleMemory, OracleEth}),
			RequirePositiveDuration("ORACLE_TIMEOUT", c.Timeout),
		)
		if c.Backend == OracleEth {
			errs = append(errs, CollectErrors(RequireValidURL("ORACLE_RPC_URL", c.RPCURL))...)
		}
		return errs
	}
}

// JWTConfig holds the HS256 secret bearer tokens are verified with
type JWTConfig struct {
	Secret string `env:"JWT_SECRET" env-default:"very-secure-jwt-secret"`
}

func (c JWTConfig) Validator() Validator {
	return func() ValidationErrors {
		errs := CollectErrors(RequireNonEmpty("JWT_SECRET", c.Secret))
		if IsProduction() {
			errs = append(errs, CollectErrors(RequireMinLength("JWT_SECRET", c.Secret, 32))...)
		}
		return errs
	}
}

// RateLimitConfig bounds requests per client IP and per caller account.
// A zero budget disables that limit. An unset BucketTTL keeps the limiter default.
type RateLimitConfig struct {
	PerIPPerMinute     int           `env:"RATE_LIMIT_IP_PER_MINUTE" env-default:"300"`
	PerCallerPerMinute int           `env:"RATE_LIMIT_CALLER_PER_MINUTE" env-default:"60"`
	BucketTTL          time.Duration `env:"RATE_LIMIT_BUCKET_TTL"`
}

func (c RateLimitConfig) Validator() Validator {
	return func() ValidationErrors {
		return CollectErrors(
			RequireNonNegative("RATE_LIMIT_IP_PER_MINUTE", c.PerIPPerMinute),
			RequireNonNegative("RATE_LIMIT_CALLER_PER_MINUTE", c.PerCallerPerMinute),
		)
	}
}
