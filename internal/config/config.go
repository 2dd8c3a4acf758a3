package config

import (
	"errors"
	"os"
)

const (
	EnvAccount   = "SNOWFLAKE_ACCOUNT"
	EnvUser      = "SNOWFLAKE_USER"
	EnvPassword  = "SNOWFLAKE_PASSWORD"
	EnvWarehouse = "SNOWFLAKE_WAREHOUSE"
	EnvDatabase  = "SNOWFLAKE_DATABASE"
	EnvSchema    = "SNOWFLAKE_SCHEMA"

	// DefaultRole is the role every session assumes. It is not read from the environment.
	DefaultRole = "ATTENDEE_ROLE"
)

var ErrMissingCredentials = errors.New("missing required Snowflake connection parameters")

// Snowflake holds the parameters used to open a warehouse session.
type Snowflake struct {
	Account  string
	User     string
	Password string

	Warehouse string
	Database  string
	Schema    string
	Role      string
}

// LoadFromEnv reads the connection parameters from SNOWFLAKE_* environment variables. The role
// is always role; pass DefaultRole unless overridden on the command line.
func LoadFromEnv(role string) Snowflake {
	return Snowflake{
		Account:   os.Getenv(EnvAccount),
		User:      os.Getenv(EnvUser),
		Password:  os.Getenv(EnvPassword),
		Warehouse: os.Getenv(EnvWarehouse),
		Database:  os.Getenv(EnvDatabase),
		Schema:    os.Getenv(EnvSchema),
		Role:      role,
	}
}

// Provider returns a func that re-reads the environment on every call.
func Provider(role string) func() Snowflake {
	return func() Snowflake {
		return LoadFromEnv(role)
	}
}

func (c Snowflake) Validate() error {
	if c.Account == "" || c.User == "" || c.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// ConnectionParams returns the flat parameter mapping passed to the driver. Optional keys are
// omitted when empty.
func (c Snowflake) ConnectionParams() map[string]string {
	params := map[string]string{
		"account":  c.Account,
		"user":     c.User,
		"password": c.Password,
	}
	optional := map[string]string{
		"warehouse": c.Warehouse,
		"database":  c.Database,
		"schema":    c.Schema,
		"role":      c.Role,
	}
	for k, v := range optional {
		if v != "" {
			params[k] = v
		}
	}
	return params
}

// Redacted returns ConnectionParams with the password masked, for logging.
func (c Snowflake) Redacted() map[string]string {
	params := c.ConnectionParams()
	if _, ok := params["password"]; ok {
		params["password"] = "REDACTED"
	}
	return params
}
