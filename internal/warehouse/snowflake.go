package warehouse

import (
	"context"
	"database/sql"

	"github.com/snowflakedb/gosnowflake"
)

// SnowflakeOpener opens a Snowflake handle from connection params. Opening is lazy; the Manager
// pings the handle before storing it.
func SnowflakeOpener(_ context.Context, params map[string]string) (DB, error) {
	cfg := gosnowflake.Config{
		Account:     params["account"],
		User:        params["user"],
		Password:    params["password"],
		Warehouse:   params["warehouse"],
		Database:    params["database"],
		Schema:      params["schema"],
		Role:        params["role"],
		Application: "warehouse-gateway",
	}
	return NewSQLDB(sql.OpenDB(gosnowflake.NewConnector(gosnowflake.SnowflakeDriver{}, cfg))), nil
}
