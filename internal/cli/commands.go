package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
)

func (c *commands) queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Execute a SQL statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noFetch, err := cmd.Flags().GetBool("no-fetch")
			if err != nil {
				return err
			}
			return c.withGateway(cmd, func(ctx context.Context, gw Gateway) error {
				return output(cmd, gw.ExecuteQuery(ctx, args[0], !noFetch), renderQueryResult)
			})
		},
	}
	cmd.Flags().Bool("no-fetch", false, "do not fetch rows; report the affected row count")
	return cmd
}

func (c *commands) databasesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "databases",
		Short: "List databases accessible to the current role",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGateway(cmd, func(ctx context.Context, gw Gateway) error {
				return output(cmd, gw.ListDatabases(ctx), renderDatabases)
			})
		},
	}
}

func (c *commands) schemasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List schemas, optionally in one database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := cmd.Flags().GetString("database")
			if err != nil {
				return err
			}
			return c.withGateway(cmd, func(ctx context.Context, gw Gateway) error {
				return output(cmd, gw.ListSchemas(ctx, database), renderSchemas)
			})
		},
	}
	cmd.Flags().String("database", "", "database to list schemas in")
	return cmd
}

func (c *commands) tablesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables, optionally in one schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := cmd.Flags().GetString("database")
			if err != nil {
				return err
			}
			schema, err := cmd.Flags().GetString("schema")
			if err != nil {
				return err
			}
			return c.withGateway(cmd, func(ctx context.Context, gw Gateway) error {
				return output(cmd, gw.ListTables(ctx, database, schema), renderTables)
			})
		},
	}
	cmd.Flags().String("database", "", "database qualifier, used together with --schema")
	cmd.Flags().String("schema", "", "schema to list tables in")
	return cmd
}

func (c *commands) describeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <table>",
		Short: "Describe the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := cmd.Flags().GetString("database")
			if err != nil {
				return err
			}
			schema, err := cmd.Flags().GetString("schema")
			if err != nil {
				return err
			}
			return c.withGateway(cmd, func(ctx context.Context, gw Gateway) error {
				return output(cmd, gw.DescribeTable(ctx, args[0], database, schema), renderTableDescription)
			})
		},
	}
	cmd.Flags().String("database", "", "database qualifier, used together with --schema")
	cmd.Flags().String("schema", "", "schema qualifier")
	return cmd
}

func (c *commands) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to Snowflake",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withGateway(cmd, func(ctx context.Context, gw Gateway) error {
				res := gw.Health(ctx)
				if err := outputHealth(cmd, res); err != nil {
					return err
				}
				if res.Status != warehouse.HealthStatusHealthy {
					return errFailed
				}
				return nil
			})
		},
	}
}
