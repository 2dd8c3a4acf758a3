package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/malbeclabs/warehouse-gateway/internal/config"
	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
	"github.com/malbeclabs/warehouse-gateway/pkg/logger"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

// errFailed is returned when an operation reports a failed envelope. The failure has already
// been written to the output.
var errFailed = errors.New("operation failed")

// Gateway is the set of warehouse operations the CLI drives.
type Gateway interface {
	ExecuteQuery(ctx context.Context, query string, fetchResults bool) warehouse.Response[warehouse.QueryResult]
	ListDatabases(ctx context.Context) warehouse.Response[warehouse.DatabasesResult]
	ListSchemas(ctx context.Context, database string) warehouse.Response[warehouse.SchemasResult]
	ListTables(ctx context.Context, database, schema string) warehouse.Response[warehouse.TablesResult]
	DescribeTable(ctx context.Context, table, database, schema string) warehouse.Response[warehouse.TableDescription]
	Health(ctx context.Context) warehouse.HealthResult
}

// GatewayFactory builds a Gateway for one command invocation. The returned func releases it.
type GatewayFactory func(log *slog.Logger, role string) (Gateway, func(), error)

func Run() ExitCode {
	rootCmd := NewRootCmd(NewSnowflakeGateway)
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return exitCodeError
	}
	return exitCodeSuccess
}

func NewRootCmd(newGateway GatewayFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "warehouse-cli",
		Short:         "Run warehouse gateway operations against Snowflake from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := cmd.Help()
			if err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")
	rootCmd.PersistentFlags().Bool("json", false, "print the raw response envelope as JSON")
	rootCmd.PersistentFlags().String("role", config.DefaultRole, "Snowflake role assumed by the session")

	c := &commands{newGateway: newGateway}
	rootCmd.AddCommand(
		c.queryCmd(),
		c.databasesCmd(),
		c.schemasCmd(),
		c.tablesCmd(),
		c.describeCmd(),
		c.healthCmd(),
	)
	return rootCmd
}

// NewSnowflakeGateway builds a gateway over the environment-configured Snowflake account.
func NewSnowflakeGateway(log *slog.Logger, role string) (Gateway, func(), error) {
	manager, err := warehouse.NewManager(warehouse.ManagerConfig{
		Logger: log,
		Config: config.Provider(role),
		Opener: warehouse.SnowflakeOpener,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create warehouse manager: %w", err)
	}
	gateway, err := warehouse.NewGateway(warehouse.GatewayConfig{
		Logger:  log,
		Manager: manager,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create warehouse gateway: %w", err)
	}
	return gateway, func() {
		if err := manager.Close(); err != nil {
			log.Debug("failed to close warehouse connection", "error", err)
		}
	}, nil
}

type commands struct {
	newGateway GatewayFactory
}

// withGateway builds a gateway from the root flags and passes it to fn with a context that is
// cancelled on SIGINT or SIGTERM.
func (c *commands) withGateway(cmd *cobra.Command, fn func(ctx context.Context, gw Gateway) error) error {
	verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	role, err := cmd.Root().PersistentFlags().GetString("role")
	if err != nil {
		return fmt.Errorf("failed to get role flag: %w", err)
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), verbose)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	gw, release, err := c.newGateway(log, role)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx, gw)
}
