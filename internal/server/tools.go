package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/malbeclabs/warehouse-gateway/internal/metrics"
	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
)

type ExecuteQueryInput struct {
	Query        string `json:"query" jsonschema:"SQL statement to execute verbatim"`
	FetchResults *bool  `json:"fetch_results,omitempty" jsonschema:"return rows when the statement produces a result set; defaults to true"`
}

type ListSchemasInput struct {
	Database string `json:"database,omitempty" jsonschema:"database to list schemas in; all databases when omitted"`
}

type ListTablesInput struct {
	Database string `json:"database,omitempty" jsonschema:"database qualifier; only used together with schema"`
	Schema   string `json:"schema,omitempty" jsonschema:"schema to list tables in; the session schema when omitted"`
}

type DescribeTableInput struct {
	TableName string `json:"table_name" jsonschema:"table to describe"`
	Database  string `json:"database,omitempty" jsonschema:"database qualifier; only used together with schema"`
	Schema    string `json:"schema,omitempty" jsonschema:"schema qualifier"`
}

type EmptyInput struct{}

// RegisterTools adds one MCP tool per gateway operation. Each tool returns the same JSON body as
// the matching HTTP route.
func RegisterTools(log *slog.Logger, server *mcp.Server, gw Gateway) error {
	err := addTool(log, server, "execute_query",
		"Execute a SQL query on Snowflake and optionally return results.",
		func(ctx context.Context, in ExecuteQueryInput) (any, bool) {
			resp := gw.ExecuteQuery(ctx, in.Query, ExecuteQueryRequest{FetchResults: in.FetchResults}.fetch())
			return resp, resp.Success
		})
	if err != nil {
		return err
	}

	err = addTool(log, server, "list_databases",
		"List all databases accessible to the current user.",
		func(ctx context.Context, _ EmptyInput) (any, bool) {
			resp := gw.ListDatabases(ctx)
			return resp, resp.Success
		})
	if err != nil {
		return err
	}

	err = addTool(log, server, "list_schemas",
		"List all schemas in a database.",
		func(ctx context.Context, in ListSchemasInput) (any, bool) {
			resp := gw.ListSchemas(ctx, in.Database)
			return resp, resp.Success
		})
	if err != nil {
		return err
	}

	err = addTool(log, server, "list_tables",
		"List all tables in a schema.",
		func(ctx context.Context, in ListTablesInput) (any, bool) {
			resp := gw.ListTables(ctx, in.Database, in.Schema)
			return resp, resp.Success
		})
	if err != nil {
		return err
	}

	err = addTool(log, server, "describe_table",
		"Get the structure of a table including column names, types, and constraints.",
		func(ctx context.Context, in DescribeTableInput) (any, bool) {
			resp := gw.DescribeTable(ctx, in.TableName, in.Database, in.Schema)
			return resp, resp.Success
		})
	if err != nil {
		return err
	}

	err = addTool(log, server, "health_check",
		"Check connectivity to Snowflake.",
		func(ctx context.Context, _ EmptyInput) (any, bool) {
			res := gw.Health(ctx)
			return res, res.Status == warehouse.HealthStatusHealthy
		})
	if err != nil {
		return err
	}

	err = addTool(log, server, "status",
		"Report server status.",
		func(ctx context.Context, _ EmptyInput) (any, bool) {
			return gw.Status(), true
		})
	if err != nil {
		return err
	}

	return addTool(log, server, "root",
		"Return the server welcome message.",
		func(ctx context.Context, _ EmptyInput) (any, bool) {
			return gw.Root(), true
		})
}

func addTool[In any](log *slog.Logger, server *mcp.Server, name, description string, call func(context.Context, In) (any, bool)) error {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return fmt.Errorf("failed to create %s input schema: %w", name, err)
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: schema,
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		startTime := time.Now()
		out, ok := call(ctx, in)
		duration := time.Since(startTime)

		status := "success"
		if !ok {
			status = "error"
		}
		log.Debug("mcp/tool: handled call", "tool", name, "status", status, "duration", duration)
		metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()
		metrics.ToolCallDuration.WithLabelValues(name).Observe(duration.Seconds())
		return nil, out, nil
	})
	return nil
}
