package server

import (
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
)

func testSession(t *testing.T, gw Gateway) *mcp.ClientSession {
	server := mcp.NewServer(&mcp.Implementation{Name: "Test Server", Version: "1.0.0"}, nil)
	require.NoError(t, RegisterTools(testLogger(t), server, gw))

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(t.Context(), serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(t.Context(), clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) map[string]any {
	res, err := cs.CallTool(t.Context(), &mcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)

	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestServer_Tools_Register(t *testing.T) {
	t.Parallel()

	cs := testSession(t, &fakeGateway{})
	res, err := cs.ListTools(t.Context(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(res.Tools))
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)
	require.Equal(t, []string{
		"describe_table",
		"execute_query",
		"health_check",
		"list_databases",
		"list_schemas",
		"list_tables",
		"root",
		"status",
	}, names)
}

func TestServer_Tools_Call(t *testing.T) {
	t.Parallel()

	t.Run("execute_query defaults to fetching results", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{}
		out := callTool(t, testSession(t, gw), "execute_query", map[string]any{"query": "SELECT ID FROM T"})
		require.Equal(t, true, out["success"])
		require.Equal(t, float64(1), out["row_count"])
		require.Equal(t, call{op: "execute_query", args: []any{"SELECT ID FROM T", true}}, gw.lastCall())
	})

	t.Run("execute_query without fetch", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{}
		out := callTool(t, testSession(t, gw), "execute_query", map[string]any{"query": "DELETE FROM T", "fetch_results": false})
		require.Equal(t, "Query executed successfully. Rows affected: 1", out["message"])
		require.Equal(t, call{op: "execute_query", args: []any{"DELETE FROM T", false}}, gw.lastCall())
	})

	t.Run("list_tables passes inputs", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{}
		out := callTool(t, testSession(t, gw), "list_tables", map[string]any{"database": "ANALYTIC_DATASET_DEMOSAMPLE", "schema": "PUBLIC"})
		require.Equal(t, true, out["success"])
		require.Equal(t, call{op: "list_tables", args: []any{"ANALYTIC_DATASET_DEMOSAMPLE", "PUBLIC"}}, gw.lastCall())
	})

	t.Run("describe_table qualifies the name", func(t *testing.T) {
		t.Parallel()

		out := callTool(t, testSession(t, &fakeGateway{}), "describe_table", map[string]any{
			"table_name": "ORDERS",
			"database":   "SALES",
			"schema":     "PUBLIC",
		})
		require.Equal(t, "SALES.PUBLIC.ORDERS", out["table_name"])
	})

	t.Run("failure envelope is returned as content", func(t *testing.T) {
		t.Parallel()

		gw := &fakeGateway{err: warehouse.NewError(warehouse.ErrorKindConnectivity, "connect", errors.New("dial tcp: connection refused"))}
		out := callTool(t, testSession(t, gw), "list_databases", map[string]any{})
		require.Equal(t, map[string]any{
			"success":    false,
			"error":      "dial tcp: connection refused",
			"error_kind": "connectivity",
		}, out)
	})

	t.Run("health_check and root", func(t *testing.T) {
		t.Parallel()

		cs := testSession(t, &fakeGateway{})
		require.Equal(t, map[string]any{"status": "healthy", "snowflake": "connected"}, callTool(t, cs, "health_check", map[string]any{}))
		require.Equal(t, map[string]any{"message": "Welcome to Snowflake MCP Server"}, callTool(t, cs, "root", map[string]any{}))
		require.Equal(t, "operational", callTool(t, cs, "status", map[string]any{})["status"])
	})
}
