package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
)

// output writes resp as a table, or as the JSON envelope with --json, and returns errFailed when
// the envelope reports a failure.
func output[T any](cmd *cobra.Command, resp warehouse.Response[T], render func(io.Writer, T)) error {
	asJSON, err := cmd.Root().PersistentFlags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}

	if asJSON {
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else if resp.Success {
		render(cmd.OutOrStdout(), resp.Result)
	} else {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error (%s): %s\n", resp.Kind(), resp.ErrorMessage())
	}

	if !resp.Success {
		return errFailed
	}
	return nil
}

func outputHealth(cmd *cobra.Command, res warehouse.HealthResult) error {
	asJSON, err := cmd.Root().PersistentFlags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to get json flag: %w", err)
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	if res.Status == warehouse.HealthStatusHealthy {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (snowflake %s)\n", res.Status, res.Snowflake)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", res.Status, res.Error)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(header)
	return table
}

func renderQueryResult(w io.Writer, res warehouse.QueryResult) {
	if res.RowSet == nil {
		if res.Affected != nil {
			fmt.Fprintln(w, res.Affected.Message)
		}
		return
	}

	table := newTable(w, res.RowSet.Columns)
	for _, row := range res.RowSet.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		table.Append(cells)
	}
	table.Render()
	fmt.Fprintf(w, "%d row(s)\n", res.RowSet.RowCount)
}

func renderDatabases(w io.Writer, res warehouse.DatabasesResult) {
	table := newTable(w, []string{"Name", "Owner", "Created On"})
	for _, db := range res.Databases {
		table.Append([]string{db.Name, optional(db.Owner), db.CreatedOn})
	}
	table.Render()
}

func renderSchemas(w io.Writer, res warehouse.SchemasResult) {
	table := newTable(w, []string{"Name", "Database", "Created On"})
	for _, s := range res.Schemas {
		table.Append([]string{s.Name, optional(s.Database), s.CreatedOn})
	}
	table.Render()
}

func renderTables(w io.Writer, res warehouse.TablesResult) {
	table := newTable(w, []string{"Name", "Database", "Schema", "Created On"})
	for _, t := range res.Tables {
		table.Append([]string{t.Name, optional(t.Database), optional(t.Schema), t.CreatedOn})
	}
	table.Render()
}

func renderTableDescription(w io.Writer, res warehouse.TableDescription) {
	fmt.Fprintln(w, res.TableName)
	table := newTable(w, []string{"Name", "Type", "Kind", "Null", "Default", "Primary Key", "Unique Key", "Check"})
	for _, c := range res.Columns {
		table.Append([]string{
			c.Name,
			c.Type,
			c.Kind,
			c.Null,
			optional(c.Default),
			c.PrimaryKey,
			c.UniqueKey,
			optional(c.Check),
		})
	}
	table.Render()
}

func optional(s *string) string {
	if s == nil {
		return "NULL"
	}
	return *s
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
