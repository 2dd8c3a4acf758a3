package warehouse

import (
	"context"
	"fmt"
	"time"
)

func showSchemasStatement(database string) string {
	if database != "" {
		return "SHOW SCHEMAS IN DATABASE " + database
	}
	return "SHOW SCHEMAS"
}

func showTablesStatement(database, schema string) string {
	switch {
	case database != "" && schema != "":
		return fmt.Sprintf("SHOW TABLES IN SCHEMA %s.%s", database, schema)
	case schema != "":
		return "SHOW TABLES IN SCHEMA " + schema
	default:
		return "SHOW TABLES"
	}
}

// QualifiedTableName joins the table with whichever qualifiers are set. A database without a
// schema is ignored.
func QualifiedTableName(table, database, schema string) string {
	switch {
	case database != "" && schema != "":
		return fmt.Sprintf("%s.%s.%s", database, schema, table)
	case schema != "":
		return fmt.Sprintf("%s.%s", schema, table)
	default:
		return table
	}
}

func (g *Gateway) ListDatabases(ctx context.Context) Response[DatabasesResult] {
	var result DatabasesResult
	err := g.withConn(ctx, "list_databases", func(ctx context.Context, conn Conn) error {
		rows, err := queryAll(ctx, conn, "SHOW DATABASES")
		if err != nil {
			return err
		}
		result.Databases = make([]Database, 0, len(rows))
		for _, row := range rows {
			name, err := requiredAt(row, 1, "name")
			if err != nil {
				return err
			}
			createdOn, err := createdOnAt(row)
			if err != nil {
				return err
			}
			result.Databases = append(result.Databases, Database{
				Name:      name,
				CreatedOn: createdOn,
				Owner:     optionalAt(row, 3, ""),
			})
		}
		return nil
	})
	if err != nil {
		return Fail[DatabasesResult](err)
	}
	return OK(result)
}

func (g *Gateway) ListSchemas(ctx context.Context, database string) Response[SchemasResult] {
	const op = "list_schemas"
	if err := checkIdentifiers(op, identifier{"database", database}); err != nil {
		return Fail[SchemasResult](err)
	}

	var result SchemasResult
	err := g.withConn(ctx, op, func(ctx context.Context, conn Conn) error {
		rows, err := queryAll(ctx, conn, showSchemasStatement(database))
		if err != nil {
			return err
		}
		result.Schemas = make([]Schema, 0, len(rows))
		for _, row := range rows {
			name, err := requiredAt(row, 1, "name")
			if err != nil {
				return err
			}
			createdOn, err := createdOnAt(row)
			if err != nil {
				return err
			}
			result.Schemas = append(result.Schemas, Schema{
				Name:      name,
				Database:  optionalAt(row, 2, database),
				CreatedOn: createdOn,
			})
		}
		return nil
	})
	if err != nil {
		return Fail[SchemasResult](err)
	}
	return OK(result)
}

func (g *Gateway) ListTables(ctx context.Context, database, schema string) Response[TablesResult] {
	const op = "list_tables"
	if err := checkIdentifiers(op, identifier{"database", database}, identifier{"schema", schema}); err != nil {
		return Fail[TablesResult](err)
	}

	var result TablesResult
	err := g.withConn(ctx, op, func(ctx context.Context, conn Conn) error {
		rows, err := queryAll(ctx, conn, showTablesStatement(database, schema))
		if err != nil {
			return err
		}
		result.Tables = make([]Table, 0, len(rows))
		for _, row := range rows {
			name, err := requiredAt(row, 1, "name")
			if err != nil {
				return err
			}
			createdOn, err := createdOnAt(row)
			if err != nil {
				return err
			}
			result.Tables = append(result.Tables, Table{
				Name:      name,
				Database:  optionalAt(row, 2, database),
				Schema:    optionalAt(row, 3, schema),
				CreatedOn: createdOn,
			})
		}
		return nil
	})
	if err != nil {
		return Fail[TablesResult](err)
	}
	return OK(result)
}

func (g *Gateway) DescribeTable(ctx context.Context, table, database, schema string) Response[TableDescription] {
	const op = "describe_table"
	if table == "" {
		return Fail[TableDescription](NewError(ErrorKindInvalidInput, op, fmt.Errorf("table_name is required")))
	}
	err := checkIdentifiers(op,
		identifier{"table_name", table},
		identifier{"database", database},
		identifier{"schema", schema},
	)
	if err != nil {
		return Fail[TableDescription](err)
	}

	qualified := QualifiedTableName(table, database, schema)
	result := TableDescription{TableName: qualified}
	err = g.withConn(ctx, op, func(ctx context.Context, conn Conn) error {
		rows, err := queryAll(ctx, conn, "DESCRIBE TABLE "+qualified)
		if err != nil {
			return err
		}
		result.Columns = make([]Column, 0, len(rows))
		for _, row := range rows {
			var col Column
			required := []struct {
				pos   int
				field string
				dst   *string
			}{
				{0, "name", &col.Name},
				{1, "type", &col.Type},
				{2, "kind", &col.Kind},
				{3, "null", &col.Null},
				{5, "primary_key", &col.PrimaryKey},
				{6, "unique_key", &col.UniqueKey},
			}
			for _, r := range required {
				v, err := requiredAt(row, r.pos, r.field)
				if err != nil {
					return err
				}
				*r.dst = v
			}
			if len(row) <= 4 {
				return fmt.Errorf("missing default column in describe row")
			}
			col.Default = optionalAt(row, 4, "")
			col.Check = optionalAt(row, 7, "")
			result.Columns = append(result.Columns, col)
		}
		return nil
	})
	if err != nil {
		return Fail[TableDescription](err)
	}
	return OK(result)
}

// queryAll runs an administrative statement and returns its rows positionally.
func queryAll(ctx context.Context, conn Conn, stmt string) ([][]any, error) {
	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	return scanAll(rows, len(columns))
}

// requiredAt returns the value at pos as text. A NULL value yields the empty string.
func requiredAt(row []any, pos int, field string) (string, error) {
	if pos >= len(row) {
		return "", fmt.Errorf("missing %s column at position %d", field, pos)
	}
	return text(row[pos]), nil
}

// optionalAt returns the value at pos, or fallback when the row is too short. An empty fallback
// yields nil, as does a NULL value.
func optionalAt(row []any, pos int, fallback string) *string {
	if pos >= len(row) {
		if fallback == "" {
			return nil
		}
		return &fallback
	}
	if row[pos] == nil {
		return nil
	}
	s := text(row[pos])
	return &s
}

func createdOnAt(row []any) (string, error) {
	if len(row) == 0 {
		return "", fmt.Errorf("missing created_on column at position 0")
	}
	return text(row[0]), nil
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}
