package warehouse

import (
	"context"
	"database/sql"
	"fmt"
)

// ExecuteQuery runs query verbatim. With fetchResults set, a statement that describes a result
// set returns every row; anything else reports the affected row count.
func (g *Gateway) ExecuteQuery(ctx context.Context, query string, fetchResults bool) Response[QueryResult] {
	if query == "" {
		return Fail[QueryResult](NewError(ErrorKindInvalidInput, "execute_query", fmt.Errorf("query is required")))
	}

	var result QueryResult
	err := g.withConn(ctx, "execute_query", func(ctx context.Context, conn Conn) error {
		if !fetchResults {
			res, err := conn.ExecContext(ctx, query)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				n = RowsUndetermined
			}
			result.Affected = newAffected(n)
			return nil
		}

		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to get columns: %w", err)
		}
		if len(columns) == 0 {
			result.Affected = newAffected(RowsUndetermined)
			return nil
		}

		values, err := scanAll(rows, len(columns))
		if err != nil {
			return err
		}
		result.RowSet = &RowSet{
			Columns:  columns,
			Rows:     values,
			RowCount: len(values),
		}
		return nil
	})
	if err != nil {
		return Fail[QueryResult](err)
	}
	return OK(result)
}

// scanAll reads every remaining row into a slice of width values. The result is never nil.
func scanAll(rows *sql.Rows, width int) ([][]any, error) {
	out := make([][]any, 0)
	for rows.Next() {
		row := make([]any, width)
		ptrs := make([]any, width)
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}
