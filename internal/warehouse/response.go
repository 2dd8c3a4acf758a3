package warehouse

import (
	"encoding/json"
	"fmt"
)

// Response is the envelope returned by every gateway operation. A successful response is
// serialized as the result's fields plus "success": true; a failed one as
// {"success": false, "error": ..., "error_kind": ...}.
type Response[T any] struct {
	Success bool
	Result  T
	Err     error
}

func OK[T any](result T) Response[T] {
	return Response[T]{Success: true, Result: result}
}

func Fail[T any](err error) Response[T] {
	return Response[T]{Success: false, Err: err}
}

// Kind returns the error kind of a failed response, or "" on success.
func (r Response[T]) Kind() ErrorKind {
	if r.Success || r.Err == nil {
		return ""
	}
	return KindOf(r.Err)
}

// ErrorMessage returns the caller-visible failure text, or "" on success.
func (r Response[T]) ErrorMessage() string {
	if r.Success || r.Err == nil {
		return ""
	}
	return Message(r.Err)
}

type failureEnvelope struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorKind ErrorKind `json:"error_kind"`
}

func (r Response[T]) MarshalJSON() ([]byte, error) {
	if !r.Success {
		return json.Marshal(failureEnvelope{
			Success:   false,
			Error:     r.ErrorMessage(),
			ErrorKind: r.Kind(),
		})
	}

	body, err := json.Marshal(r.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("result must serialize to a JSON object: %w", err)
	}
	fields["success"] = json.RawMessage("true")
	return json.Marshal(fields)
}

// QueryResult holds exactly one of RowSet or Affected.
type QueryResult struct {
	RowSet   *RowSet
	Affected *Affected
}

type RowSet struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
}

type Affected struct {
	Message      string `json:"message"`
	RowsAffected int64  `json:"-"`
}

// RowsUndetermined is the affected count reported when the driver gives none.
const RowsUndetermined int64 = -1

func newAffected(n int64) *Affected {
	return &Affected{
		Message:      fmt.Sprintf("Query executed successfully. Rows affected: %d", n),
		RowsAffected: n,
	}
}

func (q QueryResult) MarshalJSON() ([]byte, error) {
	if q.RowSet != nil {
		return json.Marshal(q.RowSet)
	}
	if q.Affected != nil {
		return json.Marshal(q.Affected)
	}
	return []byte("{}"), nil
}

type Database struct {
	Name      string  `json:"name"`
	CreatedOn string  `json:"created_on"`
	Owner     *string `json:"owner"`
}

type DatabasesResult struct {
	Databases []Database `json:"databases"`
}

type Schema struct {
	Name      string  `json:"name"`
	Database  *string `json:"database"`
	CreatedOn string  `json:"created_on"`
}

type SchemasResult struct {
	Schemas []Schema `json:"schemas"`
}

type Table struct {
	Name      string  `json:"name"`
	Database  *string `json:"database"`
	Schema    *string `json:"schema"`
	CreatedOn string  `json:"created_on"`
}

type TablesResult struct {
	Tables []Table `json:"tables"`
}

type Column struct {
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Kind       string  `json:"kind"`
	Null       string  `json:"null"`
	Default    *string `json:"default"`
	PrimaryKey string  `json:"primary_key"`
	UniqueKey  string  `json:"unique_key"`
	Check      *string `json:"check"`
}

type TableDescription struct {
	TableName string   `json:"table_name"`
	Columns   []Column `json:"columns"`
}

// HealthResult is reported by the health check. It does not use the success envelope.
type HealthResult struct {
	Status    string `json:"status"`
	Snowflake string `json:"snowflake,omitempty"`
	Error     string `json:"error,omitempty"`
}

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)
