package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/malbeclabs/warehouse-gateway/internal/warehouse"
)

type ExecuteQueryRequest struct {
	Query        string `json:"query"`
	FetchResults *bool  `json:"fetch_results,omitempty"`
}

// fetch defaults to true when fetch_results is omitted.
func (r ExecuteQueryRequest) fetch() bool {
	return r.FetchResults == nil || *r.FetchResults
}

// envelope is satisfied by every warehouse.Response instantiation.
type envelope interface {
	Kind() warehouse.ErrorKind
}

// statusFor returns the HTTP status for a failed envelope when strict status is enabled.
func statusFor(kind warehouse.ErrorKind) int {
	switch kind {
	case warehouse.ErrorKindInvalidInput, warehouse.ErrorKindQuery:
		return http.StatusBadRequest
	case warehouse.ErrorKindConnectivity:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeEnvelope(w http.ResponseWriter, resp envelope) {
	status := http.StatusOK
	if kind := resp.Kind(); kind != "" && s.cfg.StrictStatus {
		status = statusFor(kind)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("server: failed to encode response", "error", err)
	}
}

// writeUnprocessable reports a request that is missing a required input.
func (s *Server) writeUnprocessable(w http.ResponseWriter, op string, err error) {
	s.writeJSON(w, http.StatusUnprocessableEntity, warehouse.Fail[struct{}](warehouse.NewError(warehouse.ErrorKindInvalidInput, op, err)))
}

func (s *Server) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req ExecuteQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeUnprocessable(w, "execute_query", fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Query == "" {
		s.writeUnprocessable(w, "execute_query", errors.New("query is required"))
		return
	}
	s.writeEnvelope(w, s.cfg.Gateway.ExecuteQuery(r.Context(), req.Query, req.fetch()))
}

func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, s.cfg.Gateway.ListDatabases(r.Context()))
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	s.writeEnvelope(w, s.cfg.Gateway.ListSchemas(r.Context(), r.URL.Query().Get("database")))
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.writeEnvelope(w, s.cfg.Gateway.ListTables(r.Context(), q.Get("database"), q.Get("schema")))
}

func (s *Server) handleDescribeTable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	table := q.Get("table_name")
	if table == "" {
		s.writeUnprocessable(w, "describe_table", errors.New("table_name is required"))
		return
	}
	s.writeEnvelope(w, s.cfg.Gateway.DescribeTable(r.Context(), table, q.Get("database"), q.Get("schema")))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Gateway.Health(r.Context()))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Gateway.Status())
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.cfg.Gateway.Root())
}
