package api

import (
	"context"
	"database/sql"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// maxQueryRows caps ad-hoc query results so a careless SELECT cannot
// buffer the whole analytics table into one response.
const maxQueryRows = 10000

// DBHandler exposes read-only access to the breadbasket analytics DB.
type DBHandler struct {
	db *sql.DB
}

// NewDBHandler creates a new database handler.
func NewDBHandler(db *sql.DB) *DBHandler {
	return &DBHandler{db: db}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("db"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("db"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	rows, err := h.db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err == nil {
			tables = append(tables, name)
		}
	}

	if tables == nil {
		tables = []string{}
	}

	out := &TablesOutput{}
	out.Body.Tables = tables
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" doc:"Read-only SQL query" example:"SELECT food_group, sum(production) FROM breadbaskets GROUP BY food_group"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body struct {
		Columns []string         `json:"columns" doc:"Column names"`
		Rows    []map[string]any `json:"rows" doc:"Query results"`
		Count   int              `json:"count" doc:"Number of rows returned"`
	}
}

var readOnlyPrefixes = []string{"select", "with", "show", "describe", "explain", "pragma"}

func isReadOnly(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return false
}

// Query executes a read-only SQL query against the analytics DB.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.db == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}
	if !isReadOnly(input.Body.Query) {
		return nil, huma.Error400BadRequest("Only read queries are allowed")
	}

	rows, err := h.db.QueryContext(ctx, input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to get columns", err)
	}

	var results []map[string]any
	for rows.Next() && len(results) < maxQueryRows {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			continue
		}

		row := make(map[string]any)
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	if results == nil {
		results = []map[string]any{}
	}

	out := &QueryOutput{}
	out.Body.Columns = columns
	out.Body.Rows = results
	out.Body.Count = len(results)
	return out, nil
}
