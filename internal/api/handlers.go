package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"mongoquery/internal/logging"
	"mongoquery/internal/query"
	"mongoquery/internal/service"
)

// Error message constants
const (
	ErrInvalidRequestBody = "Invalid request body"
	ErrMissingCollection  = "Missing collection name"
	ErrMissingOperation   = "Missing operation"
	ErrMissingQueryName   = "Missing query name"
)

// Constants for headers
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// Success message constants
const (
	MsgConnectionsRetrieved = "Connections retrieved successfully"
	MsgCollectionsRetrieved = "Collections retrieved successfully"
	MsgQueryExecuted        = "Query executed successfully"
	MsgTimeRetrieved        = "Current time retrieved successfully"
	MsgDocsRetrieved        = "Documentation retrieved successfully"
	MsgQueriesRetrieved     = "Saved queries retrieved successfully"
	MsgQueryRetrieved       = "Saved query retrieved successfully"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// QueryRequest is the body of a query execution request
type QueryRequest struct {
	Collection    string `json:"collection"`
	Operation     string `json:"operation"`
	Query         string `json:"query"`
	Limit         int64  `json:"limit,omitempty"`
	Sort          string `json:"sort,omitempty"`
	Projection    string `json:"projection,omitempty"`
	DistinctField string `json:"distinctField,omitempty"`
}

// SaveQueryRequest is the body of a saved-query upsert request
type SaveQueryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Collection  string `json:"collection"`
	Operation   string `json:"operation"`
	Query       string `json:"query"`
}

// RunQueryRequest is the body of a saved-query execution request
type RunQueryRequest struct {
	Variables  map[string]string `json:"variables,omitempty"`
	Limit      int64             `json:"limit,omitempty"`
	Sort       string            `json:"sort,omitempty"`
	Projection string            `json:"projection,omitempty"`
}

// Handler holds the dependencies for API handlers
type Handler struct {
	logger  logging.Logger
	service *service.Service
	version string
}

// NewHandler creates a new Handler instance
func NewHandler(logger logging.Logger, svc *service.Service, version string) *Handler {
	return &Handler{
		logger:  logger,
		service: svc,
		version: version,
	}
}

// SetupRoutes sets up the API routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /api/v1/time", h.GetCurrentTime)
	mux.HandleFunc("GET /api/v1/connections", h.ListConnections)
	mux.HandleFunc("GET /api/v1/connections/{name}/documentation", h.GetDocumentation)
	mux.HandleFunc("GET /api/v1/connections/{name}/collections", h.ListCollections)
	mux.HandleFunc("POST /api/v1/connections/{name}/query", h.ExecuteQuery)
	mux.HandleFunc("GET /api/v1/connections/{name}/queries", h.ListSavedQueries)
	mux.HandleFunc("POST /api/v1/connections/{name}/queries", h.SaveQuery)
	mux.HandleFunc("GET /api/v1/connections/{name}/queries/{query}", h.GetSavedQuery)
	mux.HandleFunc("DELETE /api/v1/connections/{name}/queries/{query}", h.DeleteSavedQuery)
	mux.HandleFunc("POST /api/v1/connections/{name}/queries/{query}/run", h.RunSavedQuery)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps a service error to an HTTP status and error body
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	var notFound *service.ConnectionNotFoundError
	var validation *service.ValidationError
	var timeout *service.TimeoutError
	var backend *service.BackendError
	var parse *service.ParseError

	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &validation):
		status = http.StatusBadRequest
	case errors.As(err, &timeout):
		status = http.StatusGatewayTimeout
	case errors.As(err, &backend), errors.As(err, &parse):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: status})
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Version:   h.version,
	})
}

// GetCurrentTime returns the current server time in UTC and local formats
func (h *Handler) GetCurrentTime(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgTimeRetrieved,
		Data:    h.service.CurrentTime(),
	})
}

// ListConnections lists all configured connections
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	h.logger.Infow("ListConnections handler entry", "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgConnectionsRetrieved,
		Data:    h.service.ListConnections(),
	})
}

// GetDocumentation returns the connection's schema documentation
func (h *Handler) GetDocumentation(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	content, err := h.service.GetDocumentation(name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgDocsRetrieved,
		Data:    content,
	})
}

// ListCollections lists the collections of the connection's database
func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	h.logger.Infow("ListCollections handler entry", "connection", name, "remote_addr", r.RemoteAddr)

	result, err := h.service.ListCollections(r.Context(), name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgCollectionsRetrieved,
		Data:    result,
	})
}

// ExecuteQuery runs a read-only query against a connection
func (h *Handler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrInvalidRequestBody, Message: err.Error()})
		return
	}
	if req.Collection == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMissingCollection})
		return
	}
	if req.Operation == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMissingOperation})
		return
	}

	h.logger.Infow("ExecuteQuery handler entry",
		"connection", name, "collection", req.Collection, "operation", req.Operation)

	result, err := h.service.Query(r.Context(), name, req.Collection, req.Operation, req.Query, query.Options{
		Limit:         req.Limit,
		Sort:          req.Sort,
		Projection:    req.Projection,
		DistinctField: req.DistinctField,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgQueryExecuted,
		Data:    result,
	})
}

// ListSavedQueries lists the saved queries of a connection
func (h *Handler) ListSavedQueries(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	result, err := h.service.ListSavedQueries(name)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgQueriesRetrieved,
		Data:    result,
	})
}

// SaveQuery upserts a saved query for a connection
func (h *Handler) SaveQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req SaveQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrInvalidRequestBody, Message: err.Error()})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrMissingQueryName})
		return
	}

	msg, err := h.service.SaveQuery(name, req.Name, req.Description, req.Collection, req.Operation, req.Query)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: msg})
}

// GetSavedQuery returns one saved query definition
func (h *Handler) GetSavedQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	queryName := r.PathValue("query")

	saved, err := h.service.GetSavedQuery(name, queryName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgQueryRetrieved,
		Data:    saved,
	})
}

// DeleteSavedQuery removes a saved query permanently
func (h *Handler) DeleteSavedQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	queryName := r.PathValue("query")

	msg, err := h.service.DeleteSavedQuery(name, queryName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: msg})
}

// RunSavedQuery executes a saved query with optional variables and overrides
func (h *Handler) RunSavedQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	queryName := r.PathValue("query")

	var req RunQueryRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrInvalidRequestBody, Message: err.Error()})
			return
		}
	}

	h.logger.Infow("RunSavedQuery handler entry", "connection", name, "query", queryName)

	result, err := h.service.RunSavedQuery(r.Context(), name, queryName, req.Variables, query.Options{
		Limit:      req.Limit,
		Sort:       req.Sort,
		Projection: req.Projection,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Message: MsgQueryExecuted,
		Data:    result,
	})
}
