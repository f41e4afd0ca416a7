// Package service implements the boundary operations on top of the
// connection registry and the saved-query store. It is transport agnostic;
// the HTTP layer is a thin adapter over it.
package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mongoquery/internal/connection"
	"mongoquery/internal/logging"
	"mongoquery/internal/query"
	"mongoquery/internal/savedquery"
)

// defaultQueryTimeoutSecs bounds every query execution
const defaultQueryTimeoutSecs int64 = 30

// nonFindOverrideWarning prefixes query results when limit/sort/projection
// were supplied for an operation that ignores them
const nonFindOverrideWarning = "Note: limit/sort/projection only apply to find operations (ignored)"

// Service exposes the read-only query operations. One instance serves all
// requests; the registry and store are safe for concurrent readers.
type Service struct {
	registry *connection.Registry
	store    *savedquery.Store
	logger   logging.Logger
}

// New creates a service over a populated registry and saved-query store
func New(registry *connection.Registry, store *savedquery.Store, logger logging.Logger) *Service {
	return &Service{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// ConnectionsResult lists the configured connections with their kinds
type ConnectionsResult struct {
	Connections []connection.Info `json:"connections"`
	Count       int               `json:"count"`
}

// CollectionsResult lists the collections of one connection's database
type CollectionsResult struct {
	Database    string   `json:"database"`
	Collections []string `json:"collections"`
	Count       int      `json:"count"`
}

// SavedQueriesResult lists the saved queries of one connection
type SavedQueriesResult struct {
	Queries []savedquery.SavedQuery `json:"queries"`
	Count   int                     `json:"count"`
}

// TimeDetail describes one timezone's view of the current instant
type TimeDetail struct {
	ISO8601       string `json:"iso8601"`
	Timestamp     int64  `json:"timestamp"`
	HumanReadable string `json:"human_readable"`
	Timezone      string `json:"timezone,omitempty"`
	Offset        string `json:"offset,omitempty"`
}

// TimeResult reports the current server time in UTC and local forms. Useful
// for constructing time-based query filters.
type TimeResult struct {
	UTC   TimeDetail `json:"utc"`
	Local TimeDetail `json:"local"`
}

func (s *Service) connection(name string) (connection.Connection, error) {
	conn, ok := s.registry.Get(name)
	if !ok {
		return nil, &ConnectionNotFoundError{Name: name, Available: s.registry.ListNames()}
	}
	return conn, nil
}

// ListConnections returns all configured connections sorted by name
func (s *Service) ListConnections() ConnectionsResult {
	infos := s.registry.ListWithKinds()
	return ConnectionsResult{Connections: infos, Count: len(infos)}
}

// CurrentTime returns the current server time in UTC and local formats
func (s *Service) CurrentTime() TimeResult {
	now := time.Now()
	utc := now.UTC()
	zone, _ := now.Zone()

	return TimeResult{
		UTC: TimeDetail{
			ISO8601:       utc.Format(time.RFC3339),
			Timestamp:     utc.Unix(),
			HumanReadable: utc.Format("2006-01-02 15:04:05") + " UTC",
		},
		Local: TimeDetail{
			ISO8601:       now.Format(time.RFC3339),
			Timestamp:     now.Unix(),
			HumanReadable: now.Format("2006-01-02 15:04:05 MST"),
			Timezone:      zone,
			Offset:        now.Format("-0700"),
		},
	}
}

// GetDocumentation returns the contents of the connection's documentation
// file. An unconfigured path or an empty file yields an explanatory message
// rather than an error.
func (s *Service) GetDocumentation(connectionName string) (string, error) {
	conn, err := s.connection(connectionName)
	if err != nil {
		return "", err
	}

	path := conn.DocumentationPath()
	if path == "" {
		return fmt.Sprintf(
			"No documentation configured for connection '%s'. "+
				"Set documentationPath in the config file to provide schema documentation.",
			connectionName), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", &PersistenceError{Cause: fmt.Errorf("failed to read documentation file '%s': %w", path, err)}
	}

	if strings.TrimSpace(string(content)) == "" {
		return fmt.Sprintf(
			"Documentation file is empty for connection '%s'. "+
				"Add schema documentation to: %s",
			connectionName, path), nil
	}

	return string(content), nil
}

// ListCollections lists the collections in the connection's database
func (s *Service) ListCollections(ctx context.Context, connectionName string) (CollectionsResult, error) {
	conn, err := s.connection(connectionName)
	if err != nil {
		return CollectionsResult{}, err
	}

	collections, err := conn.ListCollections(ctx)
	if err != nil {
		return CollectionsResult{}, classifyBackendError(err)
	}

	return CollectionsResult{
		Database:    conn.DatabaseName(),
		Collections: collections,
		Count:       len(collections),
	}, nil
}

// Query executes a read-only query. The result is the backend's text output,
// prefixed with a warning when limit/sort/projection were supplied for a
// non-find operation.
func (s *Service) Query(ctx context.Context, connectionName, collectionName, operation, queryText string, opts query.Options) (string, error) {
	conn, err := s.connection(connectionName)
	if err != nil {
		return "", err
	}

	op, err := query.ParseOperation(operation)
	if err != nil {
		return "", &ValidationError{Cause: err}
	}

	// Surface malformed query text as a validation failure before any
	// backend work
	if _, err := query.Compile(op, queryText, opts); err != nil {
		return "", &ValidationError{Cause: err}
	}

	warn := opts.HasFindOverrides() && op != query.OpFind

	result, err := conn.ExecuteQuery(ctx, collectionName, op, queryText, opts, defaultQueryTimeoutSecs)
	if err != nil {
		return "", classifyBackendError(err)
	}

	if warn {
		return nonFindOverrideWarning + "\n\n" + result, nil
	}
	return result, nil
}

// SaveQuery upserts a named query template for a connection and reports
// whether it was saved or updated.
func (s *Service) SaveQuery(connectionName, queryName, description, collectionName, operation, queryText string) (string, error) {
	if _, err := s.connection(connectionName); err != nil {
		return "", err
	}

	if _, err := query.ParseOperation(operation); err != nil {
		return "", &ValidationError{Cause: err}
	}

	_, getErr := s.store.Get(connectionName, queryName)
	isUpdate := getErr == nil

	_, err := s.store.Upsert(connectionName, savedquery.SavedQuery{
		Name:        queryName,
		Description: description,
		Collection:  collectionName,
		Operation:   operation,
		Query:       queryText,
	})
	if err != nil {
		return "", &PersistenceError{Cause: err}
	}

	action := "saved"
	if isUpdate {
		action = "updated"
	}
	return fmt.Sprintf("Query '%s' %s successfully in connection '%s'", queryName, action, connectionName), nil
}

// ListSavedQueries returns the saved queries of a connection sorted by name
func (s *Service) ListSavedQueries(connectionName string) (SavedQueriesResult, error) {
	if _, err := s.connection(connectionName); err != nil {
		return SavedQueriesResult{}, err
	}

	queries, err := s.store.List(connectionName)
	if err != nil {
		return SavedQueriesResult{}, &PersistenceError{Cause: err}
	}
	return SavedQueriesResult{Queries: queries, Count: len(queries)}, nil
}

// GetSavedQuery returns one saved query by name
func (s *Service) GetSavedQuery(connectionName, queryName string) (savedquery.SavedQuery, error) {
	if _, err := s.connection(connectionName); err != nil {
		return savedquery.SavedQuery{}, err
	}

	saved, err := s.store.Get(connectionName, queryName)
	if err != nil {
		return savedquery.SavedQuery{}, &ValidationError{Cause: err}
	}
	return saved, nil
}

// DeleteSavedQuery removes a saved query permanently
func (s *Service) DeleteSavedQuery(connectionName, queryName string) (string, error) {
	if _, err := s.connection(connectionName); err != nil {
		return "", err
	}

	if err := s.store.Delete(connectionName, queryName); err != nil {
		if strings.Contains(err.Error(), "not found") {
			return "", &ValidationError{Cause: err}
		}
		return "", &PersistenceError{Cause: err}
	}
	return fmt.Sprintf("Query '%s' deleted successfully from connection '%s'", queryName, connectionName), nil
}

// RunSavedQuery executes a saved query, substituting template variables and
// applying optional find-only overrides.
func (s *Service) RunSavedQuery(ctx context.Context, connectionName, queryName string, variables map[string]string, opts query.Options) (string, error) {
	conn, err := s.connection(connectionName)
	if err != nil {
		return "", err
	}

	saved, err := s.store.Get(connectionName, queryName)
	if err != nil {
		return "", &ValidationError{Cause: err}
	}

	queryText := saved.Query
	if variables != nil {
		queryText, err = savedquery.Substitute(saved.Query, variables)
		if err != nil {
			return "", &ValidationError{Cause: fmt.Errorf("query '%s': %w", queryName, err)}
		}
	} else if placeholders := savedquery.FindPlaceholders(saved.Query); len(placeholders) > 0 {
		return "", &ValidationError{Cause: fmt.Errorf(
			"query '%s' requires variables: %s", queryName, strings.Join(placeholders, ", "))}
	}

	op, err := query.ParseOperation(saved.Operation)
	if err != nil {
		return "", &ValidationError{Cause: err}
	}

	// Saved distinct queries use the legacy embedded-field shape
	opts.DistinctField = ""

	if _, err := query.Compile(op, queryText, opts); err != nil {
		return "", &ValidationError{Cause: err}
	}
	warn := opts.HasFindOverrides() && op != query.OpFind

	s.logger.Infof("Running saved query '%s' on connection '%s'", queryName, connectionName)

	result, err := conn.ExecuteQuery(ctx, saved.Collection, op, queryText, opts, defaultQueryTimeoutSecs)
	if err != nil {
		return "", classifyBackendError(err)
	}

	if warn {
		return nonFindOverrideWarning + "\n\n" + result, nil
	}
	return result, nil
}
