// Package connection provides the unified abstraction over the two MongoDB
// backends: direct URL connections using the native driver, and cluster
// connections that execute mongosh inside a database pod.
package connection

import (
	"context"
	"sort"

	"mongoquery/internal/query"
)

// Backend kinds reported by Kind()
const (
	KindDirect  = "direct"
	KindCluster = "cluster"
)

// Connection is the capability set every backend exposes. Methods are called
// through this interface from the tool layer.
type Connection interface {
	// Name is the unique identifier for this connection
	Name() string

	// Kind is the backend kind, "direct" or "cluster"
	Kind() string

	// DocumentationPath is the optional path to the data model file, empty
	// when not configured
	DocumentationPath() string

	// DatabaseName is the database this connection queries
	DatabaseName() string

	// ListCollections returns all collection names, sorted
	ListCollections(ctx context.Context) ([]string, error)

	// ExecuteQuery runs a read-only query and returns the result as text
	ExecuteQuery(ctx context.Context, collection string, op query.Operation, queryText string, opts query.Options, timeoutSecs int64) (string, error)
}

// Info pairs a connection name with its backend kind
type Info struct {
	Name string `json:"name"`
	Kind string `json:"type"`
}

// Registry holds all configured connections, keyed by name. It is populated
// once at startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	connections map[string]Connection
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]Connection),
	}
}

// Register adds a connection under its name
func (r *Registry) Register(conn Connection) {
	r.connections[conn.Name()] = conn
}

// Get returns the named connection, or false when it is not registered
func (r *Registry) Get(name string) (Connection, bool) {
	conn, ok := r.connections[name]
	return conn, ok
}

// ListNames returns all connection names sorted for deterministic output
func (r *Registry) ListNames() []string {
	names := make([]string, 0, len(r.connections))
	for name := range r.connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListWithKinds returns name/kind pairs sorted by name
func (r *Registry) ListWithKinds() []Info {
	list := make([]Info, 0, len(r.connections))
	for name, conn := range r.connections {
		list = append(list, Info{Name: name, Kind: conn.Kind()})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
