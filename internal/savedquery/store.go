package savedquery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// SavedQuery is a named query template bound to a collection and operation.
// The query text may contain {{placeholder}} variables.
type SavedQuery struct {
	Name        string    `yaml:"name" json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Collection  string    `yaml:"collection" json:"collection"`
	Operation   string    `yaml:"operation" json:"operation"`
	Query       string    `yaml:"query" json:"query"`
	CreatedAt   time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time `yaml:"updated_at" json:"updated_at"`
}

// queryFile is the on-disk document, one per connection
type queryFile struct {
	Queries []SavedQuery `yaml:"queries"`
}

// Store reads and writes per-connection saved-query files under a data
// directory. Every call goes to disk; nothing is cached, so external edits
// to the files are picked up immediately.
type Store struct {
	dataDir string
}

// NewStore creates a store rooted at dataDir. The directory must exist.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) filePath(connection string) string {
	return filepath.Join(s.dataDir, connection+".queries.yaml")
}

// List returns all saved queries for a connection, sorted by name. A missing
// file means no queries yet, not an error.
func (s *Store) List(connection string) ([]SavedQuery, error) {
	file, err := s.load(connection)
	if err != nil {
		return nil, err
	}

	queries := file.Queries
	sort.Slice(queries, func(i, j int) bool { return queries[i].Name < queries[j].Name })
	return queries, nil
}

// Get returns a saved query by name
func (s *Store) Get(connection, name string) (SavedQuery, error) {
	file, err := s.load(connection)
	if err != nil {
		return SavedQuery{}, err
	}

	for _, q := range file.Queries {
		if q.Name == name {
			return q, nil
		}
	}
	return SavedQuery{}, fmt.Errorf("saved query '%s' not found for connection '%s'", name, connection)
}

// Upsert saves a query, replacing any existing one with the same name. An
// existing entry keeps its CreatedAt; UpdatedAt is always refreshed.
func (s *Store) Upsert(connection string, query SavedQuery) (SavedQuery, error) {
	file, err := s.load(connection)
	if err != nil {
		return SavedQuery{}, err
	}

	now := time.Now().UTC()
	query.CreatedAt = now
	query.UpdatedAt = now

	replaced := false
	for i, existing := range file.Queries {
		if existing.Name == query.Name {
			query.CreatedAt = existing.CreatedAt
			file.Queries[i] = query
			replaced = true
			break
		}
	}
	if !replaced {
		file.Queries = append(file.Queries, query)
	}

	if err := s.save(connection, file); err != nil {
		return SavedQuery{}, err
	}
	return query, nil
}

// Delete removes a saved query by name. Deleting a missing query is an error.
func (s *Store) Delete(connection, name string) error {
	file, err := s.load(connection)
	if err != nil {
		return err
	}

	for i, q := range file.Queries {
		if q.Name == name {
			file.Queries = append(file.Queries[:i], file.Queries[i+1:]...)
			return s.save(connection, file)
		}
	}
	return fmt.Errorf("saved query '%s' not found for connection '%s'", name, connection)
}

func (s *Store) load(connection string) (*queryFile, error) {
	data, err := os.ReadFile(s.filePath(connection))
	if err != nil {
		if os.IsNotExist(err) {
			return &queryFile{}, nil
		}
		return nil, fmt.Errorf("failed to read saved queries for '%s': %w", connection, err)
	}

	var file queryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse saved queries for '%s': %w", connection, err)
	}
	return &file, nil
}

func (s *Store) save(connection string, file *queryFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to serialize saved queries for '%s': %w", connection, err)
	}
	if err := os.WriteFile(s.filePath(connection), data, 0600); err != nil {
		return fmt.Errorf("failed to write saved queries for '%s': %w", connection, err)
	}
	return nil
}
