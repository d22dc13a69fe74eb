package index

// WorkspaceIndex defines the interface for workspace indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type WorkspaceIndex interface {
	UpsertWorkspace(row WorkspaceRow, body string) error
	DeleteWorkspace(slug string) error
	GetChecksum(slug string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies WorkspaceIndex at compile time.
var _ WorkspaceIndex = (*DB)(nil)
