//go:build sqlite

package storage

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

// DefaultStoreKind is the backend used when no -store flag is given.
func DefaultStoreKind() string {
	return "sqlite"
}
