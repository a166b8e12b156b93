package store

// OpenInMemory creates a migrated Store backed by an in-memory SQLite database.
// This is only intended for use in tests.
func OpenInMemory() (*Store, error) {
	return openSQLite(":memory:")
}

// WithTxWrapper returns a copy of s whose transactions are decorated by wrap.
// This is only intended for use in tests.
func (s *Store) WithTxWrapper(wrap func(DBTX) DBTX) *Store {
	c := *s
	c.wrapTx = wrap
	return &c
}
