package store

// Store is the typed facade over Pool that the dataset manager talks to.
// It groups every dataset/tag/association operation behind one handle
// backed by a relational schema with real joins and transactions.
type Store struct {
	pool *Pool
}

// New wraps an already-opened Pool.
func New(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool.
func (s *Store) Close() error {
	return s.pool.Close()
}
