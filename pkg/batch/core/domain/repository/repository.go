package repository

// Repository is the persistence gateway for batch execution state. It embeds
// the per-concern interfaces; the engine only ever mutates durable state
// through it.
type Repository interface {
	BatchRepository
	ItemRepository

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
