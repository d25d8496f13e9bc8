package custody

// Persistent is implemented by every value kept in a store. Implementations
// validate on Marshal, so an invalid value never reaches the store.
type Persistent interface {
	Marshal() ([]byte, error)
	Unmarshal([]byte) error
}
