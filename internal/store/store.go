// Package store provides SQLite-backed key/value persistence for the minibot
// engine. It is the Go counterpart of the browser's localStorage: one flat
// namespace of string keys to string values, shared by session state,
// conversation history, API keys and UI settings.
package store

// Storer defines the interface for flat key/value persistence.
// SQLiteStore is the sole implementation.
type Storer interface {
	// Get returns the value for key. The second return is false when the
	// key has never been set.
	Get(key string) (string, bool, error)
	// Set stores value under key, overwriting any previous value.
	Set(key, value string) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
	// Keys returns all keys with the given prefix, in lexical order.
	// An empty prefix returns every key.
	Keys(prefix string) ([]string, error)

	// Export/Import serialize the full namespace for data portability.
	Export() ([]byte, error)
	Import(data []byte) error

	// Lifecycle
	Close() error
}
