// Package kvstore provides the small key-value capability the chat client
// persists its message log through. The interface mirrors what a browser's
// session storage offers so hosts can inject an in-memory fake for tests, a
// process-lifetime store, or a file-backed one.
package kvstore

// Store is a session-scoped key-value store. Get reports presence explicitly
// so an absent key is not an error.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}
