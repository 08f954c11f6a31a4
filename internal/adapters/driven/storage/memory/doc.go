// Package memory provides in-memory implementations of the driven
// store ports. They are used in tests and as fallbacks when no SQLite
// store is configured.
package memory
