// Package storage provides the local key-value storage interface with an
// in-memory and a SQLite implementation. Every value carries the hybrid
// logical clock timestamp of its write, and conflicting writes resolve by
// last-writer-wins on that timestamp.
package storage
