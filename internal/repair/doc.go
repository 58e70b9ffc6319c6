// Package repair reconciles the answers of several replicas by
// last-writer-wins on their hybrid logical clock versions, flags
// same-instant concurrent writes, and pushes the winner back to replicas
// that fell behind.
package repair
