// Package quorum fans reads and writes out to a replica set in parallel and
// decides whether enough replicas answered. Read results are generic over the
// replica answer type.
package quorum
