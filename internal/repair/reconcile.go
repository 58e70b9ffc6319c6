package repair

import (
	"strconv"

	"hlckv/internal/storage"
)

// ReconcileResult represents the result of reconciling replica answers.
type ReconcileResult struct {
	// Winner is the last-writer-wins value, or nil if no replica had the key.
	Winner *storage.VersionedValue

	// Concurrent holds distinct values written at the winner's physical
	// instant that lost only on the logical counter or origin tie-break.
	// They are reported so callers can surface the near-simultaneous write.
	Concurrent []storage.VersionedValue

	// Stale maps replica identifier to the value it returned (nil when the
	// replica did not have the key) for every replica behind the winner.
	Stale map[string]*storage.VersionedValue
}

// Reconcile picks the winning version among the values returned by replicas.
// replicaIDs should correspond 1:1 with values; a nil value means the replica
// had no entry for the key.
func Reconcile(values []*storage.VersionedValue, replicaIDs []string) ReconcileResult {
	result := ReconcileResult{
		Stale: make(map[string]*storage.VersionedValue),
	}

	if len(replicaIDs) != len(values) {
		// If replica IDs don't match, create placeholder IDs
		replicaIDs = make([]string, len(values))
		for i := range replicaIDs {
			replicaIDs[i] = "replica-" + strconv.Itoa(i)
		}
	}

	for _, v := range values {
		if v != nil && v.Supersedes(result.Winner) {
			result.Winner = v
		}
	}
	if result.Winner == nil {
		return result
	}
	winner := result.Winner

	for i, v := range values {
		if winner.Same(v) {
			continue
		}
		result.Stale[replicaIDs[i]] = v

		if v != nil && isSibling(v, winner) && !containsSame(result.Concurrent, v) {
			result.Concurrent = append(result.Concurrent, *v)
		}
	}
	return result
}

// isSibling reports whether v was written at the same physical instant as
// the winner without being the same write.
func isSibling(v, winner *storage.VersionedValue) bool {
	if v.Version.IsConcurrent(winner.Version) {
		return true
	}
	return v.Version == winner.Version && v.Origin != winner.Origin
}

func containsSame(list []storage.VersionedValue, v *storage.VersionedValue) bool {
	for i := range list {
		if list[i].Same(v) {
			return true
		}
	}
	return false
}

// HasConflict returns true if same-instant concurrent writes were observed.
func (r *ReconcileResult) HasConflict() bool {
	return len(r.Concurrent) > 0
}

// IsNotFound returns true if no replica had the key or the winner is a tombstone.
func (r *ReconcileResult) IsNotFound() bool {
	return r.Winner == nil || r.Winner.Deleted
}

// NeedsRepair returns true if at least one replica is behind the winner.
func (r *ReconcileResult) NeedsRepair() bool {
	return r.Winner != nil && len(r.Stale) > 0
}
