// Package manifest defines the versioned enumeration of StorageIds the
// server holds for an account, and the client's persisted copy of it.
package manifest

import "storagesync/storageid"

// Manifest pairs a monotonic version with the full set of StorageIds the
// server currently holds for an account. The invariant that storageIds
// fully enumerates server-held records is maintained by the orchestrator,
// never by this type.
type Manifest struct {
	Version    uint64
	StorageIDs []storageid.ID
}

// Set builds a lookup-efficient storageid.Set from the manifest's IDs.
func (m Manifest) Set() storageid.Set {
	return storageid.NewSet(m.StorageIDs)
}

// Next returns a copy of m with version advanced by one and storageIds
// replaced. Used by writeop to build the next manifest from merge/local
// change outputs.
func (m Manifest) Next(storageIDs []storageid.ID) Manifest {
	return Manifest{Version: m.Version + 1, StorageIDs: storageIDs}
}

// Empty reports whether the manifest carries no records.
func (m Manifest) Empty() bool {
	return len(m.StorageIDs) == 0
}
