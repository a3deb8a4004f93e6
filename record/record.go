// Package record defines the tagged union of record kinds the sync engine
// reconciles: ContactRecord, GroupV1Record, GroupV2Record, AccountRecord,
// and UnknownRecord. Each carries a StorageId, a stable semantic key used
// for duplicate detection and local matching, mergeable attributes, and an
// UnknownFields blob preserved byte-for-byte across every merge.
package record

import "storagesync/storageid"

// Record is the common contract every record kind satisfies. Dispatch on
// record kind goes through switches on storageid.RecordType (processor.For)
// or on the concrete type; their default cases return an error for a kind
// they do not handle, so a newly added kind is reported at run time, not
// at compile time.
type Record interface {
	// ID returns the record's current StorageId.
	ID() storageid.ID
	// WithID returns a copy of the record re-keyed under a new StorageId.
	// Used when a merge produces a new record that must rotate its ID.
	WithID(id storageid.ID) Record
	// SemanticKey is the stable identity of the entity this record
	// represents (service address, group id, self id). Two records of the
	// same RecordType with equal SemanticKey refer to the same local
	// entity, independent of their (rotating) StorageId.
	SemanticKey() string
	// UnknownFields is the forward-compatibility blob. It must round-trip
	// byte-for-byte through every merge this client performs.
	UnknownFields() []byte
	// Type reports which union member this is.
	Type() storageid.RecordType
	// Equal reports bit-for-bit equality of all mergeable attributes and
	// the UnknownFields blob, ignoring StorageId. Used to detect whether a
	// merge produced something new or collapsed back to remote/local.
	Equal(other Record) bool
}
