package record

import "storagesync/storageid"

// UnknownRecord is a record of a type this client does not understand. Its
// Payload is preserved verbatim — no processor ever inspects or rewrites
// it — and its StorageId is never rotated by this client (§3 Invariant 5,
// §8 Unknown preservation).
type UnknownRecord struct {
	StorageID storageid.ID
	TypeTag   byte // the wire type tag this client doesn't recognize
	Payload   []byte
}

func (u UnknownRecord) ID() storageid.ID { return u.StorageID }

func (u UnknownRecord) WithID(id storageid.ID) Record {
	// Unknown records never rotate ID in practice (they are carried, not
	// merged) but WithID is implemented for interface completeness.
	u.StorageID = id
	return u
}

// SemanticKey has no meaningful identity for opaque records; unknown
// records are never matched or deduplicated by this client, only carried.
func (u UnknownRecord) SemanticKey() string { return "" }

func (u UnknownRecord) UnknownFields() []byte { return u.Payload }

func (u UnknownRecord) Type() storageid.RecordType { return storageid.RecordTypeUnknown }

func (u UnknownRecord) Equal(other Record) bool {
	o, ok := other.(UnknownRecord)
	if !ok {
		return false
	}
	return u.TypeTag == o.TypeTag && bytesEqual(u.Payload, o.Payload)
}
