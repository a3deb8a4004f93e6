package record

import (
	"encoding/hex"

	"storagesync/storageid"
)

// GroupV1Record represents a legacy (pre-GV2) group's sync-relevant state.
// GroupID is the raw legacy group identifier; groups that have since
// migrated to GroupV2 carry MigratedToGV2=true and are rejected by the
// GroupV1 processor's isInvalid check (§4.2).
type GroupV1Record struct {
	StorageID             storageid.ID
	GroupID               []byte // semantic key material
	MigratedToGV2         bool
	Blocked               bool
	ProfileSharingEnabled bool
	Archived              bool
	ForcedUnread          bool
	MuteUntil             int64
	UnknownFieldsBlob     []byte
}

func (g GroupV1Record) ID() storageid.ID { return g.StorageID }

func (g GroupV1Record) WithID(id storageid.ID) Record {
	g.StorageID = id
	return g
}

// SemanticKey is the hex-encoded legacy group id. Hex (not raw bytes) so it
// is safe to use as a map key and log line without special-casing binary
// data.
func (g GroupV1Record) SemanticKey() string { return hex.EncodeToString(g.GroupID) }

func (g GroupV1Record) UnknownFields() []byte { return g.UnknownFieldsBlob }

func (g GroupV1Record) Type() storageid.RecordType { return storageid.RecordTypeGroupV1 }

func (g GroupV1Record) Equal(other Record) bool {
	o, ok := other.(GroupV1Record)
	if !ok {
		return false
	}
	return bytesEqual(g.GroupID, o.GroupID) &&
		g.MigratedToGV2 == o.MigratedToGV2 &&
		g.Blocked == o.Blocked &&
		g.ProfileSharingEnabled == o.ProfileSharingEnabled &&
		g.Archived == o.Archived &&
		g.ForcedUnread == o.ForcedUnread &&
		g.MuteUntil == o.MuteUntil &&
		bytesEqual(g.UnknownFieldsBlob, o.UnknownFieldsBlob)
}
