package record

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	"storagesync/storageid"
)

// GroupV2Record represents a GroupV2 group's sync-relevant state. The
// group's identity (its semantic key) is derived from MasterKey via HKDF,
// never stored as a separate field — two records with the same MasterKey
// always collide to the same local entity.
type GroupV2Record struct {
	StorageID             storageid.ID
	MasterKey             []byte // required; see §7 MissingGv2MasterKey
	Blocked               bool
	ProfileSharingEnabled bool
	Archived              bool
	ForcedUnread          bool
	MuteUntil             int64
	UnknownFieldsBlob     []byte
}

// groupV2HKDFInfo is the domain-separation label for deriving a group id
// from a GroupV2 master key, mirroring the real protocol's practice of
// deriving distinct sub-keys from one secret via labeled HKDF expansion.
var groupV2HKDFInfo = []byte("storagesync-groupv2-id")

// DeriveGroupV2ID derives a 32-byte group identifier from a GroupV2 master
// key using HKDF-SHA256 with no salt and a fixed info label. Deterministic:
// the same master key always derives the same id, which is what lets two
// independently-created records for the same group collide on semantic key.
func DeriveGroupV2ID(masterKey []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, nil, groupV2HKDFInfo)
	out := make([]byte, 32)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g GroupV2Record) ID() storageid.ID { return g.StorageID }

func (g GroupV2Record) WithID(id storageid.ID) Record {
	g.StorageID = id
	return g
}

// SemanticKey derives the group id from MasterKey. Returns an empty string
// if MasterKey is empty — the GroupV2 processor's IsInvalid routes such a
// remote record to deletes rather than silently matching on "".
func (g GroupV2Record) SemanticKey() string {
	if len(g.MasterKey) == 0 {
		return ""
	}
	id, err := DeriveGroupV2ID(g.MasterKey)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(id)
}

func (g GroupV2Record) UnknownFields() []byte { return g.UnknownFieldsBlob }

func (g GroupV2Record) Type() storageid.RecordType { return storageid.RecordTypeGroupV2 }

func (g GroupV2Record) Equal(other Record) bool {
	o, ok := other.(GroupV2Record)
	if !ok {
		return false
	}
	return bytesEqual(g.MasterKey, o.MasterKey) &&
		g.Blocked == o.Blocked &&
		g.ProfileSharingEnabled == o.ProfileSharingEnabled &&
		g.Archived == o.Archived &&
		g.ForcedUnread == o.ForcedUnread &&
		g.MuteUntil == o.MuteUntil &&
		bytesEqual(g.UnknownFieldsBlob, o.UnknownFieldsBlob)
}
