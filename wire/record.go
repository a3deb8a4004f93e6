// Package wire implements the length-delimited framed codec records and
// manifests cross the Storage Service RPC boundary in. The framing itself
// is fixed by the service (§6); this package only needs to guarantee that
// round-tripping a record through Encode/Decode reproduces it exactly,
// including the UnknownFields blob byte-for-byte (§3 Invariant 5).
package wire

import (
	"github.com/rohanthewiz/serr"
	"github.com/vmihailenco/msgpack/v5"

	"storagesync/record"
	"storagesync/storageid"
)

// wireRecord is the on-the-wire shape for every record kind, flattened
// rather than nested per kind — msgpack's compact array/map encoding means
// the unused fields for a given Type cost nothing once trimmed by
// `msgpack:",omitempty"`, and one struct keeps the codec a single
// Marshal/Unmarshal pair instead of a type switch duplicated on both sides.
type wireRecord struct {
	Type      uint8  `msgpack:"t"`
	StorageID []byte `msgpack:"id"`

	ServiceAddress string `msgpack:"addr,omitempty"`
	GroupID        []byte `msgpack:"gid,omitempty"`
	MigratedToGV2  bool   `msgpack:"mig,omitempty"`
	MasterKey      []byte `msgpack:"mk,omitempty"`
	SelfID         string `msgpack:"self,omitempty"`
	AuthorID       string `msgpack:"auth,omitempty"`

	Blocked                 bool  `msgpack:"blk,omitempty"`
	ProfileSharingEnabled   bool  `msgpack:"shr,omitempty"`
	Archived                bool  `msgpack:"arc,omitempty"`
	ForcedUnread            bool  `msgpack:"unr,omitempty"`
	MuteUntil               int64 `msgpack:"mu,omitempty"`
	ReadReceiptsEnabled     bool  `msgpack:"rr,omitempty"`
	TypingIndicatorsEnabled bool  `msgpack:"ti,omitempty"`
	LinkPreviewsEnabled     bool  `msgpack:"lp,omitempty"`

	TypeTag uint8 `msgpack:"utt,omitempty"`

	UnknownFields []byte `msgpack:"uf,omitempty"`
}

// EncodeRecord msgpack-encodes a single record into its wire shape.
func EncodeRecord(r record.Record) ([]byte, error) {
	w := wireRecord{
		Type:          uint8(r.Type()),
		UnknownFields: r.UnknownFields(),
	}
	if !r.ID().IsZero() {
		w.StorageID = append([]byte(nil), r.ID().Raw[:]...)
	}

	switch v := r.(type) {
	case record.ContactRecord:
		w.ServiceAddress = v.ServiceAddress
		w.Blocked = v.Blocked
		w.ProfileSharingEnabled = v.ProfileSharingEnabled
		w.Archived = v.Archived
		w.ForcedUnread = v.ForcedUnread
		w.MuteUntil = v.MuteUntil
	case record.GroupV1Record:
		w.GroupID = v.GroupID
		w.MigratedToGV2 = v.MigratedToGV2
		w.Blocked = v.Blocked
		w.ProfileSharingEnabled = v.ProfileSharingEnabled
		w.Archived = v.Archived
		w.ForcedUnread = v.ForcedUnread
		w.MuteUntil = v.MuteUntil
	case record.GroupV2Record:
		w.MasterKey = v.MasterKey
		w.Blocked = v.Blocked
		w.ProfileSharingEnabled = v.ProfileSharingEnabled
		w.Archived = v.Archived
		w.ForcedUnread = v.ForcedUnread
		w.MuteUntil = v.MuteUntil
	case record.AccountRecord:
		w.SelfID = v.SelfID
		w.AuthorID = v.AuthorID
		w.ReadReceiptsEnabled = v.ReadReceiptsEnabled
		w.TypingIndicatorsEnabled = v.TypingIndicatorsEnabled
		w.LinkPreviewsEnabled = v.LinkPreviewsEnabled
		w.Archived = v.NoteToSelfArchived
		w.ForcedUnread = v.NoteToSelfForcedUnread
		w.MuteUntil = v.NoteToSelfMuteUntil
	case record.UnknownRecord:
		w.TypeTag = v.TypeTag
	default:
		return nil, serr.New("unsupported record kind for wire encoding")
	}

	data, err := msgpack.Marshal(&w)
	if err != nil {
		return nil, serr.Wrap(err, "failed to msgpack-encode record")
	}
	return data, nil
}

// DecodeRecord reconstructs a record.Record from its wire bytes.
func DecodeRecord(data []byte) (record.Record, error) {
	var w wireRecord
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return nil, serr.Wrap(err, "failed to msgpack-decode record")
	}

	t := storageid.RecordType(w.Type)
	var id storageid.ID
	if len(w.StorageID) == 16 {
		var err error
		id, err = storageid.FromBytes(t, w.StorageID)
		if err != nil {
			return nil, err
		}
	}

	switch t {
	case storageid.RecordTypeContact:
		return record.ContactRecord{
			StorageID:             id,
			ServiceAddress:        w.ServiceAddress,
			Blocked:               w.Blocked,
			ProfileSharingEnabled: w.ProfileSharingEnabled,
			Archived:              w.Archived,
			ForcedUnread:          w.ForcedUnread,
			MuteUntil:             w.MuteUntil,
			UnknownFieldsBlob:     w.UnknownFields,
		}, nil
	case storageid.RecordTypeGroupV1:
		return record.GroupV1Record{
			StorageID:             id,
			GroupID:               w.GroupID,
			MigratedToGV2:         w.MigratedToGV2,
			Blocked:               w.Blocked,
			ProfileSharingEnabled: w.ProfileSharingEnabled,
			Archived:              w.Archived,
			ForcedUnread:          w.ForcedUnread,
			MuteUntil:             w.MuteUntil,
			UnknownFieldsBlob:     w.UnknownFields,
		}, nil
	case storageid.RecordTypeGroupV2:
		return record.GroupV2Record{
			StorageID:             id,
			MasterKey:             w.MasterKey,
			Blocked:               w.Blocked,
			ProfileSharingEnabled: w.ProfileSharingEnabled,
			Archived:              w.Archived,
			ForcedUnread:          w.ForcedUnread,
			MuteUntil:             w.MuteUntil,
			UnknownFieldsBlob:     w.UnknownFields,
		}, nil
	case storageid.RecordTypeAccount:
		return record.AccountRecord{
			StorageID:               id,
			SelfID:                  w.SelfID,
			AuthorID:                w.AuthorID,
			ReadReceiptsEnabled:     w.ReadReceiptsEnabled,
			TypingIndicatorsEnabled: w.TypingIndicatorsEnabled,
			LinkPreviewsEnabled:     w.LinkPreviewsEnabled,
			NoteToSelfArchived:      w.Archived,
			NoteToSelfForcedUnread:  w.ForcedUnread,
			NoteToSelfMuteUntil:     w.MuteUntil,
			UnknownFieldsBlob:       w.UnknownFields,
		}, nil
	case storageid.RecordTypeUnknown:
		return record.UnknownRecord{
			StorageID: id,
			TypeTag:   w.TypeTag,
			Payload:   w.UnknownFields,
		}, nil
	default:
		return nil, serr.New("unrecognized record type tag on wire", "type", t)
	}
}
