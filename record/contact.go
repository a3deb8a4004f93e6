package record

import "storagesync/storageid"

// ContactRecord mirrors a per-device contact entry: blocking state, profile
// sharing consent, and notification preferences for one service address.
type ContactRecord struct {
	StorageID             storageid.ID
	ServiceAddress        string // semantic key: e164/UUID-style service identifier, or legacy identifier
	Blocked               bool
	ProfileSharingEnabled bool
	Archived              bool
	ForcedUnread          bool
	MuteUntil             int64 // unix millis; 0 means not muted
	UnknownFieldsBlob     []byte
}

func (c ContactRecord) ID() storageid.ID { return c.StorageID }

func (c ContactRecord) WithID(id storageid.ID) Record {
	c.StorageID = id
	return c
}

func (c ContactRecord) SemanticKey() string { return c.ServiceAddress }

func (c ContactRecord) UnknownFields() []byte { return c.UnknownFieldsBlob }

func (c ContactRecord) Type() storageid.RecordType { return storageid.RecordTypeContact }

func (c ContactRecord) Equal(other Record) bool {
	o, ok := other.(ContactRecord)
	if !ok {
		return false
	}
	return c.ServiceAddress == o.ServiceAddress &&
		c.Blocked == o.Blocked &&
		c.ProfileSharingEnabled == o.ProfileSharingEnabled &&
		c.Archived == o.Archived &&
		c.ForcedUnread == o.ForcedUnread &&
		c.MuteUntil == o.MuteUntil &&
		bytesEqual(c.UnknownFieldsBlob, o.UnknownFieldsBlob)
}
