package processor

import (
	"context"

	"storagesync/localstore"
	"storagesync/record"
)

// ContactProcessor implements RecordProcessor for storageid.RecordTypeContact
// against a localstore.Tx opened for the current sync cycle.
type ContactProcessor struct {
	Tx  localstore.Tx
	Ctx context.Context
}

func (p ContactProcessor) IsInvalid(remote record.Record) bool {
	c, ok := remote.(record.ContactRecord)
	if !ok {
		return true
	}
	// An empty service address carries no semantic identity to match or
	// dedupe against; the record is unusable and is routed to deletes.
	return c.ServiceAddress == ""
}

func (p ContactProcessor) GetMatching(remote record.Record) (record.Record, bool, error) {
	c := remote.(record.ContactRecord)
	return p.Tx.GetBySemanticKey(p.Ctx, c.Type(), c.ServiceAddress)
}

func (p ContactProcessor) Merge(remote, local record.Record) record.Record {
	r := remote.(record.ContactRecord)
	l := local.(record.ContactRecord)
	return record.ContactRecord{
		StorageID:             r.StorageID,
		ServiceAddress:        r.ServiceAddress,
		Blocked:               r.Blocked || l.Blocked,
		ProfileSharingEnabled: r.ProfileSharingEnabled || l.ProfileSharingEnabled,
		Archived:              r.Archived || l.Archived,
		ForcedUnread:          r.ForcedUnread || l.ForcedUnread,
		MuteUntil:             maxInt64(r.MuteUntil, l.MuteUntil),
		UnknownFieldsBlob:     r.UnknownFieldsBlob,
	}
}

func (p ContactProcessor) InsertLocal(remote record.Record) error {
	return p.Tx.InsertRecord(p.Ctx, remote)
}

func (p ContactProcessor) UpdateLocal(old, new record.Record) error {
	return p.Tx.UpdateRecord(p.Ctx, old, new)
}

// Compare orders by ServiceAddress; 0 iff the two records share a service
// address, which is the RecordProcessor semantic-identity contract.
func (p ContactProcessor) Compare(a, b record.Record) int {
	ka, kb := a.SemanticKey(), b.SemanticKey()
	switch {
	case ka == kb:
		return 0
	case ka < kb:
		return -1
	default:
		return 1
	}
}
