package processor

import (
	"context"
	"strings"

	"storagesync/localstore"
	"storagesync/record"
)

// GroupV2Processor implements RecordProcessor for storageid.RecordTypeGroupV2.
type GroupV2Processor struct {
	Tx  localstore.Tx
	Ctx context.Context
}

func (p GroupV2Processor) IsInvalid(remote record.Record) bool {
	g, ok := remote.(record.GroupV2Record)
	if !ok {
		return true
	}
	// An empty master key cannot derive a semantic key at all (§3 record
	// model) — route it to deletes rather than let it match every other
	// master-key-less record via the empty-string collision. The distinct
	// MissingGv2MasterKey Fatal condition (§7) fires later, when a local
	// row that should have a master key is found not to during
	// materialisation — a data-integrity problem, not an adversarial
	// remote input.
	return len(g.MasterKey) == 0
}

func (p GroupV2Processor) GetMatching(remote record.Record) (record.Record, bool, error) {
	g := remote.(record.GroupV2Record)
	return p.Tx.GetBySemanticKey(p.Ctx, g.Type(), g.SemanticKey())
}

func (p GroupV2Processor) Merge(remote, local record.Record) record.Record {
	r := remote.(record.GroupV2Record)
	l := local.(record.GroupV2Record)
	return record.GroupV2Record{
		StorageID:             r.StorageID,
		MasterKey:             r.MasterKey,
		Blocked:               r.Blocked || l.Blocked,
		ProfileSharingEnabled: r.ProfileSharingEnabled || l.ProfileSharingEnabled,
		Archived:              r.Archived || l.Archived,
		ForcedUnread:          r.ForcedUnread || l.ForcedUnread,
		MuteUntil:             maxInt64(r.MuteUntil, l.MuteUntil),
		UnknownFieldsBlob:     r.UnknownFieldsBlob,
	}
}

func (p GroupV2Processor) InsertLocal(remote record.Record) error {
	return p.Tx.InsertRecord(p.Ctx, remote)
}

func (p GroupV2Processor) UpdateLocal(old, new record.Record) error {
	return p.Tx.UpdateRecord(p.Ctx, old, new)
}

// Compare orders by the derived (hex-encoded) group id, giving a real total
// order over the HKDF-derived semantic key.
func (p GroupV2Processor) Compare(a, b record.Record) int {
	return strings.Compare(a.SemanticKey(), b.SemanticKey())
}
