package processor

import (
	"bytes"
	"context"

	"storagesync/localstore"
	"storagesync/record"
)

// GroupV1Processor implements RecordProcessor for storageid.RecordTypeGroupV1.
type GroupV1Processor struct {
	Tx  localstore.Tx
	Ctx context.Context
}

func (p GroupV1Processor) IsInvalid(remote record.Record) bool {
	g, ok := remote.(record.GroupV1Record)
	if !ok {
		return true
	}
	// A group already migrated to GroupV2 has no business being carried as
	// a GV1 record any longer; a zero-length group id has no semantic
	// identity to match against.
	return g.MigratedToGV2 || len(g.GroupID) == 0
}

func (p GroupV1Processor) GetMatching(remote record.Record) (record.Record, bool, error) {
	g := remote.(record.GroupV1Record)
	return p.Tx.GetBySemanticKey(p.Ctx, g.Type(), g.SemanticKey())
}

// Merge follows §4.2's field policy. Design Notes §9 flags that the source
// sets ProfileSharingEnabled from Blocked here — this implementation keeps
// ProfileSharingEnabled as its own OR-merged field, per the spec's stated
// intent, rather than reproducing that divergence.
func (p GroupV1Processor) Merge(remote, local record.Record) record.Record {
	r := remote.(record.GroupV1Record)
	l := local.(record.GroupV1Record)
	return record.GroupV1Record{
		StorageID:             r.StorageID,
		GroupID:               r.GroupID,
		MigratedToGV2:         r.MigratedToGV2,
		Blocked:               r.Blocked || l.Blocked,
		ProfileSharingEnabled: r.ProfileSharingEnabled || l.ProfileSharingEnabled,
		Archived:              r.Archived || l.Archived,
		ForcedUnread:          r.ForcedUnread || l.ForcedUnread,
		MuteUntil:             maxInt64(r.MuteUntil, l.MuteUntil),
		UnknownFieldsBlob:     r.UnknownFieldsBlob,
	}
}

func (p GroupV1Processor) InsertLocal(remote record.Record) error {
	return p.Tx.InsertRecord(p.Ctx, remote)
}

func (p GroupV1Processor) UpdateLocal(old, new record.Record) error {
	return p.Tx.UpdateRecord(p.Ctx, old, new)
}

// Compare implements a real total order (lexicographic by group-id bytes)
// rather than the source's "1 for any non-equal pair" shortcut — §9 notes
// both satisfy the RecordProcessor 0-case contract, but a genuine order
// is preferable and just as compatible.
func (p GroupV1Processor) Compare(a, b record.Record) int {
	ga, gb := a.(record.GroupV1Record), b.(record.GroupV1Record)
	return bytes.Compare(ga.GroupID, gb.GroupID)
}
