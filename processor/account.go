package processor

import (
	"context"
	"strings"

	"storagesync/localstore"
	"storagesync/record"
)

// AccountProcessor implements RecordProcessor for storageid.RecordTypeAccount.
// There is exactly one account row per client; GetMatching always resolves
// to it (or not-found, on a fresh client with nothing synced yet).
type AccountProcessor struct {
	Tx  localstore.Tx
	Ctx context.Context
}

func (p AccountProcessor) IsInvalid(remote record.Record) bool {
	a, ok := remote.(record.AccountRecord)
	if !ok {
		return true
	}
	// A self-record whose author doesn't match its own self id is someone
	// else's account record masquerading as ours (§9 Design Notes).
	return a.AuthorID != a.SelfID
}

func (p AccountProcessor) GetMatching(remote record.Record) (record.Record, bool, error) {
	a := remote.(record.AccountRecord)
	return p.Tx.GetBySemanticKey(p.Ctx, a.Type(), a.SelfID)
}

func (p AccountProcessor) Merge(remote, local record.Record) record.Record {
	r := remote.(record.AccountRecord)
	l := local.(record.AccountRecord)
	return record.AccountRecord{
		StorageID:               r.StorageID,
		SelfID:                  r.SelfID,
		AuthorID:                r.AuthorID,
		ReadReceiptsEnabled:     r.ReadReceiptsEnabled,
		TypingIndicatorsEnabled: r.TypingIndicatorsEnabled,
		LinkPreviewsEnabled:     r.LinkPreviewsEnabled,
		NoteToSelfArchived:      r.NoteToSelfArchived || l.NoteToSelfArchived,
		NoteToSelfForcedUnread:  r.NoteToSelfForcedUnread || l.NoteToSelfForcedUnread,
		NoteToSelfMuteUntil:     maxInt64(r.NoteToSelfMuteUntil, l.NoteToSelfMuteUntil),
		UnknownFieldsBlob:       r.UnknownFieldsBlob,
	}
}

func (p AccountProcessor) InsertLocal(remote record.Record) error {
	return p.Tx.InsertRecord(p.Ctx, remote)
}

func (p AccountProcessor) UpdateLocal(old, new record.Record) error {
	return p.Tx.UpdateRecord(p.Ctx, old, new)
}

// Compare orders by self id. In practice there is only ever one account
// record per client, so the 0 case is the only one Process will ever
// observe in the wild; the order is total regardless.
func (p AccountProcessor) Compare(a, b record.Record) int {
	return strings.Compare(a.SemanticKey(), b.SemanticKey())
}
