package record

import "storagesync/storageid"

// AccountRecord carries the self account's sync-relevant settings. There is
// exactly one per account; its semantic key is the account's own self
// identifier. AuthorID is carried separately so the processor can detect a
// "self-record author mismatch" (someone else's identifier masquerading as
// the account record) without conflating it with the semantic key itself.
type AccountRecord struct {
	StorageID               storageid.ID
	SelfID                  string // semantic key
	AuthorID                string // must equal SelfID or the record is invalid
	ReadReceiptsEnabled     bool
	TypingIndicatorsEnabled bool
	LinkPreviewsEnabled     bool
	NoteToSelfArchived      bool
	NoteToSelfForcedUnread  bool
	NoteToSelfMuteUntil     int64
	UnknownFieldsBlob       []byte
}

func (a AccountRecord) ID() storageid.ID { return a.StorageID }

func (a AccountRecord) WithID(id storageid.ID) Record {
	a.StorageID = id
	return a
}

func (a AccountRecord) SemanticKey() string { return a.SelfID }

func (a AccountRecord) UnknownFields() []byte { return a.UnknownFieldsBlob }

func (a AccountRecord) Type() storageid.RecordType { return storageid.RecordTypeAccount }

func (a AccountRecord) Equal(other Record) bool {
	o, ok := other.(AccountRecord)
	if !ok {
		return false
	}
	return a.SelfID == o.SelfID &&
		a.AuthorID == o.AuthorID &&
		a.ReadReceiptsEnabled == o.ReadReceiptsEnabled &&
		a.TypingIndicatorsEnabled == o.TypingIndicatorsEnabled &&
		a.LinkPreviewsEnabled == o.LinkPreviewsEnabled &&
		a.NoteToSelfArchived == o.NoteToSelfArchived &&
		a.NoteToSelfForcedUnread == o.NoteToSelfForcedUnread &&
		a.NoteToSelfMuteUntil == o.NoteToSelfMuteUntil &&
		bytesEqual(a.UnknownFieldsBlob, o.UnknownFieldsBlob)
}
