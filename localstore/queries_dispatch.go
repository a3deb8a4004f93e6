package localstore

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

// getBySemanticKey and friends dispatch by storageid.RecordType to the
// per-table helpers in queries_contact.go / queries_groupv1.go / etc. This
// is the one dispatching method per concern described in store.go's doc
// comment, standing in for five near-duplicate per-type Store methods.
func getBySemanticKey(ctx context.Context, q queryer, t storageid.RecordType, key string) (record.Record, bool, error) {
	switch t {
	case storageid.RecordTypeContact:
		return getContactBySemanticKey(ctx, q, key)
	case storageid.RecordTypeGroupV1:
		return getGroupV1BySemanticKey(ctx, q, key)
	case storageid.RecordTypeGroupV2:
		return getGroupV2BySemanticKey(ctx, q, key)
	case storageid.RecordTypeAccount:
		return getAccountBySemanticKey(ctx, q, key)
	default:
		return nil, false, serr.New("unknown record type in GetBySemanticKey", "type", t.String())
	}
}

func getByStorageID(ctx context.Context, q queryer, id storageid.ID) (record.Record, bool, error) {
	raw := id.Raw[:]
	switch id.Type {
	case storageid.RecordTypeContact:
		return getContactByStorageID(ctx, q, raw)
	case storageid.RecordTypeGroupV1:
		return getGroupV1ByStorageID(ctx, q, raw)
	case storageid.RecordTypeGroupV2:
		return getGroupV2ByStorageID(ctx, q, raw)
	case storageid.RecordTypeAccount:
		return getAccountByStorageID(ctx, q, raw)
	default:
		return nil, false, serr.New("unknown record type in GetByStorageID", "type", id.Type.String())
	}
}

func insertRecord(ctx context.Context, q queryer, r record.Record) error {
	switch v := r.(type) {
	case record.ContactRecord:
		return insertContact(ctx, q, v, Clean)
	case record.GroupV1Record:
		return insertGroupV1(ctx, q, v, Clean)
	case record.GroupV2Record:
		return insertGroupV2(ctx, q, v, Clean)
	case record.AccountRecord:
		return updateAccount(ctx, q, v, Clean)
	default:
		return serr.New("unsupported record type in InsertRecord", "type", r.Type().String())
	}
}

// updateRecord applies new's attributes to the local row with new's
// semantic key (the key it shares with old), rotating its StorageId to
// new.ID(). The
// row is marked Clean — it reflects a remote merge, not a pending local
// edit (§3 Lifecycle).
func updateRecord(ctx context.Context, q queryer, old, new record.Record) error {
	switch v := new.(type) {
	case record.ContactRecord:
		return insertContact(ctx, q, v, Clean)
	case record.GroupV1Record:
		return insertGroupV1(ctx, q, v, Clean)
	case record.GroupV2Record:
		return insertGroupV2(ctx, q, v, Clean)
	case record.AccountRecord:
		return updateAccount(ctx, q, v, Clean)
	default:
		return serr.New("unsupported record type in UpdateRecord", "type", new.Type().String())
	}
}
