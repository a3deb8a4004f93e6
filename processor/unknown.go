package processor

import (
	"context"

	"storagesync/localstore"
	"storagesync/record"
	"storagesync/storageid"
)

// ApplyUnknown carries remote-only UnknownRecords straight into local
// storage and deletes local-only unknown ids no longer present remotely.
// Unknown records are never matched, validated, or merged (§3 Invariant 5,
// §4.4 step 7 "insert/delete unknown records in bulk") — there is no
// RecordProcessor for them because the five-step Process algorithm has
// nothing to apply: no semantic key, no isInvalid check, no merge policy.
func ApplyUnknown(ctx context.Context, tx localstore.Tx, inserts []record.UnknownRecord, deletes []storageid.ID) error {
	if len(inserts) > 0 {
		if err := tx.InsertUnknownRecords(ctx, inserts); err != nil {
			return err
		}
	}
	if len(deletes) > 0 {
		if err := tx.DeleteUnknownRecords(ctx, deletes); err != nil {
			return err
		}
	}
	return nil
}
