package localstore

import (
	"context"
	"strconv"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

// tableFor maps a RecordType to its backing table name. Account and
// Unknown have no entry and return an error (Account is a singleton row
// with its own helpers, Unknown has no dirty flag at all).
func tableFor(t storageid.RecordType) (string, error) {
	switch t {
	case storageid.RecordTypeContact:
		return "contacts", nil
	case storageid.RecordTypeGroupV1:
		return "group_v1", nil
	case storageid.RecordTypeGroupV2:
		return "group_v2", nil
	default:
		return "", serr.New("unsupported record type for dirty-row table lookup", "type", t.String())
	}
}

func pendingInsertions(ctx context.Context, q queryer, t storageid.RecordType) ([]record.Record, error) {
	switch t {
	case storageid.RecordTypeContact:
		rows, err := pendingContacts(ctx, q, PendingInsert)
		return toRecords(rows), err
	case storageid.RecordTypeGroupV1:
		rows, err := pendingGroupV1(ctx, q, PendingInsert)
		return toRecords(rows), err
	case storageid.RecordTypeGroupV2:
		rows, err := pendingGroupV2(ctx, q, PendingInsert)
		return toRecords(rows), err
	default:
		return nil, serr.New("unsupported record type in GetPendingInsertions", "type", t.String())
	}
}

func pendingUpdates(ctx context.Context, q queryer, t storageid.RecordType) ([]record.Record, error) {
	switch t {
	case storageid.RecordTypeContact:
		rows, err := pendingContacts(ctx, q, PendingUpdate)
		return toRecords(rows), err
	case storageid.RecordTypeGroupV1:
		rows, err := pendingGroupV1(ctx, q, PendingUpdate)
		return toRecords(rows), err
	case storageid.RecordTypeGroupV2:
		rows, err := pendingGroupV2(ctx, q, PendingUpdate)
		return toRecords(rows), err
	default:
		return nil, serr.New("unsupported record type in GetPendingUpdates", "type", t.String())
	}
}

// toRecords upgrades a slice of a concrete record kind into the Record
// interface slice callers of the Store contract expect. Generic over any
// concrete type satisfying record.Record so one helper serves all three
// per-type pending queries above.
func toRecords[T record.Record](in []T) []record.Record {
	if in == nil {
		return nil
	}
	out := make([]record.Record, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func pendingDeletions(ctx context.Context, q queryer, t storageid.RecordType) ([]storageid.ID, error) {
	table, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	return scanStorageIDs(ctx, q, "SELECT storage_id_raw FROM "+table+" WHERE dirty_state = "+strconv.Itoa(int(PendingDelete))+" AND storage_id_raw IS NOT NULL", t)
}

func getPendingAccountChange(ctx context.Context, q queryer) (record.AccountRecord, DirtyState, bool, error) {
	a, dirty, err := getAccount(ctx, q)
	if err != nil {
		return record.AccountRecord{}, Clean, false, err
	}
	if dirty == Clean {
		return record.AccountRecord{}, Clean, false, nil
	}
	return a, dirty, true, nil
}

// clearDirtyState marks rows backing ids as Clean, except rows whose
// current dirty flag is PendingDelete: those are hard-deleted, since a
// successful push means the server no longer holds that record either and
// nothing is served by retaining a "clean" tombstone row (§3 Lifecycle,
// "destroyed ... locally by PendingDelete dirty flag being flushed").
func clearDirtyState(ctx context.Context, q queryer, ids []storageid.ID) error {
	for _, id := range ids {
		if id.Type == storageid.RecordTypeAccount {
			// The singleton account row is cleared in place, never deleted.
			if _, err := q.ExecContext(ctx, "UPDATE account SET dirty_state = ? WHERE id = 1 AND storage_id_raw = ?", int(Clean), id.Raw[:]); err != nil {
				return serr.Wrap(err, "failed to clear account dirty state")
			}
			continue
		}
		table, err := tableFor(id.Type)
		if err != nil {
			// Unknown rows carry no dirty flag at all. Nothing to do here.
			continue
		}
		var dirty int
		err = q.QueryRowContext(ctx, "SELECT dirty_state FROM "+table+" WHERE storage_id_raw = ?", id.Raw[:]).Scan(&dirty)
		if err != nil {
			continue
		}
		if DirtyState(dirty) == PendingDelete {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE storage_id_raw = ?", id.Raw[:]); err != nil {
				return serr.Wrap(err, "failed to delete flushed pending-delete row")
			}
			continue
		}
		if _, err := q.ExecContext(ctx, "UPDATE "+table+" SET dirty_state = ? WHERE storage_id_raw = ?", int(Clean), id.Raw[:]); err != nil {
			return serr.Wrap(err, "failed to clear dirty state")
		}
	}
	return nil
}

// updateStorageIDs applies storage-id rotations discovered while building a
// push back onto the rows identified by RowRef, once the push has
// succeeded (§6 updateStorageIds).
func updateStorageIDs(ctx context.Context, q queryer, rotations map[RowRef]storageid.ID) error {
	for ref, id := range rotations {
		if ref.Type == storageid.RecordTypeAccount {
			if _, err := q.ExecContext(ctx, `UPDATE account SET storage_id_raw = ? WHERE id = 1`, id.Raw[:]); err != nil {
				return serr.Wrap(err, "failed to rotate account storage id")
			}
			continue
		}
		table, err := tableFor(ref.Type)
		if err != nil {
			return err
		}
		if _, err := q.ExecContext(ctx, "UPDATE "+table+" SET storage_id_raw = ? WHERE semantic_key = ?", id.Raw[:], ref.SemanticKey); err != nil {
			return serr.Wrap(err, "failed to rotate storage id")
		}
	}
	return nil
}
