package localstore

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

func insertUnknownRecords(ctx context.Context, q queryer, recs []record.UnknownRecord) error {
	for _, r := range recs {
		_, err := q.ExecContext(ctx, `
			INSERT INTO unknown_records (storage_id_raw, type_tag, payload)
			VALUES (?, ?, ?)
			ON CONFLICT (storage_id_raw) DO UPDATE SET type_tag = excluded.type_tag, payload = excluded.payload`,
			r.StorageID.Raw[:], r.TypeTag, r.Payload)
		if err != nil {
			return serr.Wrap(err, "failed to insert unknown record")
		}
	}
	return nil
}

func deleteUnknownRecords(ctx context.Context, q queryer, ids []storageid.ID) error {
	for _, id := range ids {
		_, err := q.ExecContext(ctx, `DELETE FROM unknown_records WHERE storage_id_raw = ?`, id.Raw[:])
		if err != nil {
			return serr.Wrap(err, "failed to delete unknown record")
		}
	}
	return nil
}

func getAllUnknownStorageIDs(ctx context.Context, q queryer) ([]storageid.ID, error) {
	return scanStorageIDs(ctx, q, `SELECT storage_id_raw FROM unknown_records`, storageid.RecordTypeUnknown)
}
