package localstore

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/storageid"
)

func manifestVersion(ctx context.Context, q queryer) (uint64, error) {
	var v uint64
	err := q.QueryRowContext(ctx, `SELECT manifest_version FROM sync_state WHERE id = 1`).Scan(&v)
	if err != nil {
		return 0, serr.Wrap(err, "failed to read manifest version")
	}
	return v, nil
}

func setManifestVersion(ctx context.Context, q queryer, v uint64) error {
	_, err := q.ExecContext(ctx, `UPDATE sync_state SET manifest_version = ? WHERE id = 1`, v)
	if err != nil {
		return serr.Wrap(err, "failed to persist manifest version")
	}
	return nil
}

// getAllLocalStorageIDs concatenates per-type local id lists plus the
// account id plus unknown-type ids (§4.4 step 3). Rows with a NULL
// storage_id_raw (not yet synced once) are skipped — they have no
// StorageId to contribute yet.
func getAllLocalStorageIDs(ctx context.Context, q queryer) ([]storageid.ID, error) {
	var out []storageid.ID

	tables := []struct {
		table string
		typ   storageid.RecordType
	}{
		{"contacts", storageid.RecordTypeContact},
		{"group_v1", storageid.RecordTypeGroupV1},
		{"group_v2", storageid.RecordTypeGroupV2},
	}
	for _, t := range tables {
		ids, err := scanStorageIDs(ctx, q, "SELECT storage_id_raw FROM "+t.table+" WHERE storage_id_raw IS NOT NULL", t.typ)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}

	accountIDs, err := scanStorageIDs(ctx, q, `SELECT storage_id_raw FROM account WHERE id = 1 AND storage_id_raw IS NOT NULL`, storageid.RecordTypeAccount)
	if err != nil {
		return nil, err
	}
	out = append(out, accountIDs...)

	unknownIDs, err := scanStorageIDs(ctx, q, `SELECT storage_id_raw FROM unknown_records`, storageid.RecordTypeUnknown)
	if err != nil {
		return nil, err
	}
	out = append(out, unknownIDs...)

	return out, nil
}

func scanStorageIDs(ctx context.Context, q queryer, query string, t storageid.RecordType) ([]storageid.ID, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, serr.Wrap(err, "failed to query storage ids")
	}
	defer rows.Close()

	var out []storageid.ID
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, serr.Wrap(err, "failed to scan storage id")
		}
		id, err := storageid.FromBytes(t, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
