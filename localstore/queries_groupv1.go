package localstore

import (
	"context"
	"database/sql"
	"encoding/hex"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

func scanGroupV1Row(rows interface {
	Scan(dest ...any) error
}) (record.GroupV1Record, []byte, error) {
	var (
		key           string
		raw           sql.Null[[]byte]
		groupID       []byte
		migrated      bool
		blocked       bool
		sharing       bool
		archived      bool
		forcedUnread  bool
		muteUntil     int64
		unknownFields []byte
	)
	if err := rows.Scan(&key, &raw, &groupID, &migrated, &blocked, &sharing, &archived, &forcedUnread, &muteUntil, &unknownFields); err != nil {
		_ = key
		return record.GroupV1Record{}, nil, err
	}
	g := record.GroupV1Record{
		GroupID:               groupID,
		MigratedToGV2:         migrated,
		Blocked:               blocked,
		ProfileSharingEnabled: sharing,
		Archived:              archived,
		ForcedUnread:          forcedUnread,
		MuteUntil:             muteUntil,
		UnknownFieldsBlob:     unknownFields,
	}
	var rawBytes []byte
	if raw.Valid {
		rawBytes = raw.V
	}
	return g, rawBytes, nil
}

func getGroupV1BySemanticKey(ctx context.Context, q queryer, key string) (record.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT semantic_key, storage_id_raw, group_id, migrated_to_gv2, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM group_v1 WHERE semantic_key = ?`, key)
	g, raw, err := scanGroupV1Row(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, serr.Wrap(err, "failed to look up group_v1 by semantic key")
	}
	if len(raw) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeGroupV1, raw)
		g.StorageID = id
	}
	return g, true, nil
}

func getGroupV1ByStorageID(ctx context.Context, q queryer, raw []byte) (record.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT semantic_key, storage_id_raw, group_id, migrated_to_gv2, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM group_v1 WHERE storage_id_raw = ?`, raw)
	g, rawID, err := scanGroupV1Row(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, serr.Wrap(err, "failed to look up group_v1 by storage id")
	}
	if len(rawID) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeGroupV1, rawID)
		g.StorageID = id
	}
	return g, true, nil
}

func insertGroupV1(ctx context.Context, q queryer, g record.GroupV1Record, dirty DirtyState) error {
	var rawID []byte
	if !g.StorageID.IsZero() {
		rawID = g.StorageID.Raw[:]
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO group_v1 (semantic_key, storage_id_raw, group_id, migrated_to_gv2, dirty_state, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (semantic_key) DO UPDATE SET
			storage_id_raw = excluded.storage_id_raw,
			group_id = excluded.group_id,
			migrated_to_gv2 = excluded.migrated_to_gv2,
			dirty_state = excluded.dirty_state,
			blocked = excluded.blocked,
			profile_sharing_enabled = excluded.profile_sharing_enabled,
			archived = excluded.archived,
			forced_unread = excluded.forced_unread,
			mute_until = excluded.mute_until,
			unknown_fields = excluded.unknown_fields`,
		hex.EncodeToString(g.GroupID), rawID, g.GroupID, g.MigratedToGV2, int(dirty),
		g.Blocked, g.ProfileSharingEnabled, g.Archived, g.ForcedUnread, g.MuteUntil, g.UnknownFieldsBlob)
	if err != nil {
		return serr.Wrap(err, "failed to upsert group_v1")
	}
	return nil
}

func pendingGroupV1(ctx context.Context, q queryer, dirty DirtyState) ([]record.GroupV1Record, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT semantic_key, storage_id_raw, group_id, migrated_to_gv2, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM group_v1 WHERE dirty_state = ?`, int(dirty))
	if err != nil {
		return nil, serr.Wrap(err, "failed to query pending group_v1 rows")
	}
	defer rows.Close()

	var out []record.GroupV1Record
	for rows.Next() {
		g, raw, err := scanGroupV1Row(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan pending group_v1 row")
		}
		if len(raw) == 16 {
			id, _ := storageid.FromBytes(storageid.RecordTypeGroupV1, raw)
			g.StorageID = id
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
