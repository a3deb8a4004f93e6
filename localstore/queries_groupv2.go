package localstore

import (
	"context"
	"database/sql"
	"encoding/hex"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

func scanGroupV2Row(rows interface {
	Scan(dest ...any) error
}) (record.GroupV2Record, []byte, error) {
	var (
		key           string
		raw           sql.Null[[]byte]
		masterKey     []byte
		blocked       bool
		sharing       bool
		archived      bool
		forcedUnread  bool
		muteUntil     int64
		unknownFields []byte
	)
	if err := rows.Scan(&key, &raw, &masterKey, &blocked, &sharing, &archived, &forcedUnread, &muteUntil, &unknownFields); err != nil {
		return record.GroupV2Record{}, nil, err
	}
	g := record.GroupV2Record{
		MasterKey:             masterKey,
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

func getGroupV2BySemanticKey(ctx context.Context, q queryer, key string) (record.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT semantic_key, storage_id_raw, master_key, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM group_v2 WHERE semantic_key = ?`, key)
	g, raw, err := scanGroupV2Row(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, serr.Wrap(err, "failed to look up group_v2 by semantic key")
	}
	if len(raw) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeGroupV2, raw)
		g.StorageID = id
	}
	return g, true, nil
}

func getGroupV2ByStorageID(ctx context.Context, q queryer, raw []byte) (record.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT semantic_key, storage_id_raw, master_key, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM group_v2 WHERE storage_id_raw = ?`, raw)
	g, rawID, err := scanGroupV2Row(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, serr.Wrap(err, "failed to look up group_v2 by storage id")
	}
	if len(rawID) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeGroupV2, rawID)
		g.StorageID = id
	}
	return g, true, nil
}

func insertGroupV2(ctx context.Context, q queryer, g record.GroupV2Record, dirty DirtyState) error {
	var rawID []byte
	if !g.StorageID.IsZero() {
		rawID = g.StorageID.Raw[:]
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO group_v2 (semantic_key, storage_id_raw, master_key, dirty_state, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (semantic_key) DO UPDATE SET
			storage_id_raw = excluded.storage_id_raw,
			master_key = excluded.master_key,
			dirty_state = excluded.dirty_state,
			blocked = excluded.blocked,
			profile_sharing_enabled = excluded.profile_sharing_enabled,
			archived = excluded.archived,
			forced_unread = excluded.forced_unread,
			mute_until = excluded.mute_until,
			unknown_fields = excluded.unknown_fields`,
		semanticKeyForGroupV2(g), rawID, g.MasterKey, int(dirty),
		g.Blocked, g.ProfileSharingEnabled, g.Archived, g.ForcedUnread, g.MuteUntil, g.UnknownFieldsBlob)
	if err != nil {
		return serr.Wrap(err, "failed to upsert group_v2")
	}
	return nil
}

// semanticKeyForGroupV2 persists the derived GV2 identity (§3 groupId
// derivation via HKDF) as the row's stable key, falling back to the hex
// master key when derivation isn't available (e.g. a malformed remote
// record already routed to IsInvalid upstream, but still worth a key for
// the upsert to succeed on).
func semanticKeyForGroupV2(g record.GroupV2Record) string {
	if k := g.SemanticKey(); k != "" {
		return k
	}
	return hex.EncodeToString(g.MasterKey)
}

func pendingGroupV2(ctx context.Context, q queryer, dirty DirtyState) ([]record.GroupV2Record, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT semantic_key, storage_id_raw, master_key, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM group_v2 WHERE dirty_state = ?`, int(dirty))
	if err != nil {
		return nil, serr.Wrap(err, "failed to query pending group_v2 rows")
	}
	defer rows.Close()

	var out []record.GroupV2Record
	for rows.Next() {
		g, raw, err := scanGroupV2Row(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan pending group_v2 row")
		}
		if len(raw) == 16 {
			id, _ := storageid.FromBytes(storageid.RecordTypeGroupV2, raw)
			g.StorageID = id
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
