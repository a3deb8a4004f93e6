package localstore

import (
	"context"
	"database/sql"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

func scanContactRow(rows interface {
	Scan(dest ...any) error
}) (record.ContactRecord, []byte, int, error) {
	var (
		key           string
		raw           sql.Null[[]byte]
		dirty         int
		blocked       bool
		sharing       bool
		archived      bool
		forcedUnread  bool
		muteUntil     int64
		unknownFields []byte
	)
	if err := rows.Scan(&key, &raw, &dirty, &blocked, &sharing, &archived, &forcedUnread, &muteUntil, &unknownFields); err != nil {
		return record.ContactRecord{}, nil, 0, err
	}
	c := record.ContactRecord{
		ServiceAddress:        key,
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
	return c, rawBytes, dirty, nil
}

func getContactBySemanticKey(ctx context.Context, q queryer, key string) (record.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT semantic_key, storage_id_raw, dirty_state, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM contacts WHERE semantic_key = ?`, key)
	c, raw, _, err := scanContactRow(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, serr.Wrap(err, "failed to look up contact by semantic key")
	}
	if len(raw) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeContact, raw)
		c.StorageID = id
	}
	return c, true, nil
}

func insertContact(ctx context.Context, q queryer, c record.ContactRecord, dirty DirtyState) error {
	var rawID []byte
	if !c.StorageID.IsZero() {
		rawID = c.StorageID.Raw[:]
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO contacts (semantic_key, storage_id_raw, dirty_state, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (semantic_key) DO UPDATE SET
			storage_id_raw = excluded.storage_id_raw,
			dirty_state = excluded.dirty_state,
			blocked = excluded.blocked,
			profile_sharing_enabled = excluded.profile_sharing_enabled,
			archived = excluded.archived,
			forced_unread = excluded.forced_unread,
			mute_until = excluded.mute_until,
			unknown_fields = excluded.unknown_fields`,
		c.ServiceAddress, rawID, int(dirty), c.Blocked, c.ProfileSharingEnabled, c.Archived, c.ForcedUnread, c.MuteUntil, c.UnknownFieldsBlob)
	if err != nil {
		return serr.Wrap(err, "failed to upsert contact")
	}
	return nil
}

func updateContactStorageID(ctx context.Context, q queryer, oldKey string, newID storageid.ID) error {
	_, err := q.ExecContext(ctx, `UPDATE contacts SET storage_id_raw = ? WHERE semantic_key = ?`, newID.Raw[:], oldKey)
	if err != nil {
		return serr.Wrap(err, "failed to rotate contact storage id")
	}
	return nil
}

func getContactByStorageID(ctx context.Context, q queryer, raw []byte) (record.Record, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT semantic_key, storage_id_raw, dirty_state, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM contacts WHERE storage_id_raw = ?`, raw)
	c, rawID, _, err := scanContactRow(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, serr.Wrap(err, "failed to look up contact by storage id")
	}
	if len(rawID) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeContact, rawID)
		c.StorageID = id
	}
	return c, true, nil
}

func pendingContacts(ctx context.Context, q queryer, dirty DirtyState) ([]record.ContactRecord, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT semantic_key, storage_id_raw, dirty_state, blocked, profile_sharing_enabled, archived, forced_unread, mute_until, unknown_fields
		FROM contacts WHERE dirty_state = ?`, int(dirty))
	if err != nil {
		return nil, serr.Wrap(err, "failed to query pending contacts")
	}
	defer rows.Close()

	var out []record.ContactRecord
	for rows.Next() {
		c, raw, _, err := scanContactRow(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan pending contact")
		}
		if len(raw) == 16 {
			id, _ := storageid.FromBytes(storageid.RecordTypeContact, raw)
			c.StorageID = id
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
