package localstore

import (
	"context"
	"database/sql"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

// account is a DuckDB singleton row (id = 1), grounded in the teacher's
// models/db.go single-user assumption generalized to one Account record.

func scanAccountRow(rows interface {
	Scan(dest ...any) error
}) (record.AccountRecord, []byte, DirtyState, error) {
	var (
		selfID, authorID string
		raw              sql.Null[[]byte]
		dirty            int
		readReceipts     bool
		typingIndicators bool
		linkPreviews     bool
		archived         bool
		forcedUnread     bool
		muteUntil        int64
		unknownFields    []byte
	)
	if err := rows.Scan(&selfID, &authorID, &raw, &dirty, &readReceipts, &typingIndicators, &linkPreviews, &archived, &forcedUnread, &muteUntil, &unknownFields); err != nil {
		return record.AccountRecord{}, nil, Clean, err
	}
	a := record.AccountRecord{
		SelfID:                  selfID,
		AuthorID:                authorID,
		ReadReceiptsEnabled:     readReceipts,
		TypingIndicatorsEnabled: typingIndicators,
		LinkPreviewsEnabled:     linkPreviews,
		NoteToSelfArchived:      archived,
		NoteToSelfForcedUnread:  forcedUnread,
		NoteToSelfMuteUntil:     muteUntil,
		UnknownFieldsBlob:       unknownFields,
	}
	var rawBytes []byte
	if raw.Valid {
		rawBytes = raw.V
	}
	return a, rawBytes, DirtyState(dirty), nil
}

const accountSelectCols = `self_id, author_id, storage_id_raw, dirty_state, read_receipts_enabled, typing_indicators_enabled, link_previews_enabled, note_to_self_archived, note_to_self_forced_unread, note_to_self_mute_until, unknown_fields`

func getAccount(ctx context.Context, q queryer) (record.AccountRecord, DirtyState, error) {
	row := q.QueryRowContext(ctx, `SELECT `+accountSelectCols+` FROM account WHERE id = 1`)
	a, raw, dirty, err := scanAccountRow(row)
	if err != nil {
		return record.AccountRecord{}, Clean, serr.Wrap(err, "failed to read account row")
	}
	if len(raw) == 16 {
		id, _ := storageid.FromBytes(storageid.RecordTypeAccount, raw)
		a.StorageID = id
	}
	return a, dirty, nil
}

func getAccountBySemanticKey(ctx context.Context, q queryer, key string) (record.Record, bool, error) {
	a, _, err := getAccount(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if a.SemanticKey() != key {
		return nil, false, nil
	}
	return a, true, nil
}

func getAccountByStorageID(ctx context.Context, q queryer, raw []byte) (record.Record, bool, error) {
	a, _, err := getAccount(ctx, q)
	if err != nil {
		return nil, false, err
	}
	if a.StorageID.IsZero() || string(a.StorageID.Raw[:]) != string(raw) {
		return nil, false, nil
	}
	return a, true, nil
}

func updateAccount(ctx context.Context, q queryer, a record.AccountRecord, dirty DirtyState) error {
	var rawID []byte
	if !a.StorageID.IsZero() {
		rawID = a.StorageID.Raw[:]
	}
	_, err := q.ExecContext(ctx, `
		UPDATE account SET
			self_id = ?, author_id = ?, storage_id_raw = ?, dirty_state = ?,
			read_receipts_enabled = ?, typing_indicators_enabled = ?, link_previews_enabled = ?,
			note_to_self_archived = ?, note_to_self_forced_unread = ?, note_to_self_mute_until = ?,
			unknown_fields = ?
		WHERE id = 1`,
		a.SelfID, a.AuthorID, rawID, int(dirty),
		a.ReadReceiptsEnabled, a.TypingIndicatorsEnabled, a.LinkPreviewsEnabled,
		a.NoteToSelfArchived, a.NoteToSelfForcedUnread, a.NoteToSelfMuteUntil,
		a.UnknownFieldsBlob)
	if err != nil {
		return serr.Wrap(err, "failed to update account row")
	}
	return nil
}
