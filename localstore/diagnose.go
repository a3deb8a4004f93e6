package localstore

import (
	"context"

	"github.com/rohanthewiz/serr"

	"storagesync/storageid"
)

// Diagnose reports local-row counts by type and dirty state, grounded in
// the teacher's checksum/status shape (models/sync_protocol.go,
// SyncClientStatus) — a read-only dump the demo daemon's status page
// renders, with no bearing on the sync algorithm itself.
type Diagnose struct {
	ManifestVersion uint64
	TotalLocalIDs   int
	ByType          map[storageid.RecordType]int
	PendingInserts  map[storageid.RecordType]int
	PendingUpdates  map[storageid.RecordType]int
	PendingDeletes  map[storageid.RecordType]int
}

// dirtyCountTypes are the per-row-table types the dirty-flag counts cover;
// Unknown rows are never dirty (§4.4 step 7) and Account is a singleton
// reported separately.
var dirtyCountTypes = []storageid.RecordType{
	storageid.RecordTypeContact,
	storageid.RecordTypeGroupV1,
	storageid.RecordTypeGroupV2,
}

// RunDiagnose builds a Diagnose report against the given Store.
func RunDiagnose(ctx context.Context, s Store) (Diagnose, error) {
	d := Diagnose{
		ByType:         make(map[storageid.RecordType]int),
		PendingInserts: make(map[storageid.RecordType]int),
		PendingUpdates: make(map[storageid.RecordType]int),
		PendingDeletes: make(map[storageid.RecordType]int),
	}

	v, err := s.ManifestVersion(ctx)
	if err != nil {
		return d, serr.Wrap(err, "diagnose: failed to read manifest version")
	}
	d.ManifestVersion = v

	ids, err := s.GetAllLocalStorageIDs(ctx)
	if err != nil {
		return d, serr.Wrap(err, "diagnose: failed to list local storage ids")
	}
	d.TotalLocalIDs = len(ids)
	for _, id := range ids {
		d.ByType[id.Type]++
	}

	for _, t := range dirtyCountTypes {
		ins, err := s.GetPendingInsertions(ctx, t)
		if err != nil {
			return d, serr.Wrap(err, "diagnose: failed to count pending insertions")
		}
		d.PendingInserts[t] = len(ins)

		upd, err := s.GetPendingUpdates(ctx, t)
		if err != nil {
			return d, serr.Wrap(err, "diagnose: failed to count pending updates")
		}
		d.PendingUpdates[t] = len(upd)

		del, err := s.GetPendingDeletions(ctx, t)
		if err != nil {
			return d, serr.Wrap(err, "diagnose: failed to count pending deletions")
		}
		d.PendingDeletes[t] = len(del)
	}

	_, acctState, found, err := s.GetPendingAccountChange(ctx)
	if err != nil {
		return d, serr.Wrap(err, "diagnose: failed to read pending account change")
	}
	if found {
		switch acctState {
		case PendingInsert:
			d.PendingInserts[storageid.RecordTypeAccount] = 1
		case PendingUpdate:
			d.PendingUpdates[storageid.RecordTypeAccount] = 1
		case PendingDelete:
			d.PendingDeletes[storageid.RecordTypeAccount] = 1
		}
	}

	return d, nil
}
