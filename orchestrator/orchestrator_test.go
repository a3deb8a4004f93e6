package orchestrator_test

import (
	"context"
	"testing"

	"storagesync/errkind"
	"storagesync/localstore"
	"storagesync/manifest"
	"storagesync/orchestrator"
	"storagesync/record"
	"storagesync/storageid"
)

// fakeRemote is an in-memory stand-in for remote.StorageClient, letting
// orchestrator.Sync be exercised deterministically without any network I/O.
type fakeRemote struct {
	manifest     manifest.Manifest
	records      map[storageid.ID]record.Record
	writeCalls   int
	conflictOnce *manifest.Manifest // if set, the next WriteRecords call returns this conflict once
}

func newFakeRemote(m manifest.Manifest, recs ...record.Record) *fakeRemote {
	fr := &fakeRemote{manifest: m, records: make(map[storageid.ID]record.Record)}
	for _, r := range recs {
		fr.records[r.ID()] = r
	}
	return fr
}

func (f *fakeRemote) GetManifestIfDifferent(ctx context.Context, accountKey string, knownVersion uint64) (*manifest.Manifest, error) {
	if f.manifest.Version <= knownVersion {
		return nil, nil
	}
	m := f.manifest
	return &m, nil
}

func (f *fakeRemote) ReadRecords(ctx context.Context, accountKey string, ids []storageid.ID) ([]record.Record, error) {
	var out []record.Record
	for _, id := range ids {
		if r, ok := f.records[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRemote) WriteRecords(ctx context.Context, accountKey string, next manifest.Manifest, inserts []record.Record, deletes []storageid.ID) (*manifest.Manifest, error) {
	f.writeCalls++
	if f.conflictOnce != nil {
		c := f.conflictOnce
		f.conflictOnce = nil
		return c, nil
	}
	for _, id := range deletes {
		delete(f.records, id)
	}
	for _, r := range inserts {
		f.records[r.ID()] = r
	}
	f.manifest = next
	return nil, nil
}

func openStore(t *testing.T) *localstore.DuckStore {
	t.Helper()
	s, err := localstore.Open("")
	if err != nil {
		t.Fatalf("localstore.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func contactID(b byte) storageid.ID {
	return storageid.ID{Type: storageid.RecordTypeContact, Raw: [16]byte{b}}
}

func groupV1ID(b byte) storageid.ID {
	return storageid.ID{Type: storageid.RecordTypeGroupV1, Raw: [16]byte{b}}
}

func TestSync_S1_NoOpWhenVersionsMatch(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 4); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	remoteManifest := manifest.Manifest{Version: 4}
	fr := newFakeRemote(remoteManifest)

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	outcome, err := orchestrator.Sync(ctx, deps)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if outcome.NeedsMultiDeviceSync {
		t.Fatal("a no-op sync must not require a multi-device notify")
	}
	if fr.writeCalls != 0 {
		t.Fatalf("writeCalls = %d, want 0 for a no-op sync", fr.writeCalls)
	}
	v, err := store.ManifestVersion(ctx)
	if err != nil {
		t.Fatalf("ManifestVersion: %v", err)
	}
	if v != 4 {
		t.Fatalf("ManifestVersion = %d, want 4 (unchanged)", v)
	}
}

func TestSync_S2_RemoteOnlyContactMaterializesLocally(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 4); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	newRecID := contactID(1)
	newRec := record.ContactRecord{StorageID: newRecID, ServiceAddress: "K1", Blocked: true}
	remoteManifest := manifest.Manifest{Version: 5, StorageIDs: []storageid.ID{newRecID}}
	fr := newFakeRemote(remoteManifest, newRec)

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	if _, err := orchestrator.Sync(ctx, deps); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, found, err := store.GetBySemanticKey(ctx, storageid.RecordTypeContact, "K1")
	if err != nil {
		t.Fatalf("GetBySemanticKey: %v", err)
	}
	if !found {
		t.Fatal("expected the remote-only contact to be materialised locally")
	}
	if !got.(record.ContactRecord).Blocked {
		t.Fatal("materialised contact must carry the remote attributes (Blocked=true)")
	}

	v, err := store.ManifestVersion(ctx)
	if err != nil {
		t.Fatalf("ManifestVersion: %v", err)
	}
	if v != 5 {
		t.Fatalf("ManifestVersion = %d, want 5", v)
	}
	if fr.writeCalls != 0 {
		t.Fatalf("writeCalls = %d, want 0 (no remote write needed for a pure remote-only pull)", fr.writeCalls)
	}
}

func TestSync_S3_LocalDirtyContactPushesWithNewStorageID(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 5); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	oldID := contactID(1)
	if err := store.InsertRecord(ctx, record.ContactRecord{StorageID: oldID, ServiceAddress: "K1", Blocked: false}); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	// Mark the row dirty (PendingUpdate): stands in for whatever local-edit
	// surface outside this engine originates a pending change.
	if err := markContactDirty(ctx, store, "K1", localstore.PendingUpdate); err != nil {
		t.Fatalf("markContactDirty: %v", err)
	}

	remoteManifest := manifest.Manifest{Version: 5, StorageIDs: []storageid.ID{oldID}}
	fr := newFakeRemote(remoteManifest, record.ContactRecord{StorageID: oldID, ServiceAddress: "K1", Blocked: false})

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	outcome, err := orchestrator.Sync(ctx, deps)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !outcome.NeedsMultiDeviceSync {
		t.Fatal("pushing a local change must require a multi-device notify")
	}
	if fr.writeCalls != 1 {
		t.Fatalf("writeCalls = %d, want 1", fr.writeCalls)
	}
	if fr.manifest.Version != 6 {
		t.Fatalf("server manifest version = %d, want 6", fr.manifest.Version)
	}
	if _, stillThere := fr.records[oldID]; stillThere {
		t.Fatal("the old storage id must have been deleted remotely")
	}

	v, err := store.ManifestVersion(ctx)
	if err != nil {
		t.Fatalf("ManifestVersion: %v", err)
	}
	if v != 6 {
		t.Fatalf("local ManifestVersion after push = %d, want 6", v)
	}
}

func TestSync_S6_WriteConflictRaisesRetryLaterWithoutAdvancingVersion(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 5); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	oldID := contactID(1)
	if err := store.InsertRecord(ctx, record.ContactRecord{StorageID: oldID, ServiceAddress: "K1"}); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := markContactDirty(ctx, store, "K1", localstore.PendingUpdate); err != nil {
		t.Fatalf("markContactDirty: %v", err)
	}

	remoteManifest := manifest.Manifest{Version: 5, StorageIDs: []storageid.ID{oldID}}
	fr := newFakeRemote(remoteManifest, record.ContactRecord{StorageID: oldID, ServiceAddress: "K1"})
	conflictManifest := manifest.Manifest{Version: 8}
	fr.conflictOnce = &conflictManifest

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	_, err := orchestrator.Sync(ctx, deps)
	if err == nil {
		t.Fatal("expected an error when the remote write is rejected with a conflict")
	}
	if got := errkind.Classify(err); got != errkind.DispositionRetryLater {
		t.Fatalf("Classify(err) = %v, want RetryLater", got)
	}

	v, err := store.ManifestVersion(ctx)
	if err != nil {
		t.Fatalf("ManifestVersion: %v", err)
	}
	if v != 5 {
		t.Fatalf("local ManifestVersion after a rejected push = %d, want unchanged 5", v)
	}

	rows, err := store.GetPendingUpdates(ctx, storageid.RecordTypeContact)
	if err != nil {
		t.Fatalf("GetPendingUpdates: %v", err)
	}
	if len(rows) != 1 {
		t.Fatal("dirty flag must remain set after a rejected push so the row is retried next cycle")
	}
}

func TestSync_S4_ThreeWayMergeProducesNewStorageIDAndAdvancesVersion(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 5); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	oldID := contactID(1)
	remoteID := contactID(2)
	if err := store.InsertRecord(ctx, record.ContactRecord{StorageID: oldID, ServiceAddress: "K1", Archived: true}); err != nil {
		t.Fatalf("InsertRecord: %v", err)
	}
	if err := markContactDirty(ctx, store, "K1", localstore.PendingUpdate); err != nil {
		t.Fatalf("markContactDirty: %v", err)
	}

	// The remote's K1 carries its own distinct StorageId — per §3, any
	// attribute change rotates the StorageId, so the remote and local
	// copies of the same semantic key never share one. This is also what
	// makes keydiff.Compute see a non-empty difference so the merge
	// actually runs instead of short-circuiting at §4.4 step 5.
	remoteManifest := manifest.Manifest{Version: 6, StorageIDs: []storageid.ID{remoteID}}
	fr := newFakeRemote(remoteManifest, record.ContactRecord{StorageID: remoteID, ServiceAddress: "K1", Blocked: true})

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	outcome, err := orchestrator.Sync(ctx, deps)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !outcome.NeedsMultiDeviceSync {
		t.Fatal("a merged write must require a multi-device notify")
	}
	if fr.writeCalls != 1 {
		t.Fatalf("writeCalls = %d, want 1", fr.writeCalls)
	}
	if fr.manifest.Version != 7 {
		t.Fatalf("server manifest version = %d, want 7", fr.manifest.Version)
	}
	if _, stillThere := fr.records[remoteID]; stillThere {
		t.Fatal("the old (pre-merge remote) storage id must have been deleted remotely")
	}

	var merged record.ContactRecord
	found := false
	for _, r := range fr.records {
		if c, ok := r.(record.ContactRecord); ok && c.ServiceAddress == "K1" {
			merged, found = c, true
		}
	}
	if !found {
		t.Fatal("expected the merged K1 contact to appear under a new remote storage id")
	}
	if !merged.Archived || !merged.Blocked {
		t.Fatalf("merged contact = %+v, want both Archived and Blocked set", merged)
	}

	got, localFound, err := store.GetBySemanticKey(ctx, storageid.RecordTypeContact, "K1")
	if err != nil {
		t.Fatalf("GetBySemanticKey: %v", err)
	}
	if !localFound {
		t.Fatal("expected the local K1 row to still exist after merge")
	}
	gotContact := got.(record.ContactRecord)
	if !gotContact.Archived || !gotContact.Blocked {
		t.Fatalf("local merged contact = %+v, want both Archived and Blocked set", gotContact)
	}
	if gotContact.StorageID == oldID {
		t.Fatal("the local row must have been rotated to the new storage id after the merge push")
	}

	v, err := store.ManifestVersion(ctx)
	if err != nil {
		t.Fatalf("ManifestVersion: %v", err)
	}
	if v != 7 {
		t.Fatalf("local ManifestVersion after merge push = %d, want 7", v)
	}
}

func TestSync_S5_DuplicateRemoteRecordsCoalesceToOneLocalEntity(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 5); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	dupA := contactID(1)
	dupB := contactID(2)
	remoteManifest := manifest.Manifest{Version: 6, StorageIDs: []storageid.ID{dupA, dupB}}
	fr := newFakeRemote(remoteManifest,
		record.ContactRecord{StorageID: dupA, ServiceAddress: "K1", Blocked: true},
		record.ContactRecord{StorageID: dupB, ServiceAddress: "K1", Blocked: false},
	)

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	outcome, err := orchestrator.Sync(ctx, deps)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	got, found, err := store.GetBySemanticKey(ctx, storageid.RecordTypeContact, "K1")
	if err != nil {
		t.Fatalf("GetBySemanticKey: %v", err)
	}
	if !found {
		t.Fatal("expected exactly one local representative for the duplicated K1 key")
	}
	_ = got

	if fr.writeCalls != 1 {
		t.Fatalf("writeCalls = %d, want 1 (one of the duplicates must be pruned remotely)", fr.writeCalls)
	}
	if !outcome.NeedsMultiDeviceSync {
		t.Fatal("pruning a duplicate remotely must require a multi-device notify")
	}

	remaining := 0
	for id := range fr.records {
		if id.Type == storageid.RecordTypeContact {
			remaining++
		}
	}
	if remaining != 1 {
		t.Fatalf("remote must end up with exactly one contact record for K1, got %d", remaining)
	}
}

func TestSync_SemanticKeyCollisionAcrossTypesTriggersForcePush(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	if err := store.SetManifestVersion(ctx, 5); err != nil {
		t.Fatalf("SetManifestVersion: %v", err)
	}

	// Two decoded remote-only records of different kinds collide on
	// semantic key ("ab"): a Contact whose ServiceAddress is literally
	// "ab", and a GroupV1 record whose GroupID hex-encodes to "ab". Their
	// StorageId raw bytes are distinct, so keydiff.Compute's raw-byte pass
	// sees no mismatch — only the semantic-key pass (§4.1's second clause)
	// can catch this, and it only becomes checkable once both records are
	// fetched and decoded.
	cID := contactID(1)
	gID := groupV1ID(2)
	remoteManifest := manifest.Manifest{Version: 6, StorageIDs: []storageid.ID{cID, gID}}
	fr := newFakeRemote(remoteManifest,
		record.ContactRecord{StorageID: cID, ServiceAddress: "ab"},
		record.GroupV1Record{StorageID: gID, GroupID: []byte{0xab}},
	)

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: "acct-1"}
	outcome, err := orchestrator.Sync(ctx, deps)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if outcome.ForcePush == nil {
		t.Fatal("a semantic key shared across two record types must trigger a force-push request")
	}
}

func TestSync_NotReadySkipsSilentlyWhenAccountKeyEmpty(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	fr := newFakeRemote(manifest.Manifest{Version: 1})

	deps := orchestrator.Deps{Store: store, Remote: fr, KeyGen: storageid.NewKeyGenerator(), AccountKey: ""}
	outcome, err := orchestrator.Sync(ctx, deps)
	if err != nil {
		t.Fatalf("Sync with no account key must not error, got: %v", err)
	}
	if outcome.NeedsMultiDeviceSync || outcome.ForcePush != nil {
		t.Fatal("a not-ready sync must report a bare empty outcome")
	}
	if fr.writeCalls != 0 {
		t.Fatal("a not-ready sync must never call the remote")
	}
}

// markContactDirty flags a contact row as having a pending local change,
// standing in for whatever local-edit code path (outside this engine) would
// normally call DuckStore.MarkDirty after a user edits a contact.
func markContactDirty(ctx context.Context, s *localstore.DuckStore, semanticKey string, state localstore.DirtyState) error {
	return s.MarkDirty(ctx, storageid.RecordTypeContact, semanticKey, state)
}
