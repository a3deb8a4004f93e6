package manifest_test

import (
	"testing"

	"storagesync/manifest"
	"storagesync/storageid"
)

func TestManifest_Next(t *testing.T) {
	m := manifest.Manifest{Version: 5}
	ids := []storageid.ID{{Type: storageid.RecordTypeContact}}

	next := m.Next(ids)
	if next.Version != 6 {
		t.Fatalf("Version = %d, want 6", next.Version)
	}
	if len(next.StorageIDs) != 1 {
		t.Fatalf("StorageIDs len = %d, want 1", len(next.StorageIDs))
	}
	if m.Version != 5 {
		t.Fatal("Next must not mutate the receiver")
	}
}

func TestManifest_Empty(t *testing.T) {
	if !(manifest.Manifest{}).Empty() {
		t.Fatal("a manifest with no ids must report Empty() == true")
	}
	m := manifest.Manifest{StorageIDs: []storageid.ID{{}}}
	if m.Empty() {
		t.Fatal("a manifest with ids must report Empty() == false")
	}
}

func TestManifest_Set(t *testing.T) {
	id := storageid.ID{Type: storageid.RecordTypeAccount}
	m := manifest.Manifest{StorageIDs: []storageid.ID{id}}
	if !m.Set().Contains(id) {
		t.Fatal("Set() must contain every id the manifest carries")
	}
}
