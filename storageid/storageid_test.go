package storageid_test

import (
	"testing"

	"storagesync/storageid"
)

func TestID_EqualRequiresSameType(t *testing.T) {
	raw := [16]byte{1, 2, 3}
	a := storageid.ID{Type: storageid.RecordTypeContact, Raw: raw}
	b := storageid.ID{Type: storageid.RecordTypeGroupV1, Raw: raw}

	if a.Equal(b) {
		t.Fatal("ids with identical raw bytes but different types must not be equal")
	}
	if !a.Equal(a) {
		t.Fatal("an id must equal itself")
	}
}

func TestID_KeyFoldsInType(t *testing.T) {
	raw := [16]byte{9, 9, 9}
	a := storageid.ID{Type: storageid.RecordTypeContact, Raw: raw}
	b := storageid.ID{Type: storageid.RecordTypeAccount, Raw: raw}

	if a.Key() == b.Key() {
		t.Fatal("Key() must differ across types even with identical raw bytes")
	}
}

func TestKeyGenerator_GeneratesDistinctIDs(t *testing.T) {
	gen := storageid.NewKeyGenerator()

	first, err := gen.Generate(storageid.RecordTypeContact)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := gen.Generate(storageid.RecordTypeContact)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if first.Equal(second) {
		t.Fatal("two successive Generate calls must never produce the same id")
	}
	if first.IsZero() || second.IsZero() {
		t.Fatal("a freshly generated id must never be the zero value")
	}
}

func TestFromBytes_RejectsWrongLength(t *testing.T) {
	if _, err := storageid.FromBytes(storageid.RecordTypeContact, []byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a raw payload shorter than 16 bytes")
	}
}

func TestFromBytes_RoundTrip(t *testing.T) {
	raw := make([]byte, 16)
	for i := range raw {
		raw[i] = byte(i)
	}
	id, err := storageid.FromBytes(storageid.RecordTypeGroupV2, raw)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if id.Type != storageid.RecordTypeGroupV2 {
		t.Fatalf("type = %v, want GroupV2", id.Type)
	}
	for i, b := range raw {
		if id.Raw[i] != b {
			t.Fatalf("raw byte %d = %d, want %d", i, id.Raw[i], b)
		}
	}
}

func TestRecordType_String(t *testing.T) {
	cases := map[storageid.RecordType]string{
		storageid.RecordTypeContact:  "contact",
		storageid.RecordTypeGroupV1:  "groupV1",
		storageid.RecordTypeGroupV2:  "groupV2",
		storageid.RecordTypeAccount:  "account",
		storageid.RecordTypeUnknown:  "unknown",
		storageid.RecordType(99):     "invalid",
	}
	for rt, want := range cases {
		if got := rt.String(); got != want {
			t.Errorf("RecordType(%d).String() = %q, want %q", rt, got, want)
		}
	}
}
