package wire_test

import (
	"testing"

	"storagesync/record"
	"storagesync/storageid"
	"storagesync/wire"
)

func TestEncodeDecodeRecord_ContactRoundTrip(t *testing.T) {
	id := storageid.ID{Type: storageid.RecordTypeContact, Raw: [16]byte{1, 2, 3}}
	c := record.ContactRecord{
		StorageID:             id,
		ServiceAddress:        "addr-1",
		Blocked:                true,
		ProfileSharingEnabled: true,
		Archived:              false,
		ForcedUnread:          true,
		MuteUntil:             12345,
		UnknownFieldsBlob:     []byte{0xca, 0xfe},
	}

	data, err := wire.EncodeRecord(c)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	decoded, err := wire.DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}

	got, ok := decoded.(record.ContactRecord)
	if !ok {
		t.Fatalf("decoded type = %T, want record.ContactRecord", decoded)
	}
	if !got.Equal(c) {
		t.Fatalf("round-tripped record differs: got %+v, want %+v", got, c)
	}
	if got.ID() != id {
		t.Fatalf("round-tripped id = %v, want %v", got.ID(), id)
	}
}

func TestEncodeDecodeRecord_UnknownFieldsSurviveByteForByte(t *testing.T) {
	blob := []byte{0x00, 0xff, 0x10, 0x20, 0x30}
	g := record.GroupV1Record{
		StorageID:         storageid.ID{Type: storageid.RecordTypeGroupV1, Raw: [16]byte{9}},
		GroupID:           []byte("legacy-group"),
		UnknownFieldsBlob: blob,
	}

	data, err := wire.EncodeRecord(g)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	decoded, err := wire.DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if string(decoded.UnknownFields()) != string(blob) {
		t.Fatalf("UnknownFields = %x, want %x", decoded.UnknownFields(), blob)
	}
}

func TestEncodeDecodeRecord_UnknownRecordRoundTrip(t *testing.T) {
	u := record.UnknownRecord{
		StorageID: storageid.ID{Type: storageid.RecordTypeUnknown, Raw: [16]byte{5}},
		TypeTag:   42,
		Payload:   []byte("opaque payload bytes"),
	}
	data, err := wire.EncodeRecord(u)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	decoded, err := wire.DecodeRecord(data)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	got, ok := decoded.(record.UnknownRecord)
	if !ok {
		t.Fatalf("decoded type = %T, want record.UnknownRecord", decoded)
	}
	if !got.Equal(u) {
		t.Fatalf("round-tripped unknown record differs: got %+v, want %+v", got, u)
	}
}

func TestEncodeDecodeFramed_MultipleRecords(t *testing.T) {
	recs := []record.Record{
		record.ContactRecord{StorageID: storageid.ID{Type: storageid.RecordTypeContact, Raw: [16]byte{1}}, ServiceAddress: "a"},
		record.AccountRecord{StorageID: storageid.ID{Type: storageid.RecordTypeAccount, Raw: [16]byte{2}}, SelfID: "self", AuthorID: "self"},
	}

	data, err := wire.EncodeFramed(recs)
	if err != nil {
		t.Fatalf("EncodeFramed: %v", err)
	}
	decoded, err := wire.DecodeFramed(data)
	if err != nil {
		t.Fatalf("DecodeFramed: %v", err)
	}
	if len(decoded) != len(recs) {
		t.Fatalf("decoded %d records, want %d", len(decoded), len(recs))
	}
	for i, r := range recs {
		if !decoded[i].Equal(r) {
			t.Errorf("record %d differs after round trip: got %+v, want %+v", i, decoded[i], r)
		}
	}
}

func TestDecodeFramed_TruncatedLengthPrefix(t *testing.T) {
	if _, err := wire.DecodeFramed([]byte{0, 0, 1}); err == nil {
		t.Fatal("expected an error decoding a truncated length prefix")
	}
}

func TestDecodeFramed_TruncatedBody(t *testing.T) {
	if _, err := wire.DecodeFramed([]byte{0, 0, 0, 10, 1, 2}); err == nil {
		t.Fatal("expected an error decoding a frame whose body is shorter than its length prefix")
	}
}

func TestEncodeDecodeManifestIDs_RoundTrip(t *testing.T) {
	ids := []storageid.ID{
		{Type: storageid.RecordTypeContact, Raw: [16]byte{1}},
		{Type: storageid.RecordTypeGroupV2, Raw: [16]byte{2}},
	}
	data := wire.EncodeManifestIDs(ids)
	decoded, err := wire.DecodeManifestIDs(data)
	if err != nil {
		t.Fatalf("DecodeManifestIDs: %v", err)
	}
	if len(decoded) != len(ids) {
		t.Fatalf("decoded %d ids, want %d", len(decoded), len(ids))
	}
	for i := range ids {
		if !decoded[i].Equal(ids[i]) {
			t.Errorf("id %d = %v, want %v", i, decoded[i], ids[i])
		}
	}
}

func TestDecodeManifestIDs_RejectsMisalignedLength(t *testing.T) {
	if _, err := wire.DecodeManifestIDs([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a byte slice not a multiple of 17")
	}
}
