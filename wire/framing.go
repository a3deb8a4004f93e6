package wire

import (
	"encoding/binary"

	"github.com/rohanthewiz/serr"

	"storagesync/record"
	"storagesync/storageid"
)

// EncodeFramed concatenates each record's msgpack encoding behind a
// big-endian uint32 length prefix — the length-delimited framed format §6
// describes for records crossing the RPC boundary.
func EncodeFramed(records []record.Record) ([]byte, error) {
	var out []byte
	var lenBuf [4]byte
	for _, r := range records {
		data, err := EncodeRecord(r)
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(data)))
		out = append(out, lenBuf[:]...)
		out = append(out, data...)
	}
	return out, nil
}

// DecodeFramed splits data on its length prefixes and decodes each frame.
func DecodeFramed(data []byte) ([]record.Record, error) {
	var out []record.Record
	for len(data) > 0 {
		if len(data) < 4 {
			return nil, serr.New("truncated frame length prefix")
		}
		n := binary.BigEndian.Uint32(data[:4])
		data = data[4:]
		if uint32(len(data)) < n {
			return nil, serr.New("truncated frame body")
		}
		r, err := DecodeRecord(data[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
		data = data[n:]
	}
	return out, nil
}

// EncodeManifestIDs frames a bare list of StorageIds (type tag + 16 raw
// bytes each) — used for the manifest's storageIds field, which carries no
// record attributes, only identity.
func EncodeManifestIDs(ids []storageid.ID) []byte {
	out := make([]byte, 0, len(ids)*17)
	for _, id := range ids {
		out = append(out, byte(id.Type))
		out = append(out, id.Raw[:]...)
	}
	return out
}

// DecodeManifestIDs reverses EncodeManifestIDs.
func DecodeManifestIDs(data []byte) ([]storageid.ID, error) {
	if len(data)%17 != 0 {
		return nil, serr.New("manifest id list is not a multiple of 17 bytes")
	}
	out := make([]storageid.ID, 0, len(data)/17)
	for i := 0; i < len(data); i += 17 {
		t := storageid.RecordType(data[i])
		id, err := storageid.FromBytes(t, data[i+1:i+17])
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
