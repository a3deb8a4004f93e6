// Package storageid defines the opaque, type-tagged record identifier used
// throughout the sync engine and the generator that mints a fresh one on
// every logical update.
package storageid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
)

// RecordType tags a StorageId (and the record it names) by kind. Equality
// between two StorageIds of differing type is always false even when the
// raw bytes match — the type tag is part of identity.
type RecordType uint8

const (
	RecordTypeContact RecordType = iota + 1
	RecordTypeGroupV1
	RecordTypeGroupV2
	RecordTypeAccount
	RecordTypeUnknown
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeContact:
		return "contact"
	case RecordTypeGroupV1:
		return "groupV1"
	case RecordTypeGroupV2:
		return "groupV2"
	case RecordTypeAccount:
		return "account"
	case RecordTypeUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// rawLen is the fixed width of the opaque identifier payload, matching the
// 16-byte random key the server-side storage protocol expects.
const rawLen = 16

// ID is an opaque fixed-width identifier carrying a type tag. IDs are never
// reused: a fresh one is minted by KeyGenerator on every logical update.
type ID struct {
	Type RecordType
	Raw  [rawLen]byte
}

// Equal compares raw bytes and type tag. Two IDs with identical bytes but
// different types are distinct, by design (§3 Invariant semantics).
func (id ID) Equal(other ID) bool {
	return id.Type == other.Type && id.Raw == other.Raw
}

// Key returns a value usable as a map key that folds in the type tag, so
// sets/maps of ID never collide across types.
func (id ID) Key() [rawLen + 1]byte {
	var k [rawLen + 1]byte
	k[0] = byte(id.Type)
	copy(k[1:], id.Raw[:])
	return k
}

func (id ID) String() string {
	return id.Type.String() + ":" + hex.EncodeToString(id.Raw[:])
}

// IsZero reports whether id is the zero value (never assigned).
func (id ID) IsZero() bool {
	return id.Type == 0 && id.Raw == [rawLen]byte{}
}

// KeyGenerator mints fresh StorageIds. Each call produces 16 cryptographically
// random bytes via uuid.NewRandom() (version 4 UUID, read from crypto/rand under the
// hood) — the server's compare-and-set protocol requires collision resistance
// across every client sharing an account, not just within one process.
type KeyGenerator struct{}

// NewKeyGenerator returns a ready-to-use generator. It carries no state: every
// StorageId is independently random, never derived from a counter or from the
// record it names (IDs are snapshot-scoped, never stable across updates).
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// Generate mints a new ID of the given type.
func (g *KeyGenerator) Generate(t RecordType) (ID, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return ID{}, serr.Wrap(err, "failed to generate storage id")
	}
	var id ID
	id.Type = t
	copy(id.Raw[:], u[:])
	return id, nil
}

// FromBytes reconstructs an ID from raw bytes read off the wire, tagging it
// with the given type. Returns an error if raw is not exactly rawLen bytes.
func FromBytes(t RecordType, raw []byte) (ID, error) {
	if len(raw) != rawLen {
		return ID{}, serr.New("storage id must be 16 bytes")
	}
	var id ID
	id.Type = t
	copy(id.Raw[:], raw)
	return id, nil
}
