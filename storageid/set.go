package storageid

// Set is a lookup-efficient collection of IDs keyed by raw-byte+type identity.
type Set struct {
	m map[[rawLen + 1]byte]ID
}

// NewSet builds a Set from a slice of IDs.
func NewSet(ids []ID) Set {
	s := Set{m: make(map[[rawLen + 1]byte]ID, len(ids))}
	for _, id := range ids {
		s.m[id.Key()] = id
	}
	return s
}

// Contains reports whether id (by raw bytes and type) is a member.
func (s Set) Contains(id ID) bool {
	_, ok := s.m[id.Key()]
	return ok
}

// Len returns the number of distinct IDs in the set.
func (s Set) Len() int {
	return len(s.m)
}

// Slice returns the set's members in unspecified order.
func (s Set) Slice() []ID {
	out := make([]ID, 0, len(s.m))
	for _, id := range s.m {
		out = append(out, id)
	}
	return out
}

// Minus returns the IDs present in s but not in other — raw-byte equality
// per type, matching the key-difference contract in keydiff.
func (s Set) Minus(other Set) []ID {
	var out []ID
	for k, id := range s.m {
		if _, ok := other.m[k]; !ok {
			out = append(out, id)
		}
	}
	return out
}
