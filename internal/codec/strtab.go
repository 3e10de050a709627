package codec

// stringTable interns strings in first-use order.
type stringTable struct {
	ids     map[string]uint64
	strings []string
}

func newStringTable() *stringTable {
	return &stringTable{ids: make(map[string]uint64)}
}

func (t *stringTable) intern(s string) uint64 {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := uint64(len(t.strings))
	t.ids[s] = id
	t.strings = append(t.strings, s)
	return id
}
