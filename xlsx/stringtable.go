package xlsx

// StringTable is an insertion-ordered set of unique strings with O(1)
// lookup in both directions. Worksheet cells of type shared-string carry a
// dense index into this table.
//
// Strings handed out by Get stay valid for the lifetime of the table: they
// are immutable Go strings, and growing the index slice only copies the
// string headers, never the string bytes.
type StringTable struct {
	table map[string]int
	index []string
}

// NewStringTable creates an empty table.
func NewStringTable() *StringTable {
	return &StringTable{table: make(map[string]int)}
}

// Add inserts the string and returns its index. Repeated strings receive
// the index assigned on first insertion. The bytes are copied; the caller
// may reuse the slice.
func (t *StringTable) Add(b []byte) int {
	if idx, ok := t.table[string(b)]; ok {
		return idx
	}
	idx := len(t.index)
	s := string(b)
	t.table[s] = idx
	t.index = append(t.index, s)
	return idx
}

// Get returns the string at the given index.
func (t *StringTable) Get(idx int) (string, bool) {
	if idx < 0 || idx >= len(t.index) {
		return "", false
	}
	return t.index[idx], true
}

// Len returns the number of unique strings in the table.
func (t *StringTable) Len() int {
	return len(t.index)
}

// Reserve hints the expected number of unique strings. It does not change
// semantics.
func (t *StringTable) Reserve(n int) {
	if n <= len(t.index) {
		return
	}
	index := make([]string, len(t.index), n)
	copy(index, t.index)
	t.index = index
}
