package xlsx

import (
	"testing"
)

func TestColumnNameRoundtrip(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{1, "A"},
		{2, "B"},
		{26, "Z"},
		{27, "AA"},
		{52, "AZ"},
		{53, "BA"},
		{702, "ZZ"},
		{703, "AAA"},
		{MaxCellCols, "XFD"},
	}

	for _, tt := range tests {
		got := ColumnName(tt.col)
		if got != tt.want {
			t.Errorf("ColumnName(%d) = %q, want %q", tt.col, got, tt.want)
		}
		if back := ParseColumnName(got); back != tt.col {
			t.Errorf("ParseColumnName(%q) = %d, want %d", got, back, tt.col)
		}
	}
}

func TestColumnNameOnlyUppercase(t *testing.T) {
	for col := 1; col <= 4000; col++ {
		name := ColumnName(col)
		for i := 0; i < len(name); i++ {
			if name[i] < 'A' || name[i] > 'Z' {
				t.Fatalf("ColumnName(%d) = %q contains non A..Z byte", col, name)
			}
		}
		if ParseColumnName(name) != col {
			t.Fatalf("ParseColumnName(ColumnName(%d)) != %d", col, col)
		}
	}
}

func TestParsePos(t *testing.T) {
	tests := []struct {
		ref     string
		want    CellPos
		wantErr bool
	}{
		{"A1", CellPos{Row: 1, Col: 1}, false},
		{"B2", CellPos{Row: 2, Col: 2}, false},
		{"Z99", CellPos{Row: 99, Col: 26}, false},
		{"AA10", CellPos{Row: 10, Col: 27}, false},
		{"XFD1048576", CellPos{Row: MaxCellRows, Col: MaxCellCols}, false},
		{"A", CellPos{Row: 1, Col: 1}, false},  // column only
		{"7", CellPos{Row: 7, Col: 1}, false},  // row only
		{"", CellPos{}, true},                  // nothing to parse
		{"a1", CellPos{}, true},                // lowercase is not a column
		{"A0", CellPos{}, true},                // rows are 1-indexed
		{"XFE1", CellPos{}, true},              // column out of range
		{"A1048577", CellPos{}, true},          // row out of range
		{"A1B", CellPos{}, true},               // trailing garbage
	}

	for _, tt := range tests {
		got, ok := ParsePos(tt.ref)
		if ok == tt.wantErr {
			t.Errorf("ParsePos(%q) ok = %v, want %v", tt.ref, ok, !tt.wantErr)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParsePos(%q) = %+v, want %+v", tt.ref, got, tt.want)
		}
	}
}

func TestPosStringRoundtrip(t *testing.T) {
	positions := []CellPos{
		{Row: 1, Col: 1},
		{Row: 7, Col: 26},
		{Row: 100, Col: 27},
		{Row: MaxCellRows, Col: MaxCellCols},
		{Row: 12345, Col: 703},
	}
	for _, pos := range positions {
		got, ok := ParsePos(pos.String())
		if !ok {
			t.Errorf("ParsePos(%q) failed", pos.String())
			continue
		}
		if got != pos {
			t.Errorf("ParsePos(%q) = %+v, want %+v", pos.String(), got, pos)
		}
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		ref     string
		want    CellRange
		wantErr bool
	}{
		{"A1:B2", CellRange{Beg: CellPos{1, 1}, End: CellPos{2, 2}}, false},
		{"B1:D4", CellRange{Beg: CellPos{1, 2}, End: CellPos{4, 4}}, false},
		{"A:C", CellRange{Beg: CellPos{1, 1}, End: CellPos{MaxCellRows, 3}}, false},
		{"2:4", CellRange{Beg: CellPos{2, 1}, End: CellPos{4, MaxCellCols}}, false},
		{"A1", CellRange{}, true},
		{"A1:", CellRange{}, true},
		{":B2", CellRange{}, true},
		{"A1-B2", CellRange{}, true},
	}

	for _, tt := range tests {
		got, ok := ParseRange(tt.ref)
		if ok == tt.wantErr {
			t.Errorf("ParseRange(%q) ok = %v, want %v", tt.ref, ok, !tt.wantErr)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParseRange(%q) = %+v, want %+v", tt.ref, got, tt.want)
		}
	}
}

func TestRangeContains(t *testing.T) {
	rng := CellRange{Beg: CellPos{Row: 2, Col: 2}, End: CellPos{Row: 5, Col: 4}}

	if !rng.ContainsPos(CellPos{Row: 2, Col: 2}) {
		t.Error("range should contain its begin cell")
	}
	if rng.ContainsPos(CellPos{Row: 5, Col: 2}) {
		t.Error("end row is exclusive")
	}
	if rng.ContainsPos(CellPos{Row: 2, Col: 4}) {
		t.Error("end col is exclusive")
	}
	if rng.Width() != 2 || rng.Height() != 3 {
		t.Errorf("Width/Height = %d/%d, want 2/3", rng.Width(), rng.Height())
	}
}

func TestParseCellType(t *testing.T) {
	tests := []struct {
		attr string
		want CellType
	}{
		{"", CellTypeNumber},
		{"n", CellTypeNumber},
		{"s", CellTypeSharedString},
		{"inlineStr", CellTypeInlineString},
		{"str", CellTypeFormulaString},
		{"b", CellTypeBoolean},
		{"e", CellTypeError},
		{"d", CellTypeDate},
		{"x", CellTypeUnknown},
	}
	for _, tt := range tests {
		if got := ParseCellType(tt.attr); got != tt.want {
			t.Errorf("ParseCellType(%q) = %d, want %d", tt.attr, got, tt.want)
		}
	}
}
