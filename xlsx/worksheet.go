package xlsx

import (
	"strconv"

	"github.com/muktihari/xmltokenizer"
)

// sheetCallbacks is the capability set plugged into the worksheet walk.
// Cell data arrives as raw bytes that are only valid for the duration of
// the call.
type sheetCallbacks interface {
	onBeginRow(d *Driver, row int)
	onEndRow(d *Driver, row int)
	onCell(d *Driver, pos CellPos, typ CellType, data []byte, style int)
}

type wsState uint8

const (
	wsStart wsState = iota
	wsSheetData
	wsRow
	wsCell
	wsV
	wsIs
	wsT
)

// sheetWalker drives sheetData -> row -> c -> (v | is/t) and forwards
// row/cell boundaries to the plugged-in callbacks.
//
// A <row> without an "r" attribute continues one past the previous row; a
// <c> without an "r" attribute continues one past the previous cell. When a
// cell ref is present its row part must agree with the enclosing row.
type sheetWalker struct {
	cb    sheetCallbacks
	state wsState

	pos   CellPos
	typ   CellType
	style int
	data  []byte

	err error
}

func newSheetWalker(cb sheetCallbacks) *sheetWalker {
	return &sheetWalker{cb: cb}
}

func (w *sheetWalker) fail(d *Driver, err error) {
	w.err = err
	d.Stop(false)
}

func (w *sheetWalker) OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr) {
	switch {
	case w.state == wsStart && string(name) == "sheetData":
		w.state = wsSheetData

	case w.state == wsSheetData && string(name) == "row":
		w.state = wsRow
		w.pos.Col = 0

		if rref, ok := attrValue(attrs, "r"); ok {
			row, err := strconv.Atoi(rref)
			if err != nil || row < 1 || row > MaxCellRows {
				w.fail(d, newInputError("Invalid row reference in sheet: %s", rref))
				return
			}
			w.pos.Row = row
		} else {
			w.pos.Row++
		}
		w.cb.onBeginRow(d, w.pos.Row)

	case w.state == wsRow && string(name) == "c":
		w.state = wsCell
		w.data = w.data[:0]

		w.style = 0
		if sref, ok := attrValue(attrs, "s"); ok {
			w.style, _ = strconv.Atoi(sref)
		}
		w.typ = CellTypeNumber
		if tref, ok := attrValue(attrs, "t"); ok {
			w.typ = ParseCellType(tref)
		}
		if cref, ok := attrValue(attrs, "r"); ok {
			ref := CellPos{Row: 1, Col: 1}
			rest, parsed := ref.parsePrefix(cref)
			if !parsed || rest != "" {
				w.fail(d, newInputError("Invalid cell reference in sheet: %s", cref))
				return
			}
			if ref.Row != w.pos.Row {
				w.fail(d, newInputError("Cell reference does not match row reference in sheet"))
				return
			}
			w.pos.Col = ref.Col
		} else {
			w.pos.Col++
		}

	case w.state == wsCell && string(name) == "v":
		w.state = wsV
		d.EnableText(true)

	case w.state == wsCell && string(name) == "is":
		w.state = wsIs

	case w.state == wsIs && string(name) == "t":
		w.state = wsT
		d.EnableText(true)
	}
}

func (w *sheetWalker) OnEndElement(d *Driver, name []byte) {
	switch {
	case w.state == wsSheetData && string(name) == "sheetData":
		d.Stop(false)

	case w.state == wsRow && string(name) == "row":
		w.cb.onEndRow(d, w.pos.Row)
		w.state = wsSheetData

	case w.state == wsCell && string(name) == "c":
		w.cb.onCell(d, w.pos, w.typ, w.data, w.style)
		w.state = wsRow

	case w.state == wsV && string(name) == "v":
		w.state = wsCell
		d.EnableText(false)

	case w.state == wsIs && string(name) == "is":
		w.state = wsCell

	case w.state == wsT && string(name) == "t":
		w.state = wsIs
		d.EnableText(false)
	}
}

func (w *sheetWalker) OnText(d *Driver, text []byte) {
	if len(w.data)+len(text) > MaxCellSize*2 {
		w.fail(d, newInputError("XLSX: Cell data too large (is the file corrupted?)"))
		return
	}
	w.data = append(w.data, text...)
}

type sniffState uint8

const (
	sniffEmpty sniffState = iota
	sniffFound
	sniffEnded
)

// rangeSniffer scans rows until the first one containing data. The found
// region is the first maximal contiguous run of non-empty cells in that
// row; later non-empty cells in the same row are ignored.
type rangeSniffer struct {
	*sheetWalker

	state sniffState

	begCol int
	endCol int
	begRow int
}

func newRangeSniffer() *rangeSniffer {
	s := &rangeSniffer{}
	s.sheetWalker = newSheetWalker(s)
	return s
}

// Range returns the sniffed range. If the sheet ended before any data row
// was found, it defaults to the whole sheet.
func (s *rangeSniffer) Range() CellRange {
	if s.begRow == 0 {
		return WholeSheet()
	}
	return CellRange{
		Beg: CellPos{Row: s.begRow, Col: s.begCol},
		End: CellPos{Row: MaxCellRows, Col: s.endCol + 1},
	}
}

func (s *rangeSniffer) onBeginRow(d *Driver, row int) {}

func (s *rangeSniffer) onCell(d *Driver, pos CellPos, typ CellType, data []byte, style int) {
	switch s.state {
	case sniffEmpty:
		if len(data) > 0 {
			s.state = sniffFound
			s.begCol = pos.Col
			s.endCol = pos.Col
		}
	case sniffFound:
		if len(data) == 0 {
			s.state = sniffEnded
		} else {
			s.endCol = pos.Col
		}
	case sniffEnded:
		// done with this row
	}
}

func (s *rangeSniffer) onEndRow(d *Driver, row int) {
	if s.state == sniffFound || s.state == sniffEnded {
		s.begRow = row
		d.Stop(false)
		return
	}
	s.state = sniffEmpty
	s.begCol = 0
	s.endCol = 0
}

// HeaderMode selects how the first in-range row is interpreted.
type HeaderMode uint8

const (
	// HeaderMaybe treats the first row as a header iff every cell in it is
	// a non-empty string.
	HeaderMaybe HeaderMode = iota
	// HeaderNever never treats the first row as a header.
	HeaderNever
	// HeaderForce always treats the first row as a header.
	HeaderForce
)

// headerSniffer collects the header row (or synthesizes one) and the first
// data row of a range, used for column naming and type inference. Gaps and
// missing trailing columns are padded with empty cells of the default type.
type headerSniffer struct {
	*sheetWalker

	rng           CellRange
	mode          HeaderMode
	absoluteRange bool
	defaultType   CellType

	firstRow bool
	lastCol  int

	headerCells []Cell
	columnCells []Cell
}

func newHeaderSniffer(rng CellRange, mode HeaderMode, absoluteRange bool, defaultType CellType) *headerSniffer {
	s := &headerSniffer{
		rng:           rng,
		mode:          mode,
		absoluteRange: absoluteRange,
		defaultType:   defaultType,
		firstRow:      true,
	}
	s.sheetWalker = newSheetWalker(s)
	return s
}

// Range returns the residual data range, with the header row (if one was
// found) excluded.
func (s *headerSniffer) Range() CellRange {
	return s.rng
}

func (s *headerSniffer) onBeginRow(d *Driver, row int) {
	if !s.rng.ContainsRow(row) {
		return
	}
	s.columnCells = s.columnCells[:0]
	s.lastCol = s.rng.Beg.Col - 1
}

func (s *headerSniffer) onCell(d *Driver, pos CellPos, typ CellType, data []byte, style int) {
	if !s.rng.ContainsCol(pos.Col) {
		return
	}

	// Pad any skipped columns with empty cells before this one.
	for col := s.lastCol + 1; col < pos.Col; col++ {
		s.columnCells = append(s.columnCells, Cell{
			Type: s.defaultType,
			Pos:  CellPos{Row: pos.Row, Col: col},
		})
	}

	s.columnCells = append(s.columnCells, Cell{
		Type:  typ,
		Pos:   pos,
		Data:  string(data),
		Style: style,
	})
	s.lastCol = pos.Col
}

func (s *headerSniffer) onEndRow(d *Driver, row int) {
	if !s.rng.ContainsRow(row) {
		s.columnCells = s.columnCells[:0]
		s.lastCol = s.rng.Beg.Col - 1
		return
	}

	// Pad missing trailing columns to the right edge of the range.
	for col := s.lastCol + 1; col < s.rng.End.Col; col++ {
		s.columnCells = append(s.columnCells, Cell{
			Type: s.defaultType,
			Pos:  CellPos{Row: row, Col: col},
		})
	}

	if !s.firstRow {
		// This is the type-inference row, we can stop here.
		d.Stop(false)
		return
	}

	hasHeader := false
	switch s.mode {
	case HeaderNever:
		hasHeader = false
	case HeaderForce:
		hasHeader = true
	case HeaderMaybe:
		// A header row has to consist entirely of non-empty strings.
		hasHeader = true
		for i := range s.columnCells {
			cell := &s.columnCells[i]
			if !cell.Type.IsString() || cell.Data == "" {
				hasHeader = false
				break
			}
		}
	}

	if !hasHeader {
		// Synthesize a header from the cell positions.
		s.headerCells = append(s.headerCells[:0], s.columnCells...)
		for i := range s.headerCells {
			cell := &s.headerCells[i]
			cell.Type = CellTypeInlineString
			cell.Style = 0
			if s.absoluteRange {
				cell.Data = cell.Pos.ColumnName()
			} else {
				cell.Data = cell.Pos.String()
			}
		}
		d.Stop(false)
		return
	}

	s.headerCells = append(s.headerCells[:0], s.columnCells...)
	s.columnCells = s.columnCells[:0]
	s.lastCol = s.rng.Beg.Col - 1

	// The next in-range row is the type-inference row.
	s.firstRow = false
	s.rng.Beg.Row = row + 1
}
