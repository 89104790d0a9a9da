package xlsx

import (
	"strconv"
)

// sheetScanner is the production worksheet pass. It fills a fixed-capacity
// text batch with cell payloads, resolving shared strings on the fly, and
// suspends the driver when the batch is full so the orchestrator can yield
// it.
type sheetScanner struct {
	*sheetWalker

	table *StringTable
	rng   CellRange

	stopAtEmpty bool

	// Current text batch. cols is range-width column-major text with a
	// parallel validity mask; rows maps batch rows to sheet rows.
	cols [][]string
	null [][]bool
	rows []int
	size int

	lastCol  int
	lastRow  int
	currRow  int
	rowEmpty bool

	stoppedAtEmpty bool
}

func newSheetScanner(rng CellRange, table *StringTable, stopAtEmpty bool) *sheetScanner {
	width := rng.Width()
	s := &sheetScanner{
		table:       table,
		rng:         rng,
		stopAtEmpty: stopAtEmpty,
		cols:        make([][]string, width),
		null:        make([][]bool, width),
		rows:        make([]int, 0, BatchSize),
		lastCol:     rng.Beg.Col - 1,
		lastRow:     rng.Beg.Row - 1,
		currRow:     rng.Beg.Row,
	}
	for i := range s.cols {
		s.cols[i] = make([]string, BatchSize)
		s.null[i] = make([]bool, BatchSize)
	}
	s.sheetWalker = newSheetWalker(s)
	return s
}

// resetBatch clears the batch for the next fill. The backing storage is
// reused.
func (s *sheetScanner) resetBatch() {
	s.rows = s.rows[:0]
	s.size = 0
}

func (s *sheetScanner) batchFull() bool {
	return s.size == BatchSize
}

// cellName renders the sheet reference of a batch cell, for conversion
// error messages.
func (s *sheetScanner) cellName(batchRow, batchCol int) string {
	pos := CellPos{
		Row: s.rows[batchRow],
		Col: batchCol + s.rng.Beg.Col,
	}
	return pos.String()
}

// foundSkippedRow reports whether the current row jumped over sheet rows
// that have not been emitted yet.
func (s *sheetScanner) foundSkippedRow() bool {
	return s.lastRow+1 < s.currRow
}

// skipRows emits all-null rows for the skipped region, stopping early when
// the batch fills up.
func (s *sheetScanner) skipRows() {
	for s.lastRow+1 < s.currRow {
		s.lastRow++
		for col := range s.cols {
			s.null[col][s.size] = true
		}
		s.rows = append(s.rows, s.lastRow)
		s.size++
		if s.batchFull() {
			return
		}
	}
}

// fillRows pads all-null rows up to the end of the range, stopping when the
// batch fills up.
func (s *sheetScanner) fillRows() {
	for s.lastRow+1 < s.rng.End.Row && !s.batchFull() {
		s.lastRow++
		for col := range s.cols {
			s.null[col][s.size] = true
		}
		s.rows = append(s.rows, s.lastRow)
		s.size++
	}
}

func (s *sheetScanner) onBeginRow(d *Driver, row int) {
	if !s.rng.ContainsRow(row) {
		return
	}

	s.lastCol = s.rng.Beg.Col - 1
	s.rowEmpty = true
	s.currRow = row

	if s.foundSkippedRow() {
		// Let the orchestrator emit the intervening all-null rows before we
		// feed it this row's cells.
		d.Stop(true)
	}
}

func (s *sheetScanner) onCell(d *Driver, pos CellPos, typ CellType, data []byte, style int) {
	if !s.rng.ContainsPos(pos) {
		return
	}

	// Null-fill any columns skipped since the last cell in this row.
	for col := s.lastCol + 1; col < pos.Col; col++ {
		s.null[col-s.rng.Beg.Col][s.size] = true
	}

	colIdx := pos.Col - s.rng.Beg.Col
	switch {
	case typ == CellTypeSharedString:
		idx, err := strconv.Atoi(string(data))
		if err != nil {
			s.fail(d, newInputError("Invalid shared string index in cell '%s'", pos))
			return
		}
		str, ok := s.table.Get(idx)
		if !ok {
			s.fail(d, newInputError("Invalid shared string index in cell '%s'", pos))
			return
		}
		s.cols[colIdx][s.size] = str
		s.null[colIdx][s.size] = false
	case len(data) == 0 && typ != CellTypeInlineString:
		// An empty non-string cell can never convert, null it immediately.
		s.null[colIdx][s.size] = true
	default:
		s.cols[colIdx][s.size] = string(data)
		s.null[colIdx][s.size] = false
	}

	if len(data) > 0 {
		s.rowEmpty = false
	}
	s.lastCol = pos.Col
}

func (s *sheetScanner) onEndRow(d *Driver, row int) {
	if !s.rng.ContainsRow(row) {
		return
	}

	s.lastRow = row

	if s.stopAtEmpty && s.rowEmpty {
		s.stoppedAtEmpty = true
		d.Stop(false)
		return
	}

	// Null-fill missing trailing columns.
	for col := s.lastCol + 1; col < s.rng.End.Col; col++ {
		s.null[col-s.rng.Beg.Col][s.size] = true
	}

	s.rows = append(s.rows, row)
	s.size++
	if s.batchFull() {
		d.Stop(true)
	}
}
