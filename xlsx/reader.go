// Package xlsx implements a streaming reader and writer for XLSX (Office
// Open XML SpreadsheetML) workbooks, shaped for embedding in columnar
// engines: a worksheet is scanned once, front to back, into fixed-size
// typed column batches, and batches can be written back out as a minimal
// valid package.
package xlsx

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xrash/smetrics"
)

// ReadOptions controls how a workbook is bound and scanned. The zero value
// selects the primary sheet, sniffs the data range and detects the header
// heuristically.
type ReadOptions struct {
	// Sheet picks a sheet by display name. Empty selects the first sheet in
	// workbook order.
	Sheet string

	// Header forces or forbids header detection. The default is HeaderMaybe:
	// the first row is a header iff it consists entirely of non-empty
	// strings.
	Header HeaderMode

	// AllVarchar skips type inference; every column is text.
	AllVarchar bool

	// IgnoreErrors nulls cells that fail to cast instead of aborting.
	IgnoreErrors bool

	// Range is an explicit "A1:Z9" range. It disables range sniffing and,
	// by default, stop-at-empty.
	Range string

	// StopAtEmpty ends the scan at the first all-empty row. Defaults to
	// true unless an explicit Range is given.
	StopAtEmpty *bool

	// EmptyAsVarchar pads synthesized and empty cells with the
	// inline-string type rather than number.
	EmptyAsVarchar bool

	// Logfile is an open writer to which bind-phase diagnostics are
	// written when Verbosity is positive.
	Logfile io.Writer

	// Verbosity increases the volume of trace material written to the
	// logfile.
	Verbosity int
}

// Reader streams one worksheet of an XLSX package as typed column batches.
// It is bound on open: the schema is available immediately, rows are
// produced by Next.
type Reader struct {
	store *zipPartReader
	opts  ReadOptions

	sheetName string
	sheetPath string
	styles    *StyleSheet

	names    []string
	types    []LogicalType
	srcTypes []CellType

	rng           CellRange
	explicitRange bool
	stopAtEmpty   bool

	table    *StringTable
	scan     *sheetScanner
	drv      *Driver
	status   Status
	started  bool
	primed   bool
	scanDone bool
	done     bool
}

// OpenReader opens the XLSX package at path and binds it according to the
// options.
func OpenReader(path string, opts *ReadOptions) (*Reader, error) {
	format, err := InspectFormat(path, nil)
	if err != nil {
		return nil, err
	}
	if format != "xlsx" && format != "zip" {
		return nil, newInputError("%s; not supported", FileFormatDescriptions[format])
	}

	store, err := openZipReader(path)
	if err != nil {
		return nil, err
	}
	r, err := bindReader(store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	return r, nil
}

// NewReader binds an XLSX package held in an io.ReaderAt.
func NewReader(ra io.ReaderAt, size int64, opts *ReadOptions) (*Reader, error) {
	store, err := newZipReader(ra, size)
	if err != nil {
		return nil, err
	}
	r, err := bindReader(store, opts)
	if err != nil {
		store.Close()
		return nil, err
	}
	return r, nil
}

func bindReader(store *zipPartReader, opts *ReadOptions) (*Reader, error) {
	r := &Reader{store: store}
	if opts != nil {
		r.opts = *opts
	}

	if err := r.bindMeta(); err != nil {
		return nil, err
	}
	if err := r.bindSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Reader) logf(format string, args ...interface{}) {
	if r.opts.Logfile != nil && r.opts.Verbosity > 0 {
		fmt.Fprintf(r.opts.Logfile, format+"\n", args...)
	}
}

// bindMeta parses the package metadata parts and resolves the target
// worksheet path. All three meta entries are required.
func (r *Reader) bindMeta() error {
	if !r.store.TryOpenEntry("[Content_Types].xml") {
		return newBindError("No [Content_Types].xml found in xlsx file")
	}
	_, err := parseContentTypes(r.store)
	r.store.CloseEntry()
	if err != nil {
		return err
	}

	if !r.store.TryOpenEntry("xl/workbook.xml") {
		return newBindError("No xl/workbook.xml found in xlsx file")
	}
	sheets, err := parseWorkbook(r.store)
	r.store.CloseEntry()
	if err != nil {
		return err
	}

	if !r.store.TryOpenEntry("xl/_rels/workbook.xml.rels") {
		return newBindError("No xl/_rels/workbook.xml.rels found in xlsx file")
	}
	rels, err := parseRelationships(r.store)
	r.store.CloseEntry()
	if err != nil {
		return err
	}

	names, paths := resolveSheetPaths(sheets, rels)
	if len(names) == 0 {
		return newBindError("No sheets found in xlsx file (is the file corrupt?)")
	}

	if r.opts.Sheet == "" {
		r.sheetName = names[0]
	} else {
		r.sheetName = r.opts.Sheet
		if _, ok := paths[r.sheetName]; !ok {
			return newBindError("Sheet '%s' not found in xlsx file%s", r.sheetName, didYouMean(r.sheetName, names))
		}
	}
	r.sheetPath = paths[r.sheetName]
	r.logf("resolved sheet %q to %q", r.sheetName, r.sheetPath)
	return nil
}

// didYouMean renders a suggestion list of the closest candidate names.
func didYouMean(target string, candidates []string) string {
	type scored struct {
		name  string
		score float64
	}
	var matches []scored
	for _, cand := range candidates {
		score := smetrics.JaroWinkler(target, cand, 0.7, 4)
		if score >= 0.5 {
			matches = append(matches, scored{cand, score})
		}
	}
	if len(matches) == 0 {
		return ""
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if len(matches) > 3 {
		matches = matches[:3]
	}
	quoted := make([]string, len(matches))
	for i, m := range matches {
		quoted[i] = "'" + m.name + "'"
	}
	return ". Did you mean: " + strings.Join(quoted, ", ") + "?"
}

// bindSchema runs the discovery passes over the worksheet: styles, range
// sniffing, header sniffing, shared-string resolution and type inference.
func (r *Reader) bindSchema() error {
	if r.store.TryOpenEntry("xl/styles.xml") {
		styles, err := parseStyles(r.store)
		r.store.CloseEntry()
		if err != nil {
			return err
		}
		r.styles = styles
	}

	if r.opts.Range != "" {
		rng, ok := ParseRange(r.opts.Range)
		if !ok || !rng.IsValid() {
			return newBindError("Invalid range '%s' specified", r.opts.Range)
		}
		// Make the range inclusive of the last cell.
		rng.End.Row++
		rng.End.Col++
		r.rng = rng
		r.explicitRange = true
	} else {
		if !r.store.TryOpenEntry(r.sheetPath) {
			return newBindError("Sheet '%s' not found in xlsx file", r.sheetPath)
		}
		sniffer := newRangeSniffer()
		err := ParseAll(r.store, sniffer)
		r.store.CloseEntry()
		if err != nil {
			return err
		}
		if sniffer.err != nil {
			return sniffer.err
		}
		r.rng = sniffer.Range()
		r.logf("sniffed range %s:%s", r.rng.Beg, CellPos{Row: r.rng.End.Row - 1, Col: r.rng.End.Col - 1})
	}

	r.stopAtEmpty = !r.explicitRange
	if r.opts.StopAtEmpty != nil {
		r.stopAtEmpty = *r.opts.StopAtEmpty
	}

	defaultType := CellTypeNumber
	if r.opts.EmptyAsVarchar {
		defaultType = CellTypeInlineString
	}

	if !r.store.TryOpenEntry(r.sheetPath) {
		return newBindError("Sheet '%s' not found in xlsx file", r.sheetPath)
	}
	sniffer := newHeaderSniffer(r.rng, r.opts.Header, r.explicitRange, defaultType)
	err := ParseAll(r.store, sniffer)
	r.store.CloseEntry()
	if err != nil {
		return err
	}
	if sniffer.err != nil {
		return sniffer.err
	}

	// The residual range excludes the header row.
	r.rng = sniffer.Range()

	headerCells := sniffer.headerCells
	columnCells := sniffer.columnCells

	if len(columnCells) == 0 {
		if len(headerCells) == 0 {
			if !r.explicitRange {
				return newBindError("No rows found in xlsx file")
			}
			// An empty sheet with an explicit range still binds: name the
			// columns after the range's letters and infer from an empty row.
			for col := r.rng.Beg.Col; col < r.rng.End.Col; col++ {
				pos := CellPos{Row: r.rng.Beg.Row, Col: col}
				headerCells = append(headerCells, Cell{
					Type: CellTypeInlineString,
					Pos:  pos,
					Data: pos.ColumnName(),
				})
			}
		}
		// A header row without data rows still binds; infer from an empty
		// dummy row.
		for _, cell := range headerCells {
			columnCells = append(columnCells, Cell{Type: defaultType, Pos: cell.Pos})
		}
	}

	if err := r.resolveHeaderStrings(headerCells); err != nil {
		return err
	}

	for _, cell := range headerCells {
		r.names = append(r.names, cell.Data)
	}
	for _, cell := range columnCells {
		typ, err := r.inferType(cell)
		if err != nil {
			return err
		}
		r.types = append(r.types, typ)
		r.srcTypes = append(r.srcTypes, cell.Type)
	}
	r.logf("bound %d columns, header=%v", len(r.names), !sniffer.firstRow)
	return nil
}

// resolveHeaderStrings replaces shared-string references among the header
// cells with the referenced strings.
func (r *Reader) resolveHeaderStrings(headerCells []Cell) error {
	var ids, positions []int
	for i := range headerCells {
		if headerCells[i].Type == CellTypeSharedString {
			id, err := strconv.Atoi(headerCells[i].Data)
			if err != nil {
				return newInputError("Invalid shared string index in cell '%s'", headerCells[i].Pos)
			}
			ids = append(ids, id)
			positions = append(positions, i)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if !r.store.TryOpenEntry("xl/sharedStrings.xml") {
		return newBindError("No shared strings found in xlsx file")
	}
	resolved, err := searchSharedStrings(r.store, ids)
	r.store.CloseEntry()
	if err != nil {
		return err
	}

	for i, pos := range positions {
		str, ok := resolved[ids[i]]
		if !ok {
			return newInputError("Invalid shared string index in cell '%s'", headerCells[pos].Pos)
		}
		headerCells[pos].Data = str
	}
	return nil
}

// inferType maps a type-inference cell to the host logical type of its
// column.
func (r *Reader) inferType(cell Cell) (LogicalType, error) {
	if r.opts.AllVarchar {
		return TypeVarchar, nil
	}
	switch cell.Type {
	case CellTypeNumber:
		// The logical type of a number depends on the style of the cell:
		// some styles are dates, some are plain numbers.
		if typ, ok := r.styles.Format(cell.Style); ok {
			return typ, nil
		}
		return TypeDouble, nil
	case CellTypeBoolean:
		return TypeBoolean, nil
	case CellTypeSharedString, CellTypeInlineString, CellTypeFormulaString, CellTypeError:
		return TypeVarchar, nil
	case CellTypeDate:
		return TypeDate, nil
	}
	return 0, newBindError("Unknown cell type in xlsx file")
}

// Columns returns the bound column names and logical types.
func (r *Reader) Columns() ([]string, []LogicalType) {
	return r.names, r.types
}

// SheetName returns the display name of the bound sheet.
func (r *Reader) SheetName() string {
	return r.sheetName
}

// BindTo validates the bound schema against an expected one and, on
// success, overrides the output names and types. Used when copying into a
// table whose schema is already known.
func (r *Reader) BindTo(names []string, types []LogicalType) error {
	if len(types) != len(r.types) {
		var b strings.Builder
		b.WriteString("Table schema: ")
		for i, typ := range types {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(names[i] + " " + typ.String())
		}
		b.WriteString("\nXLSX schema: ")
		for i, typ := range r.types {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(r.names[i] + " " + typ.String())
		}
		b.WriteString("\n\nPossible solutions:")
		b.WriteString("\n* Manually specify which columns to insert")
		b.WriteString("\n* Provide an explicit range option with the same width as the table schema, e.g. range 'A1:Z10'")
		return newBindError("column count mismatch: expected %d columns but found %d\n%s",
			len(types), len(r.types), b.String())
	}
	r.names = append(r.names[:0], names...)
	r.types = append(r.types[:0], types...)
	return nil
}

// prime loads the shared-string table and opens the worksheet entry for the
// streaming scan.
func (r *Reader) prime() error {
	r.table = NewStringTable()
	if r.store.HasEntry("xl/sharedStrings.xml") {
		r.store.TryOpenEntry("xl/sharedStrings.xml")
		err := loadSharedStrings(r.store, r.table)
		r.store.CloseEntry()
		if err != nil {
			return err
		}
	}

	if !r.store.TryOpenEntry(r.sheetPath) {
		// This should never happen, bind already checked it.
		return newInputError("Sheet '%s' not found in xlsx file", r.sheetPath)
	}
	r.scan = newSheetScanner(r.rng, r.table, r.stopAtEmpty)
	r.drv = NewDriver(r.store, r.scan)
	r.primed = true
	return nil
}

// Next produces the next batch of rows, or nil when the scan is exhausted.
// The returned batch is only valid until the following call.
func (r *Reader) Next() (*Batch, error) {
	if r.done {
		return nil, nil
	}
	if !r.primed {
		if err := r.prime(); err != nil {
			return nil, err
		}
	}

	scan := r.scan
	scan.resetBatch()

	for !r.scanDone && !scan.batchFull() {
		if r.status == StatusSuspended && scan.foundSkippedRow() {
			// The scanner paused on a row-number jump so the intervening
			// all-null rows can be emitted first.
			if r.stopAtEmpty {
				// The skipped rows are empty; treat them as the end of data.
				scan.stoppedAtEmpty = true
				r.scanDone = true
				break
			}
			scan.skipRows()
			continue
		}

		var status Status
		var err error
		if !r.started {
			r.started = true
			status, err = r.drv.Parse()
		} else {
			status, err = r.drv.Resume()
		}
		if err != nil {
			return nil, err
		}
		if scan.err != nil {
			return nil, scan.err
		}
		r.status = status
		if status == StatusOK || status == StatusAborted {
			// End of stream, or the scanner stopped for good.
			r.scanDone = true
		}
	}

	if r.scanDone && r.explicitRange && !scan.stoppedAtEmpty {
		// The stream ended short of the requested range; pad the tail.
		scan.fillRows()
	}

	if scan.size == 0 {
		r.done = true
		r.store.CloseEntry()
		return nil, nil
	}
	return r.buildBatch()
}

// Progress reports the scan progress in percent, between 0 and 100. It is
// safe to call from another goroutine.
func (r *Reader) Progress() float64 {
	if !r.primed {
		return 0
	}
	pos := float64(r.store.EntryPos())
	length := float64(r.store.EntryLen())
	if pos == 0 || length == 0 {
		return 0
	}
	p := pos / length * 100
	if p > 100 {
		p = 100
	}
	return p
}

// Close releases the package.
func (r *Reader) Close() error {
	return r.store.Close()
}

// buildBatch casts the scanner's text batch into the bound column types.
func (r *Reader) buildBatch() (*Batch, error) {
	scan := r.scan
	n := scan.size

	batch := &Batch{
		Columns: make([]Column, len(r.types)),
		Rows:    append([]int(nil), scan.rows...),
	}

	for i, target := range r.types {
		texts := scan.cols[i][:n]
		nulls := scan.null[i][:n]

		col := newColumn(target, n)
		copy(col.Null, nulls)

		var err error
		switch {
		case target == TypeVarchar:
			// Same representation on both sides; reference the strings.
			copy(col.Str, texts)
		case r.srcTypes[i] == CellTypeNumber && target.IsTemporal():
			err = r.castSerialColumn(&col, texts, nulls, i)
		default:
			err = r.castTextColumn(&col, texts, nulls, i)
		}
		if err != nil {
			return nil, err
		}
		batch.Columns[i] = col
	}
	return batch, nil
}

// castSerialColumn converts numeric text through an Excel serial into epoch
// microseconds.
func (r *Reader) castSerialColumn(col *Column, texts []string, nulls []bool, colIdx int) error {
	for row := range texts {
		if nulls[row] {
			continue
		}
		serial, err := strconv.ParseFloat(texts[row], 64)
		if err != nil {
			if r.opts.IgnoreErrors {
				col.Null[row] = true
				continue
			}
			return &ConversionError{
				Cell:    r.scan.cellName(row, colIdx),
				Message: fmt.Sprintf("could not convert '%s' to %s", texts[row], col.Type),
			}
		}
		micros := SerialToEpochMicros(serial)
		switch col.Type {
		case TypeDate:
			micros = epochMicrosToDate(micros)
		case TypeTime:
			micros = epochMicrosToTimeOfDay(micros)
		}
		col.I64[row] = micros
	}
	return nil
}

// Accepted text layouts for temporal targets that did not come from
// numeric cells.
var (
	dateLayouts      = []string{"2006-01-02"}
	timeLayouts      = []string{"15:04:05.999999", "15:04:05", "15:04"}
	timestampLayouts = []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", time.RFC3339}
)

func parseTemporal(text string, layouts []string) (int64, error) {
	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t.UnixMicro(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return 0, firstErr
}

// castTextColumn casts raw cell text to the target column type.
func (r *Reader) castTextColumn(col *Column, texts []string, nulls []bool, colIdx int) error {
	for row := range texts {
		if nulls[row] {
			continue
		}
		text := texts[row]
		var err error
		switch col.Type {
		case TypeDouble:
			col.F64[row], err = strconv.ParseFloat(text, 64)
		case TypeBoolean:
			col.Bool[row], err = strconv.ParseBool(text)
		case TypeInteger:
			var v int64
			v, err = strconv.ParseInt(text, 10, 32)
			col.I64[row] = v
		case TypeBigInt:
			col.I64[row], err = strconv.ParseInt(text, 10, 64)
		case TypeDate:
			col.I64[row], err = parseTemporal(text, dateLayouts)
		case TypeTime:
			col.I64[row], err = parseTemporal(text, timeLayouts)
		case TypeTimestamp, TypeTimestampS:
			col.I64[row], err = parseTemporal(text, timestampLayouts)
		default:
			err = fmt.Errorf("unsupported cast to %s", col.Type)
		}
		if err != nil {
			if r.opts.IgnoreErrors {
				col.Null[row] = true
				continue
			}
			return &ConversionError{
				Cell:    r.scan.cellName(row, colIdx),
				Message: fmt.Sprintf("could not convert '%s' to %s", text, col.Type),
			}
		}
	}
	return nil
}
