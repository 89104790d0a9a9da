package xlsx

import (
	"io"
	"strconv"
)

// WriteOptions controls how a workbook is written.
type WriteOptions struct {
	// Sheet is the display name of the sheet. Defaults to "Sheet1".
	Sheet string

	// Header emits a header row built from the column names.
	Header bool

	// SheetRowLimit overrides the format-wide row ceiling. Values above the
	// format limit are allowed, at the writer's own risk.
	SheetRowLimit int
}

// The static parts every produced package carries. The styles catalogue
// covers exactly the cell styles the writer emits:
//
//	0 | 164: GENERAL                 (default)
//	1 | 165: DD/MM/YY                (date)
//	2 | 166: DD/MM/YYYY HH:MM:SS     (timestamp, second precision)
//	3 | 167: HH:MM:SS                (time)
//	4 | 168: DD/MM/YYYY HH:MM:SS.000 (timestamp with milliseconds)
//	5 | 169: TRUE/FALSE              (bool)
//
// Excel can only display milliseconds even though values are stored with
// microsecond precision.
const stylesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<styleSheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
<numFmts count="6">
<numFmt formatCode="General" numFmtId="164"/>
<numFmt formatCode="DD/MM/YY" numFmtId="165"/>
<numFmt formatCode="DD/MM/YYYY\ HH:MM:SS" numFmtId="166"/>
<numFmt formatCode="HH:MM:SS" numFmtId="167"/>
<numFmt formatCode="DD/MM/YYYY\ HH:MM:SS.000" numFmtId="168"/>
<numFmt formatCode="&quot;TRUE&quot;;&quot;TRUE&quot;;&quot;FALSE&quot;" numFmtId="169"/>
</numFmts>
<fonts count="1">
<font><name val="Arial"/><family val="2"/><sz val="10"/></font>
</fonts>
<fills count="1">
<fill><patternFill patternType="none"/></fill>
</fills>
<borders count="1">
<border diagonalDown="false" diagonalUp="false"><left/><right/><top/><bottom/><diagonal/></border>
</borders>
<cellStyleXfs count="1">
<xf numFmtId="164"></xf>
</cellStyleXfs>
<cellXfs count="6">
<xf numFmtId="164" xfId="0"/>
<xf numFmtId="165" xfId="0"/>
<xf numFmtId="166" xfId="0"/>
<xf numFmtId="167" xfId="0"/>
<xf numFmtId="168" xfId="0"/>
<xf numFmtId="169" xfId="0"/>
</cellXfs>
<cellStyles count="1">
<cellStyle builtinId="0" customBuiltin="false" name="Normal" xfId="0"/>
</cellStyles>
</styleSheet>
`

const worksheetXMLStart = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheetData>
`

const worksheetXMLEnd = `</sheetData></worksheet>`

const workbookXMLStart = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><workbookPr/><sheets>`

const workbookXMLEnd = `</sheets><definedNames/><calcPr/></workbook>`

const workbookRelsXMLStart = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/theme" Target="theme/theme1.xml"/><Relationship Id="rId2" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/><Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/sharedStrings" Target="sharedStrings.xml"/>`

const workbookRelsXMLEnd = `</Relationships>`

const sharedStringsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="0" uniqueCount="0"/>`

const corePropsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcmitype="http://purl.org/dc/dcmitype/" xmlns:dcterms="http://purl.org/dc/terms/" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
<dcterms:created xsi:type="dcterms:W3CDTF">2025-01-01T00:00:00.00Z</dcterms:created>
<dc:creator>xlsx-go</dc:creator>
<cp:lastModifiedBy>xlsx-go</cp:lastModifiedBy>
<dcterms:modified xsi:type="dcterms:W3CDTF">2025-01-01T00:00:00.00Z</dcterms:modified>
<cp:revision>1</cp:revision>
</cp:coreProperties>
`

const appPropsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties" xmlns:vt="http://schemas.openxmlformats.org/officeDocument/2006/docPropsVTypes">
<Application>xlsx-go</Application>
<TotalTime>0</TotalTime>
</Properties>
`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
<Relationship Id="rId3" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/extended-properties" Target="docProps/app.xml"/>
</Relationships>
`

const contentTypesXMLStart = `<?xml version="1.0" encoding="UTF-8"?>` +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>` +
	`<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>` +
	`<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/>` +
	`<Override PartName="/xl/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.styles+xml"/>`

const contentTypesXMLEnd = `</Types>`

// writerSheet describes one written sheet: its display name, its file name
// inside the package, and the precomputed per-column letters and XLSX cell
// type codes.
type writerSheet struct {
	name        string
	file        string
	colLetters  []string
	colCellType []string
	colNames    []string
	colTypes    []LogicalType
}

// Writer emits a minimal valid XLSX package from a schema and a stream of
// row batches. Sheets are written strictly sequentially; exactly one sheet
// is active between BeginSheet and EndSheet.
type Writer struct {
	stream   *zipPartWriter
	rowLimit int

	rowStr string
	rowIdx int
	colIdx int

	hasActiveSheet bool
	activeSheet    writerSheet
	writtenSheets  []writerSheet

	err error
}

// NewWriter creates a writer emitting the package to w. A rowLimit of zero
// applies the format-wide ceiling of MaxCellRows rows per sheet.
func NewWriter(w io.Writer, rowLimit int) *Writer {
	if rowLimit <= 0 {
		rowLimit = MaxCellRows
	}
	return &Writer{
		stream:   newZipWriter(w),
		rowLimit: rowLimit,
		rowStr:   "1",
	}
}

// CreateWriter creates a writer emitting the package to a new file at path.
func CreateWriter(path string, rowLimit int) (*Writer, error) {
	stream, err := createZipWriter(path)
	if err != nil {
		return nil, err
	}
	if rowLimit <= 0 {
		rowLimit = MaxCellRows
	}
	return &Writer{stream: stream, rowLimit: rowLimit, rowStr: "1"}, nil
}

// Err returns the first error the writer ran into.
func (w *Writer) Err() error {
	if w.err != nil {
		return w.err
	}
	return w.stream.err
}

// BeginSheet starts a new sheet with the given display name and schema.
func (w *Writer) BeginSheet(name string, columnNames []string, columnTypes []LogicalType) {
	if w.err != nil {
		return
	}
	if len(w.writtenSheets) == 0 {
		w.stream.AddDirectory("xl/")
		w.stream.AddDirectory("xl/worksheets/")
	}

	w.hasActiveSheet = true
	w.activeSheet = writerSheet{
		name:     EscapeXML(name),
		file:     "sheet" + strconv.Itoa(len(w.writtenSheets)+1) + ".xml",
		colNames: columnNames,
		colTypes: columnTypes,
	}

	for i := range columnNames {
		w.activeSheet.colLetters = append(w.activeSheet.colLetters, ColumnName(i+1))
		if columnTypes[i].IsNumeric() {
			w.activeSheet.colCellType = append(w.activeSheet.colCellType, "n")
		} else {
			w.activeSheet.colCellType = append(w.activeSheet.colCellType, "inlineStr")
		}
	}

	w.stream.BeginFile("xl/worksheets/" + w.activeSheet.file)
	w.stream.WriteString(worksheetXMLStart)
}

// EndSheet finishes the active sheet.
func (w *Writer) EndSheet() {
	if w.err != nil {
		return
	}
	w.hasActiveSheet = false

	w.stream.WriteString(worksheetXMLEnd)
	w.stream.EndFile()

	w.writtenSheets = append(w.writtenSheets, w.activeSheet)
	w.rowStr = "1"
	w.rowIdx = 0
	w.colIdx = 0
}

// BeginRow opens a row element.
func (w *Writer) BeginRow() {
	w.stream.WriteString(`<row r="` + w.rowStr + `">`)
}

// EndRow closes the row and enforces the sheet row limit.
func (w *Writer) EndRow() {
	if w.err != nil {
		return
	}
	w.stream.WriteString(`</row>`)
	w.colIdx = 0

	w.rowIdx++
	w.rowStr = strconv.Itoa(w.rowIdx + 1)

	if w.rowIdx > w.rowLimit {
		if w.rowLimit >= MaxCellRows {
			w.err = newInputError("XLSX: Sheet row limit of '%d' rows exceeded!\n"+
				" * XLSX files and compatible applications generally have a limit of '%d' rows\n"+
				" * You can export larger sheets at your own risk by setting the 'sheet_row_limit' "+
				"parameter to a higher value", w.rowLimit, MaxCellRows)
		} else {
			w.err = newInputError("XLSX: Sheet row limit of '%d' rows exceeded!", w.rowLimit)
		}
	}
}

func (w *Writer) writeValueCell(value, cellType, style string) {
	w.stream.WriteString(`<c r="` + w.activeSheet.colLetters[w.colIdx] + w.rowStr + `" t="` + cellType + `"`)
	if style != "" {
		w.stream.WriteString(` s="` + style + `"`)
	}
	w.stream.WriteString(`><v>`)
	w.stream.WriteString(value)
	w.stream.WriteString(`</v></c>`)
	w.colIdx++
}

// WriteNumberCell writes a plain numeric cell.
func (w *Writer) WriteNumberCell(value string) {
	w.writeValueCell(value, "n", "")
}

// WriteBooleanCell writes a boolean cell; value is "0" or "1".
func (w *Writer) WriteBooleanCell(value string) {
	w.writeValueCell(value, "b", "5")
}

// WriteDateCell writes a date as an Excel serial number.
func (w *Writer) WriteDateCell(value string) {
	w.writeValueCell(value, "n", "1")
}

// WriteTimeCell writes a time of day as an Excel day fraction.
func (w *Writer) WriteTimeCell(value string) {
	w.writeValueCell(value, "n", "3")
}

// WriteTimestampCell writes a timestamp with millisecond display precision.
func (w *Writer) WriteTimestampCell(value string) {
	w.writeValueCell(value, "n", "4")
}

// WriteTimestampCellNoMilliseconds writes a timestamp with second display
// precision.
func (w *Writer) WriteTimestampCellNoMilliseconds(value string) {
	w.writeValueCell(value, "n", "2")
}

// WriteInlineStringCell writes a string cell; the value is XML-escaped.
func (w *Writer) WriteInlineStringCell(value string) {
	w.stream.WriteString(`<c r="` + w.activeSheet.colLetters[w.colIdx] + w.rowStr + `" t="inlineStr"><is><t>`)
	w.stream.WriteString(EscapeXML(value))
	w.stream.WriteString(`</t></is></c>`)
	w.colIdx++
}

// WriteEmptyCell skips a column.
func (w *Writer) WriteEmptyCell() {
	w.colIdx++
}

// WriteHeaderRow emits a row of inline-string cells holding the active
// sheet's column names.
func (w *Writer) WriteHeaderRow() {
	w.BeginRow()
	for _, name := range w.activeSheet.colNames {
		w.WriteInlineStringCell(name)
	}
	w.EndRow()
}

// WriteBatch projects a typed batch to text and writes one worksheet row
// per batch row. Temporal columns go through the Excel serial
// representation, booleans through their integer form.
func (w *Writer) WriteBatch(batch *Batch) {
	if w.err != nil {
		return
	}
	n := batch.Len()
	for row := 0; row < n; row++ {
		w.BeginRow()
		for colI := range batch.Columns {
			col := &batch.Columns[colI]
			if col.Null[row] {
				w.WriteEmptyCell()
				continue
			}
			switch col.Type {
			case TypeDouble:
				w.WriteNumberCell(strconv.FormatFloat(col.F64[row], 'g', -1, 64))
			case TypeInteger, TypeBigInt:
				w.WriteNumberCell(strconv.FormatInt(col.I64[row], 10))
			case TypeBoolean:
				if col.Bool[row] {
					w.WriteBooleanCell("1")
				} else {
					w.WriteBooleanCell("0")
				}
			case TypeDate:
				w.WriteDateCell(formatSerial(EpochMicrosToSerial(col.I64[row])))
			case TypeTime:
				w.WriteTimeCell(formatSerial(DayFractionOfMicros(col.I64[row])))
			case TypeTimestamp:
				w.WriteTimestampCell(formatSerial(EpochMicrosToSerial(col.I64[row])))
			case TypeTimestampS:
				w.WriteTimestampCellNoMilliseconds(formatSerial(EpochMicrosToSerial(col.I64[row])))
			default:
				w.WriteInlineStringCell(col.Str[row])
			}
		}
		w.EndRow()
		if w.err != nil {
			return
		}
	}
}

func formatSerial(serial float64) string {
	return strconv.FormatFloat(serial, 'f', -1, 64)
}

// Finish synthesizes the remaining package parts and finalizes the
// archive.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}

	w.writeWorkbook()
	w.writeRels()
	w.writeStyles()
	w.writeSharedStrings()
	w.writeProps()
	w.writeContentTypes()

	if err := w.stream.Finalize(); err != nil && w.err == nil {
		w.err = err
	}
	return w.err
}

func (w *Writer) writeWorkbook() {
	w.stream.BeginFile("xl/workbook.xml")
	w.stream.WriteString(workbookXMLStart)
	for i, sheet := range w.writtenSheets {
		w.stream.WriteString(`<sheet name="` + sheet.name +
			`" state="visible" sheetId="` + strconv.Itoa(i+1) +
			`" r:id="rId` + strconv.Itoa(i+4) + `"/>`)
	}
	w.stream.WriteString(workbookXMLEnd)
	w.stream.EndFile()
}

func (w *Writer) writeRels() {
	w.stream.AddDirectory("xl/_rels/")

	w.stream.BeginFile("xl/_rels/workbook.xml.rels")
	w.stream.WriteString(workbookRelsXMLStart)
	// Relationship ids 1-3 are fixed for theme, styles and sharedStrings;
	// worksheets start at rId4.
	for i, sheet := range w.writtenSheets {
		w.stream.WriteString(`<Relationship Id="rId` + strconv.Itoa(i+4) +
			`" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/` +
			sheet.file + `"/>`)
	}
	w.stream.WriteString(workbookRelsXMLEnd)
	w.stream.EndFile()
}

func (w *Writer) writeStyles() {
	w.stream.BeginFile("xl/styles.xml")
	w.stream.WriteString(stylesXML)
	w.stream.EndFile()
}

func (w *Writer) writeSharedStrings() {
	// Shared strings are never produced, but the placeholder part keeps
	// the fixed rId3 relationship valid.
	w.stream.BeginFile("xl/sharedStrings.xml")
	w.stream.WriteString(sharedStringsXML)
	w.stream.EndFile()
}

func (w *Writer) writeProps() {
	w.stream.BeginFile("docProps/core.xml")
	w.stream.WriteString(corePropsXML)
	w.stream.EndFile()

	w.stream.BeginFile("docProps/app.xml")
	w.stream.WriteString(appPropsXML)
	w.stream.EndFile()

	w.stream.AddDirectory("_rels/")
	w.stream.BeginFile("_rels/.rels")
	w.stream.WriteString(rootRelsXML)
	w.stream.EndFile()
}

func (w *Writer) writeContentTypes() {
	w.stream.BeginFile("[Content_Types].xml")
	w.stream.WriteString(contentTypesXMLStart)
	for _, sheet := range w.writtenSheets {
		w.stream.WriteString(`<Override PartName="/xl/worksheets/` + sheet.file +
			`" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>`)
	}
	w.stream.WriteString(contentTypesXMLEnd)
	w.stream.EndFile()
}

// WriteTable writes a complete single-sheet package from a schema and a
// sequence of batches.
func WriteTable(out io.Writer, names []string, types []LogicalType, batches []*Batch, opts *WriteOptions) error {
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	sheetName := o.Sheet
	if sheetName == "" {
		sheetName = "Sheet1"
	}

	w := NewWriter(out, o.SheetRowLimit)
	w.BeginSheet(sheetName, names, types)
	if o.Header {
		w.WriteHeaderRow()
	}
	for _, batch := range batches {
		w.WriteBatch(batch)
		if err := w.Err(); err != nil {
			return err
		}
	}
	w.EndSheet()
	return w.Finish()
}
