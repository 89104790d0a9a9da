package xlsx

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTestTable(t *testing.T, names []string, types []LogicalType, batches []*Batch, opts *WriteOptions) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteTable(&buf, names, types, batches, opts); err != nil {
		t.Fatalf("WriteTable() error: %v", err)
	}
	return buf.Bytes()
}

func twoRowBatch() *Batch {
	return &Batch{
		Columns: []Column{
			{Type: TypeVarchar, Null: []bool{false, false}, Str: []string{"a", "b"}},
			{Type: TypeInteger, Null: []bool{false, false}, I64: []int64{1, 2}},
		},
		Rows: []int{1, 2},
	}
}

func TestWriterPackageParts(t *testing.T) {
	pkg := writeTestTable(t,
		[]string{"name", "score"},
		[]LogicalType{TypeVarchar, TypeInteger},
		[]*Batch{twoRowBatch()},
		&WriteOptions{Header: true},
	)

	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		t.Fatalf("produced package is not a zip: %v", err)
	}

	got := make(map[string]bool)
	for _, f := range zr.File {
		got[f.Name] = true
	}
	want := []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"xl/workbook.xml",
		"xl/_rels/workbook.xml.rels",
		"xl/styles.xml",
		"xl/sharedStrings.xml",
		"xl/worksheets/sheet1.xml",
		"docProps/core.xml",
		"docProps/app.xml",
	}
	for _, name := range want {
		if !got[name] {
			t.Errorf("missing package part %s", name)
		}
	}
}

func TestWriterRoundtrip(t *testing.T) {
	pkg := writeTestTable(t,
		[]string{"name", "score"},
		[]LogicalType{TypeVarchar, TypeInteger},
		[]*Batch{twoRowBatch()},
		&WriteOptions{Header: true},
	)

	r, err := NewReader(bytes.NewReader(pkg), int64(len(pkg)), nil)
	if err != nil {
		t.Fatalf("NewReader() on written package: %v", err)
	}
	defer r.Close()

	names, types := r.Columns()
	if diff := cmp.Diff([]string{"name", "score"}, names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	// Types may widen: the integer column reads back as double.
	if diff := cmp.Diff([]LogicalType{TypeVarchar, TypeDouble}, types); diff != "" {
		t.Errorf("types mismatch (-want +got):\n%s", diff)
	}

	batch, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if batch == nil || batch.Len() != 2 {
		t.Fatalf("want 2 rows back")
	}
	if diff := cmp.Diff([]string{"a", "b"}, batch.Columns[0].Str); diff != "" {
		t.Errorf("name column mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2}, batch.Columns[1].F64); diff != "" {
		t.Errorf("score column mismatch (-want +got):\n%s", diff)
	}
}

func TestWriterSheetNameAndEscaping(t *testing.T) {
	pkg := writeTestTable(t,
		[]string{"v"},
		[]LogicalType{TypeVarchar},
		[]*Batch{{
			Columns: []Column{{Type: TypeVarchar, Null: []bool{false}, Str: []string{"x<&>y"}}},
			Rows:    []int{1},
		}},
		&WriteOptions{Sheet: "R&D <2024>", Header: true},
	)

	r, err := NewReader(bytes.NewReader(pkg), int64(len(pkg)), nil)
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	defer r.Close()

	if r.SheetName() != "R&D <2024>" {
		t.Errorf("SheetName() = %q", r.SheetName())
	}
	batch, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if batch.Columns[0].Str[0] != "x<&>y" {
		t.Errorf("escaped value read back as %q", batch.Columns[0].Str[0])
	}
}

func TestWriterTemporalCells(t *testing.T) {
	const jan1_2022 = int64(1_640_995_200_000_000)
	batch := &Batch{
		Columns: []Column{
			{Type: TypeDate, Null: []bool{false}, I64: []int64{jan1_2022}},
			{Type: TypeTimestamp, Null: []bool{false}, I64: []int64{jan1_2022 + 43_200_000_000}},
		},
		Rows: []int{1},
	}
	pkg := writeTestTable(t, []string{"d", "ts"}, []LogicalType{TypeDate, TypeTimestamp}, []*Batch{batch}, nil)

	sheet := readPart(t, pkg, "xl/worksheets/sheet1.xml")
	// 2022-01-01 is serial 44562; noon is 44562.5.
	if !strings.Contains(sheet, `s="1"`) || !strings.Contains(sheet, ">44562<") {
		t.Errorf("date cell not serialized: %s", sheet)
	}
	if !strings.Contains(sheet, `s="4"`) || !strings.Contains(sheet, ">44562.5<") {
		t.Errorf("timestamp cell not serialized: %s", sheet)
	}
}

func TestWriterBooleanCell(t *testing.T) {
	batch := &Batch{
		Columns: []Column{{Type: TypeBoolean, Null: []bool{false, false}, Bool: []bool{true, false}}},
		Rows:    []int{1, 2},
	}
	pkg := writeTestTable(t, []string{"flag"}, []LogicalType{TypeBoolean}, []*Batch{batch}, nil)

	sheet := readPart(t, pkg, "xl/worksheets/sheet1.xml")
	if !strings.Contains(sheet, `t="b" s="5"`) {
		t.Errorf("boolean cells missing type/style: %s", sheet)
	}
}

func TestWriterNullsBecomeEmptyCells(t *testing.T) {
	batch := &Batch{
		Columns: []Column{
			{Type: TypeDouble, Null: []bool{true}, F64: []float64{0}},
			{Type: TypeDouble, Null: []bool{false}, F64: []float64{7}},
		},
		Rows: []int{1},
	}
	pkg := writeTestTable(t, []string{"a", "b"}, []LogicalType{TypeDouble, TypeDouble}, []*Batch{batch}, nil)

	sheet := readPart(t, pkg, "xl/worksheets/sheet1.xml")
	if strings.Contains(sheet, `r="A1"`) {
		t.Errorf("null cell should be skipped entirely: %s", sheet)
	}
	if !strings.Contains(sheet, `r="B1"`) {
		t.Errorf("non-null cell missing: %s", sheet)
	}
}

func TestWriterRowLimitDefaultMessage(t *testing.T) {
	w := NewWriter(&bytes.Buffer{}, 0)
	w.rowLimit = MaxCellRows // explicit, for clarity
	w.rowIdx = MaxCellRows   // pretend we already wrote the maximum
	w.BeginSheet("S", []string{"v"}, []LogicalType{TypeDouble})
	w.BeginRow()
	w.WriteNumberCell("1")
	w.EndRow()

	err := w.Err()
	if err == nil {
		t.Fatal("expected row limit error")
	}
	if !strings.Contains(err.Error(), "sheet_row_limit") {
		t.Errorf("default limit message should suggest the override option: %v", err)
	}
}

func TestWriterRowLimitCustomMessage(t *testing.T) {
	w := NewWriter(&bytes.Buffer{}, 2)
	w.BeginSheet("S", []string{"v"}, []LogicalType{TypeDouble})
	for i := 0; i < 3; i++ {
		w.BeginRow()
		w.WriteNumberCell("1")
		w.EndRow()
	}

	err := w.Err()
	if err == nil {
		t.Fatal("expected row limit error")
	}
	if !strings.Contains(err.Error(), "'2'") {
		t.Errorf("custom limit message should cite the caller's limit: %v", err)
	}
	if strings.Contains(err.Error(), "sheet_row_limit") {
		t.Errorf("custom limit message should not suggest the override option: %v", err)
	}
}

func TestWriterMultipleSheets(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, 0)

	w.BeginSheet("One", []string{"v"}, []LogicalType{TypeDouble})
	w.BeginRow()
	w.WriteNumberCell("1")
	w.EndRow()
	w.EndSheet()

	w.BeginSheet("Two", []string{"v"}, []LogicalType{TypeDouble})
	w.BeginRow()
	w.WriteNumberCell("2")
	w.EndRow()
	w.EndSheet()

	if err := w.Finish(); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}

	pkg := buf.Bytes()
	workbook := readPart(t, pkg, "xl/workbook.xml")
	if !strings.Contains(workbook, `name="One"`) || !strings.Contains(workbook, `name="Two"`) {
		t.Errorf("workbook missing sheets: %s", workbook)
	}
	if !strings.Contains(workbook, `r:id="rId4"`) || !strings.Contains(workbook, `r:id="rId5"`) {
		t.Errorf("sheet relationship ids should start at rId4: %s", workbook)
	}

	rels := readPart(t, pkg, "xl/_rels/workbook.xml.rels")
	if !strings.Contains(rels, `Target="worksheets/sheet2.xml"`) {
		t.Errorf("second sheet relationship missing: %s", rels)
	}

	// The second sheet is readable by name.
	r, err := NewReader(bytes.NewReader(pkg), int64(len(pkg)), &ReadOptions{Sheet: "Two", Header: HeaderNever})
	if err != nil {
		t.Fatalf("NewReader() error: %v", err)
	}
	defer r.Close()
	batch, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if batch.Columns[0].F64[0] != 2 {
		t.Errorf("sheet Two value = %v, want 2", batch.Columns[0].F64[0])
	}
}

func readPart(t *testing.T, pkg []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	if err != nil {
		t.Fatalf("reading package: %v", err)
	}
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("opening %s: %v", name, err)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("reading %s: %v", name, err)
			}
			return string(data)
		}
	}
	t.Fatalf("part %s not found", name)
	return ""
}
