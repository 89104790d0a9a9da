package xlsx

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sharedStringsDoc = `<?xml version="1.0"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="5" uniqueCount="4">
<si><t>alpha</t></si>
<si><r><t>be</t></r><r><t>ta</t></r></si>
<si><t>x &amp; y</t></si>
<si><t></t></si>
</sst>`

func TestLoadSharedStrings(t *testing.T) {
	table := NewStringTable()
	if err := loadSharedStrings(strings.NewReader(sharedStringsDoc), table); err != nil {
		t.Fatalf("loadSharedStrings() error: %v", err)
	}

	want := []string{"alpha", "beta", "x & y", ""}
	if table.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", table.Len(), len(want))
	}
	for i, w := range want {
		got, ok := table.Get(i)
		if !ok || got != w {
			t.Errorf("Get(%d) = %q, %v, want %q", i, got, ok, w)
		}
	}
}

func TestSearchSharedStrings(t *testing.T) {
	got, err := searchSharedStrings(strings.NewReader(sharedStringsDoc), []int{2, 0})
	if err != nil {
		t.Fatalf("searchSharedStrings() error: %v", err)
	}
	want := map[int]string{0: "alpha", 2: "x & y"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchSharedStringsDuplicateIDs(t *testing.T) {
	got, err := searchSharedStrings(strings.NewReader(sharedStringsDoc), []int{1, 1})
	if err != nil {
		t.Fatalf("searchSharedStrings() error: %v", err)
	}
	if got[1] != "beta" {
		t.Errorf("got[1] = %q, want %q", got[1], "beta")
	}
}

func TestSearchSharedStringsStopsEarly(t *testing.T) {
	// Truncate the document right after the second <si>; the searcher only
	// needs index 0 and must not read past it.
	doc := `<sst><si><t>alpha</t></si><si><t>beta</t></si>`
	got, err := searchSharedStrings(strings.NewReader(doc), []int{0})
	if err != nil {
		t.Fatalf("searchSharedStrings() error: %v", err)
	}
	if got[0] != "alpha" {
		t.Errorf("got[0] = %q, want %q", got[0], "alpha")
	}
}
