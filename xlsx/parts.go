package xlsx

import (
	"io"
	"strings"

	"github.com/muktihari/xmltokenizer"
)

// Content types identifying the workbook and worksheet parts inside
// [Content_Types].xml.
const (
	workbookContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
	worksheetContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"
)

// contentInfo is the result of parsing [Content_Types].xml.
type contentInfo struct {
	workbookPath string
	sheetPath    string
}

type ctState uint8

const (
	ctStart ctState = iota
	ctTypes
	ctOverride
	ctEnd
)

// contentTypesParser walks START -> TYPES -> OVERRIDE -> TYPES -> END and
// captures the part names of the workbook-main and worksheet overrides.
type contentTypesParser struct {
	state ctState
	info  contentInfo
	err   error
}

func (p *contentTypesParser) OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr) {
	switch p.state {
	case ctStart:
		if string(name) == "Types" {
			p.state = ctTypes
		}
	case ctTypes:
		if string(name) == "Override" {
			p.state = ctOverride

			ctype, hasType := attrValue(attrs, "ContentType")
			pname, hasName := attrValue(attrs, "PartName")
			if !hasType || !hasName {
				p.err = newInputError("Invalid content type entry in [Content_Types].xml")
				d.Stop(false)
				return
			}
			switch ctype {
			case workbookContentType:
				p.info.workbookPath = pname
			case worksheetContentType:
				p.info.sheetPath = pname
			}
		}
	}
}

func (p *contentTypesParser) OnEndElement(d *Driver, name []byte) {
	switch p.state {
	case ctOverride:
		if string(name) == "Override" {
			p.state = ctTypes
		}
	case ctTypes:
		if string(name) == "Types" {
			p.state = ctEnd
			d.Stop(false)
		}
	}
}

func (p *contentTypesParser) OnText(d *Driver, text []byte) {}

func parseContentTypes(r io.Reader) (contentInfo, error) {
	p := &contentTypesParser{}
	if err := ParseAll(r, p); err != nil {
		return contentInfo{}, err
	}
	return p.info, p.err
}

// sheetEntry is one <sheet> of xl/workbook.xml, in document order.
type sheetEntry struct {
	Name  string
	RelID string
}

type wbState uint8

const (
	wbStart wbState = iota
	wbWorkbook
	wbSheets
	wbSheet
)

// workbookParser collects the (name, r:id) pairs of every sheet declared in
// xl/workbook.xml.
type workbookParser struct {
	state  wbState
	sheets []sheetEntry
	err    error
}

func (p *workbookParser) OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr) {
	switch p.state {
	case wbStart:
		if string(name) == "workbook" {
			p.state = wbWorkbook
		}
	case wbWorkbook:
		if string(name) == "sheets" {
			p.state = wbSheets
		}
	case wbSheets:
		if string(name) == "sheet" {
			p.state = wbSheet

			sheetName, hasName := attrValue(attrs, "name")
			sheetRID, hasRID := attrValue(attrs, "r:id")
			if !hasName || !hasRID {
				p.err = newInputError("Invalid sheet entry in workbook.xml")
				d.Stop(false)
				return
			}
			p.sheets = append(p.sheets, sheetEntry{Name: sheetName, RelID: sheetRID})
		}
	}
}

func (p *workbookParser) OnEndElement(d *Driver, name []byte) {
	switch p.state {
	case wbSheet:
		if string(name) == "sheet" {
			p.state = wbSheets
		}
	case wbSheets:
		if string(name) == "sheets" {
			p.state = wbWorkbook
		}
	case wbWorkbook:
		if string(name) == "workbook" {
			d.Stop(false)
		}
	}
}

func (p *workbookParser) OnText(d *Driver, text []byte) {}

func parseWorkbook(r io.Reader) ([]sheetEntry, error) {
	p := &workbookParser{}
	if err := ParseAll(r, p); err != nil {
		return nil, err
	}
	return p.sheets, p.err
}

// relationship is one typed, id-addressed link from a .rels part.
type relationship struct {
	ID     string
	Type   string
	Target string
}

type relState uint8

const (
	relStart relState = iota
	relRelationships
	relRelationship
)

// relationshipsParser collects every <Relationship> of a .rels part. Id,
// Type and Target are all required.
type relationshipsParser struct {
	state relState
	rels  []relationship
	err   error
}

func (p *relationshipsParser) OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr) {
	switch p.state {
	case relStart:
		if string(name) == "Relationships" {
			p.state = relRelationships
		}
	case relRelationships:
		if string(name) == "Relationship" {
			p.state = relRelationship

			id, hasID := attrValue(attrs, "Id")
			typ, hasType := attrValue(attrs, "Type")
			target, hasTarget := attrValue(attrs, "Target")
			if !hasID || !hasType || !hasTarget {
				p.err = newInputError("Invalid relationship entry in _rels/.rels")
				d.Stop(false)
				return
			}
			p.rels = append(p.rels, relationship{ID: id, Type: typ, Target: target})
		}
	}
}

func (p *relationshipsParser) OnEndElement(d *Driver, name []byte) {
	switch p.state {
	case relRelationship:
		if string(name) == "Relationship" {
			p.state = relRelationships
		}
	case relRelationships:
		if string(name) == "Relationships" {
			d.Stop(false)
		}
	}
}

func (p *relationshipsParser) OnText(d *Driver, text []byte) {}

func parseRelationships(r io.Reader) ([]relationship, error) {
	p := &relationshipsParser{}
	if err := ParseAll(r, p); err != nil {
		return nil, err
	}
	return p.rels, p.err
}

// resolveSheetPaths maps sheet display names to worksheet part paths, in
// workbook order. Paths are normalized to be archive-absolute.
func resolveSheetPaths(sheets []sheetEntry, rels []relationship) (names []string, paths map[string]string) {
	ridToTarget := make(map[string]string, len(rels))
	for _, rel := range rels {
		if strings.HasSuffix(rel.Type, "/worksheet") {
			ridToTarget[rel.ID] = rel.Target
		}
	}

	paths = make(map[string]string, len(sheets))
	for _, sheet := range sheets {
		target, ok := ridToTarget[sheet.RelID]
		if !ok {
			continue
		}
		if strings.HasPrefix(target, "/xl/") {
			target = target[1:]
		} else if !strings.HasPrefix(target, "xl/") {
			target = "xl/" + target
		}
		paths[sheet.Name] = target
		names = append(names, sheet.Name)
	}
	return names, paths
}
