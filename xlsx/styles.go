package xlsx

import (
	"io"
	"strconv"
	"strings"

	"github.com/muktihari/xmltokenizer"
)

// StyleSheet maps cell style indices (the "s" attribute of a cell) to the
// logical type the style implies for numeric cells.
type StyleSheet struct {
	formats []LogicalType
}

// Format returns the logical type of the given style index, if the
// stylesheet defines one.
func (s *StyleSheet) Format(idx int) (LogicalType, bool) {
	if s == nil || idx < 0 || idx >= len(s.formats) {
		return TypeDouble, false
	}
	return s.formats[idx], true
}

type styleState uint8

const (
	styleStart styleState = iota
	styleStylesheet
	styleNumFmts
	styleNumFmt
	styleCellXfs
	styleXf
)

// styleParser walks numFmts/numFmt and cellXfs/xf of xl/styles.xml. Custom
// number formats (ids above 163) are classified by substring tests on the
// format code; the builtin date/time ids are hardcoded.
type styleParser struct {
	state         styleState
	numberFormats map[int]LogicalType
	cellStyles    []LogicalType
	err           error
}

func formatCodeContainsAny(code string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(code, sub) {
			return true
		}
	}
	return false
}

func (p *styleParser) OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr) {
	switch p.state {
	case styleStart:
		if string(name) == "styleSheet" {
			p.state = styleStylesheet
		}
	case styleStylesheet:
		if string(name) == "numFmts" {
			p.state = styleNumFmts
		} else if string(name) == "cellXfs" {
			p.state = styleCellXfs
		}
	case styleNumFmts:
		p.state = styleNumFmt

		idStr, hasID := attrValue(attrs, "numFmtId")
		code, hasCode := attrValue(attrs, "formatCode")
		if !hasID {
			p.err = newInputError("Invalid numFmt entry in styles.xml")
			d.Stop(false)
			return
		}
		id, _ := strconv.Atoi(idStr)
		if id <= 163 || !hasCode {
			return
		}

		hasDatePart := formatCodeContainsAny(code, "DD", "dd", "YY", "yy")
		hasTimePart := formatCodeContainsAny(code, "HH", "hh", "h", "H")

		switch {
		case hasDatePart && hasTimePart:
			p.numberFormats[id] = TypeTimestamp
		case hasDatePart:
			p.numberFormats[id] = TypeDate
		case hasTimePart:
			p.numberFormats[id] = TypeTime
		default:
			p.numberFormats[id] = TypeDouble
		}
	case styleCellXfs:
		p.state = styleXf

		idStr, hasID := attrValue(attrs, "numFmtId")
		if !hasID {
			p.err = newInputError("Invalid xf entry in styles.xml")
			d.Stop(false)
			return
		}
		id, _ := strconv.Atoi(idStr)
		if id < 164 {
			switch {
			case id >= 14 && id <= 17:
				p.cellStyles = append(p.cellStyles, TypeDate)
			case id >= 18 && id <= 21:
				p.cellStyles = append(p.cellStyles, TypeTime)
			case id == 22:
				p.cellStyles = append(p.cellStyles, TypeTimestamp)
			default:
				p.cellStyles = append(p.cellStyles, TypeDouble)
			}
		} else if format, ok := p.numberFormats[id]; ok {
			p.cellStyles = append(p.cellStyles, format)
		}
	}
}

func (p *styleParser) OnEndElement(d *Driver, name []byte) {
	switch p.state {
	case styleNumFmt:
		if string(name) == "numFmt" {
			p.state = styleNumFmts
		}
	case styleXf:
		if string(name) == "xf" {
			p.state = styleCellXfs
		}
	case styleNumFmts:
		if string(name) == "numFmts" {
			p.state = styleStylesheet
		}
	case styleCellXfs:
		if string(name) == "cellXfs" {
			p.state = styleStylesheet
		}
	case styleStylesheet:
		if string(name) == "styleSheet" {
			d.Stop(false)
		}
	}
}

func (p *styleParser) OnText(d *Driver, text []byte) {}

func parseStyles(r io.Reader) (*StyleSheet, error) {
	p := &styleParser{numberFormats: make(map[int]LogicalType)}
	if err := ParseAll(r, p); err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	return &StyleSheet{formats: p.cellStyles}, nil
}
