package xlsx

import (
	"io"
	"sort"
	"strconv"

	"github.com/muktihari/xmltokenizer"
)

type sstState uint8

const (
	sstStart sstState = iota
	sstSst
	sstSi
	sstT
)

// sharedStringsParser walks sst -> si -> t of xl/sharedStrings.xml,
// accumulating character data inside <t> elements. The completed string is
// emitted once per <si> (rich-text runs concatenate). The optional
// uniqueCount attribute of <sst> is reported for capacity reservation.
type sharedStringsParser struct {
	state sstState
	data  []byte

	onUniqueCount func(count int)
	onString      func(d *Driver, s []byte)
}

func (p *sharedStringsParser) OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr) {
	switch p.state {
	case sstStart:
		if string(name) == "sst" {
			p.state = sstSst
			if val, ok := attrValue(attrs, "uniqueCount"); ok && p.onUniqueCount != nil {
				if count, err := strconv.Atoi(val); err == nil {
					p.onUniqueCount(count)
				}
			}
		}
	case sstSst:
		if string(name) == "si" {
			p.state = sstSi
		}
	case sstSi:
		if string(name) == "t" {
			p.state = sstT
			d.EnableText(true)
		}
	}
}

func (p *sharedStringsParser) OnEndElement(d *Driver, name []byte) {
	switch p.state {
	case sstT:
		if string(name) == "t" {
			d.EnableText(false)
			p.state = sstSi
		}
	case sstSi:
		if string(name) == "si" {
			p.state = sstSst
			p.onString(d, p.data)
			p.data = p.data[:0]
		}
	case sstSst:
		if string(name) == "sst" {
			d.Stop(false)
		}
	}
}

func (p *sharedStringsParser) OnText(d *Driver, text []byte) {
	p.data = append(p.data, text...)
}

// loadSharedStrings pushes every shared string into the table, in order.
func loadSharedStrings(r io.Reader, table *StringTable) error {
	p := &sharedStringsParser{
		onUniqueCount: table.Reserve,
		onString: func(d *Driver, s []byte) {
			table.Add(s)
		},
	}
	return ParseAll(r, p)
}

// searchSharedStrings resolves only the given indices, stopping the scan at
// the first string after the last wanted index.
func searchSharedStrings(r io.Reader, ids []int) (map[int]string, error) {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	result := make(map[int]string, len(sorted))
	next := 0
	current := 0

	p := &sharedStringsParser{}
	p.onString = func(d *Driver, s []byte) {
		if next >= len(sorted) {
			d.Stop(false)
			return
		}
		if sorted[next] == current {
			result[current] = string(s)
			next++
			for next < len(sorted) && sorted[next] == sorted[next-1] {
				next++
			}
		}
		current++
	}
	if err := ParseAll(r, p); err != nil {
		return nil, err
	}
	return result, nil
}
