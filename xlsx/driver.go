package xlsx

import (
	"bytes"
	"errors"
	"io"

	"github.com/muktihari/xmltokenizer"
)

// Status is the outcome of driving the XML handler over a part.
type Status uint8

const (
	// StatusOK means the part was consumed to the end.
	StatusOK Status = iota
	// StatusSuspended means a handler stopped the driver resumably; Resume
	// continues at the exact byte offset where parsing left off.
	StatusSuspended
	// StatusAborted means a handler stopped the driver for good. Further
	// Parse or Resume calls are no-ops.
	StatusAborted
)

// Handler receives the SAX callbacks of a Driver. Element names arrive with
// any namespace prefix stripped. Text is only delivered while the handler
// has called EnableText(true), with entities already decoded.
type Handler interface {
	OnStartElement(d *Driver, name []byte, attrs []xmltokenizer.Attr)
	OnEndElement(d *Driver, name []byte)
	OnText(d *Driver, text []byte)
}

const driverReadBufferSize = 8 << 10

// Driver adapts the streaming XML tokenizer to the suspendable push model
// the part parsers are written against. The driver owns the handler only
// for the duration of one Parse/Resume sequence; between a call returning
// StatusSuspended and the next Resume no callback fires.
type Driver struct {
	tok     *xmltokenizer.Tokenizer
	handler Handler
	src     *lineCountingReader

	textEnabled bool
	stopped     bool
	resumable   bool
	aborted     bool
	scratch     []byte
}

// NewDriver creates a driver reading the XML part from r and dispatching to
// h. The part is consumed in 8 KiB chunks.
func NewDriver(r io.Reader, h Handler) *Driver {
	src := &lineCountingReader{r: r, line: 1}
	return &Driver{
		tok:     xmltokenizer.New(src, xmltokenizer.WithReadBufferSize(driverReadBufferSize)),
		handler: h,
		src:     src,
	}
}

// EnableText turns character-data delivery on or off.
func (d *Driver) EnableText(enable bool) {
	d.textEnabled = enable
}

// Stop halts the driver from inside a callback. With resumable set the
// enclosing Parse or Resume returns StatusSuspended; otherwise it returns
// StatusAborted and the driver is dead.
func (d *Driver) Stop(resumable bool) {
	d.stopped = true
	d.resumable = resumable
}

// Parse drives the handler until the part ends or a callback stops the
// driver. A hard tokenizer failure surfaces as a *ParseError.
func (d *Driver) Parse() (Status, error) {
	return d.run()
}

// Resume continues a suspended parse at the byte offset where it stopped.
func (d *Driver) Resume() (Status, error) {
	return d.run()
}

func (d *Driver) run() (Status, error) {
	if d.aborted {
		return StatusAborted, nil
	}
	for {
		tok, err := d.tok.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return StatusOK, nil
			}
			d.aborted = true
			return StatusAborted, &ParseError{
				Line:    d.src.line,
				Column:  d.src.col(),
				Message: err.Error(),
			}
		}
		d.dispatch(&tok)
		if d.stopped {
			d.stopped = false
			if d.resumable {
				return StatusSuspended, nil
			}
			d.aborted = true
			return StatusAborted, nil
		}
	}
}

func (d *Driver) dispatch(tok *xmltokenizer.Token) {
	name := tok.Name.Local
	if len(name) == 0 {
		// Prolog, comment or directive.
		return
	}
	if tok.IsEndElement {
		d.handler.OnEndElement(d, name)
		if d.stopped {
			return
		}
		d.emitText(tok.Data)
		return
	}
	d.handler.OnStartElement(d, name, tok.Attrs)
	if d.stopped {
		return
	}
	d.emitText(tok.Data)
	if d.stopped {
		return
	}
	if tok.SelfClosing {
		d.handler.OnEndElement(d, name)
	}
}

func (d *Driver) emitText(data []byte) {
	if !d.textEnabled || len(data) == 0 {
		return
	}
	if bytes.IndexByte(data, '&') < 0 {
		d.handler.OnText(d, data)
		return
	}
	d.scratch = append(d.scratch[:0], unescapeXMLBytes(data)...)
	d.handler.OnText(d, d.scratch)
}

// ParseAll drives h over the whole part, transparently resuming across
// suspension points. It returns once the part is consumed or the handler
// aborts.
func ParseAll(r io.Reader, h Handler) error {
	d := NewDriver(r, h)
	status, err := d.Parse()
	for status == StatusSuspended && err == nil {
		status, err = d.Resume()
	}
	return err
}

// attrValue returns the decoded value of the attribute with the given full
// (prefix-qualified) name. Attribute names are matched case-sensitively.
func attrValue(attrs []xmltokenizer.Attr, name string) (string, bool) {
	for i := range attrs {
		if string(attrs[i].Name.Full) == name {
			return unescapeXMLBytes(attrs[i].Value), true
		}
	}
	return "", false
}

// lineCountingReader tracks newlines as bytes stream through it, so hard
// parse errors can be annotated with an approximate position.
type lineCountingReader struct {
	r    io.Reader
	n    int64
	line int
	last int64 // offset just past the most recent newline
}

func (l *lineCountingReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	for i := 0; i < n; i++ {
		if p[i] == '\n' {
			l.line++
			l.last = l.n + int64(i) + 1
		}
	}
	l.n += int64(n)
	return n, err
}

func (l *lineCountingReader) col() int {
	return int(l.n-l.last) + 1
}
