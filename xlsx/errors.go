package xlsx

import "fmt"

// InputError reports malformed content inside the package: bad XML shape,
// bad cell references, oversized cell text.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

func newInputError(format string, args ...interface{}) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

// BindError reports a failure while resolving the schema of a workbook:
// missing required parts, unknown sheet names, invalid range strings.
type BindError struct {
	Message string
}

func (e *BindError) Error() string {
	return e.Message
}

func newBindError(format string, args ...interface{}) *BindError {
	return &BindError{Message: fmt.Sprintf(format, args...)}
}

// ConversionError reports a cell value that failed to cast to the inferred
// column type. Cell carries the "A7"-style reference of the offending cell.
type ConversionError struct {
	Cell    string
	Message string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cell '%s': %s", e.Cell, e.Message)
}

// ParseError reports a hard failure of the underlying XML engine. This kind
// of error is fatal for the current operation.
type ParseError struct {
	Line    int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("XML parse error at line %d, column %d: %s", e.Line, e.Column, e.Message)
}
