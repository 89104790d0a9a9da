package xlsx

// LogicalType is the host-side type of a column vector.
type LogicalType uint8

const (
	TypeVarchar LogicalType = iota
	TypeDouble
	TypeBoolean
	TypeInteger
	TypeBigInt
	TypeDate
	TypeTime
	TypeTimestamp
	TypeTimestampS
)

var logicalTypeNames = map[LogicalType]string{
	TypeVarchar:    "VARCHAR",
	TypeDouble:     "DOUBLE",
	TypeBoolean:    "BOOLEAN",
	TypeInteger:    "INTEGER",
	TypeBigInt:     "BIGINT",
	TypeDate:       "DATE",
	TypeTime:       "TIME",
	TypeTimestamp:  "TIMESTAMP",
	TypeTimestampS: "TIMESTAMP_S",
}

func (t LogicalType) String() string {
	if name, ok := logicalTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// IsNumeric reports whether the type is written as a plain number cell.
func (t LogicalType) IsNumeric() bool {
	return t == TypeDouble || t == TypeInteger || t == TypeBigInt
}

// IsTemporal reports whether the type is carried as epoch microseconds.
func (t LogicalType) IsTemporal() bool {
	switch t {
	case TypeDate, TypeTime, TypeTimestamp, TypeTimestampS:
		return true
	}
	return false
}

// Column is one typed vector of a batch. Null marks invalid rows; exactly
// one of the value slices is populated, chosen by Type.
type Column struct {
	Type LogicalType

	Null []bool

	// Str holds VARCHAR values.
	Str []string
	// F64 holds DOUBLE values.
	F64 []float64
	// Bool holds BOOLEAN values.
	Bool []bool
	// I64 holds INTEGER and BIGINT values, and epoch microseconds for the
	// temporal types (TIME is microseconds since midnight).
	I64 []int64
}

func newColumn(t LogicalType, n int) Column {
	col := Column{Type: t, Null: make([]bool, n)}
	switch {
	case t == TypeVarchar:
		col.Str = make([]string, n)
	case t == TypeDouble:
		col.F64 = make([]float64, n)
	case t == TypeBoolean:
		col.Bool = make([]bool, n)
	default:
		col.I64 = make([]int64, n)
	}
	return col
}

// Batch is one fixed-capacity slice of rows. Rows maps each batch row to
// the 1-indexed sheet row it came from.
type Batch struct {
	Columns []Column
	Rows    []int
}

// Len returns the batch cardinality.
func (b *Batch) Len() int {
	return len(b.Rows)
}

// BatchSize is the standard vector size: the row capacity of one batch.
const BatchSize = 2048
