package decoder

// FieldKind is the interpretation chosen for a byte range.
type FieldKind uint8

const (
	VariableString FieldKind = iota + 1
	FixedString
	Float32
	Int32
	UInt32
	Int16
	UInt16
	Byte
)

var kindNames = map[FieldKind]string{
	VariableString: "string",
	FixedString:    "fixed_string",
	Float32:        "float32",
	Int32:          "int32",
	UInt32:         "uint32",
	Int16:          "int16",
	UInt16:         "uint16",
	Byte:           "byte",
}

func (k FieldKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Kinds lists every FieldKind in classifier priority order.
func Kinds() []FieldKind {
	return []FieldKind{VariableString, FixedString, Float32, Int32, UInt32, Int16, UInt16, Byte}
}

// Field is one classified, contiguous byte range.
//
// Text is set for the string kinds, Float for Float32 and Int for the signed
// kinds. Uint holds the unsigned value, or the raw bits for Float32 and the
// signed kinds so renderers can show them in hex.
type Field struct {
	Offset int
	Kind   FieldKind
	Width  int

	Text  string
	Float float32
	Int   int64
	Uint  uint64
}

// End returns the offset just past the field.
func (f Field) End() int {
	return f.Offset + f.Width
}

// IsBool reports whether a Byte field holds 0 or 1.
func (f Field) IsBool() bool {
	return f.Kind == Byte && f.Uint <= 1
}

// Value returns the typed value for presentation.
func (f Field) Value() any {
	switch f.Kind {
	case VariableString, FixedString:
		return f.Text
	case Float32:
		return f.Float
	case Int32, Int16:
		return f.Int
	default:
		return f.Uint
	}
}
