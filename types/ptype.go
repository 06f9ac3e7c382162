package types

import (
	"strconv"
	"strings"
	"sync"
)

// PrimitiveKind is the element kind of a PType.
type PrimitiveKind uint8

const (
	Void PrimitiveKind = iota
	Integer
	Real
	Boolean
	String
	// Error marks a type which could not be determined because of a
	// semantic error. It is never compatible with anything.
	Error
)

var kindNames = [...]string{
	Void:    "void",
	Integer: "integer",
	Real:    "real",
	Boolean: "boolean",
	String:  "string",
	Error:   "<error>",
}

func (k PrimitiveKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "PrimitiveKind(" + strconv.Itoa(int(k)) + ")"
}

// PType is the type of a declaration or expression: a primitive kind plus
// zero or more array dimensions.
//
// A PType is immutable after construction and may be shared.
type PType struct {
	kind       PrimitiveKind
	dimensions []int64

	describeOnce sync.Once
	description  string
}

// New creates a type. Dimensions are copied.
func New(kind PrimitiveKind, dimensions ...int64) *PType {
	t := &PType{kind: kind}
	if len(dimensions) > 0 {
		t.dimensions = append([]int64(nil), dimensions...)
	}
	return t
}

// Scalar types shared by the analyzer.
var (
	VoidType    = New(Void)
	IntegerType = New(Integer)
	RealType    = New(Real)
	BooleanType = New(Boolean)
	StringType  = New(String)
	ErrorType   = New(Error)
)

// Kind returns the primitive kind.
func (t *PType) Kind() PrimitiveKind {
	return t.kind
}

// Dimensions returns a copy of the array extents, outermost first.
func (t *PType) Dimensions() []int64 {
	return append([]int64(nil), t.dimensions...)
}

// Rank returns the number of dimensions.
func (t *PType) Rank() int {
	return len(t.dimensions)
}

// ElementCount is the number of scalar elements a value of this type holds.
// Non-positive extents count as zero.
func (t *PType) ElementCount() int64 {
	count := int64(1)
	for _, dim := range t.dimensions {
		if dim <= 0 {
			return 0
		}
		count *= dim
	}
	return count
}

func (t *PType) IsScalar() bool {
	return len(t.dimensions) == 0 && t.kind != Void
}

func (t *PType) IsInteger() bool { return t.kind == Integer && len(t.dimensions) == 0 }
func (t *PType) IsReal() bool    { return t.kind == Real && len(t.dimensions) == 0 }
func (t *PType) IsBool() bool    { return t.kind == Boolean && len(t.dimensions) == 0 }
func (t *PType) IsString() bool  { return t.kind == String && len(t.dimensions) == 0 }
func (t *PType) IsVoid() bool    { return t.kind == Void && len(t.dimensions) == 0 }
func (t *PType) IsError() bool   { return t.kind == Error }

// IsNumeric reports whether t is a scalar integer or real.
func (t *PType) IsNumeric() bool {
	return t.IsInteger() || t.IsReal()
}

// CanCoerceTo reports whether a value of type t may be used where other is
// expected. Integer and real coerce to each other; every other kind needs an
// exact match. Dimensions must agree exactly.
func (t *PType) CanCoerceTo(other *PType) bool {
	if t == nil || other == nil {
		return false
	}
	switch t.kind {
	case Integer, Real:
		if other.kind != Integer && other.kind != Real {
			return false
		}
	case Boolean, String:
		if other.kind != t.kind {
			return false
		}
	default:
		return false
	}
	if len(t.dimensions) != len(other.dimensions) {
		return false
	}
	for i := range t.dimensions {
		if t.dimensions[i] != other.dimensions[i] {
			return false
		}
	}
	return true
}

// Equal reports exact structural equality (no coercion).
func (t *PType) Equal(other *PType) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.kind != other.kind || len(t.dimensions) != len(other.dimensions) {
		return false
	}
	for i := range t.dimensions {
		if t.dimensions[i] != other.dimensions[i] {
			return false
		}
	}
	return true
}

// ElementType returns the type left after indexing t n times. ok is false
// if n exceeds the number of dimensions.
func (t *PType) ElementType(n int) (elem *PType, ok bool) {
	if n < 0 || n > len(t.dimensions) {
		return nil, false
	}
	if n == 0 {
		return t, true
	}
	return New(t.kind, t.dimensions[n:]...), true
}

// String renders t the way diagnostics and the symbol dump show it, for
// example "integer" or "real [2][3]".
func (t *PType) String() string {
	t.describeOnce.Do(func() {
		var sb strings.Builder
		sb.WriteString(t.kind.String())
		if len(t.dimensions) > 0 {
			sb.WriteByte(' ')
			for _, dim := range t.dimensions {
				sb.WriteByte('[')
				sb.WriteString(strconv.FormatInt(dim, 10))
				sb.WriteByte(']')
			}
		}
		t.description = sb.String()
	})
	return t.description
}
