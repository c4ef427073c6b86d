package packet

import "fmt"

// Base is the closed set of type tags from spec.md §3.
type Base string

const (
	BaseString Base = "string"
	BaseBytes  Base = "bytes"
	BaseI64    Base = "i64"
	BaseU64    Base = "u64"
	BaseF64    Base = "f64"
	BaseBool   Base = "bool"
	BaseList   Base = "list"
	BaseMap    Base = "map"
	BaseStruct Base = "struct"
	BaseAny    Base = "any"
)

// TypeTag is a PortSignature's type: (name, type_tag) per spec.md §3,
// minus the name (carried separately by PortSignature).
type TypeTag struct {
	Base Base

	// Elem is the element type for BaseList.
	Elem *TypeTag
	// Key, Value are the key/value types for BaseMap.
	Key   *TypeTag
	Value *TypeTag
	// Ref names the struct definition for BaseStruct.
	Ref string
}

func String() TypeTag { return TypeTag{Base: BaseString} }
func Bytes() TypeTag  { return TypeTag{Base: BaseBytes} }
func I64() TypeTag    { return TypeTag{Base: BaseI64} }
func U64() TypeTag    { return TypeTag{Base: BaseU64} }
func F64() TypeTag    { return TypeTag{Base: BaseF64} }
func Bool() TypeTag   { return TypeTag{Base: BaseBool} }
func Any() TypeTag    { return TypeTag{Base: BaseAny} }

func List(elem TypeTag) TypeTag { return TypeTag{Base: BaseList, Elem: &elem} }
func Map(key, value TypeTag) TypeTag {
	return TypeTag{Base: BaseMap, Key: &key, Value: &value}
}
func Struct(ref string) TypeTag { return TypeTag{Base: BaseStruct, Ref: ref} }

func (t TypeTag) String() string {
	switch t.Base {
	case BaseList:
		return fmt.Sprintf("list<%s>", t.Elem)
	case BaseMap:
		return fmt.Sprintf("map<%s,%s>", t.Key, t.Value)
	case BaseStruct:
		return fmt.Sprintf("struct<%s>", t.Ref)
	default:
		return string(t.Base)
	}
}

// Compatible reports whether a producer output typed `from` may feed a
// consumer input typed `to`, per spec.md §3's type compatibility
// relation: width-subtyping over `any`, exact match otherwise.
func Compatible(from, to TypeTag) bool {
	if to.Base == BaseAny || from.Base == BaseAny {
		return true
	}
	if from.Base != to.Base {
		return false
	}
	switch from.Base {
	case BaseList:
		return Compatible(*from.Elem, *to.Elem)
	case BaseMap:
		return Compatible(*from.Key, *to.Key) && Compatible(*from.Value, *to.Value)
	case BaseStruct:
		return from.Ref == to.Ref
	default:
		return true
	}
}
