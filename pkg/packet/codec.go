package packet

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"wafl/pkg/waflerr"
)

// wireKind is the byte embedded ahead of every encoded value, making the
// encoding self-describing independent of the caller's expected TypeTag.
type wireKind byte

const (
	wireString wireKind = iota
	wireBytes
	wireI64
	wireU64
	wireF64
	wireBool
	wireList
	wireMap
	wireStruct
)

func kindFor(b Base) (wireKind, bool) {
	switch b {
	case BaseString:
		return wireString, true
	case BaseBytes:
		return wireBytes, true
	case BaseI64:
		return wireI64, true
	case BaseU64:
		return wireU64, true
	case BaseF64:
		return wireF64, true
	case BaseBool:
		return wireBool, true
	case BaseList:
		return wireList, true
	case BaseMap:
		return wireMap, true
	case BaseStruct:
		return wireStruct, true
	}
	return 0, false
}

func (k wireKind) base() Base {
	switch k {
	case wireString:
		return BaseString
	case wireBytes:
		return BaseBytes
	case wireI64:
		return BaseI64
	case wireU64:
		return BaseU64
	case wireF64:
		return BaseF64
	case wireBool:
		return BaseBool
	case wireList:
		return BaseList
	case wireMap:
		return BaseMap
	default:
		return BaseStruct
	}
}

// StructValue is the closed value domain's representation of
// struct<ref>: a named record of fields, encoded the same as a map but
// tagged with the struct's reference name.
type StructValue struct {
	Ref    string
	Fields map[string]interface{}
}

// Encode renders v, which must conform to tag, into WAFL's self-describing
// wire format. decode(encode(v, T), T) always reproduces v (spec.md §8.1).
func Encode(v interface{}, tag TypeTag) ([]byte, error) {
	var buf []byte
	buf, err := appendValue(buf, v, tag)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func appendValue(buf []byte, v interface{}, tag TypeTag) ([]byte, error) {
	switch val := v.(type) {
	case string:
		if tag.Base != BaseAny && tag.Base != BaseString {
			return nil, fmt.Errorf("value is string, tag is %s", tag)
		}
		buf = append(buf, byte(wireString))
		buf = appendUvarint(buf, uint64(len(val)))
		return append(buf, val...), nil
	case []byte:
		if tag.Base != BaseAny && tag.Base != BaseBytes {
			return nil, fmt.Errorf("value is bytes, tag is %s", tag)
		}
		buf = append(buf, byte(wireBytes))
		buf = appendUvarint(buf, uint64(len(val)))
		return append(buf, val...), nil
	case int64:
		if tag.Base != BaseAny && tag.Base != BaseI64 {
			return nil, fmt.Errorf("value is i64, tag is %s", tag)
		}
		buf = append(buf, byte(wireI64))
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(val))
		return append(buf, tmp[:]...), nil
	case uint64:
		if tag.Base != BaseAny && tag.Base != BaseU64 {
			return nil, fmt.Errorf("value is u64, tag is %s", tag)
		}
		buf = append(buf, byte(wireU64))
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], val)
		return append(buf, tmp[:]...), nil
	case float64:
		if tag.Base != BaseAny && tag.Base != BaseF64 {
			return nil, fmt.Errorf("value is f64, tag is %s", tag)
		}
		buf = append(buf, byte(wireF64))
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], math.Float64bits(val))
		return append(buf, tmp[:]...), nil
	case bool:
		if tag.Base != BaseAny && tag.Base != BaseBool {
			return nil, fmt.Errorf("value is bool, tag is %s", tag)
		}
		buf = append(buf, byte(wireBool))
		if val {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
		return buf, nil
	case []interface{}:
		if tag.Base != BaseAny && tag.Base != BaseList {
			return nil, fmt.Errorf("value is list, tag is %s", tag)
		}
		elemTag := Any()
		if tag.Elem != nil {
			elemTag = *tag.Elem
		}
		buf = append(buf, byte(wireList))
		buf = appendUvarint(buf, uint64(len(val)))
		for _, e := range val {
			var err error
			buf, err = appendValue(buf, e, elemTag)
			if err != nil {
				return nil, err
			}
		}
		return buf, nil
	case map[string]interface{}:
		if tag.Base != BaseAny && tag.Base != BaseMap {
			return nil, fmt.Errorf("value is map, tag is %s", tag)
		}
		valueTag := Any()
		if tag.Value != nil {
			valueTag = *tag.Value
		}
		buf = append(buf, byte(wireMap))
		return appendMap(buf, val, valueTag)
	case StructValue:
		if tag.Base != BaseAny && tag.Base != BaseStruct {
			return nil, fmt.Errorf("value is struct, tag is %s", tag)
		}
		buf = append(buf, byte(wireStruct))
		buf = appendUvarint(buf, uint64(len(val.Ref)))
		buf = append(buf, val.Ref...)
		return appendMap(buf, val.Fields, Any())
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func appendMap(buf []byte, m map[string]interface{}, valueTag TypeTag) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys) // deterministic encoding; map key uniqueness is a Go invariant already

	buf = appendUvarint(buf, uint64(len(keys)))
	for _, k := range keys {
		buf = appendUvarint(buf, uint64(len(k)))
		buf = append(buf, k...)
		var err error
		buf, err = appendValue(buf, m[k], valueTag)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// Decode parses data, which must have been produced by Encode, against
// the expected tag. A mismatch between the embedded wire kind and tag
// (when tag isn't BaseAny) yields a *waflerr.TypeError instead of
// silently coercing (spec.md §4.A, §8.1).
func Decode(data []byte, tag TypeTag) (interface{}, error) {
	v, rest, err := readValue(data, tag)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%d trailing bytes after decode", len(rest))
	}
	return v, nil
}

func readValue(data []byte, tag TypeTag) (interface{}, []byte, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("empty buffer")
	}
	wk := wireKind(data[0])
	data = data[1:]

	if tag.Base != BaseAny {
		expected, ok := kindFor(tag.Base)
		if !ok || expected != wk {
			return nil, nil, &waflerr.TypeError{
				Expected: string(tag.Base),
				Actual:   string(wk.base()),
			}
		}
	}

	switch wk {
	case wireString:
		n, data, err := readUvarint(data)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(data)) < n {
			return nil, nil, fmt.Errorf("truncated string")
		}
		return string(data[:n]), data[n:], nil
	case wireBytes:
		n, data, err := readUvarint(data)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(data)) < n {
			return nil, nil, fmt.Errorf("truncated bytes")
		}
		out := append([]byte(nil), data[:n]...)
		return out, data[n:], nil
	case wireI64:
		if len(data) < 8 {
			return nil, nil, fmt.Errorf("truncated i64")
		}
		return int64(binary.BigEndian.Uint64(data[:8])), data[8:], nil
	case wireU64:
		if len(data) < 8 {
			return nil, nil, fmt.Errorf("truncated u64")
		}
		return binary.BigEndian.Uint64(data[:8]), data[8:], nil
	case wireF64:
		if len(data) < 8 {
			return nil, nil, fmt.Errorf("truncated f64")
		}
		return math.Float64frombits(binary.BigEndian.Uint64(data[:8])), data[8:], nil
	case wireBool:
		if len(data) < 1 {
			return nil, nil, fmt.Errorf("truncated bool")
		}
		return data[0] != 0, data[1:], nil
	case wireList:
		n, data, err := readUvarint(data)
		if err != nil {
			return nil, nil, err
		}
		elemTag := Any()
		if tag.Elem != nil {
			elemTag = *tag.Elem
		}
		out := make([]interface{}, 0, n)
		for i := uint64(0); i < n; i++ {
			var v interface{}
			v, data, err = readValue(data, elemTag)
			if err != nil {
				return nil, nil, err
			}
			out = append(out, v)
		}
		return out, data, nil
	case wireMap:
		valueTag := Any()
		if tag.Value != nil {
			valueTag = *tag.Value
		}
		m, data, err := readMap(data, valueTag)
		if err != nil {
			return nil, nil, err
		}
		return m, data, nil
	case wireStruct:
		refLen, data, err := readUvarint(data)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(data)) < refLen {
			return nil, nil, fmt.Errorf("truncated struct ref")
		}
		ref := string(data[:refLen])
		data = data[refLen:]
		if tag.Base == BaseStruct && tag.Ref != "" && tag.Ref != ref {
			return nil, nil, &waflerr.TypeError{Expected: "struct<" + tag.Ref + ">", Actual: "struct<" + ref + ">"}
		}
		m, data, err := readMap(data, Any())
		if err != nil {
			return nil, nil, err
		}
		return StructValue{Ref: ref, Fields: m}, data, nil
	default:
		return nil, nil, fmt.Errorf("unknown wire kind %d", wk)
	}
}

func readMap(data []byte, valueTag TypeTag) (map[string]interface{}, []byte, error) {
	n, data, err := readUvarint(data)
	if err != nil {
		return nil, nil, err
	}
	m := make(map[string]interface{}, n)
	for i := uint64(0); i < n; i++ {
		var klen uint64
		klen, data, err = readUvarint(data)
		if err != nil {
			return nil, nil, err
		}
		if uint64(len(data)) < klen {
			return nil, nil, fmt.Errorf("truncated map key")
		}
		key := string(data[:klen])
		data = data[klen:]

		var v interface{}
		v, data, err = readValue(data, valueTag)
		if err != nil {
			return nil, nil, err
		}
		m[key] = v
	}
	return m, data, nil
}

func readUvarint(data []byte) (uint64, []byte, error) {
	v, n := binary.Uvarint(data)
	if n <= 0 {
		return 0, nil, fmt.Errorf("malformed varint")
	}
	return v, data[n:], nil
}
