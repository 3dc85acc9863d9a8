// Package schema implements the record codec: it converts rows of typed
// field values to fixed-width byte blocks and back, and extracts the
// designated key field in its encoded form.
//
// A serialized record is a presence bitmap of ceil(number of fields / 8)
// bytes followed by one fixed-width block per field. A cleared bit marks a
// NULL value and its block is zero filled, so legitimate data can never
// collide with the NULL representation.
package schema

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"math"
)

// Type - Identifies the storage type of a field
type Type int

// Int - 32 bit signed integer, 4 bytes
const Int Type = 1

// Long - 64 bit signed integer, 8 bytes
const Long Type = 2

// Float - 32 bit floating point, 4 bytes
const Float Type = 3

// Double - 64 bit floating point, 8 bytes
const Double Type = 4

// Bool - Boolean, 1 byte
const Bool Type = 5

// Char - Fixed length text, right padded with zero bytes and truncated when longer
const Char Type = 6

// String - Returns the type name as used in table meta files
func (T Type) String() string {
	switch T {
	case Int:
		return "int"
	case Long:
		return "long"
	case Float:
		return "float"
	case Double:
		return "double"
	case Bool:
		return "bool"
	case Char:
		return "char"
	default:
		return fmt.Sprintf("unknown(%d)", int(T))
	}
}

// MarshalText - Writes the type as its meta file name
func (T Type) MarshalText() (text []byte, err error) {
	text = []byte(T.String())
	return
}

// UnmarshalText - Reads the type back from its meta file name
func (T *Type) UnmarshalText(text []byte) (err error) {
	switch string(text) {
	case "int":
		*T = Int
	case "long":
		*T = Long
	case "float":
		*T = Float
	case "double":
		*T = Double
	case "bool":
		*T = Bool
	case "char":
		*T = Char
	default:
		err = fmt.Errorf("unknown field type: %s", string(text))
	}

	return
}

// Field - Describes one field in a schema
//   - Name is the field name, unique within the schema
//   - Type is the storage type
//   - Size is the fixed text length in bytes, used by Char fields only
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
	Size int    `json:"size,omitempty"`
}

// Width - Returns the number of bytes the field occupies in a serialized record
func (F Field) Width() int {
	switch F.Type {
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	case Bool:
		return 1
	case Char:
		return F.Size
	default:
		return 0
	}
}

// Record - One row of field values in schema order. Decoded values are
// int32, int64, float32, float64, bool or string; a NULL value is nil.
type Record []any

// Schema - An ordered field list with a designated key field. It is
// stateless with regard to the records it encodes and can be shared by
// any number of operations on one table instance.
type Schema struct {
	fields    []Field
	keyIndex  int
	offsets   []int
	bitmapLen int
	recordLen int
}

// New - Returns a new Schema over the given fields.
//   - fields is the ordered field list, each name must be unique and Char fields must have Size > 0
//   - keyField is the name of the field records are keyed by, it must appear in fields
//
// It returns:
//   - schema which is a pointer to the created instance
//   - err which is a standard Go type of error
func New(fields []Field, keyField string) (schema *Schema, err error) {
	if len(fields) == 0 {
		err = fmt.Errorf("schema must have at least one field")
		return
	}

	keyIndex := -1
	seen := make(map[string]bool, len(fields))
	bitmapLen := (len(fields) + 7) / 8
	offsets := make([]int, len(fields))
	offset := bitmapLen

	for i, field := range fields {
		if field.Name == "" {
			err = fmt.Errorf("field #%d has an empty name", i)
			return
		}
		if seen[field.Name] {
			err = fmt.Errorf("field name %s appears more than once", field.Name)
			return
		}
		seen[field.Name] = true

		if field.Type == Char && field.Size <= 0 {
			err = fmt.Errorf("char field %s must have a positive size", field.Name)
			return
		}
		if field.Width() == 0 {
			err = fmt.Errorf("field %s has an unknown type", field.Name)
			return
		}
		if field.Name == keyField {
			keyIndex = i
		}

		offsets[i] = offset
		offset += field.Width()
	}

	if keyIndex == -1 {
		err = fmt.Errorf("key field %s is not part of the schema", keyField)
		return
	}

	schema = &Schema{
		fields:    fields,
		keyIndex:  keyIndex,
		offsets:   offsets,
		bitmapLen: bitmapLen,
		recordLen: offset,
	}

	return
}

// Fields - Returns the ordered field list
func (S *Schema) Fields() []Field {
	return S.fields
}

// KeyField - Returns the field records are keyed by
func (S *Schema) KeyField() Field {
	return S.fields[S.keyIndex]
}

// RecordLength - Returns the serialized record length in bytes, presence bitmap included
func (S *Schema) RecordLength() int {
	return S.recordLen
}

// KeyLength - Returns the encoded key length in bytes
func (S *Schema) KeyLength() int {
	return S.fields[S.keyIndex].Width()
}

// Encode - Serializes a record to its fixed-width byte block.
//   - record is the row to serialize, it must have exactly one value per schema field
//
// It returns:
//   - buf is the serialized record of length RecordLength
//   - err is of type fileorg.SchemaMismatch if the value count or any value type disagrees with the schema
func (S *Schema) Encode(record Record) (buf []byte, err error) {
	if len(record) != len(S.fields) {
		err = fileorg.SchemaMismatch{}
		return
	}

	buf = make([]byte, S.recordLen)
	for i, value := range record {
		if value == nil {
			continue
		}
		buf[i/8] |= 1 << (i % 8)

		err = encodeValue(S.fields[i], value, buf[S.offsets[i]:S.offsets[i]+S.fields[i].Width()])
		if err != nil {
			buf = nil
			return
		}
	}

	return
}

// Decode - Deserializes a byte block back to a record.
//   - buf is a serialized record, its length must be exactly RecordLength
//
// It returns:
//   - record is the decoded row with nil for NULL values
//   - err is of type fileorg.SchemaMismatch if the block length disagrees with the schema
func (S *Schema) Decode(buf []byte) (record Record, err error) {
	if len(buf) != S.recordLen {
		err = fileorg.SchemaMismatch{}
		return
	}

	record = make(Record, len(S.fields))
	for i, field := range S.fields {
		if buf[i/8]&(1<<(i%8)) == 0 {
			continue
		}
		record[i] = decodeValue(field, buf[S.offsets[i]:S.offsets[i]+field.Width()])
	}

	return
}

// Key - Extracts the encoded key from a record.
//   - record is the row to take the key from, it must have exactly one value per schema field
//
// It returns:
//   - key is the encoded key of length KeyLength
//   - err is of type fileorg.SchemaMismatch if the record shape is wrong or the key value is NULL
func (S *Schema) Key(record Record) (key []byte, err error) {
	if len(record) != len(S.fields) {
		err = fileorg.SchemaMismatch{}
		return
	}

	key, err = S.EncodeKey(record[S.keyIndex])

	return
}

// EncodeKey - Encodes a bare key value to its fixed-width form.
//   - value is the key value, it must match the key field type and must not be nil
//
// It returns:
//   - key is the encoded key of length KeyLength
//   - err is of type fileorg.SchemaMismatch if the value is nil or of the wrong type
func (S *Schema) EncodeKey(value any) (key []byte, err error) {
	if value == nil {
		err = fileorg.SchemaMismatch{}
		return
	}

	field := S.fields[S.keyIndex]
	key = make([]byte, field.Width())
	err = encodeValue(field, value, key)
	if err != nil {
		key = nil
	}

	return
}

// DecodeKey - Decodes an encoded key back to its Go value
func (S *Schema) DecodeKey(key []byte) (value any) {
	return decodeValue(S.fields[S.keyIndex], key)
}

// KeyFromBuffer - Extracts the encoded key directly from a serialized record without decoding the
// whole row. The record must have been encoded with a non NULL key.
//   - buf is a serialized record, its length must be exactly RecordLength
//
// It returns:
//   - key is the encoded key of length KeyLength
//   - err is of type fileorg.SchemaMismatch if the block length disagrees with the schema
func (S *Schema) KeyFromBuffer(buf []byte) (key []byte, err error) {
	if len(buf) != S.recordLen {
		err = fileorg.SchemaMismatch{}
		return
	}

	width := S.fields[S.keyIndex].Width()
	key = make([]byte, width)
	_ = copy(key, buf[S.offsets[S.keyIndex]:S.offsets[S.keyIndex]+width])

	return
}

// CompareKeys - Compares two encoded keys by the key field type.
// It returns -1, 0 or 1 as a is less than, equal to or greater than b.
func (S *Schema) CompareKeys(a, b []byte) int {
	switch S.fields[S.keyIndex].Type {
	case Int:
		return compareInts(int64(int32(binary.LittleEndian.Uint32(a))), int64(int32(binary.LittleEndian.Uint32(b))))
	case Long:
		return compareInts(int64(binary.LittleEndian.Uint64(a)), int64(binary.LittleEndian.Uint64(b)))
	case Float:
		return compareFloats(float64(math.Float32frombits(binary.LittleEndian.Uint32(a))), float64(math.Float32frombits(binary.LittleEndian.Uint32(b))))
	case Double:
		return compareFloats(math.Float64frombits(binary.LittleEndian.Uint64(a)), math.Float64frombits(binary.LittleEndian.Uint64(b)))
	case Bool:
		return compareInts(int64(a[0]), int64(b[0]))
	default:
		return bytes.Compare(a, b)
	}
}

// encodeValue - Writes one field value to its fixed-width block
func encodeValue(field Field, value any, buf []byte) (err error) {
	switch field.Type {
	case Int:
		v, ok := toInt64(value)
		if !ok || v < -1<<31 || v > 1<<31-1 {
			err = fileorg.SchemaMismatch{}
			return
		}
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	case Long:
		v, ok := toInt64(value)
		if !ok {
			err = fileorg.SchemaMismatch{}
			return
		}
		binary.LittleEndian.PutUint64(buf, uint64(v))
	case Float:
		v, ok := toFloat64(value)
		if !ok {
			err = fileorg.SchemaMismatch{}
			return
		}
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
	case Double:
		v, ok := toFloat64(value)
		if !ok {
			err = fileorg.SchemaMismatch{}
			return
		}
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
	case Bool:
		v, ok := value.(bool)
		if !ok {
			err = fileorg.SchemaMismatch{}
			return
		}
		if v {
			buf[0] = 1
		}
	case Char:
		v, ok := value.(string)
		if !ok {
			err = fileorg.SchemaMismatch{}
			return
		}
		if len(v) > field.Size {
			v = v[:field.Size]
		}
		copy(buf, v)
	}

	return
}

// decodeValue - Reads one field value from its fixed-width block
func decodeValue(field Field, buf []byte) (value any) {
	switch field.Type {
	case Int:
		value = int32(binary.LittleEndian.Uint32(buf))
	case Long:
		value = int64(binary.LittleEndian.Uint64(buf))
	case Float:
		value = math.Float32frombits(binary.LittleEndian.Uint32(buf))
	case Double:
		value = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	case Bool:
		value = buf[0] == 1
	case Char:
		value = string(bytes.TrimRight(buf, "\x00"))
	}

	return
}

// toInt64 - Normalizes the integer types accepted on encode
func toInt64(value any) (v int64, ok bool) {
	switch n := value.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

// toFloat64 - Normalizes the floating point types accepted on encode
func toFloat64(value any) (v float64, ok bool) {
	switch n := value.(type) {
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// compareInts - Three-way comparison for integer-like values
func compareInts(a, b int64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// compareFloats - Three-way comparison for floating point values
func compareFloats(a, b float64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
