//go:build unit

package schema

import (
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/stretchr/testify/assert"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("creates a schema over mixed field types", func(t *testing.T) {
		// Prepare
		fields := []Field{
			{Name: "id", Type: Int},
			{Name: "name", Type: Char, Size: 12},
			{Name: "balance", Type: Double},
			{Name: "active", Type: Bool},
		}

		// Execute
		sch, err := New(fields, "id")

		// Check
		assert.NoError(t, err, "create new schema")
		assert.Equal(t, 1+4+12+8+1, sch.RecordLength(), "record length is bitmap plus field widths")
		assert.Equal(t, 4, sch.KeyLength(), "key length matches key field width")
		assert.Equal(t, "id", sch.KeyField().Name, "key field resolved")
	})

	t.Run("rejects a key field that is not part of the schema", func(t *testing.T) {
		// Execute
		_, err := New([]Field{{Name: "id", Type: Int}}, "missing")

		// Check
		assert.Error(t, err, "key field must exist")
	})

	t.Run("rejects duplicate field names", func(t *testing.T) {
		// Execute
		_, err := New([]Field{{Name: "id", Type: Int}, {Name: "id", Type: Long}}, "id")

		// Check
		assert.Error(t, err, "field names must be unique")
	})

	t.Run("rejects a char field without size", func(t *testing.T) {
		// Execute
		_, err := New([]Field{{Name: "name", Type: Char}}, "name")

		// Check
		assert.Error(t, err, "char fields need a positive size")
	})
}

func TestEncodeDecode(t *testing.T) {
	fields := []Field{
		{Name: "id", Type: Int},
		{Name: "serial", Type: Long},
		{Name: "ratio", Type: Float},
		{Name: "balance", Type: Double},
		{Name: "active", Type: Bool},
		{Name: "name", Type: Char, Size: 8},
	}
	sch, err := New(fields, "id")
	assert.NoError(t, err, "create new schema")

	t.Run("round trips a full record", func(t *testing.T) {
		// Prepare
		record := Record{int32(42), int64(1 << 40), float32(0.5), 2.25, true, "gopher"}

		// Execute
		buf, err := sch.Encode(record)
		assert.NoError(t, err, "encode record")
		got, err := sch.Decode(buf)

		// Check
		assert.NoError(t, err, "decode record")
		assert.Equal(t, sch.RecordLength(), len(buf), "encoded length matches schema")
		assert.Equal(t, record, got, "decoded record equals input")
	})

	t.Run("round trips NULL values through the presence bitmap", func(t *testing.T) {
		// Prepare
		record := Record{int32(7), nil, nil, 1.5, nil, "x"}

		// Execute
		buf, err := sch.Encode(record)
		assert.NoError(t, err, "encode record with NULLs")
		got, err := sch.Decode(buf)

		// Check
		assert.NoError(t, err, "decode record with NULLs")
		assert.Equal(t, record, got, "NULL fields stay NULL, present fields keep values")
	})

	t.Run("distinguishes NULL from zero values", func(t *testing.T) {
		// Prepare
		record := Record{int32(1), int64(0), float32(0), 0.0, false, ""}

		// Execute
		buf, err := sch.Encode(record)
		assert.NoError(t, err, "encode record with zero values")
		got, err := sch.Decode(buf)

		// Check
		assert.NoError(t, err, "decode record with zero values")
		assert.Equal(t, record, got, "zero values survive and are not read back as NULL")
	})

	t.Run("truncates and pads fixed length text", func(t *testing.T) {
		// Prepare
		record := Record{int32(1), int64(2), float32(3), 4.0, true, "a longer name"}

		// Execute
		buf, err := sch.Encode(record)
		assert.NoError(t, err, "encode record with long text")
		got, err := sch.Decode(buf)

		// Check
		assert.NoError(t, err, "decode record with long text")
		assert.Equal(t, "a longer", got[5], "text truncated to field size")

		record[5] = "ab"
		buf, err = sch.Encode(record)
		assert.NoError(t, err, "encode record with short text")
		got, err = sch.Decode(buf)
		assert.NoError(t, err, "decode record with short text")
		assert.Equal(t, "ab", got[5], "trailing padding stripped on decode")
	})

	t.Run("accepts untyped ints for integer fields", func(t *testing.T) {
		// Execute
		buf, err := sch.Encode(Record{12, 34, float32(0), 0.0, false, "y"})

		// Check
		assert.NoError(t, err, "encode record with untyped ints")
		got, err := sch.Decode(buf)
		assert.NoError(t, err, "decode record with untyped ints")
		assert.Equal(t, int32(12), got[0], "int field decodes as int32")
		assert.Equal(t, int64(34), got[1], "long field decodes as int64")
	})

	t.Run("rejects a wrong value count", func(t *testing.T) {
		// Execute
		_, err := sch.Encode(Record{int32(1), int64(2)})

		// Check
		assert.ErrorIs(t, err, fileorg.SchemaMismatch{}, "value count must match schema")
	})

	t.Run("rejects a wrong value type", func(t *testing.T) {
		// Execute
		_, err := sch.Encode(Record{"not an int", int64(2), float32(3), 4.0, true, "z"})

		// Check
		assert.ErrorIs(t, err, fileorg.SchemaMismatch{}, "value types must match schema")
	})

	t.Run("rejects a decode buffer of the wrong size", func(t *testing.T) {
		// Execute
		_, err := sch.Decode(make([]byte, sch.RecordLength()-1))

		// Check
		assert.ErrorIs(t, err, fileorg.SchemaMismatch{}, "buffer length must match schema")
	})
}

func TestKeys(t *testing.T) {
	sch, err := New([]Field{{Name: "id", Type: Int}, {Name: "name", Type: Char, Size: 6}}, "id")
	assert.NoError(t, err, "create new schema")

	t.Run("extracts the encoded key from a record", func(t *testing.T) {
		// Execute
		key, err := sch.Key(Record{int32(99), "a"})

		// Check
		assert.NoError(t, err, "extract key")
		assert.Equal(t, sch.KeyLength(), len(key), "key has the key field width")
		assert.Equal(t, int32(99), sch.DecodeKey(key), "key decodes back to its value")
	})

	t.Run("rejects a NULL key", func(t *testing.T) {
		// Execute
		_, err := sch.Key(Record{nil, "a"})

		// Check
		assert.ErrorIs(t, err, fileorg.SchemaMismatch{}, "key value must not be NULL")
	})

	t.Run("extracts the encoded key from a serialized record", func(t *testing.T) {
		// Prepare
		buf, err := sch.Encode(Record{int32(7), "seven"})
		assert.NoError(t, err, "encode record")

		// Execute
		key, err := sch.KeyFromBuffer(buf)

		// Check
		assert.NoError(t, err, "extract key from buffer")
		assert.Equal(t, int32(7), sch.DecodeKey(key), "key decodes back to its value")

		// Execute
		_, err = sch.KeyFromBuffer(buf[:len(buf)-1])

		// Check
		assert.ErrorIs(t, err, fileorg.SchemaMismatch{}, "short buffer rejected")
	})

	t.Run("compares integer keys numerically", func(t *testing.T) {
		// Prepare
		neg, err := sch.EncodeKey(int32(-5))
		assert.NoError(t, err, "encode negative key")
		pos, err := sch.EncodeKey(int32(3))
		assert.NoError(t, err, "encode positive key")

		// Execute / Check
		assert.Equal(t, -1, sch.CompareKeys(neg, pos), "negative sorts before positive")
		assert.Equal(t, 1, sch.CompareKeys(pos, neg), "positive sorts after negative")
		assert.Equal(t, 0, sch.CompareKeys(pos, pos), "equal keys compare equal")
	})

	t.Run("compares text keys lexicographically", func(t *testing.T) {
		// Prepare
		byName, err := New([]Field{{Name: "id", Type: Int}, {Name: "name", Type: Char, Size: 6}}, "name")
		assert.NoError(t, err, "create new schema keyed by name")

		apple, err := byName.EncodeKey("apple")
		assert.NoError(t, err, "encode first key")
		pear, err := byName.EncodeKey("pear")
		assert.NoError(t, err, "encode second key")

		// Execute / Check
		assert.Equal(t, -1, byName.CompareKeys(apple, pear), "apple sorts before pear")
	})
}
