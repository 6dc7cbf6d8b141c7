package graph

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_Kinds(t *testing.T) {
	tests := []struct {
		name string
		in   any
		kind Kind
		want any
	}{
		{"string", "gem 'rails'", KindString, "gem 'rails'"},
		{"empty string", "", KindString, ""},
		{"int widens", 42, KindInt, int64(42)},
		{"int64", int64(-7), KindInt, int64(-7)},
		{"float", 1.5, KindFloat, 1.5},
		{"bool", true, KindBool, true},
		{"bytes", []byte{0x00, 0xff}, KindBytes, []byte{0x00, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, raw, err := EncodeValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)

			got, err := DecodeValue(kind, raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeValue_Unsupported(t *testing.T) {
	_, _, err := EncodeValue(struct{}{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedValue))
}

func TestDecodeValue_UnknownKind(t *testing.T) {
	_, err := DecodeValue(Kind("matrix"), []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedValue)
}

func TestDecodeValue_CorruptInt(t *testing.T) {
	_, err := DecodeValue(KindInt, []byte("forty-two"))
	assert.Error(t, err)
}

func TestEncodeValue_CopiesBytes(t *testing.T) {
	in := []byte("abc")
	_, raw, err := EncodeValue(in)
	require.NoError(t, err)

	in[0] = 'z'
	assert.Equal(t, []byte("abc"), raw)
}

func TestNewNodeID_IsUUIDv7(t *testing.T) {
	id, err := NewNodeID()
	require.NoError(t, err)

	parsed, err := uuid.Parse(id.String())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}
