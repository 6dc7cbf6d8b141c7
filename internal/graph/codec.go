package graph

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Kind tags the type of a stored property value.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindBytes  Kind = "bytes"
)

// NewNodeID mints a time-ordered node id.
func NewNodeID() (NodeID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new node id: %w", err)
	}
	return NodeID(id.String()), nil
}

// EncodeValue converts a Go value into its stored form.
// Supported: string, int, int32, int64, float64, bool, []byte.
func EncodeValue(v any) (Kind, []byte, error) {
	switch x := v.(type) {
	case string:
		return KindString, []byte(x), nil
	case int:
		return KindInt, []byte(strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return KindInt, []byte(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return KindInt, []byte(strconv.FormatInt(x, 10)), nil
	case float64:
		return KindFloat, []byte(strconv.FormatFloat(x, 'g', -1, 64)), nil
	case bool:
		return KindBool, []byte(strconv.FormatBool(x)), nil
	case []byte:
		out := make([]byte, len(x))
		copy(out, x)
		return KindBytes, out, nil
	default:
		return "", nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// DecodeValue is the inverse of EncodeValue. Integers decode as int64.
func DecodeValue(kind Kind, raw []byte) (any, error) {
	switch kind {
	case KindString:
		return string(raw), nil
	case KindInt:
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode int: %w", err)
		}
		return n, nil
	case KindFloat:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("decode float: %w", err)
		}
		return f, nil
	case KindBool:
		b, err := strconv.ParseBool(string(raw))
		if err != nil {
			return nil, fmt.Errorf("decode bool: %w", err)
		}
		return b, nil
	case KindBytes:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrUnsupportedValue, kind)
	}
}
