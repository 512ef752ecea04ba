package clarity

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strings"
)

const maxNestingDepth = 32

// DecodeHex decodes a 0x-prefixed (or bare) hex string into a Value.
func DecodeHex(input string) (Value, error) {
	input = strings.TrimPrefix(strings.TrimSpace(input), "0x")
	data, err := hex.DecodeString(input)
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	return Decode(data)
}

// Decode decodes a serialized Clarity value and requires all bytes consumed.
func Decode(data []byte) (Value, error) {
	r := &reader{data: data}
	v, err := decodeValue(r, 0)
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, fmt.Errorf("trailing bytes after value: %d", len(r.data)-r.pos)
	}
	return v, nil
}

// EncodeHex serializes a Value to its 0x-prefixed hex wire form.
func EncodeHex(v Value) (string, error) {
	data, err := Encode(v)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(data), nil
}

// Encode serializes a Value into the SIP-005 wire format. Tuple fields are
// emitted in sorted name order so output is deterministic.
func Encode(v Value) ([]byte, error) {
	var out []byte
	if err := encodeValue(&out, v, 0); err != nil {
		return nil, err
	}
	return out, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("truncated value: need %d bytes at offset %d", n, r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint32be() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func decodeValue(r *reader, depth int) (Value, error) {
	if depth > maxNestingDepth {
		return nil, fmt.Errorf("value nesting exceeds %d", maxNestingDepth)
	}

	tag, err := r.byte()
	if err != nil {
		return nil, err
	}

	switch Kind(tag) {
	case KindUint:
		return decodeUint(r)
	case KindInt:
		return decodeInt(r)
	case KindBuffer:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		b, err := r.take(int(n))
		if err != nil {
			return nil, err
		}
		buf := make(Buffer, n)
		copy(buf, b)
		return buf, nil
	case KindBoolTrue:
		return Bool(true), nil
	case KindBoolFalse:
		return Bool(false), nil
	case KindPrincipalStandard:
		addr, err := decodeAddressBody(r)
		if err != nil {
			return nil, err
		}
		return Principal{Address: addr}, nil
	case KindPrincipalContract:
		addr, err := decodeAddressBody(r)
		if err != nil {
			return nil, err
		}
		name, err := decodeShortName(r)
		if err != nil {
			return nil, err
		}
		return Principal{Address: addr, Contract: name}, nil
	case KindResponseOk:
		inner, err := decodeValue(r, depth+1)
		if err != nil {
			return nil, err
		}
		return OK{Inner: inner}, nil
	case KindResponseErr:
		inner, err := decodeValue(r, depth+1)
		if err != nil {
			return nil, err
		}
		return Err{Inner: inner}, nil
	case KindOptionalNone:
		return None{}, nil
	case KindOptionalSome:
		inner, err := decodeValue(r, depth+1)
		if err != nil {
			return nil, err
		}
		return Some{Inner: inner}, nil
	case KindList:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		list := make(List, 0, n)
		for i := uint32(0); i < n; i++ {
			item, err := decodeValue(r, depth+1)
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		return list, nil
	case KindTuple:
		n, err := r.uint32be()
		if err != nil {
			return nil, err
		}
		tuple := make(Tuple, n)
		for i := uint32(0); i < n; i++ {
			name, err := decodeShortName(r)
			if err != nil {
				return nil, err
			}
			item, err := decodeValue(r, depth+1)
			if err != nil {
				return nil, err
			}
			tuple[name] = item
		}
		return tuple, nil
	case KindStringASCII:
		s, err := decodeLongString(r)
		if err != nil {
			return nil, err
		}
		return ASCII(s), nil
	case KindStringUTF8:
		s, err := decodeLongString(r)
		if err != nil {
			return nil, err
		}
		return UTF8(s), nil
	default:
		return nil, fmt.Errorf("unknown type tag 0x%02x", tag)
	}
}

func decodeUint(r *reader) (Value, error) {
	b, err := r.take(16)
	if err != nil {
		return nil, err
	}
	for _, high := range b[:8] {
		if high != 0 {
			return nil, fmt.Errorf("uint overflows 64 bits")
		}
	}
	return Uint(binary.BigEndian.Uint64(b[8:])), nil
}

func decodeInt(r *reader) (Value, error) {
	b, err := r.take(16)
	if err != nil {
		return nil, err
	}
	// Top 8 bytes must be sign extension of the low 8.
	fill := byte(0x00)
	if b[8]&0x80 != 0 {
		fill = 0xff
	}
	for _, high := range b[:8] {
		if high != fill {
			return nil, fmt.Errorf("int overflows 64 bits")
		}
	}
	return Int(int64(binary.BigEndian.Uint64(b[8:]))), nil
}

func decodeAddressBody(r *reader) (string, error) {
	b, err := r.take(21)
	if err != nil {
		return "", err
	}
	return EncodeAddress(b[0], b[1:])
}

func decodeShortName(r *reader) (string, error) {
	n, err := r.byte()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeLongString(r *reader) (string, error) {
	n, err := r.uint32be()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func encodeValue(out *[]byte, v Value, depth int) error {
	if depth > maxNestingDepth {
		return fmt.Errorf("value nesting exceeds %d", maxNestingDepth)
	}
	if v == nil {
		return fmt.Errorf("cannot encode nil value")
	}

	switch typed := v.(type) {
	case Uint:
		*out = append(*out, byte(KindUint))
		*out = appendUint128(*out, uint64(typed))
	case Int:
		*out = append(*out, byte(KindInt))
		*out = appendInt128(*out, int64(typed))
	case Bool:
		*out = append(*out, byte(typed.Kind()))
	case Buffer:
		*out = append(*out, byte(KindBuffer))
		*out = appendUint32(*out, len(typed))
		*out = append(*out, typed...)
	case Principal:
		version, hash, err := DecodeAddress(typed.Address)
		if err != nil {
			return fmt.Errorf("encode principal: %w", err)
		}
		*out = append(*out, byte(typed.Kind()), version)
		*out = append(*out, hash...)
		if typed.Contract != "" {
			if err := appendShortName(out, typed.Contract); err != nil {
				return err
			}
		}
	case OK:
		*out = append(*out, byte(KindResponseOk))
		return encodeValue(out, typed.Inner, depth+1)
	case Err:
		*out = append(*out, byte(KindResponseErr))
		return encodeValue(out, typed.Inner, depth+1)
	case None:
		*out = append(*out, byte(KindOptionalNone))
	case Some:
		*out = append(*out, byte(KindOptionalSome))
		return encodeValue(out, typed.Inner, depth+1)
	case List:
		*out = append(*out, byte(KindList))
		*out = appendUint32(*out, len(typed))
		for _, item := range typed {
			if err := encodeValue(out, item, depth+1); err != nil {
				return err
			}
		}
	case Tuple:
		*out = append(*out, byte(KindTuple))
		*out = appendUint32(*out, len(typed))
		names := make([]string, 0, len(typed))
		for name := range typed {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := appendShortName(out, name); err != nil {
				return err
			}
			if err := encodeValue(out, typed[name], depth+1); err != nil {
				return err
			}
		}
	case ASCII:
		*out = append(*out, byte(KindStringASCII))
		*out = appendUint32(*out, len(typed))
		*out = append(*out, typed...)
	case UTF8:
		*out = append(*out, byte(KindStringUTF8))
		*out = appendUint32(*out, len(typed))
		*out = append(*out, typed...)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

func appendUint128(out []byte, v uint64) []byte {
	var b [16]byte
	binary.BigEndian.PutUint64(b[8:], v)
	return append(out, b[:]...)
}

func appendInt128(out []byte, v int64) []byte {
	var b [16]byte
	if v < 0 {
		for i := 0; i < 8; i++ {
			b[i] = 0xff
		}
	}
	binary.BigEndian.PutUint64(b[8:], uint64(v))
	return append(out, b[:]...)
}

func appendUint32(out []byte, n int) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return append(out, b[:]...)
}

func appendShortName(out *[]byte, name string) error {
	if len(name) == 0 || len(name) > math.MaxUint8 {
		return fmt.Errorf("invalid name length %d", len(name))
	}
	*out = append(*out, byte(len(name)))
	*out = append(*out, name...)
	return nil
}
