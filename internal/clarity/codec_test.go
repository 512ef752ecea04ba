package clarity

import (
	"encoding/hex"
	"reflect"
	"testing"
)

const burnAddress = "SP000000000000000000002Q6VF78"

func TestDecodeUintWire(t *testing.T) {
	// u42 = tag 0x01 + 16-byte big-endian value.
	raw, _ := hex.DecodeString("010000000000000000000000000000002a")
	v, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != Uint(42) {
		t.Fatalf("value mismatch: %v", v)
	}
}

func TestDecodeUintOverflow(t *testing.T) {
	raw, _ := hex.DecodeString("01ffffffffffffffffffffffffffffffff")
	if _, err := Decode(raw); err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestDecodeNegativeInt(t *testing.T) {
	raw, _ := hex.DecodeString("00ffffffffffffffffffffffffffffffff")
	v, err := Decode(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != Int(-1) {
		t.Fatalf("value mismatch: %v", v)
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	if _, err := Decode([]byte{0x7f}); err == nil {
		t.Fatalf("expected error for unknown tag")
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{0x01, 0x00}); err == nil {
		t.Fatalf("expected error for truncated uint")
	}
	if _, err := Decode(nil); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	raw, _ := hex.DecodeString("010000000000000000000000000000002a00")
	if _, err := Decode(raw); err == nil {
		t.Fatalf("expected error for trailing bytes")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := OK{Inner: Tuple{
		"total-polls":  Uint(7),
		"total-votes":  Uint(123),
		"creator":      Principal{Address: burnAddress},
		"title":        ASCII("gm holders"),
		"note":         UTF8("zażółć"),
		"is-active":    Bool(true),
		"ended":        Bool(false),
		"maybe":        Some{Inner: Uint(9)},
		"nothing":      None{},
		"failure":      Err{Inner: Uint(1)},
		"participants": List{Principal{Address: burnAddress}, Principal{Address: burnAddress, Contract: "gm-unlimited"}},
		"payload":      Buffer{0x00, 0x01, 0xff},
		"delta":        Int(-42),
	}}

	encoded, err := EncodeHex(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeHex(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch:\n%+v\n%+v", original, decoded)
	}
}

func TestAccessorsDegradeToZero(t *testing.T) {
	if got := UintOf(nil); got != 0 {
		t.Fatalf("UintOf(nil) = %d", got)
	}
	if got := UintOf(None{}); got != 0 {
		t.Fatalf("UintOf(none) = %d", got)
	}
	if got := UintOf(Err{Inner: Uint(5)}); got != 0 {
		t.Fatalf("UintOf(err) = %d", got)
	}
	if got := UintOf(OK{Inner: Some{Inner: Uint(5)}}); got != 5 {
		t.Fatalf("UintOf(ok some) = %d", got)
	}
	if got := StringOf(Uint(5)); got != "" {
		t.Fatalf("StringOf(uint) = %q", got)
	}
	if got := StringOf(Some{Inner: ASCII("gm")}); got != "gm" {
		t.Fatalf("StringOf(some ascii) = %q", got)
	}
	if TupleOf(None{}) != nil {
		t.Fatalf("TupleOf(none) should be nil")
	}
	if got := TupleOf(OK{Inner: Tuple{"a": Uint(1)}}); got == nil || UintOf(got.Get("a")) != 1 {
		t.Fatalf("TupleOf(ok tuple) = %v", got)
	}
	var none Tuple
	if none.Get("missing") != nil {
		t.Fatalf("nil tuple Get should be nil")
	}
}

func TestPrincipalString(t *testing.T) {
	p := Principal{Address: burnAddress, Contract: "voting"}
	if p.String() != burnAddress+".voting" {
		t.Fatalf("contract principal render: %s", p.String())
	}
	if StringOf(p) != p.String() {
		t.Fatalf("StringOf principal mismatch")
	}
}
