package clarity

import (
	"crypto/sha256"
	"fmt"
	"math/big"
	"strings"
)

// c32 alphabet per the Crockford-derived Stacks address encoding.
// I, L, O and U are excluded; decoding maps O->0 and I/L->1.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const hash160Len = 20

var c32Digits = func() [128]int8 {
	var table [128]int8
	for i := range table {
		table[i] = -1
	}
	for i, c := range c32Alphabet {
		table[c] = int8(i)
	}
	for _, c := range "abcdefghjkmnpqrstvwxyz" {
		table[c] = table[c-'a'+'A']
	}
	table['O'], table['o'] = 0, 0
	table['I'], table['i'] = 1, 1
	table['L'], table['l'] = 1, 1
	return table
}()

// EncodeAddress renders a version byte and hash160 as a c32check address.
func EncodeAddress(version byte, hash160 []byte) (string, error) {
	if len(hash160) != hash160Len {
		return "", fmt.Errorf("hash160 must be %d bytes, got %d", hash160Len, len(hash160))
	}
	if int(version) >= len(c32Alphabet) {
		return "", fmt.Errorf("version %d out of c32 range", version)
	}

	sum := c32Checksum(version, hash160)
	payload := make([]byte, 0, hash160Len+len(sum))
	payload = append(payload, hash160...)
	payload = append(payload, sum...)

	return "S" + string(c32Alphabet[version]) + c32Encode(payload), nil
}

// DecodeAddress parses a c32check address into its version byte and hash160.
// The trailing 4-byte checksum is verified.
func DecodeAddress(addr string) (byte, []byte, error) {
	addr = strings.TrimSpace(addr)
	if len(addr) < 2 || (addr[0] != 'S' && addr[0] != 's') {
		return 0, nil, fmt.Errorf("invalid address prefix: %q", addr)
	}

	version := digitValue(addr[1])
	if version < 0 {
		return 0, nil, fmt.Errorf("invalid version character %q", addr[1])
	}

	payload, err := c32Decode(addr[2:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) != hash160Len+4 {
		return 0, nil, fmt.Errorf("invalid payload length %d", len(payload))
	}

	hash160 := payload[:hash160Len]
	want := c32Checksum(byte(version), hash160)
	got := payload[hash160Len:]
	for i := range want {
		if want[i] != got[i] {
			return 0, nil, fmt.Errorf("checksum mismatch for %s", addr)
		}
	}
	return byte(version), hash160, nil
}

// ParsePrincipal splits an optional ".contract" suffix and validates the
// address part.
func ParsePrincipal(s string) (Principal, error) {
	addr, contract, _ := strings.Cut(strings.TrimSpace(s), ".")
	if _, _, err := DecodeAddress(addr); err != nil {
		return Principal{}, err
	}
	return Principal{Address: addr, Contract: contract}, nil
}

// c32Checksum is the first 4 bytes of sha256d(version || data).
func c32Checksum(version byte, data []byte) []byte {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, version)
	buf = append(buf, data...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// c32Encode emits one '0' digit per leading zero byte, then the remaining
// bytes as a base-32 number.
func c32Encode(data []byte) string {
	zeros := 0
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	var sb strings.Builder
	for i := 0; i < zeros; i++ {
		sb.WriteByte('0')
	}

	n := new(big.Int).SetBytes(data)
	if n.Sign() > 0 {
		base := big.NewInt(32)
		mod := new(big.Int)
		var digits []byte
		for n.Sign() > 0 {
			n.DivMod(n, base, mod)
			digits = append(digits, c32Alphabet[mod.Int64()])
		}
		for i := len(digits) - 1; i >= 0; i-- {
			sb.WriteByte(digits[i])
		}
	}
	return sb.String()
}

func c32Decode(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("empty c32 string")
	}

	zeros := 0
	for zeros < len(s) && digitValue(s[zeros]) == 0 {
		zeros++
	}

	n := new(big.Int)
	base := big.NewInt(32)
	for i := zeros; i < len(s); i++ {
		d := digitValue(s[i])
		if d < 0 {
			return nil, fmt.Errorf("invalid c32 character %q", s[i])
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(d)))
	}

	tail := n.Bytes()
	out := make([]byte, zeros+len(tail))
	copy(out[zeros:], tail)
	return out, nil
}

func digitValue(c byte) int {
	if int(c) >= len(c32Digits) {
		return -1
	}
	return int(c32Digits[c])
}
