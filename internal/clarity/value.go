package clarity

// Kind is the SIP-005 type tag of a wire value.
type Kind uint8

const (
	KindInt               Kind = 0x00
	KindUint              Kind = 0x01
	KindBuffer            Kind = 0x02
	KindBoolTrue          Kind = 0x03
	KindBoolFalse         Kind = 0x04
	KindPrincipalStandard Kind = 0x05
	KindPrincipalContract Kind = 0x06
	KindResponseOk        Kind = 0x07
	KindResponseErr       Kind = 0x08
	KindOptionalNone      Kind = 0x09
	KindOptionalSome      Kind = 0x0a
	KindList              Kind = 0x0b
	KindTuple             Kind = 0x0c
	KindStringASCII       Kind = 0x0d
	KindStringUTF8        Kind = 0x0e
)

// Value is one arm of the Clarity value union.
type Value interface {
	Kind() Kind
}

// Uint is a Clarity uint. Values outside uint64 range fail at decode time.
type Uint uint64

// Int is a Clarity signed int.
type Int int64

// Bool is a Clarity bool.
type Bool bool

// Buffer is a Clarity byte buffer.
type Buffer []byte

// Principal is a standard or contract principal in c32check form.
type Principal struct {
	Address  string
	Contract string
}

// Some is a present optional.
type Some struct {
	Inner Value
}

// None is an absent optional.
type None struct{}

// OK is a successful response wrapper.
type OK struct {
	Inner Value
}

// Err is a failed response wrapper.
type Err struct {
	Inner Value
}

// List is an ordered sequence of values.
type List []Value

// Tuple maps field names to values.
type Tuple map[string]Value

// ASCII is a string-ascii value.
type ASCII string

// UTF8 is a string-utf8 value.
type UTF8 string

func (Uint) Kind() Kind   { return KindUint }
func (Int) Kind() Kind    { return KindInt }
func (Buffer) Kind() Kind { return KindBuffer }
func (Some) Kind() Kind   { return KindOptionalSome }
func (None) Kind() Kind   { return KindOptionalNone }
func (OK) Kind() Kind     { return KindResponseOk }
func (Err) Kind() Kind    { return KindResponseErr }
func (List) Kind() Kind   { return KindList }
func (Tuple) Kind() Kind  { return KindTuple }
func (ASCII) Kind() Kind  { return KindStringASCII }
func (UTF8) Kind() Kind   { return KindStringUTF8 }

func (b Bool) Kind() Kind {
	if b {
		return KindBoolTrue
	}
	return KindBoolFalse
}

func (p Principal) Kind() Kind {
	if p.Contract != "" {
		return KindPrincipalContract
	}
	return KindPrincipalStandard
}

// String renders the principal in the usual ADDR or ADDR.contract form.
func (p Principal) String() string {
	if p.Contract != "" {
		return p.Address + "." + p.Contract
	}
	return p.Address
}

// unwrap strips response-ok and optional-some layers. Response-err and
// optional-none unwrap to nil so every accessor degrades to its zero value.
func unwrap(v Value) Value {
	for {
		switch typed := v.(type) {
		case OK:
			v = typed.Inner
		case Some:
			v = typed.Inner
		case Err, None:
			return nil
		default:
			return v
		}
	}
}

// UintOf unwraps v and returns it as a plain integer, or 0 when the
// underlying value is not numeric.
func UintOf(v Value) uint64 {
	switch typed := unwrap(v).(type) {
	case Uint:
		return uint64(typed)
	case Int:
		if typed < 0 {
			return 0
		}
		return uint64(typed)
	default:
		return 0
	}
}

// BoolOf unwraps v and returns it as a bool, defaulting to false.
func BoolOf(v Value) bool {
	if typed, ok := unwrap(v).(Bool); ok {
		return bool(typed)
	}
	return false
}

// StringOf unwraps v and returns its string content. Principals render in
// c32check form. Anything else yields "".
func StringOf(v Value) string {
	switch typed := unwrap(v).(type) {
	case ASCII:
		return string(typed)
	case UTF8:
		return string(typed)
	case Principal:
		return typed.String()
	default:
		return ""
	}
}

// TupleOf unwraps v and returns the tuple, or nil when the value is absent
// or not a tuple.
func TupleOf(v Value) Tuple {
	if typed, ok := unwrap(v).(Tuple); ok {
		return typed
	}
	return nil
}

// ListOf unwraps v and returns the list, or nil.
func ListOf(v Value) List {
	if typed, ok := unwrap(v).(List); ok {
		return typed
	}
	return nil
}

// Get returns the named tuple field, nil-safe on a nil tuple.
func (t Tuple) Get(name string) Value {
	if t == nil {
		return nil
	}
	return t[name]
}
