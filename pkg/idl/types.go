package idl

import (
	"errors"
	"fmt"

	json "github.com/nspcc-dev/go-ordered-json"
)

// Kind is the kind of IDL type.
type Kind byte

// Type kinds.
const (
	KindPrimitive Kind = iota
	KindOption
	KindCOption
	KindVec
	KindArray
	KindDefined
)

// Primitive type names.
const (
	Bool      = "bool"
	U8        = "u8"
	I8        = "i8"
	U16       = "u16"
	I16       = "i16"
	U32       = "u32"
	I32       = "i32"
	U64       = "u64"
	I64       = "i64"
	U128      = "u128"
	I128      = "i128"
	F32       = "f32"
	F64       = "f64"
	String    = "string"
	PublicKey = "publicKey"
	Bytes     = "bytes"
)

var primitives = map[string]string{
	Bool: Bool, U8: U8, I8: I8, U16: U16, I16: I16, U32: U32, I32: I32,
	U64: U64, I64: I64, U128: U128, I128: I128, F32: F32, F64: F64,
	String: String, PublicKey: PublicKey, Bytes: Bytes,
	// Newer IDL spec name.
	"pubkey": PublicKey,
}

// Type is an IDL type reference. Name is set for primitive and defined
// types, Elem for containers and Len for arrays.
type Type struct {
	Kind Kind
	Name string
	Elem *Type
	Len  int
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (t *Type) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		name, ok := primitives[s]
		if !ok {
			return fmt.Errorf("unknown type %q", s)
		}
		*t = Type{Kind: KindPrimitive, Name: name}
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("bad type: %w", err)
	}
	if len(obj) != 1 {
		return errors.New("bad type: exactly one key expected")
	}
	for k, v := range obj {
		switch k {
		case "option", "coption", "vec":
			elem := new(Type)
			if err := elem.UnmarshalJSON(v); err != nil {
				return err
			}
			*t = Type{Kind: map[string]Kind{"option": KindOption, "coption": KindCOption, "vec": KindVec}[k], Elem: elem}
		case "array":
			var arr []json.RawMessage
			if err := json.Unmarshal(v, &arr); err != nil || len(arr) != 2 {
				return errors.New("bad array type: [type, length] expected")
			}
			elem := new(Type)
			if err := elem.UnmarshalJSON(arr[0]); err != nil {
				return err
			}
			var l int
			if err := json.Unmarshal(arr[1], &l); err != nil || l < 0 {
				return errors.New("bad array length")
			}
			*t = Type{Kind: KindArray, Elem: elem, Len: l}
		case "defined":
			var name string
			if err := json.Unmarshal(v, &name); err != nil {
				// {"defined": {"name": "..."}} form.
				var d struct {
					Name string `json:"name"`
				}
				if err := json.Unmarshal(v, &d); err != nil {
					return fmt.Errorf("bad defined type: %w", err)
				}
				name = d.Name
			}
			if name == "" {
				return errors.New("bad defined type: no name")
			}
			*t = Type{Kind: KindDefined, Name: name}
		default:
			return fmt.Errorf("unknown type %q", k)
		}
	}
	return nil
}

// MarshalJSON implements the json.Marshaler interface.
func (t Type) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case KindPrimitive:
		return json.Marshal(t.Name)
	case KindOption:
		return json.Marshal(map[string]Type{"option": *t.Elem})
	case KindCOption:
		return json.Marshal(map[string]Type{"coption": *t.Elem})
	case KindVec:
		return json.Marshal(map[string]Type{"vec": *t.Elem})
	case KindArray:
		return json.Marshal(map[string][]any{"array": {*t.Elem, t.Len}})
	case KindDefined:
		return json.Marshal(map[string]string{"defined": t.Name})
	}
	return nil, fmt.Errorf("unknown type kind %d", t.Kind)
}

// String returns Rust-like type representation.
func (t Type) String() string {
	switch t.Kind {
	case KindOption:
		return "Option<" + t.Elem.String() + ">"
	case KindCOption:
		return "COption<" + t.Elem.String() + ">"
	case KindVec:
		return "Vec<" + t.Elem.String() + ">"
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	}
	return t.Name
}
