package idl

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	json "github.com/nspcc-dev/go-ordered-json"
)

// ErrArgs is returned when instruction arguments don't match the IDL.
var ErrArgs = errors.New("bad instruction arguments")

var le = binary.LittleEndian

// number is implemented by both encoding/json and go-ordered-json Number
// types.
type number interface {
	String() string
	Int64() (int64, error)
}

// EncodeArgs returns instruction data: the discriminator followed by Borsh
// encoded arguments. Go numbers, json.Number, numeric strings, base58 strings
// (for public keys), ordered JSON objects or maps (for structs) and variant
// names (for enums) are accepted as values.
func (ins *Instruction) EncodeArgs(args []any) ([]byte, error) {
	if len(args) != len(ins.Args) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrArgs, ins.Name, len(ins.Args), len(args))
	}
	buf := bytes.NewBuffer(ins.Discriminator())
	enc := bin.NewBorshEncoder(buf)
	for i, a := range ins.Args {
		if err := ins.encodeValue(enc, a.Type, args[i]); err != nil {
			return nil, fmt.Errorf("%w: argument %s (%s): %w", ErrArgs, a.Name, a.Type, err)
		}
	}
	return buf.Bytes(), nil
}

func (ins *Instruction) encodeValue(enc *bin.Encoder, t Type, v any) error {
	switch t.Kind {
	case KindPrimitive:
		return encodePrimitive(enc, t.Name, v)
	case KindOption, KindCOption:
		present := !isNil(v)
		var err error
		if t.Kind == KindOption {
			err = enc.WriteBool(present)
		} else {
			var tag uint32
			if present {
				tag = 1
			}
			err = enc.WriteUint32(tag, le)
		}
		if err != nil || !present {
			return err
		}
		return ins.encodeValue(enc, *t.Elem, v)
	case KindVec, KindArray:
		items, err := toSlice(v)
		if err != nil {
			return err
		}
		if t.Kind == KindArray {
			if len(items) != t.Len {
				return fmt.Errorf("array of %d elements expected, got %d", t.Len, len(items))
			}
		} else if err := enc.WriteUint32(uint32(len(items)), le); err != nil {
			return err
		}
		for i, it := range items {
			if err := ins.encodeValue(enc, *t.Elem, it); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	case KindDefined:
		var def *TypeDef
		if ins.idl != nil {
			def, _ = ins.idl.TypeDef(t.Name)
		}
		if def == nil {
			return fmt.Errorf("undefined type %s", t.Name)
		}
		return ins.encodeDefined(enc, def, v)
	}
	return fmt.Errorf("unknown type kind %d", t.Kind)
}

func (ins *Instruction) encodeDefined(enc *bin.Encoder, def *TypeDef, v any) error {
	switch def.Type.Kind {
	case "struct":
		get, ok := fieldGetter(v)
		if !ok {
			// Values implementing bin.BinaryMarshaler or plain Go structs
			// matching the layout.
			return enc.Encode(v)
		}
		for _, f := range def.Type.Fields {
			fv, ok := get(f.Name)
			if !ok {
				return fmt.Errorf("missing field %s of %s", f.Name, def.Name)
			}
			if err := ins.encodeValue(enc, f.Type, fv); err != nil {
				return fmt.Errorf("field %s: %w", f.Name, err)
			}
		}
		return nil
	case "enum":
		idx, err := variantIndex(def, v)
		if err != nil {
			return err
		}
		if len(def.Type.Variants[idx].Fields) != 0 && string(def.Type.Variants[idx].Fields) != "[]" {
			return fmt.Errorf("variant %s of %s has fields, not supported", def.Type.Variants[idx].Name, def.Name)
		}
		return enc.WriteUint8(uint8(idx))
	}
	return fmt.Errorf("unknown kind %q of %s", def.Type.Kind, def.Name)
}

// fieldGetter returns a function getting struct fields by name from ordered
// JSON objects or maps. Both snake_case and camelCase keys are accepted.
func fieldGetter(v any) (func(string) (any, bool), bool) {
	var lookup func(string) (any, bool)
	switch obj := v.(type) {
	case json.OrderedObject:
		lookup = func(k string) (any, bool) {
			for _, m := range obj {
				if m.Key == k {
					return m.Value, true
				}
			}
			return nil, false
		}
	case map[string]any:
		lookup = func(k string) (any, bool) {
			fv, ok := obj[k]
			return fv, ok
		}
	default:
		return nil, false
	}
	return func(name string) (any, bool) {
		for _, k := range []string{name, CamelCase(name), SnakeCase(name)} {
			if fv, ok := lookup(k); ok {
				return fv, true
			}
		}
		return nil, false
	}, true
}

// variantIndex accepts variant name, its index or a single-key object
// like {"bid": {}} (the way Anchor's TypeScript client passes enums).
func variantIndex(def *TypeDef, v any) (int, error) {
	var name string
	switch val := v.(type) {
	case string:
		name = val
	case json.OrderedObject:
		if len(val) != 1 {
			return 0, fmt.Errorf("single-key object expected for %s", def.Name)
		}
		name = val[0].Key
	case map[string]any:
		if len(val) != 1 {
			return 0, fmt.Errorf("single-key object expected for %s", def.Name)
		}
		for k := range val {
			name = k
		}
	default:
		n, err := toBig(v)
		if err != nil {
			return 0, fmt.Errorf("bad %s value: %w", def.Name, err)
		}
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() >= int64(len(def.Type.Variants)) {
			return 0, fmt.Errorf("no variant %s in %s", n, def.Name)
		}
		return int(n.Int64()), nil
	}
	for i, vr := range def.Type.Variants {
		if Normalize(vr.Name) == Normalize(name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no variant %s in %s", name, def.Name)
}

var intBits = map[string]struct {
	bits   int
	signed bool
}{
	U8: {8, false}, I8: {8, true}, U16: {16, false}, I16: {16, true},
	U32: {32, false}, I32: {32, true}, U64: {64, false}, I64: {64, true},
	U128: {128, false}, I128: {128, true},
}

func encodePrimitive(enc *bin.Encoder, name string, v any) error {
	if ib, ok := intBits[name]; ok {
		n, err := toBig(v)
		if err != nil {
			return err
		}
		return encodeInt(enc, n, ib.bits, ib.signed)
	}
	switch name {
	case Bool:
		b, err := toBool(v)
		if err != nil {
			return err
		}
		return enc.WriteBool(b)
	case F32, F64:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		if name == F32 {
			return enc.WriteUint32(math.Float32bits(float32(f)), le)
		}
		return enc.WriteUint64(math.Float64bits(f), le)
	case String:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("string expected, got %T", v)
		}
		return writeBytes(enc, []byte(s))
	case Bytes:
		b, err := toBytes(v)
		if err != nil {
			return err
		}
		return writeBytes(enc, b)
	case PublicKey:
		pk, err := toPublicKey(v)
		if err != nil {
			return err
		}
		return enc.WriteBytes(pk[:], false)
	}
	return fmt.Errorf("unknown primitive type %s", name)
}

func writeBytes(enc *bin.Encoder, b []byte) error {
	if err := enc.WriteUint32(uint32(len(b)), le); err != nil {
		return err
	}
	return enc.WriteBytes(b, false)
}

func encodeInt(enc *bin.Encoder, n *big.Int, bits int, signed bool) error {
	var min, max *big.Int
	if signed {
		max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)), big.NewInt(1))
		min = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(bits-1)))
	} else {
		max = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bits)), big.NewInt(1))
		min = new(big.Int)
	}
	if n.Cmp(min) < 0 || n.Cmp(max) > 0 {
		return fmt.Errorf("value %s is out of range", n)
	}
	u, _ := uint256.FromBig(new(big.Int).Abs(n))
	if n.Sign() < 0 {
		// Two's complement, lower bits are taken.
		u.Neg(u)
	}
	b32 := u.Bytes32()
	buf := b32[32-bits/8:]
	// Big-endian to little-endian.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return enc.WriteBytes(buf, false)
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func toBig(v any) (*big.Int, error) {
	switch val := v.(type) {
	case *big.Int:
		return val, nil
	case number:
		return parseBig(val.String())
	case string:
		return parseBig(val)
	case float32, float64:
		f := reflect.ValueOf(v).Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		n, _ := big.NewFloat(f).Int(nil)
		return n, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("integer expected, got %T", v)
}

func parseBig(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("bad integer %q", s)
	}
	return n, nil
}

func toFloat(v any) (float64, error) {
	switch val := v.(type) {
	case number:
		return strconv.ParseFloat(val.String(), 64)
	case string:
		return strconv.ParseFloat(val, 64)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	}
	return 0, fmt.Errorf("number expected, got %T", v)
}

func toBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		return strconv.ParseBool(val)
	}
	return false, fmt.Errorf("bool expected, got %T", v)
}

func toBytes(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	items, err := toSlice(v)
	if err != nil {
		return nil, err
	}
	res := make([]byte, len(items))
	for i, it := range items {
		n, err := toBig(it)
		if err != nil || !n.IsInt64() || n.Int64() < 0 || n.Int64() > math.MaxUint8 {
			return nil, fmt.Errorf("bad byte at %d", i)
		}
		res[i] = byte(n.Int64())
	}
	return res, nil
}

func toPublicKey(v any) (solana.PublicKey, error) {
	switch val := v.(type) {
	case solana.PublicKey:
		return val, nil
	case *solana.PublicKey:
		if val == nil {
			return solana.PublicKey{}, errors.New("nil public key")
		}
		return *val, nil
	case string:
		return solana.PublicKeyFromBase58(val)
	case [32]byte:
		return solana.PublicKeyFromBytes(val[:]), nil
	case []byte:
		if len(val) != solana.PublicKeyLength {
			return solana.PublicKey{}, fmt.Errorf("public key of %d bytes expected, got %d", solana.PublicKeyLength, len(val))
		}
		return solana.PublicKeyFromBytes(val), nil
	}
	return solana.PublicKey{}, fmt.Errorf("public key expected, got %T", v)
}

func toSlice(v any) ([]any, error) {
	if items, ok := v.([]any); ok {
		return items, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("list expected, got %T", v)
	}
	res := make([]any, rv.Len())
	for i := range res {
		res[i] = rv.Index(i).Interface()
	}
	return res, nil
}

// ParseArgs decodes JSON array of instruction arguments keeping object
// field order and number precision.
func ParseArgs(data []byte) ([]any, error) {
	d := json.NewDecoder(bytes.NewReader(data))
	d.UseOrderedObject()
	d.UseNumber()
	var args []any
	if err := d.Decode(&args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArgs, err)
	}
	return args, nil
}
