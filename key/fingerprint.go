// Package key derives stable cache keys from function call arguments.
package key

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/bytedance/sonic"
	"golang.org/x/crypto/blake2b"

	"github.com/krisalay/memo-cache/types"
)

/*
Args is the argument list of one memoized call: ordered positional values and
a set of named values. Two Args with the same positional values and the same
named pairs produce the same fingerprint regardless of the order the names
were added in.
*/
type Args struct {
	Positional []any
	Named      map[string]any
}

// Positional builds Args from positional values only.
func Positional(vals ...any) Args {
	return Args{Positional: vals}
}

// With returns a copy of a with one more named value.
func (a Args) With(name string, value any) Args {
	named := make(map[string]any, len(a.Named)+1)
	for k, v := range a.Named {
		named[k] = v
	}
	named[name] = value
	return Args{Positional: a.Positional, Named: named}
}

// Fingerprinter lets an argument type supply its own canonical bytes instead
// of the default JSON encoding.
type Fingerprinter interface {
	Fingerprint() ([]byte, error)
}

// Fingerprint returns the hex encoded BLAKE2b-256 digest of the canonical
// encoding of args. Arguments that cannot be encoded stably fail with
// types.ErrUnhashableArguments.
func Fingerprint(args Args) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}

	for i, v := range args.Positional {
		b, err := canonical(v)
		if err != nil {
			return "", types.Errorf(types.ErrUnhashableArguments, "positional argument %d: %v", i, err)
		}
		writeField(h, "p", fmt.Sprint(i), b)
	}

	names := make([]string, 0, len(args.Named))
	for name := range args.Named {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := canonical(args.Named[name])
		if err != nil {
			return "", types.Errorf(types.ErrUnhashableArguments, "named argument %q: %v", name, err)
		}
		writeField(h, "n", name, b)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeField length-prefixes every part so that adjacent fields can never be
// re-split into a different argument list with the same bytes.
func writeField(h interface{ Write([]byte) (int, error) }, kind, label string, body []byte) {
	for _, part := range [][]byte{[]byte(kind), []byte(label), body} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		_, _ = h.Write(n[:])
		_, _ = h.Write(part)
	}
}

// canonical encodes one value as "<go type>\x00<bytes>".
func canonical(v any) ([]byte, error) {
	typeName := fmt.Sprintf("%T", v)

	if f, ok := v.(Fingerprinter); ok {
		b, err := f.Fingerprint()
		if err != nil {
			return nil, err
		}
		return append([]byte(typeName+"\x00"), b...), nil
	}

	if err := checkEncodable(reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}

	b, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(typeName+"\x00"), b...), nil
}

const maxDepth = 64

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// checkEncodable rejects kinds that JSON would either refuse or encode
// lossily enough to collide.
func checkEncodable(v reflect.Value, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("value nested deeper than %d levels", maxDepth)
	}
	if !v.IsValid() {
		return nil
	}

	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return fmt.Errorf("unsupported kind %s", v.Kind())
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("unsupported float value %v", f)
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkEncodable(v.Elem(), depth+1)
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := checkEncodable(v.Index(i), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkEncodable(iter.Key(), depth+1); err != nil {
				return err
			}
			if err := checkEncodable(iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		if t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType) {
			return nil
		}
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				return fmt.Errorf("%s has unexported field %s, implement key.Fingerprinter", t, t.Field(i).Name)
			}
			if err := checkEncodable(v.Field(i), depth+1); err != nil {
				return err
			}
		}
	}

	return nil
}
