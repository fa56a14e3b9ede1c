package binding

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/gwutils"
	"github.com/xiaonanln/typeconv"
)

// Kind classifies the script-facing type of a parameter or result
type Kind uint8

const (
	// KindVoid is the kind of methods without results
	KindVoid Kind = iota
	// KindAny accepts every value
	KindAny
	KindBool
	KindInt
	KindFloat
	KindString
	// KindValue is a struct passed by value, such as a vector
	KindValue
	// KindRef is a pointer, such as a vector passed by reference or a trace result
	KindRef
	// KindObject is a non-empty interface, such as an entity
	KindObject
	// KindOther is everything else (slices, maps, funcs)
	KindOther
)

var kindNames = [...]string{
	KindVoid:   "void",
	KindAny:    "any",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindValue:  "value",
	KindRef:    "ref",
	KindObject: "object",
	KindOther:  "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

func (k Kind) isScalar() bool {
	return k == KindBool || k == KindInt || k == KindFloat || k == KindString
}

func (k Kind) isNumber() bool {
	return k == KindInt || k == KindFloat
}

// KindOf returns the kind of type t, nil is void
func KindOf(t reflect.Type) Kind {
	if t == nil {
		return KindVoid
	}
	switch t.Kind() {
	case reflect.Bool:
		return KindBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return KindInt
	case reflect.Float32, reflect.Float64:
		return KindFloat
	case reflect.String:
		return KindString
	case reflect.Struct:
		return KindValue
	case reflect.Ptr:
		return KindRef
	case reflect.Interface:
		if t.NumMethod() == 0 {
			return KindAny
		}
		return KindObject
	}
	return KindOther
}

// match quality of an argument against a parameter type, higher is better
const (
	matchNone    = 0
	matchAny     = 1 // parameter accepts anything
	matchConvert = 2 // scalar converted across kinds, e.g. "1.5" -> float32
	matchKind    = 3 // same kind but different type, e.g. float64 -> float32, *Vector3 -> Vector3
	matchAssign  = 4 // assignable, e.g. *BaseTrigger -> IEntity
	matchExact   = 5
)

func convertArg(v interface{}, t reflect.Type) (rv reflect.Value, score int) {
	if t.Kind() == reflect.Interface {
		if v == nil {
			return reflect.Zero(t), matchAssign
		}
		vt := reflect.TypeOf(v)
		if !vt.Implements(t) {
			return reflect.Value{}, matchNone
		}
		rv = reflect.New(t).Elem()
		rv.Set(reflect.ValueOf(v))
		if t.NumMethod() == 0 {
			return rv, matchAny
		}
		return rv, matchAssign
	}

	if v == nil {
		switch t.Kind() {
		case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), matchAssign
		}
		return reflect.Value{}, matchNone
	}

	val := reflect.ValueOf(v)
	vt := val.Type()
	if vt == t {
		return val, matchExact
	}
	if vt.AssignableTo(t) {
		rv = reflect.New(t).Elem()
		rv.Set(val)
		return rv, matchAssign
	}

	// struct by reference <-> struct by value
	if vt.Kind() == reflect.Ptr && vt.Elem() == t {
		if val.IsNil() {
			return reflect.Value{}, matchNone
		}
		return val.Elem(), matchKind
	}
	if t.Kind() == reflect.Ptr && t.Elem() == vt {
		p := reflect.New(vt)
		p.Elem().Set(val)
		return p, matchKind
	}

	vk, tk := KindOf(vt), KindOf(t)
	if vk == tk && vt.ConvertibleTo(t) || vk.isNumber() && tk.isNumber() {
		return val.Convert(t), matchKind
	}
	if vk == KindString && tk.isScalar() {
		return parseScalar(val.String(), t)
	}
	if tk == KindString {
		if str, ok := formatScalar(val); ok {
			rv = reflect.New(t).Elem()
			rv.SetString(str)
			return rv, matchConvert
		}
		return reflect.Value{}, matchNone
	}
	if vk.isScalar() && tk.isScalar() {
		err := gwutils.CatchPanic(func() {
			rv = typeconv.Convert(v, t)
		})
		if err != nil || !rv.IsValid() {
			return reflect.Value{}, matchNone
		}
		return rv, matchConvert
	}
	return reflect.Value{}, matchNone
}

// keyValueFormatter is implemented by values with a keyvalue text form, such as vectors
type keyValueFormatter interface {
	KeyValueString() string
}

// formatScalar formats numbers, bools and keyvalue formatters the way keyvalues are written
func formatScalar(val reflect.Value) (string, bool) {
	switch val.Kind() {
	case reflect.Bool:
		return strconv.FormatBool(val.Bool()), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(val.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(val.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(val.Float(), 'f', -1, val.Type().Bits()), true
	case reflect.Ptr:
		if val.IsNil() {
			return "", false
		}
	}
	if f, ok := val.Interface().(keyValueFormatter); ok {
		return f.KeyValueString(), true
	}
	return "", false
}

// parseScalar parses keyvalue-style strings such as "1.5" or "true"
func parseScalar(s string, t reflect.Type) (reflect.Value, int) {
	rv := reflect.New(t).Elem()
	s = strings.TrimSpace(s)
	switch KindOf(t) {
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, matchNone
		}
		rv.SetBool(b)
	case KindFloat:
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return reflect.Value{}, matchNone
		}
		rv.SetFloat(f)
	case KindInt:
		switch t.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			n, err := strconv.ParseUint(s, 0, t.Bits())
			if err != nil {
				return reflect.Value{}, matchNone
			}
			rv.SetUint(n)
		default:
			n, err := strconv.ParseInt(s, 0, t.Bits())
			if err != nil {
				return reflect.Value{}, matchNone
			}
			rv.SetInt(n)
		}
	default:
		return reflect.Value{}, matchNone
	}
	return rv, matchConvert
}

// ConvertArg converts v to type t the way script arguments are converted to native parameters
//
// nil converts to the zero value of pointer and interface types, which is how a script passes "no object".
func ConvertArg(v interface{}, t reflect.Type) (reflect.Value, error) {
	rv, score := convertArg(v, t)
	if score == matchNone {
		return reflect.Value{}, errors.Errorf("can not convert %T to %s", v, t)
	}
	return rv, nil
}

// ConvertResult converts a script result to the native result type R
func ConvertResult[R any](v interface{}) (R, error) {
	var r R
	rv, err := ConvertArg(v, reflect.TypeOf(&r).Elem())
	if err != nil {
		return r, err
	}
	reflect.ValueOf(&r).Elem().Set(rv)
	return r, nil
}
