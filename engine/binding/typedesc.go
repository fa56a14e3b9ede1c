package binding

import (
	"bytes"
	"reflect"
	"sort"
)

// MethodID identifies an overridable method across the whole type chain
//
// IDs start at 1, 0 marks a method that is not overridable.
type MethodID uint16

// NotOverridable is the MethodID of plain native methods
const NotOverridable MethodID = 0

// NativeFunc calls a native method on self with converted arguments
type NativeFunc func(self interface{}, args []interface{}) (interface{}, error)

// Param describes one parameter of a bound method or function
type Param struct {
	Name       string
	Type       reflect.Type
	Default    interface{}
	HasDefault bool
}

// Kind returns the script-facing kind of the parameter
func (p Param) Kind() Kind {
	return KindOf(p.Type)
}

// MethodSpec declares a bindable method of a native type
type MethodSpec struct {
	Name   string
	ID     MethodID // NotOverridable for plain native methods
	Params []Param
	Result reflect.Type // nil for methods without result
	// Invoke calls the method through the object's virtual surface, so script overrides apply
	Invoke NativeFunc
	// Default calls the native implementation only; required for overridable methods
	Default NativeFunc
}

// PropertySpec declares a direct field proxy
type PropertySpec struct {
	Name string
	Type reflect.Type
	Get  func(self interface{}) (interface{}, error)
	Set  func(self interface{}, v interface{}) error // nil for read-only properties
}

// TypeSpec declares a bound native type
type TypeSpec struct {
	Name          string
	Parent        string // must be registered before this type
	Constructible bool   // constructible by scripts with no arguments
	New           func() interface{}
	Methods       []MethodSpec
	Properties    []PropertySpec
}

// FunctionSpec declares a free native function
type FunctionSpec struct {
	Name   string
	Params []Param
	Result reflect.Type
	Fn     func(args []interface{}) (interface{}, error)
}

// MethodDesc is a registered method
type MethodDesc struct {
	MethodSpec
	Owner     *TypeDesc
	signature string
}

// Overridable tells whether scripts can override the method
func (md *MethodDesc) Overridable() bool {
	return md.ID != NotOverridable
}

// Signature returns the parameter and result types, e.g. "(string, float32) bool"
func (md *MethodDesc) Signature() string {
	return md.signature
}

func (md *MethodDesc) String() string {
	return md.Owner.Name + "." + md.Name + md.signature
}

// PropertyDesc is a registered property
type PropertyDesc struct {
	PropertySpec
	Owner *TypeDesc
}

// TypeDesc is a registered native type
type TypeDesc struct {
	Name          string
	Parent        *TypeDesc
	Constructible bool

	newFunc     func() interface{}
	methods     map[string][]*MethodDesc // overload sets in registration order
	methodNames []string
	properties  map[string]*PropertyDesc
	overridable map[MethodID]*MethodDesc // own and inherited, nearest definition wins
}

func newTypeDesc(name string, parent *TypeDesc) *TypeDesc {
	desc := &TypeDesc{
		Name:        name,
		Parent:      parent,
		methods:     map[string][]*MethodDesc{},
		properties:  map[string]*PropertyDesc{},
		overridable: map[MethodID]*MethodDesc{},
	}
	if parent != nil {
		for id, md := range parent.overridable {
			desc.overridable[id] = md
		}
	}
	return desc
}

// MRO returns the method resolution order: the type itself followed by its ancestors
func (desc *TypeDesc) MRO() []*TypeDesc {
	var mro []*TypeDesc
	for t := desc; t != nil; t = t.Parent {
		mro = append(mro, t)
	}
	return mro
}

// IsSubtypeOf tells whether desc is other or derives from it
func (desc *TypeDesc) IsSubtypeOf(other *TypeDesc) bool {
	for t := desc; t != nil; t = t.Parent {
		if t == other {
			return true
		}
	}
	return false
}

// Methods returns the overload set visible by name, nearest type first
func (desc *TypeDesc) Methods(name string) []*MethodDesc {
	var res []*MethodDesc
	for t := desc; t != nil; t = t.Parent {
		res = append(res, t.methods[name]...)
	}
	return res
}

// MethodNames returns the names of methods declared by this type, in registration order
func (desc *TypeDesc) MethodNames() []string {
	return desc.methodNames
}

// Overridable returns the overridable method with the id, or nil
func (desc *TypeDesc) Overridable(id MethodID) *MethodDesc {
	return desc.overridable[id]
}

// OverridableMethods returns all overridable methods visible on this type, ordered by ID
func (desc *TypeDesc) OverridableMethods() []*MethodDesc {
	res := make([]*MethodDesc, 0, len(desc.overridable))
	for _, md := range desc.overridable {
		res = append(res, md)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].ID < res[j].ID
	})
	return res
}

// Property returns the property visible by name, or nil
func (desc *TypeDesc) Property(name string) *PropertyDesc {
	for t := desc; t != nil; t = t.Parent {
		if pd := t.properties[name]; pd != nil {
			return pd
		}
	}
	return nil
}

func (desc *TypeDesc) String() string {
	return desc.Name
}

func signatureOf(params []Param, result reflect.Type) string {
	var buf bytes.Buffer
	buf.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			buf.WriteString(", ")
		}
		if p.Type == nil {
			buf.WriteString("<nil>")
		} else {
			buf.WriteString(p.Type.String())
		}
	}
	buf.WriteByte(')')
	if result != nil {
		buf.WriteByte(' ')
		buf.WriteString(result.String())
	}
	return buf.String()
}

func paramsSignature(params []Param) string {
	return signatureOf(params, nil)
}
