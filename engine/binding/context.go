package binding

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/gwlog"
	"github.com/xiaonanln/gwscript/engine/opmon"
)

// Options configures a binding Context
type Options struct {
	Policy         FaultPolicy
	Diagnostics    Diagnostics    // LogDiagnostics if nil
	TraceOverrides bool           // log every override call at debug level
	Monitor        *opmon.Monitor // records override and fallback durations if not nil
}

type tableKey struct {
	desc  *TypeDesc
	class ScriptClass
}

// Context holds every registered type, function and override table
//
// A Context is created once at startup and passed explicitly to whoever registers or dispatches.
// It is not safe for concurrent use: all calls happen on the frame goroutine.
type Context struct {
	policy         FaultPolicy
	diagnostics    Diagnostics
	traceOverrides bool
	monitor        *opmon.Monitor

	types       map[string]*TypeDesc
	typeOrder   []*TypeDesc
	methodIDs   map[MethodID]string
	maxID       MethodID
	functions   map[string]*FunctionSpec
	sealed      bool
	tables      map[tableKey]*OverrideTable
	faultsCount uint64
}

// NewContext creates an empty binding context
func NewContext(opts Options) *Context {
	if opts.Diagnostics == nil {
		opts.Diagnostics = LogDiagnostics{}
	}
	return &Context{
		policy:         opts.Policy,
		diagnostics:    opts.Diagnostics,
		traceOverrides: opts.TraceOverrides,
		monitor:        opts.Monitor,
		types:          map[string]*TypeDesc{},
		methodIDs:      map[MethodID]string{},
		functions:      map[string]*FunctionSpec{},
		tables:         map[tableKey]*OverrideTable{},
	}
}

// Policy returns the fault policy
func (ctx *Context) Policy() FaultPolicy {
	return ctx.policy
}

// SetPolicy changes the fault policy
func (ctx *Context) SetPolicy(policy FaultPolicy) {
	ctx.policy = policy
}

// FaultsCount returns the number of script faults reported so far
func (ctx *Context) FaultsCount() uint64 {
	return ctx.faultsCount
}

// RegisterType registers a native type; its parent must be registered first
func (ctx *Context) RegisterType(spec TypeSpec) (*TypeDesc, error) {
	if ctx.sealed {
		return nil, registrationErrorf(spec.Name, "context is sealed")
	}
	if spec.Name == "" {
		return nil, registrationErrorf("<anonymous>", "type name is empty")
	}
	if ctx.types[spec.Name] != nil {
		return nil, registrationErrorf(spec.Name, "type is already registered")
	}
	var parent *TypeDesc
	if spec.Parent != "" {
		parent = ctx.types[spec.Parent]
		if parent == nil {
			return nil, registrationErrorf(spec.Name, "parent type %s is not registered", spec.Parent)
		}
	}
	if spec.Constructible && spec.New == nil {
		return nil, registrationErrorf(spec.Name, "constructible type has no constructor")
	}

	desc := newTypeDesc(spec.Name, parent)
	desc.Constructible = spec.Constructible
	desc.newFunc = spec.New

	newIDs := map[MethodID]string{}
	for i := range spec.Methods {
		ms := spec.Methods[i]
		if err := ctx.checkMethod(desc, &ms, newIDs); err != nil {
			return nil, err
		}
		md := &MethodDesc{
			MethodSpec: ms,
			Owner:      desc,
			signature:  signatureOf(ms.Params, ms.Result),
		}
		if len(desc.methods[ms.Name]) == 0 {
			desc.methodNames = append(desc.methodNames, ms.Name)
		}
		desc.methods[ms.Name] = append(desc.methods[ms.Name], md)
		if md.Overridable() {
			desc.overridable[md.ID] = md
			newIDs[md.ID] = md.Name
		}
	}

	for i := range spec.Properties {
		ps := spec.Properties[i]
		if ps.Name == "" || ps.Get == nil || ps.Type == nil {
			return nil, registrationErrorf(spec.Name, "property %q needs a name, a type and a getter", ps.Name)
		}
		if desc.properties[ps.Name] != nil {
			return nil, registrationErrorf(spec.Name, "property %s is declared twice", ps.Name)
		}
		if len(desc.Methods(ps.Name)) > 0 {
			return nil, registrationErrorf(spec.Name, "property %s collides with a method", ps.Name)
		}
		if parent != nil && parent.Property(ps.Name) != nil {
			return nil, registrationErrorf(spec.Name, "property %s is already declared by an ancestor", ps.Name)
		}
		desc.properties[ps.Name] = &PropertyDesc{PropertySpec: ps, Owner: desc}
	}
	for name := range desc.methods {
		if parent != nil && parent.Property(name) != nil {
			return nil, registrationErrorf(spec.Name, "method %s collides with an inherited property", name)
		}
	}

	for id, name := range newIDs {
		ctx.methodIDs[id] = name
		if id > ctx.maxID {
			ctx.maxID = id
		}
	}
	ctx.types[spec.Name] = desc
	ctx.typeOrder = append(ctx.typeOrder, desc)
	gwlog.Debugf("binding: registered type %s (parent %v, %d methods, %d properties)", desc.Name, spec.Parent, len(spec.Methods), len(spec.Properties))
	return desc, nil
}

func (ctx *Context) checkMethod(desc *TypeDesc, ms *MethodSpec, newIDs map[MethodID]string) error {
	if ms.Name == "" {
		return registrationErrorf(desc.Name, "method name is empty")
	}
	if ms.Invoke == nil {
		return registrationErrorf(desc.Name, "method %s has no native implementation", ms.Name)
	}
	if err := checkParams(ms.Params); err != nil {
		return registrationErrorf(desc.Name, "method %s: %s", ms.Name, err)
	}

	sig := paramsSignature(ms.Params)
	for _, other := range desc.methods[ms.Name] {
		if paramsSignature(other.Params) == sig {
			return registrationErrorf(desc.Name, "method %s%s is registered twice", ms.Name, sig)
		}
	}

	var inherited *MethodDesc
	if desc.Parent != nil {
		for _, md := range desc.Parent.Methods(ms.Name) {
			if md.Overridable() {
				if paramsSignature(md.Params) == sig || md.ID == ms.ID {
					inherited = md
					break
				}
			}
		}
	}

	if ms.ID == NotOverridable {
		if inherited != nil {
			return registrationErrorf(desc.Name, "method %s%s redeclares overridable %s as not overridable", ms.Name, sig, inherited)
		}
		return nil
	}

	if ms.Default == nil {
		return registrationErrorf(desc.Name, "overridable method %s has no default implementation", ms.Name)
	}
	if name, ok := ctx.methodIDs[ms.ID]; ok && name != ms.Name {
		return registrationErrorf(desc.Name, "method id %d of %s is already used by %s", ms.ID, ms.Name, name)
	}
	if name, ok := newIDs[ms.ID]; ok {
		return registrationErrorf(desc.Name, "method id %d of %s is already used by %s", ms.ID, ms.Name, name)
	}
	if inherited != nil {
		if inherited.ID != ms.ID {
			return registrationErrorf(desc.Name, "overridable %s redeclared with id %d, inherited id is %d", ms.Name, ms.ID, inherited.ID)
		}
		if inherited.signature != signatureOf(ms.Params, ms.Result) {
			return registrationErrorf(desc.Name, "overridable %s redeclared as %s%s, inherited signature is %s", ms.Name, ms.Name, signatureOf(ms.Params, ms.Result), inherited.signature)
		}
	}
	return nil
}

func checkParams(params []Param) error {
	seenDefault := false
	for i, p := range params {
		if p.Type == nil {
			return errors.Errorf("parameter %d (%s) has no type", i, p.Name)
		}
		if p.HasDefault {
			seenDefault = true
			if _, score := convertArg(p.Default, p.Type); score == matchNone {
				return errors.Errorf("default %v of parameter %s is not a %s", p.Default, p.Name, p.Type)
			}
		} else if seenDefault {
			return errors.Errorf("parameter %s without default follows a parameter with default", p.Name)
		}
	}
	return nil
}

// RegisterFunction registers a free native function
func (ctx *Context) RegisterFunction(spec FunctionSpec) error {
	if ctx.sealed {
		return registrationErrorf(spec.Name, "context is sealed")
	}
	if spec.Name == "" || spec.Fn == nil {
		return registrationErrorf(spec.Name, "function needs a name and an implementation")
	}
	if ctx.functions[spec.Name] != nil {
		return registrationErrorf(spec.Name, "function is already registered")
	}
	if err := checkParams(spec.Params); err != nil {
		return registrationErrorf(spec.Name, "%s", err)
	}
	ctx.functions[spec.Name] = &spec
	gwlog.Debugf("binding: registered function %s%s", spec.Name, signatureOf(spec.Params, spec.Result))
	return nil
}

// Seal stops further registrations
func (ctx *Context) Seal() {
	ctx.sealed = true
}

// IsSealed tells whether the context is sealed
func (ctx *Context) IsSealed() bool {
	return ctx.sealed
}

// Type returns the registered type by name, or nil
func (ctx *Context) Type(name string) *TypeDesc {
	return ctx.types[name]
}

// Types returns all registered types in registration order
func (ctx *Context) Types() []*TypeDesc {
	return ctx.typeOrder
}

// Function returns the registered function by name, or nil
func (ctx *Context) Function(name string) *FunctionSpec {
	return ctx.functions[name]
}

// FunctionNames returns names of all registered functions
func (ctx *Context) FunctionNames() []string {
	names := make([]string, 0, len(ctx.functions))
	for name := range ctx.functions {
		names = append(names, name)
	}
	return names
}

// MethodName returns the name of the overridable method id
func (ctx *Context) MethodName(id MethodID) string {
	return ctx.methodIDs[id]
}

func fillArgs(params []Param, args []interface{}) ([]interface{}, int, error) {
	if len(args) > len(params) {
		return nil, matchNone, errors.Errorf("receives %d arguments, but given %d", len(params), len(args))
	}
	in := make([]interface{}, len(params))
	total := 0
	for i, p := range params {
		var v interface{}
		if i < len(args) {
			v = args[i]
		} else if p.HasDefault {
			v = p.Default
		} else {
			return nil, matchNone, errors.Errorf("missing argument %s", p.Name)
		}
		rv, score := convertArg(v, p.Type)
		if score == matchNone {
			return nil, matchNone, errors.Errorf("argument %s: can not convert %T to %s", p.Name, v, p.Type)
		}
		in[i] = rv.Interface()
		if i < len(args) {
			total += score
		} else {
			total += matchExact
		}
	}
	return in, total, nil
}

// resolve picks the best overload for args: exact matches beat conversions, ties go to the first registered
func resolve(candidates []*MethodDesc, args []interface{}) (*MethodDesc, []interface{}, error) {
	var best *MethodDesc
	var bestIn []interface{}
	bestScore := -1
	var lastErr error
	for _, md := range candidates {
		in, score, err := fillArgs(md.Params, args)
		if err != nil {
			lastErr = err
			continue
		}
		if score > bestScore {
			best, bestIn, bestScore = md, in, score
		}
	}
	if best == nil {
		if len(candidates) == 1 {
			return nil, nil, lastErr
		}
		kinds := make([]string, len(args))
		for i, arg := range args {
			kinds[i] = KindOf(reflect.TypeOf(arg)).String()
		}
		return nil, nil, errors.Errorf("no overload matches (%s)", strings.Join(kinds, ", "))
	}
	return best, bestIn, nil
}

// ResolveMethod returns the overload of name that CallMethod would call with args
func (ctx *Context) ResolveMethod(desc *TypeDesc, name string, args []interface{}) (*MethodDesc, error) {
	candidates := desc.Methods(name)
	if len(candidates) == 0 {
		return nil, errors.Errorf("%s has no method %s", desc.Name, name)
	}
	md, _, err := resolve(candidates, args)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", desc.Name, name)
	}
	return md, nil
}

// CallMethod calls a method by name the way scripts do: overrides apply to overridable methods
func (ctx *Context) CallMethod(desc *TypeDesc, self interface{}, name string, args ...interface{}) (interface{}, error) {
	candidates := desc.Methods(name)
	if len(candidates) == 0 {
		return nil, errors.Errorf("%s has no method %s", desc.Name, name)
	}
	md, in, err := resolve(candidates, args)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", desc.Name, name)
	}
	return md.Invoke(self, in)
}

// CallDefault calls the native implementation of a method by name, bypassing script overrides
func (ctx *Context) CallDefault(desc *TypeDesc, self interface{}, name string, args ...interface{}) (interface{}, error) {
	candidates := desc.Methods(name)
	if len(candidates) == 0 {
		return nil, errors.Errorf("%s has no method %s", desc.Name, name)
	}
	md, in, err := resolve(candidates, args)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.default_%s", desc.Name, name)
	}
	if md.Default != nil {
		return md.Default(self, in)
	}
	return md.Invoke(self, in)
}

// GetProperty reads a property, never consulting overrides
func (ctx *Context) GetProperty(desc *TypeDesc, self interface{}, name string) (interface{}, error) {
	pd := desc.Property(name)
	if pd == nil {
		return nil, errors.Errorf("%s has no property %s", desc.Name, name)
	}
	v, err := pd.Get(self)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%s", desc.Name, name)
	}
	return v, nil
}

// SetProperty writes a property, never consulting overrides
func (ctx *Context) SetProperty(desc *TypeDesc, self interface{}, name string, value interface{}) error {
	pd := desc.Property(name)
	if pd == nil {
		return errors.Errorf("%s has no property %s", desc.Name, name)
	}
	if pd.Set == nil {
		return errors.Errorf("%s.%s is read-only", desc.Name, name)
	}
	rv, err := ConvertArg(value, pd.Type)
	if err != nil {
		return errors.Wrapf(err, "%s.%s", desc.Name, name)
	}
	return pd.Set(self, rv.Interface())
}

// Construct creates a new instance of a constructible type with no arguments
func (ctx *Context) Construct(typeName string) (interface{}, error) {
	desc := ctx.types[typeName]
	if desc == nil {
		return nil, errors.Errorf("unknown type %s", typeName)
	}
	if !desc.Constructible {
		return nil, errors.Errorf("type %s is not constructible", typeName)
	}
	return desc.newFunc(), nil
}

// CallFunction calls a free native function, filling omitted trailing arguments with their defaults
func (ctx *Context) CallFunction(name string, args ...interface{}) (interface{}, error) {
	fs := ctx.functions[name]
	if fs == nil {
		return nil, errors.Errorf("unknown function %s", name)
	}
	in, _, err := fillArgs(fs.Params, args)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", name)
	}
	return fs.Fn(in)
}
