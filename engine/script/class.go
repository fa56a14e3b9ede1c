package script

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/xiaonanln/gwscript/engine/binding"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Class is a loaded script class
//
// Overrides are the top-level functions of the script package named after overridable methods, such as
// StartTouch or Event_Killed. The first parameter receives the *entities.Handle of the entity, the others
// the method arguments. A trailing error result is a fault when it is not nil, so is a panic.
type Class struct {
	name       string
	def        ClassDef
	pkg        string
	rt         *Runtime
	interp     *interp.Interpreter
	generation uint64
	overrides  map[string]binding.Override
}

// Name returns the class name
func (c *Class) Name() string {
	return c.name
}

// Package returns the package name of the script source
func (c *Class) Package() string {
	return c.pkg
}

// Generation returns the number of times the class was evaluated
func (c *Class) Generation() uint64 {
	return c.generation
}

// Lookup returns the override of the method, or nil if the script does not define it
func (c *Class) Lookup(method string) binding.Override {
	if c.interp == nil {
		return nil
	}
	if ov, ok := c.overrides[method]; ok {
		return ov
	}
	var ov binding.Override
	if fn, err := c.interp.Eval(c.pkg + "." + method); err == nil && fn.IsValid() && fn.Kind() == reflect.Func {
		ov = newFuncOverride(c, method, fn)
	}
	c.overrides[method] = ov
	return ov
}

func (c *Class) source() string {
	if c.def.Path != "" {
		return c.def.Path
	}
	return "inline"
}

// eval evaluates the source in a new interpreter, the current interpreter is kept on failure
func (c *Class) eval() error {
	src, err := c.rt.readSource(c.def)
	if err != nil {
		return err
	}
	pkg := packageOf(src)
	if pkg == "" {
		return errors.Errorf("script class %s: missing package clause", c.name)
	}
	if c.def.Package != "" && c.def.Package != pkg {
		return errors.Errorf("script class %s: package %s, expected %s", c.name, pkg, c.def.Package)
	}
	if pkg == "main" {
		return errors.Errorf("script class %s: package main is not allowed", c.name)
	}

	i := c.rt.newInterpreter(c.name)
	if _, err := i.Eval(src); err != nil {
		return errors.Wrapf(err, "script class %s", c.name)
	}
	c.interp = i
	c.pkg = pkg
	c.overrides = map[string]binding.Override{}
	c.generation += 1
	return nil
}

func (c *Class) unload() {
	c.interp = nil
	c.overrides = map[string]binding.Override{}
	c.generation += 1
}

// funcOverride calls an interpreted function with converted arguments
type funcOverride struct {
	class  *Class
	method string
	fn     reflect.Value
}

func newFuncOverride(c *Class, method string, fn reflect.Value) *funcOverride {
	return &funcOverride{class: c, method: method, fn: fn}
}

func (ov *funcOverride) Call(self interface{}, args []interface{}) (interface{}, error) {
	ft := ov.fn.Type()
	if ft.IsVariadic() || ft.NumIn() != len(args)+1 {
		return nil, errors.Errorf("%s.%s takes %d parameters, called with self and %d arguments", ov.class.name, ov.method, ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, ft.NumIn())
	all := append([]interface{}{self}, args...)
	for i, arg := range all {
		rv, err := binding.ConvertArg(arg, ft.In(i))
		if err != nil {
			return nil, errors.Wrapf(err, "%s.%s parameter %d", ov.class.name, ov.method, i)
		}
		in[i] = rv
	}

	out := ov.fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			return nil, toError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if ft.Out(1) != errorType {
			return nil, errors.Errorf("%s.%s: second result must be error", ov.class.name, ov.method)
		}
		if err := toError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
	return nil, errors.Errorf("%s.%s returns %d results", ov.class.name, ov.method, len(out))
}

func toError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
