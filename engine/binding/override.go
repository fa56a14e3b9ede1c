package binding

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// Override is a script implementation of an overridable method
type Override interface {
	// Call runs the override with the script handle of the object and the translated arguments
	Call(self interface{}, args []interface{}) (interface{}, error)
}

// OverrideFunc adapts a function to Override
type OverrideFunc func(self interface{}, args []interface{}) (interface{}, error)

// Call calls f(self, args)
func (f OverrideFunc) Call(self interface{}, args []interface{}) (interface{}, error) {
	return f(self, args)
}

// ScriptClass is a script-side class that may override methods of a native type
type ScriptClass interface {
	Name() string
	// Generation changes whenever the class is reloaded
	Generation() uint64
	// Lookup returns the override of the method, or nil
	Lookup(method string) Override
}

// OverrideTable maps MethodID to the override of one script class for one native type
//
// Tables are built once per (type, class, generation) and shared by all bindings of the pair.
type OverrideTable struct {
	desc       *TypeDesc
	class      ScriptClass
	generation uint64
	overrides  []Override
	count      int
	stale      bool
}

// Get returns the override of the method, or nil
func (t *OverrideTable) Get(id MethodID) Override {
	if int(id) < len(t.overrides) {
		return t.overrides[id]
	}
	return nil
}

// Count returns the number of overridden methods
func (t *OverrideTable) Count() int {
	return t.count
}

// Generation returns the class generation the table was built from
func (t *OverrideTable) Generation() uint64 {
	return t.generation
}

func (ctx *Context) buildTable(desc *TypeDesc, class ScriptClass) *OverrideTable {
	t := &OverrideTable{
		desc:       desc,
		class:      class,
		generation: class.Generation(),
		overrides:  make([]Override, ctx.maxID+1),
	}
	for id, md := range desc.overridable {
		if ov := class.Lookup(md.Name); ov != nil {
			t.overrides[id] = ov
			t.count += 1
		}
	}
	gwlog.Debugf("binding: override table %s/%s generation %d: %d overrides", desc.Name, class.Name(), t.generation, t.count)
	return t
}

// table returns the cached table of desc and class, rebuilding it if the class was reloaded
func (ctx *Context) table(desc *TypeDesc, class ScriptClass) *OverrideTable {
	key := tableKey{desc, class}
	t := ctx.tables[key]
	if t == nil || t.stale || t.generation != class.Generation() {
		if t != nil {
			t.stale = true
		}
		t = ctx.buildTable(desc, class)
		ctx.tables[key] = t
	}
	return t
}

// Invalidate drops the override tables of the class, bindings rebuild them on next call
func (ctx *Context) Invalidate(class ScriptClass) {
	for key, t := range ctx.tables {
		if key.class == class {
			t.stale = true
			delete(ctx.tables, key)
		}
	}
}

// Binding associates one native object with one script class
type Binding struct {
	ctx        *Context
	desc       *TypeDesc
	class      ScriptClass
	self       interface{}
	table      *OverrideTable
	recovering []bool // indexed by MethodID, set while the native fallback of a fault runs
	unbound    bool
}

// Bind binds the native object of type desc to the script class
//
// self is what overrides receive as their first argument, usually the script handle of the object.
func (ctx *Context) Bind(desc *TypeDesc, self interface{}, class ScriptClass) (*Binding, error) {
	if desc == nil {
		return nil, errors.New("bind: type is nil")
	}
	if class == nil {
		return nil, errors.Errorf("bind %s: script class is nil", desc.Name)
	}
	if ctx.types[desc.Name] != desc {
		return nil, errors.Errorf("bind %s: type is not registered in this context", desc.Name)
	}
	b := &Binding{
		ctx:        ctx,
		desc:       desc,
		class:      class,
		self:       self,
		recovering: make([]bool, ctx.maxID+1),
	}
	b.table = ctx.table(desc, class)
	return b, nil
}

// Unbind detaches the binding, all further calls go native
func (b *Binding) Unbind() {
	b.unbound = true
	b.table = nil
}

// IsBound tells whether the binding is still attached
func (b *Binding) IsBound() bool {
	return b != nil && !b.unbound
}

// Context returns the binding context
func (b *Binding) Context() *Context {
	return b.ctx
}

// Type returns the native type of the bound object
func (b *Binding) Type() *TypeDesc {
	return b.desc
}

// Class returns the script class
func (b *Binding) Class() ScriptClass {
	return b.class
}

// Self returns what overrides receive as self
func (b *Binding) Self() interface{} {
	return b.self
}

// Table returns the current override table, rebuilding it if the class was reloaded
func (b *Binding) Table() *OverrideTable {
	if b.unbound {
		return nil
	}
	t := b.table
	if t.stale || t.generation != b.class.Generation() {
		t = b.ctx.table(b.desc, b.class)
		b.table = t
	}
	return t
}

// Overrides tells whether the script class overrides the method
func (b *Binding) Overrides(id MethodID) bool {
	return b.lookup(id) != nil
}

func (b *Binding) lookup(id MethodID) Override {
	if b == nil || b.unbound {
		return nil
	}
	return b.Table().Get(id)
}

func (b *Binding) isRecovering(id MethodID) bool {
	return int(id) < len(b.recovering) && b.recovering[id]
}

func (b *Binding) setRecovering(id MethodID, recovering bool) {
	if int(id) >= len(b.recovering) {
		grown := make([]bool, int(id)+1)
		copy(grown, b.recovering)
		b.recovering = grown
	}
	b.recovering[id] = recovering
}
