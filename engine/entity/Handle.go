package entity

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

// Handle is the script-side reference to an entity
//
// A nil *Handle is the "no entity" value scripts see for nil entities. A handle stays safe to use after
// its entity is removed: IsValid turns false and Entity returns nil.
type Handle struct {
	ent    *BaseEntity
	serial int
}

// ToScript converts an entity to its script handle, nil entities convert to nil
func ToScript(e IEntity) *Handle {
	if isNilEntity(e) {
		return nil
	}
	return e.Base().Handle()
}

// FromScript converts a script handle back to the entity, nil or stale handles convert to nil
func FromScript(h *Handle) IEntity {
	return h.Entity()
}

func isNilEntity(e IEntity) bool {
	if e == nil {
		return true
	}
	rv := reflect.ValueOf(e)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// IsValid tells whether the entity still exists
func (h *Handle) IsValid() bool {
	if h == nil || h.ent == nil {
		return false
	}
	e := h.ent
	if e.world == nil {
		return !e.markedForDeletion
	}
	return e.world.edictEntity(e.index, h.serial) == e
}

// Entity returns the entity, nil if the handle is nil or stale
func (h *Handle) Entity() IEntity {
	if !h.IsValid() {
		return nil
	}
	return h.ent.I
}

// Index returns the edict index, -1 for nil handles
func (h *Handle) Index() int {
	if h == nil || h.ent == nil {
		return -1
	}
	return h.ent.index
}

// Serial returns the edict serial number the handle was taken at
func (h *Handle) Serial() int {
	if h == nil {
		return 0
	}
	return h.serial
}

// ClassName returns the class name, empty for invalid handles
func (h *Handle) ClassName() string {
	if !h.IsValid() {
		return ""
	}
	return h.ent.className
}

// TargetName returns the target name, empty for invalid handles
func (h *Handle) TargetName() string {
	if !h.IsValid() {
		return ""
	}
	return h.ent.targetName
}

// Origin returns the entity position
func (h *Handle) Origin() Vector3 {
	if !h.IsValid() {
		return Vector3{}
	}
	return h.ent.origin
}

// SetOrigin moves the entity
func (h *Handle) SetOrigin(origin Vector3) {
	if h.IsValid() {
		h.ent.SetOrigin(origin)
	}
}

// Health returns the entity health
func (h *Handle) Health() int {
	if !h.IsValid() {
		return 0
	}
	return h.ent.health
}

// HasSpawnFlags tells whether any of flags is set
func (h *Handle) HasSpawnFlags(flags int) bool {
	return h.IsValid() && h.ent.HasSpawnFlags(flags)
}

// Call calls a bound method by name; script overrides apply
func (h *Handle) Call(method string, args ...interface{}) (interface{}, error) {
	e, err := h.boundEntity()
	if err != nil {
		return nil, err
	}
	res, err := e.world.ctx.CallMethod(e.typeDesc, e.I, method, fromScriptArgs(args)...)
	return toScriptValue(res), err
}

// CallDefault calls the native implementation of a bound method by name, bypassing script overrides
func (h *Handle) CallDefault(method string, args ...interface{}) (interface{}, error) {
	e, err := h.boundEntity()
	if err != nil {
		return nil, err
	}
	res, err := e.world.ctx.CallDefault(e.typeDesc, e.I, method, fromScriptArgs(args)...)
	return toScriptValue(res), err
}

// Get reads a bound property
func (h *Handle) Get(property string) (interface{}, error) {
	e, err := h.boundEntity()
	if err != nil {
		return nil, err
	}
	return e.world.ctx.GetProperty(e.typeDesc, e.I, property)
}

// Set writes a bound property
func (h *Handle) Set(property string, value interface{}) error {
	e, err := h.boundEntity()
	if err != nil {
		return err
	}
	return e.world.ctx.SetProperty(e.typeDesc, e.I, property, value)
}

// Input sends an input to the entity
func (h *Handle) Input(input string, value string) bool {
	if !h.IsValid() {
		return false
	}
	return h.ent.AcceptInput(input, nil, nil, value)
}

// FireOutput fires an output of the entity
func (h *Handle) FireOutput(output string, activator *Handle) {
	if h.IsValid() {
		h.ent.FireOutput(output, activator.Entity(), h.ent.I)
	}
}

// KeyValue applies a keyvalue through the virtual KeyValue
func (h *Handle) KeyValue(key string, value string) bool {
	if !h.IsValid() {
		return false
	}
	return h.ent.I.KeyValue(key, value)
}

// Remove removes the entity
func (h *Handle) Remove() {
	if h.IsValid() {
		h.ent.Remove()
	}
}

func (h *Handle) String() string {
	if h == nil || h.ent == nil {
		return "<nil>"
	}
	if !h.IsValid() {
		return fmt.Sprintf("%s<%d, removed>", h.ent.className, h.ent.index)
	}
	return h.ent.String()
}

func (h *Handle) boundEntity() (*BaseEntity, error) {
	if !h.IsValid() {
		return nil, errors.Errorf("invalid entity handle %s", h)
	}
	e := h.ent
	if e.world == nil || e.typeDesc == nil {
		return nil, errors.Errorf("%s is not bound", e)
	}
	return e, nil
}

// fromScriptArgs turns handles back into entities for native calls
func fromScriptArgs(args []interface{}) []interface{} {
	converted := make([]interface{}, len(args))
	for i, arg := range args {
		if h, ok := arg.(*Handle); ok {
			if e := h.Entity(); e != nil {
				converted[i] = e
			}
			continue
		}
		converted[i] = arg
	}
	return converted
}

// toScriptValue turns entities into handles for scripts
func toScriptValue(v interface{}) interface{} {
	if e, ok := v.(IEntity); ok {
		if h := ToScript(e); h != nil {
			return h
		}
		return nil
	}
	return v
}
