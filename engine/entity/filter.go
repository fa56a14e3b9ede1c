package entity

import (
	"strings"
)

// EntityFilter is implemented by filter entities, referenced by triggers (filtername) and damage filters (damagefilter)
type EntityFilter interface {
	PassesFilter(caller IEntity, other IEntity) bool
}

// AsFilter returns the filter implemented by the entity, nil if it is not a filter
func AsFilter(e IEntity) EntityFilter {
	if isNilEntity(e) {
		return nil
	}
	if f, ok := e.Base().native.(EntityFilter); ok {
		return f
	}
	return nil
}

// BaseFilter is CBaseFilter, the base of filter_* entities
type BaseFilter struct {
	BaseEntity

	negated bool
	passes  func(caller IEntity, other IEntity) bool
}

func (f *BaseFilter) setupFilter(impl IEntity, passes func(caller IEntity, other IEntity) bool) {
	f.setupBase(impl)
	f.passes = passes
	f.DeclareOutput("OnPass")
	f.DeclareOutput("OnFail")
	f.DeclareInput("TestActivator", f.inputTestActivator)
}

// Negated tells whether the filter result is inverted
func (f *BaseFilter) Negated() bool {
	return f.negated
}

// KeyValue handles Negated
func (f *BaseFilter) KeyValue(key string, value string) bool {
	if strings.EqualFold(key, "negated") {
		n, ok := atoi(value)
		f.negated = ok && n != 0
		return ok
	}
	return f.BaseEntity.KeyValue(key, value)
}

// PassesFilter tells whether other passes the filter
func (f *BaseFilter) PassesFilter(caller IEntity, other IEntity) bool {
	result := f.passes(caller, other)
	if f.negated {
		return !result
	}
	return result
}

// PassesDamageFilter tests the attacker of the damage
func (f *BaseFilter) PassesDamageFilter(info *TakeDamageInfo) bool {
	if info == nil {
		return false
	}
	return f.PassesFilter(nil, info.Attacker)
}

func (f *BaseFilter) inputTestActivator(data *InputData) {
	if f.PassesFilter(f.I, data.Activator) {
		f.FireOutput("OnPass", data.Activator, f.I)
	} else {
		f.FireOutput("OnFail", data.Activator, f.I)
	}
}

// FilterActivatorClass is filter_activator_class: passes entities of the class named by filterclass
type FilterActivatorClass struct {
	BaseFilter
	filterClass string
}

// NewFilterActivatorClass creates a filter_activator_class
func NewFilterActivatorClass() *FilterActivatorClass {
	f := &FilterActivatorClass{}
	f.setupFilter(f, func(caller IEntity, other IEntity) bool {
		return !isNilEntity(other) && namesMatch(f.filterClass, other.Base().className)
	})
	return f
}

// KeyValue handles filterclass
func (f *FilterActivatorClass) KeyValue(key string, value string) bool {
	if strings.EqualFold(key, "filterclass") {
		f.filterClass = value
		return true
	}
	return f.BaseFilter.KeyValue(key, value)
}

// FilterActivatorName is filter_activator_name: passes entities whose name matches filtername
type FilterActivatorName struct {
	BaseFilter
	filterName string
}

// NewFilterActivatorName creates a filter_activator_name
func NewFilterActivatorName() *FilterActivatorName {
	f := &FilterActivatorName{}
	f.setupFilter(f, func(caller IEntity, other IEntity) bool {
		return !isNilEntity(other) && namesMatch(f.filterName, other.Base().targetName)
	})
	return f
}

// KeyValue handles filtername
func (f *FilterActivatorName) KeyValue(key string, value string) bool {
	if strings.EqualFold(key, "filtername") {
		f.filterName = value
		return true
	}
	return f.BaseFilter.KeyValue(key, value)
}
