package entity

import (
	"reflect"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/binding"
	"github.com/xiaonanln/gwscript/engine/consts"
)

// Bound type names
const (
	TypeBaseEntity  = "CBaseEntity"
	TypeBaseToggle  = "CBaseToggle"
	TypeBaseTrigger = "CBaseTrigger"
)

var (
	typeBool        = reflect.TypeOf(false)
	typeInt         = reflect.TypeOf(0)
	typeFloat       = reflect.TypeOf(float32(0))
	typeString      = reflect.TypeOf("")
	typeVector      = reflect.TypeOf(Vector3{})
	typeVectorRef   = reflect.TypeOf((*Vector3)(nil))
	typeEntity      = reflect.TypeOf((*IEntity)(nil)).Elem()
	typeDamageInfo  = reflect.TypeOf((*TakeDamageInfo)(nil))
	typeTrace       = reflect.TypeOf((*Trace)(nil))
	typeCollision   = reflect.TypeOf((*CollisionEvent)(nil))
	typeCriteriaSet = reflect.TypeOf((*CriteriaSet)(nil))
	typeMultiDamage = reflect.TypeOf((*MultiDamage)(nil))
	typeInputData   = reflect.TypeOf((*InputData)(nil))
)

// RegisterBindings registers CBaseEntity, CBaseToggle and CBaseTrigger, the free functions
// CreateEntityByName and DispatchSpawn, and the native entity classes of the world
func RegisterBindings(ctx *binding.Context, w *World) error {
	entityDesc, err := ctx.RegisterType(baseEntityTypeSpec())
	if err != nil {
		return err
	}
	toggleDesc, err := ctx.RegisterType(baseToggleTypeSpec())
	if err != nil {
		return err
	}
	triggerDesc, err := ctx.RegisterType(baseTriggerTypeSpec())
	if err != nil {
		return err
	}

	if err := ctx.RegisterFunction(binding.FunctionSpec{
		Name: "CreateEntityByName",
		Params: []binding.Param{
			param("className", typeString),
			{Name: "iForceEdictIndex", Type: typeInt, Default: consts.NO_FORCED_EDICT_INDEX, HasDefault: true},
		},
		Result: typeEntity,
		Fn: func(args []interface{}) (interface{}, error) {
			e := w.CreateEntityByName(args[0].(string), args[1].(int))
			if e == nil {
				return nil, nil
			}
			return e, nil
		},
	}); err != nil {
		return err
	}
	if err := ctx.RegisterFunction(binding.FunctionSpec{
		Name:   "DispatchSpawn",
		Params: []binding.Param{param("pEntity", typeEntity)},
		Result: typeInt,
		Fn: func(args []interface{}) (interface{}, error) {
			return w.DispatchSpawn(argEntity(args[0])), nil
		},
	}); err != nil {
		return err
	}

	w.worldspawn.typeDesc = entityDesc
	classes := []struct {
		className string
		desc      *binding.TypeDesc
		new       func() IEntity
	}{
		{"info_target", entityDesc, func() IEntity { return NewBaseEntity() }},
		{"func_toggle", toggleDesc, func() IEntity { return NewBaseToggle() }},
		{"trigger", triggerDesc, func() IEntity { return NewBaseTrigger() }},
		{"trigger_multiple", triggerDesc, func() IEntity { return NewTriggerMultiple() }},
		{"trigger_once", triggerDesc, func() IEntity { return NewTriggerOnce() }},
		{"filter_activator_class", entityDesc, func() IEntity { return NewFilterActivatorClass() }},
		{"filter_activator_name", entityDesc, func() IEntity { return NewFilterActivatorName() }},
	}
	for _, c := range classes {
		if err := w.RegisterClass(c.className, c.desc, c.new); err != nil {
			return err
		}
	}
	return nil
}

func param(name string, t reflect.Type) binding.Param {
	return binding.Param{Name: name, Type: t}
}

func params(nameTypes ...interface{}) []binding.Param {
	var ps []binding.Param
	for i := 0; i+1 < len(nameTypes); i += 2 {
		ps = append(ps, param(nameTypes[i].(string), nameTypes[i+1].(reflect.Type)))
	}
	return ps
}

// entityOf returns the entity a bound method is called on
func entityOf(self interface{}) (IEntity, error) {
	switch s := self.(type) {
	case *Handle:
		if e := s.Entity(); e != nil {
			return e, nil
		}
		return nil, errors.Errorf("invalid entity handle %s", s)
	case IEntity:
		if !isNilEntity(s) {
			return s, nil
		}
	}
	return nil, errors.Errorf("%T is not an entity", self)
}

func argEntity(v interface{}) IEntity {
	switch a := v.(type) {
	case IEntity:
		if !isNilEntity(a) {
			return a
		}
	case *Handle:
		return a.Entity()
	}
	return nil
}

func argVectorRef(v interface{}) *Vector3 {
	p, _ := v.(*Vector3)
	return p
}

func resultEntity(e IEntity) interface{} {
	if isNilEntity(e) {
		return nil
	}
	return e
}

// overridable declares a virtual method: Invoke calls it on the entity, which reaches the script
// override when one is bound; Default calls the native implementation directly
func overridable(id binding.MethodID, name string, ps []binding.Param, result reflect.Type, call func(e IEntity, args []interface{}) interface{}) binding.MethodSpec {
	return binding.MethodSpec{
		Name:   name,
		ID:     id,
		Params: ps,
		Result: result,
		Invoke: func(self interface{}, args []interface{}) (interface{}, error) {
			e, err := entityOf(self)
			if err != nil {
				return nil, err
			}
			return call(e, args), nil
		},
		Default: func(self interface{}, args []interface{}) (interface{}, error) {
			e, err := entityOf(self)
			if err != nil {
				return nil, err
			}
			return call(e.Base().Native(), args), nil
		},
	}
}

// method declares a plain native method
func method(name string, ps []binding.Param, result reflect.Type, call func(e IEntity, args []interface{}) interface{}) binding.MethodSpec {
	return binding.MethodSpec{
		Name:   name,
		Params: ps,
		Result: result,
		Invoke: func(self interface{}, args []interface{}) (interface{}, error) {
			e, err := entityOf(self)
			if err != nil {
				return nil, err
			}
			return call(e, args), nil
		},
	}
}

// triggerMethod declares a plain native method of CBaseTrigger
func triggerMethod(name string, ps []binding.Param, result reflect.Type, call func(t *BaseTrigger, args []interface{}) interface{}) binding.MethodSpec {
	return binding.MethodSpec{
		Name:   name,
		Params: ps,
		Result: result,
		Invoke: func(self interface{}, args []interface{}) (interface{}, error) {
			e, err := entityOf(self)
			if err != nil {
				return nil, err
			}
			t := AsTrigger(e)
			if t == nil {
				return nil, errors.Errorf("%s is not a trigger", e.Base())
			}
			return call(t, args), nil
		},
	}
}

func keyValueMethods() []binding.MethodSpec {
	return []binding.MethodSpec{
		overridable(MethodKeyValue, "KeyValue", params("szKeyName", typeString, "szValue", typeString), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.KeyValue(args[0].(string), args[1].(string))
		}),
		overridable(MethodKeyValueFloat, "KeyValue", params("szKeyName", typeString, "flValue", typeFloat), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.KeyValueFloat(args[0].(string), args[1].(float32))
		}),
		overridable(MethodKeyValueVector, "KeyValue", params("szKeyName", typeString, "vec", typeVector), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.KeyValueVector(args[0].(string), args[1].(Vector3))
		}),
	}
}

func baseEntityTypeSpec() binding.TypeSpec {
	methods := []binding.MethodSpec{
		overridable(MethodSpawn, "Spawn", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.Spawn()
			return nil
		}),
		overridable(MethodPrecache, "Precache", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.Precache()
			return nil
		}),
		overridable(MethodActivate, "Activate", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.Activate()
			return nil
		}),
		overridable(MethodPostClientActive, "PostClientActive", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.PostClientActive()
			return nil
		}),
		overridable(MethodUpdateOnRemove, "UpdateOnRemove", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.UpdateOnRemove()
			return nil
		}),
		overridable(MethodOnRestore, "OnRestore", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.OnRestore()
			return nil
		}),
		overridable(MethodStopLoopingSounds, "StopLoopingSounds", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.StopLoopingSounds()
			return nil
		}),
		overridable(MethodPostConstructor, "PostConstructor", params("szClassname", typeString), nil, func(e IEntity, args []interface{}) interface{} {
			e.PostConstructor(args[0].(string))
			return nil
		}),
	}
	methods = append(methods, keyValueMethods()...)
	methods = append(methods,
		overridable(MethodKeyValueVectorRef, "KeyValue", params("szKeyName", typeString, "vecValue", typeVectorRef), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.KeyValueVectorRef(args[0].(string), argVectorRef(args[1]))
		}),
		overridable(MethodOnTakeDamage, "OnTakeDamage", params("info", typeDamageInfo), typeInt, func(e IEntity, args []interface{}) interface{} {
			return e.OnTakeDamage(args[0].(*TakeDamageInfo))
		}),
		overridable(MethodPassesDamageFilter, "PassesDamageFilter", params("info", typeDamageInfo), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.PassesDamageFilter(args[0].(*TakeDamageInfo))
		}),
		overridable(MethodEventKilled, "Event_Killed", params("info", typeDamageInfo), nil, func(e IEntity, args []interface{}) interface{} {
			e.EventKilled(args[0].(*TakeDamageInfo))
			return nil
		}),
		overridable(MethodDeathNotice, "DeathNotice", params("pVictim", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.DeathNotice(argEntity(args[0]))
			return nil
		}),
		overridable(MethodCreateVPhysics, "CreateVPhysics", nil, typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.CreateVPhysics()
		}),
		overridable(MethodVPhysicsCollision, "VPhysicsCollision", params("index", typeInt, "pEvent", typeCollision), nil, func(e IEntity, args []interface{}) interface{} {
			e.VPhysicsCollision(args[0].(int), args[1].(*CollisionEvent))
			return nil
		}),
		overridable(MethodComputeWorldSpaceSurroundingBox, "ComputeWorldSpaceSurroundingBox", params("pWorldMins", typeVectorRef, "pWorldMaxs", typeVectorRef), nil, func(e IEntity, args []interface{}) interface{} {
			e.ComputeWorldSpaceSurroundingBox(argVectorRef(args[0]), argVectorRef(args[1]))
			return nil
		}),
		overridable(MethodDoImpactEffect, "DoImpactEffect", params("tr", typeTrace, "nDamageType", typeInt), nil, func(e IEntity, args []interface{}) interface{} {
			e.DoImpactEffect(args[0].(*Trace), args[1].(int))
			return nil
		}),
		overridable(MethodMakeTracer, "MakeTracer", params("vecTracerSrc", typeVector, "tr", typeTrace, "iTracerType", typeInt), nil, func(e IEntity, args []interface{}) interface{} {
			e.MakeTracer(args[0].(Vector3), args[1].(*Trace), args[2].(int))
			return nil
		}),
		overridable(MethodGetTracerType, "GetTracerType", nil, typeString, func(e IEntity, args []interface{}) interface{} {
			return e.GetTracerType()
		}),
		overridable(MethodUpdateTransmitState, "UpdateTransmitState", nil, typeInt, func(e IEntity, args []interface{}) interface{} {
			return e.UpdateTransmitState()
		}),
		overridable(MethodDrawDebugGeometryOverlays, "DrawDebugGeometryOverlays", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.DrawDebugGeometryOverlays()
			return nil
		}),
		overridable(MethodDrawDebugTextOverlays, "DrawDebugTextOverlays", nil, typeInt, func(e IEntity, args []interface{}) interface{} {
			return e.DrawDebugTextOverlays()
		}),
		overridable(MethodModifyOrAppendCriteria, "ModifyOrAppendCriteria", params("set", typeCriteriaSet), nil, func(e IEntity, args []interface{}) interface{} {
			e.ModifyOrAppendCriteria(args[0].(*CriteriaSet))
			return nil
		}),
		overridable(MethodStartTouch, "StartTouch", params("pOther", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.StartTouch(argEntity(args[0]))
			return nil
		}),
		overridable(MethodEndTouch, "EndTouch", params("pOther", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.EndTouch(argEntity(args[0]))
			return nil
		}),

		binding.MethodSpec{
			Name: "TraceAttack",
			Params: []binding.Param{
				param("info", typeDamageInfo),
				param("vecDir", typeVector),
				param("ptr", typeTrace),
				{Name: "pAccumulator", Type: typeMultiDamage, Default: nil, HasDefault: true},
			},
			Invoke: func(self interface{}, args []interface{}) (interface{}, error) {
				e, err := entityOf(self)
				if err != nil {
					return nil, err
				}
				accumulator, _ := args[3].(*MultiDamage)
				e.Base().TraceAttack(args[0].(*TakeDamageInfo), args[1].(Vector3), args[2].(*Trace), accumulator)
				return nil, nil
			},
		},
		method("TakeDamage", params("info", typeDamageInfo), typeInt, func(e IEntity, args []interface{}) interface{} {
			return e.Base().TakeDamage(args[0].(*TakeDamageInfo))
		}),
		method("AcceptInput", params("szInputName", typeString, "pActivator", typeEntity, "pCaller", typeEntity, "value", typeString), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.Base().AcceptInput(args[0].(string), argEntity(args[1]), argEntity(args[2]), args[3].(string))
		}),
		method("FireOutput", params("szOutputName", typeString, "pActivator", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.Base().FireOutput(args[0].(string), argEntity(args[1]), e)
			return nil
		}),
		method("Remove", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.Base().Remove()
			return nil
		}),
		method("GetClassname", nil, typeString, func(e IEntity, args []interface{}) interface{} {
			return e.Base().ClassName()
		}),
		method("GetEntityName", nil, typeString, func(e IEntity, args []interface{}) interface{} {
			return e.Base().TargetName()
		}),
		method("entindex", nil, typeInt, func(e IEntity, args []interface{}) interface{} {
			return e.Base().Index()
		}),
		method("GetAbsOrigin", nil, typeVector, func(e IEntity, args []interface{}) interface{} {
			return e.Base().Origin()
		}),
		method("SetAbsOrigin", params("vec", typeVector), nil, func(e IEntity, args []interface{}) interface{} {
			e.Base().SetOrigin(args[0].(Vector3))
			return nil
		}),
		method("SetSize", params("mins", typeVector, "maxs", typeVector), nil, func(e IEntity, args []interface{}) interface{} {
			e.Base().SetSize(args[0].(Vector3), args[1].(Vector3))
			return nil
		}),
		method("IsAlive", nil, typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.Base().IsAlive()
		}),
		method("HasSpawnFlags", params("flags", typeInt), typeBool, func(e IEntity, args []interface{}) interface{} {
			return e.Base().HasSpawnFlags(args[0].(int))
		}),
		method("GetOwnerEntity", nil, typeEntity, func(e IEntity, args []interface{}) interface{} {
			return resultEntity(e.Base().Owner())
		}),
		method("SetOwnerEntity", params("pOwner", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.Base().SetOwner(argEntity(args[0]))
			return nil
		}),
		method("EntityText", params("text_offset", typeInt, "text", typeString), nil, func(e IEntity, args []interface{}) interface{} {
			e.Base().EntityText(args[0].(int), args[1].(string))
			return nil
		}),
	)

	return binding.TypeSpec{
		Name:          TypeBaseEntity,
		Constructible: true,
		New:           func() interface{} { return NewBaseEntity() },
		Methods:       methods,
		Properties: []binding.PropertySpec{
			baseProperty("lifestate", typeInt, func(e *BaseEntity) interface{} { return e.LifeState() }, func(e *BaseEntity, v interface{}) error {
				if !e.SetLifeState(v.(int)) {
					return errors.Errorf("lifestate %d out of range [%d, %d]", v, LIFE_ALIVE, LIFE_DISCARDBODY)
				}
				return nil
			}),
			baseProperty("takedamage", typeInt, func(e *BaseEntity) interface{} { return e.TakeDamageMode() }, func(e *BaseEntity, v interface{}) error {
				if !e.SetTakeDamageMode(v.(int)) {
					return errors.Errorf("takedamage %d out of range [%d, %d]", v, DAMAGE_NO, DAMAGE_AIM)
				}
				return nil
			}),
			baseProperty("health", typeInt, func(e *BaseEntity) interface{} { return e.Health() }, func(e *BaseEntity, v interface{}) error {
				e.SetHealth(v.(int))
				return nil
			}),
			baseProperty("targetname", typeString, func(e *BaseEntity) interface{} { return e.TargetName() }, func(e *BaseEntity, v interface{}) error {
				e.SetTargetName(v.(string))
				return nil
			}),
		},
	}
}

// baseProperty proxies a BaseEntity field, stale handles are errors
func baseProperty(name string, t reflect.Type, get func(e *BaseEntity) interface{}, set func(e *BaseEntity, v interface{}) error) binding.PropertySpec {
	return binding.PropertySpec{
		Name: name,
		Type: t,
		Get: func(self interface{}) (interface{}, error) {
			e, err := entityOf(self)
			if err != nil {
				return nil, err
			}
			return get(e.Base()), nil
		},
		Set: func(self interface{}, v interface{}) error {
			e, err := entityOf(self)
			if err != nil {
				return err
			}
			return set(e.Base(), v)
		},
	}
}

func baseToggleTypeSpec() binding.TypeSpec {
	methods := keyValueMethods()
	methods = append(methods,
		method("LinearMove", params("vecDest", typeVector, "flSpeed", typeFloat), nil, func(e IEntity, args []interface{}) interface{} {
			if t := AsToggle(e); t != nil {
				t.LinearMove(args[0].(Vector3), args[1].(float32))
			}
			return nil
		}),
		method("GetToggleState", nil, typeInt, func(e IEntity, args []interface{}) interface{} {
			if t := AsToggle(e); t != nil {
				return t.ToggleState()
			}
			return TS_AT_BOTTOM
		}),
	)
	return binding.TypeSpec{
		Name:          TypeBaseToggle,
		Parent:        TypeBaseEntity,
		Constructible: true,
		New:           func() interface{} { return NewBaseToggle() },
		Methods:       methods,
	}
}

func baseTriggerTypeSpec() binding.TypeSpec {
	voidTrigger := func(name string, f func(t *BaseTrigger)) binding.MethodSpec {
		return triggerMethod(name, nil, nil, func(t *BaseTrigger, args []interface{}) interface{} {
			f(t)
			return nil
		})
	}
	input := func(name string, f func(t *BaseTrigger, data *InputData)) binding.MethodSpec {
		return triggerMethod(name, params("inputdata", typeInputData), nil, func(t *BaseTrigger, args []interface{}) interface{} {
			data, _ := args[0].(*InputData)
			if data == nil {
				data = &InputData{}
			}
			f(t, data)
			return nil
		})
	}

	methods := []binding.MethodSpec{
		overridable(MethodActivate, "Activate", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.Activate()
			return nil
		}),
		overridable(MethodDrawDebugTextOverlays, "DrawDebugTextOverlays", nil, typeInt, func(e IEntity, args []interface{}) interface{} {
			return e.DrawDebugTextOverlays()
		}),
		overridable(MethodEndTouch, "EndTouch", params("pOther", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.EndTouch(argEntity(args[0]))
			return nil
		}),
		overridable(MethodPostClientActive, "PostClientActive", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.PostClientActive()
			return nil
		}),
		overridable(MethodSpawn, "Spawn", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.Spawn()
			return nil
		}),
		overridable(MethodStartTouch, "StartTouch", params("pOther", typeEntity), nil, func(e IEntity, args []interface{}) interface{} {
			e.StartTouch(argEntity(args[0]))
			return nil
		}),
		overridable(MethodUpdateOnRemove, "UpdateOnRemove", nil, nil, func(e IEntity, args []interface{}) interface{} {
			e.UpdateOnRemove()
			return nil
		}),

		voidTrigger("Disable", (*BaseTrigger).Disable),
		voidTrigger("Enable", (*BaseTrigger).Enable),
		voidTrigger("InitTrigger", (*BaseTrigger).InitTrigger),
		voidTrigger("TouchTest", (*BaseTrigger).TouchTest),
		triggerMethod("GetTouchedEntityOfType", params("sClassName", typeString), typeEntity, func(t *BaseTrigger, args []interface{}) interface{} {
			return resultEntity(t.GetTouchedEntityOfType(args[0].(string)))
		}),
		triggerMethod("IsTouching", params("pOther", typeEntity), typeBool, func(t *BaseTrigger, args []interface{}) interface{} {
			return t.IsTouching(argEntity(args[0]))
		}),
		triggerMethod("PassesTriggerFilters", params("pOther", typeEntity), typeBool, func(t *BaseTrigger, args []interface{}) interface{} {
			return t.PassesTriggerFilters(argEntity(args[0]))
		}),
		triggerMethod("PointIsWithin", params("vecPoint", typeVector), typeBool, func(t *BaseTrigger, args []interface{}) interface{} {
			return t.PointIsWithin(args[0].(Vector3))
		}),
		triggerMethod("UsesFilter", nil, typeBool, func(t *BaseTrigger, args []interface{}) interface{} {
			return t.UsesFilter()
		}),
		triggerMethod("TraceAttack", params("pAttacker", typeEntity, "flDamage", typeFloat, "vecDir", typeVector, "ptr", typeTrace, "bitsDamageType", typeInt), nil, func(t *BaseTrigger, args []interface{}) interface{} {
			t.TraceAttackDamage(argEntity(args[0]), args[1].(float32), args[2].(Vector3), args[3].(*Trace), args[4].(int))
			return nil
		}),

		input("InputDisable", func(t *BaseTrigger, data *InputData) { t.Disable() }),
		input("InputEnable", func(t *BaseTrigger, data *InputData) { t.Enable() }),
		input("InputToggle", func(t *BaseTrigger, data *InputData) { t.AcceptInput("Toggle", data.Activator, data.Caller, data.Value) }),
		input("InputStartTouch", func(t *BaseTrigger, data *InputData) { t.AcceptInput("StartTouch", data.Activator, data.Caller, data.Value) }),
		input("InputEndTouch", func(t *BaseTrigger, data *InputData) { t.AcceptInput("EndTouch", data.Activator, data.Caller, data.Value) }),
		input("InputTouchTest", func(t *BaseTrigger, data *InputData) { t.TouchTest() }),
	}
	return binding.TypeSpec{
		Name:          TypeBaseTrigger,
		Parent:        TypeBaseToggle,
		Constructible: true,
		New:           func() interface{} { return NewBaseTrigger() },
		Methods:       methods,
	}
}
