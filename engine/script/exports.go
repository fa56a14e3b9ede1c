package script

import (
	"fmt"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"github.com/xiaonanln/gwscript/engine/consts"
	"github.com/xiaonanln/gwscript/engine/entity"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// EntitiesPackage is the import path of the package scripts use to reach the world
const EntitiesPackage = "gw/entities"

// standard packages scripts may import
var allowedStdlib = []string{
	"errors/errors",
	"fmt/fmt",
	"math/math",
	"sort/sort",
	"strconv/strconv",
	"strings/strings",
	"time/time",
}

func restrictedStdlib() interp.Exports {
	restricted := interp.Exports{}
	for _, key := range allowedStdlib {
		if syms, ok := stdlib.Symbols[key]; ok {
			restricted[key] = syms
		}
	}
	return restricted
}

var baseEntitiesExports = map[string]reflect.Value{
	"Handle":         reflect.ValueOf((*entity.Handle)(nil)),
	"Vector3":        reflect.ValueOf((*entity.Vector3)(nil)),
	"Coord":          reflect.ValueOf((*entity.Coord)(nil)),
	"TakeDamageInfo": reflect.ValueOf((*entity.TakeDamageInfo)(nil)),
	"Trace":          reflect.ValueOf((*entity.Trace)(nil)),
	"CollisionEvent": reflect.ValueOf((*entity.CollisionEvent)(nil)),
	"CriteriaSet":    reflect.ValueOf((*entity.CriteriaSet)(nil)),
	"MultiDamage":    reflect.ValueOf((*entity.MultiDamage)(nil)),
	"InputData":      reflect.ValueOf((*entity.InputData)(nil)),

	"ParseVector3": reflect.ValueOf(entity.ParseVector3),

	"LIFE_ALIVE":       reflect.ValueOf(entity.LIFE_ALIVE),
	"LIFE_DYING":       reflect.ValueOf(entity.LIFE_DYING),
	"LIFE_DEAD":        reflect.ValueOf(entity.LIFE_DEAD),
	"LIFE_RESPAWNABLE": reflect.ValueOf(entity.LIFE_RESPAWNABLE),
	"LIFE_DISCARDBODY": reflect.ValueOf(entity.LIFE_DISCARDBODY),

	"DAMAGE_NO":          reflect.ValueOf(entity.DAMAGE_NO),
	"DAMAGE_EVENTS_ONLY": reflect.ValueOf(entity.DAMAGE_EVENTS_ONLY),
	"DAMAGE_YES":         reflect.ValueOf(entity.DAMAGE_YES),
	"DAMAGE_AIM":         reflect.ValueOf(entity.DAMAGE_AIM),

	"FL_CLIENT":     reflect.ValueOf(entity.FL_CLIENT),
	"FL_NPC":        reflect.ValueOf(entity.FL_NPC),
	"FL_FAKECLIENT": reflect.ValueOf(entity.FL_FAKECLIENT),

	"FL_EDICT_ALWAYS":   reflect.ValueOf(entity.FL_EDICT_ALWAYS),
	"FL_EDICT_DONTSEND": reflect.ValueOf(entity.FL_EDICT_DONTSEND),
	"FL_EDICT_PVSCHECK": reflect.ValueOf(entity.FL_EDICT_PVSCHECK),

	"TRACER_NONE":          reflect.ValueOf(entity.TRACER_NONE),
	"TRACER_LINE":          reflect.ValueOf(entity.TRACER_LINE),
	"TRACER_RAIL":          reflect.ValueOf(entity.TRACER_RAIL),
	"TRACER_BEAM":          reflect.ValueOf(entity.TRACER_BEAM),
	"TRACER_LINE_AND_WHIZ": reflect.ValueOf(entity.TRACER_LINE_AND_WHIZ),

	"TS_AT_TOP":     reflect.ValueOf(entity.TS_AT_TOP),
	"TS_AT_BOTTOM":  reflect.ValueOf(entity.TS_AT_BOTTOM),
	"TS_GOING_UP":   reflect.ValueOf(entity.TS_GOING_UP),
	"TS_GOING_DOWN": reflect.ValueOf(entity.TS_GOING_DOWN),

	"SF_TRIGGER_ALLOW_CLIENTS": reflect.ValueOf(entity.SF_TRIGGER_ALLOW_CLIENTS),
	"SF_TRIGGER_ALLOW_NPCS":    reflect.ValueOf(entity.SF_TRIGGER_ALLOW_NPCS),
	"SF_TRIGGER_ALLOW_ALL":     reflect.ValueOf(entity.SF_TRIGGER_ALLOW_ALL),

	"DMG_GENERIC": reflect.ValueOf(entity.DMG_GENERIC),
	"DMG_CRUSH":   reflect.ValueOf(entity.DMG_CRUSH),
	"DMG_BULLET":  reflect.ValueOf(entity.DMG_BULLET),
	"DMG_SLASH":   reflect.ValueOf(entity.DMG_SLASH),
	"DMG_BURN":    reflect.ValueOf(entity.DMG_BURN),
	"DMG_BLAST":   reflect.ValueOf(entity.DMG_BLAST),
}

// exportsForClass builds the gw/entities package seen by the scripts of one class
func (rt *Runtime) exportsForClass(className string) interp.Exports {
	m := map[string]reflect.Value{}
	for k, v := range baseEntitiesExports {
		m[k] = v
	}

	w := rt.world
	m["CreateEntityByName"] = reflect.ValueOf(func(name string, iForceEdictIndex ...int) *entity.Handle {
		index := consts.NO_FORCED_EDICT_INDEX
		if len(iForceEdictIndex) > 0 {
			index = iForceEdictIndex[0]
		}
		return entity.ToScript(w.CreateEntityByName(name, index))
	})
	m["DispatchSpawn"] = reflect.ValueOf(func(h *entity.Handle) int {
		return w.DispatchSpawn(h.Entity())
	})
	m["FindEntityByName"] = reflect.ValueOf(func(start *entity.Handle, name string) *entity.Handle {
		return entity.ToScript(w.FindEntityByName(start.Entity(), name))
	})
	m["FindEntityByClassname"] = reflect.ValueOf(func(start *entity.Handle, className string) *entity.Handle {
		return entity.ToScript(w.FindEntityByClassName(start.Entity(), className))
	})
	m["EntityByIndex"] = reflect.ValueOf(func(index int) *entity.Handle {
		return entity.ToScript(w.EntityByIndex(index))
	})
	m["WorldSpawn"] = reflect.ValueOf(func() *entity.Handle {
		return entity.ToScript(w.WorldSpawn())
	})
	m["Call"] = reflect.ValueOf(rt.callFunction)
	m["Log"] = reflect.ValueOf(func(format string, args ...interface{}) {
		gwlog.Infof("script %s: %s", className, fmt.Sprintf(format, args...))
	})
	m["Warn"] = reflect.ValueOf(func(format string, args ...interface{}) {
		gwlog.Warnf("script %s: %s", className, fmt.Sprintf(format, args...))
	})

	return interp.Exports{
		EntitiesPackage + "/entities": m,
	}
}

// callFunction calls a registered free function by name, parameters left out take their defaults
func (rt *Runtime) callFunction(name string, args ...interface{}) (interface{}, error) {
	in := make([]interface{}, len(args))
	for i, arg := range args {
		if h, ok := arg.(*entity.Handle); ok {
			if e := h.Entity(); e != nil {
				in[i] = e
			}
			continue
		}
		in[i] = arg
	}
	res, err := rt.ctx.CallFunction(name, in...)
	if err != nil {
		return nil, err
	}
	if e, ok := res.(entity.IEntity); ok {
		if h := entity.ToScript(e); h != nil {
			return h, nil
		}
		return nil, nil
	}
	return res, nil
}
