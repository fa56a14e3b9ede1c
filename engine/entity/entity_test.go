package entity

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/binding"
	"github.com/xiaonanln/gwscript/engine/consts"
)

type testClass struct {
	name       string
	generation uint64
	overrides  map[string]binding.Override
}

func newTestClass(name string) *testClass {
	return &testClass{name: name, overrides: map[string]binding.Override{}}
}

func (c *testClass) Name() string       { return c.name }
func (c *testClass) Generation() uint64 { return c.generation }
func (c *testClass) Lookup(method string) binding.Override {
	return c.overrides[method]
}

func (c *testClass) override(method string, f func(self *Handle, args []interface{}) (interface{}, error)) {
	c.overrides[method] = binding.OverrideFunc(func(self interface{}, args []interface{}) (interface{}, error) {
		return f(self.(*Handle), args)
	})
	c.generation += 1
}

type recordEffects struct {
	texts []string
	boxes int
}

func (r *recordEffects) ImpactEffect(e IEntity, tr *Trace, damageType int) {}
func (r *recordEffects) Tracer(e IEntity, start Vector3, end Vector3, tracerName string, tracerType int) {
}
func (r *recordEffects) DebugBox(e IEntity, mins Vector3, maxs Vector3) { r.boxes += 1 }
func (r *recordEffects) DebugText(e IEntity, line int, text string)     { r.texts = append(r.texts, text) }

type testEnv struct {
	ctx     *binding.Context
	world   *World
	faults  []*binding.ScriptFault
	effects *recordEffects
}

func newTestEnv(t *testing.T, maxEdicts int) *testEnv {
	env := &testEnv{effects: &recordEffects{}}
	env.ctx = binding.NewContext(binding.Options{
		Diagnostics: binding.DiagnosticsFunc(func(fault *binding.ScriptFault) {
			env.faults = append(env.faults, fault)
		}),
	})
	env.world = NewWorld(env.ctx, WorldOptions{MaxEdicts: maxEdicts, Effects: env.effects})
	if err := RegisterBindings(env.ctx, env.world); err != nil {
		t.Fatalf("RegisterBindings: %v", err)
	}
	return env
}

func (env *testEnv) spawn(t *testing.T, className string, keyvalues ...string) IEntity {
	e := env.world.CreateEntityByName(className, consts.NO_FORCED_EDICT_INDEX)
	if e == nil {
		t.Fatalf("create %s failed", className)
	}
	for i := 0; i+1 < len(keyvalues); i += 2 {
		if !e.KeyValue(keyvalues[i], keyvalues[i+1]) {
			t.Fatalf("%s: keyvalue %s=%s rejected", className, keyvalues[i], keyvalues[i+1])
		}
	}
	assert.Equal(t, 0, env.world.DispatchSpawn(e))
	return e
}

func TestCreateEntityByName(t *testing.T) {
	env := newTestEnv(t, 16)
	w := env.world

	e := w.CreateEntityByName("trigger_once", -1)
	assert.T(t, e != nil)
	assert.Equal(t, 1, e.Base().Index())
	assert.Equal(t, "trigger_once", e.Base().ClassName())
	assert.T(t, AsTrigger(e) != nil)
	assert.T(t, AsToggle(e) != nil)
	assert.Equal(t, TypeBaseTrigger, e.Base().TypeDesc().Name)

	forced := w.CreateEntityByName("info_target", 5)
	assert.T(t, forced != nil)
	assert.Equal(t, 5, forced.Base().Index())
	assert.T(t, AsTrigger(forced) == nil)

	assert.T(t, w.CreateEntityByName("info_target", 5) == nil)
	assert.T(t, w.CreateEntityByName("info_target", consts.WORLD_EDICT_INDEX) == nil)
	assert.T(t, w.CreateEntityByName("info_target", 16) == nil)
	assert.T(t, w.CreateEntityByName("info_target", -2) == nil)
	assert.T(t, w.CreateEntityByName("no_such_class", -1) == nil)
	assert.Equal(t, 2, w.NumEntities())
	assert.Equal(t, "worldspawn", w.WorldSpawn().Base().ClassName())
}

func TestEdictReuseLowestFirst(t *testing.T) {
	env := newTestEnv(t, 16)
	w := env.world

	e1 := w.CreateEntityByName("info_target", -1)
	e2 := w.CreateEntityByName("info_target", -1)
	e3 := w.CreateEntityByName("info_target", -1)
	assert.Equal(t, []int{1, 2, 3}, []int{e1.Base().Index(), e2.Base().Index(), e3.Base().Index()})

	h2 := ToScript(e2)
	e2.Base().Remove()
	e1.Base().Remove()
	assert.T(t, h2.IsValid())
	w.RunFrame()
	assert.T(t, !h2.IsValid())
	assert.T(t, h2.Entity() == nil)
	assert.Equal(t, 1, w.NumEntities())

	n1 := w.CreateEntityByName("info_target", -1)
	n2 := w.CreateEntityByName("info_target", -1)
	n3 := w.CreateEntityByName("info_target", -1)
	assert.Equal(t, []int{1, 2, 4}, []int{n1.Base().Index(), n2.Base().Index(), n3.Base().Index()})
	assert.T(t, n2.Base().Serial() != h2.Serial())
	assert.T(t, !h2.IsValid())
	assert.T(t, ToScript(n2).IsValid())
}

func TestEdictsExhausted(t *testing.T) {
	env := newTestEnv(t, 4)
	for i := 0; i < 3; i++ {
		assert.T(t, env.world.CreateEntityByName("info_target", -1) != nil)
	}
	assert.T(t, env.world.CreateEntityByName("info_target", -1) == nil)
}

func TestDispatchSpawn(t *testing.T) {
	env := newTestEnv(t, 16)
	w := env.world

	assert.Equal(t, 0, w.DispatchSpawn(nil))
	var nilTrigger *BaseTrigger
	assert.Equal(t, 0, w.DispatchSpawn(nilTrigger))

	e := w.CreateEntityByName("trigger", -1)
	assert.Equal(t, 0, w.DispatchSpawn(e))
	assert.T(t, e.Base().IsSpawned())
	assert.T(t, e.Base().IsPrecached())
	assert.T(t, e.Base().IsTrigger())
	assert.T(t, e.Base().HasVPhysics())

	suicidal := newTestClass("suicidal")
	suicidal.override("Spawn", func(self *Handle, args []interface{}) (interface{}, error) {
		self.Remove()
		return nil, nil
	})
	assert.Equal(t, nil, w.RegisterScriptedClass("trigger_suicidal", TypeBaseTrigger, suicidal))
	s := w.CreateEntityByName("trigger_suicidal", -1)
	assert.Equal(t, -1, w.DispatchSpawn(s))
	assert.T(t, !s.Base().IsTrigger())
	assert.Equal(t, -1, w.DispatchSpawn(s))
}

func TestFaultingSpawnFallsBackEveryTime(t *testing.T) {
	env := newTestEnv(t, 128)
	w := env.world

	faulty := newTestClass("faulty")
	scriptCalls := 0
	faulty.override("Spawn", func(self *Handle, args []interface{}) (interface{}, error) {
		scriptCalls += 1
		return nil, errors.New("spawn failed")
	})
	assert.Equal(t, nil, w.RegisterScriptedClass("trigger_faulty", "trigger_once", faulty))

	for i := 0; i < 100; i++ {
		e := w.CreateEntityByName("trigger_faulty", -1)
		assert.T(t, e != nil)
		assert.Equal(t, 0, w.DispatchSpawn(e))
		assert.T(t, e.Base().IsTrigger())
		assert.Equal(t, float32(-1), AsToggle(e).Wait())
	}
	assert.Equal(t, 100, scriptCalls)
	assert.Equal(t, 100, len(env.faults))
	assert.Equal(t, uint64(100), env.ctx.FaultsCount())
	assert.Equal(t, "Spawn", env.faults[0].Method)
	assert.Equal(t, "faulty", env.faults[0].Class)
	assert.Equal(t, TypeBaseTrigger, env.faults[0].Type)
}

func TestUnboundClassIsTransparent(t *testing.T) {
	env := newTestEnv(t, 16)
	w := env.world
	assert.Equal(t, nil, w.RegisterScriptedClass("trigger_plain", "trigger_multiple", newTestClass("plain")))

	native := env.spawn(t, "trigger_multiple", "targetname", "a", "wait", "2")
	scripted := env.spawn(t, "trigger_plain", "targetname", "a", "wait", "2")

	_, isScripted := scripted.(*scriptedEntity)
	assert.T(t, isScripted)
	assert.Equal(t, native.Base().TargetName(), scripted.Base().TargetName())
	assert.Equal(t, AsToggle(native).Wait(), AsToggle(scripted).Wait())
	assert.Equal(t, native.UpdateTransmitState(), scripted.UpdateTransmitState())
	assert.Equal(t, native.GetTracerType(), scripted.GetTracerType())
	assert.Equal(t, 0, len(env.faults))
}

func TestKeyValueOverloads(t *testing.T) {
	env := newTestEnv(t, 16)
	e := env.world.CreateEntityByName("func_toggle", -1)
	toggle := AsToggle(e)

	assert.T(t, e.KeyValueFloat("speed", 100))
	assert.Equal(t, float32(100), toggle.Speed())
	assert.T(t, e.KeyValue("lip", "4"))
	assert.Equal(t, float32(4), toggle.Lip())
	assert.T(t, e.KeyValueVector("movedir", Vector3{1, 0, 0}))
	assert.Equal(t, Vector3{1, 0, 0}, toggle.MoveDir())
	assert.T(t, e.KeyValueVector("origin", Vector3{1, 2, 3}))
	assert.Equal(t, Vector3{1, 2, 3}, e.Base().Origin())
	assert.T(t, e.KeyValueVectorRef("angles", &Vector3{0, 90, 0}))
	assert.Equal(t, Vector3{0, 90, 0}, e.Base().Angles())
	assert.T(t, !e.KeyValueVectorRef("angles", nil))
	assert.T(t, !e.KeyValue("no_such_key", "1"))
	assert.T(t, !e.KeyValue("speed", "fast"))

	h := ToScript(e)
	res, err := h.Call("KeyValue", "speed", float32(50))
	assert.Equal(t, nil, err)
	assert.Equal(t, true, res)
	assert.Equal(t, float32(50), toggle.Speed())
	res, err = h.Call("KeyValue", "targetname", "door")
	assert.Equal(t, nil, err)
	assert.Equal(t, true, res)
	assert.Equal(t, "door", e.Base().TargetName())
	_, err = h.Call("KeyValue", "movedir", Vector3{0, 1, 0})
	assert.Equal(t, nil, err)
	assert.Equal(t, Vector3{0, 1, 0}, toggle.MoveDir())
}

func TestKeyValueOverridesShareName(t *testing.T) {
	env := newTestEnv(t, 16)
	class := newTestClass("kv")
	var seen []interface{}
	class.override("KeyValue", func(self *Handle, args []interface{}) (interface{}, error) {
		seen = append(seen, args[1])
		return true, nil
	})
	assert.Equal(t, nil, env.world.RegisterScriptedClass("func_kv", TypeBaseToggle, class))
	e := env.world.CreateEntityByName("func_kv", -1)

	assert.T(t, e.KeyValue("speed", "10"))
	assert.T(t, e.KeyValueFloat("speed", 20))
	assert.T(t, e.KeyValueVector("movedir", Vector3{1, 1, 1}))
	assert.Equal(t, []interface{}{"10", float32(20), Vector3{1, 1, 1}}, seen)
	assert.Equal(t, float32(0), AsToggle(e).Speed())
}

func TestLifeStateProperty(t *testing.T) {
	env := newTestEnv(t, 16)
	h := ToScript(env.spawn(t, "info_target"))

	assert.Equal(t, nil, h.Set("lifestate", LIFE_DEAD))
	v, err := h.Get("lifestate")
	assert.Equal(t, nil, err)
	assert.Equal(t, LIFE_DEAD, v)

	assert.T(t, h.Set("lifestate", 9) != nil)
	v, _ = h.Get("lifestate")
	assert.Equal(t, LIFE_DEAD, v)

	assert.Equal(t, nil, h.Set("takedamage", DAMAGE_YES))
	assert.T(t, h.Set("takedamage", -1) != nil)
	v, _ = h.Get("takedamage")
	assert.Equal(t, DAMAGE_YES, v)

	_, err = h.Get("no_such_property")
	assert.T(t, err != nil)
}

func TestPropertyOnStaleHandle(t *testing.T) {
	env := newTestEnv(t, 16)
	e := env.spawn(t, "info_target")
	h := ToScript(e)
	desc := env.ctx.Type(TypeBaseEntity)

	assert.Equal(t, nil, env.ctx.SetProperty(desc, h, "targetname", 7))
	assert.Equal(t, "7", e.Base().TargetName())

	env.world.Remove(e)
	env.world.RunFrame()
	assert.T(t, !h.IsValid())

	_, err := env.ctx.GetProperty(desc, h, "lifestate")
	assert.T(t, err != nil)
	assert.T(t, env.ctx.SetProperty(desc, h, "health", 5) != nil)
	_, err = h.Get("health")
	assert.T(t, err != nil)
}

func TestNullHandle(t *testing.T) {
	assert.T(t, ToScript(nil) == nil)
	var nilEntity *BaseEntity
	assert.T(t, ToScript(nilEntity) == nil)
	assert.T(t, FromScript(nil) == nil)

	var h *Handle
	assert.T(t, !h.IsValid())
	assert.T(t, h.Entity() == nil)
	assert.Equal(t, "", h.ClassName())
	assert.Equal(t, -1, h.Index())
	assert.Equal(t, "<nil>", h.String())
	assert.T(t, !h.Input("Kill", ""))
	_, err := h.Call("Spawn")
	assert.T(t, err != nil)
}

func TestHandleRoundTrip(t *testing.T) {
	env := newTestEnv(t, 16)
	e := env.spawn(t, "info_target", "targetname", "target")
	h := ToScript(e)
	assert.T(t, h == ToScript(e))
	assert.T(t, FromScript(h) == e)
	assert.Equal(t, "info_target", h.ClassName())
	assert.Equal(t, "target", h.TargetName())

	res, err := h.Call("GetClassname")
	assert.Equal(t, nil, err)
	assert.Equal(t, "info_target", res)
	res, err = h.Call("entindex")
	assert.Equal(t, nil, err)
	assert.Equal(t, e.Base().Index(), res)
}

func TestCallDefaultBypassesOverride(t *testing.T) {
	env := newTestEnv(t, 16)
	class := newTestClass("tracer")
	class.override("GetTracerType", func(self *Handle, args []interface{}) (interface{}, error) {
		return "script_tracer", nil
	})
	assert.Equal(t, nil, env.world.RegisterScriptedClass("info_tracer", "info_target", class))
	e := env.spawn(t, "info_tracer")

	assert.Equal(t, "script_tracer", e.GetTracerType())
	assert.Equal(t, "", e.Base().Native().GetTracerType())

	h := ToScript(e)
	res, err := h.Call("GetTracerType")
	assert.Equal(t, nil, err)
	assert.Equal(t, "script_tracer", res)
	res, err = h.CallDefault("GetTracerType")
	assert.Equal(t, nil, err)
	assert.Equal(t, "", res)
}

func TestFreeFunctions(t *testing.T) {
	env := newTestEnv(t, 16)

	res, err := env.ctx.CallFunction("CreateEntityByName", "trigger_once")
	assert.Equal(t, nil, err)
	e := res.(IEntity)
	assert.Equal(t, 1, e.Base().Index())

	res, err = env.ctx.CallFunction("CreateEntityByName", "info_target", 7)
	assert.Equal(t, nil, err)
	assert.Equal(t, 7, res.(IEntity).Base().Index())

	res, err = env.ctx.CallFunction("CreateEntityByName", "no_such_class")
	assert.Equal(t, nil, err)
	assert.Equal(t, nil, res)

	res, err = env.ctx.CallFunction("DispatchSpawn", e)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, res)
	assert.T(t, e.Base().IsSpawned())

	res, err = env.ctx.CallFunction("DispatchSpawn", nil)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, res)
}

func TestDamageKillsAndNotifiesOwner(t *testing.T) {
	env := newTestEnv(t, 16)
	owner := newTestClass("owner")
	var victims []*Handle
	owner.override("DeathNotice", func(self *Handle, args []interface{}) (interface{}, error) {
		victims = append(victims, args[0].(*Handle))
		return nil, nil
	})
	assert.Equal(t, nil, env.world.RegisterScriptedClass("info_owner", "info_target", owner))

	o := env.spawn(t, "info_owner")
	victim := env.spawn(t, "info_target", "health", "10", "OnKilled", "counter,SetHealth,99")
	counter := env.spawn(t, "info_target", "targetname", "counter")
	victim.Base().SetOwner(o)
	victim.Base().SetTakeDamageMode(DAMAGE_YES)

	assert.Equal(t, 1, victim.Base().TakeDamage(&TakeDamageInfo{Attacker: o, Damage: 4}))
	assert.Equal(t, 6, victim.Base().Health())
	victim.Base().TakeDamage(&TakeDamageInfo{Attacker: o, Damage: 10})
	assert.Equal(t, LIFE_DEAD, victim.Base().LifeState())
	assert.T(t, victim.Base().IsMarkedForDeletion())
	assert.Equal(t, 1, len(victims))
	assert.T(t, victims[0].Entity() == victim)

	env.world.RunFrame()
	assert.Equal(t, 99, counter.Base().Health())
	assert.T(t, env.world.EntityByIndex(victim.Base().Index()) == nil)
}

func TestDamageFilter(t *testing.T) {
	env := newTestEnv(t, 16)
	env.spawn(t, "filter_activator_class", "targetname", "only_npcs", "filterclass", "npc_*")
	npc := env.spawn(t, "info_target")
	npc.Base().SetClassName("npc_zombie")
	player := env.spawn(t, "info_target")
	victim := env.spawn(t, "info_target", "health", "100", "damagefilter", "only_npcs")
	victim.Base().SetTakeDamageMode(DAMAGE_YES)

	victim.Base().TakeDamage(&TakeDamageInfo{Attacker: player, Damage: 10})
	assert.Equal(t, 100, victim.Base().Health())
	victim.Base().TakeDamage(&TakeDamageInfo{Attacker: npc, Damage: 10})
	assert.Equal(t, 90, victim.Base().Health())
}

func TestFindEntityByName(t *testing.T) {
	env := newTestEnv(t, 16)
	a := env.spawn(t, "info_target", "targetname", "door_1")
	b := env.spawn(t, "info_target", "targetname", "door_2")
	env.spawn(t, "info_target", "targetname", "window")

	assert.T(t, env.world.FindEntityByName(nil, "DOOR_1") == a)
	assert.T(t, env.world.FindEntityByName(a, "door_*") == b)
	assert.Equal(t, 2, len(env.world.FindEntitiesByName("door*")))
	assert.T(t, env.world.FindEntityByName(nil, "") == nil)
	assert.T(t, env.world.FindEntityByClassName(nil, "info_target") == a)
}

func TestToggleLinearMoveArrived(t *testing.T) {
	env := newTestEnv(t, 16)
	e := env.spawn(t, "func_toggle", "origin", "10 0 0", "OnMoveDone", "counter,SetHealth,5")
	counter := env.spawn(t, "info_target", "targetname", "counter")
	toggle := AsToggle(e)
	toggle.SetToggleState(TS_GOING_UP)

	toggle.LinearMove(Vector3{10, 0, 0}, 100)
	assert.T(t, !toggle.IsMoving())
	assert.Equal(t, TS_AT_TOP, toggle.ToggleState())
	env.world.RunFrame()
	assert.Equal(t, 5, counter.Base().Health())

	toggle.LinearMove(Vector3{20, 0, 0}, 100)
	assert.T(t, toggle.IsMoving())
	assert.Equal(t, Vector3{20, 0, 0}, toggle.FinalDest())
	e.Base().Remove()
	env.world.RunFrame()
}

func TestDebugOverlays(t *testing.T) {
	env := newTestEnv(t, 16)
	e := env.spawn(t, "trigger", "targetname", "t", "StartDisabled", "1")
	e.Base().SetDebugOverlays(OVERLAY_TEXT_BIT | OVERLAY_BBOX_BIT)

	assert.Equal(t, 3, e.DrawDebugTextOverlays())
	assert.Equal(t, "DISABLED", env.effects.texts[2])
	e.DrawDebugGeometryOverlays()
	assert.Equal(t, 1, env.effects.boxes)
	assert.Equal(t, FL_EDICT_ALWAYS, e.UpdateTransmitState())
	e.Base().SetDebugOverlays(0)
	assert.Equal(t, FL_EDICT_DONTSEND, e.UpdateTransmitState())

	set := NewCriteriaSet()
	e.ModifyOrAppendCriteria(set)
	v, ok := set.Lookup("name")
	assert.T(t, ok)
	assert.Equal(t, "t", v)
}
