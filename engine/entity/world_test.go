package entity

import (
	"testing"

	"github.com/bmizerany/assert"
)

func (env *testEnv) spawnPlayer(t *testing.T, name string, origin string) IEntity {
	p := env.world.CreateEntityByName("info_target", -1)
	assert.T(t, p.KeyValue("targetname", name))
	assert.T(t, p.KeyValue("origin", origin))
	assert.T(t, p.KeyValue("mins", "-16 -16 0"))
	assert.T(t, p.KeyValue("maxs", "16 16 72"))
	p.Base().AddFlags(FL_CLIENT)
	assert.Equal(t, 0, env.world.DispatchSpawn(p))
	return p
}

func (env *testEnv) spawnTrigger(t *testing.T, className string, keyvalues ...string) IEntity {
	kvs := append([]string{"spawnflags", "1", "mins", "-64 -64 -64", "maxs", "64 64 64"}, keyvalues...)
	return env.spawn(t, className, kvs...)
}

func TestTriggerTouchFiresOutputs(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	counter := env.spawn(t, "info_target", "targetname", "counter", "origin", "1000 1000 0")
	trigger := env.spawnTrigger(t, "trigger_multiple", "wait", "1",
		"OnStartTouch", "counter,SetHealth,42",
		"OnEndTouchAll", "counter,SetHealth,0",
		"OnTrigger", "!activator,SetHealth,77")
	player := env.spawnPlayer(t, "player", "500 0 0")

	w.RunFrame()
	assert.Equal(t, 0, len(w.Touching(trigger)))
	assert.Equal(t, 0, counter.Base().Health())

	player.Base().SetOrigin(Vector3{0, 0, 0})
	w.RunFrame()
	tr := AsTrigger(trigger)
	assert.T(t, tr.IsTouching(player))
	assert.Equal(t, []IEntity{player}, w.Touching(trigger))
	assert.Equal(t, []IEntity{trigger}, w.Touching(player))
	assert.Equal(t, 42, counter.Base().Health())
	assert.Equal(t, 77, player.Base().Health())
	assert.T(t, tr.GetTouchedEntityOfType("info_target") == player)

	multi := trigger.Base().Native().(*TriggerMultiple)
	assert.T(t, multi.IsWaiting())
	assert.T(t, multi.Activator() == player)

	player.Base().SetOrigin(Vector3{500, 0, 0})
	w.RunFrame()
	assert.T(t, !tr.IsTouching(player))
	assert.Equal(t, 0, len(w.Touching(trigger)))
	assert.Equal(t, 0, counter.Base().Health())
}

func TestTriggerIgnoresNonClients(t *testing.T) {
	env := newTestEnv(t, 32)
	trigger := env.spawnTrigger(t, "trigger_multiple")
	crate := env.spawn(t, "info_target", "mins", "-8 -8 -8", "maxs", "8 8 8")

	env.world.RunFrame()
	assert.Equal(t, []IEntity{crate}, env.world.Touching(trigger))
	assert.T(t, !AsTrigger(trigger).IsTouching(crate))
}

func TestTriggerOnceRemovesItself(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	counter := env.spawn(t, "info_target", "targetname", "counter")
	trigger := env.spawnTrigger(t, "trigger_once", "OnTrigger", "counter,SetHealth,7")
	h := ToScript(trigger)
	env.spawnPlayer(t, "player", "0 0 0")

	w.RunFrame()
	assert.Equal(t, 7, counter.Base().Health())
	assert.T(t, !h.IsValid())
	assert.T(t, w.EntityByIndex(h.Index()) == nil)
	assert.Equal(t, 2, w.NumEntities())
}

func TestTriggerFilter(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	env.spawn(t, "filter_activator_name", "targetname", "heroes_only", "filtername", "hero")
	trigger := env.spawnTrigger(t, "trigger_multiple", "filtername", "heroes_only")
	villain := env.spawnPlayer(t, "villain", "0 0 0")
	w.ActivateAll()
	tr := AsTrigger(trigger)
	assert.T(t, tr.UsesFilter())
	assert.T(t, trigger.Base().IsActivated())

	w.RunFrame()
	assert.T(t, !tr.IsTouching(villain))

	hero := env.spawnPlayer(t, "hero", "0 0 0")
	w.RunFrame()
	assert.T(t, tr.IsTouching(hero))
	assert.Equal(t, 1, len(tr.Touching()))
	assert.T(t, tr.PassesTriggerFilters(hero))
	assert.T(t, !tr.PassesTriggerFilters(villain))
}

func TestTriggerDisableEndsTouches(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	counter := env.spawn(t, "info_target", "targetname", "counter")
	trigger := env.spawnTrigger(t, "trigger", "OnEndTouch", "counter,SetHealth,3")
	player := env.spawnPlayer(t, "player", "0 0 0")
	tr := AsTrigger(trigger)

	w.RunFrame()
	assert.T(t, tr.IsTouching(player))

	assert.T(t, trigger.Base().AcceptInput("Disable", nil, nil, ""))
	assert.T(t, tr.IsDisabled())
	assert.T(t, !trigger.Base().IsTrigger())
	assert.T(t, !tr.IsTouching(player))
	assert.Equal(t, 0, len(w.Touching(player)))
	w.RunFrame()
	assert.Equal(t, 3, counter.Base().Health())
	assert.Equal(t, 0, len(w.Touching(player)))

	assert.T(t, ToScript(trigger).Input("Toggle", ""))
	assert.T(t, !tr.IsDisabled())
	w.RunFrame()
	assert.T(t, tr.IsTouching(player))
}

func TestTouchTestOutputs(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	counter := env.spawn(t, "info_target", "targetname", "counter")
	trigger := env.spawnTrigger(t, "trigger",
		"OnTouching", "counter,SetHealth,1",
		"OnNotTouching", "counter,SetHealth,2")

	trigger.Base().AcceptInput("TouchTest", nil, nil, "")
	w.RunFrame()
	assert.Equal(t, 2, counter.Base().Health())

	env.spawnPlayer(t, "player", "0 0 0")
	w.RunFrame()
	trigger.Base().AcceptInput("TouchTest", nil, nil, "")
	w.RunFrame()
	assert.Equal(t, 1, counter.Base().Health())
}

func TestScriptedStartTouchReceivesHandle(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	class := newTestClass("watcher")
	var touched []*Handle
	class.override("StartTouch", func(self *Handle, args []interface{}) (interface{}, error) {
		touched = append(touched, args[0].(*Handle))
		_, err := self.CallDefault("StartTouch", args[0])
		return nil, err
	})
	assert.Equal(t, nil, w.RegisterScriptedClass("trigger_watcher", "trigger", class))

	trigger := env.spawnTrigger(t, "trigger_watcher")
	player := env.spawnPlayer(t, "player", "0 0 0")
	w.RunFrame()

	assert.Equal(t, 1, len(touched))
	assert.T(t, touched[0].Entity() == player)
	assert.T(t, AsTrigger(trigger).IsTouching(player))
	assert.Equal(t, 0, len(env.faults))
}

func TestRemovedEntityEndsTouches(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	trigger := env.spawnTrigger(t, "trigger")
	player := env.spawnPlayer(t, "player", "0 0 0")
	w.RunFrame()
	assert.T(t, AsTrigger(trigger).IsTouching(player))

	player.Base().Remove()
	assert.T(t, !AsTrigger(trigger).IsTouching(player))
	w.RunFrame()
	assert.Equal(t, 0, len(w.Touching(trigger)))
	assert.Equal(t, 0, len(AsTrigger(trigger).Touching()))
}

func TestWorldClose(t *testing.T) {
	env := newTestEnv(t, 32)
	env.spawnTrigger(t, "trigger")
	env.spawnPlayer(t, "player", "0 0 0")
	env.world.RunFrame()
	env.world.Close()
	assert.Equal(t, 0, env.world.NumEntities())
	assert.Equal(t, 0, len(env.world.Entities()))
	assert.T(t, env.world.WorldSpawn() != nil)
}

func TestClassRegistry(t *testing.T) {
	env := newTestEnv(t, 32)
	w := env.world
	assert.T(t, w.HasClass("trigger_once"))
	assert.T(t, w.RegisterClass("trigger_once", w.Context().Type(TypeBaseTrigger), func() IEntity { return NewTriggerOnce() }) != nil)
	assert.T(t, w.RegisterScriptedClass("x", "no_such_base", newTestClass("x")) != nil)
	assert.T(t, w.RegisterScriptedClass("x", "trigger", nil) != nil)

	w.UnregisterClass("trigger_once")
	assert.T(t, !w.HasClass("trigger_once"))
	assert.T(t, w.CreateEntityByName("trigger_once", -1) == nil)
	assert.Equal(t, "trigger", w.CreateEntityByName("trigger", -1).Base().ClassName())
	assert.Equal(t, "trigger_multiple", w.CreateEntityByName("trigger_multiple", -1).Base().ClassName())
	assert.T(t, w.CreateEntityByName("trigger_", -1) == nil)
	assert.Equal(t, []string{"filter_activator_class", "filter_activator_name", "func_toggle", "info_target", "trigger", "trigger_multiple"}, w.ClassNames())
}

func TestEntityIO(t *testing.T) {
	conn, err := ParseConnection("door,Open,,1.5,1")
	assert.Equal(t, nil, err)
	assert.Equal(t, "door", conn.Target)
	assert.Equal(t, "Open", conn.Input)
	assert.Equal(t, "", conn.Param)
	assert.Equal(t, float32(1.5), conn.Delay)
	assert.Equal(t, 1, conn.TimesToFire)

	conn, err = ParseConnection("door\x1bSetHealth\x1b5")
	assert.Equal(t, nil, err)
	assert.Equal(t, "5", conn.Param)
	assert.Equal(t, -1, conn.TimesToFire)

	_, err = ParseConnection("door")
	assert.T(t, err != nil)
	_, err = ParseConnection("door,Open,,-1")
	assert.T(t, err != nil)

	env := newTestEnv(t, 32)
	counter := env.spawn(t, "info_target", "targetname", "counter")
	relay := env.spawn(t, "info_target", "targetname", "relay", "OnUser1", "counter,SetHealth,11,0,1")
	relay.Base().AcceptInput("FireUser1", nil, nil, "")
	env.world.RunFrame()
	assert.Equal(t, 11, counter.Base().Health())
	assert.Equal(t, 0, len(relay.Base().Output("OnUser1").Connections()))

	assert.T(t, relay.Base().AcceptInput("AddOutput", nil, nil, "OnUser2 counter:SetHealth:12"))
	relay.Base().AcceptInput("FireUser2", nil, nil, "")
	env.world.RunFrame()
	assert.Equal(t, 12, counter.Base().Health())

	relay.Base().AcceptInput("AddOutput", nil, nil, "targetname renamed")
	assert.Equal(t, "renamed", relay.Base().TargetName())
	assert.T(t, !relay.Base().AcceptInput("NoSuchInput", nil, nil, ""))

	relay.Base().AcceptInput("Kill", nil, nil, "")
	assert.T(t, relay.Base().IsMarkedForDeletion())
}
