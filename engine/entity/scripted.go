package entity

import (
	"github.com/xiaonanln/gwscript/engine/binding"
)

// scriptedEntity is installed as BaseEntity.I when a script class is bound
//
// Each overridable method runs the script override if the class has one and falls back to the
// embedded native implementation otherwise, or when the override faults.
type scriptedEntity struct {
	IEntity
	b *binding.Binding
}

func newScriptedEntity(native IEntity, b *binding.Binding) *scriptedEntity {
	return &scriptedEntity{IEntity: native, b: b}
}

func (s *scriptedEntity) Spawn() {
	binding.CallVoid(s.b, MethodSpawn, s.IEntity.Spawn)
}

func (s *scriptedEntity) Precache() {
	binding.CallVoid(s.b, MethodPrecache, s.IEntity.Precache)
}

func (s *scriptedEntity) Activate() {
	binding.CallVoid(s.b, MethodActivate, s.IEntity.Activate)
}

func (s *scriptedEntity) PostClientActive() {
	binding.CallVoid(s.b, MethodPostClientActive, s.IEntity.PostClientActive)
}

func (s *scriptedEntity) UpdateOnRemove() {
	binding.CallVoid(s.b, MethodUpdateOnRemove, s.IEntity.UpdateOnRemove)
}

func (s *scriptedEntity) OnRestore() {
	binding.CallVoid(s.b, MethodOnRestore, s.IEntity.OnRestore)
}

func (s *scriptedEntity) StopLoopingSounds() {
	binding.CallVoid(s.b, MethodStopLoopingSounds, s.IEntity.StopLoopingSounds)
}

func (s *scriptedEntity) PostConstructor(className string) {
	binding.CallVoid(s.b, MethodPostConstructor, func() {
		s.IEntity.PostConstructor(className)
	}, className)
}

func (s *scriptedEntity) KeyValue(key string, value string) bool {
	return binding.Call(s.b, MethodKeyValue, func() bool {
		return s.IEntity.KeyValue(key, value)
	}, key, value)
}

func (s *scriptedEntity) KeyValueFloat(key string, value float32) bool {
	return binding.Call(s.b, MethodKeyValueFloat, func() bool {
		return s.IEntity.KeyValueFloat(key, value)
	}, key, value)
}

func (s *scriptedEntity) KeyValueVector(key string, value Vector3) bool {
	return binding.Call(s.b, MethodKeyValueVector, func() bool {
		return s.IEntity.KeyValueVector(key, value)
	}, key, value)
}

func (s *scriptedEntity) KeyValueVectorRef(key string, value *Vector3) bool {
	return binding.Call(s.b, MethodKeyValueVectorRef, func() bool {
		return s.IEntity.KeyValueVectorRef(key, value)
	}, key, value)
}

func (s *scriptedEntity) OnTakeDamage(info *TakeDamageInfo) int {
	return binding.Call(s.b, MethodOnTakeDamage, func() int {
		return s.IEntity.OnTakeDamage(info)
	}, info)
}

func (s *scriptedEntity) PassesDamageFilter(info *TakeDamageInfo) bool {
	return binding.Call(s.b, MethodPassesDamageFilter, func() bool {
		return s.IEntity.PassesDamageFilter(info)
	}, info)
}

func (s *scriptedEntity) EventKilled(info *TakeDamageInfo) {
	binding.CallVoid(s.b, MethodEventKilled, func() {
		s.IEntity.EventKilled(info)
	}, info)
}

func (s *scriptedEntity) DeathNotice(victim IEntity) {
	binding.CallVoid(s.b, MethodDeathNotice, func() {
		s.IEntity.DeathNotice(victim)
	}, ToScript(victim))
}

func (s *scriptedEntity) CreateVPhysics() bool {
	return binding.Call(s.b, MethodCreateVPhysics, s.IEntity.CreateVPhysics)
}

func (s *scriptedEntity) VPhysicsCollision(index int, event *CollisionEvent) {
	binding.CallVoid(s.b, MethodVPhysicsCollision, func() {
		s.IEntity.VPhysicsCollision(index, event)
	}, index, event)
}

func (s *scriptedEntity) ComputeWorldSpaceSurroundingBox(worldMins, worldMaxs *Vector3) {
	binding.CallVoid(s.b, MethodComputeWorldSpaceSurroundingBox, func() {
		s.IEntity.ComputeWorldSpaceSurroundingBox(worldMins, worldMaxs)
	}, worldMins, worldMaxs)
}

func (s *scriptedEntity) DoImpactEffect(tr *Trace, damageType int) {
	binding.CallVoid(s.b, MethodDoImpactEffect, func() {
		s.IEntity.DoImpactEffect(tr, damageType)
	}, tr, damageType)
}

func (s *scriptedEntity) MakeTracer(tracerSrc Vector3, tr *Trace, tracerType int) {
	binding.CallVoid(s.b, MethodMakeTracer, func() {
		s.IEntity.MakeTracer(tracerSrc, tr, tracerType)
	}, tracerSrc, tr, tracerType)
}

func (s *scriptedEntity) GetTracerType() string {
	return binding.Call(s.b, MethodGetTracerType, s.IEntity.GetTracerType)
}

func (s *scriptedEntity) UpdateTransmitState() int {
	return binding.Call(s.b, MethodUpdateTransmitState, s.IEntity.UpdateTransmitState)
}

func (s *scriptedEntity) DrawDebugGeometryOverlays() {
	binding.CallVoid(s.b, MethodDrawDebugGeometryOverlays, s.IEntity.DrawDebugGeometryOverlays)
}

func (s *scriptedEntity) DrawDebugTextOverlays() int {
	return binding.Call(s.b, MethodDrawDebugTextOverlays, s.IEntity.DrawDebugTextOverlays)
}

func (s *scriptedEntity) ModifyOrAppendCriteria(set *CriteriaSet) {
	binding.CallVoid(s.b, MethodModifyOrAppendCriteria, func() {
		s.IEntity.ModifyOrAppendCriteria(set)
	}, set)
}

func (s *scriptedEntity) StartTouch(other IEntity) {
	binding.CallVoid(s.b, MethodStartTouch, func() {
		s.IEntity.StartTouch(other)
	}, ToScript(other))
}

func (s *scriptedEntity) EndTouch(other IEntity) {
	binding.CallVoid(s.b, MethodEndTouch, func() {
		s.IEntity.EndTouch(other)
	}, ToScript(other))
}
