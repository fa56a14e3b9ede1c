package entity

import "github.com/xiaonanln/gwscript/engine/binding"

// Overridable methods of CBaseEntity and its subclasses
const (
	MethodSpawn binding.MethodID = iota + 1
	MethodPrecache
	MethodActivate
	MethodPostClientActive
	MethodUpdateOnRemove
	MethodOnRestore
	MethodStopLoopingSounds
	MethodPostConstructor
	MethodKeyValue
	MethodKeyValueFloat
	MethodKeyValueVector
	MethodKeyValueVectorRef
	MethodOnTakeDamage
	MethodPassesDamageFilter
	MethodEventKilled
	MethodDeathNotice
	MethodCreateVPhysics
	MethodVPhysicsCollision
	MethodComputeWorldSpaceSurroundingBox
	MethodDoImpactEffect
	MethodMakeTracer
	MethodGetTracerType
	MethodUpdateTransmitState
	MethodDrawDebugGeometryOverlays
	MethodDrawDebugTextOverlays
	MethodModifyOrAppendCriteria
	MethodStartTouch
	MethodEndTouch
)
