package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xiaonanln/go-aoi"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gwscript/engine/binding"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// IEntity is the virtual surface of entities
//
// The world and other entities always call through IEntity, so every method below can be
// overridden by a native subclass or by a script class bound to the entity.
type IEntity interface {
	// Base returns the CBaseEntity part of the entity
	Base() *BaseEntity

	// Lifetime
	Spawn()
	Precache()
	Activate()
	PostClientActive()
	UpdateOnRemove()
	OnRestore()
	StopLoopingSounds()
	PostConstructor(className string)
	// KeyValues
	KeyValue(key string, value string) bool
	KeyValueFloat(key string, value float32) bool
	KeyValueVector(key string, value Vector3) bool
	KeyValueVectorRef(key string, value *Vector3) bool
	// Damage
	OnTakeDamage(info *TakeDamageInfo) int
	PassesDamageFilter(info *TakeDamageInfo) bool
	EventKilled(info *TakeDamageInfo)
	DeathNotice(victim IEntity)
	// Physics
	CreateVPhysics() bool
	VPhysicsCollision(index int, event *CollisionEvent)
	ComputeWorldSpaceSurroundingBox(worldMins, worldMaxs *Vector3)
	// Effects
	DoImpactEffect(tr *Trace, damageType int)
	MakeTracer(tracerSrc Vector3, tr *Trace, tracerType int)
	GetTracerType() string
	UpdateTransmitState() int
	DrawDebugGeometryOverlays()
	DrawDebugTextOverlays() int
	ModifyOrAppendCriteria(set *CriteriaSet)
	// Touch
	StartTouch(other IEntity)
	EndTouch(other IEntity)
}

// BaseEntity is CBaseEntity, the root of all entities
type BaseEntity struct {
	I      IEntity // most derived implementation, the scripted wrapper when a script class is bound
	native IEntity // most derived native implementation

	world    *World
	index    int
	serial   int
	typeDesc *binding.TypeDesc
	binding  *binding.Binding
	handle   *Handle

	className        string
	targetName       string
	origin           Vector3
	angles           Vector3
	mins             Vector3
	maxs             Vector3
	spawnFlags       int
	health           int
	maxHealth        int
	lifeState        int
	takeDamage       int
	flags            int
	effects          int
	solidFlags       int
	damageFilterName string
	owner            IEntity
	debugOverlays    int
	transmitState    int
	vphysics         bool
	lastCollision    *CollisionEvent

	precached         bool
	spawned           bool
	activated         bool
	markedForDeletion bool

	outputs   map[string]*Output
	inputs    map[string]InputFunc
	rawTimers map[*timer.Timer]struct{}

	aoi       aoi.AOI
	inAOI     bool
	neighbors EntitySet
}

// NewBaseEntity creates a detached CBaseEntity
func NewBaseEntity() *BaseEntity {
	e := &BaseEntity{}
	e.setupBase(e)
	return e
}

func (e *BaseEntity) setupBase(impl IEntity) {
	e.I = impl
	e.native = impl
	e.index = -1
	e.lifeState = LIFE_ALIVE
	e.takeDamage = DAMAGE_NO
	e.outputs = map[string]*Output{}
	e.inputs = map[string]InputFunc{}
	e.rawTimers = map[*timer.Timer]struct{}{}
	e.neighbors = EntitySet{}

	for i := 1; i <= 4; i++ {
		e.DeclareOutput(fmt.Sprintf("OnUser%d", i))
	}
	e.DeclareOutput("OnKilled")

	e.DeclareInput("Kill", func(data *InputData) { e.Remove() })
	e.DeclareInput("AddOutput", e.inputAddOutput)
	e.DeclareInput("SetHealth", func(data *InputData) {
		if n, ok := atoi(data.Value); ok {
			e.health = n
		}
	})
	for i := 1; i <= 4; i++ {
		output := fmt.Sprintf("OnUser%d", i)
		e.DeclareInput(fmt.Sprintf("FireUser%d", i), func(data *InputData) {
			e.FireOutput(output, data.Activator, e.I)
		})
	}
}

func (e *BaseEntity) String() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s<%d>", e.className, e.index)
}

// Base returns e
func (e *BaseEntity) Base() *BaseEntity {
	return e
}

// Native returns the native implementation, calling it bypasses script overrides
func (e *BaseEntity) Native() IEntity {
	return e.native
}

// World returns the world the entity lives in, nil for detached entities
func (e *BaseEntity) World() *World {
	return e.world
}

// Index returns the edict index, -1 for detached entities
func (e *BaseEntity) Index() int {
	return e.index
}

// Serial returns the edict serial number
func (e *BaseEntity) Serial() int {
	return e.serial
}

// TypeDesc returns the bound native type
func (e *BaseEntity) TypeDesc() *binding.TypeDesc {
	return e.typeDesc
}

// Binding returns the script binding, nil if no script class is bound
func (e *BaseEntity) Binding() *binding.Binding {
	return e.binding
}

// Handle returns the script handle of the entity
func (e *BaseEntity) Handle() *Handle {
	if e.handle == nil {
		e.handle = &Handle{ent: e, serial: e.serial}
	}
	return e.handle
}

// ClassName returns the class name
func (e *BaseEntity) ClassName() string {
	return e.className
}

// SetClassName sets the class name
func (e *BaseEntity) SetClassName(className string) {
	e.className = className
}

// TargetName returns the name other entities target this entity by
func (e *BaseEntity) TargetName() string {
	return e.targetName
}

// SetTargetName sets the target name
func (e *BaseEntity) SetTargetName(name string) {
	e.targetName = name
}

// Origin returns the entity position
func (e *BaseEntity) Origin() Vector3 {
	return e.origin
}

// SetOrigin moves the entity
func (e *BaseEntity) SetOrigin(origin Vector3) {
	e.origin = origin
	if e.inAOI && e.world != nil {
		e.world.touchMgr.Moved(&e.aoi, aoi.Coord(origin.X), aoi.Coord(origin.Y))
	}
}

// Angles returns the entity angles
func (e *BaseEntity) Angles() Vector3 {
	return e.angles
}

// SetAngles sets the entity angles
func (e *BaseEntity) SetAngles(angles Vector3) {
	e.angles = angles
}

// Size returns the local bounding box
func (e *BaseEntity) Size() (mins, maxs Vector3) {
	return e.mins, e.maxs
}

// SetSize sets the local bounding box
func (e *BaseEntity) SetSize(mins, maxs Vector3) {
	e.mins, e.maxs = mins, maxs
}

// AbsBox returns the bounding box in world space
func (e *BaseEntity) AbsBox() (mins, maxs Vector3) {
	return e.origin.Add(e.mins), e.origin.Add(e.maxs)
}

// SpawnFlags returns the spawn flags
func (e *BaseEntity) SpawnFlags() int {
	return e.spawnFlags
}

// HasSpawnFlags tells whether any of flags is set
func (e *BaseEntity) HasSpawnFlags(flags int) bool {
	return e.spawnFlags&flags != 0
}

// AddSpawnFlags sets flags
func (e *BaseEntity) AddSpawnFlags(flags int) {
	e.spawnFlags |= flags
}

// Health returns the health
func (e *BaseEntity) Health() int {
	return e.health
}

// SetHealth sets the health
func (e *BaseEntity) SetHealth(health int) {
	e.health = health
}

// MaxHealth returns the max health
func (e *BaseEntity) MaxHealth() int {
	return e.maxHealth
}

// LifeState returns one of LIFE_ALIVE ... LIFE_DISCARDBODY
func (e *BaseEntity) LifeState() int {
	return e.lifeState
}

// SetLifeState sets the life state, out of range values are rejected
func (e *BaseEntity) SetLifeState(state int) bool {
	if state < LIFE_ALIVE || state > LIFE_DISCARDBODY {
		return false
	}
	e.lifeState = state
	return true
}

// IsAlive tells whether the life state is LIFE_ALIVE
func (e *BaseEntity) IsAlive() bool {
	return e.lifeState == LIFE_ALIVE
}

// TakeDamageMode returns one of DAMAGE_NO ... DAMAGE_AIM
func (e *BaseEntity) TakeDamageMode() int {
	return e.takeDamage
}

// SetTakeDamageMode sets the damage acceptance, out of range values are rejected
func (e *BaseEntity) SetTakeDamageMode(mode int) bool {
	if mode < DAMAGE_NO || mode > DAMAGE_AIM {
		return false
	}
	e.takeDamage = mode
	return true
}

// Flags returns the entity flags
func (e *BaseEntity) Flags() int {
	return e.flags
}

// AddFlags sets entity flags
func (e *BaseEntity) AddFlags(flags int) {
	e.flags |= flags
}

// RemoveFlags clears entity flags
func (e *BaseEntity) RemoveFlags(flags int) {
	e.flags &^= flags
}

// Effects returns the effect flags
func (e *BaseEntity) Effects() int {
	return e.effects
}

// AddEffects sets effect flags
func (e *BaseEntity) AddEffects(effects int) {
	e.effects |= effects
}

// SolidFlags returns the solid flags
func (e *BaseEntity) SolidFlags() int {
	return e.solidFlags
}

// AddSolidFlags sets solid flags
func (e *BaseEntity) AddSolidFlags(flags int) {
	e.solidFlags |= flags
}

// RemoveSolidFlags clears solid flags
func (e *BaseEntity) RemoveSolidFlags(flags int) {
	e.solidFlags &^= flags
}

// IsTrigger tells whether the entity is an active trigger volume
func (e *BaseEntity) IsTrigger() bool {
	return e.solidFlags&FSOLID_TRIGGER != 0
}

// Owner returns the owner entity, notified by DeathNotice when this entity is killed
func (e *BaseEntity) Owner() IEntity {
	return e.owner
}

// SetOwner sets the owner entity
func (e *BaseEntity) SetOwner(owner IEntity) {
	e.owner = owner
}

// DebugOverlays returns the debug overlay bits
func (e *BaseEntity) DebugOverlays() int {
	return e.debugOverlays
}

// SetDebugOverlays sets the debug overlay bits
func (e *BaseEntity) SetDebugOverlays(bits int) {
	e.debugOverlays = bits
}

// TransmitState returns the last state computed by UpdateTransmitState
func (e *BaseEntity) TransmitState() int {
	return e.transmitState
}

// HasVPhysics tells whether CreateVPhysics succeeded
func (e *BaseEntity) HasVPhysics() bool {
	return e.vphysics
}

// LastCollision returns the last collision event received
func (e *BaseEntity) LastCollision() *CollisionEvent {
	return e.lastCollision
}

// IsPrecached tells whether Precache ran
func (e *BaseEntity) IsPrecached() bool {
	return e.precached
}

// IsSpawned tells whether DispatchSpawn ran
func (e *BaseEntity) IsSpawned() bool {
	return e.spawned
}

// IsActivated tells whether Activate ran
func (e *BaseEntity) IsActivated() bool {
	return e.activated
}

// IsMarkedForDeletion tells whether the entity was removed
func (e *BaseEntity) IsMarkedForDeletion() bool {
	return e.markedForDeletion
}

// Remove removes the entity at the end of the frame, UpdateOnRemove is called immediately
func (e *BaseEntity) Remove() {
	if e.markedForDeletion {
		return
	}
	if e.world != nil {
		e.world.Remove(e.I)
		return
	}
	e.markedForDeletion = true
	e.I.UpdateOnRemove()
}

// AddCallback calls cb after d, the callback is cancelled when the entity is removed
func (e *BaseEntity) AddCallback(d time.Duration, cb func()) *timer.Timer {
	var t *timer.Timer
	t = timer.AddCallback(d, func() {
		delete(e.rawTimers, t)
		if !e.markedForDeletion {
			cb()
		}
	})
	e.rawTimers[t] = struct{}{}
	return t
}

// CancelCallback cancels a callback added by AddCallback
func (e *BaseEntity) CancelCallback(t *timer.Timer) {
	delete(e.rawTimers, t)
	t.Cancel()
}

func (e *BaseEntity) clearRawTimers() {
	for t := range e.rawTimers {
		t.Cancel()
	}
	e.rawTimers = map[*timer.Timer]struct{}{}
}

// TakeDamage applies the damage filter, then OnTakeDamage
func (e *BaseEntity) TakeDamage(info *TakeDamageInfo) int {
	if info == nil || !e.I.PassesDamageFilter(info) {
		return 0
	}
	return e.I.OnTakeDamage(info)
}

// TraceAttack deals the damage of a trace hit, through the accumulator if it is not nil
func (e *BaseEntity) TraceAttack(info *TakeDamageInfo, dir Vector3, tr *Trace, accumulator *MultiDamage) {
	if e.takeDamage == DAMAGE_NO || info == nil {
		return
	}
	if tr != nil {
		info.DamagePosition = tr.EndPos
	}
	if info.DamageForce.IsZero() {
		info.DamageForce = dir.Normalized().Mul(Coord(info.Damage))
	}
	if accumulator != nil {
		accumulator.Add(info, e.I)
		return
	}
	e.TakeDamage(info)
}

// EntityText draws a debug text line next to the entity
func (e *BaseEntity) EntityText(line int, text string) {
	if e.world != nil {
		e.world.effects.DebugText(e.I, line, text)
	}
}

// Native implementations of the virtual surface

// Spawn is called by DispatchSpawn after keyvalues are applied
func (e *BaseEntity) Spawn() {
	e.I.Precache()
}

// Precache loads resources used by the entity
func (e *BaseEntity) Precache() {
	e.precached = true
}

// Activate is called after all entities of a map are spawned
func (e *BaseEntity) Activate() {
	e.activated = true
}

// PostClientActive is called after the first client is active
func (e *BaseEntity) PostClientActive() {
}

// UpdateOnRemove cleans up the entity when it is removed
func (e *BaseEntity) UpdateOnRemove() {
	e.clearRawTimers()
	if e.world != nil {
		e.world.endTouches(e)
	}
}

// OnRestore is called after the entity is restored
func (e *BaseEntity) OnRestore() {
}

// StopLoopingSounds stops the sounds of the entity
func (e *BaseEntity) StopLoopingSounds() {
}

// PostConstructor is called right after the entity is created by name
func (e *BaseEntity) PostConstructor(className string) {
	e.className = className
}

// KeyValue applies a keyvalue, returns false for unknown keys
func (e *BaseEntity) KeyValue(key string, value string) bool {
	switch strings.ToLower(key) {
	case "classname":
		e.className = value
	case "targetname":
		e.targetName = value
	case "origin":
		v, err := ParseVector3(value)
		if err != nil {
			gwlog.Warnf("%s: bad origin: %s", e, err)
			return false
		}
		e.SetOrigin(v)
	case "angles":
		v, err := ParseVector3(value)
		if err != nil {
			gwlog.Warnf("%s: bad angles: %s", e, err)
			return false
		}
		e.angles = v
	case "mins", "maxs":
		v, err := ParseVector3(value)
		if err != nil {
			gwlog.Warnf("%s: bad %s: %s", e, key, err)
			return false
		}
		if strings.EqualFold(key, "mins") {
			e.mins = v
		} else {
			e.maxs = v
		}
	case "spawnflags":
		n, ok := atoi(value)
		if !ok {
			return false
		}
		e.spawnFlags = n
	case "health":
		n, ok := atoi(value)
		if !ok {
			return false
		}
		e.health = n
		if e.maxHealth < n {
			e.maxHealth = n
		}
	case "max_health":
		n, ok := atoi(value)
		if !ok {
			return false
		}
		e.maxHealth = n
	case "effects":
		n, ok := atoi(value)
		if !ok {
			return false
		}
		e.effects = n
	case "damagefilter":
		e.damageFilterName = value
	default:
		if output := e.Output(key); output != nil {
			if err := output.AddConnectionString(value); err != nil {
				gwlog.Warnf("%s: bad output %s: %s", e, key, err)
				return false
			}
			return true
		}
		return false
	}
	return true
}

// KeyValueFloat applies a float keyvalue through KeyValue
func (e *BaseEntity) KeyValueFloat(key string, value float32) bool {
	return e.I.KeyValue(key, fmt.Sprintf("%f", value))
}

// KeyValueVector applies a vector keyvalue through KeyValue
func (e *BaseEntity) KeyValueVector(key string, value Vector3) bool {
	return e.I.KeyValue(key, value.KeyValueString())
}

// KeyValueVectorRef applies a vector keyvalue passed by reference
func (e *BaseEntity) KeyValueVectorRef(key string, value *Vector3) bool {
	if value == nil {
		return false
	}
	return e.I.KeyValue(key, value.KeyValueString())
}

// OnTakeDamage subtracts health, the entity is killed when health drops to 0
func (e *BaseEntity) OnTakeDamage(info *TakeDamageInfo) int {
	if info == nil || e.takeDamage == DAMAGE_NO {
		return 0
	}
	if e.takeDamage == DAMAGE_EVENTS_ONLY {
		return 0
	}
	e.health -= int(info.Damage)
	if e.health <= 0 && e.lifeState == LIFE_ALIVE {
		e.I.EventKilled(info)
		return 0
	}
	return 1
}

// PassesDamageFilter asks the damage filter entity, if any, whether the damage applies
func (e *BaseEntity) PassesDamageFilter(info *TakeDamageInfo) bool {
	filter := e.DamageFilter()
	if filter == nil {
		return true
	}
	return filter.PassesDamageFilter(info)
}

// DamageFilter returns the damage filter entity named by the damagefilter keyvalue
func (e *BaseEntity) DamageFilter() IEntity {
	if e.damageFilterName == "" || e.world == nil {
		return nil
	}
	return e.world.FindEntityByName(nil, e.damageFilterName)
}

// EventKilled marks the entity dead, notifies the owner and removes the entity
func (e *BaseEntity) EventKilled(info *TakeDamageInfo) {
	var attacker IEntity
	if info != nil {
		attacker = info.Attacker
	}
	e.takeDamage = DAMAGE_NO
	e.lifeState = LIFE_DEAD
	e.FireOutput("OnKilled", attacker, e.I)
	if e.owner != nil {
		e.owner.DeathNotice(e.I)
	}
	e.Remove()
}

// DeathNotice is called when an entity owned by e is killed
func (e *BaseEntity) DeathNotice(victim IEntity) {
}

// CreateVPhysics creates the physics object, plain entities have none
func (e *BaseEntity) CreateVPhysics() bool {
	return false
}

// VPhysicsCollision receives physics collisions
func (e *BaseEntity) VPhysicsCollision(index int, event *CollisionEvent) {
	e.lastCollision = event
}

// ComputeWorldSpaceSurroundingBox stores the world space bounding box to worldMins and worldMaxs
func (e *BaseEntity) ComputeWorldSpaceSurroundingBox(worldMins, worldMaxs *Vector3) {
	mins, maxs := e.AbsBox()
	if worldMins != nil {
		*worldMins = mins
	}
	if worldMaxs != nil {
		*worldMaxs = maxs
	}
}

// DoImpactEffect draws the impact of a trace hitting the entity
func (e *BaseEntity) DoImpactEffect(tr *Trace, damageType int) {
	if e.world != nil && tr != nil {
		e.world.effects.ImpactEffect(e.I, tr, damageType)
	}
}

// MakeTracer draws a tracer from tracerSrc to the end of the trace
func (e *BaseEntity) MakeTracer(tracerSrc Vector3, tr *Trace, tracerType int) {
	if e.world == nil || tr == nil || tracerType == TRACER_NONE {
		return
	}
	e.world.effects.Tracer(e.I, tracerSrc, tr.EndPos, e.I.GetTracerType(), tracerType)
}

// GetTracerType returns the tracer effect name, empty for the default tracer
func (e *BaseEntity) GetTracerType() string {
	return ""
}

// UpdateTransmitState computes whether the entity is sent to clients
func (e *BaseEntity) UpdateTransmitState() int {
	state := FL_EDICT_PVSCHECK
	if e.effects&EF_NODRAW != 0 {
		state = FL_EDICT_DONTSEND
	}
	if e.debugOverlays != 0 {
		state = FL_EDICT_ALWAYS
	}
	e.transmitState = state
	return state
}

// DrawDebugGeometryOverlays draws the bounding box and name overlays
func (e *BaseEntity) DrawDebugGeometryOverlays() {
	if e.world == nil {
		return
	}
	if e.debugOverlays&OVERLAY_BBOX_BIT != 0 {
		mins, maxs := e.AbsBox()
		e.world.effects.DebugBox(e.I, mins, maxs)
	}
	if e.debugOverlays&OVERLAY_NAME_BIT != 0 {
		e.EntityText(0, e.className)
	}
}

// DrawDebugTextOverlays draws the text overlay and returns the number of lines used
func (e *BaseEntity) DrawDebugTextOverlays() int {
	offset := 0
	if e.debugOverlays&OVERLAY_TEXT_BIT != 0 {
		e.EntityText(offset, fmt.Sprintf("(%d) Name: %s (%s)", e.index, e.targetName, e.className))
		offset += 1
		e.EntityText(offset, fmt.Sprintf("Position: %s", e.origin))
		offset += 1
		if e.takeDamage != DAMAGE_NO {
			e.EntityText(offset, fmt.Sprintf("Health: %d", e.health))
			offset += 1
		}
	}
	return offset
}

// ModifyOrAppendCriteria appends the response criteria of the entity
func (e *BaseEntity) ModifyOrAppendCriteria(set *CriteriaSet) {
	if set == nil {
		return
	}
	set.AppendCriteria("classname", e.className)
	set.AppendCriteria("name", e.targetName)
	set.AppendCriteriaInt("health", e.health)
	if e.maxHealth > 0 {
		set.AppendCriteria("healthfrac", fmt.Sprintf("%.3f", float32(e.health)/float32(e.maxHealth)))
	}
	set.AppendCriteriaInt("spawnflags", e.spawnFlags)
}

// StartTouch is called when other starts touching the entity
func (e *BaseEntity) StartTouch(other IEntity) {
}

// EndTouch is called when other stops touching the entity
func (e *BaseEntity) EndTouch(other IEntity) {
}

// OnEnterAOI is called by the touch manager when other gets close
func (e *BaseEntity) OnEnterAOI(otherAoi *aoi.AOI) {
	other := otherAoi.Data.(*BaseEntity)
	e.neighbors.Add(other)
	other.neighbors.Add(e)
}

// OnLeaveAOI is called by the touch manager when other gets away
func (e *BaseEntity) OnLeaveAOI(otherAoi *aoi.AOI) {
	other := otherAoi.Data.(*BaseEntity)
	e.neighbors.Del(other)
	other.neighbors.Del(e)
}

// atoi parses integer keyvalues, accepting floats such as "10.000000"
func atoi(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}
