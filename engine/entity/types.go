package entity

import (
	"sort"
	"strconv"
)

// Life states of entities, the lifestate script property accepts these values
const (
	LIFE_ALIVE = iota
	LIFE_DYING
	LIFE_DEAD
	LIFE_RESPAWNABLE
	LIFE_DISCARDBODY
)

// Damage acceptance of entities, the takedamage script property accepts these values
const (
	DAMAGE_NO = iota
	DAMAGE_EVENTS_ONLY
	DAMAGE_YES
	DAMAGE_AIM
)

// Entity flags
const (
	FL_CLIENT = 1 << iota
	FL_NPC
	FL_FAKECLIENT
	FL_WORLDBRUSH
)

// Solid flags
const (
	FSOLID_NOT_SOLID = 1 << iota
	FSOLID_TRIGGER
)

// Effects
const (
	EF_NODRAW = 1 << iota
)

// Transmit states returned by UpdateTransmitState
const (
	FL_EDICT_ALWAYS   = 1 << 3
	FL_EDICT_DONTSEND = 1 << 4
	FL_EDICT_PVSCHECK = 1 << 5
)

// Debug overlay bits
const (
	OVERLAY_TEXT_BIT = 1 << iota
	OVERLAY_NAME_BIT
	OVERLAY_BBOX_BIT
)

// Tracer types
const (
	TRACER_NONE = iota
	TRACER_LINE
	TRACER_RAIL
	TRACER_BEAM
	TRACER_LINE_AND_WHIZ
)

// Damage types
const (
	DMG_GENERIC = 0
	DMG_CRUSH   = 1 << (iota - 1)
	DMG_BULLET
	DMG_SLASH
	DMG_BURN
	DMG_BLAST = 1 << 6
)

// TakeDamageInfo describes one damage event
type TakeDamageInfo struct {
	Inflictor      IEntity
	Attacker       IEntity
	Damage         float32
	DamageType     int
	DamagePosition Vector3
	DamageForce    Vector3
}

// Trace is the result of a ray or hull trace
type Trace struct {
	StartPos Vector3
	EndPos   Vector3
	Normal   Vector3
	Fraction float32
	HitGroup int
	Entity   IEntity
}

// CollisionEvent describes a physics collision between two entities
type CollisionEvent struct {
	Entities     [2]IEntity
	PreVelocity  [2]Vector3
	PostVelocity [2]Vector3
	Normal       Vector3
	Position     Vector3
	Speed        float32
}

// MultiDamage accumulates the damage of several traces against one target
type MultiDamage struct {
	Target     IEntity
	Inflictor  IEntity
	Attacker   IEntity
	Damage     float32
	DamageType int
	Count      int
}

// Add accumulates info against target, the previous target is applied first if it differs
func (md *MultiDamage) Add(info *TakeDamageInfo, target IEntity) {
	if target == nil {
		return
	}
	if md.Target != nil && md.Target != target {
		md.Apply()
	}
	md.Target = target
	md.Inflictor = info.Inflictor
	md.Attacker = info.Attacker
	md.Damage += info.Damage
	md.DamageType |= info.DamageType
	md.Count += 1
}

// Apply deals the accumulated damage to the target and resets the accumulator
func (md *MultiDamage) Apply() int {
	target := md.Target
	info := &TakeDamageInfo{
		Inflictor:  md.Inflictor,
		Attacker:   md.Attacker,
		Damage:     md.Damage,
		DamageType: md.DamageType,
	}
	*md = MultiDamage{}
	if target == nil || info.Damage == 0 {
		return 0
	}
	return target.OnTakeDamage(info)
}

// CriteriaSet holds response criteria appended by ModifyOrAppendCriteria
type CriteriaSet struct {
	values map[string]string
}

// NewCriteriaSet creates an empty criteria set
func NewCriteriaSet() *CriteriaSet {
	return &CriteriaSet{values: map[string]string{}}
}

// AppendCriteria sets the criterion, replacing an existing value
func (cs *CriteriaSet) AppendCriteria(name string, value string) {
	if cs.values == nil {
		cs.values = map[string]string{}
	}
	cs.values[name] = value
}

// AppendCriteriaInt sets an integer criterion
func (cs *CriteriaSet) AppendCriteriaInt(name string, value int) {
	cs.AppendCriteria(name, strconv.Itoa(value))
}

// Lookup returns the value of a criterion
func (cs *CriteriaSet) Lookup(name string) (string, bool) {
	v, ok := cs.values[name]
	return v, ok
}

// RemoveCriteria removes a criterion
func (cs *CriteriaSet) RemoveCriteria(name string) {
	delete(cs.values, name)
}

// Count returns the number of criteria
func (cs *CriteriaSet) Count() int {
	return len(cs.values)
}

// Names returns the sorted criterion names
func (cs *CriteriaSet) Names() []string {
	names := make([]string, 0, len(cs.values))
	for name := range cs.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InputData is passed to input handlers
type InputData struct {
	Activator IEntity
	Caller    IEntity
	Value     string
}
