package entity

import (
	"strings"

	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// Trigger spawn flags
const (
	SF_TRIGGER_ALLOW_CLIENTS   = 0x01
	SF_TRIGGER_ALLOW_NPCS      = 0x02
	SF_TRIGGER_ALLOW_PUSHABLES = 0x04
	SF_TRIGGER_ALLOW_PHYSICS   = 0x08
	SF_TRIGGER_ALLOW_ALL       = 0x40
	SF_TRIGGER_DISALLOW_BOTS   = 0x1000
)

// BaseTrigger is CBaseTrigger, a volume that tracks the entities touching it
type BaseTrigger struct {
	BaseToggle

	disabled   bool
	filterName string
	filter     *Handle
	touching   []*Handle
}

// NewBaseTrigger creates a detached CBaseTrigger
func NewBaseTrigger() *BaseTrigger {
	t := &BaseTrigger{}
	t.setupTrigger(t)
	return t
}

func (t *BaseTrigger) setupTrigger(impl IEntity) {
	t.setupToggle(impl)
	for _, output := range []string{"OnStartTouch", "OnStartTouchAll", "OnEndTouch", "OnEndTouchAll", "OnTouching", "OnNotTouching"} {
		t.DeclareOutput(output)
	}
	t.DeclareInput("Enable", func(data *InputData) { t.Enable() })
	t.DeclareInput("Disable", func(data *InputData) { t.Disable() })
	t.DeclareInput("Toggle", func(data *InputData) {
		if t.disabled {
			t.Enable()
		} else {
			t.Disable()
		}
	})
	t.DeclareInput("StartTouch", func(data *InputData) {
		if !isNilEntity(data.Caller) {
			t.I.StartTouch(data.Caller)
		}
	})
	t.DeclareInput("EndTouch", func(data *InputData) {
		if !isNilEntity(data.Caller) {
			t.I.EndTouch(data.Caller)
		}
	})
	t.DeclareInput("TouchTest", func(data *InputData) { t.TouchTest() })
}

func (t *BaseTrigger) trigger() *BaseTrigger {
	return t
}

// AsTrigger returns the CBaseTrigger part of the entity, nil if it is not a trigger
func AsTrigger(e IEntity) *BaseTrigger {
	if isNilEntity(e) {
		return nil
	}
	if t, ok := e.Base().native.(interface{ trigger() *BaseTrigger }); ok {
		return t.trigger()
	}
	return nil
}

// IsDisabled tells whether the trigger ignores touches
func (t *BaseTrigger) IsDisabled() bool {
	return t.disabled
}

// FilterName returns the name of the filter entity
func (t *BaseTrigger) FilterName() string {
	return t.filterName
}

// Spawn initializes the trigger volume
func (t *BaseTrigger) Spawn() {
	t.BaseToggle.Spawn()
	t.InitTrigger()
}

// InitTrigger makes the entity a non solid, invisible trigger volume
func (t *BaseTrigger) InitTrigger() {
	t.AddSolidFlags(FSOLID_NOT_SOLID)
	if t.disabled {
		t.RemoveSolidFlags(FSOLID_TRIGGER)
	} else {
		t.AddSolidFlags(FSOLID_TRIGGER)
	}
	t.AddEffects(EF_NODRAW)
	t.touching = nil
	t.I.CreateVPhysics()
}

// KeyValue handles StartDisabled and filtername
func (t *BaseTrigger) KeyValue(key string, value string) bool {
	switch strings.ToLower(key) {
	case "startdisabled":
		n, ok := atoi(value)
		if !ok {
			return false
		}
		t.disabled = n != 0
		return true
	case "filtername":
		t.filterName = value
		return true
	}
	return t.BaseToggle.KeyValue(key, value)
}

// Activate resolves the filter entity
func (t *BaseTrigger) Activate() {
	t.resolveFilter()
	t.BaseToggle.Activate()
}

func (t *BaseTrigger) resolveFilter() {
	t.filter = nil
	if t.filterName == "" || t.world == nil {
		return
	}
	f := t.world.FindEntityByName(nil, t.filterName)
	if AsFilter(f) == nil {
		gwlog.Warnf("%s: filter %s not found", t, t.filterName)
		return
	}
	t.filter = ToScript(f)
}

// Filter returns the filter entity, nil if none
func (t *BaseTrigger) Filter() EntityFilter {
	return AsFilter(t.filter.Entity())
}

// UsesFilter tells whether the trigger has a filter entity
func (t *BaseTrigger) UsesFilter() bool {
	return t.Filter() != nil
}

// Enable makes the trigger receive touches again
func (t *BaseTrigger) Enable() {
	t.disabled = false
	if !t.IsTrigger() {
		t.AddSolidFlags(FSOLID_TRIGGER)
	}
}

// Disable ends all touches and makes the trigger ignore further touches
func (t *BaseTrigger) Disable() {
	t.disabled = true
	if !t.IsTrigger() {
		return
	}
	t.RemoveSolidFlags(FSOLID_TRIGGER)
	if t.world != nil {
		t.world.endTouches(&t.BaseEntity)
	}
	for _, h := range append([]*Handle(nil), t.touching...) {
		if other := h.Entity(); other != nil {
			t.I.EndTouch(other)
		}
	}
	t.touching = nil
}

// TouchTest fires OnTouching if anything touches the trigger, OnNotTouching otherwise
func (t *BaseTrigger) TouchTest() {
	if t.countTouching() > 0 {
		t.FireOutput("OnTouching", t.I, t.I)
	} else {
		t.FireOutput("OnNotTouching", t.I, t.I)
	}
}

func (t *BaseTrigger) countTouching() int {
	n := 0
	for _, h := range t.touching {
		if h.IsValid() {
			n += 1
		}
	}
	return n
}

// IsTouching tells whether other is in the touching list
func (t *BaseTrigger) IsTouching(other IEntity) bool {
	h := ToScript(other)
	if h == nil {
		return false
	}
	for _, touching := range t.touching {
		if touching == h {
			return true
		}
	}
	return false
}

// Touching returns the live entities touching the trigger
func (t *BaseTrigger) Touching() []IEntity {
	var res []IEntity
	for _, h := range t.touching {
		if e := h.Entity(); e != nil {
			res = append(res, e)
		}
	}
	return res
}

// GetTouchedEntityOfType returns the first touching entity of the class
func (t *BaseTrigger) GetTouchedEntityOfType(className string) IEntity {
	for _, h := range t.touching {
		if e := h.Entity(); e != nil && e.Base().className == className {
			return e
		}
	}
	return nil
}

// PassesTriggerFilters tells whether other can activate the trigger
func (t *BaseTrigger) PassesTriggerFilters(other IEntity) bool {
	if isNilEntity(other) {
		return false
	}
	o := other.Base()
	allowed := t.HasSpawnFlags(SF_TRIGGER_ALLOW_ALL) ||
		(t.HasSpawnFlags(SF_TRIGGER_ALLOW_CLIENTS) && o.flags&FL_CLIENT != 0) ||
		(t.HasSpawnFlags(SF_TRIGGER_ALLOW_NPCS) && o.flags&FL_NPC != 0) ||
		(t.HasSpawnFlags(SF_TRIGGER_ALLOW_PUSHABLES) && o.className == "func_pushable") ||
		(t.HasSpawnFlags(SF_TRIGGER_ALLOW_PHYSICS) && o.vphysics)
	if !allowed {
		return false
	}
	if o.flags&FL_FAKECLIENT != 0 && t.HasSpawnFlags(SF_TRIGGER_DISALLOW_BOTS) {
		return false
	}
	filter := t.Filter()
	return filter == nil || filter.PassesFilter(t.I, other)
}

// PointIsWithin tells whether the point is inside the trigger volume
func (t *BaseTrigger) PointIsWithin(point Vector3) bool {
	mins, maxs := t.AbsBox()
	return point.X >= mins.X && point.X <= maxs.X &&
		point.Y >= mins.Y && point.Y <= maxs.Y &&
		point.Z >= mins.Z && point.Z <= maxs.Z
}

// TraceAttackDamage is the TraceAttack(attacker, damage, dir, tr, bits) form of TraceAttack
func (t *BaseTrigger) TraceAttackDamage(attacker IEntity, damage float32, dir Vector3, tr *Trace, damageType int) {
	info := &TakeDamageInfo{
		Inflictor:  attacker,
		Attacker:   attacker,
		Damage:     damage,
		DamageType: damageType,
	}
	t.TraceAttack(info, dir, tr, nil)
}

// StartTouch adds other to the touching list and fires the touch outputs
func (t *BaseTrigger) StartTouch(other IEntity) {
	if !t.PassesTriggerFilters(other) {
		return
	}
	added := false
	if !t.IsTouching(other) {
		t.touching = append(t.touching, ToScript(other))
		added = true
	}
	t.FireOutput("OnStartTouch", other, t.I)
	if added && len(t.touching) == 1 {
		t.FireOutput("OnStartTouchAll", other, t.I)
	}
}

// EndTouch removes other from the touching list and fires the end touch outputs
func (t *BaseTrigger) EndTouch(other IEntity) {
	if !t.IsTouching(other) {
		return
	}
	h := ToScript(other)
	live := t.touching[:0]
	foundOther := false
	for _, touching := range t.touching {
		if touching == h || !touching.IsValid() {
			continue
		}
		if e := touching.ent; e.flags&FL_CLIENT != 0 && !e.IsAlive() {
			continue
		}
		live = append(live, touching)
		foundOther = true
	}
	for i := len(live); i < len(t.touching); i++ {
		t.touching[i] = nil
	}
	t.touching = live

	t.FireOutput("OnEndTouch", other, t.I)
	if !foundOther {
		t.FireOutput("OnEndTouchAll", other, t.I)
	}
}

// UpdateOnRemove drops the touching list
func (t *BaseTrigger) UpdateOnRemove() {
	t.vphysics = false
	t.BaseToggle.UpdateOnRemove()
	t.touching = nil
}

// CreateVPhysics creates the static trigger physics object
func (t *BaseTrigger) CreateVPhysics() bool {
	t.vphysics = true
	return true
}

// UpdateTransmitState keeps triggers off the wire unless debug overlays are on
func (t *BaseTrigger) UpdateTransmitState() int {
	state := FL_EDICT_DONTSEND
	if t.debugOverlays != 0 {
		state = FL_EDICT_ALWAYS
	}
	t.transmitState = state
	return state
}

// DrawDebugTextOverlays adds the enabled state to the entity text overlay
func (t *BaseTrigger) DrawDebugTextOverlays() int {
	offset := t.BaseToggle.DrawDebugTextOverlays()
	if t.debugOverlays&OVERLAY_TEXT_BIT != 0 {
		state := "ENABLED"
		if t.disabled {
			state = "DISABLED"
		}
		t.EntityText(offset, state)
		offset += 1
	}
	return offset
}
