package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// Toggle states
const (
	TS_AT_TOP = iota
	TS_AT_BOTTOM
	TS_GOING_UP
	TS_GOING_DOWN
)

// BaseToggle is CBaseToggle, the base of entities that move between two positions
type BaseToggle struct {
	BaseEntity

	toggleState  int
	lip          float32
	wait         float32
	moveDistance float32
	speed        float32
	moveDir      Vector3
	finalDest    Vector3
	moveTimer    *timer.Timer
}

// NewBaseToggle creates a detached CBaseToggle
func NewBaseToggle() *BaseToggle {
	t := &BaseToggle{}
	t.setupToggle(t)
	return t
}

func (t *BaseToggle) setupToggle(impl IEntity) {
	t.setupBase(impl)
	t.toggleState = TS_AT_BOTTOM
	t.DeclareOutput("OnMoveDone")
}

func (t *BaseToggle) toggle() *BaseToggle {
	return t
}

// AsToggle returns the CBaseToggle part of the entity, nil if it is not a toggle
func AsToggle(e IEntity) *BaseToggle {
	if isNilEntity(e) {
		return nil
	}
	if t, ok := e.Base().native.(interface{ toggle() *BaseToggle }); ok {
		return t.toggle()
	}
	return nil
}

// ToggleState returns one of TS_AT_TOP ... TS_GOING_DOWN
func (t *BaseToggle) ToggleState() int {
	return t.toggleState
}

// SetToggleState sets the toggle state
func (t *BaseToggle) SetToggleState(state int) {
	t.toggleState = state
}

// Lip returns the lip keyvalue
func (t *BaseToggle) Lip() float32 {
	return t.lip
}

// Wait returns the wait keyvalue in seconds, -1 means never return
func (t *BaseToggle) Wait() float32 {
	return t.wait
}

// SetWait sets the wait in seconds
func (t *BaseToggle) SetWait(wait float32) {
	t.wait = wait
}

// MoveDistance returns the distance keyvalue
func (t *BaseToggle) MoveDistance() float32 {
	return t.moveDistance
}

// Speed returns the move speed
func (t *BaseToggle) Speed() float32 {
	return t.speed
}

// MoveDir returns the move direction
func (t *BaseToggle) MoveDir() Vector3 {
	return t.moveDir
}

// FinalDest returns the destination of the current or last move
func (t *BaseToggle) FinalDest() Vector3 {
	return t.finalDest
}

// IsMoving tells whether a LinearMove is in progress
func (t *BaseToggle) IsMoving() bool {
	return t.moveTimer != nil
}

// KeyValue handles lip, wait, speed, distance and movedir
func (t *BaseToggle) KeyValue(key string, value string) bool {
	switch strings.ToLower(key) {
	case "lip", "wait", "speed", "distance":
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			gwlog.Warnf("%s: bad %s: %q", t, key, value)
			return false
		}
		return t.setToggleFloat(key, float32(f))
	case "movedir":
		v, err := ParseVector3(value)
		if err != nil {
			gwlog.Warnf("%s: bad movedir: %s", t, err)
			return false
		}
		t.moveDir = v
		return true
	}
	return t.BaseEntity.KeyValue(key, value)
}

// KeyValueFloat handles the float keyvalues of toggles directly
func (t *BaseToggle) KeyValueFloat(key string, value float32) bool {
	if t.setToggleFloat(key, value) {
		return true
	}
	return t.BaseEntity.KeyValueFloat(key, value)
}

// KeyValueVector handles movedir directly
func (t *BaseToggle) KeyValueVector(key string, value Vector3) bool {
	if strings.EqualFold(key, "movedir") {
		t.moveDir = value
		return true
	}
	return t.BaseEntity.KeyValueVector(key, value)
}

func (t *BaseToggle) setToggleFloat(key string, value float32) bool {
	switch strings.ToLower(key) {
	case "lip":
		t.lip = value
	case "wait":
		t.wait = value
	case "speed":
		t.speed = value
	case "distance":
		t.moveDistance = value
	default:
		return false
	}
	return true
}

// LinearMove moves the entity to dest at speed units per second, MoveDone is called on arrival
func (t *BaseToggle) LinearMove(dest Vector3, speed float32) {
	if speed <= 0 {
		gwlog.Errorf("%s: LinearMove with speed %v", t, speed)
		return
	}
	if t.moveTimer != nil {
		t.CancelCallback(t.moveTimer)
		t.moveTimer = nil
	}
	t.finalDest = dest

	distance := dest.Sub(t.origin).Length()
	if distance == 0 {
		t.MoveDone()
		return
	}
	travel := time.Duration(float64(distance) / float64(speed) * float64(time.Second))
	t.moveTimer = t.AddCallback(travel, t.MoveDone)
}

// MoveDone finishes the current move: the entity is put at the final destination and OnMoveDone fires
func (t *BaseToggle) MoveDone() {
	t.moveTimer = nil
	t.SetOrigin(t.finalDest)
	switch t.toggleState {
	case TS_GOING_UP:
		t.toggleState = TS_AT_TOP
	case TS_GOING_DOWN:
		t.toggleState = TS_AT_BOTTOM
	}
	t.FireOutput("OnMoveDone", t.I, t.I)
}
