package entity

import (
	"time"

	"github.com/xiaonanln/goTimer"
)

const _DEFAULT_TRIGGER_MULTIPLE_WAIT = 0.2

// TriggerMultiple is trigger_multiple: fires OnTrigger when touched, then waits before it can fire again
type TriggerMultiple struct {
	BaseTrigger

	activator *Handle
	waitTimer *timer.Timer
	spent     bool
}

// NewTriggerMultiple creates a trigger_multiple
func NewTriggerMultiple() *TriggerMultiple {
	t := &TriggerMultiple{}
	t.setupTriggerMultiple(t)
	return t
}

func (t *TriggerMultiple) setupTriggerMultiple(impl IEntity) {
	t.setupTrigger(impl)
	t.DeclareOutput("OnTrigger")
}

// Spawn initializes the trigger, a zero wait becomes the default wait
func (t *TriggerMultiple) Spawn() {
	t.BaseTrigger.Spawn()
	if t.wait == 0 {
		t.wait = _DEFAULT_TRIGGER_MULTIPLE_WAIT
	}
}

// StartTouch activates the trigger for entities passing the trigger filters
func (t *TriggerMultiple) StartTouch(other IEntity) {
	t.BaseTrigger.StartTouch(other)
	if t.PassesTriggerFilters(other) {
		t.ActivateMultiTrigger(other)
	}
}

// IsWaiting tells whether the trigger is waiting before it can fire again
func (t *TriggerMultiple) IsWaiting() bool {
	return t.waitTimer != nil || t.spent
}

// Activator returns the entity that fired the trigger last
func (t *TriggerMultiple) Activator() IEntity {
	return t.activator.Entity()
}

// ActivateMultiTrigger fires OnTrigger, then waits, or removes the trigger when wait is negative
func (t *TriggerMultiple) ActivateMultiTrigger(activator IEntity) {
	if t.IsWaiting() {
		return
	}
	t.activator = ToScript(activator)
	t.FireOutput("OnTrigger", activator, t.I)

	if t.wait > 0 {
		t.waitTimer = t.AddCallback(time.Duration(float64(t.wait)*float64(time.Second)), t.multiWaitOver)
		return
	}
	t.spent = true
	if t.world != nil {
		t.world.Post(t.Remove)
	} else {
		t.Remove()
	}
}

func (t *TriggerMultiple) multiWaitOver() {
	t.waitTimer = nil
}

// TriggerOnce is trigger_once: a trigger_multiple that removes itself after firing
type TriggerOnce struct {
	TriggerMultiple
}

// NewTriggerOnce creates a trigger_once
func NewTriggerOnce() *TriggerOnce {
	t := &TriggerOnce{}
	t.setupTriggerMultiple(t)
	return t
}

// Spawn initializes the trigger to fire only once
func (t *TriggerOnce) Spawn() {
	t.TriggerMultiple.Spawn()
	t.wait = -1
}
