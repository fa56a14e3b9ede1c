package entity

import (
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// EffectSink receives the visual effects and debug overlays entities produce
type EffectSink interface {
	ImpactEffect(e IEntity, tr *Trace, damageType int)
	Tracer(e IEntity, start Vector3, end Vector3, tracerName string, tracerType int)
	DebugBox(e IEntity, mins Vector3, maxs Vector3)
	DebugText(e IEntity, line int, text string)
}

// LogEffects is the EffectSink of headless hosts, writing effects to the debug log
type LogEffects struct{}

// ImpactEffect logs an impact
func (LogEffects) ImpactEffect(e IEntity, tr *Trace, damageType int) {
	gwlog.Debugf("effect: impact on %s at %s, damage type %d", entityString(e), tr.EndPos, damageType)
}

// Tracer logs a tracer
func (LogEffects) Tracer(e IEntity, start Vector3, end Vector3, tracerName string, tracerType int) {
	gwlog.Debugf("effect: tracer %q (%d) from %s to %s by %s", tracerName, tracerType, start, end, entityString(e))
}

// DebugBox logs a debug box
func (LogEffects) DebugBox(e IEntity, mins Vector3, maxs Vector3) {
	gwlog.Debugf("overlay: %s box %s - %s", entityString(e), mins, maxs)
}

// DebugText logs a debug text line
func (LogEffects) DebugText(e IEntity, line int, text string) {
	gwlog.Debugf("overlay: %s [%d] %s", entityString(e), line, text)
}
