// Package gwvar publishes host state through expvar
package gwvar

import "expvar"

// Bool is a boolean expvar
type Bool struct {
	val *expvar.Int
}

// NewBool publishes a new boolean var
func NewBool(name string) *Bool {
	return &Bool{
		val: expvar.NewInt(name),
	}
}

// Value returns the value
func (b *Bool) Value() bool {
	return b.val.Value() > 0
}

// Set sets the value
func (b *Bool) Set(v bool) {
	if v {
		b.val.Set(1)
	} else {
		b.val.Set(0)
	}
}

var (
	IsHostRunning = NewBool("gwscript.IsHostRunning")
	NumEntities   = expvar.NewInt("gwscript.NumEntities")
	ScriptFaults  = expvar.NewInt("gwscript.ScriptFaults")
	ScriptReloads = expvar.NewInt("gwscript.ScriptReloads")

	ProcessRSS        = expvar.NewInt("gwscript.ProcessRSS")
	ProcessCPUPercent = expvar.NewFloat("gwscript.ProcessCPUPercent")
)
