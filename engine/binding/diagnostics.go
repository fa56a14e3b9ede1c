package binding

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// FaultPolicy decides what happens after a script override faults
type FaultPolicy int

const (
	// FaultFallback reports the fault and runs the native implementation instead
	FaultFallback FaultPolicy = iota
	// FaultPropagate reports the fault and panics with the *ScriptFault
	FaultPropagate
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultFallback:
		return "fallback"
	case FaultPropagate:
		return "propagate"
	}
	return "unknown"
}

// ParseFaultPolicy converts the config value to a FaultPolicy
func ParseFaultPolicy(s string) (FaultPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fallback":
		return FaultFallback, nil
	case "propagate":
		return FaultPropagate, nil
	}
	return FaultFallback, errors.Errorf("unknown fault policy: %q", s)
}

// Diagnostics receives every script fault, exactly once per fault
type Diagnostics interface {
	ReportFault(fault *ScriptFault)
}

// DiagnosticsFunc adapts a function to Diagnostics
type DiagnosticsFunc func(fault *ScriptFault)

// ReportFault calls f(fault)
func (f DiagnosticsFunc) ReportFault(fault *ScriptFault) {
	f(fault)
}

// LogDiagnostics reports faults to gwlog
type LogDiagnostics struct{}

// ReportFault logs the fault, with the script stack if the script panicked
func (LogDiagnostics) ReportFault(fault *ScriptFault) {
	if stack := fault.Stack(); stack != nil {
		gwlog.Errorf("%s\n%s", fault, stack)
	} else {
		gwlog.Errorf("%s", fault)
	}
}
