package binding

import (
	"fmt"

	"github.com/xiaonanln/gwscript/engine/gwutils"
)

// RegistrationError is returned when a type or function can not be registered
//
// A registration error leaves the context unusable for the offending type, callers should stop startup.
type RegistrationError struct {
	Type   string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("binding registration of %s failed: %s", e.Type, e.Reason)
}

func registrationErrorf(typeName string, format string, args ...interface{}) *RegistrationError {
	return &RegistrationError{Type: typeName, Reason: fmt.Sprintf(format, args...)}
}

// ScriptFault is a failure raised by a script override
type ScriptFault struct {
	Type   string // native type of the bound object
	Class  string // script class
	Method string
	Err    error
}

func (f *ScriptFault) Error() string {
	return fmt.Sprintf("script fault in %s.%s (%s): %v", f.Class, f.Method, f.Type, f.Err)
}

// Cause returns the error raised by the script
func (f *ScriptFault) Cause() error {
	return f.Err
}

// Unwrap returns the error raised by the script
func (f *ScriptFault) Unwrap() error {
	return f.Err
}

// Panicked tells whether the script panicked instead of returning an error
func (f *ScriptFault) Panicked() bool {
	return gwutils.IsPanic(f.Err)
}

// Stack returns the stack of the panicking script, or nil
func (f *ScriptFault) Stack() []byte {
	if pe, ok := f.Err.(*gwutils.PanicError); ok {
		return pe.Stack
	}
	return nil
}
