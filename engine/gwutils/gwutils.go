package gwutils

import (
	"fmt"
	"runtime/debug"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// PanicError is the error recovered from a panicking function
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (pe *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", pe.Value)
}

// RunPanicless calls a function panic-freely
func RunPanicless(f func()) (paniced bool) {
	defer func() {
		err := recover()
		if err != nil {
			gwlog.TraceError("RunPanicless: panic: %v", err)
			paniced = true
		}
	}()

	f()
	return
}

// CatchPanic calls a function and returns the panic as a *PanicError, without logging
func CatchPanic(f func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()

	f()
	return
}

// IsPanic tells whether err (or its cause) was produced by CatchPanic
func IsPanic(err error) bool {
	_, ok := errors.Cause(err).(*PanicError)
	return ok
}
