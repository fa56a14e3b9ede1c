package binding

import (
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/consts"
	"github.com/xiaonanln/gwscript/engine/gwlog"
	"github.com/xiaonanln/gwscript/engine/gwutils"
)

// Call dispatches the overridable method id of a bound object
//
// With no binding or no override, native is called and its result returned. Otherwise the override
// runs instead of native. If the override faults, the fault is reported once and, with the fallback
// policy, native runs exactly once; calls of the same method on the same object made while that
// fallback runs go native directly. args are already translated to script values.
func Call[R any](b *Binding, id MethodID, native func() R, args ...interface{}) R {
	ov := b.lookup(id)
	if ov == nil || b.isRecovering(id) {
		return native()
	}

	res, fault := b.invoke(id, ov, args)
	if fault == nil {
		r, err := ConvertResult[R](res)
		if err == nil {
			return r
		}
		fault = b.newFault(id, errors.Wrap(err, "bad result"))
	}
	return recoverNative(b, id, fault, native)
}

// CallVoid dispatches the overridable method id of a bound object that has no result
func CallVoid(b *Binding, id MethodID, native func(), args ...interface{}) {
	ov := b.lookup(id)
	if ov == nil || b.isRecovering(id) {
		native()
		return
	}

	if _, fault := b.invoke(id, ov, args); fault != nil {
		recoverNative(b, id, fault, func() struct{} {
			native()
			return struct{}{}
		})
	}
}

func recoverNative[R any](b *Binding, id MethodID, fault *ScriptFault, native func() R) R {
	b.ctx.report(fault)
	if b.ctx.policy == FaultPropagate {
		panic(fault)
	}

	if b.ctx.monitor != nil {
		op := b.ctx.monitor.StartOperation("fallback." + b.desc.Name + "." + fault.Method)
		defer op.Finish(0)
	}
	b.setRecovering(id, true)
	defer b.setRecovering(id, false)
	return native()
}

func (b *Binding) invoke(id MethodID, ov Override, args []interface{}) (res interface{}, fault *ScriptFault) {
	if b.ctx.traceOverrides {
		gwlog.Debugf("binding: %s.%s -> %s%v", b.desc.Name, b.ctx.methodIDs[id], b.class.Name(), args)
	}
	if b.ctx.monitor != nil {
		op := b.ctx.monitor.StartOperation("override." + b.class.Name() + "." + b.ctx.methodIDs[id])
		defer op.Finish(consts.OVERRIDE_WARN_THRESHOLD)
	}

	var callErr error
	err := gwutils.CatchPanic(func() {
		res, callErr = ov.Call(b.self, args)
	})
	if err == nil {
		err = callErr
	}
	if err != nil {
		return nil, b.newFault(id, err)
	}
	return res, nil
}

func (b *Binding) newFault(id MethodID, err error) *ScriptFault {
	return &ScriptFault{
		Type:   b.desc.Name,
		Class:  b.class.Name(),
		Method: b.ctx.methodIDs[id],
		Err:    err,
	}
}

func (ctx *Context) report(fault *ScriptFault) {
	ctx.faultsCount += 1
	gwutils.RunPanicless(func() {
		ctx.diagnostics.ReportFault(fault)
	})
}
