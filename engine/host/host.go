// Package host wires the binding context, the world, the script runtime and the manifest, and runs the frame loop
package host

import (
	"bytes"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gwscript/engine/binding"
	"github.com/xiaonanln/gwscript/engine/config"
	"github.com/xiaonanln/gwscript/engine/entity"
	"github.com/xiaonanln/gwscript/engine/gwlog"
	"github.com/xiaonanln/gwscript/engine/gwvar"
	"github.com/xiaonanln/gwscript/engine/manifest"
	"github.com/xiaonanln/gwscript/engine/opmon"
	"github.com/xiaonanln/gwscript/engine/post"
	"github.com/xiaonanln/gwscript/engine/script"
)

const (
	rsNotRunning = iota
	rsRunning
	rsTerminating
	rsTerminated
)

// Host owns everything a running gwscript process needs
type Host struct {
	cfg       *config.GWScriptConfig
	ctx       *binding.Context
	world     *entity.World
	runtime   *script.Runtime
	manifest  *manifest.Manifest
	monitor   *opmon.Monitor
	runState  xnsyncutil.AtomicInt
	sigChan   chan os.Signal
	sigDone   chan struct{}
	dumpTimer *timer.Timer
	proc      *process.Process
}

// New builds the host from the config: native bindings are registered, script classes are loaded and the
// binding context is sealed
func New(cfg *config.GWScriptConfig) (*Host, error) {
	policy, err := binding.ParseFaultPolicy(cfg.Binding.FaultPolicy)
	if err != nil {
		return nil, err
	}

	h := &Host{
		cfg:     cfg,
		monitor: opmon.NewMonitor(),
	}
	h.ctx = binding.NewContext(binding.Options{
		Policy:         policy,
		TraceOverrides: cfg.Binding.TraceOverrides,
		Monitor:        h.monitor,
	})
	h.world = entity.NewWorld(h.ctx, entity.WorldOptions{
		MaxEdicts:     cfg.Host.MaxEdicts,
		TouchDistance: cfg.Host.TouchDistance,
	})
	if err := entity.RegisterBindings(h.ctx, h.world); err != nil {
		return nil, errors.Wrap(err, "register native bindings")
	}

	scriptDir := cfg.Scripts.Dir
	if cfg.Scripts.Manifest != "" {
		h.manifest, err = manifest.Load(cfg.Scripts.Manifest)
		if err != nil {
			return nil, err
		}
		if scriptDir == "" {
			scriptDir = h.manifest.Dir
		}
	}
	h.runtime = script.NewRuntime(h.ctx, h.world, script.Options{Dir: scriptDir, Stdlib: true})

	if h.manifest != nil {
		for i := range h.manifest.Classes {
			if err := h.linkClass(&h.manifest.Classes[i]); err != nil {
				return nil, err
			}
		}
	}

	h.ctx.Seal()
	if h.proc, err = process.NewProcess(int32(os.Getpid())); err != nil {
		gwlog.Warnf("host: process stats not available: %s", err)
		h.proc = nil
	}
	gwlog.Infof("host: %d types, %d classes, %d script classes", len(h.ctx.Types()), len(h.world.ClassNames()), len(h.runtime.ClassNames()))
	return h, nil
}

func (h *Host) linkClass(c *manifest.Class) error {
	def := script.ClassDef{Name: c.ClassName, Path: c.Script, Package: c.Package}
	if h.cfg.Scripts.Dir == "" {
		def.Path = h.manifest.ScriptPath(c)
	}
	class, err := h.runtime.Load(def)
	if err != nil {
		return err
	}
	return h.world.RegisterScriptedClass(c.ClassName, c.Base, class)
}

// Context returns the binding context
func (h *Host) Context() *binding.Context {
	return h.ctx
}

// World returns the world
func (h *Host) World() *entity.World {
	return h.world
}

// Runtime returns the script runtime
func (h *Host) Runtime() *script.Runtime {
	return h.runtime
}

// Monitor returns the override monitor
func (h *Host) Monitor() *opmon.Monitor {
	return h.monitor
}

// LoadEntities creates and spawns the manifest entities, then activates them
//
// Entities that fail to create are logged and skipped. It returns the number of entities spawned.
func (h *Host) LoadEntities() int {
	if h.manifest == nil {
		return 0
	}
	n := 0
	for i := range h.manifest.Entities {
		me := &h.manifest.Entities[i]
		e := h.world.CreateEntityByName(me.ClassName, me.EdictIndex())
		if e == nil {
			continue
		}
		for _, key := range me.SortedKeys() {
			if !e.KeyValue(key, me.KeyValues[key]) {
				gwlog.Warnf("host: %s rejected keyvalue %s=%q", e.Base(), key, me.KeyValues[key])
			}
		}
		if h.world.DispatchSpawn(e) != 0 {
			gwlog.Warnf("host: %s removed itself while spawning", e.Base())
			continue
		}
		n += 1
	}
	h.world.ActivateAll()
	gwlog.Infof("host: spawned %d of %d entities", n, len(h.manifest.Entities))
	return n
}

// ReloadScripts re-evaluates every script class
func (h *Host) ReloadScripts() error {
	gwlog.Infof("host: reloading scripts ...")
	gwvar.ScriptReloads.Add(1)
	return h.runtime.ReloadAll()
}

// RunFrame runs timers, posted callbacks and one world frame
func (h *Host) RunFrame() {
	timer.Tick()
	post.Tick()
	h.world.RunFrame()
	gwvar.NumEntities.Set(int64(h.world.NumEntities()))
	gwvar.ScriptFaults.Set(int64(h.ctx.FaultsCount()))
}

// Run runs the frame loop until Terminate is called or the process receives SIGINT or SIGTERM
func (h *Host) Run() {
	gwlog.Infof("host: running with config:\n%s", config.DumpPretty(h.cfg))
	h.runState.Store(rsRunning)
	gwvar.IsHostRunning.Set(true)
	h.setupSignals()
	if h.cfg.Binding.MonitorInterval > 0 {
		h.dumpTimer = timer.AddTimer(h.cfg.Binding.MonitorInterval, h.dumpMonitor)
	}

	ticker := time.NewTicker(h.cfg.Host.FrameInterval)
	defer ticker.Stop()
	for h.runState.Load() == rsRunning {
		<-ticker.C
		h.RunFrame()
	}
	h.doTerminate()
}

// Terminate asks the frame loop to stop, it may be called from any goroutine
func (h *Host) Terminate() {
	h.runState.Store(rsTerminating)
}

// IsRunning tells whether the frame loop is running
func (h *Host) IsRunning() bool {
	return h.runState.Load() == rsRunning
}

func (h *Host) doTerminate() {
	if h.sigChan != nil {
		signal.Stop(h.sigChan)
		close(h.sigChan)
		h.sigChan = nil
	}
	if h.dumpTimer != nil {
		h.dumpTimer.Cancel()
		h.dumpTimer = nil
	}
	post.Tick()
	h.world.Close()
	h.dumpMonitor()
	h.runState.Store(rsTerminated)
	gwvar.IsHostRunning.Set(false)
	gwlog.Infof("host: terminated, %d script faults", h.ctx.FaultsCount())
}

func (h *Host) setupSignals() {
	gwlog.Infof("Setup signals ...")
	h.sigChan = make(chan os.Signal, 1)
	signal.Notify(h.sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sigChan := h.sigChan
	h.sigDone = make(chan struct{})
	sigDone := h.sigDone
	go func() {
		defer close(sigDone)
		for sig := range sigChan {
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				gwlog.Infof("Terminating host ...")
				h.Terminate()
			} else if sig == syscall.SIGHUP {
				post.Post(func() {
					if err := h.ReloadScripts(); err != nil {
						gwlog.Errorf("host: reload scripts failed: %s", err)
					}
				})
			} else {
				gwlog.Errorf("unexpected signal: %s", sig)
			}
		}
	}()
}

func (h *Host) dumpMonitor() {
	h.sampleProcess()
	var buf bytes.Buffer
	h.monitor.Dump(&buf)
	if buf.Len() > 0 {
		gwlog.Infof("host: override monitor\n%s", buf.String())
	}
}

// sampleProcess publishes the CPU and memory usage of the host process
func (h *Host) sampleProcess() {
	if h.proc == nil {
		return
	}
	if mem, err := h.proc.MemoryInfo(); err == nil {
		gwvar.ProcessRSS.Set(int64(mem.RSS))
	} else {
		gwlog.Warnf("host: get process memory failed: %s", err)
	}
	if pcnt, err := h.proc.CPUPercent(); err == nil {
		gwvar.ProcessCPUPercent.Set(pcnt)
	} else {
		gwlog.Warnf("host: get process cpu percent failed: %s", err)
	}
	gwlog.Infof("host: process rss %d bytes, cpu %.3f%%", gwvar.ProcessRSS.Value(), gwvar.ProcessCPUPercent.Value())
}
