package host

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwscript/engine/config"
	"github.com/xiaonanln/gwscript/engine/gwvar"
)

const counterScript = `package counter

import "gw/entities"

func GetTracerType(self *entities.Handle) string {
	return "counter_" + self.TargetName()
}
`

const bindings = `
[[class]]
classname = "info_counter"
base      = "info_target"
script    = "counter.go"

[[entity]]
classname = "info_counter"
[entity.keyvalues]
targetname = "first"

[[entity]]
classname = "info_counter"
edict     = 9
[entity.keyvalues]
targetname = "second"
bogus_key  = "ignored"

[[entity]]
classname = "no_such_class"
`

func setupDir(t *testing.T) string {
	dir := t.TempDir()
	if err := ioutil.WriteFile(filepath.Join(dir, "counter.go"), []byte(counterScript), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, "bindings.toml"), []byte(bindings), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func loadConfig(t *testing.T, ini string) *config.GWScriptConfig {
	cfg, err := config.Load([]byte(ini))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func newHost(t *testing.T, dir string) *Host {
	cfg := loadConfig(t, "[host]\nmax_edicts=32\nframe_interval_ms=1\n[scripts]\ndir="+dir+"\nmanifest="+filepath.Join(dir, "bindings.toml")+"\n")
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestLoadEntities(t *testing.T) {
	h := newHost(t, setupDir(t))
	assert.Equal(t, []string{"info_counter"}, h.Runtime().ClassNames())
	assert.T(t, h.World().HasClass("info_counter"))
	assert.T(t, h.Context().IsSealed())

	assert.Equal(t, 2, h.LoadEntities())
	assert.Equal(t, 2, h.World().NumEntities())

	first := h.World().FindEntityByName(nil, "first")
	assert.T(t, first != nil)
	assert.Equal(t, 1, first.Base().Index())
	assert.Equal(t, "counter_first", first.GetTracerType())
	assert.T(t, first.Base().IsActivated())

	second := h.World().EntityByIndex(9)
	assert.T(t, second != nil)
	assert.Equal(t, "counter_second", second.GetTracerType())

	h.RunFrame()
	assert.Equal(t, uint64(0), h.Context().FaultsCount())
	assert.Equal(t, int64(2), gwvar.NumEntities.Value())
}

func TestReloadScripts(t *testing.T) {
	dir := setupDir(t)
	h := newHost(t, dir)
	h.LoadEntities()
	first := h.World().FindEntityByName(nil, "first")

	src := "package counter\n\nimport \"gw/entities\"\n\nfunc GetTracerType(self *entities.Handle) string {\n\treturn \"reloaded\"\n}\n"
	if err := ioutil.WriteFile(filepath.Join(dir, "counter.go"), []byte(src), 0644); err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, nil, h.ReloadScripts())
	assert.Equal(t, "reloaded", first.GetTracerType())
}

func TestNewErrors(t *testing.T) {
	dir := setupDir(t)

	cfg := loadConfig(t, "[scripts]\nmanifest="+filepath.Join(dir, "missing.toml")+"\n")
	_, err := New(cfg)
	assert.T(t, err != nil)

	cfg = config.Default()
	cfg.Binding.FaultPolicy = "ignore"
	_, err = New(cfg)
	assert.T(t, err != nil)

	if err := ioutil.WriteFile(filepath.Join(dir, "bad.toml"), []byte("[[class]]\nclassname = \"x\"\nbase = \"no_such_base\"\nscript = \"counter.go\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg = loadConfig(t, "[scripts]\ndir="+dir+"\nmanifest="+filepath.Join(dir, "bad.toml")+"\n")
	_, err = New(cfg)
	assert.T(t, err != nil)
}

func TestNoManifest(t *testing.T) {
	cfg := config.Default()
	cfg.Scripts.Manifest = ""
	h, err := New(cfg)
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, h.LoadEntities())
	assert.Equal(t, 0, len(h.Runtime().ClassNames()))
	assert.T(t, h.World().HasClass("trigger_multiple"))
}

func TestRunTerminate(t *testing.T) {
	h := newHost(t, setupDir(t))
	h.LoadEntities()

	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !h.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	h.Terminate()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("host did not terminate")
	}
	assert.Equal(t, false, h.IsRunning())
	assert.Equal(t, false, gwvar.IsHostRunning.Value())
	select {
	case <-h.sigDone:
	case <-time.After(5 * time.Second):
		t.Fatal("signal goroutine still running")
	}
	assert.T(t, gwvar.ProcessRSS.Value() > 0)
	assert.Equal(t, 0, h.World().NumEntities())
	assert.T(t, h.World().FindEntityByName(nil, "first") == nil)
}

func TestExampleBindings(t *testing.T) {
	cfg := config.Default()
	cfg.Scripts.Dir = "../../examples/_scripts"
	cfg.Scripts.Manifest = "../../examples/bindings.toml"
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	assert.Equal(t, 3, h.LoadEntities())
	assert.Equal(t, 6, h.World().NumEntities())
	assert.T(t, h.World().FindEntityByName(nil, "spawner_child_2") != nil)

	trigger := h.World().FindEntityByName(nil, "door_trigger")
	assert.Equal(t, "scripted_tracer", trigger.GetTracerType())
	h.RunFrame()
	assert.Equal(t, uint64(0), h.Context().FaultsCount())
}

func TestSampleProcess(t *testing.T) {
	h := newHost(t, setupDir(t))
	assert.T(t, h.proc != nil)
	gwvar.ProcessRSS.Set(0)
	h.sampleProcess()
	assert.T(t, gwvar.ProcessRSS.Value() > 0)
	assert.T(t, gwvar.ProcessCPUPercent.Value() >= 0)
}
