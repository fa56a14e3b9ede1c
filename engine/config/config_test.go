package config

import (
	"testing"
	"time"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwscript/engine/consts"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

func init() {
	SetConfigFile("../../gwscript.ini.sample")
}

func TestLoad(t *testing.T) {
	config := Get()
	gwlog.Debugf("gwscript config: \n%s", DumpPretty(config))
	if config == nil {
		t.FailNow()
	}
	assert.Equal(t, "fallback", config.Binding.FaultPolicy)
	assert.Equal(t, 2048, config.Host.MaxEdicts)
	assert.Equal(t, 15*time.Millisecond, config.Host.FrameInterval)
	assert.Equal(t, time.Minute, config.Binding.MonitorInterval)
	assert.Equal(t, "examples/bindings.toml", config.Scripts.Manifest)
}

func TestReload(t *testing.T) {
	cfg1 := Get()
	cfg2 := Reload()
	assert.Equal(t, cfg1.Host, cfg2.Host)
	assert.Equal(t, cfg2, Get())
}

func TestGetSections(t *testing.T) {
	assert.Equal(t, "debug", GetHost().LogLevel)
	assert.Equal(t, false, GetBinding().TraceOverrides)
	assert.Equal(t, "examples/_scripts", GetScripts().Dir)
	assert.Equal(t, "../../", GetConfigDir())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "fallback", cfg.Binding.FaultPolicy)
	assert.Equal(t, consts.DEFAULT_MAX_EDICTS, cfg.Host.MaxEdicts)
	assert.Equal(t, consts.DEFAULT_FRAME_INTERVAL, cfg.Host.FrameInterval)
	assert.Equal(t, "scripts", cfg.Scripts.Dir)
}

func TestLoadSource(t *testing.T) {
	cfg, err := Load([]byte("[binding]\nfault_policy=Propagate\ntrace_overrides=true\n[host]\nmax_edicts=64\n"))
	assert.Equal(t, nil, err)
	assert.Equal(t, "propagate", cfg.Binding.FaultPolicy)
	assert.Equal(t, true, cfg.Binding.TraceOverrides)
	assert.Equal(t, 64, cfg.Host.MaxEdicts)
	assert.Equal(t, _DEFAULT_MANIFEST, cfg.Scripts.Manifest)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load([]byte("[binding]\nfault_policy=ignore\n"))
	assert.NotEqual(t, nil, err)

	_, err = Load([]byte("[host]\nmax_edicts=1\n"))
	assert.NotEqual(t, nil, err)
}
