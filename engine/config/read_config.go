package config

import (
	"encoding/json"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/consts"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

const (
	_DEFAULT_CONFIG_FILE      = "gwscript.ini"
	_DEFAULT_LOG_LEVEL        = "debug"
	_DEFAULT_LOG_FILE         = "gwscript.log"
	_DEFAULT_SCRIPT_DIR       = "scripts"
	_DEFAULT_MANIFEST         = "bindings.toml"
	_DEFAULT_FAULT_POLICY     = "fallback"
	_DEFAULT_MONITOR_INTERVAL = time.Minute
)

var (
	configFilePath = _DEFAULT_CONFIG_FILE
	gwscriptConfig *GWScriptConfig
	configLock     sync.Mutex
)

// HostConfig defines fields of the [host] section
type HostConfig struct {
	LogFile       string
	LogStderr     bool
	LogLevel      string
	FrameInterval time.Duration
	MaxEdicts     int
	TouchDistance float32
}

// BindingConfig defines fields of the [binding] section
type BindingConfig struct {
	FaultPolicy     string // fallback | propagate
	TraceOverrides  bool
	MonitorInterval time.Duration
}

// ScriptsConfig defines fields of the [scripts] section
type ScriptsConfig struct {
	Dir      string
	Manifest string
}

// GWScriptConfig defines the total config file structure
type GWScriptConfig struct {
	Host    HostConfig
	Binding BindingConfig
	Scripts ScriptsConfig
}

// SetConfigFile sets the config file path (gwscript.ini by default)
func SetConfigFile(f string) {
	configLock.Lock()
	configFilePath = f
	gwscriptConfig = nil
	configLock.Unlock()
}

// GetConfigDir returns the directory of the config file
func GetConfigDir() string {
	dir, _ := path.Split(configFilePath)
	return dir
}

// GetConfigFilePath returns the config file path
func GetConfigFilePath() string {
	return configFilePath
}

// Get returns the total config, reading the config file on first use
//
// Get panics if the config file is invalid.
func Get() *GWScriptConfig {
	configLock.Lock()
	defer configLock.Unlock()
	if gwscriptConfig == nil {
		cfg, err := Load(configFilePath)
		checkConfigError(err, "")
		gwscriptConfig = cfg
	}
	return gwscriptConfig
}

// Reload forces the config to be read again
func Reload() *GWScriptConfig {
	configLock.Lock()
	gwscriptConfig = nil
	configLock.Unlock()

	return Get()
}

// GetHost returns the [host] config
func GetHost() *HostConfig {
	return &Get().Host
}

// GetBinding returns the [binding] config
func GetBinding() *BindingConfig {
	return &Get().Binding
}

// GetScripts returns the [scripts] config
func GetScripts() *ScriptsConfig {
	return &Get().Scripts
}

// DumpPretty formats config to string in pretty format
func DumpPretty(cfg interface{}) string {
	s, err := json.MarshalIndent(cfg, "", "    ")
	if err != nil {
		return err.Error()
	}
	return string(s)
}

// Default returns a config with every field set to its default value
func Default() *GWScriptConfig {
	cfg := &GWScriptConfig{}
	readHostConfig(nil, &cfg.Host)
	readBindingConfig(nil, &cfg.Binding)
	readScriptsConfig(nil, &cfg.Scripts)
	return cfg
}

// Load reads the config from an ini file or ini source bytes
func Load(source interface{}) (*GWScriptConfig, error) {
	if p, ok := source.(string); ok {
		gwlog.Infof("Using config file: %s", p)
	}
	iniFile, err := ini.Load(source)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	cfg := &GWScriptConfig{}
	readHostConfig(iniFile.Section("host"), &cfg.Host)
	readBindingConfig(iniFile.Section("binding"), &cfg.Binding)
	readScriptsConfig(iniFile.Section("scripts"), &cfg.Scripts)

	for _, sec := range iniFile.Sections() {
		secName := strings.ToLower(sec.Name())
		if secName == ini.DefaultSection || secName == "default" || secName == "host" || secName == "binding" || secName == "scripts" {
			continue
		}
		gwlog.Errorf("unknown section: %s", secName)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readHostConfig(sec *ini.Section, hc *HostConfig) {
	hc.LogFile = _DEFAULT_LOG_FILE
	hc.LogStderr = true
	hc.LogLevel = _DEFAULT_LOG_LEVEL
	hc.FrameInterval = consts.DEFAULT_FRAME_INTERVAL
	hc.MaxEdicts = consts.DEFAULT_MAX_EDICTS
	hc.TouchDistance = consts.DEFAULT_TOUCH_DISTANCE
	if sec == nil {
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "log_file" {
			hc.LogFile = key.MustString(hc.LogFile)
		} else if name == "log_stderr" {
			hc.LogStderr = key.MustBool(hc.LogStderr)
		} else if name == "log_level" {
			hc.LogLevel = key.MustString(hc.LogLevel)
		} else if name == "frame_interval_ms" {
			hc.FrameInterval = time.Millisecond * time.Duration(key.MustInt(int(hc.FrameInterval/time.Millisecond)))
		} else if name == "max_edicts" {
			hc.MaxEdicts = key.MustInt(hc.MaxEdicts)
		} else if name == "touch_distance" {
			hc.TouchDistance = float32(key.MustFloat64(float64(hc.TouchDistance)))
		} else {
			gwlog.Warnf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readBindingConfig(sec *ini.Section, bc *BindingConfig) {
	bc.FaultPolicy = _DEFAULT_FAULT_POLICY
	bc.MonitorInterval = _DEFAULT_MONITOR_INTERVAL
	if sec == nil {
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "fault_policy" {
			bc.FaultPolicy = strings.ToLower(key.MustString(bc.FaultPolicy))
		} else if name == "trace_overrides" {
			bc.TraceOverrides = key.MustBool(bc.TraceOverrides)
		} else if name == "monitor_interval" {
			bc.MonitorInterval = time.Second * time.Duration(key.MustInt(int(bc.MonitorInterval/time.Second)))
		} else {
			gwlog.Warnf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func readScriptsConfig(sec *ini.Section, sc *ScriptsConfig) {
	sc.Dir = _DEFAULT_SCRIPT_DIR
	sc.Manifest = _DEFAULT_MANIFEST
	if sec == nil {
		return
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(key.Name())
		if name == "dir" {
			sc.Dir = key.MustString(sc.Dir)
		} else if name == "manifest" {
			sc.Manifest = key.MustString(sc.Manifest)
		} else {
			gwlog.Warnf("section %s has unknown key: %s", sec.Name(), key.Name())
		}
	}
}

func checkConfigError(err error, msg string) {
	if err != nil {
		if msg == "" {
			msg = err.Error()
		}
		gwlog.Panicf("read config error: %s", msg)
	}
}

func validateConfig(config *GWScriptConfig) error {
	if config.Binding.FaultPolicy != "fallback" && config.Binding.FaultPolicy != "propagate" {
		return errors.Errorf("invalid fault_policy %q: must be fallback or propagate", config.Binding.FaultPolicy)
	}
	if config.Host.MaxEdicts <= 1 {
		return errors.Errorf("invalid max_edicts %d: must be greater than 1", config.Host.MaxEdicts)
	}
	if config.Host.FrameInterval <= 0 {
		return errors.Errorf("invalid frame_interval_ms: %s", config.Host.FrameInterval)
	}
	if config.Host.TouchDistance < 0 {
		return errors.Errorf("invalid touch_distance: %v", config.Host.TouchDistance)
	}
	return nil
}
