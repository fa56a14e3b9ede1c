// gwscript runs a world of native entities whose overridable methods can be replaced by Go scripts
//
// Usage:
//
//	gwscript -configfile gwscript.ini [-log info] [-d]
package main

import (
	"flag"

	"github.com/xiaonanln/gwscript"
	"github.com/xiaonanln/gwscript/engine/binutil"
	"github.com/xiaonanln/gwscript/engine/gwlog"
	"github.com/xiaonanln/gwscript/engine/host"
)

var (
	configFile   string
	logLevel     string
	runInDaemon  bool
	pidFile      string
	listBindings bool
	httpAddr     string
)

func parseArgs() {
	flag.StringVar(&configFile, "configfile", "", "set config file path")
	flag.StringVar(&logLevel, "log", "", "set log level, will override log level in config")
	flag.BoolVar(&runInDaemon, "d", false, "run in daemon mode")
	flag.StringVar(&pidFile, "pidfile", "gwscript.pid", "pid file used in daemon mode")
	flag.BoolVar(&listBindings, "list", false, "list bound types and classes, then quit")
	flag.StringVar(&httpAddr, "http", "", "serve pprof and expvar on this address")
	flag.Parse()
}

func main() {
	parseArgs()

	if runInDaemon {
		releaser := binutil.Daemonize(pidFile)
		defer releaser.Release()
	}

	cfg := gwscript.LoadConfig(configFile)
	if logLevel != "" {
		cfg.Host.LogLevel = logLevel
	}
	binutil.SetupHostLog("gwscript", &cfg.Host)

	h, err := gwscript.NewHost(cfg)
	if err != nil {
		gwlog.Fatalf("gwscript: %s", err)
	}

	if listBindings {
		printBindings(h)
		return
	}

	binutil.SetupHTTPServer(httpAddr)
	h.LoadEntities()
	h.Run()
}

func printBindings(h *host.Host) {
	for _, desc := range h.Context().Types() {
		gwlog.Infof("type %s: %d methods, %d overridable", desc.Name, len(desc.MethodNames()), len(desc.OverridableMethods()))
	}
	for _, name := range h.World().ClassNames() {
		gwlog.Infof("class %s", name)
	}
	for _, name := range h.Context().FunctionNames() {
		gwlog.Infof("function %s", name)
	}
}
