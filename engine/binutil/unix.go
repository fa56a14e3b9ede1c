//go:build !windows
// +build !windows

package binutil

import (
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// Daemonize reborns the process as a daemon, the parent process exits
func Daemonize(pidFile string) Releaser {
	context := &daemon.Context{
		PidFileName: pidFile,
		PidFilePerm: 0644,
	}
	child, err := context.Reborn()

	if err != nil {
		// daemonize failed
		gwlog.Panicf("daemonize failed: %v", err)
	}

	if child != nil {
		gwlog.Infof("run in daemon mode")
		os.Exit(0)
		return nil
	}
	return context
}
