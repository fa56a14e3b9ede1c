package binutil

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/xiaonanln/gwscript/engine/config"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

// Releaser is returned by Daemonize and released when the process quits
type Releaser interface {
	Release() error
}

// SetupGWLog setup the gwscript log system
func SetupGWLog(component string, logLevel string, logFile string, logStderr bool) {
	gwlog.SetSource(component)
	gwlog.Infof("Set log level to %s", logLevel)
	gwlog.SetLevel(gwlog.ParseLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		logFileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 100,
			MaxAge:     30, //days
			Compress:   true,
		}

		logFileWriter.Rotate() // rotate immediately
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr || len(outputWriters) == 0 {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 1 {
		gwlog.SetOutput(outputWriters[0])
	} else {
		gwlog.SetOutput(io.MultiWriter(outputWriters...))
	}
}

// SetupHostLog setup the log system from the [host] config
func SetupHostLog(component string, hc *config.HostConfig) {
	SetupGWLog(component, hc.LogLevel, hc.LogFile, hc.LogStderr)
}
