package binutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xiaonanln/gwscript/engine/gwlog"
)

func TestSetupGWLog(t *testing.T) {
	dir, err := ioutil.TempDir("", "gwscript-binutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	defer gwlog.SetOutput(os.Stderr)
	defer gwlog.SetLevel(gwlog.DebugLevel)

	logFile := filepath.Join(dir, "test.log")
	SetupGWLog("binutil_test", "info", logFile, false)
	gwlog.Debugf("hidden debug")
	gwlog.Infof("visible info")
	gwlog.Sync()

	data, err := ioutil.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "visible info") {
		t.Errorf("info message not written: %s", data)
	}
	if strings.Contains(string(data), "hidden debug") {
		t.Errorf("debug message written at info level")
	}
}
