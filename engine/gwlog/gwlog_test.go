package gwlog

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestGWLog(t *testing.T) {
	defer SetOutput(os.Stderr)
	defer SetLevel(DebugLevel)

	var buf bytes.Buffer
	SetSource("gwlog_test")
	SetOutput(&buf)
	SetLevel(DebugLevel)

	if lv := ParseLevel("debug"); lv != DebugLevel {
		t.Fail()
	}
	if lv := ParseLevel("info"); lv != InfoLevel {
		t.Fail()
	}
	if lv := ParseLevel("warn"); lv != WarnLevel {
		t.Fail()
	}
	if lv := ParseLevel("error"); lv != ErrorLevel {
		t.Fail()
	}
	if lv := ParseLevel("panic"); lv != PanicLevel {
		t.Fail()
	}
	if lv := ParseLevel("fatal"); lv != FatalLevel {
		t.Fail()
	}

	Debugf("this is a debug %d", 1)
	SetLevel(InfoLevel)
	if GetLevel() != InfoLevel {
		t.Errorf("level not applied: %v", GetLevel())
	}
	Debugf("SHOULD NOT SEE THIS!")
	Infof("this is an info %d", 2)
	Warnf("this is a warning %d", 3)
	TraceError("this is a trace error %d", 4)
	func() {
		defer func() {
			_ = recover()
		}()
		Panicf("this is a panic %d", 4)
	}()

	out := buf.String()
	if !strings.Contains(out, "this is a debug 1") {
		t.Errorf("debug message missing: %s", out)
	}
	if strings.Contains(out, "SHOULD NOT SEE THIS") {
		t.Errorf("debug message logged at info level")
	}
	if !strings.Contains(out, "gwlog_test") {
		t.Errorf("source missing: %s", out)
	}
	if !strings.Contains(out, "this is a trace error 4") {
		t.Errorf("trace error missing")
	}
}
