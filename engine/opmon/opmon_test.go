package opmon

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
)

func TestMonitor(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 3; i++ {
		m.StartOperation("b.op").Finish(0)
	}
	m.StartOperation("a.op").Finish(0)

	stats := m.Snapshot()
	assert.Equal(t, 2, len(stats))
	assert.Equal(t, "a.op", stats[0].Name)
	assert.Equal(t, uint64(3), stats[1].Count)
	assert.Equal(t, 0, len(m.Snapshot()))
}

func TestDump(t *testing.T) {
	m := NewMonitor()
	m.StartOperation("Spawn").Finish(0)
	var buf bytes.Buffer
	m.Dump(&buf)
	if !strings.Contains(buf.String(), "Spawn") {
		t.Errorf("dump missing operation: %s", buf.String())
	}
	buf.Reset()
	m.Dump(&buf)
	assert.Equal(t, "", buf.String())
}
