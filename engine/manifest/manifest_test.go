package manifest

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/bmizerany/assert"
)

const sample = `
[[class]]
classname = "trigger_scripted"
base      = "CBaseTrigger"
script    = "trigger_scripted.go"
package   = "scripted"

[[entity]]
classname = "trigger_scripted"
[entity.keyvalues]
targetname = "door_trigger"
origin     = "0 0 0"
spawnflags = "1"

[[entity]]
classname = "info_target"
edict     = 7
`

func TestParse(t *testing.T) {
	m, err := Parse([]byte(sample))
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, len(m.Classes))
	assert.Equal(t, Class{ClassName: "trigger_scripted", Base: "CBaseTrigger", Script: "trigger_scripted.go", Package: "scripted"}, m.Classes[0])

	assert.Equal(t, 2, len(m.Entities))
	e := m.Entities[0]
	assert.Equal(t, -1, e.EdictIndex())
	assert.Equal(t, []string{"origin", "spawnflags", "targetname"}, e.SortedKeys())
	assert.Equal(t, "door_trigger", e.KeyValues["targetname"])
	assert.Equal(t, 7, m.Entities[1].EdictIndex())
	assert.Equal(t, 0, len(m.Entities[1].SortedKeys()))
}

func TestValidate(t *testing.T) {
	bad := []string{
		"[[class]]\nbase = \"CBaseTrigger\"\nscript = \"a.go\"",
		"[[class]]\nclassname = \"a\"\nscript = \"a.go\"",
		"[[class]]\nclassname = \"a\"\nbase = \"CBaseTrigger\"",
		"[[class]]\nclassname = \"a\"\nbase = \"b\"\nscript = \"a.go\"\n[[class]]\nclassname = \"a\"\nbase = \"b\"\nscript = \"a.go\"",
		"[[entity]]\nedict = 3",
		"[[entity]]\nclassname = \"a\"\nedict = -2",
		"[[entity]\n",
	}
	for _, s := range bad {
		_, err := Parse([]byte(s))
		assert.T(t, err != nil, s)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bindings.toml")
	if err := ioutil.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	assert.Equal(t, nil, err)
	assert.Equal(t, dir, m.Dir)
	assert.Equal(t, filepath.Join(dir, "trigger_scripted.go"), m.ScriptPath(&m.Classes[0]))

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.T(t, err != nil)
}
