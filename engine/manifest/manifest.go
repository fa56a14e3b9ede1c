// Package manifest reads the TOML file listing the script classes and the entities to spawn at startup
package manifest

import (
	"io/ioutil"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/consts"
)

// Manifest is the content of the bindings file
type Manifest struct {
	Classes  []Class  `toml:"class"`
	Entities []Entity `toml:"entity"`

	// Dir is the directory containing the manifest, script paths are relative to it
	Dir string `toml:"-"`
}

// Class binds a script to an entity class name
type Class struct {
	ClassName string `toml:"classname"`
	Base      string `toml:"base"` // registered class name or bound type name
	Script    string `toml:"script"`
	Package   string `toml:"package"`
}

// Entity is an entity created when the host loads the map
type Entity struct {
	ClassName string            `toml:"classname"`
	Edict     *int              `toml:"edict"`
	KeyValues map[string]string `toml:"keyvalues"`
}

// EdictIndex returns the forced edict index, consts.NO_FORCED_EDICT_INDEX if not set
func (e *Entity) EdictIndex() int {
	if e.Edict == nil {
		return consts.NO_FORCED_EDICT_INDEX
	}
	return *e.Edict
}

// SortedKeys returns the keyvalue keys in the order they are applied
func (e *Entity) SortedKeys() []string {
	keys := make([]string, 0, len(e.KeyValues))
	for k := range e.KeyValues {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Load parses and validates the manifest file
func Load(path string) (*Manifest, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrapf(err, "resolve manifest dir of %s", path)
	}
	return m, nil
}

// Parse decodes and validates manifest text
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, errors.Wrap(err, "parse error")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields and duplicate class names
func (m *Manifest) Validate() error {
	seen := map[string]bool{}
	for i, c := range m.Classes {
		switch {
		case c.ClassName == "":
			return errors.Errorf("class #%d: missing classname", i+1)
		case c.Base == "":
			return errors.Errorf("class %s: missing base", c.ClassName)
		case c.Script == "":
			return errors.Errorf("class %s: missing script", c.ClassName)
		case seen[c.ClassName]:
			return errors.Errorf("class %s: declared twice", c.ClassName)
		}
		seen[c.ClassName] = true
	}
	for i, e := range m.Entities {
		if e.ClassName == "" {
			return errors.Errorf("entity #%d: missing classname", i+1)
		}
		if idx := e.EdictIndex(); idx < consts.NO_FORCED_EDICT_INDEX {
			return errors.Errorf("entity #%d (%s): bad edict %d", i+1, e.ClassName, idx)
		}
	}
	return nil
}

// ScriptPath returns the path of the class script, relative paths are resolved from the manifest dir
func (m *Manifest) ScriptPath(c *Class) string {
	if filepath.IsAbs(c.Script) || m.Dir == "" {
		return c.Script
	}
	return filepath.Join(m.Dir, c.Script)
}
