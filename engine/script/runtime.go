package script

import (
	"io/ioutil"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/xiaonanln/gwscript/engine/binding"
	"github.com/xiaonanln/gwscript/engine/entity"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

var packageClause = regexp.MustCompile(`(?m)^\s*package\s+([A-Za-z_][A-Za-z0-9_]*)`)

// ClassDef describes the source of a script class
type ClassDef struct {
	Name    string // script class name
	Path    string // source file, relative to the runtime dir
	Source  string // source text, used when Path is empty
	Package string // package clause of the source, read from the source if empty
}

// Options configures a Runtime
type Options struct {
	Dir    string // base directory of relative script paths
	Stdlib bool   // let scripts import the allowed standard packages
}

// Runtime loads script classes into embedded Go interpreters, one interpreter per class
//
// Runtime is not thread-safe, like the World it serves.
type Runtime struct {
	ctx     *binding.Context
	world   *entity.World
	opts    Options
	classes map[string]*Class
}

// NewRuntime creates a runtime whose scripts see the world through the gw/entities package
func NewRuntime(ctx *binding.Context, world *entity.World, opts Options) *Runtime {
	return &Runtime{
		ctx:     ctx,
		world:   world,
		opts:    opts,
		classes: map[string]*Class{},
	}
}

// Load evaluates the script class and returns it
func (rt *Runtime) Load(def ClassDef) (*Class, error) {
	if def.Name == "" {
		return nil, errors.New("load script class: empty name")
	}
	if rt.classes[def.Name] != nil {
		return nil, errors.Errorf("load script class %s: already loaded", def.Name)
	}

	c := &Class{name: def.Name, def: def, rt: rt}
	if err := c.eval(); err != nil {
		return nil, err
	}
	rt.classes[def.Name] = c
	gwlog.Infof("script: loaded class %s (%s)", c.name, c.source())
	return c, nil
}

// Reload re-evaluates the source of the class; on failure the class keeps its previous code
func (rt *Runtime) Reload(name string) error {
	c := rt.classes[name]
	if c == nil {
		return errors.Errorf("reload script class %s: not loaded", name)
	}
	if err := c.eval(); err != nil {
		return err
	}
	rt.ctx.Invalidate(c)
	gwlog.Infof("script: reloaded class %s, generation %d", c.name, c.generation)
	return nil
}

// ReloadAll reloads every class and returns the first error
func (rt *Runtime) ReloadAll() error {
	var firstErr error
	for _, name := range rt.ClassNames() {
		if err := rt.Reload(name); err != nil {
			gwlog.Errorf("script: %s", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Unload drops the class: its overrides stop applying to the objects bound to it
func (rt *Runtime) Unload(name string) {
	c := rt.classes[name]
	if c == nil {
		return
	}
	delete(rt.classes, name)
	c.unload()
	rt.ctx.Invalidate(c)
	gwlog.Infof("script: unloaded class %s", name)
}

// Class returns the loaded class, or nil
func (rt *Runtime) Class(name string) *Class {
	return rt.classes[name]
}

// ClassNames returns the names of the loaded classes, sorted
func (rt *Runtime) ClassNames() []string {
	names := make([]string, 0, len(rt.classes))
	for name := range rt.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (rt *Runtime) newInterpreter(className string) *interp.Interpreter {
	i := interp.New(interp.Options{})
	if rt.opts.Stdlib {
		i.Use(restrictedStdlib())
	}
	i.Use(rt.exportsForClass(className))
	return i
}

func (rt *Runtime) readSource(def ClassDef) (string, error) {
	if def.Path == "" {
		if def.Source == "" {
			return "", errors.Errorf("script class %s has no source", def.Name)
		}
		return def.Source, nil
	}
	path := def.Path
	if !filepath.IsAbs(path) && rt.opts.Dir != "" {
		path = filepath.Join(rt.opts.Dir, path)
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "script class %s", def.Name)
	}
	return string(data), nil
}

func packageOf(src string) string {
	m := packageClause.FindStringSubmatch(src)
	if m == nil {
		return ""
	}
	return m[1]
}
