package entity

import (
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/gwscript/engine/consts"
	"github.com/xiaonanln/gwscript/engine/gwlog"
)

const (
	// separator of output connections in keyvalues, the escape character is used by compiled maps
	connectionSeparator    = ","
	connectionSeparatorEsc = "\x1b"
)

// InputFunc handles an input sent to an entity
type InputFunc func(data *InputData)

// OutputConnection is one target of an output: "target,input,param,delay,times"
type OutputConnection struct {
	Target      string
	Input       string
	Param       string
	Delay       float32
	TimesToFire int // -1 fires forever
}

// ParseConnection parses "target,input,param,delay,times"
func ParseConnection(s string) (*OutputConnection, error) {
	sep := connectionSeparator
	if strings.Contains(s, connectionSeparatorEsc) {
		sep = connectionSeparatorEsc
	}
	fields := strings.Split(s, sep)
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return nil, errors.Errorf("invalid output connection %q", s)
	}
	conn := &OutputConnection{
		Target:      strings.TrimSpace(fields[0]),
		Input:       strings.TrimSpace(fields[1]),
		TimesToFire: -1,
	}
	if len(fields) > 2 {
		conn.Param = fields[2]
	}
	if len(fields) > 3 && strings.TrimSpace(fields[3]) != "" {
		delay, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 32)
		if err != nil || delay < 0 {
			return nil, errors.Errorf("invalid delay in output connection %q", s)
		}
		conn.Delay = float32(delay)
	}
	if len(fields) > 4 && strings.TrimSpace(fields[4]) != "" {
		times, err := strconv.Atoi(strings.TrimSpace(fields[4]))
		if err != nil {
			return nil, errors.Errorf("invalid times to fire in output connection %q", s)
		}
		if times == 0 {
			times = -1
		}
		conn.TimesToFire = times
	}
	return conn, nil
}

func (c *OutputConnection) String() string {
	return strings.Join([]string{c.Target, c.Input, c.Param, strconv.FormatFloat(float64(c.Delay), 'f', -1, 32), strconv.Itoa(c.TimesToFire)}, connectionSeparator)
}

// Output is a named event of an entity, connected to inputs of target entities
type Output struct {
	Name        string
	connections []*OutputConnection
}

// AddConnection connects the output
func (o *Output) AddConnection(conn *OutputConnection) {
	o.connections = append(o.connections, conn)
}

// AddConnectionString parses and connects "target,input,param,delay,times"
func (o *Output) AddConnectionString(s string) error {
	conn, err := ParseConnection(s)
	if err != nil {
		return err
	}
	o.AddConnection(conn)
	return nil
}

// Connections returns the live connections
func (o *Output) Connections() []*OutputConnection {
	return o.connections
}

// DeclareOutput adds an output to the entity class
func (e *BaseEntity) DeclareOutput(name string) *Output {
	key := strings.ToLower(name)
	if o := e.outputs[key]; o != nil {
		return o
	}
	o := &Output{Name: name}
	e.outputs[key] = o
	return o
}

// Output returns the output by name (case insensitive), or nil
func (e *BaseEntity) Output(name string) *Output {
	return e.outputs[strings.ToLower(name)]
}

// DeclareInput adds an input handler to the entity class, replacing the inherited handler
func (e *BaseEntity) DeclareInput(name string, f InputFunc) {
	e.inputs[strings.ToLower(name)] = f
}

// HasInput tells whether the entity accepts the input
func (e *BaseEntity) HasInput(name string) bool {
	return e.inputs[strings.ToLower(name)] != nil
}

// AcceptInput runs the input handler, returns false if the entity has no such input
func (e *BaseEntity) AcceptInput(name string, activator IEntity, caller IEntity, value string) bool {
	f := e.inputs[strings.ToLower(name)]
	if f == nil {
		gwlog.Warnf("%s: unhandled input %s (activator %v, caller %v)", e, name, entityString(activator), entityString(caller))
		return false
	}
	if consts.DEBUG_ENTITY_IO {
		gwlog.Debugf("%s: input %s(%q) from %v", e, name, value, entityString(caller))
	}
	f(&InputData{Activator: activator, Caller: caller, Value: value})
	return true
}

// FireOutput fires the named output, delivering to targets through the world event queue
func (e *BaseEntity) FireOutput(name string, activator IEntity, caller IEntity) {
	o := e.Output(name)
	if o == nil {
		gwlog.Errorf("%s: fire unknown output %s", e, name)
		return
	}
	if e.world == nil {
		return
	}
	if consts.DEBUG_ENTITY_IO {
		gwlog.Debugf("%s: fire output %s, %d connections", e, name, len(o.connections))
	}

	live := o.connections[:0]
	for _, conn := range o.connections {
		e.world.queueEvent(conn, activator, caller)
		if conn.TimesToFire > 0 {
			conn.TimesToFire -= 1
		}
		if conn.TimesToFire != 0 {
			live = append(live, conn)
		}
	}
	for i := len(live); i < len(o.connections); i++ {
		o.connections[i] = nil
	}
	o.connections = live
}

// inputAddOutput handles "AddOutput OnTrigger target:input:param:delay:times" and "AddOutput key value"
func (e *BaseEntity) inputAddOutput(data *InputData) {
	parts := strings.SplitN(strings.TrimSpace(data.Value), " ", 2)
	if len(parts) != 2 {
		gwlog.Warnf("%s: AddOutput: bad value %q", e, data.Value)
		return
	}
	key, value := parts[0], strings.TrimSpace(parts[1])
	if o := e.Output(key); o != nil {
		if err := o.AddConnectionString(strings.Replace(value, ":", connectionSeparator, -1)); err != nil {
			gwlog.Warnf("%s: AddOutput: %s", e, err)
		}
		return
	}
	if !e.I.KeyValue(key, value) {
		gwlog.Warnf("%s: AddOutput: unknown key %s", e, key)
	}
}

func (w *World) queueEvent(conn *OutputConnection, activator IEntity, caller IEntity) {
	target, input, param := conn.Target, conn.Input, conn.Param
	activatorHandle, callerHandle := ToScript(activator), ToScript(caller)
	deliver := func() {
		w.deliverEvent(target, input, param, activatorHandle.Entity(), callerHandle.Entity())
	}
	if conn.Delay > 0 {
		w.AddCallback(time.Duration(conn.Delay*float32(time.Second)), deliver)
	} else {
		w.queue.Post(deliver)
	}
}

func (w *World) deliverEvent(target string, input string, param string, activator IEntity, caller IEntity) {
	var targets []IEntity
	switch strings.ToLower(target) {
	case "!activator":
		targets = append(targets, activator)
	case "!caller", "!self":
		targets = append(targets, caller)
	default:
		targets = w.FindEntitiesByName(target)
	}
	if len(targets) == 0 {
		gwlog.Warnf("entity I/O: no target %s for input %s", target, input)
		return
	}
	for _, t := range targets {
		if t == nil || t.Base().markedForDeletion {
			continue
		}
		t.Base().AcceptInput(input, activator, caller, param)
	}
}

func entityString(e IEntity) string {
	if h := ToScript(e); h != nil {
		return h.String()
	}
	return "<nil>"
}
