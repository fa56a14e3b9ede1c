package entity

import (
	"sort"
	"strings"
	"time"

	"github.com/petar/GoLLRB/llrb"
	"github.com/pkg/errors"
	"github.com/xiaonanln/go-aoi"
	trie_tst "github.com/xiaonanln/go-trie-tst"
	"github.com/xiaonanln/goTimer"
	"github.com/xiaonanln/gwscript/engine/binding"
	"github.com/xiaonanln/gwscript/engine/common"
	"github.com/xiaonanln/gwscript/engine/consts"
	"github.com/xiaonanln/gwscript/engine/gwlog"
	"github.com/xiaonanln/gwscript/engine/post"
)

// WorldOptions configures a World
type WorldOptions struct {
	MaxEdicts     int        // consts.DEFAULT_MAX_EDICTS if 0
	TouchDistance float32    // consts.DEFAULT_TOUCH_DISTANCE if 0
	Effects       EffectSink // LogEffects if nil
}

type entityFactory struct {
	className string
	desc      *binding.TypeDesc
	new       func() IEntity
	class     binding.ScriptClass // nil for native classes
}

type edict struct {
	ent    *BaseEntity
	serial int
}

type touchPair struct {
	a, b *BaseEntity // a.index < b.index
}

func makeTouchPair(e1, e2 *BaseEntity) touchPair {
	if e1.index < e2.index {
		return touchPair{e1, e2}
	}
	return touchPair{e2, e1}
}

// World owns the edicts and the entities living in them
//
// World is not thread-safe: all methods must be called by the frame loop goroutine.
type World struct {
	ctx           *binding.Context
	edicts        []edict
	freeEdicts    *llrb.LLRB
	numEntities   int
	worldspawn    *BaseEntity
	factories     trie_tst.TST
	classNames    common.StringSet
	queue         *post.Queue
	touchMgr      aoi.AOIManager
	touchDistance aoi.Coord
	touching      map[touchPair]struct{}
	removals      []*BaseEntity
	effects       EffectSink
	rawTimers     map[*timer.Timer]struct{}
}

// NewWorld creates an empty world bound to the binding context
func NewWorld(ctx *binding.Context, opts WorldOptions) *World {
	if opts.MaxEdicts <= 0 {
		opts.MaxEdicts = consts.DEFAULT_MAX_EDICTS
	}
	if opts.TouchDistance <= 0 {
		opts.TouchDistance = consts.DEFAULT_TOUCH_DISTANCE
	}
	if opts.Effects == nil {
		opts.Effects = LogEffects{}
	}

	w := &World{
		ctx:           ctx,
		edicts:        make([]edict, opts.MaxEdicts),
		freeEdicts:    llrb.New(),
		classNames:    common.StringSet{},
		queue:         &post.Queue{},
		touchMgr:      aoi.NewXZListAOIManager(aoi.Coord(opts.TouchDistance)),
		touchDistance: aoi.Coord(opts.TouchDistance),
		touching:      map[touchPair]struct{}{},
		effects:       opts.Effects,
		rawTimers:     map[*timer.Timer]struct{}{},
	}
	for i := consts.WORLD_EDICT_INDEX + 1; i < opts.MaxEdicts; i++ {
		w.freeEdicts.ReplaceOrInsert(llrb.Int(i))
	}

	ws := NewBaseEntity()
	ws.className = "worldspawn"
	ws.world = w
	ws.index = consts.WORLD_EDICT_INDEX
	ws.spawned = true
	w.edicts[consts.WORLD_EDICT_INDEX].ent = ws
	w.worldspawn = ws
	return w
}

// Context returns the binding context of the world
func (w *World) Context() *binding.Context {
	return w.ctx
}

// WorldSpawn returns the world entity at edict 0
func (w *World) WorldSpawn() IEntity {
	return w.worldspawn.I
}

// MaxEdicts returns the number of edicts, including the world edict
func (w *World) MaxEdicts() int {
	return len(w.edicts)
}

// RegisterClass adds a native entity class to the factory dictionary
func (w *World) RegisterClass(className string, desc *binding.TypeDesc, new func() IEntity) error {
	if desc == nil || new == nil {
		return errors.Errorf("register class %s: type and constructor are required", className)
	}
	return w.addFactory(&entityFactory{className: className, desc: desc, new: new})
}

// RegisterScriptedClass adds a script class to the factory dictionary
//
// base is either a registered class name or the name of a constructible bound type. Entities of the
// class are created as their base, then bound to the script class.
func (w *World) RegisterScriptedClass(className string, base string, class binding.ScriptClass) error {
	if class == nil {
		return errors.Errorf("register class %s: script class is nil", className)
	}
	if f := w.factory(base); f != nil {
		return w.addFactory(&entityFactory{className: className, desc: f.desc, new: f.new, class: class})
	}

	desc := w.ctx.Type(base)
	if desc == nil {
		return errors.Errorf("register class %s: unknown base %s", className, base)
	}
	if !desc.Constructible {
		return errors.Errorf("register class %s: base %s is not constructible", className, base)
	}
	ctx := w.ctx
	newEntity := func() IEntity {
		obj, err := ctx.Construct(desc.Name)
		if err != nil {
			gwlog.Errorf("construct %s: %s", desc.Name, err)
			return nil
		}
		e, _ := obj.(IEntity)
		return e
	}
	return w.addFactory(&entityFactory{className: className, desc: desc, new: newEntity, class: class})
}

// UnregisterClass removes a class from the factory dictionary, existing entities are not affected
func (w *World) UnregisterClass(className string) {
	if !w.classNames.Contains(className) {
		return
	}
	w.factories.Sub(className).Val = nil
	w.classNames.Remove(className)
}

// ClassNames returns the registered class names, sorted
func (w *World) ClassNames() []string {
	return w.classNames.ToList()
}

// HasClass tells whether the class name is registered
func (w *World) HasClass(className string) bool {
	return w.classNames.Contains(className)
}

func (w *World) addFactory(f *entityFactory) error {
	if f.className == "" {
		return errors.New("register class: empty class name")
	}
	if w.classNames.Contains(f.className) {
		return errors.Errorf("register class %s: already registered", f.className)
	}
	w.factories.Sub(f.className).Val = f
	w.classNames.Add(f.className)
	gwlog.Debugf("world: registered class %s (%s, scripted=%v)", f.className, f.desc.Name, f.class != nil)
	return nil
}

func (w *World) factory(className string) *entityFactory {
	if className == "" || !w.classNames.Contains(className) {
		return nil
	}
	f, _ := w.factories.Sub(className).Val.(*entityFactory)
	return f
}

// CreateEntityByName creates an entity of the class in a free edict
//
// forceEdictIndex is consts.NO_FORCED_EDICT_INDEX to take the lowest free edict, otherwise the entity is
// created in that edict. nil is returned if the class is unknown or the edict is not available.
func (w *World) CreateEntityByName(className string, forceEdictIndex int) IEntity {
	f := w.factory(className)
	if f == nil {
		gwlog.Errorf("CreateEntityByName: unknown class %s", className)
		return nil
	}

	index, err := w.allocEdict(forceEdictIndex)
	if err != nil {
		gwlog.Errorf("CreateEntityByName(%s): %s", className, err)
		return nil
	}

	impl := f.new()
	if isNilEntity(impl) {
		gwlog.Errorf("CreateEntityByName: class %s created nil", className)
		w.freeEdict(index)
		return nil
	}
	e := impl.Base()
	e.world = w
	e.index = index
	e.serial = w.edicts[index].serial
	e.handle = nil
	e.typeDesc = f.desc
	w.edicts[index].ent = e
	w.numEntities += 1

	if f.class != nil {
		b, err := w.ctx.Bind(f.desc, e.Handle(), f.class)
		if err != nil {
			gwlog.Errorf("CreateEntityByName(%s): %s", className, err)
			w.edicts[index].ent = nil
			w.numEntities -= 1
			w.freeEdict(index)
			return nil
		}
		e.binding = b
		e.I = newScriptedEntity(e.native, b)
	}

	if consts.DEBUG_EDICTS {
		gwlog.Debugf("CreateEntityByName: %s in edict %d (serial %d)", className, index, e.serial)
	}
	e.I.PostConstructor(className)
	return e.I
}

func (w *World) allocEdict(forceEdictIndex int) (int, error) {
	if forceEdictIndex == consts.NO_FORCED_EDICT_INDEX {
		item := w.freeEdicts.DeleteMin()
		if item == nil {
			return 0, errors.Errorf("no free edict (max %d)", len(w.edicts))
		}
		return int(item.(llrb.Int)), nil
	}
	if forceEdictIndex <= consts.WORLD_EDICT_INDEX || forceEdictIndex >= len(w.edicts) {
		return 0, errors.Errorf("edict index %d out of range", forceEdictIndex)
	}
	if w.freeEdicts.Delete(llrb.Int(forceEdictIndex)) == nil {
		return 0, errors.Errorf("edict %d is in use", forceEdictIndex)
	}
	return forceEdictIndex, nil
}

func (w *World) freeEdict(index int) {
	w.edicts[index].ent = nil
	w.edicts[index].serial += 1
	w.freeEdicts.ReplaceOrInsert(llrb.Int(index))
}

func (w *World) edictEntity(index int, serial int) *BaseEntity {
	if index < 0 || index >= len(w.edicts) {
		return nil
	}
	ed := &w.edicts[index]
	if ed.serial != serial {
		return nil
	}
	return ed.ent
}

// DispatchSpawn spawns an entity created by CreateEntityByName, after its keyvalues are applied
//
// It returns 0 on success or for a nil entity, and -1 if the entity removed itself while spawning.
func (w *World) DispatchSpawn(e IEntity) int {
	if isNilEntity(e) {
		return 0
	}
	base := e.Base()
	if base.markedForDeletion {
		return -1
	}
	base.I.Spawn()
	base.spawned = true
	if base.markedForDeletion {
		return -1
	}
	if base.world == w {
		w.enterTouch(base)
	}
	return 0
}

// Remove marks the entity for deletion; UpdateOnRemove is called now, the edict is freed at the end of the frame
func (w *World) Remove(e IEntity) {
	if isNilEntity(e) {
		return
	}
	base := e.Base()
	if base.markedForDeletion || base == w.worldspawn {
		return
	}
	base.markedForDeletion = true
	base.I.UpdateOnRemove()
	if base.world == w {
		w.removals = append(w.removals, base)
	}
}

func (w *World) serviceRemovals() {
	for len(w.removals) > 0 {
		removals := w.removals
		w.removals = nil
		for _, e := range removals {
			w.endTouches(e)
			w.leaveTouch(e)
			e.clearRawTimers()
			if e.binding != nil {
				e.binding.Unbind()
			}
			if w.edicts[e.index].ent == e {
				w.freeEdict(e.index)
				w.numEntities -= 1
			}
			if consts.DEBUG_EDICTS {
				gwlog.Debugf("world: %s freed", e)
			}
		}
	}
}

func (w *World) enterTouch(e *BaseEntity) {
	if e.inAOI {
		return
	}
	aoi.InitAOI(&e.aoi, w.touchDistance, e, e)
	e.inAOI = true
	w.touchMgr.Enter(&e.aoi, aoi.Coord(e.origin.X), aoi.Coord(e.origin.Y))
}

func (w *World) leaveTouch(e *BaseEntity) {
	if !e.inAOI {
		return
	}
	w.touchMgr.Leave(&e.aoi)
	e.inAOI = false
	for neighbor := range e.neighbors {
		neighbor.neighbors.Del(e)
	}
	e.neighbors = EntitySet{}
}

func (w *World) canTouch(a, b *BaseEntity) bool {
	if a.markedForDeletion || b.markedForDeletion {
		return false
	}
	if a.IsTrigger() == b.IsTrigger() {
		return false
	}
	mins1, maxs1 := a.AbsBox()
	mins2, maxs2 := b.AbsBox()
	return boxesIntersect(mins1, maxs1, mins2, maxs2)
}

// updateTouches calls StartTouch and EndTouch on both sides for pairs that started or stopped overlapping
func (w *World) updateTouches() {
	current := map[touchPair]struct{}{}
	var started []touchPair
	for _, e := range w.sortedEntities() {
		if !e.inAOI {
			continue
		}
		for _, other := range e.neighbors.Sorted() {
			if other.index <= e.index || !w.canTouch(e, other) {
				continue
			}
			pair := makeTouchPair(e, other)
			current[pair] = struct{}{}
			if _, ok := w.touching[pair]; !ok {
				started = append(started, pair)
			}
		}
	}

	var ended []touchPair
	for pair := range w.touching {
		if _, ok := current[pair]; !ok {
			ended = append(ended, pair)
		}
	}
	sortTouchPairs(ended)

	for _, pair := range ended {
		w.endTouch(pair)
	}
	for _, pair := range started {
		if !w.canTouch(pair.a, pair.b) {
			continue
		}
		w.touching[pair] = struct{}{}
		pair.a.I.StartTouch(pair.b.I)
		pair.b.I.StartTouch(pair.a.I)
	}
}

func (w *World) endTouch(pair touchPair) {
	if _, ok := w.touching[pair]; !ok {
		return
	}
	delete(w.touching, pair)
	pair.a.I.EndTouch(pair.b.I)
	pair.b.I.EndTouch(pair.a.I)
}

// endTouches ends all touches of the entity
func (w *World) endTouches(e *BaseEntity) {
	var pairs []touchPair
	for pair := range w.touching {
		if pair.a == e || pair.b == e {
			pairs = append(pairs, pair)
		}
	}
	sortTouchPairs(pairs)
	for _, pair := range pairs {
		w.endTouch(pair)
	}
}

// Touching returns the entities currently touching e
func (w *World) Touching(e IEntity) []IEntity {
	if isNilEntity(e) {
		return nil
	}
	base := e.Base()
	var res []IEntity
	for pair := range w.touching {
		if pair.a == base {
			res = append(res, pair.b.I)
		} else if pair.b == base {
			res = append(res, pair.a.I)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Base().index < res[j].Base().index
	})
	return res
}

func sortTouchPairs(pairs []touchPair) {
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].a.index != pairs[j].a.index {
			return pairs[i].a.index < pairs[j].a.index
		}
		return pairs[i].b.index < pairs[j].b.index
	})
}

// RunFrame runs the queued events, updates touches and frees removed entities
func (w *World) RunFrame() {
	w.queue.Tick()
	w.updateTouches()
	w.queue.Tick()
	w.serviceRemovals()
}

// ActivateAll activates all spawned entities not activated yet, in edict order
func (w *World) ActivateAll() {
	for _, e := range w.sortedEntities() {
		if e.spawned && !e.activated && !e.markedForDeletion {
			e.I.Activate()
		}
	}
}

// Post runs f in the next frame
func (w *World) Post(f func()) {
	w.queue.Post(f)
}

// AddCallback calls cb after d, the callback is cancelled when the world is closed
func (w *World) AddCallback(d time.Duration, cb func()) *timer.Timer {
	var t *timer.Timer
	t = timer.AddCallback(d, func() {
		delete(w.rawTimers, t)
		cb()
	})
	w.rawTimers[t] = struct{}{}
	return t
}

// Close removes all entities and cancels pending callbacks
func (w *World) Close() {
	for t := range w.rawTimers {
		t.Cancel()
	}
	w.rawTimers = map[*timer.Timer]struct{}{}
	for _, e := range w.sortedEntities() {
		w.Remove(e.I)
	}
	w.serviceRemovals()
}

// EntityByIndex returns the entity in the edict, nil if the edict is free
func (w *World) EntityByIndex(index int) IEntity {
	if index < 0 || index >= len(w.edicts) || w.edicts[index].ent == nil {
		return nil
	}
	return w.edicts[index].ent.I
}

// Entities returns all entities except the world, in edict order
func (w *World) Entities() []IEntity {
	list := w.sortedEntities()
	res := make([]IEntity, len(list))
	for i, e := range list {
		res[i] = e.I
	}
	return res
}

// NumEntities returns the number of entities, the world not included
func (w *World) NumEntities() int {
	return w.numEntities
}

func (w *World) sortedEntities() []*BaseEntity {
	list := make([]*BaseEntity, 0, w.numEntities)
	for i := consts.WORLD_EDICT_INDEX + 1; i < len(w.edicts); i++ {
		if e := w.edicts[i].ent; e != nil {
			list = append(list, e)
		}
	}
	return list
}

// FindEntityByName returns the first entity after start whose target name matches name
//
// A trailing "*" in name matches any suffix. Names are case insensitive.
func (w *World) FindEntityByName(start IEntity, name string) IEntity {
	from := consts.WORLD_EDICT_INDEX + 1
	if !isNilEntity(start) {
		from = start.Base().index + 1
	}
	for i := from; i < len(w.edicts); i++ {
		e := w.edicts[i].ent
		if e != nil && !e.markedForDeletion && namesMatch(name, e.targetName) {
			return e.I
		}
	}
	return nil
}

// FindEntitiesByName returns all entities whose target name matches name
func (w *World) FindEntitiesByName(name string) []IEntity {
	var res []IEntity
	for e := w.FindEntityByName(nil, name); e != nil; e = w.FindEntityByName(e, name) {
		res = append(res, e)
	}
	return res
}

// FindEntityByClassName returns the first entity after start of the class
func (w *World) FindEntityByClassName(start IEntity, className string) IEntity {
	from := consts.WORLD_EDICT_INDEX + 1
	if !isNilEntity(start) {
		from = start.Base().index + 1
	}
	for i := from; i < len(w.edicts); i++ {
		e := w.edicts[i].ent
		if e != nil && !e.markedForDeletion && namesMatch(className, e.className) {
			return e.I
		}
	}
	return nil
}

func namesMatch(pattern string, name string) bool {
	if pattern == "" || name == "" {
		return false
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := pattern[:len(pattern)-1]
		return len(name) >= len(prefix) && strings.EqualFold(name[:len(prefix)], prefix)
	}
	return strings.EqualFold(pattern, name)
}
