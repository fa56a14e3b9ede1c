/*
Package gwscript runs a world of native game entities whose virtual methods can be overridden by Go scripts.

Entities

The native classes CBaseEntity, CBaseToggle and CBaseTrigger are registered in a binding context together with their
overridable methods (Spawn, Precache, KeyValue, StartTouch, Touch, EndTouch, Event_Killed, ...). Every call to an
overridable method goes through a trampoline: if the script class bound to the entity defines the method, the script
runs, otherwise the native implementation does. A script fault (an error result or a panic) is reported and, with the
default fallback policy, the native implementation runs instead.

Scripts

A script class is a Go source file interpreted by yaegi. Its top-level functions named after overridable methods are
the overrides; the first parameter receives the entity handle:

	package scripted

	import "gw/entities"

	func StartTouch(self *entities.Handle, other *entities.Handle) {
		entities.Log("%s touched by %s", self, other)
		self.CallDefault("StartTouch", other)
	}

Script classes are declared in a TOML manifest, each one on top of a native class or another registered class name.
The manifest also lists the entities created at startup:

	[[class]]
	classname = "trigger_scripted"
	base      = "trigger_multiple"
	script    = "trigger_scripted.go"

	[[entity]]
	classname = "trigger_scripted"
	[entity.keyvalues]
	targetname = "door_trigger"

Running

	gwscript -configfile gwscript.ini

SIGHUP reloads every script class, SIGINT and SIGTERM stop the frame loop.
*/
package gwscript
