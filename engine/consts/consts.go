package consts

import "time"

// Tunable Options
const (
	// DEFAULT_MAX_EDICTS is the edict table size when the config does not set one
	DEFAULT_MAX_EDICTS = 2048
	// NO_FORCED_EDICT_INDEX lets the world pick the lowest free edict
	NO_FORCED_EDICT_INDEX = -1
	// WORLD_EDICT_INDEX is reserved for the world entity
	WORLD_EDICT_INDEX = 0

	// DEFAULT_FRAME_INTERVAL is the tick interval of the host frame loop
	DEFAULT_FRAME_INTERVAL = time.Millisecond * 15
	// DEFAULT_TOUCH_DISTANCE is the default AOI distance used for trigger touches
	DEFAULT_TOUCH_DISTANCE = 32

	// OVERRIDE_WARN_THRESHOLD is the duration after which a script override call is logged as slow
	OVERRIDE_WARN_THRESHOLD = time.Millisecond * 5
)

// Debug Options
const (
	// DEBUG_ENTITY_IO logs every fired output
	DEBUG_ENTITY_IO = false
	// DEBUG_EDICTS logs edict allocation
	DEBUG_EDICTS = false
)
